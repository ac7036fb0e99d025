package pipeline

// tickBusyWait is the busy-wait (idle loop) resume mode: the pipeline performs
// no stage work, only checking for a pending interrupt that must cut the
// wait short. Grounded on timing/pipeline/pipeline.go's idle-mode tick
// handling (a no-op cycle that still advances the clock).
func (p *P) tickBusyWait() {
	if p.CP0.InterruptPending() {
		p.dcwb.Valid = true
		p.dcwb.Fault = FaultInterrupt
		p.dcwb.PC = p.exdc.PC
		p.dcwb.CauseData = p.exdc.CauseData
		p.cycleType = CycleSlowDC
		p.faultPresent = true
		p.exceptionHistory = 0
		return
	}
}

// tickDataCacheBlock is the resume mode entered while DC is blocked on a
// full-block data-cache fill (a two-word load whose fill the ordinary
// stallCycles freeze doesn't cover — see stageDC's FaultDataCacheMiss
// branch). Unlike stallCycles, which blocks the whole tick indiscriminately,
// this mode re-checks for a pending interrupt every remaining wait cycle,
// matching tickBusyWait's interruptible-wait behavior. Once the wait drains,
// the driver resumes the normal full stage pass, where DC retries against
// its cached fill result.
func (p *P) tickDataCacheBlock() {
	if p.CP0.InterruptPending() {
		p.dcwb.Valid = true
		p.dcwb.Fault = FaultInterrupt
		p.dcwb.PC = p.exdc.PC
		p.dcwb.CauseData = p.exdc.CauseData
		p.cycleType = CycleSlowDC
		p.faultPresent = true
		p.exceptionHistory = 0
		return
	}

	if p.blockWait > 0 {
		p.blockWait--
		p.stats.Stalls++
		return
	}

	p.cycleType = CycleSlowDC
	p.runStages()
}

// cycleStageIndexDC is DC's position in the back-to-front stage order,
// used by runStages to tell a genuine full-block miss apart from any
// other stage's abort.
const cycleStageIndexDC = 1
