package pipeline

import (
	"github.com/sarchlab/vr4300sim/cache"
	"github.com/sarchlab/vr4300sim/cp0"
	"github.com/sarchlab/vr4300sim/isa"
	"github.com/sarchlab/vr4300sim/mmu"
	"github.com/sarchlab/vr4300sim/regfile"
)

// Each stage is a function of the pipeline object returning true when it
// stalled or aborted this tick — the driver must not let any earlier
// (upstream) stage advance past it.
//
// Grounded on timing/pipeline/stages.go's Fetch/Decode/Execute/Access/
// Writeback method shapes and timing/pipeline/cache_stages.go's
// pending-result bookkeeping for the cache-probing paths.

// translate resolves a virtual address within seg to a physical address:
// offset subtraction for unmapped segments, TLB probe for mapped ones.
func (p *P) translate(seg *mmu.Segment, va uint64) uint64 {
	if seg.Mapped {
		return p.TLB.Probe(va, p.CP0.ASID())
	}
	return va - seg.Offset
}

func busRead(bus cache.BackingStore, pa uint64, size int) uint64 {
	if bus == nil {
		return 0
	}
	data := bus.Read(pa, size)
	var v uint64
	for i := 0; i < len(data) && i < size; i++ {
		v |= uint64(data[i]) << uint(8*i)
	}
	return v
}

func busWrite(bus cache.BackingStore, pa uint64, size int, value uint64) {
	if bus == nil {
		return
	}
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = byte(value >> uint(8*i))
	}
	bus.Write(pa, data)
}

func signExtendSized(v uint64, size int) uint64 {
	switch size {
	case 1:
		return uint64(int64(int8(v)))
	case 2:
		return uint64(int64(int16(v)))
	case 4:
		return uint64(int64(int32(v)))
	default:
		return v
	}
}

// stageIC advances the program counter, maintaining the cached segment
// descriptor across sequential fetches within its window and performing
// a fresh segment lookup exactly when the PC leaves it.
func (p *P) stageIC() bool {
	seg := p.icrf.Segment
	if seg == nil || !seg.Contains(p.pc) {
		s, ok := p.Segments.GetSegment(p.pc, p.CP0.Status)
		if !ok {
			p.icrf.Valid = true
			p.icrf.PC = p.pc
			p.icrf.Fault = FaultInstructionAddressError
			return true
		}
		seg = s
	}

	p.icrf.Valid = true
	p.icrf.PC = p.pc
	p.icrf.Fault = FaultNone
	p.icrf.Segment = seg
	p.icrf.SetBranchDelay(p.rfex.Valid && p.rfex.Fault == FaultNone && p.rfex.Op.IsBranch)

	p.pc += 4
	return false
}

// stageRF fetches the raw instruction word through the instruction
// cache (or bus, for uncached segments) and decodes it.
func (p *P) stageRF() bool {
	p.rfex.PC = p.icrf.PC
	p.rfex.CauseData = p.icrf.CauseData

	if p.icrf.Fault != FaultNone {
		p.rfex.Valid = p.icrf.Valid
		p.rfex.Fault = p.icrf.Fault
		p.rfex.IW = 0
		p.rfex.Op = isa.Opcode{}
		return false
	}
	if !p.icrf.Valid {
		p.rfex.Valid = false
		return false
	}

	if p.icrf.pendingValid {
		word := p.icrf.pendingWord
		p.icrf.pendingValid = false
		p.finishDecode(word)
		return false
	}

	seg := p.icrf.Segment
	pa := p.translate(seg, p.icrf.PC)

	var word uint32
	if seg.Cached {
		res := p.ICache.Read(pa, 4)
		if !res.Hit {
			p.icrf.pendingWord = uint32(res.Data)
			p.icrf.pendingValid = true
			if res.Latency > 1 {
				p.stallCycles = res.Latency - 1
			}
			p.rfex.Valid = true
			p.rfex.Fault = FaultInstructionCacheBusy
			return true
		}
		word = uint32(res.Data)
	} else {
		word = uint32(busRead(p.Bus, pa, 4))
	}

	p.finishDecode(word)
	return false
}

func (p *P) finishDecode(word uint32) {
	p.rfex.Valid = true
	p.rfex.Fault = FaultNone
	p.rfex.IW = word
	p.rfex.Mask = 0xFFFFFFFF
	p.rfex.Op = p.Decoder.Decode(word & p.rfex.Mask)
}

func (p *P) readOperand(idx uint8, isCP1 bool) uint64 {
	if isCP1 {
		fr := p.CP0.Status&cp0.StatusFR != 0
		return p.Regs.ReadCP1(regfile.EvenPairIndex(idx, fr))
	}
	return p.Regs.ReadGPR(idx)
}

// stageEX performs the load-use interlock check, reads and forwards
// operands, and invokes the decoded opcode's handler.
func (p *P) stageEX() bool {
	prevWasLoad := p.exdc.Valid && p.exdc.Fault == FaultNone && p.exdc.Bus.Type == isa.BusRead
	prevDest := p.exdc.Dest

	p.exdc.PC = p.rfex.PC
	p.exdc.CauseData = p.rfex.CauseData

	if p.rfex.Fault != FaultNone {
		p.exdc.Valid = p.rfex.Valid
		p.exdc.Fault = p.rfex.Fault
		p.exdc.Dest = 0
		p.exdc.Result = 0
		p.exdc.Bus = isa.BusRequest{}
		return false
	}
	if !p.rfex.Valid {
		p.exdc.Valid = false
		return false
	}

	op := p.rfex.Op

	if p.hazard.DetectLoadUseInterlock(prevWasLoad, prevDest, op) {
		if p.config.LoadUseStallCycles > 1 {
			p.stallCycles = p.config.LoadUseStallCycles - 1
		}
		p.exdc.Valid = true
		p.exdc.Fault = FaultLoadDelayInterlock
		return true
	}

	rsVal := p.readOperand(op.Rs, op.IsCP1)
	rtVal := p.readOperand(op.Rt, op.IsCP1)
	if !op.IsCP1 {
		rsVal = p.hazard.ForwardOperand(op.Rs, rsVal, &p.dcwb)
		rtVal = p.hazard.ForwardOperand(op.Rt, rtVal, &p.dcwb)
	}

	var res isa.ExecResult
	if handler, ok := isa.Handlers[op.ID]; ok {
		res = handler(op, p.rfex.PC, rsVal, rtVal)
	}

	p.exdc.Valid = true
	p.exdc.Fault = FaultNone
	p.exdc.Dest = 0
	if op.Writes() {
		p.exdc.Dest = op.Dest()
	}
	p.exdc.Result = res.Result
	p.exdc.Bus = res.Bus

	if res.BranchTaken {
		p.pc = res.BranchTarget
	}

	return false
}

// stageDC checks exception precedence ahead of any memory work, then
// resolves and performs the EX/DC latch's bus request against the data
// cache (or bus, for uncached segments).
func (p *P) stageDC() bool {
	p.dcwb.PC = p.exdc.PC
	p.dcwb.CauseData = p.exdc.CauseData

	// Cold reset and pending interrupts take precedence over whatever
	// instruction (if any) is currently sitting in the EX/DC latch, so
	// they are checked before the latch's own validity.
	if p.coldReset {
		p.coldReset = false
		p.dcwb.Valid = true
		p.dcwb.Fault = FaultColdReset
		p.dcwb.Dest = 0
		p.dcwb.Result = 0
		return true
	}
	if p.CP0.InterruptPending() {
		p.dcwb.Valid = true
		p.dcwb.Fault = FaultInterrupt
		p.dcwb.Dest = 0
		p.dcwb.Result = 0
		return true
	}

	if p.exdc.Fault != FaultNone {
		p.dcwb.Valid = p.exdc.Valid
		p.dcwb.Fault = p.exdc.Fault
		p.dcwb.Dest = 0
		p.dcwb.Result = 0
		return false
	}
	if !p.exdc.Valid {
		p.dcwb.Valid = false
		return false
	}

	p.dcwb.Valid = true
	p.dcwb.Fault = FaultNone
	p.dcwb.Dest = p.exdc.Dest
	p.dcwb.Result = p.exdc.Result

	if p.exdc.Bus.Type == isa.BusNone {
		return false
	}

	seg := p.exdc.Segment
	if seg == nil || !seg.Contains(p.exdc.Bus.VA) {
		s, ok := p.Segments.GetSegment(p.exdc.Bus.VA, p.CP0.Status)
		if !ok {
			p.dcwb.Fault = FaultDataAddressError
			return true
		}
		seg = s
	}
	p.exdc.Segment = seg
	pa := p.translate(seg, p.exdc.Bus.VA)

	size := p.exdc.Bus.Size
	if p.exdc.Bus.SpansTwoWords {
		size = 8
	}

	switch p.exdc.Bus.Type {
	case isa.BusRead:
		var data uint64
		switch {
		case p.exdc.pendingValid:
			data = p.exdc.pendingData
			p.exdc.pendingValid = false
		case seg.Cached:
			res := p.DCache.Read(pa, size)
			if !res.Hit {
				p.exdc.pendingData = res.Data
				p.exdc.pendingValid = true
				if p.exdc.Bus.SpansTwoWords {
					// A doubleword load's miss pulls in a full block
					// rather than a single word; model it as the
					// genuinely interruptible long wait instead of the
					// ordinary single-word cache-busy freeze.
					p.dcwb.Fault = FaultDataCacheMiss
					p.blockWait = res.Latency
				} else {
					if res.Latency > 1 {
						p.stallCycles = res.Latency - 1
					}
					p.dcwb.Fault = FaultDataCacheBusy
				}
				return true
			}
			data = res.Data
		default:
			data = busRead(p.Bus, pa, size)
		}

		data >>= p.exdc.Bus.PostShift
		if p.exdc.Bus.SignExtend {
			data = signExtendSized(data, p.exdc.Bus.Size)
		}
		p.dcwb.Result |= data

	case isa.BusWrite:
		if seg.Cached {
			if p.exdc.Bus.SpansTwoWords {
				p.DCache.WriteDouble(pa, p.exdc.Bus.StoreData)
			} else {
				p.DCache.WriteMasked(pa, p.exdc.Bus.Size, p.exdc.Bus.StoreData, p.exdc.Bus.DQM)
			}
		} else {
			busWrite(p.Bus, pa, size, p.exdc.Bus.StoreData)
		}
	}

	return false
}

// stageWB writes the DC/WB latch's result to the register file and
// delivers any fault that has reached the end of the pipeline.
func (p *P) stageWB() bool {
	if !p.dcwb.Valid {
		return false
	}

	if p.dcwb.Fault != FaultNone {
		if p.Faults != nil {
			p.Faults.Deliver(p.dcwb.Fault, p.dcwb.PC, p.dcwb.CauseData)
		}
		p.stats.Faults++
		return false
	}

	if p.dcwb.Dest != 0 {
		p.Regs.WriteGPR(p.dcwb.Dest, p.dcwb.Result)
	}
	p.stats.Instructions++
	return false
}
