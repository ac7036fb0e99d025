// Package pipeline implements the VR4300's five-stage in-order pipeline
// core: the four inter-stage latches, the five stage functions, the
// driver that schedules them (one back-to-front pass per tick, plus the
// busy-wait and data-cache-block resume modes), and the hazard unit they
// rely on.
//
// Grounded throughout on timing/pipeline/pipeline.go's Pipeline/Tick
// driver shape, timing/pipeline/registers.go's latch idiom, and
// timing/pipeline/stages.go's per-stage method shape, generalized from
// m2sim's ARM64 semantics to VR4300 MIPS III ones.
package pipeline

import (
	"github.com/sarchlab/vr4300sim/cache"
	"github.com/sarchlab/vr4300sim/cp0"
	"github.com/sarchlab/vr4300sim/isa"
	"github.com/sarchlab/vr4300sim/mmu"
	"github.com/sarchlab/vr4300sim/regfile"
)

// pipelineDepth is the number of in-flight stages (IC, RF, EX, DC, WB).
const pipelineDepth = 5

// CycleType records which stage last aborted (informational, and used to
// pick the two special resume modes below), per the pipeline object's
// "pipeline cycle type" field. Kept as a dedicated enum on P rather than
// co-located in the register array, per the recorded design-note
// resolution.
type CycleType uint8

const (
	CycleFast CycleType = iota
	CycleSlowWB
	CycleSlowDC
	CycleSlowEX
	CycleSlowRF
	CycleSlowIC
	CycleBusyWait
	CycleDataCacheBlock
)

var cycleTypeForIndex = [5]CycleType{
	CycleSlowWB, CycleSlowDC, CycleSlowEX, CycleSlowRF, CycleSlowIC,
}

// Config holds stall/latency tunables the pipeline is constructed with,
// loadable from JSON like timing/latency's config shape.
type Config struct {
	ICache cache.Config `json:"icache"`
	DCache cache.Config `json:"dcache"`

	// LoadUseStallCycles is the extra tick a load-use interlock costs.
	LoadUseStallCycles uint64 `json:"load_use_stall_cycles"`
}

// DefaultConfig returns the VR4300's stock cache geometry and a
// single-cycle load-use interlock penalty.
func DefaultConfig() Config {
	return Config{
		ICache:             cache.DefaultICacheConfig(),
		DCache:             cache.DefaultDCacheConfig(),
		LoadUseStallCycles: 1,
	}
}

// Stats holds pipeline performance counters.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	Stalls       uint64
	Faults       uint64
}

// FaultHandler is the external collaborator responsible for every
// user-visible exception side effect (vectoring, EPC, Cause). The
// pipeline core calls it once a fault reaches WB; it is not responsible
// for anything upstream of that point.
type FaultHandler interface {
	Deliver(fault FaultKind, pc uint64, causeData uint32)
}

// P is the pipeline object: the four latches, the stall/fault/resume
// bookkeeping, and handles to every collaborator a stage needs.
type P struct {
	Regs     *regfile.File
	CP0      *cp0.Block
	Segments *mmu.Table
	TLB      *mmu.TLB
	ICache   *cache.Cache
	DCache   *cache.Cache
	Bus      cache.BackingStore
	Decoder  *isa.Decoder
	Faults   FaultHandler

	icrf ICRFLatch
	rfex RFEXLatch
	exdc EXDCLatch
	dcwb DCWBLatch

	pc uint64

	stallCycles      uint64
	blockWait        uint64
	faultPresent     bool
	exceptionHistory int
	cycleType        CycleType

	coldReset bool

	hazard *HazardUnit
	config Config

	stats Stats
}

// New constructs a pipeline core over the given collaborators.
func New(regs *regfile.File, cp0Block *cp0.Block, segments *mmu.Table, tlb *mmu.TLB, bus cache.BackingStore, config Config) *P {
	p := &P{
		Regs:     regs,
		CP0:      cp0Block,
		Segments: segments,
		TLB:      tlb,
		Bus:      bus,
		Decoder:  isa.NewDecoder(),
		hazard:   NewHazardUnit(),
		config:   config,
	}
	p.ICache = cache.New(config.ICache, bus)
	p.DCache = cache.New(config.DCache, bus)
	return p
}

// Init resets all latches and seeds the IC and EX/DC latches with the
// default segment descriptor, per the upward pipeline_init contract.
func (p *P) Init() {
	p.icrf.Clear()
	p.rfex.Clear()
	p.exdc.Clear()
	p.dcwb.Clear()

	def := p.Segments.DefaultSegment()
	p.icrf.Segment = def
	p.exdc.Segment = def

	p.pc = def.Start
	p.stallCycles = 0
	p.blockWait = 0
	p.faultPresent = false
	p.exceptionHistory = 0
	p.cycleType = CycleFast
	p.coldReset = true
}

// Stats returns the pipeline's performance counters.
func (p *P) Stats() Stats {
	return p.stats
}

// PC returns the next fetch address.
func (p *P) PC() uint64 {
	return p.pc
}

// SignalColdReset arms the cold-reset fault for the next DC exception
// check (the device container raises this on power-on/reset button).
func (p *P) SignalColdReset() {
	p.coldReset = true
}

// Cycle advances the pipeline by one master clock tick, per the
// upward cycle(P) contract.
func (p *P) Cycle() {
	p.stats.Cycles++

	p.CP0.TickCount()
	p.CP0.CheckCompareInterrupt()

	if p.stallCycles > 0 {
		p.stallCycles--
		p.stats.Stalls++
		return
	}

	switch p.cycleType {
	case CycleBusyWait:
		p.tickBusyWait()
		return
	case CycleDataCacheBlock:
		p.tickDataCacheBlock()
		return
	}

	p.runStages()
}

var stageFns = [pipelineDepth]func(*P) bool{
	(*P).stageWB,
	(*P).stageDC,
	(*P).stageEX,
	(*P).stageRF,
	(*P).stageIC,
}

// runStages always executes the full WB..IC pass in back-to-front order,
// stopping at the first stage that aborts. Every stage downstream of an
// abort point (crucially WB) still gets to run on the very next tick —
// only the aborting stage and whatever sits upstream of it stay frozen,
// which is what lets a latched fault drain toward WB and lets a stalled
// load's producer finish even while its consumer is held back.
func (p *P) runStages() {
	for i := 0; i < pipelineDepth; i++ {
		if stageFns[i](p) {
			if i == cycleStageIndexDC && p.dcwb.Fault == FaultDataCacheMiss {
				p.cycleType = CycleDataCacheBlock
			} else {
				p.cycleType = cycleTypeForIndex[i]
			}
			p.faultPresent = true
			p.exceptionHistory = 0
			return
		}
	}

	// Every remaining stage completed cleanly this tick.
	if p.faultPresent {
		p.exceptionHistory++
		p.cycleType = CycleFast
		if p.exceptionHistory > pipelineDepth+1 {
			p.faultPresent = false
		}
	}
}
