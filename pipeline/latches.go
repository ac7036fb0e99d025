package pipeline

import (
	"github.com/sarchlab/vr4300sim/isa"
	"github.com/sarchlab/vr4300sim/mmu"
)

// FaultKind enumerates the signaled-value fault tags a C-latch can carry.
// Faults are never language-level exceptions: a stage that encounters one
// writes the tag into its latch and returns abort; the tag rides the
// pipeline forward until writeback delivers it.
type FaultKind uint8

const (
	FaultNone FaultKind = iota
	FaultInstructionAddressError
	FaultInstructionCacheBusy
	FaultLoadDelayInterlock
	FaultDataAddressError
	FaultDataCacheMiss
	FaultDataCacheBusy
	FaultInterrupt
	FaultColdReset
)

// branchDelayBit is the high bit of CauseData: set when the instruction
// occupies a branch delay slot.
const branchDelayBit uint32 = 1 << 31

// CLatch is the header every latch carries forward: whether the slot
// holds a live instruction, its PC, its fault tag, and cause-data (bit
// 31 is the branch-delay flag).
type CLatch struct {
	Valid     bool
	PC        uint64
	Fault     FaultKind
	CauseData uint32
}

// BranchDelay reports whether this instruction is in a branch delay slot.
func (c *CLatch) BranchDelay() bool {
	return c.CauseData&branchDelayBit != 0
}

// SetBranchDelay sets or clears the branch-delay bit.
func (c *CLatch) SetBranchDelay(v bool) {
	if v {
		c.CauseData |= branchDelayBit
	} else {
		c.CauseData &^= branchDelayBit
	}
}

func (c *CLatch) clear() {
	*c = CLatch{}
}

// ICRFLatch is the latch between the IC and RF stages: the PC currently
// being fetched and the cached segment descriptor governing it.
type ICRFLatch struct {
	CLatch

	Segment *mmu.Segment

	// pendingWord/pendingValid cache an instruction-cache fill that
	// already completed during the tick that reported a stall, so the
	// stalled retry doesn't reissue the cache access.
	pendingWord  uint32
	pendingValid bool
}

// Clear resets the latch to its zero, invalid state.
func (l *ICRFLatch) Clear() {
	l.clear()
	l.Segment = nil
	l.pendingWord = 0
	l.pendingValid = false
}

// RFEXLatch is the latch between the RF and EX stages: the raw (possibly
// masked) instruction word and its decoded opcode record.
type RFEXLatch struct {
	CLatch

	IW   uint32
	Mask uint32
	Op   isa.Opcode
}

// Clear resets the latch to its zero, invalid state.
func (l *RFEXLatch) Clear() {
	l.clear()
	l.IW = 0
	l.Mask = 0xFFFFFFFF
	l.Op = isa.Opcode{}
}

// EXDCLatch is the latch between the EX and DC stages: the destination
// register, the partial (pre-memory) result, the cached data-side
// segment, and the outgoing bus request.
type EXDCLatch struct {
	CLatch

	Dest    uint8
	Result  uint64
	Segment *mmu.Segment
	Bus     isa.BusRequest

	pendingData  uint64
	pendingValid bool
}

// Clear resets the latch to its zero, invalid state.
func (l *EXDCLatch) Clear() {
	l.clear()
	l.Dest = 0
	l.Result = 0
	l.Segment = nil
	l.Bus = isa.BusRequest{}
	l.pendingData = 0
	l.pendingValid = false
}

// DCWBLatch is the latch between the DC and WB stages: the destination
// register and the final result value.
type DCWBLatch struct {
	CLatch

	Dest   uint8
	Result uint64
}

// Clear resets the latch to its zero, invalid state.
func (l *DCWBLatch) Clear() {
	l.clear()
	l.Dest = 0
	l.Result = 0
}
