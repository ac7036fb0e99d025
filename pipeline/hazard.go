package pipeline

import "github.com/sarchlab/vr4300sim/isa"

// HazardUnit detects load-use interlocks and resolves register forwarding.
//
// Grounded on timing/pipeline/hazard.go's ForwardingSource/DetectForwarding
// shape, but collapsed from two-point (EX/MEM, MEM/WB) forwarding to a
// single source-equals-recent-destination match against the DC/WB latch:
// the write-read-restore trick on the register file that the source
// describes is re-expressed here as an explicit comparison, per the
// recorded design-note resolution (see DESIGN.md).
type HazardUnit struct{}

// NewHazardUnit creates a hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectLoadUseInterlock reports whether the instruction about to enter
// EX must stall because the instruction immediately ahead of it (still
// resolving its load in EX/DC) will produce the value this instruction
// needs as rs or rt.
func (h *HazardUnit) DetectLoadUseInterlock(prevWasLoad bool, prevDest uint8, op isa.Opcode) bool {
	if !prevWasLoad || prevDest == 0 {
		return false
	}
	if op.ReadsRs && op.Rs == prevDest {
		return true
	}
	if op.ReadsRt && op.Rt == prevDest {
		return true
	}
	return false
}

// ForwardOperand resolves a GPR index to its effective value: the
// register file's value, unless the instruction currently retiring this
// tick (the DC/WB latch) is about to write that same register, in which
// case its fresh result is used instead of the stale register-file read.
func (h *HazardUnit) ForwardOperand(idx uint8, fileValue uint64, dcwb *DCWBLatch) uint64 {
	if idx == 0 {
		return 0
	}
	if dcwb.Valid && dcwb.Fault == FaultNone && dcwb.Dest == idx {
		return dcwb.Result
	}
	return fileValue
}
