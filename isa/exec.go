package isa

// BusReqType identifies the kind of bus access an opcode's execute step
// requests of the data cache stage.
type BusReqType uint8

const (
	BusNone BusReqType = iota
	BusRead
	BusWrite
)

// BusRequest is the bus access record produced by a load/store opcode's
// handler and consumed by the data cache stage.
type BusRequest struct {
	Type BusReqType

	VA   uint64
	Size int

	SpansTwoWords bool
	DQM           uint8 // partial-word don't-care mask
	PostShift     uint  // right-shift applied after extraction
	SignExtend    bool

	StoreData uint64
}

// ExecResult is everything an opcode handler produces: the architectural
// result (if any), the outgoing bus request (if any), and branch
// redirection (if any). This is the narrow write-only view a handler
// gets instead of a mutable handle onto the whole pipeline.
type ExecResult struct {
	HasResult bool
	Result    uint64

	Bus BusRequest

	BranchTaken  bool
	BranchTarget uint64
}

// HandlerFunc computes an opcode's EX-stage result given its decoded
// record, the fetching instruction's PC, and its (possibly forwarded)
// rs/rt operand values.
type HandlerFunc func(op Opcode, pc uint64, rs, rt uint64) ExecResult

func signExtend32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

// Handlers is the opcode dispatch table: one pure function per
// recognized operation.
var Handlers = map[OpID]HandlerFunc{
	OpNOP: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{}
	},
	OpLUI: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: signExtend32(uint32(op.Imm))}
	},
	OpORI: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs | op.Imm}
	},
	OpANDI: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs & op.Imm}
	},
	OpXORI: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs ^ op.Imm}
	},
	OpADDIU: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs + op.Imm}
	},
	OpSLTI: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		v := uint64(0)
		if int64(rs) < int64(op.Imm) {
			v = 1
		}
		return ExecResult{HasResult: true, Result: v}
	},
	OpSLTIU: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		v := uint64(0)
		if rs < op.Imm {
			v = 1
		}
		return ExecResult{HasResult: true, Result: v}
	},
	OpADD: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs + rt}
	},
	OpADDU: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs + rt}
	},
	OpSUB: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs - rt}
	},
	OpSUBU: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs - rt}
	},
	OpAND: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs & rt}
	},
	OpOR: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs | rt}
	},
	OpXOR: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: rs ^ rt}
	},
	OpNOR: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: ^(rs | rt)}
	},
	OpSLT: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		v := uint64(0)
		if int64(rs) < int64(rt) {
			v = 1
		}
		return ExecResult{HasResult: true, Result: v}
	},
	OpSLTU: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		v := uint64(0)
		if rs < rt {
			v = 1
		}
		return ExecResult{HasResult: true, Result: v}
	},

	OpLB:  loadHandler(1, true),
	OpLBU: loadHandler(1, false),
	OpLH:  loadHandler(2, true),
	OpLHU: loadHandler(2, false),
	OpLW:  loadHandler(4, true),
	OpLWU: loadHandler(4, false),
	OpLD:  loadDoubleHandler(),

	OpSB: storeHandler(1),
	OpSH: storeHandler(2),
	OpSW: storeHandler(4),
	OpSD: storeDoubleHandler(),

	OpBEQ: branchHandler(func(rs, rt uint64) bool { return rs == rt }),
	OpBNE: branchHandler(func(rs, rt uint64) bool { return rs != rt }),
	OpBLEZ: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return evalBranch(int64(rs) <= 0, pc, op.Imm)
	},
	OpBGTZ: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return evalBranch(int64(rs) > 0, pc, op.Imm)
	},
	OpJ: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		target := (pc & 0xFFFFFFFFF0000000) | (uint64(op.Target) << 2)
		return ExecResult{BranchTaken: true, BranchTarget: target}
	},
	OpJAL: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		target := (pc & 0xFFFFFFFFF0000000) | (uint64(op.Target) << 2)
		return ExecResult{HasResult: true, Result: pc + 8, BranchTaken: true, BranchTarget: target}
	},
	OpJR: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{BranchTaken: true, BranchTarget: rs}
	},
	OpJALR: func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return ExecResult{HasResult: true, Result: pc + 8, BranchTaken: true, BranchTarget: rs}
	},
}

func evalBranch(taken bool, pc uint64, offset uint64) ExecResult {
	if !taken {
		return ExecResult{}
	}
	return ExecResult{BranchTaken: true, BranchTarget: pc + 4 + (offset << 2)}
}

func branchHandler(cond func(rs, rt uint64) bool) HandlerFunc {
	return func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		return evalBranch(cond(rs, rt), pc, op.Imm)
	}
}

func loadHandler(size int, signExtend bool) HandlerFunc {
	return func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		va := rs + op.Imm
		return ExecResult{Bus: BusRequest{
			Type: BusRead, VA: va, Size: size, SignExtend: signExtend,
		}}
	}
}

func loadDoubleHandler() HandlerFunc {
	return func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		va := rs + op.Imm
		return ExecResult{Bus: BusRequest{
			Type: BusRead, VA: va, Size: 8, SpansTwoWords: true,
		}}
	}
}

func storeHandler(size int) HandlerFunc {
	return func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		va := rs + op.Imm
		return ExecResult{Bus: BusRequest{
			Type: BusWrite, VA: va, Size: size, StoreData: rt,
		}}
	}
}

func storeDoubleHandler() HandlerFunc {
	return func(op Opcode, pc uint64, rs, rt uint64) ExecResult {
		va := rs + op.Imm
		return ExecResult{Bus: BusRequest{
			Type: BusWrite, VA: va, Size: 8, SpansTwoWords: true, StoreData: rt,
		}}
	}
}
