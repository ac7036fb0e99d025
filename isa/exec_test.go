package isa_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vr4300sim/isa"
)

var _ = Describe("Handlers", func() {
	It("computes ORI as a bitwise OR with the immediate", func() {
		op := isa.Opcode{ID: isa.OpORI, Imm: 0x5678}
		res := isa.Handlers[isa.OpORI](op, 0, 0x1234_0000, 0)

		Expect(res.HasResult).To(BeTrue())
		Expect(res.Result).To(Equal(uint64(0x1234_5678)))
	})

	It("issues a sign-extending bus read for LW", func() {
		op := isa.Opcode{ID: isa.OpLW, Imm: 0xFFFFFFFFFFFFFFFC}
		res := isa.Handlers[isa.OpLW](op, 0, 0x1000, 0)

		Expect(res.HasResult).To(BeFalse())
		Expect(res.Bus.Type).To(Equal(isa.BusRead))
		Expect(res.Bus.VA).To(Equal(uint64(0x0FFC)))
		Expect(res.Bus.Size).To(Equal(4))
		Expect(res.Bus.SignExtend).To(BeTrue())
	})

	It("issues a two-word bus write for SD", func() {
		op := isa.Opcode{ID: isa.OpSD, Imm: 0}
		res := isa.Handlers[isa.OpSD](op, 0, 0x2000, 0xDEADBEEFCAFEBABE)

		Expect(res.Bus.Type).To(Equal(isa.BusWrite))
		Expect(res.Bus.SpansTwoWords).To(BeTrue())
		Expect(res.Bus.StoreData).To(Equal(uint64(0xDEADBEEFCAFEBABE)))
	})

	It("takes BEQ when operands are equal and computes the branch-delay-slot target", func() {
		op := isa.Opcode{ID: isa.OpBEQ, Imm: 1}
		res := isa.Handlers[isa.OpBEQ](op, 0x1000, 5, 5)

		Expect(res.BranchTaken).To(BeTrue())
		Expect(res.BranchTarget).To(Equal(uint64(0x1000 + 4 + 4)))
	})

	It("does not take BEQ when operands differ", func() {
		op := isa.Opcode{ID: isa.OpBEQ, Imm: 1}
		res := isa.Handlers[isa.OpBEQ](op, 0x1000, 5, 6)

		Expect(res.BranchTaken).To(BeFalse())
	})

	It("computes JAL's link value as PC+8 and preserves the segment's top bits", func() {
		op := isa.Opcode{ID: isa.OpJAL, Target: 0x40}
		res := isa.Handlers[isa.OpJAL](op, 0xBFC00000, 0, 0)

		Expect(res.HasResult).To(BeTrue())
		Expect(res.Result).To(Equal(uint64(0xBFC00008)))
		Expect(res.BranchTarget).To(Equal(uint64(0xB0000100)))
	})
})
