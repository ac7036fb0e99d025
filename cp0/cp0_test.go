package cp0_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vr4300sim/cp0"
)

func TestCP0(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "CP0 Suite")
}

var _ = Describe("Block", func() {
	var b *cp0.Block

	BeforeEach(func() {
		b = cp0.New()
	})

	Describe("ASID", func() {
		It("extracts the low byte of EntryHi", func() {
			b.EntryHi = 0xDEADBE42
			Expect(b.ASID()).To(Equal(uint8(0x42)))
		})
	})

	Describe("TickCount", func() {
		It("advances Count once every two ticks", func() {
			b.TickCount()
			Expect(b.Count).To(Equal(uint32(0)))
			b.TickCount()
			Expect(b.Count).To(Equal(uint32(1)))
			b.TickCount()
			Expect(b.Count).To(Equal(uint32(1)))
			b.TickCount()
			Expect(b.Count).To(Equal(uint32(2)))
		})
	})

	Describe("CheckCompareInterrupt", func() {
		It("sets Cause bit 15 exactly when Count equals Compare", func() {
			b.Compare = 10
			b.Count = 9
			b.CheckCompareInterrupt()
			Expect(b.Cause & cp0.CauseIP7Timer).To(Equal(uint32(0)))

			b.Count = 10
			b.CheckCompareInterrupt()
			Expect(b.Cause & cp0.CauseIP7Timer).To(Equal(cp0.CauseIP7Timer))
		})
	})

	Describe("InterruptPending", func() {
		It("is false with no pending interrupt bits", func() {
			b.Status = cp0.StatusIE
			Expect(b.InterruptPending()).To(BeFalse())
		})

		It("is true when an unmasked, enabled interrupt is pending and EXL/ERL are clear", func() {
			b.Cause = 0x0100
			b.Status = cp0.StatusIE | 0x0100
			Expect(b.InterruptPending()).To(BeTrue())
		})

		It("is false when EXL is set even though the interrupt is pending and enabled", func() {
			b.Cause = 0x0100
			b.Status = cp0.StatusIE | cp0.StatusEXL | 0x0100
			Expect(b.InterruptPending()).To(BeFalse())
		})

		It("is false when IE is clear", func() {
			b.Cause = 0x0100
			b.Status = 0x0100
			Expect(b.InterruptPending()).To(BeFalse())
		})
	})
})
