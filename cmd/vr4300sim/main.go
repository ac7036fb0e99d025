// Command vr4300sim runs a flat binary image through the VR4300 pipeline
// core, ticking it cycle by cycle until an address-error fault is
// delivered or a cycle cap is reached.
//
// Grounded on cmd/m2sim/main.go's flag-driven load-then-run shape,
// narrowed to the pipeline core's own surface (no functional-emulation
// fallback, since this module implements only the timing core).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/vr4300sim/cp0"
	"github.com/sarchlab/vr4300sim/loader"
	"github.com/sarchlab/vr4300sim/mmu"
	"github.com/sarchlab/vr4300sim/pipeline"
	"github.com/sarchlab/vr4300sim/regfile"
)

var (
	maxCycles = flag.Uint64("max-cycles", 1_000_000, "stop after this many ticks even if no fault occurs")
	base      = flag.Uint64("base", 0xBFC00000, "physical load address (defaults to the reset vector's segment)")
	verbose   = flag.Bool("v", false, "print a line per fault delivered to the handler")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: vr4300sim [options] <image.bin>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "vr4300sim: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	img, err := loader.Load(f, *base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vr4300sim: %v\n", err)
		os.Exit(1)
	}

	bus := newFlatBus(img)

	regs := &regfile.File{}
	cp0Block := cp0.New()
	segments := mmu.NewTable()
	tlb := mmu.NewTLB(32)

	core := pipeline.New(regs, cp0Block, segments, tlb, bus, pipeline.DefaultConfig())
	core.Faults = &stderrFaultHandler{verbose: *verbose}
	core.Init()

	var ticks uint64
	halted := false
	core.Faults.(*stderrFaultHandler).onHalt = func() { halted = true }

	for ticks = 0; ticks < *maxCycles && !halted; ticks++ {
		core.Cycle()
	}

	stats := core.Stats()
	fmt.Printf("ticks:        %d\n", ticks)
	fmt.Printf("instructions: %d\n", stats.Instructions)
	fmt.Printf("stalls:       %d\n", stats.Stalls)
	fmt.Printf("faults:       %d\n", stats.Faults)
}

// stderrFaultHandler reports every delivered fault to stderr (in verbose
// mode) and halts the run on instruction- and data-address errors. Cold
// reset is not terminal: Init arms one, so every run delivers it once at
// start-up.
type stderrFaultHandler struct {
	verbose bool
	onHalt  func()
}

func (h *stderrFaultHandler) Deliver(fault pipeline.FaultKind, pc uint64, causeData uint32) {
	if h.verbose {
		fmt.Fprintf(os.Stderr, "fault %d at pc=0x%x cause=0x%x\n", fault, pc, causeData)
	}
	if fault == pipeline.FaultColdReset {
		return
	}
	if fault == pipeline.FaultInstructionAddressError || fault == pipeline.FaultDataAddressError {
		if h.onHalt != nil {
			h.onHalt()
		}
	}
}

// flatBus is a byte-addressable backing store over a single contiguous
// image, growing lazily on out-of-range stores rather than faulting —
// this harness has no device container to route unmapped accesses to.
type flatBus struct {
	base uint64
	mem  []byte
}

func newFlatBus(img *loader.Image) *flatBus {
	return &flatBus{base: img.Base, mem: append([]byte(nil), img.Data...)}
}

func (b *flatBus) offset(addr uint64) uint64 {
	if addr < b.base {
		return 0
	}
	return addr - b.base
}

func (b *flatBus) Read(addr uint64, size int) []byte {
	off := b.offset(addr)
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		idx := off + uint64(i)
		if int(idx) < len(b.mem) {
			out[i] = b.mem[idx]
		}
	}
	return out
}

func (b *flatBus) Write(addr uint64, data []byte) {
	off := b.offset(addr)
	need := off + uint64(len(data))
	if need > uint64(len(b.mem)) {
		grown := make([]byte, need)
		copy(grown, b.mem)
		b.mem = grown
	}
	copy(b.mem[off:], data)
}
