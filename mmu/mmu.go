// Package mmu implements address translation for the IC and DC stages:
// segment lookup against the VR4300's fixed memory map, and TLB probing
// for the mapped segments.
package mmu

import "fmt"

// Segment describes a virtual address range with shared mapping,
// cacheability and offset properties.
type Segment struct {
	Start, Length uint64
	// Offset is subtracted from a VA in this segment to form its PA
	// baseline (unmapped segments only).
	Offset uint64
	// Mapped segments require a TLB translation; unmapped segments use
	// Offset directly.
	Mapped bool
	// Cached segments go through the instruction/data cache; uncached
	// segments bypass it.
	Cached bool
}

// Contains reports whether va falls within the segment's window. A
// fetch latch's cached segment handle is valid only while the program
// counter remains within this window.
func (s *Segment) Contains(va uint64) bool {
	return va >= s.Start && va < s.Start+s.Length
}

// The VR4300's fixed 32-bit-compatible virtual memory map: standard
// MIPS32/64 segmentation (see DESIGN.md) — unmapped cached kseg0,
// unmapped uncached kseg1, mapped kuseg below 0x8000_0000 and mapped
// kseg2/kseg3 above 0xC000_0000.
var (
	kuseg = Segment{Start: 0x0000_0000, Length: 0x8000_0000, Mapped: true, Cached: true}
	kseg0 = Segment{Start: 0x8000_0000, Length: 0x2000_0000, Offset: 0x8000_0000, Cached: true}
	kseg1 = Segment{Start: 0xA000_0000, Length: 0x2000_0000, Offset: 0xA000_0000, Cached: false}
	kseg2 = Segment{Start: 0xC000_0000, Length: 0x4000_0000, Mapped: true, Cached: true}
)

// Table resolves a virtual address to the segment descriptor that governs
// it.
type Table struct{}

// NewTable creates a segment table over the VR4300's fixed memory map.
func NewTable() *Table {
	return &Table{}
}

// GetSegment returns the segment descriptor covering va. status is the
// CP0 Status register; kernel/user-mode segment visibility is not
// modeled further than the fixed kuseg/kseg split.
func (t *Table) GetSegment(va uint64, status uint32) (*Segment, bool) {
	switch {
	case kuseg.Contains(va):
		return &kuseg, true
	case kseg0.Contains(va):
		return &kseg0, true
	case kseg1.Contains(va):
		return &kseg1, true
	case kseg2.Contains(va):
		return &kseg2, true
	default:
		return nil, false
	}
}

// DefaultSegment returns the segment a freshly reset pipeline should fetch
// under. The VR4300 reset vector lives in kseg1.
func (t *Table) DefaultSegment() *Segment {
	return &kseg1
}

// Entry is a two-page (even/odd) VR4300 TLB entry, grounded on
// SchawnnDev-awesomeVM/internal/mips/cop0.go's TLBEntry.
type Entry struct {
	VPN2 uint64 // virtual page number / 2, aligned to 2*PageSize
	ASID uint8
	G    bool // global: matches regardless of ASID

	PFN0 uint64 // even-page physical frame number
	V0   bool

	PFN1 uint64 // odd-page physical frame number
	V1   bool

	PageSize uint64 // bytes per single page (power of two)
}

// TLB is a linear-scan translation lookaside buffer, keyed by (VA, ASID).
// There is no general-purpose TLB component in the retrieved corpus or
// ecosystem (Akita's cache directory models tag/LRU state, not address
// translation) — see DESIGN.md.
type TLB struct {
	entries []Entry
}

// NewTLB creates an empty TLB with room for capacity entries.
func NewTLB(capacity int) *TLB {
	return &TLB{entries: make([]Entry, 0, capacity)}
}

// Write installs (or replaces, at index) a TLB entry.
func (t *TLB) Write(index int, e Entry) {
	for len(t.entries) <= index {
		t.entries = append(t.entries, Entry{})
	}
	t.entries[index] = e
}

// Probe resolves va under asid to a physical address.
//
// A miss here is an invariant violation on a well-formed program — a
// mapped-segment access with no installed TLB entry should be
// impossible. This implementation panics rather than guessing at an
// unspecified TLB-refill fault path; see DESIGN.md.
func (t *TLB) Probe(va uint64, asid uint8) uint64 {
	for _, e := range t.entries {
		pageMask := 2*e.PageSize - 1
		if va&^pageMask != e.VPN2 {
			continue
		}
		if !e.G && e.ASID != asid {
			continue
		}

		odd := va&e.PageSize != 0
		if odd {
			if !e.V1 {
				continue
			}
			return e.PFN1 | (va & (e.PageSize - 1))
		}
		if !e.V0 {
			continue
		}
		return e.PFN0 | (va & (e.PageSize - 1))
	}

	panic(fmt.Sprintf("mmu: TLB miss on mapped segment at va=0x%x asid=%d", va, asid))
}
