// Package regfile provides the VR4300 architectural register file: the
// 32 general-purpose registers and the 32 coprocessor-1 (floating point)
// registers, with register-zero pinning.
package regfile

// File is the VR4300 architectural register file.
//
// GPR[0] is the hardwired zero register: WriteGPR is a no-op for index 0
// and ReadGPR always returns 0 for it.
//
// CP1 holds the 32 floating-point registers in their 32-register (FR=1)
// view; EvenPairIndex folds that down to the 16-pair (FR=0) view the EX
// stage needs for coprocessor-1 operands.
type File struct {
	GPR [32]uint64
	CP1 [32]uint64

	// PC is a program-counter field for callers' use. The pipeline does
	// not read or update it; its own fetch PC (P.PC) and latches are
	// authoritative during execution.
	PC uint64
}

// ReadGPR reads a general-purpose register. Register 0 always reads 0.
func (f *File) ReadGPR(i uint8) uint64 {
	if i == 0 {
		return 0
	}
	return f.GPR[i&31]
}

// WriteGPR writes a general-purpose register. Writes to register 0 are
// silently discarded.
func (f *File) WriteGPR(i uint8, v uint64) {
	if i == 0 {
		return
	}
	f.GPR[i&31] = v
}

// ReadCP1 reads a coprocessor-1 register in its 32-register view.
func (f *File) ReadCP1(i uint8) uint64 {
	return f.CP1[i&31]
}

// WriteCP1 writes a coprocessor-1 register in its 32-register view.
func (f *File) WriteCP1(i uint8, v uint64) {
	f.CP1[i&31] = v
}

// EvenPairIndex applies the FR-status-bit even-register-pair rule: when fr
// is false (FR=0, the 16-pair view), the low bit of the register index is
// forced to zero so that odd-numbered CP1 operands alias their preceding
// even register.
func EvenPairIndex(i uint8, fr bool) uint8 {
	if fr {
		return i
	}
	return i &^ 1
}
