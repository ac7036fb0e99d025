// Package loader reads a flat binary memory image into the byte slice a
// BackingStore implementation is built over, at a caller-supplied base
// address.
//
// Grounded on cmd/m2sim/main.go's segment-copy loop (read once, copy into
// the emulated address space), narrowed to a single flat blob rather
// than an ELF program's multiple segments — the VR4300 boots from a
// contiguous cartridge/IPL image, not a linked executable.
package loader

import (
	"fmt"
	"io"
)

// Image is a flat binary loaded at a base address.
type Image struct {
	Base uint64
	Data []byte
}

// Load reads all of r into an Image based at base.
func Load(r io.Reader, base uint64) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: reading image: %w", err)
	}

	return &Image{Base: base, Data: data}, nil
}

// CopyInto copies the image into dst at Base, growing dst if necessary,
// zero-filling any gap below Base.
func CopyInto(dst []byte, img *Image) []byte {
	end := img.Base + uint64(len(img.Data))
	if uint64(len(dst)) < end {
		grown := make([]byte, end)
		copy(grown, dst)
		dst = grown
	}

	copy(dst[img.Base:end], img.Data)
	return dst
}
