package loader_test

import (
	"bytes"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vr4300sim/loader"
)

func TestLoader(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Loader Suite")
}

var _ = Describe("Load", func() {
	It("reads a flat image at the given base", func() {
		data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
		img, err := loader.Load(bytes.NewReader(data), 0xA0000000)

		Expect(err).NotTo(HaveOccurred())
		Expect(img.Base).To(Equal(uint64(0xA0000000)))
		Expect(img.Data).To(Equal(data))
	})
})

var _ = Describe("CopyInto", func() {
	It("places the image at Base, zero-filling everything below it", func() {
		img := &loader.Image{Base: 4, Data: []byte{1, 2, 3}}

		out := loader.CopyInto(nil, img)

		Expect(out).To(Equal([]byte{0, 0, 0, 0, 1, 2, 3}))
	})

	It("preserves existing bytes outside the image's range", func() {
		dst := []byte{9, 9, 9, 9, 9, 9, 9, 9}
		img := &loader.Image{Base: 2, Data: []byte{1, 2}}

		out := loader.CopyInto(dst, img)

		Expect(out).To(Equal([]byte{9, 9, 1, 2, 9, 9, 9, 9}))
	})
})
