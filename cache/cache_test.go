package cache_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vr4300sim/cache"
)

func TestCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cache Suite")
}

// flatBus is a trivial byte-addressable backing store used only by tests.
type flatBus struct {
	bytes map[uint64]uint8
}

func newFlatBus() *flatBus {
	return &flatBus{bytes: make(map[uint64]uint8)}
}

func (b *flatBus) ReadByte(addr uint64) uint8    { return b.bytes[addr] }
func (b *flatBus) WriteByte(addr uint64, v uint8) { b.bytes[addr] = v }

func (b *flatBus) write64(addr uint64, v uint64) {
	for i := 0; i < 8; i++ {
		b.bytes[addr+uint64(i)] = byte(v >> (i * 8))
	}
}

func (b *flatBus) read64(addr uint64) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b.bytes[addr+uint64(i)]) << (i * 8)
	}
	return v
}

var _ = Describe("Cache", func() {
	var (
		c       *cache.Cache
		bus     *flatBus
		backing *cache.BusBacking
	)

	BeforeEach(func() {
		bus = newFlatBus()
		backing = cache.NewBusBacking(bus)
		// Small cache for testing: 4KB, 4-way, 64B lines.
		config := cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
		}
		c = cache.New(config, backing)
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			bus.write64(0x1000, 0xDEADBEEF)

			result := c.Read(0x1000, 8)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))
			Expect(result.Data).To(Equal(uint64(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on cached data", func() {
			bus.write64(0x1000, 0xCAFEBABE)

			c.Read(0x1000, 8) // miss

			result := c.Read(0x1000, 8)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(result.Data).To(Equal(uint64(0xCAFEBABE)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(2)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(1)))
		})

		It("should hit on different addresses in same cache line", func() {
			bus.write64(0x1000, 0x11111111)
			bus.write64(0x1004, 0x22222222)

			c.Read(0x1000, 4) // miss, loads entire line

			result := c.Read(0x1004, 4)
			Expect(result.Hit).To(BeTrue())
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss", func() {
			result := c.Write(0x1000, 8, 0x12345678)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			readResult := c.Read(0x1000, 8)
			Expect(readResult.Hit).To(BeTrue())
			Expect(readResult.Data).To(Equal(uint64(0x12345678)))
		})

		It("should hit on cached data", func() {
			c.Write(0x1000, 8, 0x11111111) // miss

			result := c.Write(0x1000, 8, 0x22222222)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))

			readResult := c.Read(0x1000, 8)
			Expect(readResult.Data).To(Equal(uint64(0x22222222)))
		})

		It("should not touch don't-care bytes in a masked write", func() {
			c.Write(0x1000, 8, 0xFFFFFFFFFFFFFFFF)

			// dqm=0x0F: leave the low 4 bytes untouched, overwrite the high 4.
			c.WriteMasked(0x1000, 8, 0x00000000AABBCCDD, 0x0F)

			result := c.Read(0x1000, 8)
			Expect(result.Data).To(Equal(uint64(0x00000000FFFFFFFF)))
		})

		It("should swap 32-bit halves on a double-word store", func() {
			c.WriteDouble(0x2000, 0x1122334455667788)

			result := c.Read(0x2000, 8)
			Expect(result.Data).To(Equal(uint64(0x5566778811223344)))
		})
	})

	Describe("Eviction", func() {
		It("should evict when the target set is full", func() {
			// 4KB cache, 64B lines, 4-way => 16 sets; addresses 1024 apart
			// all map to set 0.
			c.Write(0x0000, 8, 0x11111111)
			c.Write(0x0400, 8, 0x22222222)
			c.Write(0x0800, 8, 0x33333333)
			c.Write(0x0C00, 8, 0x44444444)

			Expect(c.Read(0x0000, 8).Hit).To(BeTrue())
			Expect(c.Read(0x0400, 8).Hit).To(BeTrue())
			Expect(c.Read(0x0800, 8).Hit).To(BeTrue())
			Expect(c.Read(0x0C00, 8).Hit).To(BeTrue())

			result := c.Write(0x1000, 8, 0x55555555)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())

			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should write back dirty evicted lines", func() {
			c.Write(0x0000, 8, 0x11111111)
			c.Write(0x0400, 8, 0x22222222)
			c.Write(0x0800, 8, 0x33333333)
			c.Write(0x0C00, 8, 0x44444444)

			c.Read(0x0400, 8)
			c.Read(0x0800, 8)
			c.Read(0x0C00, 8)

			c.Write(0x1000, 8, 0x55555555) // evicts LRU (0x0000)

			Expect(bus.read64(0x0000)).To(Equal(uint64(0x11111111)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush", func() {
		It("should write back all dirty lines", func() {
			c.Write(0x0000, 8, 0x11111111)
			c.Write(0x1000, 8, 0x22222222)

			Expect(bus.read64(0x0000)).To(Equal(uint64(0)))

			c.Flush()

			Expect(bus.read64(0x0000)).To(Equal(uint64(0x11111111)))
			Expect(bus.read64(0x1000)).To(Equal(uint64(0x22222222)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
		})
	})

	Describe("Default configurations", func() {
		It("should describe the VR4300 I-cache", func() {
			config := cache.DefaultICacheConfig()
			Expect(config.Size).To(Equal(16 * 1024))
			Expect(config.Associativity).To(Equal(1))
			Expect(config.BlockSize).To(Equal(32))
		})

		It("should describe the VR4300 D-cache", func() {
			config := cache.DefaultDCacheConfig()
			Expect(config.Size).To(Equal(8 * 1024))
			Expect(config.Associativity).To(Equal(2))
			Expect(config.BlockSize).To(Equal(16))
		})
	})
})
