// Package cache provides instruction/data cache modeling for the VR4300
// pipeline core, built on Akita's cache directory component.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes.
	Size int
	// Associativity (number of ways).
	Associativity int
	// BlockSize in bytes (cache line size).
	BlockSize int
	// HitLatency in cycles.
	HitLatency uint64
	// MissLatency in cycles (includes backing-store fill time).
	MissLatency uint64
}

// DefaultICacheConfig returns the VR4300's instruction cache configuration:
// 16KB, direct-mapped, 32-byte lines.
func DefaultICacheConfig() Config {
	return Config{
		Size:          16 * 1024,
		Associativity: 1,
		BlockSize:     32,
		HitLatency:    1,
		MissLatency:   8,
	}
}

// DefaultDCacheConfig returns the VR4300's data cache configuration:
// 8KB, 2-way set associative, 16-byte lines, write-back.
func DefaultDCacheConfig() Config {
	return Config{
		Size:          8 * 1024,
		Associativity: 2,
		BlockSize:     16,
		HitLatency:    1,
		MissLatency:   8,
	}
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the data read (for load operations), right-aligned.
	Data uint64
	// Evicted is true if a dirty block was evicted.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// BackingStore is the next level in the memory hierarchy (the system bus)
// that a cache fills from and writes back to.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint64, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint64, data []byte)
}

// Cache models one level of the VR4300's instruction or data cache using
// Akita's directory/victim-finder components for tag and LRU state, and a
// flat byte-slice-per-block data store addressable by low PA bits.
type Cache struct {
	config Config

	directory *akitacache.DirectoryImpl

	// dataStore holds one line per (set*associativity + way).
	dataStore [][]byte

	stats Statistics

	backing BackingStore
}

// New creates a new cache with the given configuration and backing store.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics without invalidating any line.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Read probes the cache for a load of size bytes at addr. On a miss the
// line is filled from the backing store (write-allocate).
func (c *Cache) Read(addr uint64, size int) AccessResult {
	c.stats.Reads++

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint64(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]
		data := extractData(blockData, offset, size)

		return AccessResult{Hit: true, Latency: c.config.HitLatency, Data: data}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, false, 0, 0)
}

// Write performs a full-width write of size bytes (write-allocate on miss).
// This is a plain store — all size bytes are overwritten.
func (c *Cache) Write(addr uint64, size int, data uint64) AccessResult {
	return c.WriteMasked(addr, size, data, 0)
}

// WriteMasked performs a partial-word store: bits set in dqm (the
// don't-care mask, one bit per byte starting at bit 0) leave the
// corresponding byte of the line untouched; all other bytes are
// overwritten from data.
func (c *Cache) WriteMasked(addr uint64, size int, data uint64, dqm uint8) AccessResult {
	c.stats.Writes++

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint64(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]
		storeDataMasked(blockData, offset, size, data, dqm)
		block.IsDirty = true

		return AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, true, data, dqm)
}

// WriteDouble stores an 8-byte value, swapping its two 32-bit halves
// before merging into the line. The corresponding two-word load path
// (plain Read(addr, 8)) does not reciprocally swap — see DESIGN.md for
// why that asymmetry is preserved.
func (c *Cache) WriteDouble(addr uint64, value uint64) AccessResult {
	swapped := (value << 32) | (value >> 32)
	return c.Write(addr, 8, swapped)
}

// handleMiss handles a cache miss by filling from the backing store.
func (c *Cache) handleMiss(addr uint64, size int, isWrite bool, writeData uint64, dqm uint8) AccessResult {
	result := AccessResult{Hit: false, Latency: c.config.MissLatency}

	blockAddr := c.blockAddr(addr)

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		panic("cache: directory produced no victim block")
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(victim.Tag, victimData)
		}
	}

	if c.backing != nil {
		newData := c.backing.Read(blockAddr, c.config.BlockSize)
		copy(victimData, newData)
	} else {
		for i := range victimData {
			victimData[i] = 0
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false

	offset := addr % uint64(c.config.BlockSize)
	if isWrite {
		storeDataMasked(victimData, offset, size, writeData, dqm)
		victim.IsDirty = true
	} else {
		result.Data = extractData(victimData, offset, size)
	}

	c.directory.Visit(victim)

	return result
}

// Invalidate marks the cache line covering addr as invalid without
// writeback.
func (c *Cache) Invalidate(addr uint64) {
	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty lines and invalidates them.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				blockData := c.dataStore[c.blockIndex(block)]
				c.backing.Write(block.Tag, blockData)
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all lines without writeback and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// extractData extracts a size-byte little-endian value from data at offset.
func extractData(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeDataMasked stores a size-byte little-endian value into data at
// offset, skipping any byte i for which bit i of dqm is set.
func storeDataMasked(data []byte, offset uint64, size int, value uint64, dqm uint8) {
	if data == nil || int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		if dqm&(1<<uint(i)) != 0 {
			continue
		}
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
