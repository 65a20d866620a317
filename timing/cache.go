// Package timing models the first-level caches of a generic ARM64
// core as observers of the emulator's memory accesses. It produces
// hit/miss statistics only; it never alters what the guest reads or
// writes.
package timing

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/a64emu/emu"
)

// Statistics holds the counters one cache accumulates.
type Statistics struct {
	Accesses   uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns the fraction of accesses that hit.
func (s Statistics) HitRate() float64 {
	if s.Accesses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses)
}

// Cache tracks tag state for one cache using the Akita cache
// directory with LRU replacement. There is no data store: the
// emulator's flat memory is always the source of truth.
type Cache struct {
	geom      Geometry
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

func newCache(geom Geometry) *Cache {
	numSets := geom.Size / (geom.Associativity * geom.BlockSize)
	return &Cache{
		geom: geom,
		directory: akitacache.NewDirectory(
			numSets,
			geom.Associativity,
			geom.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Stats returns the accumulated counters.
func (c *Cache) Stats() Statistics { return c.stats }

// Reset invalidates all lines and clears the counters.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

func (c *Cache) access(addr uint64, write bool) {
	c.stats.Accesses++
	blockAddr := addr / uint64(c.geom.BlockSize) * uint64(c.geom.BlockSize)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		if write {
			block.IsDirty = true
		}
		return
	}

	c.stats.Misses++
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return
	}
	if victim.IsValid {
		c.stats.Evictions++
		if victim.IsDirty {
			c.stats.Writebacks++
		}
	}
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = write
	c.directory.Visit(victim)
}

// Hierarchy is the emulator-facing observer: a split L1 with an
// instruction cache fed by fetches and a data cache fed by loads and
// stores.
type Hierarchy struct {
	L1I *Cache
	L1D *Cache
}

var _ emu.MemoryObserver = (*Hierarchy)(nil)

// NewHierarchy builds the observer from a configuration.
func NewHierarchy(cfg Config) *Hierarchy {
	return &Hierarchy{
		L1I: newCache(cfg.L1I),
		L1D: newCache(cfg.L1D),
	}
}

// Fetch records an instruction fetch.
func (h *Hierarchy) Fetch(addr uint64) {
	h.L1I.access(addr, false)
}

// Access records a data load or store.
func (h *Hierarchy) Access(addr uint64, size uint64, write bool) {
	h.L1D.access(addr, write)
	// Accesses that straddle a line boundary touch the next line too.
	last := addr + size - 1
	if size > 0 && last/uint64(h.L1D.geom.BlockSize) != addr/uint64(h.L1D.geom.BlockSize) {
		h.L1D.access(last, write)
	}
}
