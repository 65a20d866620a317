package timing_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64emu/timing"
)

// smallConfig keeps the geometry tiny so eviction behavior is easy to
// force: 4 sets x 2 ways x 64B lines per cache.
func smallConfig() timing.Config {
	geom := timing.Geometry{Size: 512, Associativity: 2, BlockSize: 64}
	return timing.Config{L1I: geom, L1D: geom}
}

var _ = Describe("Cache observer", func() {
	var h *timing.Hierarchy

	BeforeEach(func() {
		h = timing.NewHierarchy(smallConfig())
	})

	It("should miss cold and hit warm", func() {
		h.Access(0x1000, 8, false)
		h.Access(0x1008, 8, false)
		h.Access(0x1030, 8, true)

		stats := h.L1D.Stats()
		Expect(stats.Accesses).To(Equal(uint64(3)))
		Expect(stats.Misses).To(Equal(uint64(1)))
		Expect(stats.Hits).To(Equal(uint64(2)))
	})

	It("should keep instruction fetches out of the data cache", func() {
		h.Fetch(0x1000)
		h.Fetch(0x1004)

		Expect(h.L1I.Stats().Accesses).To(Equal(uint64(2)))
		Expect(h.L1I.Stats().Hits).To(Equal(uint64(1)))
		Expect(h.L1D.Stats().Accesses).To(Equal(uint64(0)))
	})

	It("should evict the LRU way when a set overflows", func() {
		// Three blocks mapping to the same set of a 4-set cache:
		// stride = numSets * blockSize = 256.
		h.Access(0x0000, 8, false)
		h.Access(0x0100, 8, false)
		h.Access(0x0200, 8, false) // evicts 0x0000

		stats := h.L1D.Stats()
		Expect(stats.Misses).To(Equal(uint64(3)))
		Expect(stats.Evictions).To(Equal(uint64(1)))

		// The evicted line misses again; the survivors hit.
		h.Access(0x0100, 8, false)
		h.Access(0x0200, 8, false)
		h.Access(0x0000, 8, false)
		stats = h.L1D.Stats()
		Expect(stats.Hits).To(Equal(uint64(2)))
		Expect(stats.Misses).To(Equal(uint64(4)))
	})

	It("should count a writeback when a dirty line is evicted", func() {
		h.Access(0x0000, 8, true) // dirty
		h.Access(0x0100, 8, false)
		h.Access(0x0200, 8, false) // evicts dirty 0x0000

		Expect(h.L1D.Stats().Writebacks).To(Equal(uint64(1)))
	})

	It("should charge both lines for a straddling access", func() {
		h.Access(0x103c, 8, false) // crosses the 0x1040 line boundary

		Expect(h.L1D.Stats().Accesses).To(Equal(uint64(2)))
	})

	It("should clear counters and tags on reset", func() {
		h.Access(0x1000, 8, false)
		h.L1D.Reset()

		Expect(h.L1D.Stats().Accesses).To(Equal(uint64(0)))
		h.Access(0x1000, 8, false)
		Expect(h.L1D.Stats().Misses).To(Equal(uint64(1)))
	})
})

var _ = Describe("Config", func() {
	It("should provide a sane default geometry", func() {
		cfg := timing.DefaultConfig()
		Expect(cfg.L1D.Size % (cfg.L1D.Associativity * cfg.L1D.BlockSize)).To(BeZero())
	})

	It("should load overrides from JSON", func() {
		path := filepath.Join(GinkgoT().TempDir(), "timing.json")
		data := []byte(`{"l1d": {"size": 32768, "associativity": 8, "block_size": 64}}`)
		Expect(os.WriteFile(path, data, 0o644)).To(Succeed())

		cfg, err := timing.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.L1D.Size).To(Equal(32768))
		Expect(cfg.L1D.Associativity).To(Equal(8))
		// Untouched sections keep the defaults.
		Expect(cfg.L1I).To(Equal(timing.DefaultConfig().L1I))
	})

	It("should reject impossible geometries", func() {
		path := filepath.Join(GinkgoT().TempDir(), "bad.json")
		data := []byte(`{"l1d": {"size": 1000, "associativity": 3, "block_size": 64}}`)
		Expect(os.WriteFile(path, data, 0o644)).To(Succeed())

		_, err := timing.LoadConfig(path)
		Expect(err).To(HaveOccurred())
	})
})
