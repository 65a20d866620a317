package insts_test

import (
	"math/bits"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64emu/insts"
)

var _ = Describe("Logical immediate decoding", func() {
	It("should decode well-known masks", func() {
		cases := []struct {
			n, immr, imms uint64
			width         uint
			want          uint64
		}{
			{1, 0, 0, 64, 0x1},
			{1, 0, 7, 64, 0xff},
			{1, 56, 7, 64, 0xff00},
			{1, 0, 62, 64, 0x7fffffffffffffff},
			{0, 0, 0b110000, 64, 0x0101010101010101},
			{0, 0, 0b011110, 64, 0x7fffffff7fffffff},
			{0, 0, 0, 32, 0x1},
			{0, 1, 0, 32, 0x80000000},
		}
		for _, c := range cases {
			mask, ok := insts.DecodeBitMasks(c.n, c.immr, c.imms, c.width)
			Expect(ok).To(BeTrue())
			Expect(mask).To(Equal(c.want))
		}
	})

	It("should reject the all-ones and reserved encodings", func() {
		_, ok := insts.DecodeBitMasks(1, 0, 63, 64)
		Expect(ok).To(BeFalse())

		_, ok = insts.DecodeBitMasks(0, 0, 0b111111, 64)
		Expect(ok).To(BeFalse())
	})

	It("should re-encode every valid 13-bit field to itself", func() {
		for field := uint64(0); field < 1<<13; field++ {
			n := field >> 12
			immr := field >> 6 & 0x3f
			imms := field & 0x3f

			mask, ok := insts.DecodeBitMasks(n, immr, imms, 64)
			if !ok {
				continue
			}

			esize := uint64(64)
			if n == 0 {
				esize = 1 << (bits.Len64(^imms&0x3f) - 1)
			}

			gotN, gotImmr, gotImms, ok := insts.EncodeBitMasks(mask, 64)
			Expect(ok).To(BeTrue(), "mask %#x", mask)
			Expect(gotN).To(Equal(n), "mask %#x", mask)
			Expect(gotImms).To(Equal(imms), "mask %#x", mask)
			// The rotation re-encodes canonically, modulo the element
			// size.
			Expect(gotImmr).To(Equal(immr%esize), "mask %#x", mask)

			// The recovered field decodes to the original mask.
			mask2, ok := insts.DecodeBitMasks(gotN, gotImmr, gotImms, 64)
			Expect(ok).To(BeTrue())
			Expect(mask2).To(Equal(mask))
		}
	})

	It("should refuse inexpressible masks", func() {
		for _, mask := range []uint64{0, ^uint64(0), 0x5} {
			_, _, _, ok := insts.EncodeBitMasks(mask, 64)
			Expect(ok).To(BeFalse(), "mask %#x", mask)
		}
	})
})
