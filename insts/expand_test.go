package insts_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64emu/insts"
)

var _ = Describe("Advanced SIMD expand immediate", func() {
	expand := func(op, cmode, imm8 uint64) uint64 {
		imm64, ok := insts.AdvSIMDExpandImm(op, cmode, imm8)
		Expect(ok).To(BeTrue())
		return imm64
	}

	It("should replicate 32-bit shifted immediates", func() {
		Expect(expand(0, 0b0000, 0xab)).To(Equal(uint64(0x000000ab000000ab)))
		Expect(expand(0, 0b0010, 0xab)).To(Equal(uint64(0x0000ab000000ab00)))
		Expect(expand(0, 0b0100, 0xab)).To(Equal(uint64(0x00ab000000ab0000)))
		Expect(expand(0, 0b0110, 0xab)).To(Equal(uint64(0xab000000ab000000)))
	})

	It("should replicate 16-bit shifted immediates", func() {
		Expect(expand(0, 0b1000, 0xab)).To(Equal(uint64(0x00ab00ab00ab00ab)))
		Expect(expand(0, 0b1010, 0xab)).To(Equal(uint64(0xab00ab00ab00ab00)))
	})

	It("should fill below the immediate for the shifting-ones forms", func() {
		Expect(expand(0, 0b1100, 0xab)).To(Equal(uint64(0x0000abff0000abff)))
		Expect(expand(0, 0b1101, 0xab)).To(Equal(uint64(0x00abffff00abffff)))
	})

	It("should replicate bytes for cmode 1110", func() {
		Expect(expand(0, 0b1110, 0xab)).To(Equal(uint64(0xabababababababab)))
	})

	It("should expand each bit to a byte for op=1 cmode 1110", func() {
		Expect(expand(1, 0b1110, 0b10100101)).To(Equal(uint64(0xff00ff0000ff00ff)))
	})

	It("should expand the FMOV single form", func() {
		imm64 := expand(0, 0b1111, 0x70) // 1.0f replicated
		Expect(math.Float32frombits(uint32(imm64))).To(Equal(float32(1.0)))
		Expect(imm64 >> 32).To(Equal(imm64 & 0xffffffff))
	})

	It("should expand the FMOV double form", func() {
		Expect(math.Float64frombits(expand(1, 0b1111, 0x00))).To(Equal(2.0))
		Expect(math.Float64frombits(expand(1, 0b1111, 0x80))).To(Equal(-2.0))
	})
})

var _ = Describe("FP8 immediate expansion", func() {
	It("should cover the sign, exponent, and fraction fields", func() {
		cases := []struct {
			imm8 uint64
			want float64
		}{
			{0x00, 2.0},
			{0x08, 3.0},
			{0x10, 4.0},
			{0x18, 6.0},
			{0x70, 1.0},
			{0x78, 1.5},
			{0xf0, -1.0},
			{0x60, 0.5},
		}
		for _, c := range cases {
			Expect(math.Float64frombits(insts.FPImm64(c.imm8))).To(Equal(c.want), "imm8 %#x", c.imm8)
			Expect(float64(math.Float32frombits(insts.FPImm32(c.imm8)))).To(Equal(c.want), "imm8 %#x", c.imm8)
		}
	})
})
