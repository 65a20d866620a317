package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64emu/emu"
)

func vecFromBytes(b ...uint8) emu.Vec128 {
	var v emu.Vec128
	copy(v[:], b)
	return v
}

var _ = Describe("SIMD integer", func() {
	It("should add bytes lane-wise and reduce with ADDV", func() {
		m := newMachine([]uint32{
			encMOVI16B(0, 0x01),
			encMOVI16B(1, 0x02),
			encADDV16B(2, 0, 1),
			encADDVB(3, 2),
		})

		run(m, 4)

		Expect(m.Vregs[2].U8(0)).To(Equal(uint8(3)))
		Expect(m.Vregs[2].U8(15)).To(Equal(uint8(3)))
		Expect(m.Vregs[3].U8(0)).To(Equal(uint8(48)))
		Expect(m.Vregs[3].U64(0)).To(Equal(uint64(48)))
		Expect(m.Vregs[3].U64(1)).To(Equal(uint64(0)))
	})

	It("should subtract with element wraparound", func() {
		m := newMachine([]uint32{encSUBV16B(2, 0, 1)})
		m.Vregs[0].SetU8(0, 1)
		m.Vregs[1].SetU8(0, 2)

		run(m, 1)

		Expect(m.Vregs[2].U8(0)).To(Equal(uint8(0xff)))
	})

	It("should widen the byte sum in UADDLV", func() {
		m := newMachine([]uint32{
			encMOVI16B(0, 0xff),
			encUADDLVH(1, 0),
		})

		run(m, 2)

		Expect(m.Vregs[1].U16(0)).To(Equal(uint16(16 * 255)))
		Expect(m.Vregs[1].U64(1)).To(Equal(uint64(0)))
	})

	It("should count population per byte with CNT", func() {
		m := newMachine([]uint32{encCNT8B(1, 0)})
		m.Vregs[0].SetU8(0, 0xff)
		m.Vregs[0].SetU8(1, 0x0f)
		m.Vregs[0].SetU8(7, 0x01)
		m.Vregs[0].SetU64(1, ^uint64(0))

		run(m, 1)

		Expect(m.Vregs[1].U8(0)).To(Equal(uint8(8)))
		Expect(m.Vregs[1].U8(1)).To(Equal(uint8(4)))
		Expect(m.Vregs[1].U8(7)).To(Equal(uint8(1)))
		Expect(m.Vregs[1].U64(1)).To(Equal(uint64(0)))
	})

	It("should produce all-ones masks from CMEQ and CMGT", func() {
		m := newMachine([]uint32{
			encCMEQ16B(2, 0, 1),
			encCMGT16B(3, 0, 1),
		})
		m.Vregs[0].SetU8(0, 5)
		m.Vregs[1].SetU8(0, 5)
		m.Vregs[0].SetU8(1, 0x7f)
		m.Vregs[1].SetU8(1, 0x80) // -128 signed

		run(m, 2)

		Expect(m.Vregs[2].U8(0)).To(Equal(uint8(0xff)))
		Expect(m.Vregs[2].U8(1)).To(Equal(uint8(0)))
		Expect(m.Vregs[3].U8(0)).To(Equal(uint8(0)))
		Expect(m.Vregs[3].U8(1)).To(Equal(uint8(0xff))) // 127 > -128
	})

	It("should apply the bitwise three-same operations", func() {
		m := newMachine([]uint32{
			encANDVec(2, 0, 1),
			encORRVec(3, 0, 1),
			encEORVec(4, 0, 1),
		})
		m.Vregs[0].SetU64(0, 0xff00ff00ff00ff00)
		m.Vregs[1].SetU64(0, 0x0ff00ff00ff00ff0)

		run(m, 3)

		Expect(m.Vregs[2].U64(0)).To(Equal(uint64(0x0f000f000f000f00)))
		Expect(m.Vregs[3].U64(0)).To(Equal(uint64(0xfff0fff0fff0fff0)))
		Expect(m.Vregs[4].U64(0)).To(Equal(uint64(0xf0f0f0f0f0f0f0f0)))
	})

	It("should select through the destination with BSL", func() {
		m := newMachine([]uint32{encBSL(2, 0, 1)})
		m.Vregs[2].SetU64(0, 0xffff0000ffff0000) // selector
		m.Vregs[0].SetU64(0, 0xaaaaaaaaaaaaaaaa)
		m.Vregs[1].SetU64(0, 0x5555555555555555)

		run(m, 1)

		Expect(m.Vregs[2].U64(0)).To(Equal(uint64(0xaaaa5555aaaa5555)))
	})

	It("should duplicate a general register into all lanes", func() {
		m := newMachine([]uint32{encDUPGen4S(1, 0)})
		m.SetReg(0, 0x12345678)

		run(m, 1)

		for i := uint(0); i < 4; i++ {
			Expect(m.Vregs[1].U32(i)).To(Equal(uint32(0x12345678)))
		}
	})

	It("should move lanes out with UMOV and in with INS", func() {
		m := newMachine([]uint32{
			encINSGenS(0, 1, 3),
			encUMOVW(2, 0, 3),
			encUMOVB(3, 0, 12),
			encUMOVX(4, 0, 1),
		})
		m.SetReg(1, 0xcafef00d)
		m.Vregs[0].SetU64(1, 0x1111111111111111)

		run(m, 4)

		Expect(m.Reg(2)).To(Equal(uint64(0xcafef00d)))
		Expect(m.Reg(3)).To(Equal(uint64(0x0d)))
		Expect(m.Reg(4)).To(Equal(uint64(0xcafef00d11111111)))
	})

	It("should shift by immediate", func() {
		m := newMachine([]uint32{
			encUSHR2D(1, 0, 8),
			encSHL2D(2, 0, 4),
		})
		m.Vregs[0].SetU64(0, 0x1200)
		m.Vregs[0].SetU64(1, 0x3400)

		run(m, 2)

		Expect(m.Vregs[1].U64(0)).To(Equal(uint64(0x12)))
		Expect(m.Vregs[1].U64(1)).To(Equal(uint64(0x34)))
		Expect(m.Vregs[2].U64(0)).To(Equal(uint64(0x12000)))
	})

	It("should widen with USHLL and narrow back with XTN", func() {
		m := newMachine([]uint32{
			encUSHLL8H(1, 0, 0),
			encXTN8B(2, 1),
		})
		for i := uint(0); i < 8; i++ {
			m.Vregs[0].SetU8(i, uint8(0x80+i))
		}

		run(m, 2)

		for i := uint(0); i < 8; i++ {
			Expect(m.Vregs[1].U16(i)).To(Equal(uint16(0x80 + i)))
			Expect(m.Vregs[2].U8(i)).To(Equal(uint8(0x80 + i)))
		}
		Expect(m.Vregs[2].U64(1)).To(Equal(uint64(0)))
	})

	It("should compute widening products with UMULL and SMULL", func() {
		m := newMachine([]uint32{
			encUMULL8H(2, 0, 1),
			encSMULL8H(3, 0, 1),
		})
		m.Vregs[0].SetU8(0, 0xff) // 255 unsigned, -1 signed
		m.Vregs[1].SetU8(0, 2)

		run(m, 2)

		Expect(m.Vregs[2].U16(0)).To(Equal(uint16(510)))
		Expect(int16(m.Vregs[3].U16(0))).To(Equal(int16(-2)))
	})

	Describe("permutes", func() {
		var interleaveA, interleaveB emu.Vec128

		BeforeEach(func() {
			for i := uint(0); i < 4; i++ {
				interleaveA.SetU32(i, uint32(0xa0+i))
				interleaveB.SetU32(i, uint32(0xb0+i))
			}
		})

		It("should interleave low and high halves with ZIP1/ZIP2", func() {
			m := newMachine([]uint32{
				encZIP1S(2, 0, 1),
				encZIP2S(3, 0, 1),
			})
			m.Vregs[0] = interleaveA
			m.Vregs[1] = interleaveB

			run(m, 2)

			Expect(m.Vregs[2].U32(0)).To(Equal(uint32(0xa0)))
			Expect(m.Vregs[2].U32(1)).To(Equal(uint32(0xb0)))
			Expect(m.Vregs[2].U32(2)).To(Equal(uint32(0xa1)))
			Expect(m.Vregs[2].U32(3)).To(Equal(uint32(0xb1)))
			Expect(m.Vregs[3].U32(0)).To(Equal(uint32(0xa2)))
			Expect(m.Vregs[3].U32(3)).To(Equal(uint32(0xb3)))
		})

		It("should recover the original vectors with UZP over ZIP results", func() {
			m := newMachine([]uint32{
				encZIP1S(2, 0, 1),
				encZIP2S(3, 0, 1),
				encUZP1S(4, 2, 3),
				encUZP2S(5, 2, 3),
			})
			m.Vregs[0] = interleaveA
			m.Vregs[1] = interleaveB

			run(m, 4)

			Expect(m.Vregs[4]).To(Equal(interleaveA))
			Expect(m.Vregs[5]).To(Equal(interleaveB))
		})
	})

	It("should extract a shifted window of bytes with EXT", func() {
		m := newMachine([]uint32{encEXTB(2, 0, 1, 3)})
		m.Vregs[0] = vecFromBytes(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15)
		m.Vregs[1] = vecFromBytes(16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31)

		run(m, 1)

		Expect(m.Vregs[2].U8(0)).To(Equal(uint8(3)))
		Expect(m.Vregs[2].U8(12)).To(Equal(uint8(15)))
		Expect(m.Vregs[2].U8(13)).To(Equal(uint8(16)))
		Expect(m.Vregs[2].U8(15)).To(Equal(uint8(18)))
	})

	It("should look up bytes with TBL, zeroing out-of-range indices", func() {
		m := newMachine([]uint32{encTBL1(2, 0, 1)})
		m.Vregs[0] = vecFromBytes(0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17,
			0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f)
		m.Vregs[1].SetU8(0, 5)
		m.Vregs[1].SetU8(1, 0)
		m.Vregs[1].SetU8(2, 200) // out of range

		run(m, 1)

		Expect(m.Vregs[2].U8(0)).To(Equal(uint8(0x15)))
		Expect(m.Vregs[2].U8(1)).To(Equal(uint8(0x10)))
		Expect(m.Vregs[2].U8(2)).To(Equal(uint8(0)))
	})

	Describe("modified immediate", func() {
		It("should replicate a byte for MOVI 16B", func() {
			m := newMachine([]uint32{encMOVI16B(0, 0x7e)})

			run(m, 1)

			Expect(m.Vregs[0].U64(0)).To(Equal(uint64(0x7e7e7e7e7e7e7e7e)))
			Expect(m.Vregs[0].U64(1)).To(Equal(uint64(0x7e7e7e7e7e7e7e7e)))
		})

		It("should place a shifted halfword immediate", func() {
			// movi v0.8h, #0x42, lsl #8 -> cmode 1010.
			word := uint32(0x4f00a400) | (0x42>>5)<<16 | (0x42&0x1f)<<5
			m := newMachine([]uint32{word})

			run(m, 1)

			Expect(m.Vregs[0].U16(0)).To(Equal(uint16(0x4200)))
			Expect(m.Vregs[0].U16(7)).To(Equal(uint16(0x4200)))
		})

		It("should fill below the byte for the shifting-ones form", func() {
			// movi v0.4s, #0x12, msl #8 -> cmode 1100.
			word := uint32(0x4f00c400) | (0x12>>5)<<16 | (0x12&0x1f)<<5
			m := newMachine([]uint32{word})

			run(m, 1)

			Expect(m.Vregs[0].U32(0)).To(Equal(uint32(0x12ff)))
		})

		It("should expand bits to bytes for MOVI 2D", func() {
			// movi v0.2d, #0xff00ff00ff00ff00 -> op=1, cmode 1110, imm8 0xaa.
			word := uint32(0x6f00e400) | (0xaa>>5)<<16 | (0xaa&0x1f)<<5
			m := newMachine([]uint32{word})

			run(m, 1)

			Expect(m.Vregs[0].U64(0)).To(Equal(uint64(0xff00ff00ff00ff00)))
			Expect(m.Vregs[0].U64(1)).To(Equal(uint64(0xff00ff00ff00ff00)))
		})

		It("should invert the pattern for MVNI", func() {
			// mvni v0.4s, #0x0f -> op=1, cmode 0000.
			word := uint32(0x6f000400) | (0x0f&0x1f)<<5
			m := newMachine([]uint32{word})

			run(m, 1)

			Expect(m.Vregs[0].U32(0)).To(Equal(uint32(0xfffffff0)))
		})
	})
})
