package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64emu/emu"
)

func flags(m *emu.Machine) [4]bool {
	return [4]bool{m.FlagN, m.FlagZ, m.FlagC, m.FlagV}
}

var _ = Describe("Integer flags", func() {
	It("should set (N,Z,C,V)=(0,1,1,0) for a 32-bit unsigned wrap to zero", func() {
		m := newMachine([]uint32{encADDReg(false, true, 2, 0, 1)})
		m.SetReg(0, 0xffffffff)
		m.SetReg(1, 1)

		run(m, 1)

		Expect(m.Reg(2)).To(Equal(uint64(0)))
		Expect(flags(m)).To(Equal([4]bool{false, true, true, false}))
	})

	It("should set (N,Z,C,V)=(1,0,0,1) for 64-bit signed overflow", func() {
		m := newMachine([]uint32{encADDReg(true, true, 2, 0, 1)})
		m.SetReg(0, 0x7fffffffffffffff)
		m.SetReg(1, 1)

		run(m, 1)

		Expect(m.Reg(2)).To(Equal(uint64(0x8000000000000000)))
		Expect(flags(m)).To(Equal([4]bool{true, false, false, true}))
	})

	It("should set (N,Z,C,V)=(0,0,1,1) for MinInt32 minus one", func() {
		m := newMachine([]uint32{encSUBReg(false, true, 2, 0, 1)})
		m.SetReg(0, 0x80000000)
		m.SetReg(1, 1)

		run(m, 1)

		Expect(m.Reg(2)).To(Equal(uint64(0x7fffffff)))
		Expect(flags(m)).To(Equal([4]bool{false, false, true, true}))
	})

	It("should set Z=1, C=1 when subtracting equal operands", func() {
		m := newMachine([]uint32{encSUBReg(true, true, 2, 0, 1)})
		m.SetReg(0, 0x1234)
		m.SetReg(1, 0x1234)

		run(m, 1)

		Expect(flags(m)).To(Equal([4]bool{false, true, true, false}))
	})

	It("should leave C clear when a borrow occurs", func() {
		m := newMachine([]uint32{encSUBImm(true, true, 2, 0, 1)})
		m.SetReg(0, 0)

		run(m, 1)

		Expect(m.Reg(2)).To(Equal(^uint64(0)))
		Expect(flags(m)).To(Equal([4]bool{true, false, false, false}))
	})

	It("should still set flags when the destination is the zero register", func() {
		m := newMachine([]uint32{encSUBReg(true, true, 31, 0, 1)}) // cmp x0, x1
		m.SetReg(0, 7)
		m.SetReg(1, 7)

		run(m, 1)

		Expect(m.FlagZ).To(BeTrue())
		Expect(m.Regs[31]).To(Equal(uint64(testTop)))
	})
})

var _ = Describe("Move wide", func() {
	It("should assemble a 64-bit constant from MOVZ and MOVK", func() {
		m := newMachine([]uint32{
			encMOVZ(true, 0, 0x1234, 3),
			encMOVK(true, 0, 0x5678, 2),
			encMOVK(true, 0, 0x9abc, 1),
			encMOVK(true, 0, 0xdef0, 0),
		})

		run(m, 4)

		Expect(m.Reg(0)).To(Equal(uint64(0x123456789abcdef0)))
	})

	It("should invert the shifted immediate for MOVN", func() {
		m := newMachine([]uint32{encMOVN(false, 0, 0, 0)})

		run(m, 1)

		Expect(m.Reg(0)).To(Equal(uint64(0xffffffff)))
	})
})

var _ = Describe("Logical immediate", func() {
	It("should decode a replicated byte pattern", func() {
		// and x0, x1, #0x0101010101010101 is N=0, immr=0, imms=0b110000.
		m := newMachine([]uint32{encANDImm(true, 0, 1, 0, 0, 0b110000)})
		m.SetReg(1, 0xffffffffffffffff)

		run(m, 1)

		Expect(m.Reg(0)).To(Equal(uint64(0x0101010101010101)))
	})

	It("should decode a rotated run of ones", func() {
		// and x0, x1, #0xff00 is N=1, immr=56, imms=7.
		m := newMachine([]uint32{encANDImm(true, 0, 1, 1, 56, 7)})
		m.SetReg(1, 0xffffffffffffffff)

		run(m, 1)

		Expect(m.Reg(0)).To(Equal(uint64(0xff00)))
	})
})

var _ = Describe("Bitfield operations", func() {
	It("should perform LSR via UBFM", func() {
		m := newMachine([]uint32{encUBFM(true, 0, 1, 4, 63)})
		m.SetReg(1, 0xff00)

		run(m, 1)

		Expect(m.Reg(0)).To(Equal(uint64(0x0ff0)))
	})

	It("should perform LSL via UBFM", func() {
		// lsl x0, x1, #8 is ubfm x0, x1, #56, #55
		m := newMachine([]uint32{encUBFM(true, 0, 1, 56, 55)})
		m.SetReg(1, 0xff)

		run(m, 1)

		Expect(m.Reg(0)).To(Equal(uint64(0xff00)))
	})

	It("should sign-extend a byte via SBFM", func() {
		m := newMachine([]uint32{encSBFM(true, 0, 1, 0, 7)})
		m.SetReg(1, 0x80)

		run(m, 1)

		Expect(m.Reg(0)).To(Equal(uint64(0xffffffffffffff80)))
	})

	It("should preserve untouched destination bits in BFM", func() {
		// bfi x0, x1, #8, #8 is bfm x0, x1, #56, #7
		m := newMachine([]uint32{encBFM(true, 0, 1, 56, 7)})
		m.SetReg(0, 0xffff0000ffffffff)
		m.SetReg(1, 0xab)

		run(m, 1)

		Expect(m.Reg(0)).To(Equal(uint64(0xffff0000ffffabff)))
	})

	It("should extract across a register pair with EXTR", func() {
		m := newMachine([]uint32{encEXTR(true, 0, 1, 2, 8)})
		m.SetReg(1, 0x1122334455667788) // low part
		m.SetReg(2, 0xaabbccddeeff0011) // high part

		run(m, 1)

		Expect(m.Reg(0)).To(Equal(uint64(0x1111223344556677)))
	})
})

var _ = Describe("Conditional operations", func() {
	It("should select per condition with CSEL", func() {
		m := newMachine([]uint32{
			encSUBReg(true, true, 31, 0, 0), // cmp x0, x0 -> Z
			encCSEL(true, 2, 3, 4, 0),       // csel x2, x3, x4, eq
			encCSEL(true, 5, 3, 4, 1),       // csel x5, x3, x4, ne
		})
		m.SetReg(3, 111)
		m.SetReg(4, 222)

		run(m, 3)

		Expect(m.Reg(2)).To(Equal(uint64(111)))
		Expect(m.Reg(5)).To(Equal(uint64(222)))
	})

	It("should increment, invert, and negate the false operand", func() {
		m := newMachine([]uint32{
			encSUBImm(true, true, 31, 0, 1), // cmp x0, #1 -> not equal (x0=0)
			encCSINC(true, 2, 3, 4, 0),
			encCSINV(true, 5, 3, 4, 0),
			encCSNEG(true, 6, 3, 4, 0),
		})
		m.SetReg(3, 111)
		m.SetReg(4, 7)

		run(m, 4)

		Expect(m.Reg(2)).To(Equal(uint64(8)))
		Expect(m.Reg(5)).To(Equal(^uint64(7)))
		var zero uint64
		Expect(m.Reg(6)).To(Equal(zero - 7))
	})

	It("should compare when the condition holds and load nzcv when it does not", func() {
		m := newMachine([]uint32{
			encSUBReg(true, true, 31, 0, 0), // Z=1
			encCCMPImm(true, 1, 5, 0b0001, 0), // ccmp x1, #5, #0b0001, eq
		})
		m.SetReg(1, 5)

		run(m, 2)
		Expect(m.FlagZ).To(BeTrue()) // 5-5 == 0

		m2 := newMachine([]uint32{
			encSUBImm(true, true, 31, 0, 1), // Z=0
			encCCMPImm(true, 1, 5, 0b0001, 0),
		})
		run(m2, 2)
		Expect(flags(m2)).To(Equal([4]bool{false, false, false, true}))
	})
})

var _ = Describe("Multiply and divide", func() {
	It("should fold multiply-add and multiply-subtract", func() {
		m := newMachine([]uint32{
			encMADD(true, 2, 0, 1, 3),
			encMSUB(true, 4, 0, 1, 3),
		})
		m.SetReg(0, 6)
		m.SetReg(1, 7)
		m.SetReg(3, 100)

		run(m, 2)

		Expect(m.Reg(2)).To(Equal(uint64(142)))
		Expect(m.Reg(4)).To(Equal(uint64(58)))
	})

	It("should yield zero for division by zero", func() {
		m := newMachine([]uint32{
			encUDIV(true, 2, 0, 1),
			encSDIV(true, 3, 0, 1),
		})
		m.SetReg(0, 12345)
		m.SetReg(1, 0)

		run(m, 2)

		Expect(m.Reg(2)).To(Equal(uint64(0)))
		Expect(m.Reg(3)).To(Equal(uint64(0)))
	})

	It("should truncate signed division toward zero", func() {
		m := newMachine([]uint32{encSDIV(true, 2, 0, 1)})
		var zero uint64
		m.SetReg(0, zero-7)
		m.SetReg(1, 2)

		run(m, 1)

		Expect(int64(m.Reg(2))).To(Equal(int64(-3)))
	})
})

var _ = Describe("Bit manipulation", func() {
	It("should count leading zeros", func() {
		m := newMachine([]uint32{encCLZ(true, 2, 0), encCLZ(false, 3, 1)})
		m.SetReg(0, 1)
		m.SetReg(1, 0)

		run(m, 2)

		Expect(m.Reg(2)).To(Equal(uint64(63)))
		Expect(m.Reg(3)).To(Equal(uint64(32)))
	})

	It("should be an involution for RBIT and REV", func() {
		m := newMachine([]uint32{
			encRBIT(true, 1, 0),
			encRBIT(true, 2, 1),
			encREV64(3, 0),
			encREV64(4, 3),
		})
		m.SetReg(0, 0xdeadbeefcafe0123)

		run(m, 4)

		Expect(m.Reg(2)).To(Equal(uint64(0xdeadbeefcafe0123)))
		Expect(m.Reg(4)).To(Equal(uint64(0xdeadbeefcafe0123)))
		Expect(m.Reg(3)).To(Equal(uint64(0x2301fecaefbeadde)))
	})

	It("should shift by the register amount modulo the width", func() {
		m := newMachine([]uint32{encLSLV(true, 2, 0, 1)})
		m.SetReg(0, 1)
		m.SetReg(1, 65) // mod 64 -> 1

		run(m, 1)

		Expect(m.Reg(2)).To(Equal(uint64(2)))
	})
})
