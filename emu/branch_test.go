package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Branches", func() {
	It("should branch forward and backward with B", func() {
		m := newMachine([]uint32{encB(2)})
		run(m, 1)
		Expect(m.PC).To(Equal(uint64(testEntry + 8)))

		m2 := newMachine([]uint32{encNOP(), encB(-1)})
		run(m2, 2)
		Expect(m2.PC).To(Equal(uint64(testEntry)))
	})

	It("should save the return address in x30 for BL", func() {
		m := newMachine([]uint32{encBL(4)})
		run(m, 1)

		Expect(m.Reg(30)).To(Equal(uint64(testEntry + 4)))
		Expect(m.PC).To(Equal(uint64(testEntry + 16)))
	})

	It("should branch through a register with BR and BLR", func() {
		m := newMachine([]uint32{encBR(0)})
		m.SetReg(0, testEntry+0x40)
		run(m, 1)
		Expect(m.PC).To(Equal(uint64(testEntry + 0x40)))

		m2 := newMachine([]uint32{encBLR(0)})
		m2.SetReg(0, testEntry+0x40)
		run(m2, 1)
		Expect(m2.PC).To(Equal(uint64(testEntry + 0x40)))
		Expect(m2.Reg(30)).To(Equal(uint64(testEntry + 4)))
	})

	It("should take B.cond only when the condition holds", func() {
		m := newMachine([]uint32{
			encSUBReg(true, true, 31, 0, 0), // Z=1
			encBCond(0, 4),                  // b.eq +16
		})
		run(m, 2)
		Expect(m.PC).To(Equal(uint64(testEntry + 4 + 16)))

		m2 := newMachine([]uint32{
			encSUBReg(true, true, 31, 0, 0),
			encBCond(1, 4), // b.ne +16, not taken
		})
		run(m2, 2)
		Expect(m2.PC).To(Equal(uint64(testEntry + 8)))
	})

	Describe("CBZ/CBNZ", func() {
		It("should compare the full register in the 64-bit form", func() {
			m := newMachine([]uint32{encCBZ(true, 0, 4)})
			m.SetReg(0, 1<<40)
			run(m, 1)
			Expect(m.PC).To(Equal(uint64(testEntry + 4)))
		})

		It("should ignore the upper 32 bits in the 32-bit form", func() {
			m := newMachine([]uint32{encCBZ(false, 0, 4)})
			m.SetReg(0, 0xffffffff00000000)
			run(m, 1)
			Expect(m.PC).To(Equal(uint64(testEntry + 16)))
		})

		It("should take CBNZ on a nonzero register", func() {
			m := newMachine([]uint32{encCBNZ(true, 0, 4)})
			m.SetReg(0, 5)
			run(m, 1)
			Expect(m.PC).To(Equal(uint64(testEntry + 16)))
		})
	})

	Describe("TBZ/TBNZ", func() {
		It("should test bits above 31 through the b5 field", func() {
			m := newMachine([]uint32{encTBNZ(0, 40, 4)})
			m.SetReg(0, 1<<40)
			run(m, 1)
			Expect(m.PC).To(Equal(uint64(testEntry + 16)))
		})

		It("should fall through when the tested bit mismatches", func() {
			m := newMachine([]uint32{encTBZ(0, 3, 4)})
			m.SetReg(0, 1<<3)
			run(m, 1)
			Expect(m.PC).To(Equal(uint64(testEntry + 4)))
		})
	})

	It("should compute a PC-relative address with ADR", func() {
		m := newMachine([]uint32{encADR(0, 0x100), encADR(1, -8)})
		run(m, 2)

		Expect(m.Reg(0)).To(Equal(uint64(testEntry + 0x100)))
		Expect(m.Reg(1)).To(Equal(uint64(testEntry + 4 - 8)))
	})
})
