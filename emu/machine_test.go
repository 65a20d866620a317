package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64emu/emu"
)

var _ = Describe("Machine", func() {
	It("should construct with zeroed registers, SP at the stack top, and PC at the entry", func() {
		m := newMachine([]uint32{encNOP()})

		for r := uint(0); r < 31; r++ {
			Expect(m.Reg(r)).To(Equal(uint64(0)))
		}
		Expect(m.Regs[31]).To(Equal(uint64(testTop)))
		Expect(m.PC).To(Equal(uint64(testEntry)))
		Expect(m.Cycles).To(Equal(uint64(0)))
	})

	It("should retire exactly one instruction per cycle and advance the PC by 4", func() {
		m := newMachine([]uint32{encNOP(), encNOP(), encNOP()})

		executed := m.Run(3)

		Expect(executed).To(Equal(uint64(3)))
		Expect(m.Cycles).To(Equal(uint64(3)))
		Expect(m.PC).To(Equal(uint64(testEntry + 12)))
	})

	It("should stop at the cycle budget and resume cleanly", func() {
		m := newMachine([]uint32{encNOP(), encNOP(), encNOP(), encNOP()})

		Expect(m.Run(1)).To(Equal(uint64(1)))
		Expect(m.Run(2)).To(Equal(uint64(2)))
		Expect(m.Cycles).To(Equal(uint64(3)))
	})

	It("should honor the end-emulation bit and clear it on exit", func() {
		m := newMachine([]uint32{encNOP(), encNOP()})
		m.EndEmulation()

		Expect(m.Run(100)).To(Equal(uint64(0)))
		// The bit was consumed: a second run proceeds normally.
		Expect(m.Run(2)).To(Equal(uint64(2)))
	})

	It("should report the previous trace setting from SetTrace", func() {
		m := newMachine([]uint32{encNOP()})

		Expect(m.SetTrace(true)).To(BeFalse())
		Expect(m.SetTrace(false)).To(BeTrue())
	})

	It("should discard writes to the zero register without touching SP", func() {
		m := newMachine([]uint32{
			encMOVZ(true, 0, 123, 0),
			encADDReg(true, false, 31, 0, 0), // add xzr, x0, x0
		})
		sp := m.Regs[31]

		run(m, 2)

		Expect(m.Regs[31]).To(Equal(sp))
		Expect(m.Reg(31)).To(Equal(uint64(0)))
	})

	It("should invoke hard termination on an unknown encoding", func() {
		m := newMachine([]uint32{0xffffffff})

		Expect(func() { run(m, 1) }).To(PanicWith(ContainSubstring("hard termination")))
	})

	It("should invoke hard termination on UDF", func() {
		m := newMachine([]uint32{0x00000000})

		Expect(func() { run(m, 1) }).To(PanicWith(ContainSubstring("udf")))
	})

	Describe("scenario: add and return", func() {
		It("should compute 5+7 and branch to the link register", func() {
			m := newMachine([]uint32{
				encMOVZ(true, 0, 5, 0),
				encMOVZ(true, 1, 7, 0),
				encADDReg(true, false, 2, 0, 1),
				encRET(),
			})
			m.SetReg(30, testEntry+0x100)

			run(m, 4)

			Expect(m.Reg(2)).To(Equal(uint64(12)))
			Expect(m.PC).To(Equal(uint64(testEntry + 0x100)))
		})
	})
})

var _ = Describe("Supervisor call", func() {
	It("should pass control to the hook and resume at PC+4", func() {
		handler := &recordingSupervisor{}
		m := newMachine([]uint32{
			encMOVZ(true, 8, 42, 0),
			encSVC(),
			encNOP(),
		}, emu.WithSupervisor(handler))

		run(m, 3)

		Expect(handler.nums).To(Equal([]uint64{42}))
		Expect(m.PC).To(Equal(uint64(testEntry + 12)))
	})

	It("should let the hook end emulation at the next boundary", func() {
		handler := &exitingSupervisor{}
		m := newMachine([]uint32{
			encSVC(),
			encNOP(),
			encNOP(),
		}, emu.WithSupervisor(handler))

		Expect(m.Run(100)).To(Equal(uint64(1)))
	})
})

type recordingSupervisor struct {
	nums []uint64
}

func (s *recordingSupervisor) InvokeSVC(m *emu.Machine) {
	s.nums = append(s.nums, m.Reg(8))
	m.SetReg(0, 0)
}

type exitingSupervisor struct{}

func (s *exitingSupervisor) InvokeSVC(m *emu.Machine) {
	m.EndEmulation()
}
