package emu

import "github.com/sarchlab/a64emu/insts"

// execBranchImm executes B and BL. BL saves the return address in x30
// before branching.
func (m *Machine) execBranchImm(op uint32) {
	offset := insts.SignExtend(opBits(op, 0, 26), 25) * 4
	if opBit(op, 31) == 1 {
		m.SetReg(30, m.PC+4)
	}
	m.PC = uint64(int64(m.PC) + offset)
}

// execCompareBranch executes CBZ/CBNZ. The 32-bit form compares only
// the low word of the register.
func (m *Machine) execCompareBranch(op uint32) {
	sf := opBit(op, 31)
	branchIfNonzero := opBit(op, 24) == 1
	offset := insts.SignExtend(opBits(op, 5, 19), 18) * 4
	rt := uint(opBits(op, 0, 5))

	val := m.Reg(rt)
	if sf == 0 {
		val = uint64(uint32(val))
	}

	if (val != 0) == branchIfNonzero {
		m.PC = uint64(int64(m.PC) + offset)
	} else {
		m.PC += 4
	}
}

// execTestBranch executes TBZ/TBNZ. Bit b5 of the encoding supplies
// the high bit of the tested bit number, so indices 32..63 are only
// reachable through the 64-bit form.
func (m *Machine) execTestBranch(op uint32) {
	bitNum := opBit(op, 31)<<5 | opBits(op, 19, 5)
	branchIfNonzero := opBit(op, 24) == 1
	offset := insts.SignExtend(opBits(op, 5, 14), 13) * 4
	rt := uint(opBits(op, 0, 5))

	bit := m.Reg(rt) >> bitNum & 1
	if (bit != 0) == branchIfNonzero {
		m.PC = uint64(int64(m.PC) + offset)
	} else {
		m.PC += 4
	}
}

// execCondBranch executes B.cond.
func (m *Machine) execCondBranch(op uint32) {
	if opBit(op, 24) != 0 || opBit(op, 4) != 0 {
		m.unhandled(op)
	}
	if m.condHolds(opBits(op, 0, 4)) {
		m.PC = uint64(int64(m.PC) + insts.SignExtend(opBits(op, 5, 19), 18)*4)
	} else {
		m.PC += 4
	}
}

// execException handles the exception-generation family. SVC invokes
// the supervisor hook with the core quiesced; execution resumes at
// PC+4. BRK is a guest trap and terminates.
func (m *Machine) execException(op uint32) {
	opc := opBits(op, 21, 3)
	op2 := opBits(op, 2, 3)
	ll := opBits(op, 0, 2)

	switch {
	case opc == 0b000 && op2 == 0b000 && ll == 0b01: // SVC
		if m.supervisor == nil {
			m.fatal("svc with no supervisor installed:", m.Reg(8))
		}
		m.supervisor.InvokeSVC(m)
	case opc == 0b001 && op2 == 0b000 && ll == 0b00: // BRK
		m.fatal("brk instruction:", opBits(op, 5, 16))
	default:
		m.unhandled(op)
	}
}

// execBranchReg executes BR, BLR, and RET.
func (m *Machine) execBranchReg(op uint32) {
	if opBits(op, 16, 5) != 0b11111 || opBits(op, 10, 6) != 0 || opBits(op, 0, 5) != 0 {
		m.unhandled(op)
	}
	rn := uint(opBits(op, 5, 5))

	switch opBits(op, 21, 4) {
	case 0b0000: // BR
		m.PC = m.Reg(rn)
	case 0b0001: // BLR
		target := m.Reg(rn)
		m.SetReg(30, m.PC+4)
		m.PC = target
	case 0b0010: // RET
		m.PC = m.Reg(rn)
	default:
		m.unhandled(op)
	}
}
