package emu

import "time"

// Values observed through the small virtualized system-register set.
const (
	// cntfrqHz is the advertised counter frequency: the virtual
	// counter ticks in nanoseconds.
	cntfrqHz = 1_000_000_000

	// midrValue is a fixed implementor/part identifier.
	midrValue = 0x410fd493

	// dczidValue advertises the DC ZVA block geometry.
	dczidValue = 4

	// dczvaBlockSize is the number of bytes DC ZVA zeroes.
	dczvaBlockSize = 128
)

var bootTime = time.Now()

// execSystem handles the 0xd5 family: MRS/MSR over the enumerated
// system-register set, hints, barriers, and DC ZVA. Anything else in
// the system space terminates.
func (m *Machine) execSystem(op uint32) {
	l := opBit(op, 21)
	op0 := opBits(op, 19, 2)
	op1 := opBits(op, 16, 3)
	crn := opBits(op, 12, 4)
	crm := opBits(op, 8, 4)
	op2 := opBits(op, 5, 3)
	rt := uint(opBits(op, 0, 5))

	// Hints (NOP/YIELD/WFE/WFI/SEV/BTI/XPACLRI/pointer-auth space)
	// retire with no effect.
	if l == 0 && op0 == 0 && op1 == 0b011 && crn == 0b0010 && rt == 31 {
		return
	}

	// Barriers: CLREX, DSB, DMB, ISB. A single in-order hart observes
	// its own accesses in program order, so these retire with no
	// effect as well.
	if l == 0 && op0 == 0 && op1 == 0b011 && crn == 0b0011 && rt == 31 {
		return
	}

	// DC ZVA: zero a naturally aligned block at x[t].
	if l == 0 && op0 == 0b01 && op1 == 0b011 && crn == 0b0111 && crm == 0b0100 && op2 == 0b001 {
		addr := m.Reg(rt) &^ (dczvaBlockSize - 1)
		for i := uint64(0); i < dczvaBlockSize; i += 8 {
			m.mem.Write64(addr+i, 0)
		}
		return
	}

	if op0 < 2 {
		m.unhandled(op)
	}

	if l == 1 {
		m.SetReg(rt, m.readSysreg(op, op0, op1, crn, crm, op2))
		return
	}
	m.writeSysreg(op, op0, op1, crn, crm, op2, m.Reg(rt))
}

func (m *Machine) readSysreg(op uint32, op0, op1, crn, crm, op2 uint64) uint64 {
	switch {
	case op0 == 3 && op1 == 3 && crn == 14 && crm == 0 && op2 == 2: // CNTVCT_EL0
		return uint64(time.Since(bootTime))
	case op0 == 3 && op1 == 3 && crn == 14 && crm == 0 && op2 == 0: // CNTFRQ_EL0
		return cntfrqHz
	case op0 == 3 && op1 == 3 && crn == 0 && crm == 0 && op2 == 7: // DCZID_EL0
		return dczidValue
	case op0 == 3 && op1 == 0 && crn == 0 && crm == 0 && op2 == 0: // MIDR_EL1
		return midrValue
	case op0 == 3 && op1 == 3 && crn == 13 && crm == 0 && op2 == 2: // TPIDR_EL0
		return m.TPIDR
	case op0 == 3 && op1 == 3 && crn == 4 && crm == 4 && op2 == 0: // FPCR
		return 0
	}
	m.unhandled(op)
	return 0
}

func (m *Machine) writeSysreg(op uint32, op0, op1, crn, crm, op2, val uint64) {
	switch {
	case op0 == 3 && op1 == 3 && crn == 13 && crm == 0 && op2 == 2: // TPIDR_EL0
		m.TPIDR = val
	case op0 == 3 && op1 == 3 && crn == 4 && crm == 4 && op2 == 0: // FPCR, discarded
	default:
		m.unhandled(op)
	}
}
