package emu

import "math/bits"

// execLogicalShiftedReg executes AND/BIC/ORR/ORN/EOR/EON/ANDS/BICS
// with a shifted register operand.
func (m *Machine) execLogicalShiftedReg(op uint32) {
	sf := opBit(op, 31)
	opc := opBits(op, 29, 2)
	shiftType := opBits(op, 22, 2)
	invert := opBit(op, 21) == 1
	rm := uint(opBits(op, 16, 5))
	amount := uint(opBits(op, 10, 6))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	var op1, op2, result uint64
	if sf == 1 {
		op1 = m.Reg(rn)
		op2 = shiftReg64(m.Reg(rm), shiftType, amount)
	} else {
		if amount > 31 {
			m.unhandled(op)
		}
		op1 = uint64(uint32(m.Reg(rn)))
		op2 = uint64(shiftReg32(uint32(m.Reg(rm)), shiftType, amount))
	}
	if invert {
		op2 = ^op2
		if sf == 0 {
			op2 = uint64(uint32(op2))
		}
	}

	switch opc {
	case 0b00, 0b11:
		result = op1 & op2
	case 0b01:
		result = op1 | op2
	case 0b10:
		result = op1 ^ op2
	}

	if opc == 0b11 { // ANDS/BICS
		if sf == 1 {
			m.setLogicFlags64(result)
		} else {
			m.setLogicFlags32(uint32(result))
		}
	}
	m.SetReg(rd, result)
}

// execAddSubReg executes ADD/ADDS/SUB/SUBS with a shifted register
// (bit 21 clear) or extended register (bit 21 set, shift field 00)
// operand.
func (m *Machine) execAddSubReg(op uint32) {
	sf := opBit(op, 31)
	sub := opBit(op, 30) == 1
	setFlags := opBit(op, 29) == 1
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	extended := opBit(op, 21) == 1
	if extended && opBits(op, 22, 2) != 0 {
		m.unhandled(op)
	}

	var op1, op2 uint64
	if extended {
		option := opBits(op, 13, 3)
		shift := uint(opBits(op, 10, 3))
		if shift > 4 {
			m.unhandled(op)
		}
		op1 = m.RegOrSP(rn)
		op2 = m.extendReg(rm, option, shift)
	} else {
		shiftType := opBits(op, 22, 2)
		amount := uint(opBits(op, 10, 6))
		if shiftType == 0b11 || (sf == 0 && amount > 31) {
			m.unhandled(op)
		}
		op1 = m.Reg(rn)
		if sf == 1 {
			op2 = shiftReg64(m.Reg(rm), shiftType, amount)
		} else {
			op2 = uint64(shiftReg32(uint32(m.Reg(rm)), shiftType, amount))
		}
	}

	var result uint64
	if sf == 1 {
		if sub {
			result = m.sub64(op1, op2, setFlags)
		} else {
			result = m.addWithCarry64(op1, op2, false, setFlags)
		}
	} else {
		if sub {
			result = uint64(m.sub32(uint32(op1), uint32(op2), setFlags))
		} else {
			result = uint64(m.addWithCarry32(uint32(op1), uint32(op2), false, setFlags))
		}
	}

	if extended && !setFlags {
		m.SetRegOrSP(rd, result)
	} else {
		m.SetReg(rd, result)
	}
}

// execDPRegMisc covers the 11010xxx register families that share top
// bytes 0x1a..0xfa: add/subtract with carry, conditional compare,
// conditional select, and the 1- and 2-source groups.
func (m *Machine) execDPRegMisc(op uint32) {
	switch opBits(op, 21, 3) {
	case 0b000:
		m.execAddSubCarry(op)
	case 0b010:
		m.execCondCompare(op)
	case 0b100:
		m.execCondSelect(op)
	case 0b110:
		if opBit(op, 30) == 0 {
			m.execDP2Src(op)
		} else {
			m.execDP1Src(op)
		}
	default:
		m.unhandled(op)
	}
}

// execAddSubCarry executes ADC/ADCS/SBC/SBCS.
func (m *Machine) execAddSubCarry(op uint32) {
	if opBits(op, 10, 6) != 0 {
		m.unhandled(op)
	}
	sf := opBit(op, 31)
	sub := opBit(op, 30) == 1
	setFlags := opBit(op, 29) == 1
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	var result uint64
	if sf == 1 {
		op2 := m.Reg(rm)
		if sub {
			op2 = ^op2
		}
		result = m.addWithCarry64(m.Reg(rn), op2, m.FlagC, setFlags)
	} else {
		op2 := uint32(m.Reg(rm))
		if sub {
			op2 = ^op2
		}
		result = uint64(m.addWithCarry32(uint32(m.Reg(rn)), op2, m.FlagC, setFlags))
	}
	m.SetReg(rd, result)
}

// execCondCompare executes CCMN/CCMP, register and immediate forms.
// When the condition holds, flags come from the compare; otherwise
// they load from the nzcv immediate.
func (m *Machine) execCondCompare(op uint32) {
	if opBit(op, 29) != 1 || opBit(op, 10) != 0 || opBit(op, 4) != 0 {
		m.unhandled(op)
	}
	sf := opBit(op, 31)
	negative := opBit(op, 30) == 1 // CCMP
	cond := opBits(op, 12, 4)
	rn := uint(opBits(op, 5, 5))

	if !m.condHolds(cond) {
		m.setFlagsFromNZCV(opBits(op, 0, 4))
		return
	}

	var operand uint64
	if opBit(op, 11) == 1 {
		operand = opBits(op, 16, 5) // imm5
	} else {
		operand = m.Reg(uint(opBits(op, 16, 5)))
	}

	if sf == 1 {
		if negative {
			m.sub64(m.Reg(rn), operand, true)
		} else {
			m.addWithCarry64(m.Reg(rn), operand, false, true)
		}
	} else {
		if negative {
			m.sub32(uint32(m.Reg(rn)), uint32(operand), true)
		} else {
			m.addWithCarry32(uint32(m.Reg(rn)), uint32(operand), false, true)
		}
	}
}

// execCondSelect executes CSEL/CSINC/CSINV/CSNEG.
func (m *Machine) execCondSelect(op uint32) {
	if opBit(op, 29) != 0 || opBit(op, 11) != 0 {
		m.unhandled(op)
	}
	sf := opBit(op, 31)
	inverted := opBit(op, 30) == 1 // CSINV/CSNEG
	increment := opBit(op, 10) == 1
	cond := opBits(op, 12, 4)
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	var result uint64
	if m.condHolds(cond) {
		result = m.Reg(rn)
	} else {
		result = m.Reg(rm)
		if inverted {
			result = ^result
		}
		if increment {
			result++
		}
	}
	if sf == 0 {
		result = uint64(uint32(result))
	}
	m.SetReg(rd, result)
}

// execDP2Src executes the two-source group: UDIV/SDIV and the
// variable shifts. Division by zero yields zero with no host fault.
func (m *Machine) execDP2Src(op uint32) {
	if opBit(op, 29) != 0 {
		m.unhandled(op)
	}
	sf := opBit(op, 31)
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	rnVal := m.Reg(rn)
	rmVal := m.Reg(rm)

	var result uint64
	switch opBits(op, 10, 6) {
	case 0b000010: // UDIV
		if sf == 1 {
			if rmVal != 0 {
				result = rnVal / rmVal
			}
		} else {
			if uint32(rmVal) != 0 {
				result = uint64(uint32(rnVal) / uint32(rmVal))
			}
		}
	case 0b000011: // SDIV
		if sf == 1 {
			if rmVal != 0 {
				result = uint64(int64(rnVal) / int64(rmVal))
			}
		} else {
			if uint32(rmVal) != 0 {
				result = uint64(uint32(int32(rnVal) / int32(rmVal)))
			}
		}
	case 0b001000: // LSLV
		if sf == 1 {
			result = rnVal << (rmVal & 63)
		} else {
			result = uint64(uint32(rnVal) << (rmVal & 31))
		}
	case 0b001001: // LSRV
		if sf == 1 {
			result = rnVal >> (rmVal & 63)
		} else {
			result = uint64(uint32(rnVal) >> (rmVal & 31))
		}
	case 0b001010: // ASRV
		if sf == 1 {
			result = uint64(int64(rnVal) >> (rmVal & 63))
		} else {
			result = uint64(uint32(int32(rnVal) >> (rmVal & 31)))
		}
	case 0b001011: // RORV
		if sf == 1 {
			result = bits.RotateLeft64(rnVal, -int(rmVal&63))
		} else {
			result = uint64(bits.RotateLeft32(uint32(rnVal), -int(rmVal&31)))
		}
	default:
		m.unhandled(op)
	}

	m.SetReg(rd, result)
}

// execDP1Src executes RBIT/REV16/REV32/REV/CLZ/CLS.
func (m *Machine) execDP1Src(op uint32) {
	if opBit(op, 29) != 0 || opBits(op, 16, 5) != 0 {
		m.unhandled(op)
	}
	sf := opBit(op, 31)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))
	val := m.Reg(rn)

	var result uint64
	switch opBits(op, 10, 6) {
	case 0b000000: // RBIT
		if sf == 1 {
			result = bits.Reverse64(val)
		} else {
			result = uint64(bits.Reverse32(uint32(val)))
		}
	case 0b000001: // REV16: byte swap within each halfword
		if sf == 1 {
			result = (val&0x00ff00ff00ff00ff)<<8 | (val>>8)&0x00ff00ff00ff00ff
		} else {
			v := uint32(val)
			result = uint64((v&0x00ff00ff)<<8 | (v>>8)&0x00ff00ff)
		}
	case 0b000010: // REV (32-bit) or REV32 (64-bit)
		if sf == 1 {
			r := bits.ReverseBytes64(val)
			result = r>>32 | r<<32
		} else {
			result = uint64(bits.ReverseBytes32(uint32(val)))
		}
	case 0b000011: // REV (64-bit)
		if sf != 1 {
			m.unhandled(op)
		}
		result = bits.ReverseBytes64(val)
	case 0b000100: // CLZ
		if sf == 1 {
			result = uint64(bits.LeadingZeros64(val))
		} else {
			result = uint64(bits.LeadingZeros32(uint32(val)))
		}
	case 0b000101: // CLS
		if sf == 1 {
			result = uint64(bits.LeadingZeros64(val^uint64(int64(val)>>1))) - 1
		} else {
			v := uint32(val)
			result = uint64(bits.LeadingZeros32(v^uint32(int32(v)>>1))) - 1
		}
	default:
		m.unhandled(op)
	}
	m.SetReg(rd, result)
}

// execDP3Src executes the multiply-add family: MADD/MSUB and the
// widening and high-half multiplies.
func (m *Machine) execDP3Src(op uint32) {
	sf := opBit(op, 31)
	op31 := opBits(op, 21, 3)
	sub := opBit(op, 15) == 1
	rm := uint(opBits(op, 16, 5))
	ra := uint(opBits(op, 10, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	if opBits(op, 29, 2) != 0 {
		m.unhandled(op)
	}

	var result uint64
	switch op31 {
	case 0b000: // MADD/MSUB
		if sf == 1 {
			prod := m.Reg(rn) * m.Reg(rm)
			if sub {
				result = m.Reg(ra) - prod
			} else {
				result = m.Reg(ra) + prod
			}
		} else {
			prod := uint32(m.Reg(rn)) * uint32(m.Reg(rm))
			if sub {
				result = uint64(uint32(m.Reg(ra)) - prod)
			} else {
				result = uint64(uint32(m.Reg(ra)) + prod)
			}
		}
	case 0b001: // SMADDL/SMSUBL
		if sf != 1 {
			m.unhandled(op)
		}
		prod := uint64(int64(int32(m.Reg(rn))) * int64(int32(m.Reg(rm))))
		if sub {
			result = m.Reg(ra) - prod
		} else {
			result = m.Reg(ra) + prod
		}
	case 0b010: // SMULH
		if sf != 1 || sub {
			m.unhandled(op)
		}
		a, b := m.Reg(rn), m.Reg(rm)
		hi, _ := bits.Mul64(a, b)
		if int64(a) < 0 {
			hi -= b
		}
		if int64(b) < 0 {
			hi -= a
		}
		result = hi
	case 0b101: // UMADDL/UMSUBL
		if sf != 1 {
			m.unhandled(op)
		}
		prod := uint64(uint32(m.Reg(rn))) * uint64(uint32(m.Reg(rm)))
		if sub {
			result = m.Reg(ra) - prod
		} else {
			result = m.Reg(ra) + prod
		}
	case 0b110: // UMULH
		if sf != 1 || sub {
			m.unhandled(op)
		}
		hi, _ := bits.Mul64(m.Reg(rn), m.Reg(rm))
		result = hi
	default:
		m.unhandled(op)
	}
	m.SetReg(rd, result)
}
