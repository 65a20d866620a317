package emu

import (
	"github.com/sarchlab/a64emu/insts"
)

// Shift types for shifted-register operands.
const (
	shiftLSL = 0b00
	shiftLSR = 0b01
	shiftASR = 0b10
	shiftROR = 0b11
)

// addWithCarry64 computes x + y + carry at 64 bits and optionally sets
// NZCV. C is the carry out of bit 63; V is signed overflow. Subtract
// is addWithCarry64(x, ^y, true), which leaves C set when no borrow
// occurred.
func (m *Machine) addWithCarry64(x, y uint64, carry, setFlags bool) uint64 {
	result := x + y
	carryOut := result < x
	if carry {
		result++
		carryOut = carryOut || result == 0
	}
	if setFlags {
		m.FlagN = result>>63 == 1
		m.FlagZ = result == 0
		m.FlagC = carryOut
		m.FlagV = (x>>63 == y>>63) && (x>>63 != result>>63)
	}
	return result
}

// addWithCarry32 is the 32-bit form of addWithCarry64.
func (m *Machine) addWithCarry32(x, y uint32, carry, setFlags bool) uint32 {
	result := x + y
	carryOut := result < x
	if carry {
		result++
		carryOut = carryOut || result == 0
	}
	if setFlags {
		m.FlagN = result>>31 == 1
		m.FlagZ = result == 0
		m.FlagC = carryOut
		m.FlagV = (x>>31 == y>>31) && (x>>31 != result>>31)
	}
	return result
}

// sub64 computes x - y and optionally sets NZCV with AArch64 subtract
// semantics (C set on no borrow).
func (m *Machine) sub64(x, y uint64, setFlags bool) uint64 {
	return m.addWithCarry64(x, ^y, true, setFlags)
}

// sub32 is the 32-bit form of sub64.
func (m *Machine) sub32(x, y uint32, setFlags bool) uint32 {
	return m.addWithCarry32(x, ^y, true, setFlags)
}

// setLogicFlags64 sets NZ from a logical result and clears C and V.
func (m *Machine) setLogicFlags64(result uint64) {
	m.FlagN = result>>63 == 1
	m.FlagZ = result == 0
	m.FlagC = false
	m.FlagV = false
}

// setLogicFlags32 is the 32-bit form of setLogicFlags64.
func (m *Machine) setLogicFlags32(result uint32) {
	m.FlagN = result>>31 == 1
	m.FlagZ = result == 0
	m.FlagC = false
	m.FlagV = false
}

// setFlagsFromNZCV loads the flags from a 4-bit nzcv immediate.
func (m *Machine) setFlagsFromNZCV(nzcv uint64) {
	m.FlagN = nzcv>>3&1 == 1
	m.FlagZ = nzcv>>2&1 == 1
	m.FlagC = nzcv>>1&1 == 1
	m.FlagV = nzcv&1 == 1
}

// condHolds evaluates a condition code against the current flags.
func (m *Machine) condHolds(cond uint64) bool {
	return insts.Cond(cond).Holds(m.FlagN, m.FlagZ, m.FlagC, m.FlagV)
}

// shiftReg64 applies a shifted-register operand shift at 64 bits.
func shiftReg64(val uint64, shiftType uint64, amount uint) uint64 {
	amount &= 63
	if amount == 0 {
		return val
	}
	switch shiftType {
	case shiftLSL:
		return val << amount
	case shiftLSR:
		return val >> amount
	case shiftASR:
		return uint64(int64(val) >> amount)
	default:
		return val>>amount | val<<(64-amount)
	}
}

// shiftReg32 applies a shifted-register operand shift at 32 bits.
func shiftReg32(val uint32, shiftType uint64, amount uint) uint32 {
	amount &= 31
	if amount == 0 {
		return val
	}
	switch shiftType {
	case shiftLSL:
		return val << amount
	case shiftLSR:
		return val >> amount
	case shiftASR:
		return uint32(int32(val) >> amount)
	default:
		return val>>amount | val<<(32-amount)
	}
}

// extendReg applies an extended-register operand: extend the register
// value per the 3-bit option, then shift left 0-4.
func (m *Machine) extendReg(r uint, option uint64, shift uint) uint64 {
	val := m.Reg(r)
	switch option {
	case 0b000: // UXTB
		val = uint64(uint8(val))
	case 0b001: // UXTH
		val = uint64(uint16(val))
	case 0b010: // UXTW
		val = uint64(uint32(val))
	case 0b011: // UXTX
	case 0b100: // SXTB
		val = uint64(int64(int8(val)))
	case 0b101: // SXTH
		val = uint64(int64(int16(val)))
	case 0b110: // SXTW
		val = uint64(int64(int32(val)))
	case 0b111: // SXTX
	}
	return val << shift
}
