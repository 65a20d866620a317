package emu

import "github.com/sarchlab/a64emu/insts"

// execPCRel executes ADR and ADRP.
func (m *Machine) execPCRel(op uint32) {
	rd := uint(opBits(op, 0, 5))
	imm := opBits(op, 5, 19)<<2 | opBits(op, 29, 2)

	if opBit(op, 31) == 0 {
		// ADR: Rd = PC + simm21
		m.SetReg(rd, m.PC+uint64(insts.SignExtend(imm, 20)))
		return
	}
	// ADRP: Rd = (PC & ~0xfff) + simm21 << 12
	page := m.PC &^ 0xfff
	m.SetReg(rd, page+uint64(insts.SignExtend(imm, 20)<<12))
}

// execAddSubImm executes ADD/ADDS/SUB/SUBS with a 12-bit immediate,
// optionally shifted left 12. Rn is SP context; Rd is SP context
// unless flags are set.
func (m *Machine) execAddSubImm(op uint32) {
	if opBit(op, 23) != 0 {
		m.unhandled(op) // tagged-memory forms
	}
	sf := opBit(op, 31)
	sub := opBit(op, 30) == 1
	setFlags := opBit(op, 29) == 1
	imm := opBits(op, 10, 12)
	if opBit(op, 22) == 1 {
		imm <<= 12
	}
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	var result uint64
	if sf == 1 {
		op1 := m.RegOrSP(rn)
		if sub {
			result = m.sub64(op1, imm, setFlags)
		} else {
			result = m.addWithCarry64(op1, imm, false, setFlags)
		}
	} else {
		op1 := uint32(m.RegOrSP(rn))
		if sub {
			result = uint64(m.sub32(op1, uint32(imm), setFlags))
		} else {
			result = uint64(m.addWithCarry32(op1, uint32(imm), false, setFlags))
		}
	}

	if setFlags {
		m.SetReg(rd, result)
	} else {
		m.SetRegOrSP(rd, result)
	}
}

// execLogicalImm executes AND/ORR/EOR/ANDS with a bitmask immediate.
func (m *Machine) execLogicalImm(op uint32) {
	sf := opBit(op, 31)
	opc := opBits(op, 29, 2)
	n := opBit(op, 22)
	immr := opBits(op, 16, 6)
	imms := opBits(op, 10, 6)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	width := uint(64)
	if sf == 0 {
		if n == 1 {
			m.unhandled(op)
		}
		width = 32
	}
	imm, ok := insts.DecodeBitMasks(n, immr, imms, width)
	if !ok {
		m.unhandled(op)
	}

	val := m.Reg(rn)
	if sf == 0 {
		val = uint64(uint32(val))
	}

	var result uint64
	switch opc {
	case 0b00, 0b11:
		result = val & imm
	case 0b01:
		result = val | imm
	case 0b10:
		result = val ^ imm
	}

	if opc == 0b11 { // ANDS: Rd is the zero register context
		if sf == 1 {
			m.setLogicFlags64(result)
		} else {
			m.setLogicFlags32(uint32(result))
		}
		m.SetReg(rd, result)
		return
	}
	m.SetRegOrSP(rd, result)
}

// execMoveWide executes MOVN, MOVZ, and MOVK.
func (m *Machine) execMoveWide(op uint32) {
	sf := opBit(op, 31)
	opc := opBits(op, 29, 2)
	hw := opBits(op, 21, 2)
	imm16 := opBits(op, 5, 16)
	rd := uint(opBits(op, 0, 5))

	if opc == 0b01 || (sf == 0 && hw > 1) {
		m.unhandled(op)
	}
	shift := uint(hw * 16)

	var result uint64
	switch opc {
	case 0b00: // MOVN
		result = ^(imm16 << shift)
	case 0b10: // MOVZ
		result = imm16 << shift
	case 0b11: // MOVK
		result = m.Reg(rd)&^(0xffff<<shift) | imm16<<shift
	}
	if sf == 0 {
		result = uint64(uint32(result))
	}
	m.SetReg(rd, result)
}

// execBitfield executes SBFM, BFM, and UBFM. When imms >= immr the
// instruction extracts bits [imms:immr] of the source down to bit 0;
// otherwise it inserts the low imms+1 bits at position datasize-immr.
func (m *Machine) execBitfield(op uint32) {
	sf := opBit(op, 31)
	opc := opBits(op, 29, 2)
	n := opBit(op, 22)
	immr := uint(opBits(op, 16, 6))
	imms := uint(opBits(op, 10, 6))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	if opc == 0b11 || n != sf {
		m.unhandled(op)
	}
	datasize := uint(64)
	if sf == 0 {
		datasize = 32
		if immr > 31 || imms > 31 {
			m.unhandled(op)
		}
	}

	src := m.Reg(rn)
	if sf == 0 {
		src = uint64(uint32(src))
	}

	var pos, width uint
	var field uint64
	if imms >= immr {
		width = imms - immr + 1
		pos = 0
		field = src >> immr & (1<<width - 1)
	} else {
		width = imms + 1
		pos = datasize - immr
		field = src & (1<<width - 1)
	}

	var result uint64
	switch opc {
	case 0b00: // SBFM: sign-extend from the highest copied bit
		if field>>(width-1)&1 == 1 {
			field |= ^uint64(1<<width - 1)
		}
		result = field << pos
	case 0b01: // BFM: preserve untouched destination bits
		dst := m.Reg(rd)
		mask := uint64(1<<width-1) << pos
		result = dst&^mask | field<<pos
	case 0b10: // UBFM
		result = field << pos
	}
	if sf == 0 {
		result = uint64(uint32(result))
	}
	m.SetReg(rd, result)
}

// execExtract executes EXTR: extract datasize bits at position lsb
// from the concatenation Rm:Rn.
func (m *Machine) execExtract(op uint32) {
	sf := opBit(op, 31)
	rm := uint(opBits(op, 16, 5))
	lsb := uint(opBits(op, 10, 6))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	if opBits(op, 29, 2) != 0 || opBit(op, 21) != 0 || opBit(op, 22) != sf {
		m.unhandled(op)
	}

	var result uint64
	if sf == 1 {
		lo := m.Reg(rn)
		hi := m.Reg(rm)
		if lsb == 0 {
			result = lo
		} else {
			result = lo>>lsb | hi<<(64-lsb)
		}
	} else {
		if lsb > 31 {
			m.unhandled(op)
		}
		lo := uint32(m.Reg(rn))
		hi := uint32(m.Reg(rm))
		if lsb == 0 {
			result = uint64(lo)
		} else {
			result = uint64(lo>>lsb | hi<<(32-lsb))
		}
	}
	m.SetReg(rd, result)
}
