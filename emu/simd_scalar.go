package emu

import (
	"math/bits"
)

// execSIMDScalar decodes the Advanced SIMD scalar space: three-same,
// two-register miscellaneous, pairwise, and DUP (scalar element).
func (m *Machine) execSIMDScalar(op uint32) {
	u := opBit(op, 29)
	size := opBits(op, 22, 2)

	if opBit(op, 21) == 1 {
		switch {
		case opBit(op, 10) == 1:
			m.execSIMDScalarThreeSame(op, u, size)
		case opBits(op, 17, 5) == 0b10000 && opBits(op, 10, 2) == 0b10:
			m.execSIMDScalarTwoRegMisc(op, u, size)
		case opBits(op, 17, 5) == 0b11000 && opBits(op, 10, 2) == 0b10:
			m.execSIMDScalarPairwise(op, u, size)
		default:
			m.unhandled(op)
		}
		return
	}

	// DUP (scalar element): an element-to-scalar move.
	if u == 0 && opBits(op, 21, 3) == 0 && opBit(op, 15) == 0 &&
		opBits(op, 11, 4) == 0b0000 && opBit(op, 10) == 1 {
		imm5 := opBits(op, 16, 5)
		esizeLog := uint(bits.TrailingZeros64(imm5 | 0x20))
		if esizeLog > 3 {
			m.unhandled(op)
		}
		esize := uint(1) << esizeLog
		index := uint(imm5) >> (esizeLog + 1)
		rn := uint(opBits(op, 5, 5))
		rd := uint(opBits(op, 0, 5))
		m.Vregs[rd].SetScalar(esize, m.Vregs[rn].Elem(index, esize))
		return
	}
	m.unhandled(op)
}

// execSIMDScalarThreeSame executes the 64-bit scalar integer forms:
// ADD/SUB and the compares.
func (m *Machine) execSIMDScalarThreeSame(op uint32, u, size uint64) {
	opcode := opBits(op, 11, 5)
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	if size != 0b11 {
		m.unhandled(op)
	}
	a := m.Vregs[rn].U64(0)
	b := m.Vregs[rm].U64(0)

	var result uint64
	switch opcode {
	case 0b10000: // ADD / SUB
		if u == 0 {
			result = a + b
		} else {
			result = a - b
		}
	case 0b10001: // CMTST / CMEQ
		if u == 0 {
			result = cmpMask(a&b != 0)
		} else {
			result = cmpMask(a == b)
		}
	case 0b00110: // CMGT / CMHI
		if u == 0 {
			result = cmpMask(int64(a) > int64(b))
		} else {
			result = cmpMask(a > b)
		}
	case 0b00111: // CMGE / CMHS
		if u == 0 {
			result = cmpMask(int64(a) >= int64(b))
		} else {
			result = cmpMask(a >= b)
		}
	default:
		m.unhandled(op)
	}
	m.Vregs[rd].SetScalar(8, result)
}

// execSIMDScalarTwoRegMisc executes scalar ABS/NEG, the compares with
// zero, and the scalar register-to-register conversions.
func (m *Machine) execSIMDScalarTwoRegMisc(op uint32, u, size uint64) {
	opcode := opBits(op, 12, 5)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	switch {
	case opcode == 0b01011 && size == 0b11: // ABS / NEG
		v := int64(m.Vregs[rn].U64(0))
		if u == 0 {
			if v < 0 {
				v = -v
			}
		} else {
			v = -v
		}
		m.Vregs[rd].SetScalar(8, uint64(v))

	case opcode == 0b01000 && size == 0b11: // CMGT / CMGE zero
		v := int64(m.Vregs[rn].U64(0))
		if u == 0 {
			m.Vregs[rd].SetScalar(8, cmpMask(v > 0))
		} else {
			m.Vregs[rd].SetScalar(8, cmpMask(v >= 0))
		}

	case opcode == 0b01001 && size == 0b11: // CMEQ / CMLE zero
		v := int64(m.Vregs[rn].U64(0))
		if u == 0 {
			m.Vregs[rd].SetScalar(8, cmpMask(v == 0))
		} else {
			m.Vregs[rd].SetScalar(8, cmpMask(v <= 0))
		}

	case opcode == 0b01010 && size == 0b11 && u == 0: // CMLT zero
		v := int64(m.Vregs[rn].U64(0))
		m.Vregs[rd].SetScalar(8, cmpMask(v < 0))

	case opcode == 0b11101 && size>>1 == 0: // SCVTF / UCVTF (scalar)
		sz := size & 1
		if sz == 1 {
			var f float64
			if u == 0 {
				f = float64(int64(m.Vregs[rn].U64(0)))
			} else {
				f = float64(m.Vregs[rn].U64(0))
			}
			m.setFPD(rd, f)
		} else {
			var f float64
			if u == 0 {
				f = float64(int32(m.Vregs[rn].U32(0)))
			} else {
				f = float64(m.Vregs[rn].U32(0))
			}
			m.setFPS(rd, f)
		}

	case opcode == 0b11011 && size>>1 == 1: // FCVTZS / FCVTZU (scalar)
		sz := size & 1
		if sz == 1 {
			f := roundFloat64(m.fpD(rn), roundZero)
			if u == 0 {
				m.Vregs[rd].SetScalar(8, uint64(toInt64Sat(f)))
			} else {
				m.Vregs[rd].SetScalar(8, toUint64Sat(f))
			}
		} else {
			f := roundFloat64(m.fpS(rn), roundZero)
			if u == 0 {
				m.Vregs[rd].SetScalar(4, uint64(uint32(toInt32Sat(f))))
			} else {
				m.Vregs[rd].SetScalar(4, uint64(toUint32Sat(f)))
			}
		}

	default:
		m.unhandled(op)
	}
}

// execSIMDScalarPairwise executes ADDP (scalar) and FADDP (scalar).
func (m *Machine) execSIMDScalarPairwise(op uint32, u, size uint64) {
	opcode := opBits(op, 12, 5)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))
	n := m.Vregs[rn]

	switch {
	case opcode == 0b11011 && u == 0 && size == 0b11: // ADDP
		m.Vregs[rd].SetScalar(8, n.U64(0)+n.U64(1))
	case opcode == 0b01101 && u == 1: // FADDP
		if size&1 == 1 {
			m.setFPD(rd, n.F64(0)+n.F64(1))
		} else {
			m.setFPS(rd, float64(n.F32(0))+float64(n.F32(1)))
		}
	default:
		m.unhandled(op)
	}
}

// execSIMDScalarImm executes the scalar shift-by-immediate forms
// (64-bit element only) and the scalar indexed-element multiplies.
func (m *Machine) execSIMDScalarImm(op uint32) {
	u := opBit(op, 29)

	if opBit(op, 10) == 0 {
		m.execSIMDScalarIndexed(op, u)
		return
	}

	opcode := opBits(op, 11, 5)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))
	if opBits(op, 19, 4) == 0 {
		m.unhandled(op)
	}
	esizeBits, imm := shiftImmParams(op)
	if esizeBits != 64 {
		m.unhandled(op)
	}
	val := m.Vregs[rn].U64(0)

	switch opcode {
	case 0b00000, 0b00010: // SSHR/USHR, SSRA/USRA
		shift := 128 - imm
		var r uint64
		if u == 0 {
			r = uint64(int64(val) >> shift)
		} else {
			r = val >> shift
		}
		if opcode == 0b00010 {
			r += m.Vregs[rd].U64(0)
		}
		m.Vregs[rd].SetScalar(8, r)
	case 0b01010: // SHL
		if u == 1 {
			m.unhandled(op)
		}
		m.Vregs[rd].SetScalar(8, val<<(imm-64))
	default:
		m.unhandled(op)
	}
}

// execSIMDScalarIndexed executes scalar FMLA/FMLS/FMUL by element.
func (m *Machine) execSIMDScalarIndexed(op uint32, u uint64) {
	size := opBits(op, 22, 2)
	opcode := opBits(op, 12, 4)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	if u != 0 || size < 0b10 || (opcode != 0b0001 && opcode != 0b0101 && opcode != 0b1001) {
		m.unhandled(op)
	}
	sz := size & 1
	fsize := uint(4)
	if sz == 1 {
		fsize = 8
		if opBit(op, 21) != 0 {
			m.unhandled(op)
		}
	}
	vm, index := m.indexedOperand(op, fsize)
	elemVal := fpLane(&m.Vregs[vm], index, fsize)
	if opcode == 0b0101 {
		elemVal = -elemVal
	}

	var a float64
	if fsize == 8 {
		a = m.fpD(rn)
	} else {
		a = m.fpS(rn)
	}

	var result float64
	if opcode == 0b1001 {
		result = fpArith(a*elemVal, fsize)
	} else {
		var acc float64
		if fsize == 8 {
			acc = m.fpD(rd)
		} else {
			acc = m.fpS(rd)
		}
		result = fpFMA(a, elemVal, acc, fsize)
	}
	if fsize == 8 {
		m.setFPD(rd, result)
	} else {
		m.setFPS(rd, result)
	}
}
