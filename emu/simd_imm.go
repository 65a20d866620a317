package emu

import (
	"math/bits"

	"github.com/sarchlab/a64emu/insts"
)

// execSIMDImmOrIndexed decodes the 0x0f family: modified immediate
// when the immh field is zero, shift-by-immediate when it is not, and
// vector x indexed element when bit 10 is clear.
func (m *Machine) execSIMDImmOrIndexed(op uint32) {
	q := opBit(op, 30)
	u := opBit(op, 29)

	if opBit(op, 10) == 0 {
		m.execSIMDIndexed(op, q, u)
		return
	}
	if opBit(op, 23) != 0 {
		m.unhandled(op)
	}
	if opBits(op, 19, 4) == 0 {
		m.execSIMDModImm(op, q, u)
		return
	}
	m.execSIMDShiftImm(op, q, u)
}

// execSIMDModImm executes MOVI/MVNI/ORR/BIC (vector immediate) and
// FMOV (vector immediate) through the expand-immediate table.
func (m *Machine) execSIMDModImm(op uint32, q, opField uint64) {
	cmode := opBits(op, 12, 4)
	imm8 := opBits(op, 16, 3)<<5 | opBits(op, 5, 5)
	rd := uint(opBits(op, 0, 5))

	imm64, ok := insts.AdvSIMDExpandImm(opField, cmode, imm8)
	if !ok {
		m.unhandled(op)
	}

	// FMOV 2D and MOVI 2D/D are the only 64-bit element forms.
	if opField == 1 && cmode == 0b1111 && q == 0 {
		m.unhandled(op)
	}

	orrBic := cmode&1 == 1 && cmode>>1 < 0b110
	movi := opField == 0 || cmode == 0b1110 || cmode == 0b1111

	var result Vec128
	switch {
	case orrBic:
		result = m.Vregs[rd]
		if opField == 0 { // ORR
			result.SetU64(0, result.U64(0)|imm64)
			result.SetU64(1, result.U64(1)|imm64)
		} else { // BIC
			result.SetU64(0, result.U64(0)&^imm64)
			result.SetU64(1, result.U64(1)&^imm64)
		}
	case movi:
		result.SetU64(0, imm64)
		result.SetU64(1, imm64)
	default: // MVNI
		result.SetU64(0, ^imm64)
		result.SetU64(1, ^imm64)
	}
	m.setVec(rd, result, q)
}

// shiftImmParams decodes the immh:immb field: element size in bits
// and the raw concatenated immediate.
func shiftImmParams(op uint32) (esizeBits, imm uint) {
	immh := uint(opBits(op, 19, 4))
	immb := uint(opBits(op, 16, 3))
	esizeBits = 8 << (bits.Len(immh) - 1)
	imm = immh<<3 | immb
	return esizeBits, imm
}

// execSIMDShiftImm executes the vector shift-by-immediate group:
// right shifts and accumulates, SHL, the widening shifts, and SHRN.
func (m *Machine) execSIMDShiftImm(op uint32, q, u uint64) {
	opcode := opBits(op, 11, 5)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	esizeBits, imm := shiftImmParams(op)
	esize := esizeBits / 8
	n := m.Vregs[rn]
	var result Vec128

	switch opcode {
	case 0b00000, 0b00010: // SSHR/USHR, SSRA/USRA
		if esizeBits == 64 && q == 0 {
			m.unhandled(op)
		}
		shift := uint(2*esizeBits) - imm
		elements := uint(8) / esize
		if q == 1 {
			elements *= 2
		}
		accumulate := opcode == 0b00010
		if accumulate {
			result = m.Vregs[rd]
		}
		for e := uint(0); e < elements; e++ {
			var r uint64
			if u == 0 {
				r = uint64(signedElem(&n, e, esize) >> shift)
			} else {
				r = n.Elem(e, esize) >> shift
			}
			if accumulate {
				r += result.Elem(e, esize)
			}
			result.SetElem(e, esize, r)
		}
		m.setVec(rd, result, q)

	case 0b01010: // SHL
		if u == 1 {
			m.unhandled(op)
		}
		if esizeBits == 64 && q == 0 {
			m.unhandled(op)
		}
		shift := imm - uint(esizeBits)
		elements := uint(8) / esize
		if q == 1 {
			elements *= 2
		}
		for e := uint(0); e < elements; e++ {
			result.SetElem(e, esize, n.Elem(e, esize)<<shift)
		}
		m.setVec(rd, result, q)

	case 0b10100: // SSHLL/USHLL (and the SXTL/UXTL aliases)
		if esizeBits == 64 {
			m.unhandled(op)
		}
		shift := imm - uint(esizeBits)
		narrow := uint(8) / esize
		base := narrow * uint(q)
		for e := uint(0); e < narrow; e++ {
			var widened uint64
			if u == 0 {
				widened = uint64(signedElem(&n, base+e, esize))
			} else {
				widened = n.Elem(base+e, esize)
			}
			result.SetElem(e, esize*2, widened<<shift)
		}
		m.Vregs[rd] = result

	case 0b10000: // SHRN/SHRN2
		if u == 1 || esizeBits == 64 {
			m.unhandled(op)
		}
		shift := uint(2*esizeBits) - imm
		narrow := uint(8) / esize
		base := uint(0)
		if q == 1 {
			result = m.Vregs[rd]
			base = narrow
		}
		for e := uint(0); e < narrow; e++ {
			result.SetElem(base+e, esize, n.Elem(e, esize*2)>>shift)
		}
		m.Vregs[rd] = result

	default:
		m.unhandled(op)
	}
}

// indexedOperand resolves the Vm register and lane index of a vector x
// indexed element instruction for the given element size in bytes.
func (m *Machine) indexedOperand(op uint32, esize uint) (vm, index uint) {
	l := uint(opBit(op, 21))
	mBit := uint(opBit(op, 20))
	h := uint(opBit(op, 11))
	vm = uint(opBits(op, 16, 4))

	switch esize {
	case 2:
		index = h<<2 | l<<1 | mBit
	case 4:
		vm |= mBit << 4
		index = h<<1 | l
	default: // 8
		vm |= mBit << 4
		index = h
	}
	return vm, index
}

// execSIMDIndexed executes the vector x indexed element group: FMLA,
// FMLS, and FMUL by element, and the integer MLA/MUL by element.
func (m *Machine) execSIMDIndexed(op uint32, q, u uint64) {
	size := opBits(op, 22, 2)
	opcode := opBits(op, 12, 4)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	switch {
	case u == 0 && size >= 0b10 && (opcode == 0b0001 || opcode == 0b0101 || opcode == 0b1001):
		// FMLA/FMLS/FMUL by element.
		sz := size & 1
		fsize, felems := fpLanes(sz, q)
		if felems == 0 || (sz == 1 && opBit(op, 21) != 0) {
			m.unhandled(op)
		}
		vm, index := m.indexedOperand(op, fsize)
		elemVal := fpLane(&m.Vregs[vm], index, fsize)
		if opcode == 0b0101 { // FMLS negates the element product
			elemVal = -elemVal
		}
		n := m.Vregs[rn]
		d := m.Vregs[rd]
		var result Vec128
		for e := uint(0); e < felems; e++ {
			a := fpLane(&n, e, fsize)
			if opcode == 0b1001 {
				setFPLane(&result, e, fsize, fpArith(a*elemVal, fsize))
			} else {
				setFPLane(&result, e, fsize, fpFMA(a, elemVal, fpLane(&d, e, fsize), fsize))
			}
		}
		m.setVec(rd, result, q)

	case (size == 0b01 || size == 0b10) && ((u == 1 && opcode == 0b0000) || (u == 0 && opcode == 0b1000)):
		// MLA (u=1) / MUL (u=0) by element.
		esize, _, elements := vecParams(size, q)
		vm, index := m.indexedOperand(op, esize)
		elemVal := m.Vregs[vm].Elem(index, esize)
		n := m.Vregs[rn]
		d := m.Vregs[rd]
		var result Vec128
		for e := uint(0); e < elements; e++ {
			r := n.Elem(e, esize) * elemVal
			if u == 1 {
				r += d.Elem(e, esize)
			}
			result.SetElem(e, esize, r)
		}
		m.setVec(rd, result, q)

	default:
		m.unhandled(op)
	}
}
