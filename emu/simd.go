package emu

import (
	"math"
	"math/bits"

	"github.com/sarchlab/a64emu/insts"
)

// vecParams derives the per-instruction SIMD element parameters from
// the size and Q fields: element size in bytes, total data size in
// bytes, and lane count.
func vecParams(size, q uint64) (esize, datasize, elements uint) {
	esize = uint(1) << size
	datasize = 8
	if q == 1 {
		datasize = 16
	}
	return esize, datasize, datasize / esize
}

// setVec commits a computed vector result, zeroing the upper half for
// 64-bit arrangements.
func (m *Machine) setVec(rd uint, result Vec128, q uint64) {
	if q == 0 {
		result.ZeroTop(8)
	}
	m.Vregs[rd] = result
}

// signedElem reads lane i of v at esize bytes, sign-extended.
func signedElem(v *Vec128, i, esize uint) int64 {
	return insts.SignExtend(v.Elem(i, esize), esize*8-1)
}

// cmpMask returns the all-ones element mask for a true comparison.
func cmpMask(truth bool) uint64 {
	if truth {
		return ^uint64(0)
	}
	return 0
}

// execSIMDVector decodes the Advanced SIMD vector data-processing
// space: three-same, three-different, two-register miscellaneous,
// across-lanes, copy, permute, extract, and table lookup.
func (m *Machine) execSIMDVector(op uint32) {
	q := opBit(op, 30)
	u := opBit(op, 29)
	size := opBits(op, 22, 2)

	if opBit(op, 21) == 1 {
		switch {
		case opBit(op, 10) == 1:
			m.execSIMDThreeSame(op, q, u, size)
		case opBits(op, 10, 2) == 0b00:
			m.execSIMDThreeDifferent(op, q, u, size)
		case opBits(op, 17, 5) == 0b10000 && opBits(op, 10, 2) == 0b10:
			m.execSIMDTwoRegMisc(op, q, u, size)
		case opBits(op, 17, 5) == 0b11000 && opBits(op, 10, 2) == 0b10:
			m.execSIMDAcrossLanes(op, q, u, size)
		default:
			m.unhandled(op)
		}
		return
	}

	switch {
	case u == 0 && opBits(op, 22, 2) == 0 && opBit(op, 15) == 0 && opBits(op, 10, 2) == 0b00 && opBit(op, 29) == 0:
		m.execSIMDTable(op, q)
	case u == 1 && opBits(op, 22, 2) == 0 && opBit(op, 15) == 0 && opBit(op, 10) == 0:
		m.execSIMDExtract(op, q)
	case u == 0 && opBit(op, 15) == 0 && opBits(op, 10, 2) == 0b10:
		m.execSIMDPermute(op, q, size)
	case opBits(op, 21, 3) == 0 && opBit(op, 15) == 0 && opBit(op, 10) == 1:
		m.execSIMDCopy(op, q, u)
	default:
		m.unhandled(op)
	}
}

// execSIMDThreeSame handles the three-same group, including the
// bitwise ops that reuse the size field as an opcode extension and the
// FP ops that reuse it as the precision selector.
func (m *Machine) execSIMDThreeSame(op uint32, q, u, size uint64) {
	opcode := opBits(op, 11, 5)
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	n := m.Vregs[rn]
	mv := m.Vregs[rm]
	d := m.Vregs[rd]
	var result Vec128

	esize, _, elements := vecParams(size, q)

	switch opcode {
	case 0b00011: // bitwise: AND/BIC/ORR/ORN, EOR/BSL/BIT/BIF
		for i := uint(0); i < 2; i++ {
			a := n.U64(i)
			b := mv.U64(i)
			dd := d.U64(i)
			var r uint64
			if u == 0 {
				switch size {
				case 0b00:
					r = a & b
				case 0b01:
					r = a &^ b
				case 0b10:
					r = a | b
				case 0b11:
					r = a | ^b
				}
			} else {
				switch size {
				case 0b00:
					r = a ^ b
				case 0b01: // BSL: d selects between n and m
					r = b ^ (dd & (a ^ b))
				case 0b10: // BIT: insert n bits where m is set
					r = dd ^ (b & (a ^ dd))
				case 0b11: // BIF: insert n bits where m is clear
					r = dd ^ (^b & (a ^ dd))
				}
			}
			result.SetU64(i, r)
		}
		m.setVec(rd, result, q)
		return

	case 0b10000: // ADD / SUB
		for e := uint(0); e < elements; e++ {
			a := n.Elem(e, esize)
			b := mv.Elem(e, esize)
			if u == 0 {
				result.SetElem(e, esize, a+b)
			} else {
				result.SetElem(e, esize, a-b)
			}
		}
		m.setVec(rd, result, q)
		return

	case 0b10001: // CMTST / CMEQ (register)
		for e := uint(0); e < elements; e++ {
			a := n.Elem(e, esize)
			b := mv.Elem(e, esize)
			if u == 0 {
				result.SetElem(e, esize, cmpMask(a&b != 0))
			} else {
				result.SetElem(e, esize, cmpMask(a == b))
			}
		}
		m.setVec(rd, result, q)
		return

	case 0b00110: // CMGT / CMHI
		for e := uint(0); e < elements; e++ {
			if u == 0 {
				result.SetElem(e, esize, cmpMask(signedElem(&n, e, esize) > signedElem(&mv, e, esize)))
			} else {
				result.SetElem(e, esize, cmpMask(n.Elem(e, esize) > mv.Elem(e, esize)))
			}
		}
		m.setVec(rd, result, q)
		return

	case 0b00111: // CMGE / CMHS
		for e := uint(0); e < elements; e++ {
			if u == 0 {
				result.SetElem(e, esize, cmpMask(signedElem(&n, e, esize) >= signedElem(&mv, e, esize)))
			} else {
				result.SetElem(e, esize, cmpMask(n.Elem(e, esize) >= mv.Elem(e, esize)))
			}
		}
		m.setVec(rd, result, q)
		return

	case 0b01000: // SSHL / USHL: shift by the signed low byte of m
		for e := uint(0); e < elements; e++ {
			shift := int64(int8(mv.Elem(e, esize)))
			width := int64(esize * 8)
			var r uint64
			if shift <= -width {
				if u == 0 {
					r = uint64(signedElem(&n, e, esize) >> (width - 1))
				}
			} else if shift < 0 {
				if u == 0 {
					r = uint64(signedElem(&n, e, esize) >> uint(-shift))
				} else {
					r = n.Elem(e, esize) >> uint(-shift)
				}
			} else if shift >= width {
				r = 0
			} else {
				r = n.Elem(e, esize) << uint(shift)
			}
			result.SetElem(e, esize, r)
		}
		m.setVec(rd, result, q)
		return

	case 0b01100, 0b01101: // SMAX/UMAX, SMIN/UMIN
		if size == 0b11 {
			m.unhandled(op)
		}
		max := opcode == 0b01100
		for e := uint(0); e < elements; e++ {
			var take bool
			if u == 0 {
				take = signedElem(&n, e, esize) > signedElem(&mv, e, esize)
			} else {
				take = n.Elem(e, esize) > mv.Elem(e, esize)
			}
			if take == max {
				result.SetElem(e, esize, n.Elem(e, esize))
			} else {
				result.SetElem(e, esize, mv.Elem(e, esize))
			}
		}
		m.setVec(rd, result, q)
		return

	case 0b10011: // MUL
		if u == 1 || size == 0b11 {
			m.unhandled(op)
		}
		for e := uint(0); e < elements; e++ {
			result.SetElem(e, esize, n.Elem(e, esize)*mv.Elem(e, esize))
		}
		m.setVec(rd, result, q)
		return

	case 0b10111: // ADDP: pairwise add across the concatenation n:m
		if u == 1 {
			m.unhandled(op)
		}
		concat := func(i uint) uint64 {
			if i < elements {
				return n.Elem(i, esize)
			}
			return mv.Elem(i-elements, esize)
		}
		for e := uint(0); e < elements; e++ {
			result.SetElem(e, esize, concat(2*e)+concat(2*e+1))
		}
		m.setVec(rd, result, q)
		return
	}

	// FP three-same: the high size bit selects the operation variant
	// and the low bit the precision.
	m.execSIMDFPThreeSame(op, q, u, size, opcode)
}

// fpLanes iterates the FP lanes of an arrangement: sz=0 is single
// precision, sz=1 double.
func fpLanes(sz, q uint64) (esize, elements uint) {
	if sz == 1 {
		if q == 0 {
			return 8, 0 // 1D is reserved
		}
		return 8, 2
	}
	if q == 1 {
		return 4, 4
	}
	return 4, 2
}

func fpLane(v *Vec128, i, esize uint) float64 {
	if esize == 8 {
		return v.F64(i)
	}
	return float64(v.F32(i))
}

func setFPLane(v *Vec128, i, esize uint, f float64) {
	if esize == 8 {
		v.SetF64(i, f)
	} else {
		v.SetF32(i, float32(f))
	}
}

func (m *Machine) execSIMDFPThreeSame(op uint32, q, u, size, opcode uint64) {
	sz := size & 1
	variant := size >> 1
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	esize, elements := fpLanes(sz, q)
	if elements == 0 {
		m.unhandled(op)
	}
	n := m.Vregs[rn]
	mv := m.Vregs[rm]
	d := m.Vregs[rd]
	var result Vec128

	apply := func(f func(a, b float64) float64) {
		for e := uint(0); e < elements; e++ {
			setFPLane(&result, e, esize, f(fpLane(&n, e, esize), fpLane(&mv, e, esize)))
		}
	}
	applyCmp := func(f func(a, b float64) bool) {
		for e := uint(0); e < elements; e++ {
			result.SetElem(e, esize, cmpMask(f(fpLane(&n, e, esize), fpLane(&mv, e, esize))))
		}
	}

	switch {
	case opcode == 0b11010 && u == 0 && variant == 0: // FADD
		apply(func(a, b float64) float64 { return fpArith(a+b, esize) })
	case opcode == 0b11010 && u == 0 && variant == 1: // FSUB
		apply(func(a, b float64) float64 { return fpArith(a-b, esize) })
	case opcode == 0b11010 && u == 1 && variant == 0: // FADDP
		concat := func(i uint) float64 {
			if i < elements {
				return fpLane(&n, i, esize)
			}
			return fpLane(&mv, i-elements, esize)
		}
		for e := uint(0); e < elements; e++ {
			setFPLane(&result, e, esize, fpArith(concat(2*e)+concat(2*e+1), esize))
		}
	case opcode == 0b11011 && u == 1 && variant == 0: // FMUL
		apply(func(a, b float64) float64 { return fpArith(a*b, esize) })
	case opcode == 0b11111 && u == 1 && variant == 0: // FDIV
		apply(func(a, b float64) float64 { return fpArith(a/b, esize) })
	case opcode == 0b11000 && u == 0: // FMAXNM / FMINNM
		if variant == 0 {
			apply(fpMaxNum)
		} else {
			apply(fpMinNum)
		}
	case opcode == 0b11001 && u == 0: // FMLA / FMLS
		for e := uint(0); e < elements; e++ {
			a := fpLane(&n, e, esize)
			b := fpLane(&mv, e, esize)
			if variant == 1 {
				a = -a
			}
			acc := fpLane(&d, e, esize)
			setFPLane(&result, e, esize, fpFMA(a, b, acc, esize))
		}
	case opcode == 0b11100 && u == 0 && variant == 0: // FCMEQ
		applyCmp(func(a, b float64) bool { return a == b })
	case opcode == 0b11100 && u == 1 && variant == 0: // FCMGE
		applyCmp(func(a, b float64) bool { return a >= b })
	case opcode == 0b11100 && u == 1 && variant == 1: // FCMGT
		applyCmp(func(a, b float64) bool { return a > b })
	case opcode == 0b11110 && u == 0 && variant == 0: // FMAX
		apply(fpMax)
	case opcode == 0b11110 && u == 0 && variant == 1: // FMIN
		apply(fpMin)
	default:
		m.unhandled(op)
		return
	}
	m.setVec(rd, result, q)
}

// fpArith rounds a double-evaluated result at the lane precision.
func fpArith(f float64, esize uint) float64 {
	if esize == 4 {
		return float64(float32(f))
	}
	return f
}

// fpFMA is a fused multiply-add at the lane precision.
func fpFMA(a, b, acc float64, esize uint) float64 {
	r := math.FMA(a, b, acc)
	return fpArith(r, esize)
}

// execSIMDThreeDifferent handles the widening multiplies. SMULL2 and
// UMULL2 read the high half of the sources.
func (m *Machine) execSIMDThreeDifferent(op uint32, q, u, size uint64) {
	opcode := opBits(op, 12, 4)
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	if opcode != 0b1100 || size == 0b11 {
		m.unhandled(op)
	}

	esize := uint(1) << size
	elements := uint(8) / esize
	base := elements * uint(q) // high half when Q=1

	n := m.Vregs[rn]
	mv := m.Vregs[rm]
	var result Vec128
	for e := uint(0); e < elements; e++ {
		var prod uint64
		if u == 0 {
			prod = uint64(signedElem(&n, base+e, esize) * signedElem(&mv, base+e, esize))
		} else {
			prod = n.Elem(base+e, esize) * mv.Elem(base+e, esize)
		}
		result.SetElem(e, esize*2, prod)
	}
	m.Vregs[rd] = result
}

// execSIMDTwoRegMisc handles the two-register miscellaneous group.
func (m *Machine) execSIMDTwoRegMisc(op uint32, q, u, size uint64) {
	opcode := opBits(op, 12, 5)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	esize, _, elements := vecParams(size, q)
	n := m.Vregs[rn]
	var result Vec128

	switch {
	case opcode == 0b00101 && u == 0: // CNT
		if size != 0 {
			m.unhandled(op)
		}
		for e := uint(0); e < elements; e++ {
			result.SetU8(e, uint8(bits.OnesCount8(n.U8(e))))
		}

	case opcode == 0b00101 && u == 1 && size == 0b00: // NOT
		result.SetU64(0, ^n.U64(0))
		result.SetU64(1, ^n.U64(1))

	case opcode == 0b00101 && u == 1 && size == 0b01: // RBIT (vector)
		for e := uint(0); e < elements; e++ {
			result.SetU8(e, bits.Reverse8(n.U8(e)))
		}

	case opcode == 0b00000 && u == 0: // REV64
		if size == 0b11 {
			m.unhandled(op)
		}
		per := uint(8) / esize
		for e := uint(0); e < elements; e++ {
			grp := e / per * per
			result.SetElem(e, esize, n.Elem(grp+(per-1)-(e-grp), esize))
		}

	case opcode == 0b01000: // CMGT zero / CMGE zero
		for e := uint(0); e < elements; e++ {
			s := signedElem(&n, e, esize)
			if u == 0 {
				result.SetElem(e, esize, cmpMask(s > 0))
			} else {
				result.SetElem(e, esize, cmpMask(s >= 0))
			}
		}

	case opcode == 0b01001: // CMEQ zero / CMLE zero
		for e := uint(0); e < elements; e++ {
			s := signedElem(&n, e, esize)
			if u == 0 {
				result.SetElem(e, esize, cmpMask(s == 0))
			} else {
				result.SetElem(e, esize, cmpMask(s <= 0))
			}
		}

	case opcode == 0b01010 && u == 0: // CMLT zero
		for e := uint(0); e < elements; e++ {
			result.SetElem(e, esize, cmpMask(signedElem(&n, e, esize) < 0))
		}

	case opcode == 0b01011: // ABS / NEG
		for e := uint(0); e < elements; e++ {
			s := signedElem(&n, e, esize)
			if u == 0 && s < 0 {
				s = -s
			} else if u == 1 {
				s = -s
			}
			result.SetElem(e, esize, uint64(s))
		}

	case opcode == 0b10010 && u == 0: // XTN/XTN2
		if size == 0b11 {
			m.unhandled(op)
		}
		narrow := uint(8) / esize
		base := uint(0)
		if q == 1 {
			// XTN2 fills the high half and keeps the low half.
			result = m.Vregs[rd]
			base = narrow
		}
		for e := uint(0); e < narrow; e++ {
			result.SetElem(base+e, esize, n.Elem(e, esize*2))
		}
		m.Vregs[rd] = result
		return

	case opcode == 0b11101 && size>>1 == 0: // SCVTF / UCVTF (vector)
		fsize, felems := fpLanes(size&1, q)
		if felems == 0 {
			m.unhandled(op)
		}
		for e := uint(0); e < felems; e++ {
			var f float64
			if u == 0 {
				f = float64(signedElem(&n, e, fsize))
			} else {
				f = float64(n.Elem(e, fsize))
			}
			setFPLane(&result, e, fsize, fpArith(f, fsize))
		}

	case opcode == 0b11011 && size>>1 == 1: // FCVTZS / FCVTZU (vector)
		fsize, felems := fpLanes(size&1, q)
		if felems == 0 {
			m.unhandled(op)
		}
		for e := uint(0); e < felems; e++ {
			f := roundFloat64(fpLane(&n, e, fsize), roundZero)
			var r uint64
			if fsize == 8 {
				if u == 0 {
					r = uint64(toInt64Sat(f))
				} else {
					r = toUint64Sat(f)
				}
			} else {
				if u == 0 {
					r = uint64(uint32(toInt32Sat(f)))
				} else {
					r = uint64(toUint32Sat(f))
				}
			}
			result.SetElem(e, fsize, r)
		}

	case opcode == 0b01111 && size>>1 == 1: // FABS / FNEG (vector)
		fsize, felems := fpLanes(size&1, q)
		if felems == 0 {
			m.unhandled(op)
		}
		for e := uint(0); e < felems; e++ {
			f := fpLane(&n, e, fsize)
			if u == 0 {
				f = math.Abs(f)
			} else {
				f = -f
			}
			setFPLane(&result, e, fsize, f)
		}

	case opcode == 0b11111 && u == 1 && size>>1 == 1: // FSQRT (vector)
		fsize, felems := fpLanes(size&1, q)
		if felems == 0 {
			m.unhandled(op)
		}
		for e := uint(0); e < felems; e++ {
			setFPLane(&result, e, fsize, fpArith(math.Sqrt(fpLane(&n, e, fsize)), fsize))
		}

	case opcode == 0b11000 && u == 1 && size>>1 == 0: // FRINTA (vector)
		fsize, felems := fpLanes(size&1, q)
		if felems == 0 {
			m.unhandled(op)
		}
		for e := uint(0); e < felems; e++ {
			setFPLane(&result, e, fsize, roundFloat64(fpLane(&n, e, fsize), roundTieAway))
		}

	default:
		m.unhandled(op)
	}
	m.setVec(rd, result, q)
}

// execSIMDAcrossLanes handles the across-lanes reductions ADDV and
// UADDLV/SADDLV.
func (m *Machine) execSIMDAcrossLanes(op uint32, q, u, size uint64) {
	opcode := opBits(op, 12, 5)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	esize, _, elements := vecParams(size, q)
	if size == 0b11 || (size == 0b10 && q == 0) {
		m.unhandled(op)
	}
	n := m.Vregs[rn]

	switch opcode {
	case 0b11011: // ADDV
		if u == 1 {
			m.unhandled(op)
		}
		var sum uint64
		for e := uint(0); e < elements; e++ {
			sum += n.Elem(e, esize)
		}
		m.Vregs[rd].SetScalar(esize, sum)
	case 0b00011: // SADDLV / UADDLV: widened accumulation
		var sum uint64
		for e := uint(0); e < elements; e++ {
			if u == 0 {
				sum += uint64(signedElem(&n, e, esize))
			} else {
				sum += n.Elem(e, esize)
			}
		}
		m.Vregs[rd].SetScalar(esize*2, sum)
	default:
		m.unhandled(op)
	}
}

// execSIMDTable executes TBL/TBX with 1-4 table registers.
func (m *Machine) execSIMDTable(op uint32, q uint64) {
	rm := uint(opBits(op, 16, 5))
	length := uint(opBits(op, 13, 2)) + 1
	tbx := opBit(op, 12) == 1
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	datasize := uint(8)
	if q == 1 {
		datasize = 16
	}

	indices := m.Vregs[rm]
	result := Vec128{}
	if tbx {
		result = m.Vregs[rd]
	}
	for i := uint(0); i < datasize; i++ {
		idx := uint(indices.U8(i))
		if idx < 16*length {
			table := (rn + idx/16) % 32
			result.SetU8(i, m.Vregs[table].U8(idx%16))
		} else if !tbx {
			result.SetU8(i, 0)
		}
	}
	m.setVec(rd, result, q)
}

// execSIMDExtract executes EXT: a byte-granular extract from the
// concatenation n:m.
func (m *Machine) execSIMDExtract(op uint32, q uint64) {
	rm := uint(opBits(op, 16, 5))
	imm4 := uint(opBits(op, 11, 4))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	datasize := uint(8)
	if q == 1 {
		datasize = 16
	}
	if q == 0 && imm4 >= 8 {
		m.unhandled(op)
	}

	n := m.Vregs[rn]
	mv := m.Vregs[rm]
	var result Vec128
	for i := uint(0); i < datasize; i++ {
		pos := imm4 + i
		if pos < datasize {
			result.SetU8(i, n.U8(pos))
		} else {
			result.SetU8(i, mv.U8(pos-datasize))
		}
	}
	m.setVec(rd, result, q)
}

// execSIMDPermute executes ZIP1/ZIP2, UZP1/UZP2, and TRN1/TRN2.
func (m *Machine) execSIMDPermute(op uint32, q, size uint64) {
	opcode := opBits(op, 12, 3)
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	esize, _, elements := vecParams(size, q)
	if size == 0b11 && q == 0 {
		m.unhandled(op)
	}
	n := m.Vregs[rn]
	mv := m.Vregs[rm]
	var result Vec128

	switch opcode {
	case 0b011, 0b111: // ZIP1 / ZIP2
		base := uint(0)
		if opcode == 0b111 {
			base = elements / 2
		}
		for e := uint(0); e < elements/2; e++ {
			result.SetElem(2*e, esize, n.Elem(base+e, esize))
			result.SetElem(2*e+1, esize, mv.Elem(base+e, esize))
		}
	case 0b001, 0b101: // UZP1 / UZP2
		odd := uint(0)
		if opcode == 0b101 {
			odd = 1
		}
		for e := uint(0); e < elements/2; e++ {
			result.SetElem(e, esize, n.Elem(2*e+odd, esize))
			result.SetElem(elements/2+e, esize, mv.Elem(2*e+odd, esize))
		}
	case 0b010, 0b110: // TRN1 / TRN2
		odd := uint(0)
		if opcode == 0b110 {
			odd = 1
		}
		for e := uint(0); e < elements/2; e++ {
			result.SetElem(2*e, esize, n.Elem(2*e+odd, esize))
			result.SetElem(2*e+1, esize, mv.Elem(2*e+odd, esize))
		}
	default:
		m.unhandled(op)
	}
	m.setVec(rd, result, q)
}

// execSIMDCopy executes DUP (element and general), INS (element and
// general), and SMOV/UMOV.
func (m *Machine) execSIMDCopy(op uint32, q, opField uint64) {
	imm5 := opBits(op, 16, 5)
	imm4 := opBits(op, 11, 4)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	size := uint(bits.TrailingZeros64(imm5 | 0x20))
	if size > 3 {
		m.unhandled(op)
	}
	esize := uint(1) << size
	index := uint(imm5) >> (size + 1)

	if opField == 1 { // INS (element)
		src := uint(imm4) >> size
		m.Vregs[rd].SetElem(index, esize, m.Vregs[rn].Elem(src, esize))
		return
	}

	switch imm4 {
	case 0b0000: // DUP (element)
		elements := uint(8) / esize
		if q == 1 {
			elements *= 2
		}
		if esize == 8 && q == 0 {
			m.unhandled(op)
		}
		val := m.Vregs[rn].Elem(index, esize)
		var result Vec128
		for e := uint(0); e < elements; e++ {
			result.SetElem(e, esize, val)
		}
		m.setVec(rd, result, q)
	case 0b0001: // DUP (general)
		elements := uint(8) / esize
		if q == 1 {
			elements *= 2
		}
		if esize == 8 && q == 0 {
			m.unhandled(op)
		}
		val := m.Reg(rn)
		var result Vec128
		for e := uint(0); e < elements; e++ {
			result.SetElem(e, esize, val)
		}
		m.setVec(rd, result, q)
	case 0b0011: // INS (general)
		m.Vregs[rd].SetElem(index, esize, m.Reg(rn))
	case 0b0101: // SMOV
		val := signedElem(&m.Vregs[rn], index, esize)
		if q == 0 {
			if esize > 2 {
				m.unhandled(op)
			}
			m.SetReg(rd, uint64(uint32(val)))
		} else {
			if esize > 4 {
				m.unhandled(op)
			}
			m.SetReg(rd, uint64(val))
		}
	case 0b0111: // UMOV
		if (q == 0 && esize == 8) || (q == 1 && esize != 8) {
			m.unhandled(op)
		}
		m.SetReg(rd, m.Vregs[rn].Elem(index, esize))
	default:
		m.unhandled(op)
	}
}
