package emu

import (
	"math"

	"github.com/sarchlab/a64emu/insts"
)

// FP rounding modes, in the architecture's rmode encoding order.
const (
	roundTieEven = iota
	roundPosInf
	roundNegInf
	roundZero
	roundTieAway
)

// roundFloat64 rounds to an integral value in the given mode.
func roundFloat64(f float64, mode int) float64 {
	switch mode {
	case roundPosInf:
		return math.Ceil(f)
	case roundNegInf:
		return math.Floor(f)
	case roundZero:
		return math.Trunc(f)
	case roundTieAway:
		return math.Round(f)
	default:
		return math.RoundToEven(f)
	}
}

// Saturating float-to-integer conversions. NaN converts to zero; out
// of range values clamp to the nearest representable bound, matching
// FCVT* semantics.
func toInt64Sat(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= 9223372036854775808.0:
		return math.MaxInt64
	case f <= -9223372036854775808.0:
		return math.MinInt64
	}
	return int64(f)
}

func toUint64Sat(f float64) uint64 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 18446744073709551616.0:
		return math.MaxUint64
	}
	return uint64(f)
}

func toInt32Sat(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= 2147483648.0:
		return math.MaxInt32
	case f <= -2147483648.0:
		return math.MinInt32
	}
	return int32(f)
}

func toUint32Sat(f float64) uint32 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 4294967296.0:
		return math.MaxUint32
	}
	return uint32(f)
}

// FP scalar operand helpers. Scalar results zero the high bytes of
// the destination vector register.
func (m *Machine) fpS(r uint) float64 { return float64(m.Vregs[r].F32(0)) }
func (m *Machine) fpD(r uint) float64 { return m.Vregs[r].F64(0) }
func (m *Machine) setFPS(r uint, f float64) {
	m.Vregs[r].SetScalar(4, uint64(math.Float32bits(float32(f))))
}
func (m *Machine) setFPD(r uint, f float64) {
	m.Vregs[r].SetScalar(8, math.Float64bits(f))
}

// execFPScalar decodes the scalar floating-point family: int<->FP
// conversions, 1- and 2-source data processing, compares, conditional
// compare/select, and FMOV immediate.
func (m *Machine) execFPScalar(op uint32) {
	if opBit(op, 29) != 0 || opBit(op, 21) != 1 {
		m.unhandled(op)
	}
	ftype := opBits(op, 22, 2)

	if opBits(op, 10, 6) == 0 {
		m.execFPIntConvert(op, ftype)
		return
	}

	// Everything below exists only with sf=0 and single or double
	// precision.
	if opBit(op, 31) != 0 || ftype > 1 {
		m.unhandled(op)
	}
	double := ftype == 1

	switch {
	case opBits(op, 10, 5) == 0b10000:
		m.execFP1Src(op, double)
	case opBits(op, 10, 4) == 0b1000:
		m.execFPCompare(op, double)
	case opBits(op, 10, 3) == 0b100 && opBits(op, 5, 5) == 0:
		m.execFPImm(op, double)
	case opBits(op, 10, 2) == 0b01:
		m.execFPCondCompare(op, double)
	case opBits(op, 10, 2) == 0b10:
		m.execFP2Src(op, double)
	case opBits(op, 10, 2) == 0b11:
		m.execFPCondSelect(op, double)
	default:
		m.unhandled(op)
	}
}

// execFPIntConvert handles conversions between general-purpose and FP
// registers: SCVTF/UCVTF, the FCVT[NPMZA]S/U family, and FMOV moves.
func (m *Machine) execFPIntConvert(op uint32, ftype uint64) {
	sf := opBit(op, 31)
	rmode := opBits(op, 19, 2)
	opcode := opBits(op, 16, 3)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	// FMOV between register files.
	if opcode >= 0b110 {
		toGP := opcode == 0b110
		switch {
		case rmode == 0b00 && ftype == 0b00 && sf == 0: // W <-> S
			if toGP {
				m.SetReg(rd, uint64(m.Vregs[rn].U32(0)))
			} else {
				m.Vregs[rd].SetScalar(4, uint64(uint32(m.Reg(rn))))
			}
		case rmode == 0b00 && ftype == 0b01 && sf == 1: // X <-> D
			if toGP {
				m.SetReg(rd, m.Vregs[rn].U64(0))
			} else {
				m.Vregs[rd].SetScalar(8, m.Reg(rn))
			}
		case rmode == 0b01 && ftype == 0b10 && sf == 1: // X <-> V.D[1]
			if toGP {
				m.SetReg(rd, m.Vregs[rn].U64(1))
			} else {
				m.Vregs[rd].SetU64(1, m.Reg(rn))
			}
		default:
			m.unhandled(op)
		}
		return
	}

	if ftype > 1 {
		m.unhandled(op)
	}
	double := ftype == 1

	switch opcode {
	case 0b010, 0b011: // SCVTF / UCVTF
		if rmode != 0 {
			m.unhandled(op)
		}
		var f float64
		if opcode == 0b010 {
			if sf == 1 {
				f = float64(int64(m.Reg(rn)))
			} else {
				f = float64(int32(m.Reg(rn)))
			}
		} else {
			if sf == 1 {
				f = float64(m.Reg(rn))
			} else {
				f = float64(uint32(m.Reg(rn)))
			}
		}
		if double {
			m.setFPD(rd, f)
		} else {
			m.setFPS(rd, f)
		}

	case 0b000, 0b001: // FCVT[NPMZ]S / FCVT[NPMZ]U
		mode := roundTieEven
		switch rmode {
		case 0b01:
			mode = roundPosInf
		case 0b10:
			mode = roundNegInf
		case 0b11:
			mode = roundZero
		}
		m.fcvtToGP(rd, rn, sf == 1, double, opcode == 0b000, mode)

	case 0b100, 0b101: // FCVTAS / FCVTAU
		if rmode != 0 {
			m.unhandled(op)
		}
		m.fcvtToGP(rd, rn, sf == 1, double, opcode == 0b100, roundTieAway)

	default:
		m.unhandled(op)
	}
}

// fcvtToGP converts an FP scalar to a general-purpose integer with
// the given rounding, signedness, and widths.
func (m *Machine) fcvtToGP(rd, rn uint, is64, double, signed bool, mode int) {
	var f float64
	if double {
		f = m.fpD(rn)
	} else {
		f = m.fpS(rn)
	}
	f = roundFloat64(f, mode)

	var result uint64
	switch {
	case signed && is64:
		result = uint64(toInt64Sat(f))
	case signed:
		result = uint64(uint32(toInt32Sat(f)))
	case is64:
		result = toUint64Sat(f)
	default:
		result = uint64(toUint32Sat(f))
	}
	m.SetReg(rd, result)
}

// execFP1Src executes FMOV/FABS/FNEG/FSQRT, FCVT between precisions,
// and the FRINT family.
func (m *Machine) execFP1Src(op uint32, double bool) {
	opcode := opBits(op, 15, 6)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	var val float64
	if double {
		val = m.fpD(rn)
	} else {
		val = m.fpS(rn)
	}

	set := m.setFPS
	if double {
		set = m.setFPD
	}

	switch opcode {
	case 0b000000: // FMOV
		// Move the raw bits: NaN payloads survive.
		if double {
			m.Vregs[rd].SetScalar(8, m.Vregs[rn].U64(0))
		} else {
			m.Vregs[rd].SetScalar(4, uint64(m.Vregs[rn].U32(0)))
		}
	case 0b000001: // FABS
		set(rd, math.Abs(val))
	case 0b000010: // FNEG
		if double {
			m.Vregs[rd].SetScalar(8, m.Vregs[rn].U64(0)^(1<<63))
		} else {
			m.Vregs[rd].SetScalar(4, uint64(m.Vregs[rn].U32(0)^(1<<31)))
		}
	case 0b000011: // FSQRT
		set(rd, math.Sqrt(val))
	case 0b000100: // FCVT to single
		if !double {
			m.unhandled(op)
		}
		m.setFPS(rd, val)
	case 0b000101: // FCVT to double
		if double {
			m.unhandled(op)
		}
		m.setFPD(rd, val)
	case 0b001000: // FRINTN
		set(rd, roundFloat64(val, roundTieEven))
	case 0b001001: // FRINTP
		set(rd, roundFloat64(val, roundPosInf))
	case 0b001010: // FRINTM
		set(rd, roundFloat64(val, roundNegInf))
	case 0b001011: // FRINTZ
		set(rd, roundFloat64(val, roundZero))
	case 0b001100: // FRINTA
		set(rd, roundFloat64(val, roundTieAway))
	case 0b001110, 0b001111: // FRINTX / FRINTI
		set(rd, roundFloat64(val, roundTieEven))
	default:
		m.unhandled(op)
	}
}

// setFlagsFromCompare writes the NZCV encoding of an FP comparison:
// unordered 0011, equal 0110, less 1000, greater 0010.
func (m *Machine) setFlagsFromCompare(a, b float64) {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		m.setFlagsFromNZCV(0b0011)
	case a == b:
		m.setFlagsFromNZCV(0b0110)
	case a < b:
		m.setFlagsFromNZCV(0b1000)
	default:
		m.setFlagsFromNZCV(0b0010)
	}
}

// execFPCompare executes FCMP/FCMPE, register and with-zero forms.
func (m *Machine) execFPCompare(op uint32, double bool) {
	if opBits(op, 14, 2) != 0 || opBits(op, 0, 3) != 0 {
		m.unhandled(op)
	}
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	withZero := opBit(op, 3) == 1

	var a, b float64
	if double {
		a = m.fpD(rn)
		if !withZero {
			b = m.fpD(rm)
		}
	} else {
		a = m.fpS(rn)
		if !withZero {
			b = m.fpS(rm)
		}
	}
	m.setFlagsFromCompare(a, b)
}

// execFPImm executes FMOV (scalar immediate).
func (m *Machine) execFPImm(op uint32, double bool) {
	imm8 := opBits(op, 13, 8)
	rd := uint(opBits(op, 0, 5))
	if double {
		m.Vregs[rd].SetScalar(8, insts.FPImm64(imm8))
	} else {
		m.Vregs[rd].SetScalar(4, uint64(insts.FPImm32(imm8)))
	}
}

// execFPCondCompare executes FCCMP/FCCMPE.
func (m *Machine) execFPCondCompare(op uint32, double bool) {
	if opBit(op, 4) != 0 {
		m.unhandled(op)
	}
	rm := uint(opBits(op, 16, 5))
	cond := opBits(op, 12, 4)
	rn := uint(opBits(op, 5, 5))

	if !m.condHolds(cond) {
		m.setFlagsFromNZCV(opBits(op, 0, 4))
		return
	}
	if double {
		m.setFlagsFromCompare(m.fpD(rn), m.fpD(rm))
	} else {
		m.setFlagsFromCompare(m.fpS(rn), m.fpS(rm))
	}
}

// execFP2Src executes the two-source scalar FP group.
func (m *Machine) execFP2Src(op uint32, double bool) {
	opcode := opBits(op, 12, 4)
	rm := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	var a, b float64
	if double {
		a, b = m.fpD(rn), m.fpD(rm)
	} else {
		a, b = m.fpS(rn), m.fpS(rm)
	}

	var result float64
	switch opcode {
	case 0b0000:
		result = a * b
	case 0b0001:
		result = a / b
	case 0b0010:
		result = a + b
	case 0b0011:
		result = a - b
	case 0b0100: // FMAX
		result = fpMax(a, b)
	case 0b0101: // FMIN
		result = fpMin(a, b)
	case 0b0110: // FMAXNM
		result = fpMaxNum(a, b)
	case 0b0111: // FMINNM
		result = fpMinNum(a, b)
	case 0b1000: // FNMUL
		result = -(a * b)
	default:
		m.unhandled(op)
	}

	// Single-precision arithmetic must round at single precision.
	if !double {
		switch opcode {
		case 0b0000:
			result = float64(float32(a) * float32(b))
		case 0b0001:
			result = float64(float32(a) / float32(b))
		case 0b0010:
			result = float64(float32(a) + float32(b))
		case 0b0011:
			result = float64(float32(a) - float32(b))
		case 0b1000:
			result = float64(-(float32(a) * float32(b)))
		}
		m.setFPS(rd, result)
		return
	}
	m.setFPD(rd, result)
}

// execFPCondSelect executes FCSEL.
func (m *Machine) execFPCondSelect(op uint32, double bool) {
	rm := uint(opBits(op, 16, 5))
	cond := opBits(op, 12, 4)
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	src := rm
	if m.condHolds(cond) {
		src = rn
	}
	if double {
		m.Vregs[rd].SetScalar(8, m.Vregs[src].U64(0))
	} else {
		m.Vregs[rd].SetScalar(4, uint64(m.Vregs[src].U32(0)))
	}
}

// execFPMulAdd executes FMADD/FMSUB/FNMADD/FNMSUB with fused
// multiply semantics.
func (m *Machine) execFPMulAdd(op uint32) {
	ftype := opBits(op, 22, 2)
	negateProduct := opBit(op, 21) == 1 // FNMADD/FNMSUB
	negateAddend := opBit(op, 15) == 1  // FMSUB/FNMSUB
	rm := uint(opBits(op, 16, 5))
	ra := uint(opBits(op, 10, 5))
	rn := uint(opBits(op, 5, 5))
	rd := uint(opBits(op, 0, 5))

	if ftype > 1 {
		m.unhandled(op)
	}
	double := ftype == 1

	var n, mm, a float64
	if double {
		n, mm, a = m.fpD(rn), m.fpD(rm), m.fpD(ra)
	} else {
		n, mm, a = m.fpS(rn), m.fpS(rm), m.fpS(ra)
	}
	if negateProduct {
		n = -n
		a = -a
	}
	if negateAddend {
		n = -n
	}
	// After the sign adjustments the four forms share one fused
	// expression: FMADD a+n*m, FMSUB a-n*m, FNMADD -a-n*m,
	// FNMSUB -a+n*m.
	result := math.FMA(n, mm, a)

	if double {
		m.setFPD(rd, result)
	} else {
		m.setFPS(rd, result)
	}
}

// fpMax and fpMin follow FMAX/FMIN: any NaN operand produces NaN.
func fpMax(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a > b {
		return a
	}
	if a == b && math.Signbit(b) {
		return a
	}
	return b
}

func fpMin(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a < b {
		return a
	}
	if a == b && math.Signbit(a) {
		return a
	}
	return b
}

// fpMaxNum and fpMinNum follow FMAXNM/FMINNM: a quiet NaN loses to a
// number.
func fpMaxNum(a, b float64) float64 {
	if math.IsNaN(a) {
		if math.IsNaN(b) {
			return math.NaN()
		}
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return fpMax(a, b)
}

func fpMinNum(a, b float64) float64 {
	if math.IsNaN(a) {
		if math.IsNaN(b) {
			return math.NaN()
		}
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return fpMin(a, b)
}
