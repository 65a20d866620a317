package emu

import "github.com/sarchlab/a64emu/insts"

// opBits and opBit are the field extractors the whole dispatch path is
// written against.
func opBits(op uint32, lowbit, len uint) uint64 { return insts.OpBits(op, lowbit, len) }
func opBit(op uint32, bit uint) uint64          { return insts.OpBit(op, bit) }

// dispatch decodes and executes one instruction word. The top byte
// (bits 31..24) is the primary key: it partitions the covered
// encodings into families small enough to finish decoding with a
// handful of sub-field tests. Families decode inline in their
// executor; anything unrecognized lands in unhandled.
//
// Executors that do not branch leave the PC alone; dispatch advances
// it by 4 afterwards. Branch executors write the PC themselves;
// dispatch marks those families as branched and does not advance the
// PC after them.
func (m *Machine) dispatch(op uint32) {
	hi8 := op >> 24

	branched := false
	switch hi8 {
	case 0x00:
		// Reserved space. UDF is the all-zeroes-prefix encoding; a
		// guest reaching it is a guest error, not a decoder hole.
		if op&0xffff0000 == 0 {
			m.fatal("udf instruction:", uint64(op))
		}
		m.unhandled(op)

	// PC-relative addressing.
	case 0x10, 0x30, 0x50, 0x70, 0x90, 0xb0, 0xd0, 0xf0:
		m.execPCRel(op)

	// Add/subtract immediate.
	case 0x11, 0x31, 0x51, 0x71, 0x91, 0xb1, 0xd1, 0xf1:
		m.execAddSubImm(op)

	// Logical immediate (bit 23 clear) / move wide (bit 23 set).
	case 0x12, 0x32, 0x52, 0x72, 0x92, 0xb2, 0xd2, 0xf2:
		if opBit(op, 23) == 0 {
			m.execLogicalImm(op)
		} else {
			m.execMoveWide(op)
		}

	// Bitfield (bit 23 clear) / extract (bit 23 set).
	case 0x13, 0x33, 0x53, 0x93, 0xb3, 0xd3:
		if opBit(op, 23) == 0 {
			m.execBitfield(op)
		} else {
			m.execExtract(op)
		}

	// Unconditional branch immediate.
	case 0x14, 0x15, 0x16, 0x17, 0x94, 0x95, 0x96, 0x97:
		m.execBranchImm(op)
		branched = true

	// Compare and branch.
	case 0x34, 0x35, 0xb4, 0xb5:
		m.execCompareBranch(op)
		branched = true

	// Test bit and branch.
	case 0x36, 0x37, 0xb6, 0xb7:
		m.execTestBranch(op)
		branched = true

	// Conditional branch.
	case 0x54:
		m.execCondBranch(op)
		branched = true

	// Exception generation (SVC, BRK).
	case 0xd4:
		m.execException(op)

	// System: MRS/MSR, hints, barriers, DC ZVA.
	case 0xd5:
		m.execSystem(op)

	// Unconditional branch register.
	case 0xd6:
		m.execBranchReg(op)
		branched = true

	// Logical shifted register.
	case 0x0a, 0x2a, 0x4a, 0x6a, 0x8a, 0xaa, 0xca, 0xea:
		m.execLogicalShiftedReg(op)

	// Add/subtract shifted or extended register.
	case 0x0b, 0x2b, 0x4b, 0x6b, 0x8b, 0xab, 0xcb, 0xeb:
		m.execAddSubReg(op)

	// ADC/SBC, conditional compare, conditional select, 1- and
	// 2-source data processing, disambiguated by bits 23..21.
	case 0x1a, 0x3a, 0x5a, 0x7a, 0x9a, 0xba, 0xda, 0xfa:
		m.execDPRegMisc(op)

	// 3-source data processing (multiply-add family).
	case 0x1b, 0x9b:
		m.execDP3Src(op)

	// Load/store exclusive and load-acquire/store-release.
	case 0x08, 0x48, 0x88, 0xc8:
		m.execLoadStoreExclusive(op)

	// Load literal.
	case 0x18, 0x58, 0x98, 0x1c, 0x5c, 0x9c:
		m.execLoadLiteral(op)

	// Load/store pair.
	case 0x28, 0x29, 0x68, 0x69, 0xa8, 0xa9,
		0x2c, 0x2d, 0x6c, 0x6d, 0xac, 0xad:
		m.execLoadStorePair(op)

	// Load/store register: unscaled, post/pre-index, register offset.
	case 0x38, 0x78, 0xb8, 0xf8, 0x3c, 0x7c, 0xbc, 0xfc:
		m.execLoadStore(op, false)

	// Load/store register: unsigned scaled offset.
	case 0x39, 0x79, 0xb9, 0xf9, 0x3d, 0x7d, 0xbd, 0xfd:
		m.execLoadStore(op, true)

	// Advanced SIMD vector data processing.
	case 0x0e, 0x2e, 0x4e, 0x6e:
		m.execSIMDVector(op)

	// Advanced SIMD modified immediate, shift by immediate, and
	// vector x indexed element.
	case 0x0f, 0x2f, 0x4f, 0x6f:
		m.execSIMDImmOrIndexed(op)

	// Advanced SIMD scalar.
	case 0x5e, 0x7e:
		m.execSIMDScalar(op)

	// Advanced SIMD scalar shift by immediate / indexed element.
	case 0x5f, 0x7f:
		m.execSIMDScalarImm(op)

	// Scalar floating point: data processing, compares, conversions.
	case 0x1e, 0x9e:
		m.execFPScalar(op)

	// Floating-point fused multiply-add.
	case 0x1f:
		m.execFPMulAdd(op)

	default:
		m.unhandled(op)
	}

	if !branched {
		m.PC += 4
	}
}
