package emu

import "github.com/sarchlab/a64emu/insts"

// Addressing modes for the register load/store families.
const (
	addrUnscaled = 0b00
	addrPost     = 0b01
	addrPre      = 0b11
)

// execLoadStoreExclusive executes LDXR/LDAXR/STXR/STLXR/LDAR/STLR.
// The exclusive monitor of a single hart is always granted: exclusive
// stores unconditionally succeed and write status 0.
func (m *Machine) execLoadStoreExclusive(op uint32) {
	size := uint(opBits(op, 30, 2))
	ordered := opBit(op, 23) == 1
	load := opBit(op, 22) == 1
	pair := opBit(op, 21) == 1
	rs := uint(opBits(op, 16, 5))
	rn := uint(opBits(op, 5, 5))
	rt := uint(opBits(op, 0, 5))

	if pair {
		m.unhandled(op)
	}

	addr := m.RegOrSP(rn)
	width := uint64(1) << size

	if load {
		// LDXR/LDAXR/LDAR: acquire semantics are free in program
		// order; the monitor is considered acquired.
		m.SetReg(rt, m.loadZeroExtend(addr, width))
		return
	}

	m.storeTruncated(addr, width, m.Reg(rt))
	if !ordered {
		// STXR/STLXR: the always-granted monitor makes every
		// exclusive store succeed, so the status register reads 0.
		m.SetReg(rs, 0)
	}
}

// execLoadLiteral executes PC-relative literal loads for both
// general-purpose and SIMD destinations.
func (m *Machine) execLoadLiteral(op uint32) {
	opc := opBits(op, 30, 2)
	simd := opBit(op, 26) == 1
	offset := insts.SignExtend(opBits(op, 5, 19), 18) * 4
	rt := uint(opBits(op, 0, 5))
	addr := uint64(int64(m.PC) + offset)

	if simd {
		switch opc {
		case 0b00:
			m.Vregs[rt].SetScalar(4, uint64(m.mem.Read32(addr)))
		case 0b01:
			m.Vregs[rt].SetScalar(8, m.mem.Read64(addr))
		case 0b10:
			m.Vregs[rt].SetU64(0, m.mem.Read64(addr))
			m.Vregs[rt].SetU64(1, m.mem.Read64(addr+8))
		default:
			m.unhandled(op)
		}
		return
	}

	switch opc {
	case 0b00: // LDR Wt, literal
		m.SetReg(rt, uint64(m.mem.Read32(addr)))
	case 0b01: // LDR Xt, literal
		m.SetReg(rt, m.mem.Read64(addr))
	case 0b10: // LDRSW
		m.SetReg(rt, uint64(int64(int32(m.mem.Read32(addr)))))
	default:
		m.unhandled(op)
	}
}

// execLoadStorePair executes LDP/STP/LDPSW and the SIMD pair forms,
// in post-index, pre-index, and signed-offset addressing (the
// non-temporal encodings behave as signed offset).
func (m *Machine) execLoadStorePair(op uint32) {
	opc := opBits(op, 30, 2)
	simd := opBit(op, 26) == 1
	index := opBits(op, 23, 2)
	load := opBit(op, 22) == 1
	imm7 := insts.SignExtend(opBits(op, 15, 7), 6)
	rt2 := uint(opBits(op, 10, 5))
	rn := uint(opBits(op, 5, 5))
	rt := uint(opBits(op, 0, 5))

	var scale uint64
	switch {
	case simd:
		if opc == 0b11 {
			m.unhandled(op)
		}
		scale = 4 << opc
	case opc == 0b00:
		scale = 4
	case opc == 0b01: // LDPSW
		if !load {
			m.unhandled(op)
		}
		scale = 4
	case opc == 0b10:
		scale = 8
	default:
		m.unhandled(op)
	}
	offset := imm7 * int64(scale)

	base := m.RegOrSP(rn)
	addr := base
	if index != addrPost {
		addr = uint64(int64(base) + offset)
	}

	if simd {
		m.pairAccessSIMD(rt, rt2, addr, scale, load)
	} else {
		m.pairAccessInt(rt, rt2, addr, scale, load, opc == 0b01)
	}

	if index == addrPost || index == addrPre {
		m.SetRegOrSP(rn, uint64(int64(base)+offset))
	}
}

func (m *Machine) pairAccessInt(rt, rt2 uint, addr, scale uint64, load, signExtend bool) {
	if !load {
		m.storeTruncated(addr, scale, m.Reg(rt))
		m.storeTruncated(addr+scale, scale, m.Reg(rt2))
		return
	}
	if scale == 8 {
		m.SetReg(rt, m.mem.Read64(addr))
		m.SetReg(rt2, m.mem.Read64(addr+8))
		return
	}
	lo := m.mem.Read32(addr)
	hi := m.mem.Read32(addr + 4)
	if signExtend {
		m.SetReg(rt, uint64(int64(int32(lo))))
		m.SetReg(rt2, uint64(int64(int32(hi))))
		return
	}
	m.SetReg(rt, uint64(lo))
	m.SetReg(rt2, uint64(hi))
}

// pairAccessSIMD moves two 32/64/128-bit lanes between memory and two
// vector registers, zero-extending each destination to 128 bits.
func (m *Machine) pairAccessSIMD(rt, rt2 uint, addr, scale uint64, load bool) {
	if load {
		m.loadVec(rt, addr, scale)
		m.loadVec(rt2, addr+scale, scale)
		return
	}
	m.storeVec(rt, addr, scale)
	m.storeVec(rt2, addr+scale, scale)
}

// execLoadStore executes the single-register load/store family:
// LDR/STR and the sign-extending and sub-word variants, LDUR/STUR,
// post/pre-index writeback, register-offset with extend and shift,
// and the unsigned scaled-offset forms.
func (m *Machine) execLoadStore(op uint32, unsignedOffset bool) {
	size := opBits(op, 30, 2)
	simd := opBit(op, 26) == 1
	opc := opBits(op, 22, 2)
	rn := uint(opBits(op, 5, 5))
	rt := uint(opBits(op, 0, 5))

	width := uint64(1) << size
	if simd && opc >= 0b10 {
		if size != 0 {
			m.unhandled(op)
		}
		width = 16
	}
	scale := uint(0)
	for w := width; w > 1; w >>= 1 {
		scale++
	}

	// PRFM occupies the would-be LDRS encodings of the 64-bit size;
	// prefetches retire with no effect.
	if !simd && size == 0b11 && opc == 0b10 {
		if unsignedOffset {
			return
		}
		m.unhandled(op)
	}

	base := m.RegOrSP(rn)
	var addr uint64
	var writeback bool
	var newBase uint64

	switch {
	case unsignedOffset:
		addr = base + opBits(op, 10, 12)<<scale
	case opBit(op, 21) == 1:
		if opBits(op, 10, 2) != 0b10 {
			m.unhandled(op)
		}
		option := opBits(op, 13, 3)
		if option&0b010 == 0 {
			m.unhandled(op)
		}
		shift := uint(0)
		if opBit(op, 12) == 1 {
			shift = scale
		}
		rm := uint(opBits(op, 16, 5))
		addr = base + m.extendReg(rm, option, shift)
	default:
		imm9 := insts.SignExtend(opBits(op, 12, 9), 8)
		switch opBits(op, 10, 2) {
		case addrUnscaled:
			addr = uint64(int64(base) + imm9)
		case addrPost:
			addr = base
			writeback = true
			newBase = uint64(int64(base) + imm9)
		case addrPre:
			addr = uint64(int64(base) + imm9)
			writeback = true
			newBase = addr
		default:
			m.unhandled(op)
		}
	}

	if simd {
		if opc == 0b00 || opc == 0b10 {
			m.storeVec(rt, addr, width)
		} else {
			m.loadVec(rt, addr, width)
		}
	} else {
		switch opc {
		case 0b00: // store
			m.storeTruncated(addr, width, m.Reg(rt))
		case 0b01: // zero-extending load
			m.SetReg(rt, m.loadZeroExtend(addr, width))
		case 0b10: // sign-extending load, 64-bit destination
			m.SetReg(rt, m.loadSignExtend(addr, width))
		case 0b11: // sign-extending load, 32-bit destination
			if size >= 0b10 {
				m.unhandled(op)
			}
			m.SetReg(rt, uint64(uint32(m.loadSignExtend(addr, width))))
		}
	}

	if writeback {
		m.SetRegOrSP(rn, newBase)
	}
}

func (m *Machine) observeAccess(addr, width uint64, write bool) {
	if m.observer != nil {
		m.observer.Access(addr, width, write)
	}
}

func (m *Machine) loadZeroExtend(addr, width uint64) uint64 {
	m.observeAccess(addr, width, false)
	switch width {
	case 1:
		return uint64(m.mem.Read8(addr))
	case 2:
		return uint64(m.mem.Read16(addr))
	case 4:
		return uint64(m.mem.Read32(addr))
	default:
		return m.mem.Read64(addr)
	}
}

func (m *Machine) loadSignExtend(addr, width uint64) uint64 {
	m.observeAccess(addr, width, false)
	switch width {
	case 1:
		return uint64(int64(int8(m.mem.Read8(addr))))
	case 2:
		return uint64(int64(int16(m.mem.Read16(addr))))
	default:
		return uint64(int64(int32(m.mem.Read32(addr))))
	}
}

func (m *Machine) storeTruncated(addr, width, val uint64) {
	m.observeAccess(addr, width, true)
	switch width {
	case 1:
		m.mem.Write8(addr, uint8(val))
	case 2:
		m.mem.Write16(addr, uint16(val))
	case 4:
		m.mem.Write32(addr, uint32(val))
	default:
		m.mem.Write64(addr, val)
	}
}

// loadVec loads width bytes into vector register vt, zeroing the
// remaining high bytes.
func (m *Machine) loadVec(vt uint, addr, width uint64) {
	m.observeAccess(addr, width, false)
	v := &m.Vregs[vt]
	v.Zero()
	for i := uint64(0); i < width; i++ {
		v.SetU8(uint(i), m.mem.Read8(addr+i))
	}
}

// storeVec stores the low width bytes of vector register vt.
func (m *Machine) storeVec(vt uint, addr, width uint64) {
	m.observeAccess(addr, width, true)
	v := &m.Vregs[vt]
	for i := uint64(0); i < width; i++ {
		m.mem.Write8(addr+i, v.U8(uint(i)))
	}
}
