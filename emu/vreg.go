package emu

import (
	"encoding/binary"
	"math"
)

// Vec128 is a 128-bit SIMD&FP register. The byte array is the
// little-endian lane 0..15 view; typed accessors reinterpret it at
// every element width the architecture defines.
type Vec128 [16]byte

// U8 reads byte lane i.
func (v *Vec128) U8(i uint) uint8 { return v[i] }

// U16 reads halfword lane i.
func (v *Vec128) U16(i uint) uint16 { return binary.LittleEndian.Uint16(v[i*2:]) }

// U32 reads word lane i.
func (v *Vec128) U32(i uint) uint32 { return binary.LittleEndian.Uint32(v[i*4:]) }

// U64 reads doubleword lane i.
func (v *Vec128) U64(i uint) uint64 { return binary.LittleEndian.Uint64(v[i*8:]) }

// F32 reads single-precision lane i.
func (v *Vec128) F32(i uint) float32 { return math.Float32frombits(v.U32(i)) }

// F64 reads double-precision lane i.
func (v *Vec128) F64(i uint) float64 { return math.Float64frombits(v.U64(i)) }

// Elem reads lane i at the given element size in bytes, zero-extended.
func (v *Vec128) Elem(i, esize uint) uint64 {
	switch esize {
	case 1:
		return uint64(v.U8(i))
	case 2:
		return uint64(v.U16(i))
	case 4:
		return uint64(v.U32(i))
	default:
		return v.U64(i)
	}
}

// SetU8 writes byte lane i.
func (v *Vec128) SetU8(i uint, val uint8) { v[i] = val }

// SetU16 writes halfword lane i.
func (v *Vec128) SetU16(i uint, val uint16) { binary.LittleEndian.PutUint16(v[i*2:], val) }

// SetU32 writes word lane i.
func (v *Vec128) SetU32(i uint, val uint32) { binary.LittleEndian.PutUint32(v[i*4:], val) }

// SetU64 writes doubleword lane i.
func (v *Vec128) SetU64(i uint, val uint64) { binary.LittleEndian.PutUint64(v[i*8:], val) }

// SetF32 writes single-precision lane i.
func (v *Vec128) SetF32(i uint, val float32) { v.SetU32(i, math.Float32bits(val)) }

// SetF64 writes double-precision lane i.
func (v *Vec128) SetF64(i uint, val float64) { v.SetU64(i, math.Float64bits(val)) }

// SetElem writes lane i at the given element size in bytes from the
// low bits of val.
func (v *Vec128) SetElem(i, esize uint, val uint64) {
	switch esize {
	case 1:
		v.SetU8(i, uint8(val))
	case 2:
		v.SetU16(i, uint16(val))
	case 4:
		v.SetU32(i, uint32(val))
	default:
		v.SetU64(i, val)
	}
}

// Zero clears all 128 bits.
func (v *Vec128) Zero() { *v = Vec128{} }

// ZeroTop clears every byte from offset upward. Scalar writes of width
// W bytes go through this so the bytes above the result lane read as
// zero.
func (v *Vec128) ZeroTop(offset uint) {
	for i := offset; i < 16; i++ {
		v[i] = 0
	}
}

// SetScalar writes a scalar of esize bytes into lane 0 and zeroes the
// remaining bytes of the register.
func (v *Vec128) SetScalar(esize uint, val uint64) {
	v.Zero()
	v.SetElem(0, esize, val)
}
