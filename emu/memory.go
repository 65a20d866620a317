package emu

import (
	"encoding/binary"
	"math"
)

// Memory is a borrowed view of guest physical memory: a contiguous
// byte buffer owned by the host/loader plus the guest address it is
// mapped at. Translation is identity: guest address a lives at host
// offset a-base. All accesses are little-endian and may be unaligned.
//
// When checks are enabled, out-of-range accesses invoke the fatal hook
// installed by the owning Machine; otherwise accessors trust the guest
// the way the release build of a raw-pointer core would.
type Memory struct {
	data   []byte
	base   uint64
	checks bool
	fatal  func(msg string, value uint64)
}

// NewMemory wraps a host byte buffer as guest memory based at the
// given guest address. The buffer is borrowed, not copied.
func NewMemory(data []byte, base uint64) *Memory {
	return &Memory{
		data:  data,
		base:  base,
		fatal: func(string, uint64) { panic("memory fault with no machine attached") },
	}
}

// Base returns the lowest valid guest address.
func (mem *Memory) Base() uint64 { return mem.base }

// Size returns the size of guest memory in bytes.
func (mem *Memory) Size() uint64 { return uint64(len(mem.data)) }

// IsValid reports whether [addr, addr+size) lies inside guest memory.
func (mem *Memory) IsValid(addr, size uint64) bool {
	off := addr - mem.base
	return off <= uint64(len(mem.data)) && size <= uint64(len(mem.data))-off
}

func (mem *Memory) offset(addr, size uint64) uint64 {
	off := addr - mem.base
	if mem.checks && !mem.IsValid(addr, size) {
		mem.fatal("memory reference outside address space:", addr)
	}
	return off
}

// Read8 loads one byte at a guest address.
func (mem *Memory) Read8(addr uint64) uint8 {
	return mem.data[mem.offset(addr, 1)]
}

// Read16 loads a little-endian halfword at a guest address.
func (mem *Memory) Read16(addr uint64) uint16 {
	return binary.LittleEndian.Uint16(mem.data[mem.offset(addr, 2):])
}

// Read32 loads a little-endian word at a guest address.
func (mem *Memory) Read32(addr uint64) uint32 {
	return binary.LittleEndian.Uint32(mem.data[mem.offset(addr, 4):])
}

// Read64 loads a little-endian doubleword at a guest address.
func (mem *Memory) Read64(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(mem.data[mem.offset(addr, 8):])
}

// ReadFloat32 loads a single-precision float at a guest address.
func (mem *Memory) ReadFloat32(addr uint64) float32 {
	return math.Float32frombits(mem.Read32(addr))
}

// ReadFloat64 loads a double-precision float at a guest address.
func (mem *Memory) ReadFloat64(addr uint64) float64 {
	return math.Float64frombits(mem.Read64(addr))
}

// Write8 stores one byte at a guest address.
func (mem *Memory) Write8(addr uint64, val uint8) {
	mem.data[mem.offset(addr, 1)] = val
}

// Write16 stores a little-endian halfword at a guest address.
func (mem *Memory) Write16(addr uint64, val uint16) {
	binary.LittleEndian.PutUint16(mem.data[mem.offset(addr, 2):], val)
}

// Write32 stores a little-endian word at a guest address.
func (mem *Memory) Write32(addr uint64, val uint32) {
	binary.LittleEndian.PutUint32(mem.data[mem.offset(addr, 4):], val)
}

// Write64 stores a little-endian doubleword at a guest address.
func (mem *Memory) Write64(addr uint64, val uint64) {
	binary.LittleEndian.PutUint64(mem.data[mem.offset(addr, 8):], val)
}

// WriteFloat32 stores a single-precision float at a guest address.
func (mem *Memory) WriteFloat32(addr uint64, val float32) {
	mem.Write32(addr, math.Float32bits(val))
}

// WriteFloat64 stores a double-precision float at a guest address.
func (mem *Memory) WriteFloat64(addr uint64, val float64) {
	mem.Write64(addr, math.Float64bits(val))
}

// Bytes returns the guest bytes [addr, addr+size) as a slice aliasing
// guest memory. Used by the supervisor layer to move data in and out
// of the guest while the core is quiesced.
func (mem *Memory) Bytes(addr, size uint64) []byte {
	off := mem.offset(addr, size)
	return mem.data[off : off+size]
}

// CString reads a NUL-terminated string starting at a guest address.
func (mem *Memory) CString(addr uint64) string {
	off := addr - mem.base
	end := off
	for end < uint64(len(mem.data)) && mem.data[end] != 0 {
		end++
	}
	return string(mem.data[off:end])
}
