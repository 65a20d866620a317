package loader

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Image is a guest address space ready for execution: segments copied
// into a flat buffer, heap room behind them, and a stack at the top
// carrying the process arguments.
type Image struct {
	// Mem is the flat guest memory buffer.
	Mem []byte
	// Base is the guest address of Mem[0].
	Base uint64
	// Entry is the initial PC.
	Entry uint64
	// StackSize is the committed stack size.
	StackSize uint64
	// InitialSP is the initial stack pointer; it addresses argc.
	InitialSP uint64
	// Brk is the initial program break for the supervisor's heap.
	Brk uint64
	// MmapBase is where anonymous mappings start growing.
	MmapBase uint64
}

const (
	pageSize = 4096

	// DefaultStackSize is the committed stack size (8MB).
	DefaultStackSize = 8 * 1024 * 1024

	// DefaultHeapSize is the room reserved between the program break
	// and the mmap region.
	DefaultHeapSize = 64 * 1024 * 1024

	// DefaultMmapSize is the room reserved for anonymous mappings.
	DefaultMmapSize = 64 * 1024 * 1024
)

// Auxiliary vector tags laid out on the initial stack.
const (
	atNull   = 0
	atPagesz = 6
	atRandom = 25
)

// BuildImage lays out a parsed program in a flat buffer: segments at
// their linked addresses, BSS zeroed, a heap region after the break,
// an mmap region, and the stack at the top with the SysV argument
// block (argc, argv, envp, auxv, strings) already in place.
func BuildImage(prog *Program, args, env []string) (*Image, error) {
	base := ^uint64(0)
	end := uint64(0)
	for _, seg := range prog.Segments {
		if seg.VirtAddr < base {
			base = seg.VirtAddr
		}
		if segEnd := seg.VirtAddr + seg.MemSize; segEnd > end {
			end = segEnd
		}
	}
	base &^= pageSize - 1
	brk := (end + pageSize - 1) &^ (pageSize - 1)

	mmapBase := brk + DefaultHeapSize
	stackBase := mmapBase + DefaultMmapSize
	top := stackBase + DefaultStackSize
	size := top - base

	img := &Image{
		Mem:       make([]byte, size),
		Base:      base,
		Entry:     prog.EntryPoint,
		StackSize: DefaultStackSize,
		Brk:       brk,
		MmapBase:  mmapBase,
	}

	for _, seg := range prog.Segments {
		off := seg.VirtAddr - base
		if off+seg.MemSize > size {
			return nil, fmt.Errorf("segment at 0x%x does not fit in the address space", seg.VirtAddr)
		}
		copy(img.Mem[off:], seg.Data)
	}

	img.InitialSP = img.buildStack(top, args, env)
	return img, nil
}

// buildStack writes the initial process stack below top and returns
// the initial SP: strings and the random block at the very top, then
// the auxv, envp, and argv vectors, with argc at SP.
func (img *Image) buildStack(top uint64, args, env []string) uint64 {
	write := func(addr uint64, b []byte) {
		copy(img.Mem[addr-img.Base:], b)
	}

	// Strings first, from the top down.
	ptr := top
	place := func(s string) uint64 {
		ptr -= uint64(len(s)) + 1
		write(ptr, append([]byte(s), 0))
		return ptr
	}
	argPtrs := make([]uint64, len(args))
	for i := len(args) - 1; i >= 0; i-- {
		argPtrs[i] = place(args[i])
	}
	envPtrs := make([]uint64, len(env))
	for i := len(env) - 1; i >= 0; i-- {
		envPtrs[i] = place(env[i])
	}

	// 16 bytes of randomness for AT_RANDOM.
	ptr -= 16
	randomAddr := ptr
	var seed [16]byte
	_, _ = rand.Read(seed[:])
	write(randomAddr, seed[:])

	auxv := []uint64{
		atPagesz, pageSize,
		atRandom, randomAddr,
		atNull, 0,
	}

	// One word for argc, the argv pointers plus NULL, the envp
	// pointers plus NULL, then the auxv pairs.
	words := 1 + len(argPtrs) + 1 + len(envPtrs) + 1 + len(auxv)
	sp := (ptr - uint64(words)*8) &^ 15

	addr := sp
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(img.Mem[addr-img.Base:], v)
		addr += 8
	}
	put(uint64(len(args)))
	for _, p := range argPtrs {
		put(p)
	}
	put(0)
	for _, p := range envPtrs {
		put(p)
	}
	put(0)
	for _, v := range auxv {
		put(v)
	}
	return sp
}
