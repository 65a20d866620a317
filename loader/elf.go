// Package loader loads statically linked ARM64 ELF executables and
// builds the flat guest memory image the emulator runs against,
// including the initial stack with argc/argv/envp/auxv.
package loader

import (
	"debug/elf"
	"fmt"
	"io"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address where this segment is loaded.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Symbol is one entry of the executable's symbol table, used by the
// tracer to annotate addresses.
type Symbol struct {
	Name  string
	Addr  uint64
	Size  uint64
}

// Program represents a parsed ELF executable.
type Program struct {
	// EntryPoint is the virtual address where execution begins.
	EntryPoint uint64
	// Segments contains all PT_LOAD segments.
	Segments []Segment
	// Symbols holds the function symbols in symbol-table order.
	Symbols []Symbol
}

// Load parses an ARM64 ELF binary.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("not a 64-bit ELF file")
	}
	if f.Machine != elf.EM_AARCH64 {
		return nil, fmt.Errorf("not an ARM64 ELF file (machine type: %v)", f.Machine)
	}
	if f.Type != elf.ET_EXEC {
		return nil, fmt.Errorf("not a statically linked executable (type: %v)", f.Type)
	}

	prog := &Program{EntryPoint: f.Entry}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: phdr.Vaddr,
			Data:     data,
			MemSize:  phdr.Memsz,
			Flags:    flags,
		})
	}

	if len(prog.Segments) == 0 {
		return nil, fmt.Errorf("no loadable segments")
	}

	// Symbols are optional; stripped binaries simply trace without
	// names.
	if syms, err := f.Symbols(); err == nil {
		for _, s := range syms {
			if elf.ST_TYPE(s.Info) == elf.STT_FUNC && s.Value != 0 {
				prog.Symbols = append(prog.Symbols, Symbol{Name: s.Name, Addr: s.Value, Size: s.Size})
			}
		}
	}

	return prog, nil
}

// LookupSymbol resolves an address to the enclosing function symbol
// and the offset into it. Suitable as the tracer's lookup hook.
func (p *Program) LookupSymbol(addr uint64) (string, uint64) {
	best := -1
	for i, s := range p.Symbols {
		if s.Addr <= addr && (best < 0 || s.Addr > p.Symbols[best].Addr) {
			if s.Size == 0 || addr < s.Addr+s.Size {
				best = i
			}
		}
	}
	if best < 0 {
		return "", 0
	}
	return p.Symbols[best].Name, addr - p.Symbols[best].Addr
}
