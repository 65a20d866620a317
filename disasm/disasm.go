// Package disasm renders per-instruction traces for the emulator. It
// consumes a borrowed machine and the current opcode and never mutates
// state; writes that fail are dropped so a closed trace sink cannot
// disturb emulation.
package disasm

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/sarchlab/a64emu/emu"
)

// SymbolLookup resolves a guest address to the nearest symbol name
// and the offset from its start. A nil lookup disables symbolization.
type SymbolLookup func(addr uint64) (name string, offset uint64)

// Tracer writes one line per instruction to a sink.
type Tracer struct {
	w       io.Writer
	symbols SymbolLookup
}

// New creates a tracer writing to w, symbolizing addresses through
// lookup when it is non-nil.
func New(w io.Writer, lookup SymbolLookup) *Tracer {
	return &Tracer{w: w, symbols: lookup}
}

// Trace renders the instruction at the machine's PC. Implements
// emu.Tracer.
func (t *Tracer) Trace(m *emu.Machine, op uint32) {
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], op)

	text := "(unknown)"
	if inst, err := arm64asm.Decode(word[:]); err == nil {
		text = arm64asm.GoSyntax(inst, m.PC, t.symname(), nil)
	}

	location := ""
	if t.symbols != nil {
		if name, offset := t.symbols(m.PC); name != "" {
			location = fmt.Sprintf(" <%s+%#x>", name, offset)
		}
	}

	// A failed write is deliberately ignored.
	_, _ = fmt.Fprintf(t.w, "%10d %016x%s %08x %-36s %s x0 %x x1 %x sp %x\n",
		m.Cycles, m.PC, location, op, text, renderFlags(m), m.Regs[0], m.Regs[1], m.Regs[31])
}

func (t *Tracer) symname() func(uint64) (string, uint64) {
	if t.symbols == nil {
		return nil
	}
	return func(addr uint64) (string, uint64) {
		name, offset := t.symbols(addr)
		if name == "" {
			return "", 0
		}
		// GoSyntax wants the symbol base, not the offset from it.
		return name, addr - offset
	}
}

// renderFlags formats NZCV the way the state dumps do: uppercase for
// set, lowercase for clear.
func renderFlags(m *emu.Machine) string {
	flags := []byte("nzcv")
	if m.FlagN {
		flags[0] = 'N'
	}
	if m.FlagZ {
		flags[1] = 'Z'
	}
	if m.FlagC {
		flags[2] = 'C'
	}
	if m.FlagV {
		flags[3] = 'V'
	}
	return string(flags)
}
