package emu

import (
	"fmt"
	"os"
)

// SupervisorHandler is invoked when the guest executes SVC. The
// syscall number is in x8 and arguments in x0-x5; the handler writes
// the return value to x0 and may call EndEmulation on process exit.
// The core is quiesced for the duration of the call, so the handler
// may mutate guest memory freely.
type SupervisorHandler interface {
	InvokeSVC(m *Machine)
}

// TerminationHandler is invoked on unrecoverable decode or memory
// errors with a description and the offending value (opcode or
// address). It must not return.
type TerminationHandler func(m *Machine, msg string, value uint64)

// Tracer renders one instruction before it executes. It must not
// mutate machine state.
type Tracer interface {
	Trace(m *Machine, op uint32)
}

// MemoryObserver sees every guest memory access the dispatch loop
// performs: instruction fetches and data loads/stores. Observers model
// memory hierarchies; they cannot alter the access.
type MemoryObserver interface {
	Fetch(addr uint64)
	Access(addr uint64, size uint64, write bool)
}

// Machine is the architectural state of a single AArch64 hart running
// at EL0, plus a borrowed view of guest memory.
type Machine struct {
	// Regs holds x0 through x31. Register 31 is the stack pointer;
	// encodings that treat 31 as the zero register are resolved by the
	// accessors, never by writing here.
	Regs [32]uint64

	// Vregs holds the 32 SIMD&FP registers v0 through v31.
	Vregs [32]Vec128

	// PC is the guest address of the next instruction to fetch.
	PC uint64

	// FlagN, FlagZ, FlagC, FlagV are the NZCV condition flags.
	FlagN, FlagZ, FlagC, FlagV bool

	// TPIDR is the EL0 thread-pointer system register.
	TPIDR uint64

	// FPCR is the floating-point control register. Reads observe 0.
	FPCR uint64

	// Cycles counts retired instructions, one per dispatch step.
	Cycles uint64

	mem       *Memory
	stackSize uint64
	stackTop  uint64

	control    control
	supervisor SupervisorHandler
	terminate  TerminationHandler
	tracer     Tracer
	observer   MemoryObserver
	checks     bool
}

// MachineOption configures a Machine at construction.
type MachineOption func(*Machine)

// WithSupervisor installs the SVC hook.
func WithSupervisor(handler SupervisorHandler) MachineOption {
	return func(m *Machine) { m.supervisor = handler }
}

// WithTermination installs the hard-termination hook.
func WithTermination(handler TerminationHandler) MachineOption {
	return func(m *Machine) { m.terminate = handler }
}

// WithTracer installs the per-instruction trace renderer.
func WithTracer(t Tracer) MachineOption {
	return func(m *Machine) { m.tracer = t }
}

// WithMemoryObserver installs a memory-hierarchy observer.
func WithMemoryObserver(obs MemoryObserver) MachineOption {
	return func(m *Machine) { m.observer = obs }
}

// WithChecks enables the debug-build checks: memory range checking and
// the per-step PC/SP sanity checks.
func WithChecks(on bool) MachineOption {
	return func(m *Machine) { m.checks = on }
}

// NewMachine constructs a machine over borrowed guest memory. All
// registers start at zero except the stack pointer, which starts at
// topOfStack, and the PC, which starts at entryPC. The host is
// responsible for having laid out argc/argv/envp/auxv at topOfStack.
func NewMachine(mem *Memory, entryPC, stackSize, topOfStack uint64, opts ...MachineOption) *Machine {
	m := &Machine{
		PC:        entryPC,
		mem:       mem,
		stackSize: stackSize,
		stackTop:  topOfStack,
	}
	m.Regs[31] = topOfStack
	m.terminate = defaultTermination
	for _, opt := range opts {
		opt(m)
	}
	mem.checks = m.checks
	mem.fatal = func(msg string, value uint64) { m.fatal(msg, value) }
	return m
}

// Memory returns the machine's guest memory view.
func (m *Machine) Memory() *Memory { return m.mem }

// StackTop returns the initial stack top address.
func (m *Machine) StackTop() uint64 { return m.stackTop }

// Reg reads a general-purpose register in zero-register context:
// register 31 reads as zero.
func (m *Machine) Reg(r uint) uint64 {
	if r == 31 {
		return 0
	}
	return m.Regs[r]
}

// SetReg writes a general-purpose register in zero-register context:
// writes to register 31 are discarded.
func (m *Machine) SetReg(r uint, val uint64) {
	if r == 31 {
		return
	}
	m.Regs[r] = val
}

// RegOrSP reads a general-purpose register in SP context: register 31
// reads the stack pointer.
func (m *Machine) RegOrSP(r uint) uint64 {
	return m.Regs[r]
}

// SetRegOrSP writes a general-purpose register in SP context: register
// 31 writes the stack pointer.
func (m *Machine) SetRegOrSP(r uint, val uint64) {
	m.Regs[r] = val
}

// Run executes instructions until either maxCycles have retired or the
// end-emulation bit is observed (and cleared) at a step boundary.
// Returns the number of instructions retired by this call.
func (m *Machine) Run(maxCycles uint64) uint64 {
	start := m.Cycles
	for m.Cycles-start < maxCycles {
		if m.control.set(ctrlEndEmulation, false) {
			break
		}
		if m.checks {
			m.checkStep()
		}
		op := m.mem.Read32(m.PC)
		if m.observer != nil {
			m.observer.Fetch(m.PC)
		}
		if m.tracer != nil && m.control.isSet(ctrlTraceInstructions) {
			m.tracer.Trace(m, op)
		}
		m.dispatch(op)
		m.Cycles++
	}
	return m.Cycles - start
}

// checkStep validates the guest-program invariants that release builds
// omit: PC inside memory and 4-byte aligned, SP inside its region and
// 16-byte aligned.
func (m *Machine) checkStep() {
	if !m.mem.IsValid(m.PC, 4) || m.PC&3 != 0 {
		m.fatal("pc is invalid:", m.PC)
	}
	sp := m.Regs[31]
	if sp&0xf != 0 {
		m.fatal("stack pointer is misaligned:", sp)
	}
	if sp > m.stackTop || sp < m.stackTop-m.stackSize {
		m.fatal("stack pointer is out of the stack region:", sp)
	}
}

// fatal routes an unrecoverable error to the termination hook. The
// hook must not return; if it does, the core panics rather than
// executing an instruction it could not decode.
func (m *Machine) fatal(msg string, value uint64) {
	m.terminate(m, msg, value)
	panic(fmt.Sprintf("termination handler returned: %s %#x", msg, value))
}

// unhandled reports an encoding in a handled family whose sub-fields
// match no known instruction.
func (m *Machine) unhandled(op uint32) {
	m.fatal(fmt.Sprintf("unhandled instruction at pc %#x:", m.PC), uint64(op))
}

func defaultTermination(m *Machine, msg string, value uint64) {
	fmt.Fprintf(os.Stderr, "a64emu fatal: %s %#x\n", msg, value)
	fmt.Fprintf(os.Stderr, "  pc %#x cycles %d\n", m.PC, m.Cycles)
	for r := 0; r < 32; r += 4 {
		fmt.Fprintf(os.Stderr, "  x%-2d %016x  x%-2d %016x  x%-2d %016x  x%-2d %016x\n",
			r, m.Regs[r], r+1, m.Regs[r+1], r+2, m.Regs[r+2], r+3, m.Regs[r+3])
	}
	os.Exit(1)
}
