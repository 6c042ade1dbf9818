// Package core implements the fetch-decode-execute loop: the glue
// between the decoder, the processor state, and (when a GDB client is
// attached) the software breakpoint and hardware watchpoint sets owned
// by internal/gdbstub.
package core

import (
	"errors"
	"log/slog"

	"github.com/rv64lab/emu64/internal/bus"
	"github.com/rv64lab/emu64/internal/cpustate"
	"github.com/rv64lab/emu64/internal/decoder"
	"github.com/rv64lab/emu64/internal/event"
	"github.com/rv64lab/emu64/internal/ring"
	"github.com/rv64lab/emu64/internal/trap"
)

// Debugger lets the GDB adapter intercept execution before fetch.
// Machine never mutates the breakpoint set; it only asks.
type Debugger interface {
	// Breakpoint reports whether pc has a software breakpoint and a
	// client is attached, i.e. whether the step should abort with a
	// Break event instead of fetching.
	Breakpoint(pc uint64) bool
}

// Machine wires a processor State to a Decoder and runs the
// fetch-decode-execute loop.
type Machine struct {
	State *cpustate.State
	Dec   *decoder.Decoder

	Events *ring.Buffer[event.Event]

	Reference ReferenceModel
	Debugger  Debugger
	Logger    *slog.Logger

	Halted bool

	tracer tracerState
}

// New creates a Machine. eventCapacity sizes the event ring.
func New(st *cpustate.State, dec *decoder.Decoder, eventCapacity int, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		State:  st,
		Dec:    dec,
		Events: ring.New[event.Event](eventCapacity),
		Logger: logger,
	}
}

func (m *Machine) recordEvent(e event.Event) {
	m.Events.PushOverwrite(e)
}

// fetchRaw reads the 32-bit window at pc the decoder needs (a
// compressed 16-bit instruction decodes correctly from the low half of
// that window). It prefers the bus's unchecked fast path when all 4
// bytes fall inside RAM, falling back to the checked path otherwise —
// including the edge case of a compressed instruction occupying the
// final two bytes of RAM, where only a 2-byte read is in range.
func (m *Machine) fetchRaw(pc uint64) (uint32, error) {
	b := m.State.Bus
	ramEnd := b.RAMBase() + b.RAMSize()
	if pc >= b.RAMBase() && pc+4 <= ramEnd {
		return b.ReadU32Fast(pc), nil
	}

	v, err := b.Read(pc, 4)
	if err == nil {
		return uint32(v), nil
	}

	if pc >= b.RAMBase() && pc+2 <= ramEnd {
		if v2, err2 := b.Read(pc, 2); err2 == nil {
			return uint32(v2), nil
		}
	}
	return 0, err
}

// Step executes exactly one instruction.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	st := m.State
	st.Event = event.Event{}

	st.SyncPC()
	pc := st.PC

	if m.Debugger != nil && m.Debugger.Breakpoint(pc) {
		st.Event = event.Event{Kind: event.Break, Addr: pc}
		m.recordEvent(st.Event)
		return nil
	}

	raw, err := m.fetchRaw(pc)
	if err != nil {
		fault := &trap.InstructionFault{PC: pc}
		st.SetPendingException(fault)
		m.Halted = true
		m.Logger.Error("instruction fetch fault", "pc", pc, "err", err)
		return fault
	}

	desc, err := m.Dec.Decode(raw)
	if err != nil {
		illegal := &trap.IllegalInstruction{Inst: raw, PC: pc}
		st.SetPendingException(illegal)
		m.Halted = true
		m.Logger.Error("illegal instruction", "pc", pc, "inst", raw)
		return illegal
	}

	width := uint64(4)
	if raw&0b11 != 0b11 {
		width = 2
	}
	st.NPC = pc + width

	if err := desc.Execute(st, raw, pc); err != nil {
		var wp *bus.WatchpointError
		if errors.As(err, &wp) {
			kind := event.WatchRead
			if wp.Write {
				kind = event.WatchWrite
			}
			st.Event = event.Event{Kind: kind, Addr: wp.Addr}
			m.recordEvent(st.Event)
			return nil
		}
		st.SetPendingException(err)
		m.Halted = true
		m.Logger.Error("instruction handler error", "pc", pc, "inst", desc.Name, "err", err)
		return err
	}

	if st.Pending != nil {
		// A handler deposited an exception (e.g. InstructionAddressMisaligned)
		// instead of returning a Go error; the loop halts here exactly as it
		// would have for a handler-returned error.
		m.Halted = true
		m.Logger.Error("pending exception", "pc", pc, "inst", desc.Name, "err", st.Pending)
		return st.Pending
	}

	// The instruction completed: commit npc so pc names the next
	// instruction between steps. Faulting steps return above with pc
	// still at the faulting instruction.
	st.SyncPC()

	if st.Event.Kind == event.Halted {
		m.Halted = true
	}
	if st.Event.Kind != event.None {
		m.recordEvent(st.Event)
	}

	if m.Reference != nil {
		if cmpErr := m.difftestStep(); cmpErr != nil {
			st.SetPendingException(cmpErr)
			m.Halted = true
			m.Logger.Error("difftest mismatch", "pc", pc, "err", cmpErr)
			return cmpErr
		}
	}

	m.traceStep(pc, raw, desc)
	m.Logger.Debug("step", "pc", pc, "inst", desc.Name)

	return nil
}

// Steps runs up to n steps, stopping early on halt or on any step that
// produced an observable event (Break, WatchRead, WatchWrite) so
// callers such as the GDB adapter can inspect State.Event and decide
// whether to continue.
func (m *Machine) Steps(n int) error {
	for i := 0; i < n; i++ {
		if m.Halted {
			return nil
		}
		if err := m.Step(); err != nil {
			return err
		}
		if m.State.Event.Kind != event.None {
			return nil
		}
	}
	return nil
}
