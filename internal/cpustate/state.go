// Package cpustate holds the reconstructed processor state: the 32
// general-purpose registers (x0 hardwired to zero), the two-phase
// pc/npc pair, a sparse CSR map, a handle to the bus, and the
// pending-exception / current-event slots instruction handlers write
// into.
package cpustate

import (
	"fmt"
	"strings"

	"github.com/rv64lab/emu64/internal/bus"
	"github.com/rv64lab/emu64/internal/event"
	"github.com/rv64lab/emu64/internal/trap"
)

// Extensions records which optional ISA extensions are enabled.
type Extensions struct {
	M bool
	A bool
	C bool
}

// CSR numbers this emulator implements. Any other number is "invalid"
// per spec: reads fail, writes are silently dropped.
const (
	CSRCycle    uint16 = 0xC00
	CSRTime     uint16 = 0xC01
	CSRInstret  uint16 = 0xC02
	CSRMstatus  uint16 = 0x300
	CSRMisa     uint16 = 0x301
	CSRMtvec    uint16 = 0x305
	CSRMscratch uint16 = 0x340
	CSRMepc     uint16 = 0x341
	CSRMcause   uint16 = 0x342
	CSRMtval    uint16 = 0x343
	CSRMhartid  uint16 = 0xF14
)

// State is the processor's architectural state.
type State struct {
	X [32]uint64

	PC  uint64
	NPC uint64

	CSR map[uint16]uint64

	Bus *bus.Bus
	Ext Extensions

	// Pending holds an exception a handler recorded for the execution
	// loop to observe after the step. It is never used for normal
	// control flow.
	Pending error

	// Event is the current step's observable occurrence, reset to
	// event.Event{} at the start of every step by the execution loop.
	Event event.Event
}

// New creates a State bound to bus b with the given enabled
// extensions, CSRs initialized to their reset values.
func New(b *bus.Bus, ext Extensions) *State {
	misa := uint64(1) << 8 // I
	if ext.M {
		misa |= 1 << 12
	}
	if ext.A {
		misa |= 1 << 0
	}
	if ext.C {
		misa |= 1 << 2
	}
	misa |= uint64(2) << 62 // MXL = 64-bit

	return &State{
		Bus: b,
		Ext: ext,
		CSR: map[uint16]uint64{
			CSRCycle:    0,
			CSRTime:     0,
			CSRInstret:  0,
			CSRMstatus:  0,
			CSRMisa:     misa,
			CSRMtvec:    0,
			CSRMscratch: 0,
			CSRMepc:     0,
			CSRMcause:   0,
			CSRMtval:    0,
			CSRMhartid:  0,
		},
	}
}

// ReadReg reads GPR n. x0 always reads 0. n >= 32 is a programming
// bug and panics.
func (s *State) ReadReg(n uint32) uint64 {
	if n >= 32 {
		panic(&trap.InvalidRegister{N: n})
	}
	if n == 0 {
		return 0
	}
	return s.X[n]
}

// WriteReg writes GPR n. Writes to x0 are silently dropped. n >= 32 is
// a programming bug and panics.
func (s *State) WriteReg(n uint32, v uint64) {
	if n >= 32 {
		panic(&trap.InvalidRegister{N: n})
	}
	if n == 0 {
		return
	}
	s.X[n] = v
}

// SyncPC commits npc into pc. It is the only way pc may change; every
// other write in the system goes through npc.
func (s *State) SyncPC() {
	s.PC = s.NPC
}

// ReadCSR returns the value of CSR num, or trap.InvalidCsr if it is
// not implemented.
func (s *State) ReadCSR(num uint16) (uint64, error) {
	v, ok := s.CSR[num]
	if !ok {
		return 0, &trap.InvalidCsr{N: num}
	}
	return v, nil
}

// WriteCSR sets CSR num if implemented. Writes to unimplemented CSRs
// are silently ignored, matching the "architectural no-op" rule for
// writes to things this design doesn't model.
func (s *State) WriteCSR(num uint16, val uint64) {
	if _, ok := s.CSR[num]; ok {
		s.CSR[num] = val
	}
}

// SetPendingException records an exception for the execution loop to
// observe after the current step completes.
func (s *State) SetPendingException(err error) {
	s.Pending = err
}

// TakePending returns and clears the pending exception slot.
func (s *State) TakePending() error {
	err := s.Pending
	s.Pending = nil
	return err
}

// String renders a diagnostic register dump: pc followed by x0..x31,
// four per line, used in the non-GDB fault path.
func (s *State) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pc  = 0x%016x\n", s.PC)
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(&b, "x%-2d = 0x%016x  x%-2d = 0x%016x  x%-2d = 0x%016x  x%-2d = 0x%016x\n",
			i, s.ReadReg(uint32(i)),
			i+1, s.ReadReg(uint32(i+1)),
			i+2, s.ReadReg(uint32(i+2)),
			i+3, s.ReadReg(uint32(i+3)))
	}
	return b.String()
}
