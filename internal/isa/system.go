package isa

import (
	"github.com/rv64lab/emu64/internal/cpustate"
	"github.com/rv64lab/emu64/internal/event"
)

// execEBREAK sets the current event to Halted; the execution loop
// observes it and ends the run.
func execEBREAK(st *cpustate.State, inst uint32, pc uint64) error {
	st.Event = event.Event{Kind: event.Halted}
	return nil
}

// execECALL and execFENCE are silent no-ops: this emulator has no
// supervisor/environment to trap into and no multi-hart memory model
// to order, so both leave architectural state untouched rather than
// raising an unsupported fault.
func execECALL(st *cpustate.State, inst uint32, pc uint64) error {
	return nil
}

func execFENCE(st *cpustate.State, inst uint32, pc uint64) error {
	return nil
}
