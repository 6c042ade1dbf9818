//go:build tracer

package core

import (
	"github.com/rv64lab/emu64/internal/decoder"
	"github.com/rv64lab/emu64/internal/ring"
)

// EnableTracer turns on the per-instruction trace ring, sized from
// [debug] instruction_tracer_list_size. Calling it again replaces the
// existing ring.
func (m *Machine) EnableTracer(size int) {
	m.tracer.ring = ring.New[TraceEntry](size)
}

func (m *Machine) traceStep(pc uint64, inst uint32, desc *decoder.Descriptor) {
	if m.tracer.ring == nil {
		return
	}
	m.tracer.ring.PushOverwrite(TraceEntry{PC: pc, Inst: inst, Name: desc.Name})
}

// TraceSnapshot returns the captured trace entries, oldest first. Nil
// if the tracer was never enabled.
func (m *Machine) TraceSnapshot() []TraceEntry {
	if m.tracer.ring == nil {
		return nil
	}
	return m.tracer.ring.Snapshot()
}
