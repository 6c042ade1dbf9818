package core

import "github.com/rv64lab/emu64/internal/ring"

// TraceEntry is a single retired instruction captured by the
// per-instruction trace ring when the tracer build tag is enabled.
type TraceEntry struct {
	PC   uint64
	Inst uint32
	Name string
}

type tracerState struct {
	ring *ring.Buffer[TraceEntry]
}
