//go:build !tracer

package core

import "github.com/rv64lab/emu64/internal/decoder"

// EnableTracer is a no-op without the tracer build tag.
func (m *Machine) EnableTracer(size int) {}

func (m *Machine) traceStep(pc uint64, inst uint32, desc *decoder.Descriptor) {}

// TraceSnapshot always returns nil without the tracer build tag.
func (m *Machine) TraceSnapshot() []TraceEntry { return nil }
