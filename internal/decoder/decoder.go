// Package decoder implements the instruction decoder: an
// opcode-bucketed mask/match table over immutable instruction
// descriptors, plus an optional hot-path cache keyed on the raw
// instruction word.
package decoder

import (
	"fmt"

	"github.com/rv64lab/emu64/internal/cpustate"
)

// Handler executes one instruction against state, mutating registers,
// memory, CSRs and npc through the contract of cpustate.State and
// bus.Bus.
type Handler func(st *cpustate.State, inst uint32, pc uint64) error

// Descriptor is an immutable mask/match record: a 32-bit instruction i
// belongs to this descriptor iff (i & Mask) == Identifier.
type Descriptor struct {
	Mask       uint32
	Identifier uint32
	Name       string
	Execute    Handler
}

func (d *Descriptor) matches(inst uint32) bool {
	return inst&d.Mask == d.Identifier
}

// InstructionNotFoundError is returned when no descriptor matches.
type InstructionNotFoundError struct {
	Inst uint32
}

func (e *InstructionNotFoundError) Error() string {
	return fmt.Sprintf("decoder: no descriptor matches instruction word 0x%08x", e.Inst)
}

const numBuckets = 128

// Decoder resolves instruction words to descriptors.
type Decoder struct {
	buckets           [numBuckets][]*Descriptor
	compressed        []*Descriptor
	compressedEnabled bool
	cache             *cache
}

// Build groups descs into opcode buckets (insertion order preserved
// within a bucket, so "I before M before A" search order holds as long
// as callers pass descs in that order) and, if compressedEnabled,
// prepares compressed-instruction decoding. cacheSize of 0 disables
// the hot-path cache.
func Build(descs []*Descriptor, compressedEnabled bool, cacheSize int) *Decoder {
	d := &Decoder{compressedEnabled: compressedEnabled}
	for _, desc := range descs {
		bucket := desc.Identifier & 0x7F
		d.buckets[bucket] = append(d.buckets[bucket], desc)
	}
	if cacheSize > 0 {
		d.cache = newCache(cacheSize)
	}
	return d
}

// Decode resolves a 32-bit-window instruction word. If the low two
// bits are not both set, raw is interpreted as a 16-bit compressed
// instruction (its high 16 bits are ignored); otherwise raw is decoded
// directly against the opcode buckets.
func (d *Decoder) Decode(raw uint32) (*Descriptor, error) {
	if raw&0b11 != 0b11 {
		return d.decodeCompressed(uint16(raw))
	}

	if d.cache != nil {
		if desc, ok := d.cache.get(raw); ok {
			return desc, nil
		}
	}

	bucket := raw & 0x7F
	for _, desc := range d.buckets[bucket] {
		if desc.matches(raw) {
			if d.cache != nil {
				d.cache.put(raw, desc)
			}
			return desc, nil
		}
	}
	return nil, &InstructionNotFoundError{Inst: raw}
}

func (d *Decoder) decodeCompressed(inst uint16) (*Descriptor, error) {
	if !d.compressedEnabled {
		return nil, &InstructionNotFoundError{Inst: uint32(inst)}
	}

	expanded, name, err := expandCompressed(inst)
	if err != nil {
		return nil, &InstructionNotFoundError{Inst: uint32(inst)}
	}

	base := raw32Decode(d, expanded)
	if base == nil {
		return nil, &InstructionNotFoundError{Inst: uint32(inst)}
	}

	inner := base
	return &Descriptor{
		Mask:       0xFFFF,
		Identifier: uint32(inst) & 0xFFFF,
		Name:       "c." + name,
		Execute: func(st *cpustate.State, _ uint32, pc uint64) error {
			return inner.Execute(st, expanded, pc)
		},
	}, nil
}

// raw32Decode looks a fully-expanded 32-bit word up in the ordinary
// opcode buckets, bypassing the compressed check (the expanded word
// always has its low two bits set).
func raw32Decode(d *Decoder, raw uint32) *Descriptor {
	bucket := raw & 0x7F
	for _, desc := range d.buckets[bucket] {
		if desc.matches(raw) {
			return desc
		}
	}
	return nil
}
