package core

import "fmt"

// ReferenceState is the architectural state difftest compares:
// committed pc and the 32 general-purpose registers. Memory is
// deliberately excluded from the seam — a real reference model isn't
// vendored here, and comparing RAM contents is the caller's job when
// one is wired in, consulting the bus's MMIO-touch flag to skip steps
// that performed device I/O the reference model doesn't model.
type ReferenceState struct {
	PC uint64
	X  [32]uint64
}

// ReferenceModel is the difftest seam: an independently-stepped model
// whose state is compared against the primary machine's after every
// step.
type ReferenceModel interface {
	Step() error
	Snapshot() ReferenceState
}

// nopModel never diverges from whatever snapshot it was built with;
// it exists so the difftest seam can be exercised by tests without a
// second real emulator.
type nopModel struct {
	state ReferenceState
}

func (m *nopModel) Step() error             { return nil }
func (m *nopModel) Snapshot() ReferenceState { return m.state }

// NewFixedReference returns a ReferenceModel that always reports s,
// useful for exercising the difftest seam in tests without a second
// real emulator.
func NewFixedReference(s ReferenceState) ReferenceModel {
	return &nopModel{state: s}
}

func (m *Machine) difftestStep() error {
	if err := m.Reference.Step(); err != nil {
		return fmt.Errorf("difftest: reference step: %w", err)
	}
	ref := m.Reference.Snapshot()
	st := m.State
	if ref.PC != st.PC {
		return fmt.Errorf("difftest: pc mismatch: got 0x%x want 0x%x", st.PC, ref.PC)
	}
	for i := 0; i < 32; i++ {
		got := st.ReadReg(uint32(i))
		if ref.X[i] != got {
			return fmt.Errorf("difftest: x%d mismatch: got 0x%x want 0x%x", i, got, ref.X[i])
		}
	}
	return nil
}
