// Package device defines the MMIO device contract shared by every
// peripheral reachable from the bus, plus the reference UART and
// timer devices required for conformance.
package device

import "fmt"

// Device is the contract every memory-mapped peripheral implements.
// Tick and IRQPending are optional and live in the separate Ticker and
// IRQSource interfaces (most devices are pure combinational register
// files). The UART and Timer implement neither, and the bus only ever
// calls Read and Write.
type Device interface {
	Name() string
	Read(offset uint64, size int) (uint64, error)
	Write(offset uint64, size int, data uint64) error
}

// Ticker is implemented by devices that need to advance internal state
// (e.g. a countdown) once per step.
type Ticker interface {
	Tick(cycles uint64)
}

// IRQSource is implemented by devices that can assert an interrupt.
type IRQSource interface {
	IRQPending() (line uint32, pending bool)
}

// UnsupportedError is returned by a device that rejects an access it
// cannot perform (wrong width, wrong offset for its register file).
type UnsupportedError struct {
	Device string
	Offset uint64
	Size   int
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("device %s: unsupported access at offset 0x%x size %d", e.Device, e.Offset, e.Size)
}

func unsupported(name string, offset uint64, size int) error {
	return &UnsupportedError{Device: name, Offset: offset, Size: size}
}
