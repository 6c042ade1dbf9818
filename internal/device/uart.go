package device

import (
	"bytes"
	"io"
)

// UART register offsets, per spec: a byte-wide data port and two
// word-wide status/control registers. This is deliberately far simpler
// than a 16550 — it exists to prove out MMIO dispatch and the touch
// flag, not to model real UART hardware.
const (
	UARTRegData    = 0x00
	UARTRegStatus  = 0x04
	UARTRegControl = 0x08
)

const (
	uartStatusTXReady = 1 << 0
	uartStatusRXValid = 1 << 1
)

// UART is the reference console device. Writes to the data register
// are emitted one byte at a time to Output (flushed immediately, since
// Output is expected to be unbuffered or self-flushing such as
// os.Stderr); reads from the data register drain an input queue fed by
// FeedInput.
type UART struct {
	name   string
	Output io.Writer

	input bytes.Buffer
}

// NewUART creates a UART that writes transmitted bytes to out.
func NewUART(name string, out io.Writer) *UART {
	return &UART{name: name, Output: out}
}

// Name implements Device.
func (u *UART) Name() string { return u.name }

// FeedInput queues bytes to be returned by subsequent reads of the
// data register.
func (u *UART) FeedInput(data []byte) {
	u.input.Write(data)
}

// Read implements Device.
func (u *UART) Read(offset uint64, size int) (uint64, error) {
	switch offset {
	case UARTRegData:
		if size != 1 {
			return 0, unsupported(u.name, offset, size)
		}
		if u.input.Len() == 0 {
			return 0, nil
		}
		b, _ := u.input.ReadByte()
		return uint64(b), nil

	case UARTRegStatus:
		if size != 4 {
			return 0, unsupported(u.name, offset, size)
		}
		status := uint64(uartStatusTXReady)
		if u.input.Len() > 0 {
			status |= uartStatusRXValid
		}
		return status, nil

	case UARTRegControl:
		if size != 4 {
			return 0, unsupported(u.name, offset, size)
		}
		return 0, nil

	default:
		return 0, unsupported(u.name, offset, size)
	}
}

// Write implements Device.
func (u *UART) Write(offset uint64, size int, data uint64) error {
	switch offset {
	case UARTRegData:
		if size != 1 {
			return unsupported(u.name, offset, size)
		}
		_, err := u.Output.Write([]byte{byte(data)})
		if f, ok := u.Output.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
		return err

	case UARTRegControl:
		if size != 4 {
			return unsupported(u.name, offset, size)
		}
		return nil // accepted and ignored

	case UARTRegStatus:
		return unsupported(u.name, offset, size) // status is read-only

	default:
		return unsupported(u.name, offset, size)
	}
}
