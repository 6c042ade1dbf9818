package gdbstub

import (
	"bufio"
	"fmt"
)

// readPacket reads one RSP packet from r, handling the leading '+'/'-'
// acks a real GDB client sometimes interleaves, and returns its
// payload (without the leading '$' or trailing '#cc'). A leading
// 0x03 byte (the interrupt-now signal) is returned alone as "\x03".
func readPacket(r *bufio.Reader) (string, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case '+', '-':
			continue
		case 0x03:
			return "\x03", nil
		case '$':
			var payload []byte
			for {
				c, err := r.ReadByte()
				if err != nil {
					return "", err
				}
				if c == '#' {
					// consume the two-byte checksum
					if _, err := r.Discard(2); err != nil {
						return "", err
					}
					return string(payload), nil
				}
				if c == '}' { // escape
					next, err := r.ReadByte()
					if err != nil {
						return "", err
					}
					payload = append(payload, next^0x20)
					continue
				}
				payload = append(payload, c)
			}
		default:
			// Stray byte outside a packet; ignore it.
		}
	}
}

// encodePacket frames payload as "$payload#cc".
func encodePacket(payload string) string {
	sum := 0
	for i := 0; i < len(payload); i++ {
		sum += int(payload[i])
	}
	return fmt.Sprintf("$%s#%02x", payload, sum&0xff)
}
