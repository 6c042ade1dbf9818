package gdbstub

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rv64lab/emu64/internal/event"
	"github.com/rv64lab/emu64/internal/trap"
)

// dispatch handles one RSP packet and returns its reply payload (the
// caller frames and sends it) plus whether the connection should
// close. An empty reply means "unsupported command" — the correct RSP
// response is simply no reply content, which GDB interprets as
// "feature not implemented" and degrades gracefully.
func (s *Server) dispatch(conn net.Conn, r *bufio.Reader, payload string) (string, bool) {
	if payload == "" {
		return "", false
	}
	switch payload[0] {
	case '?':
		return s.stopReply(), false
	case 'g':
		return encodeAllRegs(s.Machine.State), false
	case 'G':
		if err := decodeAllRegs(s.Machine.State, payload[1:]); err != nil {
			return "E01", false
		}
		return "OK", false
	case 'p':
		n, err := strconv.ParseUint(payload[1:], 16, 32)
		if err != nil {
			return "E01", false
		}
		v, err := readReg(s.Machine.State, uint32(n))
		if err != nil {
			return "E01", false
		}
		return v, false
	case 'P':
		return s.writeRegPacket(payload[1:]), false
	case 'm':
		return s.readMem(payload[1:]), false
	case 'M':
		return s.writeMem(payload[1:]), false
	case 'c':
		return s.runContinue(conn, r), false
	case 's':
		return s.runStep(), false
	case 'Z':
		return s.insertBreak(payload[1:]), false
	case 'z':
		return s.removeBreak(payload[1:]), false
	case 'v':
		return s.dispatchV(conn, r, payload), false
	case 'q':
		return s.queryReply(payload), false
	case 'D':
		return "OK", true
	case 'k':
		return "", true
	default:
		return "", false
	}
}

func (s *Server) writeRegPacket(arg string) string {
	parts := strings.SplitN(arg, "=", 2)
	if len(parts) != 2 {
		return "E01"
	}
	n, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return "E01"
	}
	val, err := decodeU64LE(parts[1])
	if err != nil {
		return "E01"
	}
	if err := writeReg(s.Machine.State, uint32(n), val); err != nil {
		return "E01"
	}
	return "OK"
}

func (s *Server) readMem(arg string) string {
	parts := strings.SplitN(arg, ",", 2)
	if len(parts) != 2 {
		return "E01"
	}
	addr, err := strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return "E01"
	}
	length, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return "E01"
	}
	var sb strings.Builder
	for i := uint64(0); i < length; i++ {
		v, err := s.Machine.State.Bus.Read8(addr + i)
		if err != nil {
			return "E01"
		}
		fmt.Fprintf(&sb, "%02x", v)
	}
	return sb.String()
}

func (s *Server) writeMem(arg string) string {
	head, data, ok := strings.Cut(arg, ":")
	if !ok {
		return "E01"
	}
	parts := strings.SplitN(head, ",", 2)
	if len(parts) != 2 {
		return "E01"
	}
	addr, err := strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return "E01"
	}
	length, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return "E01"
	}
	raw, err := hex.DecodeString(data)
	if err != nil || uint64(len(raw)) != length {
		return "E01"
	}
	for i, b := range raw {
		if err := s.Machine.State.Bus.Write8(addr+uint64(i), b); err != nil {
			return "E01"
		}
	}
	return "OK"
}

func parseZ(arg string) (typ int, addr, length uint64, err error) {
	parts := strings.SplitN(arg, ",", 3)
	if len(parts) < 3 {
		return 0, 0, 0, fmt.Errorf("gdbstub: malformed Z/z packet %q", arg)
	}
	t, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil {
		return 0, 0, 0, err
	}
	a, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	l, err := strconv.ParseUint(parts[2], 16, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	return int(t), a, l, nil
}

// insertBreak implements 'Z type,addr,len'. Types 0/1 (software and
// hardware execution breakpoints) are both backed by the same address
// set, since there's only one hart and no instruction-patching
// distinction to make.
func (s *Server) insertBreak(arg string) string {
	typ, addr, length, err := parseZ(arg)
	if err != nil {
		return "E01"
	}
	switch typ {
	case 0, 1:
		s.breakpoints.Add(addr)
	case 2:
		s.watches.Add(addr, length, watchWrite)
	case 3:
		s.watches.Add(addr, length, watchRead)
	case 4:
		s.watches.Add(addr, length, watchAccess)
	default:
		return ""
	}
	return "OK"
}

func (s *Server) removeBreak(arg string) string {
	typ, addr, length, err := parseZ(arg)
	if err != nil {
		return "E01"
	}
	switch typ {
	case 0, 1:
		if !s.breakpoints.Remove(addr) {
			return "E01"
		}
	case 2, 3, 4:
		if !s.watches.Remove(addr, length) {
			return "E01"
		}
	default:
		return ""
	}
	return "OK"
}

func (s *Server) queryReply(payload string) string {
	switch {
	case strings.HasPrefix(payload, "qSupported"):
		return "PacketSize=1000"
	case payload == "qAttached":
		return "1"
	default:
		return ""
	}
}

func (s *Server) dispatchV(conn net.Conn, r *bufio.Reader, payload string) string {
	if payload == "vCont?" {
		return "vCont;c;s;r"
	}
	action, ok := strings.CutPrefix(payload, "vCont;")
	if !ok {
		return ""
	}
	switch {
	case strings.HasPrefix(action, "c"):
		return s.runContinue(conn, r)
	case strings.HasPrefix(action, "s"):
		return s.runStep()
	case strings.HasPrefix(action, "r"):
		rangeStr := strings.TrimPrefix(action, "r")
		parts := strings.SplitN(rangeStr, ",", 2)
		if len(parts) != 2 {
			return "E01"
		}
		lo, err1 := strconv.ParseUint(parts[0], 16, 64)
		hi, err2 := strconv.ParseUint(strings.SplitN(parts[1], ":", 2)[0], 16, 64)
		if err1 != nil || err2 != nil {
			return "E01"
		}
		return s.runRangeStep(lo, hi)
	default:
		return ""
	}
}

// stopReply renders the current machine/event state as an RSP stop
// reply after Step/Continue/RangeStep return.
func (s *Server) stopReply() string {
	st := s.Machine.State
	switch st.Event.Kind {
	case event.Break:
		return "S05"
	case event.WatchWrite:
		return fmt.Sprintf("T05watch:%x;", st.Event.Addr)
	case event.WatchRead:
		return fmt.Sprintf("T05rwatch:%x;", st.Event.Addr)
	case event.Halted:
		return "S05"
	default:
		if s.Machine.Halted {
			return "W00"
		}
		return "S05"
	}
}

// exceptionReply maps a handler-reported or loop-detected exception to
// the RSP signal-stop reply.
func (s *Server) exceptionReply(err error) string {
	var illegal *trap.IllegalInstruction
	var fault *trap.InstructionFault
	var misaligned *trap.InstructionAddressMisaligned
	switch {
	case errors.As(err, &illegal):
		return "S04" // SIGILL
	case errors.As(err, &fault):
		return "S0b" // SIGSEGV
	case errors.As(err, &misaligned):
		return "S0a" // SIGBUS
	default:
		return "S05" // SIGTRAP
	}
}

func (s *Server) runStep() string {
	m := s.Machine
	if err := m.Step(); err != nil {
		return s.exceptionReply(err)
	}
	return s.stopReply()
}

// runContinue runs until an event, an exception, or a client interrupt
// fires, polling the connection for a 0x03 byte every pollEvery steps.
func (s *Server) runContinue(conn net.Conn, r *bufio.Reader) string {
	m := s.Machine
	count := 0
	for {
		if m.Halted {
			return s.stopReply()
		}
		if err := m.Step(); err != nil {
			return s.exceptionReply(err)
		}
		if m.State.Event.Kind != event.None {
			return s.stopReply()
		}
		count++
		if count >= s.pollEvery {
			count = 0
			if s.checkInterrupt(conn, r) {
				return "S02" // SIGINT
			}
		}
	}
}

// runRangeStep steps until pc leaves [lo, hi) or another stop reason
// fires.
func (s *Server) runRangeStep(lo, hi uint64) string {
	m := s.Machine
	for {
		if m.Halted {
			return s.stopReply()
		}
		if err := m.Step(); err != nil {
			return s.exceptionReply(err)
		}
		if m.State.Event.Kind != event.None {
			return s.stopReply()
		}
		if m.State.PC < lo || m.State.PC >= hi {
			return s.stopReply()
		}
	}
}

// checkInterrupt briefly polls the connection for a pending 0x03 byte
// without blocking Continue's throughput.
func (s *Server) checkInterrupt(conn net.Conn, r *bufio.Reader) bool {
	conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	b, err := r.ReadByte()
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		return false
	}
	return b == 0x03
}
