// Package gdbstub implements a GDB Remote Serial Protocol adapter
// over TCP for the rv64 core: it owns the software breakpoint and
// hardware watchpoint sets, maps Step/Continue/RangeStep onto
// core.Machine, and polls the connection periodically during Continue
// so a client's interrupt is observed with bounded latency.
package gdbstub

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rv64lab/emu64/internal/core"
)

// defaultPollEvery is how often, in retired instructions, a running
// continue/step loop checks the connection for an interrupt byte.
const defaultPollEvery = 1000

// Server is a single-connection-at-a-time GDB RSP server (RISC-V
// debugging is inherently single-hart here, so there is never more
// than one meaningful client).
type Server struct {
	Machine *core.Machine
	Logger  *slog.Logger

	breakpoints *breakpointSet
	watches     *watchpointSet
	pollEvery   int

	listener net.Listener
	down     atomic.Bool
	wg       sync.WaitGroup
}

// NewServer wires a Server to m: m's Debugger is set to the adapter's
// breakpoint set and the bus's watch hook is set to its watchpoint
// set, so execution honours both from the moment NewServer returns.
func NewServer(m *core.Machine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Machine:     m,
		Logger:      logger,
		breakpoints: newBreakpointSet(),
		watches:     newWatchpointSet(),
		pollEvery:   defaultPollEvery,
	}
	m.Debugger = s.breakpoints
	m.State.Bus.SetWatchHook(s.watches.Hit)
	return s
}

// ListenAndServe accepts connections on addr until Shutdown is called.
// Only one connection is serviced at a time; a second client waits in
// Accept's backlog.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gdbstub: listen: %w", err)
	}
	s.listener = ln
	s.Logger.Info("gdb stub listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.down.Load() {
				return nil
			}
			return fmt.Errorf("gdbstub: accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
		// Finish this client before accepting the next one.
		s.wg.Wait()
	}
}

// Shutdown stops accepting new connections and waits for the current
// one to finish.
func (s *Server) Shutdown() {
	s.down.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	s.Logger.Info("gdb client connected", "remote", conn.RemoteAddr().String())
	r := bufio.NewReader(conn)

	for {
		payload, err := readPacket(r)
		if err != nil {
			s.Logger.Info("gdb client disconnected", "err", err)
			return
		}
		if payload == "\x03" {
			continue
		}

		if _, err := conn.Write([]byte{'+'}); err != nil {
			return
		}

		reply, closeConn := s.dispatch(conn, r, payload)
		if reply != "" {
			if _, err := conn.Write([]byte(encodePacket(reply))); err != nil {
				return
			}
		}
		if closeConn {
			return
		}
	}
}
