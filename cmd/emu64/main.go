// Command emu64 loads an RV64 ELF payload, wires up RAM and MMIO
// devices from two TOML configuration documents, and runs the
// fetch-decode-execute loop either freely or under GDB remote-debug
// control.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/rv64lab/emu64/internal/bus"
	"github.com/rv64lab/emu64/internal/config"
	"github.com/rv64lab/emu64/internal/core"
	"github.com/rv64lab/emu64/internal/cpustate"
	"github.com/rv64lab/emu64/internal/decoder"
	"github.com/rv64lab/emu64/internal/device"
	"github.com/rv64lab/emu64/internal/disasm"
	"github.com/rv64lab/emu64/internal/elfload"
	"github.com/rv64lab/emu64/internal/gdbstub"
	"github.com/rv64lab/emu64/internal/isa"
)

func run() error {
	elfPath := flag.String("elf", "", "path to the RV64 ELF payload to run")
	mainConfigPath := flag.String("config", "profile/config.toml", "path to the main configuration document")
	deviceConfigPath := flag.String("device-config", "profile/devices.toml", "path to the device configuration document")
	port := flag.Uint("port", 0, "TCP port for the GDB remote-debug listener (0 disables it)")
	verbose := flag.Bool("v", false, "enable per-step debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `emu64 - instruction-accurate RV64I(+M+A+C) emulator

USAGE:
  emu64 -elf PATH [flags]

FLAGS:
  -elf PATH             RV64 ELF payload to load (required)
  -config PATH          main config TOML (default profile/config.toml)
  -device-config PATH   device config TOML (default profile/devices.toml)
  -port N               GDB remote-debug TCP port; 0 runs freely
  -v                    per-step debug logging

EXAMPLES:
  emu64 -elf payload.elf
  emu64 -elf payload.elf -port 1234
`)
	}
	flag.Parse()

	if *elfPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	mainCfg, err := config.LoadMainConfig(*mainConfigPath)
	if err != nil {
		return err
	}
	devCfg, err := config.LoadDeviceConfig(*deviceConfigPath)
	if err != nil {
		return err
	}

	b, err := bus.New(devCfg.Memory.MemoryBase, devCfg.MemorySizeBytes())
	if err != nil {
		return fmt.Errorf("emu64: build bus: %w", err)
	}

	registry := device.NewRegistry()
	for _, d := range devCfg.Devices {
		if !d.IsEnabled() {
			continue
		}
		dev, err := buildDevice(d)
		if err != nil {
			return fmt.Errorf("emu64: device %s: %w", d.Name, err)
		}
		registry.Register(dev)
		if err := b.MapMMIO(d.Base, d.Size, dev, d.Name); err != nil {
			return fmt.Errorf("emu64: map device %s: %w", d.Name, err)
		}
	}
	b.SortMMIORegions()

	ext := cpustate.Extensions{M: mainCfg.InstSet.MExt, A: mainCfg.InstSet.AExt, C: mainCfg.InstSet.CExt}
	st := cpustate.New(b, ext)

	dec := decoder.Build(isa.BuildDescriptors(ext), ext.C, mainCfg.Others.DecoderCacheSize)

	elfFile, err := os.Open(*elfPath)
	if err != nil {
		return fmt.Errorf("emu64: open elf: %w", err)
	}
	defer elfFile.Close()

	entry, err := elfload.Load(b, elfFile)
	if err != nil {
		return fmt.Errorf("emu64: load elf: %w", err)
	}
	st.PC = entry
	st.NPC = entry
	if mainCfg.Memory.BootPC != 0 {
		st.PC = mainCfg.Memory.BootPC
		st.NPC = mainCfg.Memory.BootPC
	}

	m := core.New(st, dec, mainCfg.Debug.EventListSize, logger)
	m.EnableTracer(mainCfg.Debug.InstructionTracerListSize)

	if *port != 0 {
		srv := gdbstub.NewServer(m, logger)
		return srv.ListenAndServe(fmt.Sprintf(":%d", *port))
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			defer term.Restore(int(os.Stdin.Fd()), oldState)
		}
	}

	return runFree(m, dec)
}

// runFree executes until the machine halts or hits an unrecoverable
// exception, printing a diagnostic register/disassembly dump on the
// latter.
func runFree(m *core.Machine, dec *decoder.Decoder) error {
	for !m.Halted {
		if err := m.Step(); err != nil {
			dumpFault(m, dec, err)
			return err
		}
	}
	return nil
}

func dumpFault(m *core.Machine, dec *decoder.Decoder, err error) {
	st := m.State
	fmt.Fprintf(os.Stderr, "emu64: fatal: %v\n\n%s\n", err, st.String())
	fmt.Fprint(os.Stderr, disasm.Dump(st.Bus, dec, st.PC, 4, 4))
}

func buildDevice(d config.DeviceEntry) (device.Device, error) {
	switch d.Type {
	case "uart":
		return device.NewUART(d.Name, os.Stderr), nil
	case "timer":
		return device.NewTimer(d.Name), nil
	default:
		return nil, fmt.Errorf("unknown device type %q", d.Type)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "emu64: %v\n", err)
		os.Exit(1)
	}
}
