// Package elfload loads RV64 ELF payloads onto a bus: iterate
// allocable sections, write their bytes at their virtual address, and
// report the entry point. This package uses the standard library's
// debug/elf — a documented choice, not a fallback; see DESIGN.md.
package elfload

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// SectionWriter is the seam ELF loading writes through; internal/bus.Bus
// satisfies it via WriteAt, keeping the loader genuinely swappable.
type SectionWriter interface {
	WriteAt(addr uint64, data []byte) error
}

// progressThreshold is the section size, in bytes, above which Load
// renders a progress bar for the copy.
const progressThreshold = 4 << 20

// Load parses the RV64 ELF payload read from r, writes every
// allocable section (SHF_ALLOC: .text, .data, .rodata, and friends)
// to w at its virtual address, and returns the ELF entry point to be
// used as the initial npc. A non-RV64 ELF is a fatal error.
func Load(w SectionWriter, r io.ReaderAt) (entry uint64, err error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return 0, fmt.Errorf("elfload: not an ELF file: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_RISCV {
		return 0, fmt.Errorf("elfload: unsupported architecture %s/%s (want 64-bit RISC-V)", f.Class, f.Machine)
	}

	for _, sec := range f.Sections {
		if sec.Flags&elf.SHF_ALLOC == 0 || sec.Size == 0 {
			continue
		}
		if err := writeSection(w, sec); err != nil {
			return 0, fmt.Errorf("elfload: section %s: %w", sec.Name, err)
		}
	}

	return f.Entry, nil
}

func writeSection(w SectionWriter, sec *elf.Section) error {
	if sec.Type == elf.SHT_NOBITS {
		// .bss-like: no file bytes, but the region must read as zero
		// and still be bounds-checked against RAM.
		return w.WriteAt(sec.Addr, make([]byte, sec.Size))
	}

	data, err := sec.Data()
	if err != nil {
		return fmt.Errorf("read section data: %w", err)
	}

	if len(data) < progressThreshold {
		return w.WriteAt(sec.Addr, data)
	}

	bar := progressbar.DefaultBytes(int64(len(data)), fmt.Sprintf("loading %s", sec.Name))
	const chunk = 1 << 16
	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		if err := w.WriteAt(sec.Addr+uint64(off), data[off:end]); err != nil {
			return err
		}
		bar.Add(end - off)
	}
	return nil
}
