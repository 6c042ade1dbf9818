// Package bus implements the flat physical address space: contiguous
// RAM plus a sorted set of non-overlapping MMIO regions, range-checked
// 1/2/4/8-byte accesses, and a fast unchecked path used only by
// instruction fetch.
package bus

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sort"

	"github.com/rv64lab/emu64/internal/device"
)

// OutOfBoundsError is returned when an access lands outside RAM and
// outside every mapped MMIO region.
type OutOfBoundsError struct {
	Addr uint64
	Size int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("bus: out of bounds access at 0x%x size %d", e.Addr, e.Size)
}

// MisalignedError is returned when a builder-time argument fails an
// alignment requirement (e.g. memory_size not a power of two).
type MisalignedError struct {
	Addr      uint64
	Alignment uint64
}

func (e *MisalignedError) Error() string {
	return fmt.Sprintf("bus: address 0x%x not aligned to %d", e.Addr, e.Alignment)
}

// MmioOverlapError is returned when a region being mapped overlaps an
// existing region or RAM.
type MmioOverlapError struct {
	Addr uint64
}

func (e *MmioOverlapError) Error() string {
	return fmt.Sprintf("bus: mmio region at 0x%x overlaps an existing mapping", e.Addr)
}

// DeviceError wraps an error returned by a device's Read/Write.
type DeviceError struct {
	Name  string
	Inner error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("bus: device %s: %v", e.Name, e.Inner)
}

func (e *DeviceError) Unwrap() error { return e.Inner }

// WatchpointError is returned by Read/Write in place of performing the
// access when a registered watch hook reports that the access range
// touches a watched address. The caller (the execution loop) sees this
// as an ordinary handler error and must not treat the access as having
// happened: no RAM or device state is touched once the hook fires.
type WatchpointError struct {
	Addr  uint64
	Write bool
}

func (e *WatchpointError) Error() string {
	return fmt.Sprintf("bus: watchpoint hit at 0x%x (write=%v)", e.Addr, e.Write)
}

// WatchFunc reports whether any address in [addr, addr+size) is
// currently watched. The GDB adapter owns the actual watchpoint set
// and is the only expected caller of SetWatchHook.
type WatchFunc func(addr uint64, size int, write bool) bool

// Region is a mapped MMIO device occupying [Base, Base+Size).
type Region struct {
	Base   uint64
	Size   uint64
	Device device.Device
	Name   string
}

// Bus is the flat physical address space.
type Bus struct {
	ramBase uint64
	ram     []byte

	regions []Region
	sorted  bool

	mmioTouched bool

	watchFn WatchFunc
}

// SetWatchHook installs fn as the watchpoint check consulted by every
// Read/Write before the access is performed. Passing nil disables
// watchpoint checking.
func (b *Bus) SetWatchHook(fn WatchFunc) {
	b.watchFn = fn
}

// New creates a Bus with RAM of memorySize bytes based at memoryBase.
// memorySize must be a power of two.
func New(memoryBase, memorySize uint64) (*Bus, error) {
	if memorySize == 0 || bits.OnesCount64(memorySize) != 1 {
		return nil, &MisalignedError{Addr: 0, Alignment: 2}
	}
	return &Bus{
		ramBase: memoryBase,
		ram:     make([]byte, memorySize),
	}, nil
}

// RAMBase returns the base address of main memory.
func (b *Bus) RAMBase() uint64 { return b.ramBase }

// RAMSize returns the size of main memory in bytes.
func (b *Bus) RAMSize() uint64 { return uint64(len(b.ram)) }

func (b *Bus) inRAM(addr uint64, size int) bool {
	if addr < b.ramBase {
		return false
	}
	off := addr - b.ramBase
	return off+uint64(size) <= uint64(len(b.ram)) && off+uint64(size) >= off
}

// MapMMIO registers dev at [base, base+size), rejecting overlap with
// RAM or any previously mapped region.
func (b *Bus) MapMMIO(base, size uint64, dev device.Device, name string) error {
	if regionsOverlap(base, size, b.ramBase, uint64(len(b.ram))) {
		return &MmioOverlapError{Addr: base}
	}
	for _, r := range b.regions {
		if regionsOverlap(base, size, r.Base, r.Size) {
			return &MmioOverlapError{Addr: base}
		}
	}
	b.regions = append(b.regions, Region{Base: base, Size: size, Device: dev, Name: name})
	b.sorted = false
	return nil
}

func regionsOverlap(baseA, sizeA, baseB, sizeB uint64) bool {
	if sizeA == 0 || sizeB == 0 {
		return false
	}
	return baseA < baseB+sizeB && baseB < baseA+sizeA
}

// SortMMIORegions orders mapped regions by ascending base so that
// subsequent accesses can binary search. It must be called after all
// devices are mapped and before the bus is used by the execution loop.
func (b *Bus) SortMMIORegions() {
	sort.Slice(b.regions, func(i, j int) bool { return b.regions[i].Base < b.regions[j].Base })
	b.sorted = true
}

// Regions returns the mapped MMIO regions in their current order.
func (b *Bus) Regions() []Region {
	out := make([]Region, len(b.regions))
	copy(out, b.regions)
	return out
}

func (b *Bus) findRegion(addr uint64) (*Region, uint64, bool) {
	if !b.sorted {
		for i := range b.regions {
			r := &b.regions[i]
			if addr >= r.Base && addr < r.Base+r.Size {
				return r, addr - r.Base, true
			}
		}
		return nil, 0, false
	}
	i := sort.Search(len(b.regions), func(i int) bool { return b.regions[i].Base+b.regions[i].Size > addr })
	if i < len(b.regions) && addr >= b.regions[i].Base {
		r := &b.regions[i]
		return r, addr - r.Base, true
	}
	return nil, 0, false
}

// MMIOTouched reports whether a read or write has hit an MMIO region
// since the last call, clearing the single-shot flag.
func (b *Bus) MMIOTouched() bool {
	v := b.mmioTouched
	b.mmioTouched = false
	return v
}

// Read reads size bytes (1, 2, 4 or 8 take a specialized path; any
// other size falls back to a generic byte copy) from addr.
func (b *Bus) Read(addr uint64, size int) (uint64, error) {
	if b.watchFn != nil && b.watchFn(addr, size, false) {
		return 0, &WatchpointError{Addr: addr, Write: false}
	}

	if b.inRAM(addr, size) {
		off := addr - b.ramBase
		switch size {
		case 1:
			return uint64(b.ram[off]), nil
		case 2:
			return uint64(binary.LittleEndian.Uint16(b.ram[off:])), nil
		case 4:
			return uint64(binary.LittleEndian.Uint32(b.ram[off:])), nil
		case 8:
			return binary.LittleEndian.Uint64(b.ram[off:]), nil
		default:
			var v uint64
			for i := 0; i < size; i++ {
				v |= uint64(b.ram[off+uint64(i)]) << (8 * uint(i))
			}
			return v, nil
		}
	}

	if r, offset, ok := b.findRegion(addr); ok {
		if offset+uint64(size) > r.Size {
			return 0, &OutOfBoundsError{Addr: addr, Size: size}
		}
		b.mmioTouched = true
		v, err := r.Device.Read(offset, size)
		if err != nil {
			return 0, &DeviceError{Name: r.Name, Inner: err}
		}
		return v, nil
	}

	return 0, &OutOfBoundsError{Addr: addr, Size: size}
}

// Write writes size bytes of value to addr.
func (b *Bus) Write(addr uint64, size int, value uint64) error {
	if b.watchFn != nil && b.watchFn(addr, size, true) {
		return &WatchpointError{Addr: addr, Write: true}
	}

	if b.inRAM(addr, size) {
		off := addr - b.ramBase
		switch size {
		case 1:
			b.ram[off] = byte(value)
		case 2:
			binary.LittleEndian.PutUint16(b.ram[off:], uint16(value))
		case 4:
			binary.LittleEndian.PutUint32(b.ram[off:], uint32(value))
		case 8:
			binary.LittleEndian.PutUint64(b.ram[off:], value)
		default:
			for i := 0; i < size; i++ {
				b.ram[off+uint64(i)] = byte(value >> (8 * uint(i)))
			}
		}
		return nil
	}

	if r, offset, ok := b.findRegion(addr); ok {
		if offset+uint64(size) > r.Size {
			return &OutOfBoundsError{Addr: addr, Size: size}
		}
		b.mmioTouched = true
		if err := r.Device.Write(offset, size, value); err != nil {
			return &DeviceError{Name: r.Name, Inner: err}
		}
		return nil
	}

	return &OutOfBoundsError{Addr: addr, Size: size}
}

// Read8/16/32/64 and Write8/16/32/64 are typed convenience wrappers
// around Read/Write.
func (b *Bus) Read8(addr uint64) (uint8, error) {
	v, err := b.Read(addr, 1)
	return uint8(v), err
}
func (b *Bus) Read16(addr uint64) (uint16, error) {
	v, err := b.Read(addr, 2)
	return uint16(v), err
}
func (b *Bus) Read32(addr uint64) (uint32, error) {
	v, err := b.Read(addr, 4)
	return uint32(v), err
}
func (b *Bus) Read64(addr uint64) (uint64, error) {
	return b.Read(addr, 8)
}
func (b *Bus) Write8(addr uint64, v uint8) error  { return b.Write(addr, 1, uint64(v)) }
func (b *Bus) Write16(addr uint64, v uint16) error { return b.Write(addr, 2, uint64(v)) }
func (b *Bus) Write32(addr uint64, v uint32) error { return b.Write(addr, 4, uint64(v)) }
func (b *Bus) Write64(addr uint64, v uint64) error { return b.Write(addr, 8, v) }

// ReadU32Fast reads 32 bits directly from RAM with no bounds checking
// and no MMIO dispatch. It is a deliberate bypass used only by the
// execution loop's instruction fetch, after the loop has already
// verified that pc lies in RAM; callers that violate that precondition
// will panic on out-of-range access rather than fault cleanly.
func (b *Bus) ReadU32Fast(addr uint64) uint32 {
	off := addr - b.ramBase
	return binary.LittleEndian.Uint32(b.ram[off:])
}

// WriteAt implements the io.WriterAt-shaped seam ELF/image loaders use
// to place sections directly into RAM, bypassing MMIO dispatch.
func (b *Bus) WriteAt(addr uint64, data []byte) error {
	if !b.inRAM(addr, len(data)) {
		return &OutOfBoundsError{Addr: addr, Size: len(data)}
	}
	off := addr - b.ramBase
	copy(b.ram[off:], data)
	return nil
}
