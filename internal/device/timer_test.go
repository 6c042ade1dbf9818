package device

import (
	"testing"
	"time"
)

func TestTimerReadsLowBytesOfWallClock(t *testing.T) {
	fixed := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	old := Now
	Now = func() time.Time { return fixed }
	defer func() { Now = old }()

	want := uint64(fixed.UnixMicro())
	tm := NewTimer("timer0")

	for _, size := range []int{1, 2, 4, 8} {
		for _, offset := range []uint64{TimerReg0, TimerReg1, TimerReg2} {
			got, err := tm.Read(offset, size)
			if err != nil {
				t.Fatalf("Read(offset=0x%x, size=%d): %v", offset, size, err)
			}
			mask := uint64(1)<<(8*uint(size)) - 1
			if size == 8 {
				mask = ^uint64(0)
			}
			if got != want&mask {
				t.Errorf("Read(offset=0x%x, size=%d) = 0x%x, want 0x%x", offset, size, got, want&mask)
			}
		}
	}
}

func TestTimerReservedRegisterReadsZero(t *testing.T) {
	tm := NewTimer("timer0")
	v, err := tm.Read(TimerRegReserved, 4)
	if err != nil || v != 0 {
		t.Fatalf("Read(reserved) = (%d, %v), want (0, nil)", v, err)
	}
}

func TestTimerWritesRejected(t *testing.T) {
	tm := NewTimer("timer0")
	if err := tm.Write(TimerReg0, 4, 1); err == nil {
		t.Fatal("expected unsupported error on timer write")
	}
}

func TestTimerRejectsIllegalSize(t *testing.T) {
	tm := NewTimer("timer0")
	if _, err := tm.Read(TimerReg0, 3); err == nil {
		t.Fatal("expected unsupported error for illegal size")
	}
}
