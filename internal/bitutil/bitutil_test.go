package bitutil

import "testing"

func TestBit64(t *testing.T) {
	tests := []struct {
		x    uint64
		pos  int
		want uint64
	}{
		{0b1010, 1, 1},
		{0b1010, 0, 0},
		{1 << 63, 63, 1},
		{0, 5, 0},
	}
	for _, tt := range tests {
		if got := Bit64(tt.x, tt.pos); got != tt.want {
			t.Errorf("Bit64(0x%x, %d) = %d, want %d", tt.x, tt.pos, got, tt.want)
		}
	}
}

func TestBitRange64(t *testing.T) {
	if got := BitRange64(0xFF00, 8, 16); got != 0xFF {
		t.Errorf("BitRange64(0xFF00, 8, 16) = 0x%x, want 0xff", got)
	}
	if got := BitRange64(0b1011, 0, 2); got != 0b11 {
		t.Errorf("BitRange64(0b1011, 0, 2) = 0b%b, want 0b11", got)
	}
}

func TestBitRange64PanicsOnInvertedRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on inverted range")
		}
	}()
	BitRange64(0, 10, 5)
}

func TestSetBit64(t *testing.T) {
	v := SetBit64(0, 3, 1)
	if v != 0b1000 {
		t.Errorf("SetBit64(0, 3, 1) = 0b%b, want 0b1000", v)
	}
	v = SetBit64(0xFF, 0, 0)
	if v != 0xFE {
		t.Errorf("SetBit64(0xff, 0, 0) = 0x%x, want 0xfe", v)
	}
}

func TestSetBitRange64(t *testing.T) {
	v := SetBitRange64(0xFF, 4, 8, 0)
	if v != 0x0F {
		t.Errorf("SetBitRange64(0xff, 4, 8, 0) = 0x%x, want 0x0f", v)
	}
}

func TestSetBitRange64PanicsOnOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on value too wide for range")
		}
	}()
	SetBitRange64(0, 0, 4, 0xFF)
}

func TestSignExtend64(t *testing.T) {
	tests := []struct {
		v      uint64
		bits   int
		want   int64
	}{
		{0x7FF, 12, 0x7FF},    // positive, MSB clear
		{0xFFF, 12, -1},        // all ones -> -1
		{0x800, 12, -2048},     // MSB set, rest clear
		{1, 1, -1},
	}
	for _, tt := range tests {
		if got := SignExtend64(tt.v, tt.bits); got != tt.want {
			t.Errorf("SignExtend64(0x%x, %d) = %d, want %d", tt.v, tt.bits, got, tt.want)
		}
	}
}

func TestSignExtend32(t *testing.T) {
	if got := SignExtend32(0x1F, 5); got != -1 {
		t.Errorf("SignExtend32(0x1f, 5) = %d, want -1", got)
	}
	if got := SignExtend32(0x0F, 5); got != 15 {
		t.Errorf("SignExtend32(0x0f, 5) = %d, want 15", got)
	}
}
