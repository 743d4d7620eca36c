package bits

import "testing"

func TestBit(t *testing.T) {
	tests := []struct {
		n        uint
		expected byte
	}{
		{1, 0x01}, {5, 0x10}, {8, 0x80}, {0, 0x00},
		{9, 0x00}, // out of range, ignored
	}

	for _, tt := range tests {
		if res := Bit(tt.n); res != tt.expected {
			t.Errorf("Bit(%d) = 0x%02X; want 0x%02X", tt.n, res, tt.expected)
		}
	}
}

func TestIsSetAndSet(t *testing.T) {
	val := byte(0b10100101)
	if !IsSet(val, 8) {
		t.Error("Bit 8 should be set")
	}
	if IsSet(val, 7) {
		t.Error("Bit 7 should NOT be set")
	}
	if got := Set(0, 5); got != 0x10 {
		t.Errorf("Set(0, 5) = 0b%08b; want 0b%08b", got, 0x10)
	}
}

func TestGetRange(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		high     uint
		low      uint
		expected byte
	}{
		{"Bits 4-3 of 0x0C", 0b0000_1100, 4, 3, 3},
		{"Bits 4-1 of 0xC2", 0xC2, 4, 1, 2},
		{"Bits 8-5 of 0xC2", 0xC2, 8, 5, 0x0C},
		{"Inverted range", 0xFF, 3, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := GetRange(tt.input, tt.high, tt.low); res != tt.expected {
				t.Errorf("GetRange(0x%02X, %d, %d) = %d; want %d", tt.input, tt.high, tt.low, res, tt.expected)
			}
		})
	}
}

func TestSetRange(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		high     uint
		low      uint
		value    byte
		expected byte
	}{
		{"Counter nibble", 0xC0, 4, 1, 3, 0xC3},
		{"Overwrite nibble", 0xCF, 4, 1, 0, 0xC0},
		{"Value truncated to width", 0x00, 2, 1, 0xFF, 0x03},
		{"High nibble", 0x05, 8, 5, 0x0C, 0xC5},
		{"Invalid range leaves byte", 0xAA, 9, 1, 0, 0xAA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := SetRange(tt.input, tt.high, tt.low, tt.value); res != tt.expected {
				t.Errorf("SetRange(0x%02X, %d, %d, %d) = 0x%02X; want 0x%02X",
					tt.input, tt.high, tt.low, tt.value, res, tt.expected)
			}
		})
	}
}

func TestNibbles(t *testing.T) {
	if got := HighNibble(0x6A); got != 0x06 {
		t.Errorf("HighNibble(0x6A) = 0x%X", got)
	}
	if got := LowNibble(0x6A); got != 0x0A {
		t.Errorf("LowNibble(0x6A) = 0x%X", got)
	}
}
