// Package bits numbers bits the way ISO/IEC 7816 tables do: b8 is the most
// significant bit of a byte, b1 the least significant.
package bits

// Bit returns a byte with only the n-th bit set (1 to 8).
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet checks if the n-th bit is set (1 to 8).
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// Set returns b with bit n raised.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// GetRange extracts the value from a range of bits (e.g., bits 4 to 3).
// Example: GetRange(0b00001100, 4, 3) returns 3 (0b11)
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}
	return (b >> (low - 1)) & rangeMask(high, low)
}

// SetRange writes v into bits high..low of b. Bits of v that do not fit in
// the range are dropped.
// Example: SetRange(0xC0, 4, 1, 3) returns 0xC3
func SetRange(b byte, high, low uint, v byte) byte {
	if high < low || high > 8 || low < 1 {
		return b
	}
	mask := rangeMask(high, low)
	shift := low - 1
	return (b &^ (mask << shift)) | ((v & mask) << shift)
}

// HighNibble returns bits 8-5.
func HighNibble(b byte) byte { return GetRange(b, 8, 5) }

// LowNibble returns bits 4-1.
func LowNibble(b byte) byte { return GetRange(b, 4, 1) }

func rangeMask(high, low uint) byte {
	width := high - low + 1
	return byte((1 << width) - 1)
}
