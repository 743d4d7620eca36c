package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeHex joins hex strings and decodes them. Spaces are ignored to allow
// formats like "A0 08 83 01 01".
func DecodeHex(parts ...string) ([]byte, error) {
	clean := strings.ReplaceAll(strings.Join(parts, ""), " ", "")

	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input %q: %w", clean, err)
	}
	return data, nil
}

// Hex is DecodeHex for literals known to be valid; it panics otherwise.
func Hex(parts ...string) []byte {
	data, err := DecodeHex(parts...)
	if err != nil {
		panic(err.Error())
	}
	return data
}
