package card

import (
	"fmt"

	"github.com/samber/lo"
)

// ReferenceID is the P2 value selecting a PIN reference.
type ReferenceID byte

const (
	ReferenceGlobal   ReferenceID = 0x01
	ReferenceSpecific ReferenceID = 0x02
)

// References lists every PIN reference a card holds, in P2 order.
var References = []ReferenceID{ReferenceGlobal, ReferenceSpecific}

// Valid reports whether r selects a defined reference.
func (r ReferenceID) Valid() bool {
	return lo.Contains(References, r)
}

func (r ReferenceID) String() string {
	switch r {
	case ReferenceGlobal:
		return "global"
	case ReferenceSpecific:
		return "specific"
	default:
		return fmt.Sprintf("ReferenceID(0x%02X)", byte(r))
	}
}

// ParseReference accepts "global", "specific" or the P2 number (1, 2).
func ParseReference(s string) (ReferenceID, error) {
	switch s {
	case "global", "1", "01":
		return ReferenceGlobal, nil
	case "specific", "2", "02":
		return ReferenceSpecific, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownReference, s)
}
