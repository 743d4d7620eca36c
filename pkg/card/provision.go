package card

import (
	"fmt"

	"github.com/moov-io/bertlv"

	"github.com/dariakors/pin-code-verification-command/pkg/tlv"
)

// Provisioner supplies the reference PINs a card is personalized with.
type Provisioner interface {
	Provision() (map[ReferenceID][]byte, error)
}

// StaticPINs provisions PINs held in memory.
type StaticPINs map[ReferenceID][]byte

func (s StaticPINs) Provision() (map[ReferenceID][]byte, error) {
	out := make(map[ReferenceID][]byte, len(s))
	for id, pin := range s {
		out[id] = append([]byte(nil), pin...)
	}
	return out, nil
}

// DefaultPINs are the PINs of a card built without personalization data.
func DefaultPINs() StaticPINs {
	return StaticPINs{
		ReferenceGlobal:   {0x31, 0x32, 0x33, 0x34},
		ReferenceSpecific: {0xEF, 0x10},
	}
}

// PERSONALIZATION RECORD:
// A BER-TLV sequence of PIN templates:
//
//	A0 (PIN template, constructed)
//	   83 Reference id (1 byte, 01 or 02)
//	   80 PIN value
//
// Tags other than A0 are ignored.

const (
	tagPINTemplate  = "A0"
	tagPINReference = "83"
	tagPINValue     = "80"
)

type pinTemplate struct {
	Reference []byte `tlv:"83"`
	Value     []byte `tlv:"80"`
}

type personalization struct {
	Templates []pinTemplate `tlv:"A0"`
}

// PersonalizationRecord provisions PINs from an encoded personalization
// record.
type PersonalizationRecord []byte

func (p PersonalizationRecord) Provision() (map[ReferenceID][]byte, error) {
	if _, err := tlv.GetValue(p, 0xA0); err != nil {
		return nil, fmt.Errorf("%w: personalization record has no pin template: %v", ErrNotProvisioned, err)
	}

	var rec personalization
	if err := tlv.Unmarshal(p, &rec); err != nil {
		return nil, fmt.Errorf("personalization record: %w", err)
	}

	pins := make(map[ReferenceID][]byte, len(rec.Templates))
	for _, t := range rec.Templates {
		if len(t.Reference) != 1 {
			return nil, fmt.Errorf("%w: reference tag %s has %d bytes", ErrUnknownReference, tagPINReference, len(t.Reference))
		}
		id := ReferenceID(t.Reference[0])
		if !id.Valid() {
			return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownReference, t.Reference[0])
		}
		if _, dup := pins[id]; dup {
			return nil, fmt.Errorf("personalization record: reference %s defined twice", id)
		}
		pins[id] = t.Value
	}
	return pins, nil
}

// EncodePersonalization builds a personalization record for pins, in
// reference order.
func EncodePersonalization(pins map[ReferenceID][]byte) ([]byte, error) {
	var templates []bertlv.TLV
	for _, id := range References {
		pin, ok := pins[id]
		if !ok {
			continue
		}
		templates = append(templates, bertlv.NewComposite(tagPINTemplate,
			bertlv.NewTag(tagPINReference, []byte{byte(id)}),
			bertlv.NewTag(tagPINValue, pin),
		))
	}

	data, err := bertlv.Encode(templates)
	if err != nil {
		return nil, fmt.Errorf("encode personalization record: %w", err)
	}
	return data, nil
}
