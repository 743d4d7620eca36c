package card

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dariakors/pin-code-verification-command/pkg/tlv"
)

func TestPersonalizationRecord_Provision(t *testing.T) {
	raw := tlv.Hex(
		"A0 07", "83 01 01", "80 02 EF08",
		"A0 06", "83 01 02", "80 01 AA",
		"5F20 02 4142", // ignored
	)

	got, err := PersonalizationRecord(raw).Provision()
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	want := map[ReferenceID][]byte{
		ReferenceGlobal:   {0xEF, 0x08},
		ReferenceSpecific: {0xAA},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Provision() mismatch (-want +got):\n%s", diff)
	}
}

func TestPersonalizationRecord_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Undefined reference", "A0 06 830103 8001AA"},
		{"Two-byte reference", "A0 07 83020001 8001AA"},
		{"Missing reference tag", "A0 03 8001AA"},
		{"Duplicate reference", "A0 06 830101 8001AA A0 06 830101 8001BB"},
		{"Truncated TLV", "A0 09 830101"},
		{"No pin template", "80 01 AA"},
		{"Empty record", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PersonalizationRecord(tlv.Hex(tt.raw)).Provision(); err == nil {
				t.Error("Provision() error = nil, want error")
			}
		})
	}
}

func TestEncodePersonalization(t *testing.T) {
	data, err := EncodePersonalization(DefaultPINs())
	if err != nil {
		t.Fatalf("EncodePersonalization() error = %v", err)
	}

	want := tlv.Hex(
		"A0 09", "83 01 01", "80 04 31323334",
		"A0 07", "83 01 02", "80 02 EF10",
	)
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("encoding mismatch (-want +got):\n%s", diff)
	}

	pins, err := PersonalizationRecord(data).Provision()
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if diff := cmp.Diff(map[ReferenceID][]byte(DefaultPINs()), pins); diff != "" {
		t.Errorf("provisioned pins mismatch (-want +got):\n%s", diff)
	}
}

func TestStaticPINs_ProvisionCopies(t *testing.T) {
	src := DefaultPINs()
	pins, err := src.Provision()
	if err != nil {
		t.Fatal(err)
	}

	pins[ReferenceGlobal][0] = 0x00
	if src[ReferenceGlobal][0] != 0x31 {
		t.Error("Provision() must not share PIN storage with the source")
	}
}

func TestNew_PersonalizedCard(t *testing.T) {
	rec := tlv.Hex("A0 07 830101 8002 1234", "A0 07 830102 8002 5678")

	c, err := New(DefaultConfig(), PersonalizationRecord(rec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := c.Send("00200001021234"); got != "9000" {
		t.Errorf("global verify = %s, want 9000", got)
	}
	if got := c.Send("00200002021234"); got != "63C2" {
		t.Errorf("specific verify = %s, want 63C2", got)
	}
}
