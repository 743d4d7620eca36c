package iso7816

import (
	"strings"
	"testing"
)

func TestNewInstruction(t *testing.T) {
	tests := []struct {
		name    string
		ins     InsCode
		wantErr bool
		check   func(Instruction) bool
	}{
		{
			name: "VERIFY (20)",
			ins:  0x20,
			check: func(i Instruction) bool {
				return i.Raw == INS_VERIFY && !i.IsBERTLV
			},
		},
		{
			name: "VERIFY BER-TLV (21)",
			ins:  0b0010_0001,
			check: func(i Instruction) bool {
				return i.Raw == INS_VERIFY_BER && i.IsBERTLV
			},
		},
		{
			name:    "Invalid INS 6X",
			ins:     0x6A,
			wantErr: true,
		},
		{
			name:    "Invalid INS 9X",
			ins:     0x90,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInstruction(tt.ins)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewInstruction(0x%02X) error = %v, wantErr %v", byte(tt.ins), err, tt.wantErr)
				return
			}
			if !tt.wantErr && !tt.check(got) {
				t.Errorf("NewInstruction(0x%02X) failed validation: %+v", byte(tt.ins), got)
			}
		})
	}
}

func TestInstruction_Verbose(t *testing.T) {
	tests := []struct {
		ins      InsCode
		contains []string
	}{
		{INS_VERIFY, []string{"INS: 0x20", "Command: INS_VERIFY", "Format: Standard"}},
		{INS_VERIFY_BER, []string{"INS: 0x21", "Command: INS_VERIFY_BER", "Format: BER-TLV"}},
		{0xB0, []string{"Command: InsCode(0xB0)"}},
	}

	for _, tt := range tests {
		i, _ := NewInstruction(tt.ins)
		desc := i.Verbose()
		for _, part := range tt.contains {
			if !strings.Contains(desc, part) {
				t.Errorf("Verbose() = %q; want containing %q", desc, part)
			}
		}
	}
}

func TestNewInstructionMust(t *testing.T) {
	if got := NewInstructionMust(INS_VERIFY); got.Raw != INS_VERIFY {
		t.Errorf("NewInstructionMust(INS_VERIFY).Raw = %s", got.Raw)
	}

	defer func() {
		if recover() == nil {
			t.Error("NewInstructionMust(0x6A) did not panic")
		}
	}()
	NewInstructionMust(0x6A)
}
