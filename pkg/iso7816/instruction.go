package iso7816

import (
	"fmt"

	"github.com/dariakors/pin-code-verification-command/pkg/bits"
)

// Instruction Byte (INS) Logic according to ISO/IEC 7816-4.
//
// The INS byte identifies the command to be performed by the card.
//
// 1. Data Encoding (Bit 1):
//    Within the interindustry class, bit 1 often indicates the format of the
//    data field: 0 for plain data, 1 for BER-TLV.
//    Example: VERIFY (0x20) vs VERIFY (BER-TLV) (0x21).
//
// 2. Reserved Ranges:
//    INS values where the upper nibble is '6' or '9' (0x6X or 0x9X) are invalid.
//    These values are reserved for Status Words (SW1) or transport layer control
//    procedures (ISO/IEC 7816-3).

// InsCode is a typed representation of the instruction byte.
type InsCode byte

// Instruction codes of the user verification family, plus GET RESPONSE used
// by the transport client.
const (
	INS_VERIFY                InsCode = 0x20
	INS_VERIFY_BER            InsCode = 0x21
	INS_CHANGE_REFERENCE_DATA InsCode = 0x24
	INS_DISABLE_VERIF_REQ     InsCode = 0x26
	INS_ENABLE_VERIF_REQ      InsCode = 0x28
	INS_RESET_RETRY_COUNTER   InsCode = 0x2C
	INS_SELECT                InsCode = 0xA4
	INS_GET_RESPONSE          InsCode = 0xC0
	INS_GET_DATA              InsCode = 0xCA
)

var insNames = map[InsCode]string{
	INS_VERIFY:                "INS_VERIFY",
	INS_VERIFY_BER:            "INS_VERIFY_BER",
	INS_CHANGE_REFERENCE_DATA: "INS_CHANGE_REFERENCE_DATA",
	INS_DISABLE_VERIF_REQ:     "INS_DISABLE_VERIF_REQ",
	INS_ENABLE_VERIF_REQ:      "INS_ENABLE_VERIF_REQ",
	INS_RESET_RETRY_COUNTER:   "INS_RESET_RETRY_COUNTER",
	INS_SELECT:                "INS_SELECT",
	INS_GET_RESPONSE:          "INS_GET_RESPONSE",
	INS_GET_DATA:              "INS_GET_DATA",
}

// String returns the constant name of a known instruction.
func (i InsCode) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	return fmt.Sprintf("InsCode(0x%02X)", byte(i))
}

// Instruction represents the parsed ISO 7816-4 Instruction byte (INS).
type Instruction struct {
	Raw      InsCode
	IsBERTLV bool
}

// NewInstruction creates an Instruction object with validation.
// It rejects '6X' and '9X' values as they are invalid according to ISO 7816-3.
func NewInstruction(ins InsCode) (Instruction, error) {
	high := bits.HighNibble(byte(ins))
	if high == 0x6 || high == 0x9 {
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(ins))
	}

	return Instruction{
		Raw:      ins,
		IsBERTLV: bits.IsSet(byte(ins), 1),
	}, nil
}

// NewInstructionMust is NewInstruction for codes known to be valid; it panics
// otherwise.
func NewInstructionMust(ins InsCode) Instruction {
	i, err := NewInstruction(ins)
	if err != nil {
		panic(err.Error())
	}
	return i
}

// Verbose returns a human-readable description of the instruction.
func (i Instruction) Verbose() string {
	format := "Standard"
	if i.IsBERTLV {
		format = "BER-TLV"
	}
	return fmt.Sprintf("INS: 0x%02X | Command: %s | Format: %s", byte(i.Raw), i.Raw.String(), format)
}
