package iso7816

import (
	"fmt"
	"strings"
)

// VERIFY COMMAND LOGIC (ISO 7816-4):
// The VERIFY command (INS '20') compares verification data (a PIN) sent by
// the interface device with reference data stored in the card.
//
// P1: '00', other values are RFU.
// P2 (Qualifier of the reference data):
// - '00': No information given (used here to query the retry counter).
// - '01'..'1F': Global reference data (e.g. the card PIN).
// - '81'..'9F': Specific reference data (e.g. an application PIN).
//
// Data field: absent, or the verification data.

// Common VERIFY qualifiers.
const (
	VerifyQualifierNone byte = 0x00
	VerifyQualifierPIN1 byte = 0x01
	VerifyQualifierPIN2 byte = 0x02
)

// NewVerifyCommand creates a VERIFY command for the reference selected by p2.
// A nil or empty pin produces a Case 1 command (header only).
func NewVerifyCommand(cla Class, p2 byte, pin []byte) *CommandAPDU {
	return NewCommandAPDU(cla, NewInstructionMust(INS_VERIFY), 0x00, p2, pin, 0)
}

// VerifyInquiry creates the header-only VERIFY used to read the retry counter.
func VerifyInquiry(cla Class) *CommandAPDU {
	return NewVerifyCommand(cla, VerifyQualifierNone, nil)
}

// VerifyResult represents the outcome of a VERIFY command execution.
type VerifyResult struct {
	Trace
}

// NewVerifyResult creates a VerifyResult from a raw transaction trace.
// The trace must start with a VERIFY command.
func NewVerifyResult(t Trace) (*VerifyResult, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("cannot create result from empty trace")
	}

	if t[0].Command.Instruction.Raw != INS_VERIFY {
		return nil, fmt.Errorf("trace must start with VERIFY command (got %02X)", byte(t[0].Command.Instruction.Raw))
	}

	return &VerifyResult{Trace: t}, nil
}

// IsVerified reports whether the reference data matched.
func (r *VerifyResult) IsVerified() bool {
	return r.Status() == SW_NO_ERROR
}

// IsBlocked reports whether the card refused the reference as blocked.
func (r *VerifyResult) IsBlocked() bool {
	return r.Status() == SW_ERR_AUTH_METHOD_BLOCKED
}

// RetriesLeft returns the counter carried by a '63CX' answer.
func (r *VerifyResult) RetriesLeft() (int, bool) {
	return r.Status().Counter()
}

// Describe generates an ASCII-formatted report of the verification.
// The PIN itself is never printed, only its length.
func (r *VerifyResult) Describe() string {
	var sb strings.Builder

	sb.WriteString("=== VERIFY COMMAND REPORT ===\n")

	cmd := r.Trace[0].Command

	sb.WriteString("[1] Command: VERIFY\n")
	sb.WriteString(fmt.Sprintf("    + Class:     %02X\n", cmd.Class.Raw))
	sb.WriteString(fmt.Sprintf("    + Reference: %02X -> %s\n", cmd.P2, describeQualifier(cmd.P2)))
	if len(cmd.Data) > 0 {
		sb.WriteString(fmt.Sprintf("    + Data:      %d bytes (hidden)\n", len(cmd.Data)))
	} else {
		sb.WriteString("    + Data:      absent\n")
	}

	if len(r.Trace) > 1 {
		sb.WriteString(fmt.Sprintf("[2] Protocol: Auto-handling (%d steps)\n", len(r.Trace)))
	}

	sw := r.Status()
	resultMsg := "[!!]"
	switch {
	case r.IsVerified():
		resultMsg = "[OK]"
	case sw.IsCounter():
		resultMsg = "[..]"
	}

	sb.WriteString("[=] OUTCOME:\n")
	sb.WriteString(fmt.Sprintf("    + Result:  %s %s\n", resultMsg, sw.Verbose()))
	if n, ok := r.RetriesLeft(); ok {
		sb.WriteString(fmt.Sprintf("    + Retries: %d left\n", n))
	}
	if r.IsBlocked() {
		sb.WriteString("    + Reference is blocked\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func describeQualifier(p2 byte) string {
	switch {
	case p2 == VerifyQualifierNone:
		return "No information (status inquiry)"
	case p2 == VerifyQualifierPIN1:
		return "Global PIN"
	case p2 == VerifyQualifierPIN2:
		return "Application-specific PIN"
	case p2 <= 0x1F:
		return "Global reference data"
	case p2 >= 0x81 && p2 <= 0x9F:
		return "Specific reference data"
	default:
		return "RFU"
	}
}
