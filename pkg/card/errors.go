package card

import (
	"errors"
	"fmt"

	"github.com/dariakors/pin-code-verification-command/pkg/iso7816"
)

var (
	ErrUnknownReference = errors.New("card: unknown pin reference")
	ErrNotProvisioned   = errors.New("card: pin reference not provisioned")
	ErrInvalidPIN       = errors.New("card: invalid reference pin")
	ErrInvalidConfig    = errors.New("card: invalid configuration")
)

// Stage names the step of command processing that produced a status word.
type Stage int

const (
	StageDecode Stage = iota
	StageClass
	StageParameters
	StageLength
	StageData
	StageInquiry
	StageVerify
)

func (s Stage) String() string {
	switch s {
	case StageDecode:
		return "decode"
	case StageClass:
		return "class"
	case StageParameters:
		return "parameters"
	case StageLength:
		return "length"
	case StageData:
		return "data"
	case StageInquiry:
		return "inquiry"
	case StageVerify:
		return "verify"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// StatusError is a command rejection. Reason is for logs only: the host
// only ever sees Status.
type StatusError struct {
	Status iso7816.StatusWord
	Stage  Stage
	Reason string
}

func reject(sw iso7816.StatusWord, stage Stage, reason string) *StatusError {
	return &StatusError{Status: sw, Stage: stage, Reason: reason}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("card: %s rejected (%s): %s", e.Stage, e.Status.Hex(), e.Reason)
}
