package card

import (
	"github.com/samber/lo"

	"github.com/dariakors/pin-code-verification-command/pkg/iso7816"
)

// VALIDATION ORDER:
// A malformed command may carry several defects at once. Checks run in a
// fixed order and the first failing one decides the status word:
//
//  1. CLA / INS      -> 68XX / 6E00 / 6D00
//  2. P1 == 00       -> 6986
//  3. P2 in 00..02   -> 6986
//  4. P2 == 00 has no body, no Le after the data -> 6986
//  5. Lc consistent with the data region         -> 6A87
//  6. data is hex and at most 255 bytes          -> 6A80
//
// Step 1 is skipped when the command is too short to carry CLA and INS:
// such a command has no P1 either and is answered by step 2.

type check func(*Command) *StatusError

// allowedP2 are the qualifiers accepted by VERIFY: inquiry then references.
var allowedP2 = append([]byte{iso7816.VerifyQualifierNone}, lo.Map(References, func(id ReferenceID, _ int) byte {
	return byte(id)
})...)

type validator struct {
	cla iso7816.Class
	ins byte
}

func (v validator) chain() []check {
	return []check{
		v.checkClass,
		checkP1,
		checkP2,
		checkBodyAllowed,
		checkTrailer,
		checkLength,
		checkData,
	}
}

// validate runs the chain and returns the first rejection, or nil.
func (v validator) validate(cmd *Command) *StatusError {
	for _, c := range v.chain() {
		if err := c(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (v validator) checkClass(cmd *Command) *StatusError {
	if len(cmd.Raw) < 4 {
		return nil
	}

	switch {
	case cmd.CLA.State == FieldMalformed:
		return reject(iso7816.SW_ERR_CLA_NOT_SUPPORTED, StageClass, "cla unreadable")
	case cmd.CLA.Value != v.cla.Raw:
		got, err := iso7816.NewClass(cmd.CLA.Value)
		if err != nil {
			return reject(iso7816.SW_ERR_CLA_NOT_SUPPORTED, StageClass, err.Error())
		}
		return reject(got.Unsupported(v.cla), StageClass, got.Verbose())
	}

	if !cmd.INS.Is(v.ins) {
		return reject(iso7816.SW_ERR_INS_INVALID, StageClass, "instruction not supported")
	}
	return nil
}

func checkP1(cmd *Command) *StatusError {
	switch {
	case cmd.P1.State == FieldMissing:
		return reject(iso7816.SW_ERR_CMD_NOT_ALLOWED_NO_EF, StageParameters, "p1 missing")
	case cmd.P1.State == FieldMalformed:
		return reject(iso7816.SW_ERR_CMD_NOT_ALLOWED_NO_EF, StageParameters, "p1 unreadable")
	case cmd.P1.Value != 0x00:
		return reject(iso7816.SW_ERR_CMD_NOT_ALLOWED_NO_EF, StageParameters, "p1 is not 00")
	}
	return nil
}

func checkP2(cmd *Command) *StatusError {
	switch {
	case cmd.P2.State == FieldMissing:
		return reject(iso7816.SW_ERR_CMD_NOT_ALLOWED_NO_EF, StageParameters, "p2 missing")
	case cmd.P2.State == FieldMalformed:
		return reject(iso7816.SW_ERR_CMD_NOT_ALLOWED_NO_EF, StageParameters, "p2 unreadable")
	case !lo.Contains(allowedP2, cmd.P2.Value):
		return reject(iso7816.SW_ERR_CMD_NOT_ALLOWED_NO_EF, StageParameters, "p2 selects no reference")
	}
	return nil
}

func checkBodyAllowed(cmd *Command) *StatusError {
	if cmd.P2.Value == iso7816.VerifyQualifierNone && cmd.HasBody() {
		return reject(iso7816.SW_ERR_CMD_NOT_ALLOWED_NO_EF, StageParameters, "inquiry carries a body")
	}
	return nil
}

func checkTrailer(cmd *Command) *StatusError {
	if len(cmd.Trailer) > 0 {
		return reject(iso7816.SW_ERR_CMD_NOT_ALLOWED_NO_EF, StageParameters, "le not supported")
	}
	return nil
}

func checkLength(cmd *Command) *StatusError {
	if cmd.Defect == DefectLength {
		return reject(iso7816.SW_ERR_NC_INCONSISTENT_P1P2, StageLength, "lc inconsistent with data")
	}
	return nil
}

func checkData(cmd *Command) *StatusError {
	switch cmd.Defect {
	case DefectMalformedData:
		return reject(iso7816.SW_ERR_INCORRECT_PARAMS_DATA, StageData, "data is not hex")
	case DefectOverLength:
		return reject(iso7816.SW_ERR_INCORRECT_PARAMS_DATA, StageData, "data exceeds 255 bytes")
	}
	return nil
}
