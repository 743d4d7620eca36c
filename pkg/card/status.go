package card

import (
	"github.com/dariakors/pin-code-verification-command/pkg/iso7816"
)

// EncodeVerify maps a verify attempt to its status word.
//
//	Ok                  -> 9000
//	Failed, n > 0 left  -> 63Cn
//	Failed, none left   -> 6983
//	NoInformation       -> 6300
//	Blocked             -> 6983
func EncodeVerify(r VerifyResult) iso7816.StatusWord {
	switch r.Outcome {
	case OutcomeOk:
		return iso7816.SW_NO_ERROR
	case OutcomeFailed:
		if r.Remaining == 0 {
			return iso7816.SW_ERR_AUTH_METHOD_BLOCKED
		}
		return iso7816.NewCounterStatus(r.Remaining)
	case OutcomeNoInformation:
		return iso7816.SW_WARN_NV_CHANGED_NO_INFO
	case OutcomeBlocked:
		return iso7816.SW_ERR_AUTH_METHOD_BLOCKED
	default:
		return iso7816.SW_ERR_UNKNOWN
	}
}

// EncodeInquiry maps a counter read to 63Cn.
func EncodeInquiry(remaining int) iso7816.StatusWord {
	return iso7816.NewCounterStatus(remaining)
}
