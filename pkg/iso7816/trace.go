package iso7816

// A Transaction is one Command APDU followed by one Response APDU (ISO 7816-3).
//
// A Trace is the chronological sequence of Transactions behind one logical
// operation. The transport may turn a single request into several exchanges:
// 1. "61 XX": the card holds XX more bytes, the terminal sends GET RESPONSE.
// 2. "6C XX": the terminal re-sends the command with Le = XX.
// The final Transaction carries the outcome of the operation.

// Transaction represents a completed Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess checks if the transaction ended with a successful status.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.Status.IsSuccess()
}

// Trace is a sequence of transactions (Command-Response pairs).
type Trace []Transaction

// Last returns the final transaction of the trace.
// Returns nil if the trace is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// Status returns the status word of the final transaction, or
// SW_ERR_UNKNOWN when the trace holds no response.
func (t Trace) Status() StatusWord {
	last := t.Last()
	if last == nil || last.Response == nil {
		return SW_ERR_UNKNOWN
	}
	return last.Response.Status
}

// IsSuccess checks if the FINAL transaction in the trace was successful.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}
