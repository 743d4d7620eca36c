package card

import (
	"encoding/hex"
	"strconv"

	"github.com/samber/mo"

	"github.com/dariakors/pin-code-verification-command/pkg/iso7816"
)

// COMMAND DECODING:
// Commands reach the card as hexadecimal text. Decoding is positional: each
// header byte occupies two characters, and a defect in one field (a missing
// byte, a non-hex character) is recorded on that field only, so that later
// checks can report the first defect in their own order of precedence.
//
// Body layout after P2:  Lc (2 digits) || data (2*Lc digits) || [Le (2 digits)]
//
// Body defects:
// - Length: Lc unreadable, or the data region is shorter or longer than Lc
//   (a single extra byte is kept as Le, not counted as a length defect).
// - MalformedData: the data region has the declared length but is not hex.
//   When the region is not hex its length is counted in characters as well
//   as in digit pairs, since a host may have declared either.
// - OverLength: the length prefix is wider than one byte and announces more
//   than MaxShortLc bytes, which are all present.

// FieldState tells whether a header byte could be read.
type FieldState int

const (
	FieldMissing FieldState = iota
	FieldMalformed
	FieldPresent
)

// HeaderByte is one of CLA, INS, P1, P2 as received.
type HeaderByte struct {
	Value byte
	State FieldState
}

// Is reports whether the byte was read and equals v.
func (h HeaderByte) Is(v byte) bool {
	return h.State == FieldPresent && h.Value == v
}

// BodyDefect classifies structural problems of the command body.
type BodyDefect int

const (
	DefectNone BodyDefect = iota
	DefectLength
	DefectMalformedData
	DefectOverLength
)

// Command is a decoded command APDU. It is built for every input, however
// malformed; the validation chain decides what to answer.
type Command struct {
	Raw string

	CLA, INS, P1, P2 HeaderByte

	// Body is the text following P2, empty when the command has no body.
	Body string
	// Lc is the declared data length. It is None when no byte follows P2,
	// which differs from Some(0). Values above MaxShortLc only come with
	// DefectOverLength.
	Lc      mo.Option[int]
	Data    []byte
	Trailer []byte
	Defect  BodyDefect
}

// HasBody reports whether anything follows P2.
func (c *Command) HasBody() bool {
	return c.Body != ""
}

// DecodeCommand splits hex text into header fields and body. It never fails:
// defects are recorded on the returned Command.
func DecodeCommand(s string) *Command {
	c := &Command{Raw: s}

	for i, field := range []*HeaderByte{&c.CLA, &c.INS, &c.P1, &c.P2} {
		start := 2 * i
		if start >= len(s) {
			field.State = FieldMissing
			continue
		}
		b, ok := hexByte(s[start:min(start+2, len(s))])
		if !ok {
			field.State = FieldMalformed
			continue
		}
		field.Value, field.State = b, FieldPresent
	}

	if len(s) > 2*iso7816.HeaderLength {
		c.decodeBody(s[2*iso7816.HeaderLength:])
	}
	return c
}

func (c *Command) decodeBody(body string) {
	c.Body = body

	lc, ok := hexByte(body[:min(2, len(body))])
	if !ok {
		c.Defect = DefectLength
		return
	}
	c.Lc = mo.Some(int(lc))
	rest := body[2:]

	data, err := hex.DecodeString(rest)
	if err == nil {
		switch n := int(lc); len(data) {
		case n:
			c.Data = data
			return
		case n + 1:
			c.Data, c.Trailer = data[:n], data[n:]
			return
		}
	}

	if nc, wide, ok := decodeWideLength(body); ok {
		c.Lc, c.Data, c.Defect = mo.Some(nc), wide, DefectOverLength
		return
	}

	if err != nil && (len(rest) == int(lc) || len(rest) == 2*int(lc)) {
		c.Defect = DefectMalformedData
		return
	}

	c.Defect = DefectLength
}

// decodeWideLength recognises a 3 digit length prefix announcing more than
// MaxShortLc bytes followed by exactly that many bytes.
func decodeWideLength(body string) (int, []byte, bool) {
	const width = 3
	if len(body) <= width {
		return 0, nil, false
	}
	nc, err := strconv.ParseUint(body[:width], 16, 16)
	if err != nil || nc <= iso7816.MaxShortLc {
		return 0, nil, false
	}
	data, err := hex.DecodeString(body[width:])
	if err != nil || len(data) != int(nc) {
		return 0, nil, false
	}
	return int(nc), data, true
}
