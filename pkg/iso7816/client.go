package iso7816

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// CLIENT & PROTOCOL LOGIC:
// The Client is a driver over anything that moves raw APDU bytes: a PC/SC
// reader, or an emulated card. It handles the ISO 7816-3 transport behaviours
// T=0 exposes to the application layer:
//
// 1. "61 XX" (Response Available): a GET RESPONSE with Le = XX is issued.
// 2. "6C XX" (Wrong Length): the original command is re-sent with Le = XX.
//
// Send() returns the full Trace of exchanges behind one logical request.

// maxProtocolSteps bounds the 61XX/6CXX follow-ups of a single Send.
const maxProtocolSteps = 8

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client manages the high-level communication with the card.
type Client struct {
	Card Transmitter
	Log  logrus.FieldLogger
}

// NewClient creates a new Client instance that logs nowhere.
func NewClient(card Transmitter) *Client {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Client{Card: card, Log: l}
}

// WithLogger sets the logger used to trace exchanged APDUs.
func (c *Client) WithLogger(l logrus.FieldLogger) *Client {
	c.Log = l
	return c
}

// Send transmits a command and handles protocol logic (61xx, 6Cxx).
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	return c.send(cmd, 0)
}

func (c *Client) send(cmd *CommandAPDU, step int) (Trace, error) {
	if step >= maxProtocolSteps {
		return nil, fmt.Errorf("protocol error: more than %d follow-up exchanges", maxProtocolSteps)
	}

	rawCmd, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.Card.Transmit(rawCmd)
	if err != nil {
		return nil, fmt.Errorf("transmission error: %w", err)
	}

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return nil, err
	}

	c.Log.WithFields(logrus.Fields{
		"command": strings.ToUpper(fmt.Sprintf("%X", rawCmd)),
		"sw":      resp.Status.Hex(),
	}).Debug("apdu exchanged")

	trace := Trace{{Command: cmd, Response: resp}}

	var next *CommandAPDU
	switch resp.Status.SW1() {
	case 0x61:
		// GET RESPONSE must use the logical channel of the original command.
		respCls := cmd.Class
		respCls.IsChained = false
		ins, _ := NewInstruction(INS_GET_RESPONSE)
		next = NewCommandAPDU(respCls, ins, 0x00, 0x00, nil, int(resp.Status.SW2()))
	case 0x6C:
		retry := *cmd
		retry.Ne = int(resp.Status.SW2())
		next = &retry
	default:
		return trace, nil
	}

	subTrace, err := c.send(next, step+1)
	if err != nil {
		return trace, err
	}
	return append(trace, subTrace...), nil
}
