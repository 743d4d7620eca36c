// Package card emulates the VERIFY command of an ISO/IEC 7816-4 card.
//
// A Card holds two PIN references (global and application-specific), each
// with its own retry counter. Commands arrive as hexadecimal text and every
// command, well formed or not, is answered with exactly one status word:
//
//	c, _ := card.New(card.DefaultConfig(), card.DefaultPINs())
//	c.Send("0020000102EF08") // "63C2"
//	c.Send("00200000")       // "63C2"
//
// A Card is not safe for concurrent use. Cards share no state.
package card

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dariakors/pin-code-verification-command/pkg/iso7816"
	"github.com/dariakors/pin-code-verification-command/pkg/metrics"
)

const (
	// MaxRetriesLimit is the largest counter a 63CX status word can carry.
	MaxRetriesLimit = iso7816.MaxCounterValue

	// DefaultMaxRetries is the counter ceiling of a default card.
	DefaultMaxRetries = 3

	maxPINLength = iso7816.MaxShortLc
)

// Config holds the fixed parameters of a card.
type Config struct {
	// CLA and INS identify the VERIFY command this card accepts.
	CLA byte
	INS byte

	MaxRetries int

	// InquiryReference is the reference whose counter a P2=00 inquiry reports.
	InquiryReference ReferenceID

	// ReportVerified makes an inquiry answer 9000 while the inquired
	// reference is verified, instead of its counter.
	ReportVerified bool
}

// DefaultConfig returns CLA 00, INS 20, three retries and inquiries on the
// global reference.
func DefaultConfig() Config {
	return Config{
		CLA:              0x00,
		INS:              byte(iso7816.INS_VERIFY),
		MaxRetries:       DefaultMaxRetries,
		InquiryReference: ReferenceGlobal,
	}
}

// Validate checks that the configuration describes a usable card.
func (c Config) Validate() error {
	if c.MaxRetries < 1 || c.MaxRetries > MaxRetriesLimit {
		return fmt.Errorf("%w: max retries %d out of range [1, %d]", ErrInvalidConfig, c.MaxRetries, MaxRetriesLimit)
	}
	if !c.InquiryReference.Valid() {
		return fmt.Errorf("%w: inquiry reference 0x%02X", ErrInvalidConfig, byte(c.InquiryReference))
	}
	if _, err := iso7816.NewClass(c.CLA); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Option configures a Card.
type Option func(*Card)

// WithLogger sets the logger receiving per-command traces.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Card) {
		c.log = l
	}
}

// Card processes VERIFY commands against its retry state.
type Card struct {
	cfg       Config
	validator validator
	retries   *RetryStateMachine
	log       logrus.FieldLogger
}

// New builds a card with every reference at cfg.MaxRetries, personalized
// with the PINs supplied by p.
func New(cfg Config, p Provisioner, opts ...Option) (*Card, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cla, err := iso7816.NewClass(cfg.CLA)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	pins, err := p.Provision()
	if err != nil {
		return nil, fmt.Errorf("provisioning failed: %w", err)
	}

	retries, err := NewRetryStateMachine(cfg.MaxRetries, pins)
	if err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Card{
		cfg:       cfg,
		validator: validator{cla: cla, ins: cfg.INS},
		retries:   retries,
		log:       discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetMaxRetries returns the retry counter ceiling.
func (c *Card) GetMaxRetries() int {
	return c.retries.MaxRetries()
}

// Remaining returns the attempts left on reference id.
func (c *Card) Remaining(id ReferenceID) (int, error) {
	return c.retries.Inquire(id)
}

// Blocked lists the references that can no longer be verified.
func (c *Card) Blocked() []ReferenceID {
	return c.retries.Blocked()
}

// Send processes one hex-encoded command and returns its status word as
// four upper-case hex digits.
func (c *Card) Send(command string) string {
	return c.Process(command).Hex()
}

// Transmit processes a raw command APDU and returns the raw response. It
// makes a Card usable as an iso7816.Transmitter.
func (c *Card) Transmit(cmd []byte) ([]byte, error) {
	sw := c.Process(strings.ToUpper(hex.EncodeToString(cmd)))
	return sw.Bytes(), nil
}

// Process runs decode, validation and dispatch for one command.
func (c *Card) Process(command string) iso7816.StatusWord {
	start := time.Now()

	sw, stage, err := c.process(command)

	log := c.log.WithFields(logrus.Fields{
		"command": command,
		"sw":      sw.Hex(),
		"stage":   stage.String(),
	})
	var rejected *StatusError
	switch {
	case errors.As(err, &rejected):
		log.WithField("reason", rejected.Reason).Debug("command rejected")
	case err != nil:
		log.WithError(err).Error("command failed")
	default:
		log.Debug("command processed")
	}

	metrics.RecordCommand(sw.Hex(), time.Since(start).Seconds())
	return sw
}

func (c *Card) process(command string) (iso7816.StatusWord, Stage, error) {
	cmd := DecodeCommand(command)

	if err := c.validator.validate(cmd); err != nil {
		return err.Status, err.Stage, err
	}

	if cmd.P2.Value == iso7816.VerifyQualifierNone {
		sw, err := c.inquire()
		return sw, StageInquiry, err
	}

	sw, err := c.verify(ReferenceID(cmd.P2.Value), cmd.Data)
	return sw, StageVerify, err
}

func (c *Card) inquire() (iso7816.StatusWord, error) {
	ref, err := c.retries.Reference(c.cfg.InquiryReference)
	if err != nil {
		return iso7816.SW_ERR_UNKNOWN, err
	}
	if c.cfg.ReportVerified && ref.IsVerified() {
		return iso7816.SW_NO_ERROR, nil
	}
	return EncodeInquiry(ref.Remaining()), nil
}

func (c *Card) verify(id ReferenceID, data []byte) (iso7816.StatusWord, error) {
	res, err := c.retries.Verify(id, data)
	if err != nil {
		return iso7816.SW_ERR_UNKNOWN, err
	}

	metrics.RecordVerify(id.String(), res.Outcome.String())

	log := c.log.WithFields(logrus.Fields{
		"reference": id.String(),
		"outcome":   res.Outcome.String(),
		"remaining": res.Remaining,
	})
	switch {
	case res.Outcome == OutcomeBlocked:
		if res.Matched {
			log.WithField("matched", true).Warn("correct pin presented to blocked reference")
		}
	case res.Outcome != OutcomeOk && res.Remaining == 0:
		metrics.RecordBlocked(id.String())
		log.Warn("pin reference blocked")
	}

	return EncodeVerify(res), nil
}
