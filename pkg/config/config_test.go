package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dariakors/pin-code-verification-command/pkg/card"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pincard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cc, err := cfg.CardConfig()
	require.NoError(t, err)
	assert.Equal(t, card.DefaultConfig(), cc)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
card:
  cla: "20"
  ins: A4
  max_retries: 5
  inquiry_reference: specific
  report_verified: true
pins:
  global: EF08
  specific: EF10
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	cc, err := cfg.CardConfig()
	require.NoError(t, err)
	assert.Equal(t, card.Config{
		CLA:              0x20,
		INS:              0xA4,
		MaxRetries:       5,
		InquiryReference: card.ReferenceSpecific,
		ReportVerified:   true,
	}, cc)

	c, err := cfg.NewCard()
	require.NoError(t, err)
	assert.Equal(t, "9000", c.Send("20A4000102EF08"))
	assert.Equal(t, "63C5", c.Send("20A40000"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PINCARD_CARD_MAX_RETRIES", "7")
	t.Setenv("PINCARD_LOGGING_LEVEL", "warn")

	cfg, err := Load(writeFile(t, "card:\n  max_retries: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Card.MaxRetries)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Personalization(t *testing.T) {
	rec, err := card.EncodePersonalization(map[card.ReferenceID][]byte{
		card.ReferenceGlobal:   {0x12, 0x34},
		card.ReferenceSpecific: {0x56, 0x78},
	})
	require.NoError(t, err)

	t.Setenv("PINCARD_PINS_PERSONALIZATION", "A0 07 830101 80021234 A0 07 830102 80025678")
	cfg, err := Load("")
	require.NoError(t, err)

	p, err := cfg.Provisioner()
	require.NoError(t, err)
	assert.Equal(t, card.PersonalizationRecord(rec), p)

	c, err := cfg.NewCard()
	require.NoError(t, err)
	assert.Equal(t, "9000", c.Send("00200002025678"))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Max retries too high", "card:\n  max_retries: 16\n"},
		{"Max retries zero", "card:\n  max_retries: 0\n"},
		{"CLA not a byte", "card:\n  cla: \"0000\"\n"},
		{"INS not hex", "card:\n  ins: ZZ\n"},
		{"Unknown inquiry reference", "card:\n  inquiry_reference: third\n"},
		{"Empty global PIN", "pins:\n  global: \"\"\n"},
		{"PIN not hex", "pins:\n  specific: XYZ\n"},
		{"Bad personalization", "pins:\n  personalization: A0 03 830103\n"},
		{"Bad log level", "logging:\n  level: loud\n"},
		{"Bad log format", "logging:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_PINLength(t *testing.T) {
	c := Default()
	c.Pins.Global = strings.Repeat("AB", 256)
	err := c.Validate()
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeFile(t, "pins:\n  global: "+c.Pins.Global+"\n"))
	assert.Error(t, err)

	c.Pins.Global = strings.Repeat("AB", 255)
	assert.NoError(t, c.Validate())
}

func TestConfig_WriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	want := Default()
	want.Card.MaxRetries = 9
	require.NoError(t, want.Write(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoggingConfig_ConfigureLogger(t *testing.T) {
	l := logrus.New()

	require.NoError(t, LoggingConfig{Level: "debug", Format: "json"}.ConfigureLogger(l))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	require.NoError(t, LoggingConfig{Level: "error", Format: "text"}.ConfigureLogger(l))
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)

	assert.ErrorIs(t, LoggingConfig{Level: "nope"}.ConfigureLogger(l), ErrInvalid)
}
