// Package config loads the settings of an emulated card from YAML and
// PINCARD_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dariakors/pin-code-verification-command/pkg/card"
	"github.com/dariakors/pin-code-verification-command/pkg/tlv"
)

// EnvPrefix prefixes environment overrides, e.g. PINCARD_CARD_MAX_RETRIES.
const EnvPrefix = "PINCARD"

var ErrInvalid = errors.New("config: invalid configuration")

// Config is the top-level configuration.
type Config struct {
	Card    CardConfig    `yaml:"card" mapstructure:"card"`
	Pins    PinsConfig    `yaml:"pins" mapstructure:"pins"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// CardConfig holds the command header and retry policy. Bytes are hex.
type CardConfig struct {
	CLA              string `yaml:"cla" mapstructure:"cla"`
	INS              string `yaml:"ins" mapstructure:"ins"`
	MaxRetries       int    `yaml:"max_retries" mapstructure:"max_retries"`
	InquiryReference string `yaml:"inquiry_reference" mapstructure:"inquiry_reference"` // global, specific
	ReportVerified   bool   `yaml:"report_verified" mapstructure:"report_verified"`
}

// PinsConfig holds the reference PINs as hex, or a hex personalization
// record which then takes precedence.
type PinsConfig struct {
	Global          string `yaml:"global" mapstructure:"global"`
	Specific        string `yaml:"specific" mapstructure:"specific"`
	Personalization string `yaml:"personalization,omitempty" mapstructure:"personalization"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty" mapstructure:"textfile"`
}

// Default returns the configuration of a default card.
func Default() *Config {
	pins := card.DefaultPINs()
	return &Config{
		Card: CardConfig{
			CLA:              "00",
			INS:              "20",
			MaxRetries:       card.DefaultMaxRetries,
			InquiryReference: card.ReferenceGlobal.String(),
		},
		Pins: PinsConfig{
			Global:   strings.ToUpper(hex.EncodeToString(pins[card.ReferenceGlobal])),
			Specific: strings.ToUpper(hex.EncodeToString(pins[card.ReferenceSpecific])),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("card.cla", d.Card.CLA)
	v.SetDefault("card.ins", d.Card.INS)
	v.SetDefault("card.max_retries", d.Card.MaxRetries)
	v.SetDefault("card.inquiry_reference", d.Card.InquiryReference)
	v.SetDefault("card.report_verified", d.Card.ReportVerified)
	v.SetDefault("pins.global", d.Pins.Global)
	v.SetDefault("pins.specific", d.Pins.Specific)
	v.SetDefault("pins.personalization", d.Pins.Personalization)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Load reads the YAML file at path, when path is not empty, and applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	cc, err := c.CardConfig()
	if err != nil {
		return err
	}
	p, err := c.Provisioner()
	if err != nil {
		return err
	}
	pins, err := p.Provision()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := card.NewRetryStateMachine(cc.MaxRetries, pins); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q (must be text or json)", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// CardConfig converts the card section into a card.Config.
func (c *Config) CardConfig() (card.Config, error) {
	cla, err := parseByte("card.cla", c.Card.CLA)
	if err != nil {
		return card.Config{}, err
	}
	ins, err := parseByte("card.ins", c.Card.INS)
	if err != nil {
		return card.Config{}, err
	}
	ref, err := card.ParseReference(c.Card.InquiryReference)
	if err != nil {
		return card.Config{}, fmt.Errorf("%w: card.inquiry_reference: %v", ErrInvalid, err)
	}

	cfg := card.Config{
		CLA:              cla,
		INS:              ins,
		MaxRetries:       c.Card.MaxRetries,
		InquiryReference: ref,
		ReportVerified:   c.Card.ReportVerified,
	}
	if err := cfg.Validate(); err != nil {
		return card.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// Provisioner returns the source of the reference PINs.
func (c *Config) Provisioner() (card.Provisioner, error) {
	if c.Pins.Personalization != "" {
		rec, err := tlv.DecodeHex(c.Pins.Personalization)
		if err != nil {
			return nil, fmt.Errorf("%w: pins.personalization: %v", ErrInvalid, err)
		}
		return card.PersonalizationRecord(rec), nil
	}

	pins := card.StaticPINs{}
	for id, s := range map[card.ReferenceID]string{
		card.ReferenceGlobal:   c.Pins.Global,
		card.ReferenceSpecific: c.Pins.Specific,
	} {
		pin, err := tlv.DecodeHex(s)
		if err != nil || len(pin) == 0 {
			return nil, fmt.Errorf("%w: pins.%s must be non-empty hex", ErrInvalid, id)
		}
		pins[id] = pin
	}
	return pins, nil
}

// NewCard builds the card described by the configuration.
func (c *Config) NewCard(opts ...card.Option) (*card.Card, error) {
	cfg, err := c.CardConfig()
	if err != nil {
		return nil, err
	}
	p, err := c.Provisioner()
	if err != nil {
		return nil, err
	}
	return card.New(cfg, p, opts...)
}

// ConfigureLogger applies level and format to l.
func (c LoggingConfig) ConfigureLogger(l *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	l.SetLevel(level)

	if strings.EqualFold(c.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// Write stores the configuration as YAML at path.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func parseByte(key, s string) (byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 1 {
		return 0, fmt.Errorf("%w: %s %q is not a hex byte", ErrInvalid, key, s)
	}
	return b[0], nil
}
