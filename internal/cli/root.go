// Package cli implements the pincard command line: an emulated VERIFY card
// driven from arguments or stdin, and a PC/SC path to a physical card.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dariakors/pin-code-verification-command/pkg/card"
	"github.com/dariakors/pin-code-verification-command/pkg/config"
	"github.com/dariakors/pin-code-verification-command/pkg/metrics"
)

// app carries the state shared by subcommands of one invocation.
type app struct {
	configFile string
	verbose    bool

	cfg *config.Config
	log *logrus.Logger
}

// NewRootCommand builds the pincard command tree.
func NewRootCommand() *cobra.Command {
	a := &app{log: logrus.New()}

	root := &cobra.Command{
		Use:   "pincard",
		Short: "pincard - ISO/IEC 7816-4 VERIFY command processor",
		Long: `pincard emulates the VERIFY command of a smart card holding a global
and an application-specific PIN, each with its own retry counter.

Commands are hex-encoded APDUs (CLA INS P1 P2 [Lc data]); every command
is answered with a status word such as 9000, 63C2 or 6983.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "",
		"config file (YAML); PINCARD_* environment variables override it")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"log every command at debug level")

	root.AddCommand(
		a.sendCmd(),
		a.sessionCmd(),
		a.maxRetriesCmd(),
		a.readerCmd(),
		initConfigCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log.SetOutput(cmd.ErrOrStderr())
	if err := cfg.Logging.ConfigureLogger(a.log); err != nil {
		return err
	}
	if a.verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return err
	}
	a.log.WithField("path", a.cfg.Metrics.Textfile).Debug("metrics written")
	return nil
}

func (a *app) newCard() (*card.Card, error) {
	c, err := a.cfg.NewCard(card.WithLogger(a.log))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize card: %w", err)
	}
	return c, nil
}

func (a *app) maxRetriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "max-retries",
		Short: "Print the retry counter ceiling of the configured card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.newCard()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), c.GetMaxRetries())
			return err
		},
	}
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config PATH",
		Short: "Write the default configuration to PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().Write(args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", args[0])
			return err
		},
	}
}
