package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/ebfe/scard"
	"github.com/spf13/cobra"

	"github.com/dariakors/pin-code-verification-command/pkg/iso7816"
)

type readerOptions struct {
	index   int
	channel uint8
	p2      string
	pin     string
}

func (a *app) readerCmd() *cobra.Command {
	opts := &readerOptions{}

	cmd := &cobra.Command{
		Use:   "reader",
		Short: "Send one VERIFY command to a card in a PC/SC reader",
		Example: `  pincard reader --p2 01 --pin 31323334
  pincard reader --p2 00`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReader(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.index, "reader", 0, "index of the reader to use")
	cmd.Flags().Uint8Var(&opts.channel, "channel", 0, "logical channel (0-19) encoded into CLA")
	cmd.Flags().StringVar(&opts.p2, "p2", "01", "reference qualifier (00 inquiry, 01 global, 02 specific)")
	cmd.Flags().StringVar(&opts.pin, "pin", "", "PIN as hex; empty sends no data")
	return cmd
}

func (a *app) runReader(cmd *cobra.Command, opts *readerOptions) error {
	p2, err := hex.DecodeString(opts.p2)
	if err != nil || len(p2) != 1 {
		return fmt.Errorf("invalid --p2 %q: want one hex byte", opts.p2)
	}
	pin, err := hex.DecodeString(opts.pin)
	if err != nil {
		return fmt.Errorf("invalid --pin: %w", err)
	}

	cardCfg, err := a.cfg.CardConfig()
	if err != nil {
		return err
	}
	cls, err := readerClass(cardCfg.CLA, opts.channel)
	if err != nil {
		return err
	}

	ctx, sc, err := a.connect(opts.index)
	if err != nil {
		return err
	}
	defer func() {
		if err := sc.Disconnect(scard.LeaveCard); err != nil {
			a.log.WithError(err).Warn("failed to disconnect card")
		}
		if err := ctx.Release(); err != nil {
			a.log.WithError(err).Warn("failed to release context")
		}
	}()

	client := iso7816.NewClient(sc).WithLogger(a.log)
	trace, err := client.Send(iso7816.NewVerifyCommand(cls, p2[0], pin))
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	res, err := iso7816.NewVerifyResult(trace)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Describe())
	return err
}

// readerClass moves the configured CLA onto channel. Proprietary classes
// carry no channel and are used as configured.
func readerClass(cla byte, channel uint8) (iso7816.Class, error) {
	cls, err := iso7816.NewClass(cla)
	if err != nil {
		return iso7816.Class{}, err
	}
	if cls.IsProprietary {
		if channel != 0 {
			return iso7816.Class{}, fmt.Errorf("proprietary class %02X has no logical channel", cla)
		}
		return cls, nil
	}
	return iso7816.NewInterindustryClass(cls.IsChained, cls.SecureMessaging, channel)
}

// connect establishes the PC/SC context and connects to reader index.
func (a *app) connect(index int) (*scard.Context, *scard.Card, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, nil, fmt.Errorf("error establishing context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil || index < 0 || index >= len(readers) {
		if relErr := ctx.Release(); relErr != nil {
			a.log.WithError(relErr).Warn("failed to release context during error handling")
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error listing readers: %w", err)
		}
		return nil, nil, fmt.Errorf("no smart card reader at index %d (%d found)", index, len(readers))
	}

	a.log.WithField("reader", readers[index]).Info("using reader")

	// T=0 or T=1, letting the reader pick.
	sc, err := ctx.Connect(readers[index], scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		if relErr := ctx.Release(); relErr != nil {
			a.log.WithError(relErr).Warn("failed to release context during error handling")
		}
		return nil, nil, fmt.Errorf("error connecting to card: %w", err)
	}

	return ctx, sc, nil
}
