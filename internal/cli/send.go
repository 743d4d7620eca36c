package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dariakors/pin-code-verification-command/pkg/card"
)

func (a *app) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send HEX...",
		Short: "Send commands to one freshly initialized card",
		Example: `  pincard send 0020000102EF08 00200000
  pincard send 00200002 --verbose`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newCard()
			if err != nil {
				return err
			}
			for _, command := range args {
				if err := exchange(cmd.OutOrStdout(), c, command); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Read commands from stdin, one per line, against a single card",
		Long: `Read commands from stdin, one per line, against a single card.
Blank lines and lines starting with '#' are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.newCard()
			if err != nil {
				return err
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				if err := exchange(cmd.OutOrStdout(), c, line); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read commands: %w", err)
			}

			a.log.WithField("blocked", c.Blocked()).Debug("session finished")
			return nil
		},
	}
}

func exchange(w io.Writer, c *card.Card, command string) error {
	sw := c.Process(command)
	_, err := fmt.Fprintf(w, "%s -> %s\n", command, sw.Verbose())
	return err
}
