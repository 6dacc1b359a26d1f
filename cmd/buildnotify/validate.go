package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kart-io/buildnotify/pkg/config"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [phone-list]",
		Short: "Check a comma-separated recipient list",
		Long: `Check that every entry of a comma-separated phone list uses only digits,
parentheses, slash, plus, space or hyphen.

Examples:
  buildnotify validate "+43 (660) 123-4567,+15551234"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.ValidatePhoneList(args[0]) {
				return fmt.Errorf("invalid phone list %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
