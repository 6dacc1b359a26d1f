package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kart-io/buildnotify/pkg/config"
	"github.com/kart-io/buildnotify/pkg/logger"
)

func configCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the gateway configuration",
	}
	cmd.AddCommand(configShowCmd(global))
	cmd.AddCommand(configSaveCmd(global))
	return cmd
}

func configShowCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective gateway configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg, logger.Discard)
			if err != nil {
				return err
			}
			defer closeStore()

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(store.Gateway().Redacted())
		},
	}
}

func configSaveCmd(global *globalOptions) *cobra.Command {
	var g config.Gateway
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Validate and persist the gateway configuration",
		Long: `Save the gateway configuration through the configured store backend
(store.backend: file or redis). Flags not given keep their current value.

Examples:
  buildnotify config save -c buildnotify.yaml --api-key KEY --msisdn +4366000 \
    --password PW --base-url http://ci.example.com/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if cfg.Store.Backend == "" || cfg.Store.Backend == "memory" {
				return fmt.Errorf("no store backend configured, set store.backend or BUILDNOTIFY_STORE")
			}
			store, closeStore, err := openStore(cmd.Context(), cfg, logger.Discard)
			if err != nil {
				return err
			}
			defer closeStore()

			next := store.Gateway()
			flags := cmd.Flags()
			if flags.Changed("api-key") {
				next.APIKey = g.APIKey
			}
			if flags.Changed("msisdn") {
				next.Msisdn = g.Msisdn
			}
			if flags.Changed("password") {
				next.Password = g.Password
			}
			if flags.Changed("base-url") {
				next.BaseURL = g.BaseURL
			}
			if flags.Changed("gateway-url") {
				next.GatewayURL = g.GatewayURL
			}
			if flags.Changed("shortener-url") {
				next.ShortenerURL = g.ShortenerURL
			}
			if flags.Changed("timeout") {
				next.Timeout = g.Timeout
			}
			if flags.Changed("rate-limit") {
				next.RateLimit = g.RateLimit
			}

			if err := store.Save(cmd.Context(), next); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "saved")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&g.APIKey, "api-key", "", "Gateway API key")
	f.StringVar(&g.Msisdn, "msisdn", "", "Sender id")
	f.StringVar(&g.Password, "password", "", "Gateway password")
	f.StringVar(&g.BaseURL, "base-url", "", "Build system base URL")
	f.StringVar(&g.GatewayURL, "gateway-url", "", "Gateway endpoint override")
	f.StringVar(&g.ShortenerURL, "shortener-url", "", "Shortener endpoint override")
	f.DurationVar(&g.Timeout, "timeout", 0, "HTTP timeout for gateway and shortener calls")
	f.IntVar(&g.RateLimit, "rate-limit", 0, "Messages per minute, 0 for unlimited")
	return cmd
}
