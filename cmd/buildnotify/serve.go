package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kart-io/buildnotify/observability"
	"github.com/kart-io/buildnotify/pkg/notifier"
	transporthttp "github.com/kart-io/buildnotify/transport/http"
)

func serveCmd(global *globalOptions) *cobra.Command {
	var (
		addr    string
		apiKeys []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept build events over HTTP",
		Long: `Run an HTTP server that accepts build events on POST /builds.

With --api-key set, /builds requires the key and PUT /config saves the
gateway configuration through the configured store.

Examples:
  buildnotify serve --addr :8080
  buildnotify serve --api-key "$BUILDNOTIFY_ADMIN_KEY" -c buildnotify.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			log, sync, err := newProcessLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer sync()

			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			telemetry, err := observability.NewTelemetryProvider(&cfg.Telemetry)
			if err != nil {
				return err
			}

			n, err := notifier.New(cfg.Notifier, store,
				notifier.WithLogger(log),
				notifier.WithTelemetry(telemetry))
			if err != nil {
				return err
			}

			if v := os.Getenv("BUILDNOTIFY_ADMIN_KEY"); v != "" && len(apiKeys) == 0 {
				apiKeys = []string{v}
			}
			server := transporthttp.NewServer(n, store, &transporthttp.Config{
				Addr:    addr,
				APIKeys: apiKeys,
				Version: version,
			}, log)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Info("Received shutdown signal", "signal", sig.String())
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown failed", "error", err)
			}
			return telemetry.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringSliceVar(&apiKeys, "api-key", nil, "API keys accepted on /builds and /config")
	return cmd
}
