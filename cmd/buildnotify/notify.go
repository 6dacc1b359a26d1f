package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kart-io/buildnotify/observability"
	"github.com/kart-io/buildnotify/pkg/build"
	"github.com/kart-io/buildnotify/pkg/notifier"
)

func notifyCmd(global *globalOptions) *cobra.Command {
	var (
		eventFile  string
		reportJSON bool
	)
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notify about one finished build",
		Long: `Read a build event and send the notifications it calls for.

The build log is written to stdout. Delivery failures are reported but
never make the command fail.

Examples:
  # Notify from a JSON event
  buildnotify notify --event build.json

  # Read a YAML event from stdin and print the report
  cat build.yaml | buildnotify notify --event - --format yaml --report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			event, err := readEvent(cmd.InOrStdin(), eventFile, format)
			if err != nil {
				return err
			}

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
			defer telemetry.Shutdown(ctx)

			n, err := notifier.New(cfg.Notifier, store,
				notifier.WithLogger(log),
				notifier.WithTelemetry(telemetry))
			if err != nil {
				return err
			}

			report := n.Perform(ctx, event, cmd.OutOrStdout())
			if reportJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventFile, "event", "e", "", "Build event file, - for stdin")
	cmd.Flags().String("format", "", "Event format: json or yaml (default from file extension)")
	cmd.Flags().BoolVar(&reportJSON, "report", false, "Print the delivery report as JSON")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func readEvent(stdin io.Reader, path, format string) (*build.Event, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open event: %w", err)
		}
		defer f.Close()
		r = f
		if format == "" {
			format = strings.TrimPrefix(filepath.Ext(path), ".")
		}
	}

	switch strings.ToLower(format) {
	case "yaml", "yml":
		return build.DecodeEventYAML(r)
	default:
		return build.DecodeEvent(r)
	}
}
