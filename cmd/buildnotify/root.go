package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kart-io/buildnotify/pkg/config"
	"github.com/kart-io/buildnotify/pkg/logger"
)

type globalOptions struct {
	configFile string
	envFiles   []string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "buildnotify",
		Short: "Send SMS notifications about finished builds",
		Long: `buildnotify decides whether a finished build is worth a text message,
composes it from a template and sends it through the SMS gateway to the
configured recipients and, optionally, to the build's culprits.

Configuration is read from an optional YAML file, then from a .env file
and BUILDNOTIFY_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Process log level: silent, error, warn, info, debug")

	cmd.AddCommand(notifyCmd(opts))
	cmd.AddCommand(serveCmd(opts))
	cmd.AddCommand(validateCmd())
	cmd.AddCommand(configCmd(opts))
	return cmd
}

func (o *globalOptions) load() (*config.Config, error) {
	opts := []config.Option{config.WithDefaults()}
	if o.configFile != "" {
		opts = append(opts, config.WithFile(o.configFile))
	}
	opts = append(opts, config.WithEnvDefaults(o.envFiles...))
	if o.logLevel != "" {
		level := o.logLevel
		opts = append(opts, func(c *config.Config) error {
			c.Logger.Level = level
			return nil
		})
	}
	return config.New(opts...)
}

// newProcessLogger builds the zap-backed process logger. The returned sync
// function flushes buffered entries.
func newProcessLogger(cfg config.LoggerConfig) (logger.Logger, func(), error) {
	level := logger.ParseLevel(cfg.Level)
	if level == logger.Silent {
		return logger.Discard, func() {}, nil
	}

	var zc zap.Config
	if strings.EqualFold(cfg.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Level = zap.NewAtomicLevelAt(zapLevel(level))

	zl, err := zc.Build()
	if err != nil {
		return nil, nil, err
	}
	return logger.NewZapLogger(zl).LogMode(level), func() { _ = zl.Sync() }, nil
}

func zapLevel(level logger.LogLevel) zapcore.Level {
	switch level {
	case logger.Error:
		return zapcore.ErrorLevel
	case logger.Warn:
		return zapcore.WarnLevel
	case logger.Debug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// openStore returns the gateway store, loaded from its backend when one is
// configured. close releases the backend.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*config.Store, func() error, error) {
	backend, closeFn, err := config.OpenBackend(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	store := config.NewStore(cfg.Gateway, backend, log)
	if err := store.Load(ctx); err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}
