package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/bitcursor/config"
)

var (
	// Version is the version of the binary.
	Version = "0.0.0"

	// Commit is the commit hash of the binary.
	Commit = ""
)

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{
		cfg:    config.DefaultConfig(),
		logger: zap.NewNop(),
	}

	rootCmd := &cobra.Command{
		Use:   "bitcli",
		Short: "Inspect bit-packed binary data",
		Long: `bitcli decodes files whose fields are packed at bit granularity,
least-significant bit first, using a layout such as "magic=u16 flag=bit len=unary".`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "path to a configuration file (yaml, toml or json)")
	flags.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newDecodeCmd(a))
	rootCmd.AddCommand(newInfoCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.logger, err = newLogger(level)
	if err != nil {
		return fmt.Errorf("failed to initialize zap logger: %w", err)
	}

	return nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	zapCfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			MessageKey:     "M",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		// stdout carries the decoded data.
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapCfg.Build()
}

// Execute runs the root command and exits with a non-zero code on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
