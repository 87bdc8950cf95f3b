package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/bitcursor/config"
	"github.com/spacemeshos/bitcursor/shared"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("layout", "", "")
	flags.Uint64("start-bit", config.DefaultStartBit, "")
	flags.Bool("strict", config.DefaultStrict, "")
	flags.String("format", config.DefaultFormat, "")
	flags.String("out", "", "")
	flags.String("log-level", config.DefaultLogLevel, "")
	flags.Int("parallel", config.DefaultParallelism, "")
	return flags
}

func writeConfig(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, level)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*config.Config)
		param  string
	}{
		{"unknown format", func(c *config.Config) { c.Format = "csv" }, "format"},
		{"xdr without out", func(c *config.Config) { c.Format = config.FormatXDR }, "out"},
		{"zero parallelism", func(c *config.Config) { c.Parallelism = 0 }, "parallel"},
		{"too much parallelism", func(c *config.Config) { c.Parallelism = config.MaxParallelism + 1 }, "parallel"},
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }, "log-level"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.DefaultConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			var cfgErr shared.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, tc.param, cfgErr.Param)
		})
	}

	cfg := config.DefaultConfig()
	cfg.Format = config.FormatXDR
	cfg.Out = "records.xdr"
	require.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig(), cfg)

	cfg, err = config.Load("", testFlags())
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "bitcli.yaml", `
layout: "magic=u16 flag=bit len=unary"
start-bit: 8
strict: false
format: json
parallel: 2
`)

	cfg, err := config.Load(path, testFlags())
	require.NoError(t, err)
	require.Equal(t, "magic=u16 flag=bit len=unary", cfg.Layout)
	require.Equal(t, uint64(8), cfg.StartBit)
	require.False(t, cfg.Strict)
	require.Equal(t, config.FormatJSON, cfg.Format)
	require.Equal(t, 2, cfg.Parallelism)
	require.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "bitcli.toml", `
layout = "u8 u8"
format = "json"
parallel = 2
`)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--format", "table", "--start-bit", "3"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)
	require.Equal(t, "u8 u8", cfg.Layout)
	require.Equal(t, config.FormatTable, cfg.Format)
	require.Equal(t, uint64(3), cfg.StartBit)
	require.Equal(t, 2, cfg.Parallelism)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	path := writeConfig(t, "bitcli.yaml", "format: csv\n")
	_, err = config.Load(path, nil)
	var cfgErr shared.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "format", cfgErr.Param)
}
