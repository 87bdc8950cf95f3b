package config

import (
	"fmt"

	"github.com/spacemeshos/smutil"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/bitcursor/shared"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatXDR   = "xdr"
)

const (
	DefaultStartBit    = 0
	DefaultStrict      = true
	DefaultFormat      = FormatTable
	DefaultLogLevel    = "info"
	DefaultParallelism = 4

	MaxParallelism = 256
)

type Config struct {
	// Layout is the field layout applied to every input, e.g. "magic=u16 flag=bit".
	Layout   string `mapstructure:"layout"`
	StartBit uint64 `mapstructure:"start-bit"`
	// Strict fails the decoding of an input as soon as a field runs past its end.
	Strict bool `mapstructure:"strict"`

	Format      string `mapstructure:"format"`
	Out         string `mapstructure:"out"`
	LogLevel    string `mapstructure:"log-level"`
	Parallelism int    `mapstructure:"parallel"`
}

func DefaultConfig() *Config {
	return &Config{
		StartBit:    DefaultStartBit,
		Strict:      DefaultStrict,
		Format:      DefaultFormat,
		LogLevel:    DefaultLogLevel,
		Parallelism: DefaultParallelism,
	}
}

func (cfg *Config) Validate() error {
	switch cfg.Format {
	case FormatTable, FormatJSON, FormatXDR:
	default:
		return shared.ConfigError{Param: "format", Value: cfg.Format, Reason: "expected: table, json or xdr"}
	}

	if cfg.Format == FormatXDR && cfg.Out == "" {
		return shared.ConfigError{Param: "out", Value: cfg.Out, Reason: "required for the xdr format"}
	}

	if cfg.Parallelism < 1 || cfg.Parallelism > MaxParallelism {
		return shared.ConfigError{
			Param:  "parallel",
			Value:  fmt.Sprint(cfg.Parallelism),
			Reason: fmt.Sprintf("expected: between 1 and %d", MaxParallelism),
		}
	}

	if _, err := cfg.Level(); err != nil {
		return shared.ConfigError{Param: "log-level", Value: cfg.LogLevel, Reason: err.Error()}
	}

	return nil
}

// Level returns the parsed LogLevel.
func (cfg *Config) Level() (zapcore.Level, error) {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(cfg.LogLevel))
	return level, err
}

// Load builds the config from the defaults, then the optional config file at
// path, then the flags that were explicitly set. Flags are looked up by their
// mapstructure key.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	vip := viper.New()
	vip.SetDefault("start-bit", cfg.StartBit)
	vip.SetDefault("strict", cfg.Strict)
	vip.SetDefault("format", cfg.Format)
	vip.SetDefault("log-level", cfg.LogLevel)
	vip.SetDefault("parallel", cfg.Parallelism)

	if path != "" {
		vip.SetConfigFile(smutil.GetCanonicalPath(path))
		if err := vip.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		if err := bindChangedFlags(vip, flags); err != nil {
			return nil, err
		}
	}

	if err := vip.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindChangedFlags binds only the flags set on the command line, so unset
// flags never shadow values from the config file.
func bindChangedFlags(vip *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = vip.BindPFlag(f.Name, f)
	})
	return err
}
