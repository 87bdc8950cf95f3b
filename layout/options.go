package layout

import (
	"go.uber.org/zap"
)

type option struct {
	strict bool
	logger *zap.Logger
}

func applyOpts(options ...OptionFunc) *option {
	opts := &option{
		strict: true,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(opts)
	}
	return opts
}

type OptionFunc func(*option)

// WithStrict sets whether decoding stops at the first out-of-range field.
// Strict is the default.
func WithStrict(strict bool) OptionFunc {
	return func(o *option) {
		o.strict = strict
	}
}

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(o *option) {
		o.logger = logger
	}
}
