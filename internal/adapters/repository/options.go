package repository

import "github.com/m-mukund/fpl-optimizer/pkg/logger"

type options struct {
	logger   logger.Logger
	maxConns int32
}

// Option applies a configuration option to a projection store.
type Option func(*options)

// WithLogger sets the logger used for query diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxConns caps the Postgres pool size. SQLite always uses one connection.
func WithMaxConns(n int32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
