// Package repository implements the ledger and catalog stores on gorm and in memory.
package repository

import (
	"github.com/okian/verdict/pkg/logger"
)

const defaultBatchSize = 200

// Option applies a configuration option to the gorm stores.
type Option func(*options)

type options struct {
	log       logger.Logger
	batchSize int
}

func newOptions(opts []Option) options {
	o := options{batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Named("repository")
	}
	return o
}

// WithLogger sets the logger used for storage failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithBatchSize sets the insert batch size for bulk assignment creation.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}
