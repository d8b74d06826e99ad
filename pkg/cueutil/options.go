// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize is the largest input accepted for parsing (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	options struct {
		maxFileSize int64
		concrete    bool
		filename    string
	}

	// Option configures compilation and validation.
	Option func(*options)
)

func defaultOptions() options {
	return options{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
		filename:    "<input>",
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxFileSize sets the maximum accepted input size in bytes.
func WithMaxFileSize(size int64) Option {
	return func(o *options) {
		o.maxFileSize = size
	}
}

// WithConcrete sets whether all values must be concrete after unification.
// Settings files leave most fields unset and validate with concrete=false.
func WithConcrete(concrete bool) Option {
	return func(o *options) {
		o.concrete = concrete
	}
}

// WithFilename sets the filename used in error messages.
func WithFilename(name string) Option {
	return func(o *options) {
		if name != "" {
			o.filename = name
		}
	}
}
