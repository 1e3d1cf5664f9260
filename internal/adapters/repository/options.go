package repository

import "github.com/okian/sackline/pkg/logger"

// DefaultCapacity bounds the in-memory store.
const DefaultCapacity = 1000

type settings struct {
	capacity int
	log      logger.Logger
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithCapacity sets how many records the in-memory store keeps.
func WithCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithLogger sets the logger. Stores that log fall back to the global
// logger when none is given.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

func newSettings(opts []Option) settings {
	s := settings{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
