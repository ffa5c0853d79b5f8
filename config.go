package delayhandler

import (
	"time"
)

const (
	_defaultMaxDispatchWorkers = 4

	_defaultFailureRetryDelay = 10 * time.Second
	_defaultMaxRetryDelay     = 60 * time.Minute
)

// Config for the dispatcher.
type Config struct {
	// MaxDispatchWorkers is the number of worker goroutines in the pool
	// running actions for expired values.
	MaxDispatchWorkers int `yaml:"max_dispatch_workers"`

	// DispatchRate caps how many expired values per second are handed to
	// the worker pool. Zero or negative means no limit.
	DispatchRate float64 `yaml:"dispatch_rate"`
	// DispatchBurst is the burst size used with DispatchRate.
	DispatchBurst int `yaml:"dispatch_burst"`

	// FailureRetryDelay is the delay increment for each retry when the
	// action for a value fails. Backoff will be applied for up to
	// MaxRetryDelay.
	FailureRetryDelay time.Duration `yaml:"failure_retry_delay"`
	// MaxRetryDelay is the absolute maximum duration between any retry,
	// capping any backoff to this amount.
	MaxRetryDelay time.Duration `yaml:"max_retry_delay"`
}

// normalize enforces sane defaults on unset fields.
func (c *Config) normalize() {
	if c.MaxDispatchWorkers <= 0 {
		c.MaxDispatchWorkers = _defaultMaxDispatchWorkers
	}
	if c.DispatchBurst <= 0 {
		c.DispatchBurst = 1
	}
	if c.FailureRetryDelay <= 0 {
		c.FailureRetryDelay = _defaultFailureRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = _defaultMaxRetryDelay
	}
}
