package gateways

import "time"

const (
	defaultMaxRetries = 2
	defaultBackoff    = 500 * time.Millisecond
)

type retryBackoff time.Duration

func (b retryBackoff) interval() time.Duration {
	if b <= 0 {
		return defaultBackoff
	}
	return time.Duration(b)
}

// RetryOptions bounds how persistently adapters retry transient gateway
// failures before giving up.
type RetryOptions struct {
	MaxRetries uint64
	Backoff    retryBackoff
}

// NewRetryOptions builds adapter retry settings from config values.
func NewRetryOptions(maxRetries int, backoff time.Duration) RetryOptions {
	opts := RetryOptions{Backoff: retryBackoff(backoff)}
	if maxRetries > 0 {
		opts.MaxRetries = uint64(maxRetries)
	}
	return opts.withDefaults()
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.Backoff <= 0 {
		o.Backoff = retryBackoff(defaultBackoff)
	}
	return o
}
