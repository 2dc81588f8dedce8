// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry implements the single bounded-backoff policy shared by the
// fetch stage and the generation-service client: a fixed number of attempts
// with exponential backoff and jitter. Errors marked Permanent stop the loop
// early; everything else is retried until attempts run out.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Defaults applied by FromConfig when a field is unset.
const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultMultiplier  = 2.0
	defaultJitter      = 0.1
)

// Policy is a normalized retry policy. The zero value is not usable; build
// one with FromConfig.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

// FromConfig builds a Policy from configuration, filling unset fields with
// defaults.
func FromConfig(cfg types.RetryConfig) Policy {
	p := Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		Multiplier:  cfg.Multiplier,
		Jitter:      cfg.Jitter,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = defaultMultiplier
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		p.Jitter = defaultJitter
	}
	return p
}

// permanentError wraps an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. fn receives
// the 1-based attempt number. Do returns nil on the first success, the error
// unwrapped if fn returns a Permanent error, ctx.Err() if the context is
// cancelled during a backoff wait, and otherwise the last attempt's error.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
	return lastErr
}

// Delay returns the backoff before the attempt following the given 1-based
// attempt number: BaseDelay * Multiplier^(attempt-1), capped at MaxDelay and
// randomized by ±Jitter.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		// Spread uniformly over [d*(1-j), d*(1+j)].
		d += d * p.Jitter * (2*rand.Float64() - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
