// Package retrylimit provides adaptive rate limiting and retries for REST
// calls made while handling commands: fetching a replied-to message, looking
// up a member or channel for a converter.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	msg, err := retrylimit.Do(ctx, lim, retrylimit.DefaultRetryConfig(), func() (*discordgo.Message, error) {
//	    return s.ChannelMessage(channelID, messageID)
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter manages a rate limit that adjusts automatically based
// on the outcome of requests. It increases on success and decreases on
// errors.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
//
// Parameters:
//   - initial: starting requests per second
//   - minLimit: minimum allowed rate
//   - maxLimit: maximum allowed rate
//   - stepUp: increment on success
//   - stepDown: multiplier applied on failure (e.g., 0.5 to halve)
func NewAdaptiveLimiter(initial, minLimit, maxLimit, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if initial < 1 {
		initial = 1
	}
	if minLimit < 1 {
		minLimit = 1
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, max(1, int(initial))),
		minLimit: minLimit,
		maxLimit: maxLimit,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Wait blocks until a token is available or the context is canceled.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success increases the rate, unless an error was seen in the last ten
// seconds.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > 10*time.Second {
		a.adjustLimit(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited reduces the rate after an overload response.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.adjustLimit(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) adjustLimit(newLimit rate.Limit) {
	newLimit = min(max(newLimit, a.minLimit), a.maxLimit)
	if newLimit != a.limiter.Limit() {
		a.limiter.SetLimit(newLimit)
		a.limiter.SetBurst(max(1, int(newLimit)))
	}
}

// FatalError wraps errors that should stop retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// StatusCode extracts the HTTP status of a Discord REST error, 0 if err
// carries none.
func StatusCode(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	var rlErr *discordgo.RateLimitError
	if errors.As(err, &rlErr) {
		return http.StatusTooManyRequests
	}
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode()
	}
	return 0
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts    int           // 0 means 100
	InitialDelay   time.Duration // first backoff
	MaxDelay       time.Duration // backoff cap
	RateLimitDelay time.Duration // fixed delay after a 429
	Multiplier     float64
	Jitter         bool
	Logger         zerolog.Logger
}

// DefaultRetryConfig suits interactive commands: a few quick attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   250 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		RateLimitDelay: 500 * time.Millisecond,
		Multiplier:     2.0,
		Jitter:         true,
		Logger:         zerolog.Nop(),
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, the context
// ends, or the attempts run out. Client errors other than 429 (unknown
// message, missing access) are not retried.
func Do[T any](ctx context.Context, lim *AdaptiveLimiter, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 100
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return zero, err
			}
		}

		v, err := fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				cfg.Logger.Debug().Int("attempt", attempt).Msg("Request succeeded after retry")
			}
			return v, nil
		}
		lastErr = err

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return zero, fatal.Err
		}

		code := StatusCode(err)
		switch {
		case code == http.StatusTooManyRequests:
			if lim != nil {
				lim.RateLimited()
			}
			cfg.Logger.Warn().Int("attempt", attempt).Msg("Rate limited, backing off")
			if err := sleep(ctx, cfg.RateLimitDelay); err != nil {
				return zero, err
			}
			continue
		case code >= 400 && code < 500:
			return zero, err
		case code >= 500 && lim != nil:
			lim.RateLimited()
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		cfg.Logger.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Request failed, retrying")

		wait := delay
		if cfg.Jitter && delay > 0 {
			wait += rand.N(delay/4 + 1)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
		delay = min(time.Duration(float64(delay)*cfg.Multiplier), cfg.MaxDelay)
	}
	return zero, fmt.Errorf("max attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
