// Package ratelimit provides TTL-bound attempt counters on top of a cache
// store. Counters are best-effort: a read-modify-write race may undercount
// a burst, and an unreachable store fails open with a logged warning, so a
// degraded cache throttles nothing rather than locking everyone out.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Lernia/authgate/internal/cache"
	"github.com/Lernia/authgate/internal/config"
)

// Algorithm selects the counting strategy
type Algorithm string

const (
	SlidingWindow Algorithm = "sliding_window"
	FixedWindow   Algorithm = "fixed_window"
	TokenBucket   Algorithm = "token_bucket"
	LeakyBucket   Algorithm = "leaky_bucket"
)

// Limiter records attempts per key and denies once the configured budget
// for the window is spent
type Limiter struct {
	store     cache.Store
	algorithm Algorithm

	enabled     bool
	maxAttempts int
	window      time.Duration

	// now is the clock used for window math; overridable in tests
	now func() time.Time
}

// New creates a Limiter with the default sliding-window algorithm
func New(store cache.Store, cfg config.RateLimitConfig) *Limiter {
	return NewWithAlgorithm(store, cfg, SlidingWindow)
}

// NewWithAlgorithm creates a Limiter using the given counting strategy
func NewWithAlgorithm(store cache.Store, cfg config.RateLimitConfig, algorithm Algorithm) *Limiter {
	return &Limiter{
		store:       store,
		algorithm:   algorithm,
		enabled:     cfg.Enabled,
		maxAttempts: cfg.MaxAttempts,
		window:      time.Duration(cfg.WindowSecs) * time.Second,
		now:         time.Now,
	}
}

// Hit records a failed auth attempt for the given IP under the configured
// policy and reports whether the caller is still within budget.
func (l *Limiter) Hit(ctx context.Context, ip string) bool {
	return l.Attempt(ctx, "rate:auth:"+ip, l.maxAttempts, l.window)
}

// Allowed reports whether the given IP still has attempt budget left,
// without recording anything. Callers use it to refuse expensive credential
// work outright once the budget is spent.
func (l *Limiter) Allowed(ctx context.Context, ip string) bool {
	return l.Peek(ctx, "rate:auth:"+ip, l.maxAttempts, l.window)
}

// Attempt records an attempt against key and returns true while the number
// of attempts inside the window stays at or below maxAttempts. The enabled
// gate is checked before every attempt; a disabled limiter always allows.
func (l *Limiter) Attempt(ctx context.Context, key string, maxAttempts int, window time.Duration) bool {
	if !l.enabled || maxAttempts <= 0 {
		return true
	}

	allowed, err := l.attempt(ctx, key, maxAttempts, window)
	if err != nil {
		slog.Warn("Rate limiter store unavailable, failing open", "key", key, "error", err)
		return true
	}
	return allowed
}

// Peek reports whether an attempt against key would currently be allowed,
// recording nothing. The enabled gate and fail-open policy match Attempt.
func (l *Limiter) Peek(ctx context.Context, key string, maxAttempts int, window time.Duration) bool {
	if !l.enabled || maxAttempts <= 0 {
		return true
	}

	allowed, err := l.peek(ctx, key, maxAttempts, window)
	if err != nil {
		slog.Warn("Rate limiter store unavailable, failing open", "key", key, "error", err)
		return true
	}
	return allowed
}

func (l *Limiter) peek(ctx context.Context, key string, maxAttempts int, window time.Duration) (bool, error) {
	now := l.now()

	switch l.algorithm {
	case FixedWindow:
		var state fixedState
		if err := l.loadState(ctx, key, &state); err != nil {
			return false, err
		}
		if state.WindowStart == 0 || now.Sub(time.Unix(0, state.WindowStart)) >= window {
			return true, nil
		}
		return state.Count < maxAttempts, nil

	case TokenBucket:
		var state bucketState
		if err := l.loadState(ctx, key, &state); err != nil {
			return false, err
		}
		if state.LastRefill == 0 {
			return true, nil
		}
		tokens := state.Tokens + now.Sub(time.Unix(0, state.LastRefill)).Seconds()*float64(maxAttempts)/window.Seconds()
		if tokens > float64(maxAttempts) {
			tokens = float64(maxAttempts)
		}
		return tokens >= 1, nil

	case LeakyBucket:
		var state leakyState
		if err := l.loadState(ctx, key, &state); err != nil {
			return false, err
		}
		level := state.Level
		if state.LastLeak != 0 {
			level -= now.Sub(time.Unix(0, state.LastLeak)).Seconds() * float64(maxAttempts) / window.Seconds()
			if level < 0 {
				level = 0
			}
		}
		return level < float64(maxAttempts), nil

	default:
		var state slidingState
		if err := l.loadState(ctx, key, &state); err != nil {
			return false, err
		}
		cutoff := now.Add(-window).UnixNano()
		inWindow := 0
		for _, ts := range state.Timestamps {
			if ts > cutoff {
				inWindow++
			}
		}
		return inWindow < maxAttempts, nil
	}
}

func (l *Limiter) attempt(ctx context.Context, key string, maxAttempts int, window time.Duration) (bool, error) {
	switch l.algorithm {
	case FixedWindow:
		return l.fixedWindow(ctx, key, maxAttempts, window)
	case TokenBucket:
		return l.tokenBucket(ctx, key, maxAttempts, window)
	case LeakyBucket:
		return l.leakyBucket(ctx, key, maxAttempts, window)
	default:
		return l.slidingWindow(ctx, key, maxAttempts, window)
	}
}

// slidingState is a list of attempt timestamps inside the moving window
type slidingState struct {
	Timestamps []int64 `json:"ts"`
}

func (l *Limiter) slidingWindow(ctx context.Context, key string, maxAttempts int, window time.Duration) (bool, error) {
	now := l.now()
	cutoff := now.Add(-window).UnixNano()

	var state slidingState
	if err := l.loadState(ctx, key, &state); err != nil {
		return false, err
	}

	kept := state.Timestamps[:0]
	for _, ts := range state.Timestamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}

	kept = append(kept, now.UnixNano())
	allowed := len(kept) <= maxAttempts

	if err := l.saveState(ctx, key, slidingState{Timestamps: kept}, window); err != nil {
		return false, err
	}
	return allowed, nil
}

// fixedState counts attempts inside a calendar-style bucket
type fixedState struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"start"`
}

func (l *Limiter) fixedWindow(ctx context.Context, key string, maxAttempts int, window time.Duration) (bool, error) {
	now := l.now()

	var state fixedState
	if err := l.loadState(ctx, key, &state); err != nil {
		return false, err
	}

	start := time.Unix(0, state.WindowStart)
	if state.WindowStart == 0 || now.Sub(start) >= window {
		state = fixedState{WindowStart: now.UnixNano()}
	}

	state.Count++
	allowed := state.Count <= maxAttempts

	if err := l.saveState(ctx, key, state, window); err != nil {
		return false, err
	}
	return allowed, nil
}

// bucketState tracks a continuously refilled token budget
type bucketState struct {
	Tokens     float64 `json:"tokens"`
	LastRefill int64   `json:"refill"`
}

func (l *Limiter) tokenBucket(ctx context.Context, key string, maxAttempts int, window time.Duration) (bool, error) {
	now := l.now()
	refillRate := float64(maxAttempts) / window.Seconds()

	var state bucketState
	if err := l.loadState(ctx, key, &state); err != nil {
		return false, err
	}

	if state.LastRefill == 0 {
		state.Tokens = float64(maxAttempts)
	} else {
		elapsed := now.Sub(time.Unix(0, state.LastRefill)).Seconds()
		state.Tokens += elapsed * refillRate
		if state.Tokens > float64(maxAttempts) {
			state.Tokens = float64(maxAttempts)
		}
	}
	state.LastRefill = now.UnixNano()

	allowed := state.Tokens >= 1
	if allowed {
		state.Tokens--
	}

	if err := l.saveState(ctx, key, state, window); err != nil {
		return false, err
	}
	return allowed, nil
}

// leakyState tracks the fill level of a constantly draining queue
type leakyState struct {
	Level    float64 `json:"level"`
	LastLeak int64   `json:"leak"`
}

func (l *Limiter) leakyBucket(ctx context.Context, key string, maxAttempts int, window time.Duration) (bool, error) {
	now := l.now()
	leakRate := float64(maxAttempts) / window.Seconds()

	var state leakyState
	if err := l.loadState(ctx, key, &state); err != nil {
		return false, err
	}

	if state.LastLeak != 0 {
		elapsed := now.Sub(time.Unix(0, state.LastLeak)).Seconds()
		state.Level -= elapsed * leakRate
		if state.Level < 0 {
			state.Level = 0
		}
	}
	state.LastLeak = now.UnixNano()

	allowed := state.Level < float64(maxAttempts)
	state.Level++

	if err := l.saveState(ctx, key, state, window); err != nil {
		return false, err
	}
	return allowed, nil
}

func (l *Limiter) loadState(ctx context.Context, key string, out any) error {
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return err
	}

	// A corrupt entry restarts the window rather than blocking the caller
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		slog.Warn("Rate limiter state corrupt, resetting", "key", key, "error", err)
	}
	return nil
}

func (l *Limiter) saveState(ctx context.Context, key string, state any, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, key, string(data), ttl)
}
