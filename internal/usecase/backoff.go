package usecase

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// BackoffConfig controls retry spacing between provider attempts.
type BackoffConfig struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	JitterMin  time.Duration
	JitterMax  time.Duration
}

// BackoffOption configures BackoffScheduler.
type BackoffOption func(*BackoffScheduler)

// BackoffScheduler computes exponential delays with additive jitter. It never
// sleeps itself.
type BackoffScheduler struct {
	cfg    BackoffConfig
	random func() float64
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseDelay:  6 * time.Second,
		Multiplier: 2,
		MaxDelay:   60 * time.Second,
		JitterMin:  500 * time.Millisecond,
		JitterMax:  2 * time.Second,
	}
}

func NewBackoffScheduler(cfg BackoffConfig, opts ...BackoffOption) *BackoffScheduler {
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.JitterMin < 0 {
		cfg.JitterMin = 0
	}
	if cfg.JitterMax < cfg.JitterMin {
		cfg.JitterMax = cfg.JitterMin
	}
	b := &BackoffScheduler{cfg: cfg, random: rand.Float64}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithRandom replaces the [0,1) source used for jitter.
func WithRandom(fn func() float64) BackoffOption {
	return func(b *BackoffScheduler) {
		if fn != nil {
			b.random = fn
		}
	}
}

// Base returns the un-jittered delay after the given failed attempt, capped
// at MaxDelay.
func (b *BackoffScheduler) Base(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	exp := float64(b.cfg.BaseDelay) * math.Pow(b.cfg.Multiplier, float64(attempt-1))
	if math.IsInf(exp, 0) || math.IsNaN(exp) || exp > float64(b.cfg.MaxDelay) {
		return b.cfg.MaxDelay
	}
	return time.Duration(exp)
}

// NextDelay returns how long to wait after the given failed attempt
// (1-indexed).
func (b *BackoffScheduler) NextDelay(attempt int) (time.Duration, error) {
	if attempt < 1 {
		return 0, fmt.Errorf("backoff: attempt must be >= 1, got %d", attempt)
	}
	span := b.cfg.JitterMax - b.cfg.JitterMin
	jitter := b.cfg.JitterMin + time.Duration(b.random()*float64(span))
	return b.Base(attempt) + jitter, nil
}
