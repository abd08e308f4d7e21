package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig controls the retrying decorator. Retries are an adapter
// concern; the repository itself never retries.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        float64
	OnRetry       func(attempt int, err error, nextDelay time.Duration)
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.1,
	}
}

var retryableErrors = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"temporary failure",
	"network is unreachable",
	"no such host",
	"i/o timeout",
	"eof",
	"broken pipe",
	"slowdown",
	"serverbusy",
	"internalerror",
}

var nonRetryableErrors = []string{
	"access denied",
	"accessdenied",
	"invalidaccesskeyid",
	"signaturedoesnotmatch",
	"nosuchbucket",
	"nosuchkey",
	"containernotfound",
	"blobnotfound",
	"invalidbucketname",
	"forbidden",
	"unauthorized",
}

// IsRetryableError classifies transient network and throttling errors.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range nonRetryableErrors {
		if strings.Contains(msg, pattern) {
			return false
		}
	}
	for _, pattern := range retryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// WithRetry runs fn until it succeeds, fails permanently or the
// attempts run out.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := float64(cfg.InitialDelay)
		for i := 1; i < attempt; i++ {
			delay *= cfg.BackoffFactor
		}
		if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
			delay = float64(cfg.MaxDelay)
		}
		if cfg.Jitter > 0 {
			delay += delay * cfg.Jitter * (rand.Float64()*2 - 1)
		}
		nextDelay := time.Duration(delay)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, nextDelay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(nextDelay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// Retrying decorates a Backend with WithRetry around every call.
type Retrying struct {
	Backend
	Config RetryConfig
}

var _ Backend = (*Retrying)(nil)

func NewRetrying(b Backend, cfg RetryConfig) *Retrying {
	return &Retrying{Backend: b, Config: cfg}
}

func (r *Retrying) List(ctx context.Context, container, prefix string) ([]ObjectInfo, error) {
	var result []ObjectInfo
	err := WithRetry(ctx, r.Config, func() error {
		var err error
		result, err = r.Backend.List(ctx, container, prefix)
		return err
	})
	return result, err
}

func (r *Retrying) Put(ctx context.Context, container, key string, data []byte, metadata map[string]string, acl ACL) error {
	// data is an in-memory slice, so every attempt re-sends it whole
	return WithRetry(ctx, r.Config, func() error {
		return r.Backend.Put(ctx, container, key, data, metadata, acl)
	})
}

func (r *Retrying) Get(ctx context.Context, container, key string) ([]byte, map[string]string, error) {
	var (
		data []byte
		meta map[string]string
	)
	err := WithRetry(ctx, r.Config, func() error {
		var err error
		data, meta, err = r.Backend.Get(ctx, container, key)
		return err
	})
	return data, meta, err
}
