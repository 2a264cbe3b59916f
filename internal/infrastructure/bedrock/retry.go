package bedrock

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/smartshop/backend/internal/domain"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
	defaultMaxJitter   = time.Second
)

// RetryConfig configures the rate-limit retry wrapper
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
}

// Retrier re-invokes rate-limited calls with exponential backoff.
// It holds no state between calls; every call gets a fresh budget.
type Retrier struct {
	cfg RetryConfig
}

// NewRetrier creates a retrier, filling zero values with defaults
func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxJitter < 0 {
		cfg.MaxJitter = 0
	}
	return &Retrier{cfg: cfg}
}

// Retry runs op, retrying only while it fails with a rate-limit signal.
// Any other failure is returned immediately; an exhausted budget returns the last error.
func Retry[T any](ctx context.Context, r *Retrier, op func(context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err != nil && !IsRateLimited(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, wait time.Duration) {
		zap.L().Warn("[Bedrock] rate limited, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&exponentialJitter{base: r.cfg.BaseDelay, jitter: r.cfg.MaxJitter}),
		backoff.WithMaxTries(uint(r.cfg.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return res, err
}

// exponentialJitter waits 2^n * base plus up to jitter before the n-th retry (n from 0)
type exponentialJitter struct {
	base    time.Duration
	jitter  time.Duration
	attempt int
}

func (b *exponentialJitter) NextBackOff() time.Duration {
	wait := b.base << b.attempt
	if b.jitter > 0 {
		wait += time.Duration(rand.Int64N(int64(b.jitter)))
	}
	b.attempt++
	return wait
}

func (b *exponentialJitter) Reset() {
	b.attempt = 0
}

// IsRateLimited reports whether err signals upstream throttling
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}

	var throttling *types.ThrottlingException
	if errors.As(err, &throttling) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}

	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) && status.HTTPStatusCode() == http.StatusTooManyRequests {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
