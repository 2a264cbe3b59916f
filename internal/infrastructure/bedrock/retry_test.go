package bedrock

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartshop/backend/internal/domain"
)

// statusError mimics transport errors that expose an HTTP status code
type statusError struct{ code int }

func (e statusError) Error() string       { return "upstream error" }
func (e statusError) HTTPStatusCode() int { return e.code }

func fastRetrier(attempts int) *Retrier {
	return NewRetrier(RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxJitter: 0})
}

func TestNewRetrier(t *testing.T) {
	r := NewRetrier(RetryConfig{})
	assert.Equal(t, defaultMaxAttempts, r.cfg.MaxAttempts)
	assert.Equal(t, defaultBaseDelay, r.cfg.BaseDelay)
	assert.Equal(t, time.Duration(0), r.cfg.MaxJitter)

	r = NewRetrier(RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxJitter: 500 * time.Millisecond})
	assert.Equal(t, 5, r.cfg.MaxAttempts)
	assert.Equal(t, time.Second, r.cfg.BaseDelay)
	assert.Equal(t, 500*time.Millisecond, r.cfg.MaxJitter)
}

func TestExponentialJitter(t *testing.T) {
	t.Run("doubles from the base delay", func(t *testing.T) {
		b := &exponentialJitter{base: 2 * time.Second}
		assert.Equal(t, 2*time.Second, b.NextBackOff())
		assert.Equal(t, 4*time.Second, b.NextBackOff())
		assert.Equal(t, 8*time.Second, b.NextBackOff())

		b.Reset()
		assert.Equal(t, 2*time.Second, b.NextBackOff())
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		b := &exponentialJitter{base: 2 * time.Second, jitter: time.Second}
		for i := 0; i < 50; i++ {
			b.Reset()
			wait := b.NextBackOff()
			assert.GreaterOrEqual(t, wait, 2*time.Second)
			assert.Less(t, wait, 3*time.Second)
		}
	})
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	rateLimited := fmt.Errorf("%w: 429 Too Many Requests", domain.ErrRateLimited)

	t.Run("succeeds after two rate-limited attempts", func(t *testing.T) {
		calls := 0
		got, err := Retry(ctx, fastRetrier(3), func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", rateLimited
			}
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts the budget and returns the last error", func(t *testing.T) {
		calls := 0
		_, err := Retry(ctx, fastRetrier(3), func(ctx context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("attempt %d: %w", calls, rateLimited)
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
		assert.Contains(t, err.Error(), "attempt 3")
	})

	t.Run("non rate-limit failure propagates without retry", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		_, err := Retry(ctx, fastRetrier(3), func(ctx context.Context) (int, error) {
			calls++
			return 0, boom
		})

		assert.Equal(t, 1, calls)
		assert.Same(t, boom, err)
	})

	t.Run("malformed response is not retried", func(t *testing.T) {
		calls := 0
		_, err := Retry(ctx, fastRetrier(3), func(ctx context.Context) ([]domain.StoreOffer, error) {
			calls++
			return DecodeJSON[[]domain.StoreOffer](`[{"id":`)
		})

		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := NewRetrier(RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour})

		calls := 0
		_, err := Retry(ctx, slow, func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, rateLimited
		})

		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "sentinel", err: fmt.Errorf("wrapped: %w", domain.ErrRateLimited), want: true},
		{name: "bedrock throttling", err: fmt.Errorf("converse: %w", &types.ThrottlingException{Message: new(string)}), want: true},
		{name: "generic api code", err: &smithy.GenericAPIError{Code: "TooManyRequestsException"}, want: true},
		{name: "other api code", err: &smithy.GenericAPIError{Code: "ValidationException"}, want: false},
		{name: "http 429", err: statusError{code: 429}, want: true},
		{name: "http 500", err: statusError{code: 500}, want: false},
		{name: "429 in message", err: errors.New("status 429 returned"), want: true},
		{name: "resource exhausted", err: errors.New("RESOURCE_EXHAUSTED: quota"), want: true},
		{name: "plain failure", err: errors.New("connection reset"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimited(tt.err))
		})
	}
}
