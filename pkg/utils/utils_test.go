package utils

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatIndianCurrency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{0, "₹0.00"},
		{999.5, "₹999.50"},
		{1000, "₹1,000.00"},
		{100000, "₹1,00,000.00"},
		{12345678.9, "₹1,23,45,678.90"},
		{-50000, "-₹50,000.00"},
		{0.005, "₹0.01"},
		{-0.004, "₹0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatIndianCurrency(tt.in), "amount %v", tt.in)
	}
	assert.Equal(t, "-", FormatIndianAmount(math.NaN()))
}

func TestFormatQuantityAndCompact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,25,000", FormatQuantity(125000))
	assert.Equal(t, "-500", FormatQuantity(-500))
	assert.Equal(t, "12.5", FormatQuantity(12.5))

	assert.Equal(t, "₹50,000.00", FormatCompact(50000))
	assert.Equal(t, "2.50 L", FormatCompact(250000))
	assert.Equal(t, "1.20 Cr", FormatCompact(12_000_000))
	assert.Equal(t, "-3.00 L", FormatCompact(-300000))
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := RetryWithResult(context.Background(), fastRetry(3), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := RetryWithResult(context.Background(), fastRetry(2), func() (int, error) {
		calls++
		return 0, errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	permanent := errors.New("bad token")
	cfg := fastRetry(5)
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	_, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_HonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(5)
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := RetryWithResult(ctx, cfg, func() (int, error) {
			calls++
			return 0, errors.New("down")
		})
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not stop after cancel")
	}
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100*time.Millisecond, CalculateBackoff(0, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoff(2, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, time.Second, CalculateBackoff(10, 100*time.Millisecond, time.Second, 2))
}

func TestNewRunID(t *testing.T) {
	t.Parallel()

	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b, "monotonic within the same millisecond")

	u, err := ulid.ParseStrict(a)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ulid.Time(u.Time()), time.Minute)
}

func TestSessionExpiry(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"evening rolls to next morning", time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC), time.Date(2026, 3, 3, 0, 30, 0, 0, time.UTC)},
		{"before six expires same day", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC)},
		{"exactly six rolls over", time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC), time.Date(2026, 3, 3, 0, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SessionExpiry(tc.now)
			assert.True(t, got.Equal(tc.want), "got %s", got)
		})
	}
}

func TestFormatRemaining(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "expired", FormatRemaining(0))
	assert.Equal(t, "expired", FormatRemaining(-time.Minute))
	assert.Equal(t, "45m", FormatRemaining(45*time.Minute))
	assert.Equal(t, "10h 0m", FormatRemaining(10*time.Hour))
	assert.Equal(t, "5h 20m", FormatRemaining(5*time.Hour+20*time.Minute+10*time.Second))
}
