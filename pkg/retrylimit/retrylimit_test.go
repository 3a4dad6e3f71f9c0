package retrylimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

type statusErr int

func (s statusErr) Error() string   { return http.StatusText(int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

func fastConfig(attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestRetryUntilSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return statusErr(http.StatusBadGateway)
		}
		return nil
	}, nil, fastConfig(5))
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestClientErrorIsFinal(t *testing.T) {
	calls := 0
	rest := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusBadRequest}}
	err := WithRetry(context.Background(), func() error {
		calls++
		return rest
	}, nil, fastConfig(5))
	if !errors.Is(err, rest) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestFatalErrorStops(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return &FatalError{Err: errors.New("bad token")}
	}, nil, fastConfig(5))
	var fe *FatalError
	if !errors.As(err, &fe) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestMaxAttemptsWrapsLastError(t *testing.T) {
	boom := errors.New("connection reset")
	err := WithRetry(context.Background(), func() error { return boom }, nil, fastConfig(3))
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error wrapped, got %v", err)
	}
}

func TestRateLimitLowersLimiter(t *testing.T) {
	lim := NewAdaptiveLimiter(8, 1, 8, 1, 0.5)
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls == 1 {
			return statusErr(http.StatusTooManyRequests)
		}
		return nil
	}, lim, fastConfig(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lim.CurrentLimit(); got != 4 {
		t.Fatalf("limit = %v, want 4", got)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetry(ctx, func() error { return nil }, nil, fastConfig(3))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
