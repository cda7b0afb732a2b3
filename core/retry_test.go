package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffRatio: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 300 * time.Millisecond},
		{5, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
	if NoRetry().Delay(3) != 0 {
		t.Error("NoRetry should not wait")
	}
}

func TestRetryPolicy_Do(t *testing.T) {
	p := RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffRatio: 1}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("Do = %v after %d calls, want nil after 3", err, calls)
	}

	calls = 0
	boom := errors.New("permanent")
	err = p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 3 {
		t.Errorf("Do = %v after %d calls, want permanent after 3", err, calls)
	}
}

func TestRetryPolicy_DoCanceled(t *testing.T) {
	p := RetryPolicy{MaxRetries: 10, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffRatio: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Do(ctx, func(ctx context.Context) error { return errors.New("fail") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do = %v, want context.Canceled", err)
	}
}
