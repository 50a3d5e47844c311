package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetrySucceedsAfterTransientErrors(t *testing.T) {
	attempts := 0

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Retry called fn %d times, want 3", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	want := errors.New("persistent error")

	err := Retry(context.Background(), 3, 0, func() error {
		attempts++
		return want
	})

	if !errors.Is(err, want) {
		t.Fatalf("Retry = %v, want last error %v", err, want)
	}
	if attempts != 3 {
		t.Errorf("Retry called fn %d times, want 3", attempts)
	}
}

func TestRateLimiterFirstCallDoesNotBlock(t *testing.T) {
	rl := NewRateLimiter(60)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait returned error: %v", err)
	}
}

func TestRateLimiterHonoursCancellation(t *testing.T) {
	rl := NewRateLimiter(1) // one token per minute: second Wait would block

	ctx, cancel := context.WithCancel(context.Background())
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait returned error: %v", err)
	}

	cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait after cancel = %v, want context.Canceled", err)
	}
}
