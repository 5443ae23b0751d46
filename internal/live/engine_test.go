package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// TestEngine_ExhaustsMaxReconnectsThenFatal: a subscription that fails
// immediately every time must reconnect exactly MaxReconnects times,
// each attempt spaced at least ReconnectDelay apart, then exit with a
// fatal error.
func TestEngine_ExhaustsMaxReconnectsThenFatal(t *testing.T) {
	max := 3
	delay := 20 * time.Millisecond
	e := New(Config{ReconnectDelay: delay, MaxReconnects: &max}, nil, nil, nil, nil)

	var attempts int32
	connectErr := errors.New("connection refused")
	e.connect = func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return connectErr
	}

	start := time.Now()
	err := e.Run(context.Background())
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected Run to return a fatal error once reconnects are exhausted")
	}
	if !errors.Is(err, connectErr) {
		t.Fatalf("expected wrapped connect error, got %v", err)
	}

	// One initial attempt plus `max` reconnect attempts.
	if got := atomic.LoadInt32(&attempts); got != int32(max+1) {
		t.Fatalf("expected %d connect attempts, got %d", max+1, got)
	}

	// max reconnects means max inter-attempt sleeps.
	if elapsed < time.Duration(max)*delay {
		t.Fatalf("expected at least %d reconnect delays to elapse, only %s passed", max, elapsed)
	}
}

// TestEngine_UnboundedReconnectsStopOnCancel verifies that with no
// MaxReconnects configured, the engine keeps retrying until its
// context is canceled, rather than ever returning a fatal error.
func TestEngine_UnboundedReconnectsStopOnCancel(t *testing.T) {
	e := New(Config{ReconnectDelay: 5 * time.Millisecond}, nil, nil, nil, nil)

	var attempts int32
	e.connect = func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("transient")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	err := e.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
	if atomic.LoadInt32(&attempts) < 2 {
		t.Fatalf("expected multiple reconnect attempts before cancellation, got %d", attempts)
	}
}

func TestEngine_SuccessfulConnectNeverReconnects(t *testing.T) {
	max := 1
	e := New(Config{ReconnectDelay: time.Millisecond, MaxReconnects: &max}, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	e.connect = func(ctx context.Context) error {
		cancel()
		return nil
	}

	err := e.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
