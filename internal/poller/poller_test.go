package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_TriggerWithoutInterval(t *testing.T) {
	calls := make(chan struct{}, 4)
	p := New(func(context.Context) error {
		calls <- struct{}{}
		return nil
	}, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	p.TriggerRefresh()
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for triggered refresh")
	}

	select {
	case <-calls:
		t.Fatal("unexpected refresh without trigger or interval")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	<-done
}

func TestRun_IntervalKeepsRunningAfterErrors(t *testing.T) {
	calls := make(chan struct{}, 8)
	p := New(func(context.Context) error {
		calls <- struct{}{}
		return errors.New("backend down")
	}, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for refresh %d", i+1)
		}
	}
	cancel()
	<-done
}

func TestTriggerRefresh_CoalescesPendingTriggers(t *testing.T) {
	p := New(func(context.Context) error { return nil }, 0, testLogger())
	for i := 0; i < 10; i++ {
		p.TriggerRefresh()
	}
	if len(p.refreshCh) != 1 {
		t.Fatalf("pending triggers = %d, want 1", len(p.refreshCh))
	}
}
