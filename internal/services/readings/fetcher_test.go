package readings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	"github.com/micro-ha/iot-dashboard/internal/model"
)

type queryFunc func(ctx context.Context, deviceID string) (model.Reading, bool, error)

func (f queryFunc) LatestReading(ctx context.Context, deviceID string) (model.Reading, bool, error) {
	return f(ctx, deviceID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchLatest_IsolatesPerDeviceFailures(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	querier := queryFunc(func(_ context.Context, id string) (model.Reading, bool, error) {
		switch id {
		case "a":
			return model.Reading{DeviceID: "a", Value: 7, Unit: "C", Timestamp: at}, true, nil
		case "b":
			return model.Reading{}, false, devicedomain.ErrBackendUnavailable
		default:
			return model.Reading{}, false, nil
		}
	})

	got := New(querier, 2, testLogger()).FetchLatest(context.Background(), []string{"a", "b", "c"})

	if len(got) != 1 {
		t.Fatalf("expected 1 reading, got %d: %+v", len(got), got)
	}
	if got["a"].Value != 7 {
		t.Fatalf("reading for a = %+v, want value 7", got["a"])
	}
	if _, ok := got["b"]; ok {
		t.Fatal("failed device b must be absent")
	}
	if _, ok := got["c"]; ok {
		t.Fatal("device c without readings must be absent")
	}
}

func TestFetchLatest_RunsQueriesConcurrently(t *testing.T) {
	var (
		inFlight atomic.Int32
		peak     atomic.Int32
		release  = make(chan struct{})
		started  sync.WaitGroup
	)
	started.Add(3)
	querier := queryFunc(func(_ context.Context, id string) (model.Reading, bool, error) {
		current := inFlight.Add(1)
		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}
		started.Done()
		<-release
		inFlight.Add(-1)
		return model.Reading{DeviceID: id}, true, nil
	})

	done := make(chan map[string]model.Reading, 1)
	go func() {
		done <- New(querier, 8, testLogger()).FetchLatest(context.Background(), []string{"a", "b", "c"})
	}()

	started.Wait()
	select {
	case <-done:
		t.Fatal("FetchLatest returned before all queries settled")
	default:
	}
	close(release)

	got := <-done
	if len(got) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(got))
	}
	if peak.Load() != 3 {
		t.Fatalf("peak concurrency = %d, want 3", peak.Load())
	}
}

func TestFetchLatest_DeduplicatesIDs(t *testing.T) {
	var calls atomic.Int32
	querier := queryFunc(func(_ context.Context, id string) (model.Reading, bool, error) {
		calls.Add(1)
		return model.Reading{DeviceID: id}, true, nil
	})

	got := New(querier, 0, testLogger()).FetchLatest(context.Background(), []string{"a", "a", "b"})
	if calls.Load() != 2 {
		t.Fatalf("queries = %d, want 2", calls.Load())
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
}

func TestFetchLatest_EmptyInput(t *testing.T) {
	querier := queryFunc(func(context.Context, string) (model.Reading, bool, error) {
		return model.Reading{}, false, errors.New("unexpected call")
	})
	if got := New(querier, 1, testLogger()).FetchLatest(context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
