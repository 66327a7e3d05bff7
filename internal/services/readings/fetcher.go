package readings

import (
	"context"
	"fmt"
	"log/slog"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	"github.com/micro-ha/iot-dashboard/internal/model"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Fetcher resolves the latest reading for a batch of devices.
type Fetcher struct {
	readings    devicedomain.ReadingQuerier
	concurrency int
	logger      *slog.Logger
}

// New creates a fetcher issuing at most concurrency queries at once.
func New(readings devicedomain.ReadingQuerier, concurrency int, logger *slog.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Fetcher{readings: readings, concurrency: concurrency, logger: logger}
}

// FetchLatest queries every distinct id concurrently and waits for all of them.
// Devices whose query fails or finds nothing are absent from the result; a
// single failure never fails the batch.
func (f *Fetcher) FetchLatest(ctx context.Context, deviceIDs []string) map[string]model.Reading {
	ids := distinct(deviceIDs)
	slots := make([]*model.Reading, len(ids))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			reading, ok, err := f.readings.LatestReading(ctx, id)
			if err != nil {
				f.logger.Debug("latest reading skipped",
					"device_id", id,
					"err", fmt.Errorf("%w: %w", devicedomain.ErrReadingUnavailable, err))
				return nil
			}
			if !ok {
				return nil
			}
			slots[i] = &reading
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]model.Reading, len(ids))
	for i, id := range ids {
		if slots[i] != nil {
			out[id] = *slots[i]
		}
	}
	return out
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
