package syncstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	"github.com/micro-ha/iot-dashboard/internal/model"
	"github.com/micro-ha/iot-dashboard/internal/poller"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStopped is returned for refresh results that arrive after Stop.
	ErrStopped = errors.New("sync store stopped")
	// ErrNoSubscriber is returned by Start when push invalidation has no source.
	ErrNoSubscriber = errors.New("push invalidation requires a change subscriber")
)

// LatestFetcher joins devices to their most recent reading.
type LatestFetcher interface {
	FetchLatest(ctx context.Context, deviceIDs []string) map[string]model.Reading
}

// Store owns the device snapshot and keeps it fresh by polling or by change
// notifications. At most one refresh runs at a time per lifecycle.
type Store struct {
	devices        devicedomain.DeviceLister
	readings       LatestFetcher
	subscriber     devicedomain.Subscriber
	refreshTimeout time.Duration
	logger         *slog.Logger

	current atomic.Pointer[Snapshot]
	flight  singleflight.Group

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu           sync.Mutex
	state        State
	epoch        uint64
	cancel       context.CancelFunc
	sub          devicedomain.Subscription
	done         chan struct{}
	listeners    map[uint64]func(*Snapshot)
	nextListener uint64
}

// New creates a store with the default refresh timeout. subscriber may be nil
// when push invalidation is never used.
func New(
	devices devicedomain.DeviceLister,
	readings LatestFetcher,
	subscriber devicedomain.Subscriber,
	logger *slog.Logger,
) *Store {
	return NewWithTimeout(devices, readings, subscriber, logger, DefaultRefreshTimeout)
}

// NewWithTimeout creates a store bounding each refresh cycle by timeout.
func NewWithTimeout(
	devices devicedomain.DeviceLister,
	readings LatestFetcher,
	subscriber devicedomain.Subscriber,
	logger *slog.Logger,
	timeout time.Duration,
) *Store {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	s := &Store{
		devices:        devices,
		readings:       readings,
		subscriber:     subscriber,
		refreshTimeout: timeout,
		logger:         logger,
		state:          StateUninitialized,
		listeners:      map[uint64]func(*Snapshot){},
	}
	s.current.Store(initialSnapshot())
	return s
}

// Start stops any running lifecycle, then refreshes immediately and keeps
// refreshing on the chosen strategy until Stop or ctx cancellation.
func (s *Store) Start(ctx context.Context, opts Options) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stop()
	opts = opts.normalize()

	interval := opts.PollInterval
	if opts.UsePushInvalidation {
		interval = 0
	}
	p := poller.New(s.scheduledRefresh, interval, s.logger)

	var sub devicedomain.Subscription
	if opts.UsePushInvalidation {
		if s.subscriber == nil {
			return ErrNoSubscriber
		}
		var err error
		sub, err = s.subscriber.Subscribe(p.TriggerRefresh)
		if err != nil {
			return fmt.Errorf("subscribe to changes: %w", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.epoch++
	if s.current.Load().Loading {
		s.state = StateLoading
	} else {
		s.state = StateReady
	}
	s.cancel = cancel
	s.sub = sub
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		p.Run(loopCtx)
	}()
	p.TriggerRefresh()

	s.logger.Info("sync store started",
		"push_invalidation", opts.UsePushInvalidation,
		"poll_interval", interval.String())
	return nil
}

// Stop cancels scheduled refreshes and releases the change subscription.
// A refresh already in flight finishes but its result is discarded.
func (s *Store) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()
}

func (s *Store) stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	wasRunning := s.cancel != nil
	cancel, sub, done := s.cancel, s.sub, s.done
	s.cancel, s.sub, s.done = nil, nil, nil
	s.epoch++
	s.state = StateStopped
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	if done != nil {
		<-done
	}
	if wasRunning {
		s.logger.Info("sync store stopped")
	}
}

// RefreshNow runs one refresh cycle and returns the committed snapshot. If a
// cycle is already in flight the call waits for it and shares its result.
func (s *Store) RefreshNow(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	ch := s.flight.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		return s.refresh(epoch)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Snapshot returns the latest committed snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Aggregates counts the latest committed snapshot's devices by status.
func (s *Store) Aggregates() model.Aggregates {
	return s.Snapshot().Aggregates()
}

// State returns the lifecycle phase.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Listen registers fn to run after every commit. fn runs on the refreshing
// goroutine and must return quickly.
func (s *Store) Listen(fn func(*Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) scheduledRefresh(ctx context.Context) error {
	_, err := s.RefreshNow(ctx)
	if errors.Is(err, ErrStopped) {
		return nil
	}
	return err
}

func (s *Store) refresh(epoch uint64) (*Snapshot, error) {
	// In-flight cycles are not cancelled by Stop, only discarded at commit.
	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()

	devices, err := s.devices.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if devices == nil {
		devices = []model.Device{}
	}

	ids := make([]string, 0, len(devices))
	for _, device := range devices {
		ids = append(ids, device.ID)
	}
	readings := s.readings.FetchLatest(ctx, ids)
	if readings == nil {
		readings = map[string]model.Reading{}
	}

	next := &Snapshot{
		Devices:            devices,
		ReadingsByDeviceID: readings,
		Loading:            false,
		RefreshedAt:        time.Now().UTC(),
	}
	if !s.commit(epoch, next) {
		s.logger.Debug("discarded refresh result after stop", "devices", len(devices))
		return nil, ErrStopped
	}
	return next, nil
}

func (s *Store) commit(epoch uint64, next *Snapshot) bool {
	s.mu.Lock()
	if s.state == StateStopped || s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	next.Version = s.current.Load().Version + 1
	s.current.Store(next)
	s.state = StateReady
	listeners := make([]func(*Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return true
}
