package syncstore

import "time"

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultRefreshTimeout = 10 * time.Second
)

// Options selects the refresh strategy for Start.
type Options struct {
	// PollInterval is ignored when UsePushInvalidation is set.
	PollInterval        time.Duration
	UsePushInvalidation bool
}

func (o Options) normalize() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// State is the store lifecycle phase.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateStopped       State = "stopped"
)
