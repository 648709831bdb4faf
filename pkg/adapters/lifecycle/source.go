// Package lifecycle exposes store sync events as a lifecycle.Source, so a
// supervisor can consume them next to its other event sources.
package lifecycle

import (
	"context"
	"slices"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/kbsync/pkg/core"
)

// Option configures a sync event source.
type Option func(*syncSource)

// WithDevices forwards only the events of the listed devices.
func WithDevices(ids ...string) Option {
	return func(s *syncSource) {
		s.devices = append(s.devices, ids...)
	}
}

// WithFailuresOnly drops successful attempts.
func WithFailuresOnly() Option {
	return func(s *syncSource) {
		s.failuresOnly = true
	}
}

type syncSource struct {
	events       <-chan core.SyncEvent
	out          chan lifecycle.Event
	devices      []string
	failuresOnly bool
}

// NewSource wraps a channel obtained from core.Store.Subscribe. The source
// closes its Events channel when the subscription ends or Start's context is done.
func NewSource(events <-chan core.SyncEvent, opts ...Option) lifecycle.Source {
	s := &syncSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *syncSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *syncSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			var ev core.SyncEvent
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				ev = e
			}
			if !s.accepts(ev) {
				continue
			}
			select {
			case s.out <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	})
	return nil
}

func (s *syncSource) accepts(ev core.SyncEvent) bool {
	if s.failuresOnly && ev.Succeeded() {
		return false
	}
	return len(s.devices) == 0 || slices.Contains(s.devices, ev.DeviceID)
}
