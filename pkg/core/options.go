package core

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithRemote sets the transport used by Push.
// Without a remote, Push only packages the records and reports success.
func WithRemote(remote Remote) StoreOption {
	return func(s *Store) {
		s.remote = remote
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) StoreOption {
	return func(s *Store) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// WithClock overrides time.Now (useful for testing).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the generator of event and package IDs.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func defaultIDGenerator() string {
	return uuid.NewString()
}
