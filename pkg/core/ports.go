package core

import "context"

// Remote is the transport a push hands its package to.
// Implementations live in pkg/adapters; none of them talk to a network.
type Remote interface {
	Push(ctx context.Context, pkg PushPackage) error
}

// RemoteFunc adapts a function to the Remote interface.
type RemoteFunc func(ctx context.Context, pkg PushPackage) error

func (f RemoteFunc) Push(ctx context.Context, pkg PushPackage) error {
	return f(ctx, pkg)
}

// Recorder observes sync activity (metrics).
type Recorder interface {
	RecordSync(ev SyncEvent)
	RecordLearned(deviceID string, n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSync(SyncEvent) {}
func (nopRecorder) RecordLearned(string, int) {}
