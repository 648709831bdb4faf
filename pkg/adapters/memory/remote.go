// Package memory provides an in-process core.Remote, the stand-in for the
// remote push API when nothing should touch the disk.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/kbsync/pkg/core"
)

// Remote keeps every pushed package in memory.
type Remote struct {
	mu       sync.Mutex
	packages []core.PushPackage
	failWith error
}

// NewRemote creates an empty Remote.
func NewRemote() *Remote {
	return &Remote{}
}

// Push implements core.Remote.
func (r *Remote) Push(ctx context.Context, pkg core.PushPackage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}

	records := make([]core.Record, len(pkg.Records))
	for i, rec := range pkg.Records {
		records[i] = rec.Clone()
	}
	pkg.Records = records
	r.packages = append(r.packages, pkg)
	return nil
}

// FailWith makes every following push fail with err. A nil err restores success.
func (r *Remote) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

// Packages returns the packages received so far, oldest first.
func (r *Remote) Packages() []core.PushPackage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.PushPackage(nil), r.packages...)
}

// Latest returns the last package pushed by a device.
func (r *Remote) Latest(deviceID string) (core.PushPackage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.packages) - 1; i >= 0; i-- {
		if r.packages[i].DeviceID == deviceID {
			return r.packages[i], true
		}
	}
	return core.PushPackage{}, false
}

// ComponentType implements introspection.Component.
func (r *Remote) ComponentType() string {
	return "memory-remote"
}
