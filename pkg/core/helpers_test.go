package core_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/kbsync/pkg/core"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeClock advances one second per call so timestamps are distinct and ordered.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("evt-%03d", n)
	}
}

var (
	mainPC = core.Device{ID: "main-pc", Name: "Main PC (Windows)", Platform: "Windows", Account: "0nyx-lab", Role: "main"}
	subPC  = core.Device{ID: "sub-pc", Name: "Sub PC (Mac)", Platform: "macOS", Account: "sub-account", Role: "sub"}
)

func rec(id, device string, priority int, updated time.Time) core.Record {
	return core.Record{
		ID:           id,
		Title:        "title " + id,
		Content:      "content " + id,
		Category:     core.CategoryRule,
		OriginDevice: device,
		CreatedAt:    t0,
		UpdatedAt:    updated,
		Tags:         []string{"seed"},
		Priority:     priority,
		Status:       core.StatusActive,
	}
}

// newTwoDeviceStore builds the store used by the worked example: r1 on main-pc, r2 on sub-pc.
func newTwoDeviceStore(t *testing.T, opts ...core.StoreOption) *core.Store {
	t.Helper()

	clock := newFakeClock(t0.Add(time.Hour))
	base := []core.StoreOption{core.WithClock(clock.Now), core.WithIDGenerator(sequentialIDs())}
	s := core.NewStore(append(base, opts...)...)

	require.NoError(t, s.RegisterDevice(mainPC))
	require.NoError(t, s.RegisterDevice(subPC))
	require.NoError(t, s.AddRecord(rec("r1", "main-pc", 5, t0.Add(time.Minute))))
	require.NoError(t, s.AddRecord(rec("r2", "sub-pc", 4, t0.Add(2*time.Minute))))
	return s
}

func ids(records []core.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID + "@" + r.OriginDevice
	}
	return out
}
