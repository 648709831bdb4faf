package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Store owns the device registry, the knowledge collection and the sync history.
//
// It is safe for concurrent use. At most one push or pull runs per device at a
// time; operations on different devices may overlap, but every change to the
// collection is applied atomically.
type Store struct {
	mu      sync.RWMutex
	devices map[string]Device
	order   []string
	records []Record
	history []SyncEvent

	subs    map[int]chan SyncEvent
	nextSub int

	locks    deviceLocks
	remote   Remote
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		devices:  make(map[string]Device),
		subs:     make(map[int]chan SyncEvent),
		recorder: nopRecorder{},
		now:      time.Now,
		newID:    defaultIDGenerator,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterDevice adds a device to the registry. Registering an existing ID
// replaces its information but keeps its original position.
func (s *Store) RegisterDevice(d Device) error {
	if d.ID == "" {
		return fmt.Errorf("device ID cannot be empty")
	}

	s.mu.Lock()
	if _, ok := s.devices[d.ID]; !ok {
		s.order = append(s.order, d.ID)
	}
	s.devices[d.ID] = d
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("device registered", "device", d.ID, "name", d.Name)
	}
	return nil
}

// Device returns a registered device.
func (s *Store) Device(id string) (Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	return d, ok
}

// Devices returns the registered devices in registration order.
func (s *Store) Devices() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceList()
}

func (s *Store) deviceList() []Device {
	out := make([]Device, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.devices[id])
	}
	return out
}

// AddRecord appends a record to the collection. A record with the same ID
// and origin device is replaced in place instead.
func (s *Store) AddRecord(r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.devices[r.OriginDevice]; !ok {
		s.mu.Unlock()
		return &UnknownDeviceError{DeviceID: r.OriginDevice}
	}
	i := slices.IndexFunc(s.records, func(old Record) bool {
		return old.ID == r.ID && old.OriginDevice == r.OriginDevice
	})
	if i >= 0 {
		s.records[i] = r.Clone()
	} else {
		s.records = append(s.records, r.Clone())
	}
	s.mu.Unlock()

	if s.logger != nil {
		msg := "knowledge added"
		if i >= 0 {
			msg = "knowledge updated"
		}
		s.logger.Info(msg, "id", r.ID, "title", r.Title, "device", r.OriginDevice)
	}
	return nil
}

// ReplaceDeviceRecords swaps the records owned by a device for a fresh set,
// typically re-read from disk. The new records take the position of the
// device's first old record so the relative order of devices is kept.
func (s *Store) ReplaceDeviceRecords(deviceID string, records []Record) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.OriginDevice != deviceID {
			return fmt.Errorf("%w: %s belongs to %q, not %q", ErrInvalidRecord, r.ID, r.OriginDevice, deviceID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[deviceID]; !ok {
		return &UnknownDeviceError{DeviceID: deviceID}
	}

	fresh := make([]Record, len(records))
	for i, r := range records {
		fresh[i] = r.Clone()
	}

	out := make([]Record, 0, len(s.records)+len(fresh))
	inserted := false
	for _, r := range s.records {
		if r.OriginDevice != deviceID {
			out = append(out, r)
			continue
		}
		if !inserted {
			out = append(out, fresh...)
			inserted = true
		}
	}
	if !inserted {
		out = append(out, fresh...)
	}
	s.records = out

	if s.logger != nil {
		s.logger.Debug("device records replaced", "device", deviceID, "records", len(fresh))
	}
	return nil
}

// Records returns a copy of the whole collection in insertion order.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// DeviceRecords returns the records owned by a device, whatever their status.
func (s *Store) DeviceRecords(deviceID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.OriginDevice == deviceID {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (s *Store) activeRecordsLocked(deviceID string) []Record {
	var out []Record
	for _, r := range s.records {
		if r.OriginDevice == deviceID && r.IsActive() {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Integrate returns the deduplicated, ranked view of all active records.
func (s *Store) Integrate() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Integrate(s.records)
}

// Learn copies the peers' active records the target does not hold yet into the
// target's perspective and returns how many were added. Source records are kept,
// so the same ID may then exist once per device.
func (s *Store) Learn(target string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	learned, err := s.learnLocked(target)
	return len(learned), err
}

func (s *Store) learnLocked(target string) ([]Record, error) {
	if _, ok := s.devices[target]; !ok {
		return nil, &UnknownDeviceError{DeviceID: target}
	}
	learned := Learn(s.deviceList(), s.records, target, s.now())
	s.records = append(s.records, learned...)
	return learned, nil
}

// Push packages the device's active records and hands them to the remote.
// Failures never escape: they are logged, recorded in the history and reported
// as false. An unknown device is rejected without touching the history.
func (s *Store) Push(ctx context.Context, deviceID string) bool {
	if _, ok := s.Device(deviceID); !ok {
		s.rejectUnknown(deviceID, DirectionPush)
		return false
	}

	unlock := s.locks.lock(deviceID)
	defer unlock()

	s.mu.RLock()
	device := s.devices[deviceID]
	records := s.activeRecordsLocked(deviceID)
	s.mu.RUnlock()

	pkg := PushPackage{
		ID:         s.newID(),
		DeviceID:   device.ID,
		DeviceName: device.Name,
		Platform:   device.Platform,
		Account:    device.Account,
		Records:    records,
		Timestamp:  s.now(),
	}

	if err := s.callRemote(ctx, pkg); err != nil {
		failure := &SyncFailure{DeviceID: deviceID, Direction: DirectionPush, Err: err}
		if s.logger != nil {
			s.logger.Error("sync failed", "device", deviceID, "direction", DirectionPush, "error", err)
		}
		s.appendEvent(deviceID, DirectionPush, OutcomeError, len(records), failure)
		return false
	}

	if s.logger != nil {
		s.logger.Info("sync completed", "device", deviceID, "direction", DirectionPush, "records", len(records))
	}
	s.appendEvent(deviceID, DirectionPush, OutcomeSuccess, len(records), nil)
	return true
}

func (s *Store) callRemote(ctx context.Context, pkg PushPackage) (err error) {
	if s.remote == nil {
		return ctx.Err()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("remote panicked: %v", r)
		}
	}()
	return s.remote.Push(ctx, pkg)
}

// Pull learns the peers' records into the device's perspective and records the
// attempt in the history. Like Push it reports failure as false.
func (s *Store) Pull(ctx context.Context, deviceID string) bool {
	if _, ok := s.Device(deviceID); !ok {
		s.rejectUnknown(deviceID, DirectionPull)
		return false
	}

	unlock := s.locks.lock(deviceID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		failure := &SyncFailure{DeviceID: deviceID, Direction: DirectionPull, Err: err}
		if s.logger != nil {
			s.logger.Error("sync failed", "device", deviceID, "direction", DirectionPull, "error", err)
		}
		s.appendEvent(deviceID, DirectionPull, OutcomeError, 0, failure)
		return false
	}

	s.mu.Lock()
	learned, err := s.learnLocked(deviceID)
	s.mu.Unlock()
	if err != nil {
		// The device was checked above and devices are never removed.
		s.rejectUnknown(deviceID, DirectionPull)
		return false
	}

	s.recorder.RecordLearned(deviceID, len(learned))
	if s.logger != nil {
		s.logger.Info("sync completed", "device", deviceID, "direction", DirectionPull, "learned", len(learned))
	}
	s.appendEvent(deviceID, DirectionPull, OutcomeSuccess, len(learned), nil)
	return true
}

func (s *Store) rejectUnknown(deviceID string, dir Direction) {
	err := &UnknownDeviceError{DeviceID: deviceID}
	if s.logger != nil {
		s.logger.Error("sync failed", "device", deviceID, "direction", dir, "error", err)
	}
	s.recorder.RecordSync(SyncEvent{
		DeviceID:  deviceID,
		Direction: dir,
		Timestamp: s.now(),
		Outcome:   OutcomeError,
		Err:       err.Error(),
	})
}

func (s *Store) appendEvent(deviceID string, dir Direction, outcome Outcome, count int, cause error) {
	ev := SyncEvent{
		ID:          s.newID(),
		DeviceID:    deviceID,
		Direction:   dir,
		Timestamp:   s.now(),
		Outcome:     outcome,
		RecordCount: count,
	}
	if cause != nil {
		ev.Err = cause.Error()
	}

	s.mu.Lock()
	s.history = append(s.history, ev)
	s.publishLocked(ev)
	s.mu.Unlock()

	s.recorder.RecordSync(ev)
}

// History returns the sync history, oldest first.
func (s *Store) History() []SyncEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SyncEvent, len(s.history))
	copy(out, s.history)
	return out
}

// DeviceStatus returns the latest sync entry of a device, its active record
// count and whether it is considered active. The boolean is false for devices
// that were never registered.
func (s *Store) DeviceStatus(deviceID string) (DeviceStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	device, ok := s.devices[deviceID]
	if !ok {
		return DeviceStatus{}, false
	}

	status := DeviceStatus{
		Device:         device,
		TotalKnowledge: len(s.records),
		State:          DeviceInactive,
	}

	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].DeviceID == deviceID {
			latest := s.history[i]
			status.Latest = &latest
			break
		}
	}
	if status.Latest != nil && status.Latest.Succeeded() {
		status.State = DeviceActive
	}

	for _, r := range s.records {
		if r.OriginDevice == deviceID && r.IsActive() {
			status.KnowledgeCount++
		}
	}
	return status, true
}
