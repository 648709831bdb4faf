package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrUnknownDevice = errors.New("unknown device")
	ErrInvalidRecord = errors.New("invalid record")
)

// UnknownDeviceError is returned when an operation names an unregistered device.
type UnknownDeviceError struct {
	DeviceID string
}

func (e *UnknownDeviceError) Error() string {
	return fmt.Sprintf("unknown device: %s", e.DeviceID)
}

// Is makes errors.Is(err, ErrUnknownDevice) match.
func (e *UnknownDeviceError) Is(target error) bool {
	return target == ErrUnknownDevice
}

// SyncFailure wraps any other failure during a push or pull.
type SyncFailure struct {
	DeviceID  string
	Direction Direction
	Err       error
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("%s failed for device %s: %v", e.Direction, e.DeviceID, e.Err)
}

func (e *SyncFailure) Unwrap() error {
	return e.Err
}
