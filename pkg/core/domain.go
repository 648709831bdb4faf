// Package core holds the knowledge domain: records, devices, sync history
// and the Store that deduplicates, merges and ranks records across devices.
package core

import (
	"fmt"
	"slices"
	"time"
)

// Category groups records for reporting. The engine does not validate it.
type Category string

const (
	CategoryRule           Category = "rule"
	CategoryIssue          Category = "issue"
	CategoryDocument       Category = "document"
	CategoryImplementation Category = "implementation"
)

// Status is the lifecycle state of a record.
// Only StatusActive records take part in integration, learning and push.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// LearnedTag marks a record copied from a peer device during Learn.
const LearnedTag = "learned"

// Priority bounds.
const (
	MinPriority = 1
	MaxPriority = 5
)

// Record is a unit of knowledge owned by a device.
// ID is the deduplication key; several devices may hold a record with the same ID.
type Record struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     Category  `json:"category"`
	OriginDevice string    `json:"origin_device"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Tags         []string  `json:"tags"`
	Priority     int       `json:"priority"`
	Status       Status    `json:"status"`
}

// IsActive reports whether the record participates in integration.
func (r Record) IsActive() bool {
	return r.Status == StatusActive
}

// HasTag reports whether the record carries the given tag.
func (r Record) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// Clone returns a copy that shares no mutable state with r.
func (r Record) Clone() Record {
	r.Tags = slices.Clone(r.Tags)
	return r
}

// Validate checks the rules enforced on insertion.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	if r.Priority < MinPriority || r.Priority > MaxPriority {
		return fmt.Errorf("%w: %s: priority %d out of range [%d,%d]", ErrInvalidRecord, r.ID, r.Priority, MinPriority, MaxPriority)
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		return fmt.Errorf("%w: %s: updated_at before created_at", ErrInvalidRecord, r.ID)
	}
	return nil
}

// Device is a named execution environment (machine/account pair) owning records.
type Device struct {
	ID       string `json:"device_id"`
	Name     string `json:"device_name"`
	Platform string `json:"platform"`
	Account  string `json:"account"`
	Role     string `json:"role"`
}

// Direction tells whether a sync attempt pushed or pulled.
type Direction string

const (
	DirectionPush Direction = "push"
	DirectionPull Direction = "pull"
)

// Outcome is the result of a sync attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// SyncEvent is an immutable entry of the sync history.
type SyncEvent struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"device_id"`
	Direction   Direction `json:"direction"`
	Timestamp   time.Time `json:"timestamp"`
	Outcome     Outcome   `json:"outcome"`
	RecordCount int       `json:"record_count"`
	Err         string    `json:"error,omitempty"`
}

// Succeeded reports whether the attempt succeeded.
func (e SyncEvent) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}

// String implements fmt.Stringer (and lifecycle.Event).
func (e SyncEvent) String() string {
	s := fmt.Sprintf("%s %s %s at %s (%d records)", e.DeviceID, e.Direction, e.Outcome, e.Timestamp.Format(time.RFC3339), e.RecordCount)
	if e.Err != "" {
		s += ": " + e.Err
	}
	return s
}

// DeviceState is the derived liveness of a device.
type DeviceState string

const (
	DeviceActive   DeviceState = "active"
	DeviceInactive DeviceState = "inactive"
)

// DeviceStatus summarises a device for status lookups and reports.
type DeviceStatus struct {
	Device         Device      `json:"device_info"`
	Latest         *SyncEvent  `json:"latest_sync"`
	KnowledgeCount int         `json:"knowledge_count"`
	TotalKnowledge int         `json:"total_knowledge"`
	State          DeviceState `json:"status"`
}

// PushPackage is what a push hands to the Remote.
type PushPackage struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	Platform   string    `json:"platform"`
	Account    string    `json:"account"`
	Records    []Record  `json:"knowledge_items"`
	Timestamp  time.Time `json:"sync_time"`
}
