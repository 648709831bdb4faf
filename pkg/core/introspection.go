package core

import (
	"fmt"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Devices       []string `json:"devices"`
	Records       int      `json:"records"`
	ActiveRecords int      `json:"active_records"`
	Integrated    int      `json:"integrated"`
	History       int      `json:"history"`
	Subscribers   int      `json:"subscribers"`
	RemoteType    string   `json:"remote_type"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	remoteType := "none"
	if s.remote != nil {
		remoteType = fmt.Sprintf("%T", s.remote)
		if comp, ok := s.remote.(introspection.Component); ok {
			remoteType = comp.ComponentType()
		}
	}

	active := 0
	for _, r := range s.records {
		if r.IsActive() {
			active++
		}
	}

	return StoreState{
		Devices:       append([]string(nil), s.order...),
		Records:       len(s.records),
		ActiveRecords: active,
		Integrated:    len(Integrate(s.records)),
		History:       len(s.history),
		Subscribers:   len(s.subs),
		RemoteType:    remoteType,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
