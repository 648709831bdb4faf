package core

// DefaultEventBuffer is the subscriber buffer used when a non-positive size is requested.
const DefaultEventBuffer = 100

// Subscribe returns a channel receiving every sync event appended to the history
// from now on, and a function that cancels the subscription and closes the channel.
// Delivery never blocks the store: when the buffer is full the event is dropped.
func (s *Store) Subscribe(buffer int) (<-chan SyncEvent, func()) {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	ch := make(chan SyncEvent, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *Store) publishLocked(ev SyncEvent) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			if s.logger != nil {
				s.logger.Warn("subscriber buffer full, dropping sync event", "device", ev.DeviceID, "event", ev.ID)
			}
		}
	}
}
