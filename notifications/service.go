package notifications

import (
	"sync"
	"time"
)

// EventType represents the type of notification event
type EventType string

const (
	EventSessionChanged EventType = "session-changed"
	EventSessionDeleted EventType = "session-deleted"
	EventProjectChanged EventType = "project-changed"
	EventSyncCompleted  EventType = "sync-completed"
)

// Event represents a notification event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	SessionID string    `json:"sessionId,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Service fans change events out to in-process subscribers
type Service struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool
}

// NewService creates a new notification service
func NewService() *Service {
	return &Service{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe creates a new subscription channel
// Returns the event channel and an unsubscribe function
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// Only close if the channel is still in subscribers map
		if _, exists := s.subscribers[ch]; exists {
			delete(s.subscribers, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Notify broadcasts an event to all subscribers. Slow subscribers miss
// events rather than block the publisher.
func (s *Service) Notify(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip this subscriber
		}
	}
}

// NotifySessionChanged sends a session-changed event
func (s *Service) NotifySessionChanged(sessionID string, operation string) {
	s.Notify(Event{
		Type:      EventSessionChanged,
		SessionID: sessionID,
		Data: map[string]interface{}{
			"operation": operation,
		},
	})
}

// NotifySessionDeleted sends a session-deleted event
func (s *Service) NotifySessionDeleted(sessionID string) {
	s.Notify(Event{
		Type:      EventSessionDeleted,
		SessionID: sessionID,
	})
}

// NotifyProjectChanged sends a project-changed event
func (s *Service) NotifyProjectChanged(projectID string, operation string) {
	s.Notify(Event{
		Type: EventProjectChanged,
		Data: map[string]interface{}{
			"projectId": projectID,
			"operation": operation,
		},
	})
}

// NotifySyncCompleted sends a sync-completed event with the pass outcome
func (s *Service) NotifySyncCompleted(result any) {
	s.Notify(Event{
		Type: EventSyncCompleted,
		Data: result,
	})
}

// Shutdown closes all subscriber channels
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = make(map[chan Event]struct{})
}

// SubscriberCount returns the number of active subscribers
func (s *Service) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
