// Package status provides the status sink: it retains the latest
// now-playing and last-scrobbled lines and broadcasts engine events to
// subscribers fire-and-forget.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osa030/scrobd/internal/domain/track"
)

// EventType represents a status event type.
type EventType int

const (
	EventNowPlaying     EventType = iota // A track was recognized as playing
	EventScrobbled                       // A listen was counted and dispatched
	EventDeliveryFailed                  // A backend rejected an event after retries
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventNowPlaying:
		return "now_playing"
	case EventScrobbled:
		return "scrobbled"
	case EventDeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

// Event is one status update pushed to subscribers.
type Event struct {
	Type      EventType
	Track     track.Track
	ServiceID string // Set for EventDeliveryFailed
	At        time.Time
}

// Stream receives status events for one subscriber.
type Stream interface {
	Send(Event) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager retains presentation state and broadcasts events. Broadcast is
// fire-and-forget: a slow or failing subscriber never blocks the poll
// loop past a short timeout.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	nowPlaying    string
	lastScrobbled string
}

// NewManager creates a status manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a subscription and returns its ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{id: id, stream: stream}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// SubscriberCount returns the number of active subscriptions.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// NowPlaying returns the current now-playing line, empty if none.
func (m *Manager) NowPlaying() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nowPlaying
}

// LastScrobbled returns the last-scrobbled line, empty if none.
func (m *Manager) LastScrobbled() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastScrobbled
}

// ClearNowPlaying resets the now-playing line when playback ends.
func (m *Manager) ClearNowPlaying() {
	m.mu.Lock()
	m.nowPlaying = ""
	m.mu.Unlock()
}

// Publish updates the retained lines and broadcasts the event.
func (m *Manager) Publish(event Event) {
	m.mu.Lock()
	switch event.Type {
	case EventNowPlaying:
		m.nowPlaying = event.Track.String()
	case EventScrobbled:
		m.lastScrobbled = event.Track.String()
	}
	// Copy subscriptions to avoid holding the lock during sends.
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			// The buffer lets an abandoned sender exit once Send
			// returns; only a Send that never returns keeps its
			// goroutine alive.
			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(event)
			}()

			select {
			case <-done:
			case <-ctx.Done():
			}
		}(sub)
	}
	wg.Wait()
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
