package remote

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InputChannel delivers text to a live session process
type InputChannel interface {
	Send(ctx context.Context, message string) error
}

// TranscriptSource reads the persisted output of a session process
type TranscriptSource interface {
	Transcript(ctx context.Context) (string, error)
}

// SessionSummary is what the endpoint knows about a launched session
type SessionSummary struct {
	ID      string `json:"id"`
	Waiting bool   `json:"waiting"`
}

type trackedSession struct {
	id         string
	waiting    bool
	launchedAt time.Time
	input      InputChannel
	transcript TranscriptSource
}

// LaunchOption attaches optional collaborators to a launched session
type LaunchOption func(*trackedSession)

// WithInput attaches a live input channel
func WithInput(ch InputChannel) LaunchOption {
	return func(s *trackedSession) { s.input = ch }
}

// WithTranscript attaches a transcript source
func WithTranscript(src TranscriptSource) LaunchOption {
	return func(s *trackedSession) { s.transcript = src }
}

// Tracker is the registry of sessions launched on this machine. The process
// launcher registers sessions; the endpoint only reads them.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*trackedSession
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]*trackedSession)}
}

// Launch registers a session, replacing any previous registration
func (t *Tracker) Launch(id string, opts ...LaunchOption) {
	s := &trackedSession{id: id, launchedAt: time.Now()}
	for _, opt := range opts {
		opt(s)
	}

	t.mu.Lock()
	t.sessions[id] = s
	t.mu.Unlock()
}

// Remove forgets a session
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

// SetWaiting updates the waiting flag. Returns false for unknown sessions.
func (t *Tracker) SetWaiting(id string, waiting bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[id]
	if !ok {
		return false
	}
	s.waiting = waiting
	return true
}

// Counts returns the number of waiting and launched sessions
func (t *Tracker) Counts() (waiting, launched int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.sessions {
		if s.waiting {
			waiting++
		}
	}
	return waiting, len(t.sessions)
}

// Sessions returns summaries in launch order
func (t *Tracker) Sessions() []SessionSummary {
	t.mu.RLock()
	tracked := make([]*trackedSession, 0, len(t.sessions))
	for _, s := range t.sessions {
		tracked = append(tracked, s)
	}
	t.mu.RUnlock()

	sort.Slice(tracked, func(i, j int) bool {
		if tracked[i].launchedAt.Equal(tracked[j].launchedAt) {
			return tracked[i].id < tracked[j].id
		}
		return tracked[i].launchedAt.Before(tracked[j].launchedAt)
	})

	summaries := make([]SessionSummary, len(tracked))
	for i, s := range tracked {
		summaries[i] = SessionSummary{ID: s.id, Waiting: s.waiting}
	}
	return summaries
}

// Input returns the session's input channel, if one is wired
func (t *Tracker) Input(id string) InputChannel {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if s, ok := t.sessions[id]; ok {
		return s.input
	}
	return nil
}

// Transcript returns the session's transcript source, if one is wired
func (t *Tracker) Transcript(id string) TranscriptSource {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if s, ok := t.sessions[id]; ok {
		return s.transcript
	}
	return nil
}
