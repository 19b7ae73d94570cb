package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/artifact"
	"github.com/local/pdftools/internal/metrics"
)

// Manager owns all live sessions. Transitions are applied under a lock so
// each session moves through one state at a time; tool work runs outside it
// on Ticket snapshots.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]Session), now: time.Now}
}

// Create starts an empty session with a random id.
func (m *Manager) Create() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := New(uuid.NewString(), m.now())
	m.sessions[s.ID] = s
	metrics.SetActiveSessions(len(m.sessions))
	log.Debug().Str("session_id", s.ID).Msg("session created")
	return s
}

// Get returns the current value of a session.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, apperr.Newf(apperr.KindNotFound, "session.get", "session %s", id)
	}
	return s, nil
}

// Update applies fn to the current session and stores the result. When fn
// fails the stored session is left as it was.
func (m *Manager) Update(id string, fn func(Session) (Session, error)) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, apperr.Newf(apperr.KindNotFound, "session.update", "session %s", id)
	}
	next, err := fn(s)
	if err != nil {
		return s, err
	}
	next.Updated = m.now()
	m.sessions[id] = next
	return next, nil
}

// Begin snapshots the session for a tool run.
func (m *Manager) Begin(id string, tool Tool) (Ticket, error) {
	s, err := m.Get(id)
	if err != nil {
		return Ticket{}, err
	}
	return s.Begin(tool)
}

// Finish folds a result back into the live session. If the session was
// deleted meanwhile the result is superseded.
func (m *Manager) Finish(t Ticket, art artifact.Artifact, err error) Effect {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[t.SessionID]
	if !ok {
		return Effect{Err: apperr.Newf(apperr.KindSuperseded, "session.finish", "session %s is gone", t.SessionID)}
	}
	next, eff := s.Finish(t, art, err)
	if apperr.Is(eff.Err, apperr.KindSuperseded) {
		log.Warn().Str("session_id", t.SessionID).Str("tool", string(t.Tool)).Msg("discarding result of superseded operation")
		return eff
	}
	next.Updated = m.now()
	m.sessions[t.SessionID] = next
	return eff
}

// Delete forgets a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	metrics.SetActiveSessions(len(m.sessions))
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep deletes sessions idle for longer than ttl and returns how many
// were removed.
func (m *Manager) Sweep(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-ttl)
	removed := 0
	for id, s := range m.sessions {
		if s.Updated.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	metrics.SetActiveSessions(len(m.sessions))
	return removed
}
