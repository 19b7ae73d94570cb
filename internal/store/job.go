package store

import (
	"context"
	"sync"
	"time"
)

// Job statuses.
const (
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusSuperseded = "superseded"
)

// Job records one tool run and where its result was persisted.
type Job struct {
	ID          string         `json:"job_id"`
	SessionID   string         `json:"session_id"`
	Tool        string         `json:"tool"`
	Status      string         `json:"status"`
	Message     string         `json:"message"`
	ResultName  string         `json:"result_name,omitempty"`
	ResultRef   string         `json:"-"`
	ContentType string         `json:"content_type,omitempty"`
	Size        int            `json:"size,omitempty"`
	Start       *time.Time     `json:"start_time,omitempty"`
	End         *time.Time     `json:"end_time,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// JobStore persists job records.
type JobStore interface {
	Set(ctx context.Context, job Job) error
	Get(ctx context.Context, jobID string) (Job, bool, error)
	SessionJobs(ctx context.Context, sessionID string) ([]string, error)
	Close() error
}

// Memory keeps jobs in process; used when no Redis is configured.
type Memory struct {
	mu       sync.RWMutex
	jobs     map[string]Job
	sessions map[string][]string
}

func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]Job), sessions: make(map[string][]string)}
}

func (m *Memory) Set(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; !exists && job.SessionID != "" {
		m.sessions[job.SessionID] = append(m.sessions[job.SessionID], job.ID)
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *Memory) Get(_ context.Context, jobID string) (Job, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[jobID]
	return j, ok, nil
}

func (m *Memory) SessionJobs(_ context.Context, sessionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.sessions[sessionID]...), nil
}

func (m *Memory) Close() error { return nil }
