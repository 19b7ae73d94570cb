package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/session"
)

// ResultCleaner removes persisted results older than maxAge.
type ResultCleaner interface {
	Cleanup(maxAge time.Duration) int
}

// JanitorOptions configures the periodic cleanup.
type JanitorOptions struct {
	Interval     time.Duration
	SessionTTL   time.Duration
	ResultMaxAge time.Duration
}

// Janitor drops idle sessions and stale results on a ticker.
type Janitor struct {
	sessions *session.Manager
	results  ResultCleaner
	opts     JanitorOptions
}

// NewJanitor returns a janitor; results may be nil when the sink manages
// its own retention.
func NewJanitor(sessions *session.Manager, results ResultCleaner, opts JanitorOptions) *Janitor {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	return &Janitor{sessions: sessions, results: results, opts: opts}
}

// RunOnce performs one cleanup pass.
func (j *Janitor) RunOnce() (sessions, results int) {
	if j.opts.SessionTTL > 0 {
		sessions = j.sessions.Sweep(j.opts.SessionTTL)
	}
	if j.results != nil && j.opts.ResultMaxAge > 0 {
		results = j.results.Cleanup(j.opts.ResultMaxAge)
	}
	if sessions > 0 || results > 0 {
		log.Info().Int("sessions", sessions).Int("results", results).Msg("cleanup removed stale state")
	}
	return sessions, results
}

// Run repeats RunOnce until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}
