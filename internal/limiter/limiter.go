// Package limiter bounds how many heavy document operations run at once.
package limiter

import (
	"context"

	"github.com/local/pdftools/internal/metrics"
)

type Options struct {
	MaxInflight int
}

// Limiter is a counting semaphore.
type Limiter struct {
	sem chan struct{}
}

func New(opts Options) *Limiter {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 2
	}
	return &Limiter{sem: make(chan struct{}, opts.MaxInflight)}
}

// Capacity returns the configured slot count.
func (l *Limiter) Capacity() int { return cap(l.sem) }

// InUse returns the number of held slots.
func (l *Limiter) InUse() int { return len(l.sem) }

// Acquire blocks until a slot is free or ctx is done. The returned release
// function must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		metrics.IncInflight()
		return l.release, nil
	case <-ctx.Done():
		metrics.IncLimiterReject()
		return func() {}, ctx.Err()
	}
}

func (l *Limiter) release() {
	<-l.sem
	metrics.DecInflight()
}
