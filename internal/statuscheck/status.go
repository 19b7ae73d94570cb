package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// StorageChecker is satisfied by result sinks.
type StorageChecker interface {
	Check(ctx context.Context) error
}

// SlotCounter reports limiter usage.
type SlotCounter interface {
	Capacity() int
	InUse() int
}

// SessionCounter reports how many sessions are live.
type SessionCounter interface {
	Len() int
}

// Checker aggregates health checks for the dependencies behind /status.
type Checker struct {
	redis    RedisPinger
	storage  StorageChecker
	slots    SlotCounter
	sessions SessionCounter
}

// Options configures the Checker. Nil fields are reported as not configured.
type Options struct {
	Redis    RedisPinger
	Storage  StorageChecker
	Slots    SlotCounter
	Sessions SessionCounter
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis    Status `json:"redis"`
	Storage  Status `json:"storage"`
	Workers  Status `json:"workers"`
	Sessions Status `json:"sessions"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	return &Checker{
		redis:    opts.Redis,
		storage:  opts.Storage,
		slots:    opts.Slots,
		sessions: opts.Sessions,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:    c.checkRedis(ctx),
		Storage:  c.checkStorage(ctx),
		Workers:  c.checkWorkers(),
		Sessions: c.checkSessions(),
	}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: true, Message: "Not configured (in-memory jobs)"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkStorage(ctx context.Context) Status {
	if c.storage == nil {
		return Status{OK: false, Message: "Not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.storage.Check(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: fmt.Sprintf("Available (%v)", c.storage)}
}

func (c *Checker) checkWorkers() Status {
	if c.slots == nil {
		return Status{OK: false, Message: "Not configured"}
	}
	busy, total := c.slots.InUse(), c.slots.Capacity()
	return Status{OK: busy < total, Message: fmt.Sprintf("%d/%d busy", busy, total)}
}

func (c *Checker) checkSessions() Status {
	if c.sessions == nil {
		return Status{OK: false, Message: "Not configured"}
	}
	return Status{OK: true, Message: fmt.Sprintf("%d active", c.sessions.Len())}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
