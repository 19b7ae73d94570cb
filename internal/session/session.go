// Package session models per-user tool state as immutable values.
//
// Every user action is a transition that returns the next Session; nothing
// is mutated in place. Long running tools capture a Ticket with Begin and
// report back with Finish. Reset and every Finish bump Generation, so a
// result that arrives after a reset is recognised as stale and dropped.
package session

import (
	"time"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/artifact"
	"github.com/local/pdftools/internal/docqueue"
)

// Tool names an operation that consumes session state.
type Tool string

const (
	ToolNumber   Tool = "number"
	ToolCompress Tool = "compress"
	ToolSplit    Tool = "split"
	ToolMerge    Tool = "merge"
	ToolPreview  Tool = "preview"
)

// Selection is the single document the number, compress and split tools
// work on.
type Selection struct {
	File      docqueue.RawFile
	PageCount int
}

// Session is one user's tool state.
type Session struct {
	ID         string
	Generation uint64
	Selected   *Selection
	Queue      docqueue.Queue
	Updated    time.Time
}

// New returns an empty session.
func New(id string, now time.Time) Session {
	return Session{ID: id, Updated: now}
}

// Select replaces the selected document. A file of another declared type
// leaves the session unchanged.
func (s Session) Select(file docqueue.RawFile, pageCount int) (Session, error) {
	if !file.Accepted() {
		return s, apperr.Newf(apperr.KindInvalidInputType, "session.select", "%s has type %q", file.Name, file.ContentType)
	}
	s.Selected = &Selection{File: file, PageCount: pageCount}
	return s, nil
}

// Deselect drops the selected document and keeps the queue.
func (s Session) Deselect() Session {
	s.Selected = nil
	return s
}

// AddFiles appends files to the merge queue.
func (s Session) AddFiles(files []docqueue.RawFile) (Session, docqueue.AddResult) {
	q, res := s.Queue.Add(files)
	s.Queue = q
	return s, res
}

// RemoveFile drops a queued file by position.
func (s Session) RemoveFile(index int) (Session, error) {
	q, err := s.Queue.RemoveAt(index)
	if err != nil {
		return s, err
	}
	s.Queue = q
	return s, nil
}

// Reorder applies a full permutation to the queue.
func (s Session) Reorder(order []int) (Session, error) {
	q, err := s.Queue.Reorder(order)
	if err != nil {
		return s, err
	}
	s.Queue = q
	return s, nil
}

// Move drags one queued file to a new position.
func (s Session) Move(from, to int) (Session, error) {
	q, err := s.Queue.Move(from, to)
	if err != nil {
		return s, err
	}
	s.Queue = q
	return s, nil
}

// Reset discards the selection and the queue and invalidates every
// outstanding Ticket.
func (s Session) Reset() Session {
	s.Selected = nil
	s.Queue = docqueue.Queue{}
	s.Generation++
	return s
}

// CanMerge exposes the merge enablement predicate.
func (s Session) CanMerge() bool { return s.Queue.CanMerge() }

// Ticket is an immutable snapshot handed to a running tool.
type Ticket struct {
	SessionID  string
	Generation uint64
	Tool       Tool
	Selected   Selection
	Entries    []docqueue.Entry
}

// Begin captures what tool needs. Merge needs at least two queued files;
// every other tool needs a selected document.
func (s Session) Begin(tool Tool) (Ticket, error) {
	t := Ticket{SessionID: s.ID, Generation: s.Generation, Tool: tool}
	if tool == ToolMerge {
		if !s.Queue.CanMerge() {
			return Ticket{}, apperr.Newf(apperr.KindInsufficientInputs, "session.begin", "%d files queued", s.Queue.Len())
		}
		t.Entries = s.Queue.Snapshot()
		return t, nil
	}
	if s.Selected == nil {
		return Ticket{}, apperr.New(apperr.KindNoSelection, "session.begin", "no document selected")
	}
	t.Selected = *s.Selected
	return t, nil
}

// Effect is the single side effect a finished tool produces: a download or
// an error to show.
type Effect struct {
	Download *artifact.Artifact
	Err      error
}

// Finish folds a tool result back into the session.
//
// A ticket from an older generation yields a Superseded effect and leaves
// the session untouched. Otherwise the consumed state is cleared: the queue
// after any merge, the selection after any other tool. A numbering run that
// selected no pages keeps the selection so the range can be corrected.
// Previews consume nothing and do not advance the generation, so a running
// tool is not superseded by a preview of the same document.
func (s Session) Finish(t Ticket, art artifact.Artifact, err error) (Session, Effect) {
	if t.SessionID != s.ID || t.Generation != s.Generation {
		return s, Effect{Err: apperr.Newf(apperr.KindSuperseded, "session.finish", "%s result from generation %d, session at %d", t.Tool, t.Generation, s.Generation)}
	}

	var eff Effect
	if err != nil {
		eff.Err = err
	} else {
		a := art
		eff.Download = &a
	}
	if t.Tool == ToolPreview {
		return s, eff
	}
	s.Generation++

	switch {
	case t.Tool == ToolMerge:
		s.Queue = docqueue.Queue{}
	case t.Tool == ToolNumber && apperr.Is(err, apperr.KindEmptyResult):
	default:
		s.Selected = nil
	}
	return s, eff
}
