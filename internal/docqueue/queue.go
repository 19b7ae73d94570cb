// Package docqueue holds the ordered, name-deduplicated list of documents
// waiting to be merged. A Queue is a value: every command returns a new
// queue and leaves the receiver untouched.
package docqueue

import (
	"strings"

	"github.com/local/pdftools/internal/apperr"
)

// AcceptedType is the only declared content type the queue takes in.
const AcceptedType = "application/pdf"

// RawFile is an uploaded source before it has been loaded.
type RawFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Accepted reports whether the declared content type is a PDF. Parameters
// such as "; charset=binary" are ignored.
func (f RawFile) Accepted() bool {
	mt, _, _ := strings.Cut(f.ContentType, ";")
	return strings.EqualFold(strings.TrimSpace(mt), AcceptedType)
}

// Entry is one queued document.
type Entry struct {
	File        RawFile
	DisplayName string
	Position    int
}

// AddResult reports what Add did with each input.
type AddResult struct {
	Added      []string
	Rejected   []string
	Duplicates []string
}

// Queue is an immutable ordered set of entries keyed by display name.
type Queue struct {
	entries []Entry
}

// Len returns the number of queued documents.
func (q Queue) Len() int { return len(q.entries) }

// CanMerge is the enablement predicate for the merge command.
func (q Queue) CanMerge() bool { return len(q.entries) >= 2 }

// Snapshot returns a copy of the entries with dense positions.
func (q Queue) Snapshot() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Names returns display names in queue order.
func (q Queue) Names() []string {
	names := make([]string, len(q.entries))
	for i, e := range q.entries {
		names[i] = e.DisplayName
	}
	return names
}

func (q Queue) has(name string) bool {
	for _, e := range q.entries {
		if e.DisplayName == name {
			return true
		}
	}
	return false
}

// Add appends every accepted file whose name is not already queued. Files
// with another declared type and later duplicates are skipped, never an
// error.
func (q Queue) Add(files []RawFile) (Queue, AddResult) {
	var res AddResult
	next := Queue{entries: q.Snapshot()}
	for _, f := range files {
		switch {
		case !f.Accepted():
			res.Rejected = append(res.Rejected, f.Name)
		case next.has(f.Name):
			res.Duplicates = append(res.Duplicates, f.Name)
		default:
			next.entries = append(next.entries, Entry{File: f, DisplayName: f.Name})
			res.Added = append(res.Added, f.Name)
		}
	}
	next.renumber()
	return next, res
}

// RemoveAt drops the entry at index.
func (q Queue) RemoveAt(index int) (Queue, error) {
	if index < 0 || index >= len(q.entries) {
		return q, apperr.Newf(apperr.KindIndexOutOfBounds, "docqueue.remove", "index %d of %d", index, len(q.entries))
	}
	next := make([]Entry, 0, len(q.entries)-1)
	next = append(next, q.entries[:index]...)
	next = append(next, q.entries[index+1:]...)
	out := Queue{entries: next}
	out.renumber()
	return out, nil
}

// Reorder rearranges the queue so that the entry currently at order[i]
// ends up at position i. order must be a permutation of 0..Len()-1.
func (q Queue) Reorder(order []int) (Queue, error) {
	const op = "docqueue.reorder"
	if len(order) != len(q.entries) {
		return q, apperr.Newf(apperr.KindInvalidPermutation, op, "got %d positions for %d entries", len(order), len(q.entries))
	}
	seen := make([]bool, len(order))
	next := make([]Entry, len(order))
	for i, from := range order {
		if from < 0 || from >= len(order) || seen[from] {
			return q, apperr.Newf(apperr.KindInvalidPermutation, op, "%v is not a permutation", order)
		}
		seen[from] = true
		next[i] = q.entries[from]
	}
	out := Queue{entries: next}
	out.renumber()
	return out, nil
}

// Move relocates the entry at from to position to, shifting the entries in
// between. It is the drag-and-drop form of Reorder.
func (q Queue) Move(from, to int) (Queue, error) {
	n := len(q.entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return q, apperr.Newf(apperr.KindIndexOutOfBounds, "docqueue.move", "move %d to %d of %d", from, to, n)
	}
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i != from {
			order = append(order, i)
		}
	}
	order = append(order[:to], append([]int{from}, order[to:]...)...)
	return q.Reorder(order)
}

func (q *Queue) renumber() {
	for i := range q.entries {
		q.entries[i].Position = i
	}
}
