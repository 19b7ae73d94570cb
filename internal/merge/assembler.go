// Package merge concatenates queued documents into one.
package merge

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/artifact"
	"github.com/local/pdftools/internal/docqueue"
	"github.com/local/pdftools/internal/metrics"
	"github.com/local/pdftools/internal/pdfdoc"
)

// Assembler merges documents in queue order.
type Assembler struct {
	Model pdfdoc.Model
	Now   func() time.Time
}

func New(model pdfdoc.Model) *Assembler {
	return &Assembler{Model: model, Now: time.Now}
}

// Merge appends every page of every entry, entry by entry, keeping each
// source's own page order. Every source is loaded before any output is
// built, so one unreadable file aborts the whole merge.
func (a *Assembler) Merge(ctx context.Context, entries []docqueue.Entry) (artifact.Artifact, error) {
	const op = "merge"
	if len(entries) < 2 {
		return artifact.Artifact{}, apperr.Newf(apperr.KindInsufficientInputs, op, "%d documents queued", len(entries))
	}

	sources := make([]pdfdoc.Document, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return artifact.Artifact{}, err
		}
		doc, err := a.Model.Load(e.File.Data)
		if err != nil {
			return artifact.Artifact{}, apperr.Wrap(apperr.KindUnreadableDocument, op, &sourceError{name: e.DisplayName, err: err})
		}
		sources[i] = doc
	}

	out := a.Model.Create()
	total := 0
	for i, src := range sources {
		n := src.PageCount()
		pages := make([]int, n)
		for p := range pages {
			pages[p] = p + 1
		}
		if err := a.Model.CopyPages(out, src, pages); err != nil {
			return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, &sourceError{name: entries[i].DisplayName, err: err})
		}
		total += n
		for range pages {
			metrics.IncPages("merge")
		}
	}

	result, err := a.Model.Save(out)
	if err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
	}
	now := a.Now
	if now == nil {
		now = time.Now
	}
	log.Info().Int("documents", len(entries)).Int("pages", total).Int("bytes", len(result)).Msg("documents merged")
	return artifact.Document(artifact.Merged(now()), result), nil
}

type sourceError struct {
	name string
	err  error
}

func (e *sourceError) Error() string { return e.name + ": " + e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }
