// Package split cuts one document into a page subset or into single pages.
package split

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/archive"
	"github.com/local/pdftools/internal/artifact"
	"github.com/local/pdftools/internal/metrics"
	"github.com/local/pdftools/internal/pagerange"
	"github.com/local/pdftools/internal/pdfdoc"
)

// Mode selects the split behaviour.
type Mode string

const (
	// ModeExtract copies the selected pages into one document.
	ModeExtract Mode = "extract"
	// ModeExplode writes every page to its own document inside an archive.
	ModeExplode Mode = "explode"
)

// ParseMode accepts "extract" or "explode"; empty means extract.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeExtract, nil
	case ModeExtract, ModeExplode:
		return m, nil
	default:
		return "", apperr.Newf(apperr.KindInvalidOption, "split.mode", "unknown mode %q", s)
	}
}

// Extractor runs splits against a document model and an archiver.
type Extractor struct {
	Model  pdfdoc.Model
	Packer archive.Packer
}

func New(model pdfdoc.Model, packer archive.Packer) *Extractor {
	return &Extractor{Model: model, Packer: packer}
}

// Split dispatches on mode. expr is ignored when exploding.
func (e *Extractor) Split(ctx context.Context, file string, data []byte, mode Mode, expr string) (artifact.Artifact, error) {
	switch mode {
	case ModeExtract, "":
		return e.Extract(ctx, file, data, expr)
	case ModeExplode:
		return e.Explode(ctx, file, data)
	default:
		return artifact.Artifact{}, apperr.Newf(apperr.KindInvalidOption, "split", "unknown mode %q", mode)
	}
}

// Extract copies the pages selected by expr, in ascending page order, into
// one new document. A bad expression fails before any output is created.
func (e *Extractor) Extract(ctx context.Context, file string, data []byte, expr string) (artifact.Artifact, error) {
	const op = "split.extract"
	src, err := e.Model.Load(data)
	if err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindUnreadableDocument, op, err)
	}
	set, err := pagerange.Parse(expr, src.PageCount(), pagerange.Strict)
	if err != nil {
		return artifact.Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return artifact.Artifact{}, err
	}

	pages := set.Pages()
	out := e.Model.Create()
	if err := e.Model.CopyPages(out, src, pages); err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
	}
	result, err := e.Model.Save(out)
	if err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
	}
	for range pages {
		metrics.IncPages("split")
	}
	log.Info().Str("file", file).Ints("pages", pages).Int("total", src.PageCount()).Msg("pages extracted")
	return artifact.Document(artifact.Prefixed("split", file), result), nil
}

// Explode writes each page as its own document, named page_<n>_<file>, and
// packs them into one archive.
func (e *Extractor) Explode(ctx context.Context, file string, data []byte) (artifact.Artifact, error) {
	const op = "split.explode"
	src, err := e.Model.Load(data)
	if err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindUnreadableDocument, op, err)
	}
	total := src.PageCount()
	entries := make([]archive.Entry, 0, total)
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return artifact.Artifact{}, err
		}
		out := e.Model.Create()
		if err := e.Model.CopyPages(out, src, []int{page}); err != nil {
			return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
		}
		b, err := e.Model.Save(out)
		if err != nil {
			return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
		}
		entries = append(entries, archive.Entry{Name: artifact.ExplodedPage(page, file), Data: b})
		metrics.IncPages("split")
	}
	packed, err := e.Packer.Pack(entries)
	if err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
	}
	log.Info().Str("file", file).Int("pages", total).Int("archive_bytes", len(packed)).Msg("document exploded")
	return artifact.Artifact{
		Name:        artifact.ExplodedArchive(file, e.Packer.Ext()),
		ContentType: e.Packer.ContentType(),
		Kind:        artifact.KindArchive,
		Data:        packed,
	}, nil
}
