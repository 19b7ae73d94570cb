// Package numbering stamps page numbers onto a document.
package numbering

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/artifact"
	"github.com/local/pdftools/internal/metrics"
	"github.com/local/pdftools/internal/overlay"
	"github.com/local/pdftools/internal/pagerange"
	"github.com/local/pdftools/internal/pdfdoc"
)

const (
	DefaultFormat   = "{page}"
	DefaultFontSize = 12
)

// Options controls what is drawn and where. Zero values pick defaults.
type Options struct {
	// Range selects pages; invalid parts are dropped, not rejected.
	Range    string
	Anchor   overlay.Anchor
	Format   string
	FontSize int
	// Color is #rrggbb; anything else draws black.
	Color string
	// Margin is the distance from the page edge in points. Nil picks the
	// default; an explicit zero draws flush against the edge.
	Margin *float64
}

// Margin returns v as an explicit Options.Margin.
func Margin(v float64) *float64 { return &v }

// Numberer applies page numbers through a document model.
type Numberer struct {
	Model    pdfdoc.Model
	Defaults Options
}

// New returns a numberer with bottom-center, {page}, 12pt, 30pt margin
// defaults.
func New(model pdfdoc.Model) *Numberer {
	return &Numberer{Model: model, Defaults: Options{
		Anchor:   overlay.BottomCenter,
		Format:   DefaultFormat,
		FontSize: DefaultFontSize,
		Margin:   Margin(overlay.DefaultMargin),
	}}
}

// Label renders the format for one page. Only the first {page} and the
// first {total} are substituted.
func Label(format string, page, total int) string {
	s := strings.Replace(format, "{page}", strconv.Itoa(page), 1)
	return strings.Replace(s, "{total}", strconv.Itoa(total), 1)
}

func (n *Numberer) resolve(o Options) Options {
	if o.Anchor.IsZero() {
		o.Anchor = n.Defaults.Anchor
	}
	if strings.TrimSpace(o.Format) == "" {
		o.Format = n.Defaults.Format
	}
	if o.FontSize <= 0 {
		o.FontSize = n.Defaults.FontSize
	}
	if o.Margin == nil {
		o.Margin = n.Defaults.Margin
	}
	if o.Margin == nil {
		o.Margin = Margin(overlay.DefaultMargin)
	}
	if o.Color == "" {
		o.Color = n.Defaults.Color
	}
	return o
}

// Apply draws a label on every selected page and returns numbered-<file>.
// The label is measured in the model's font, then placed with
// overlay.Place at the configured anchor.
func (n *Numberer) Apply(ctx context.Context, file string, data []byte, opts Options) (artifact.Artifact, error) {
	const op = "numbering"
	opts = n.resolve(opts)
	if *opts.Margin < 0 {
		return artifact.Artifact{}, apperr.Newf(apperr.KindInvalidOption, op, "margin %v", *opts.Margin)
	}

	doc, err := n.Model.Load(data)
	if err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindUnreadableDocument, op, err)
	}
	total := doc.PageCount()
	set, err := pagerange.Parse(opts.Range, total, pagerange.Lenient)
	if err != nil {
		return artifact.Artifact{}, err
	}

	color, _ := pdfdoc.ParseHex(opts.Color)
	style := pdfdoc.TextStyle{Font: pdfdoc.DefaultFont, Size: opts.FontSize, Color: color}
	for _, page := range set.Pages() {
		if err := ctx.Err(); err != nil {
			return artifact.Artifact{}, err
		}
		size, err := doc.PageSize(page)
		if err != nil {
			return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
		}
		text := Label(opts.Format, page, total)
		at := overlay.Place(opts.Anchor, size.Width, size.Height, n.Model.TextWidth(text, style), float64(opts.FontSize), *opts.Margin)
		if err := n.Model.DrawText(doc, page, text, at.X, at.Y, style); err != nil {
			return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
		}
		metrics.IncPages("number")
	}

	result, err := n.Model.Save(doc)
	if err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
	}
	log.Info().
		Str("file", file).
		Int("numbered", set.Len()).
		Int("total", total).
		Str("position", opts.Anchor.String()).
		Msg("page numbers applied")
	return artifact.Document(artifact.Prefixed("numbered", file), result), nil
}
