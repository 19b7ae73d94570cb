// Package compress re-encodes documents as full-bleed JPEG pages.
//
// Each page is rendered at RenderScale, encoded at the level's quality and
// placed on a new page of exactly the raster's size. The output holds no
// text or vector content.
package compress

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/artifact"
	"github.com/local/pdftools/internal/imagerender"
	"github.com/local/pdftools/internal/metrics"
	"github.com/local/pdftools/internal/pdfdoc"
)

const (
	// DefaultRenderScale is the upscale applied when rasterizing.
	DefaultRenderScale = 1.5
	// DefaultSizeCorrection converts a base64 length into an estimate of
	// raw JPEG bytes in the output.
	DefaultSizeCorrection = 0.75
)

// Pipeline runs compressions and size previews.
type Pipeline struct {
	Model      pdfdoc.Model
	Rasterizer pdfdoc.Rasterizer
	Levels     Levels
	Scale      float64
	Correction float64
}

// New builds a pipeline with the default scale and correction.
func New(model pdfdoc.Model, raster pdfdoc.Rasterizer, levels Levels) *Pipeline {
	if levels == nil {
		levels = DefaultLevels()
	}
	return &Pipeline{
		Model:      model,
		Rasterizer: raster,
		Levels:     levels,
		Scale:      DefaultRenderScale,
		Correction: DefaultSizeCorrection,
	}
}

// Estimate is a preview of the compressed size. AfterEstimateBytes is an
// approximation extrapolated from the first page, not a measurement.
type Estimate struct {
	BeforeBytes        int     `json:"before_bytes"`
	AfterEstimateBytes int     `json:"after_estimate_bytes"`
	PageCount          int     `json:"page_count"`
	Level              Level   `json:"level"`
	Quality            float64 `json:"quality"`
}

// EstimatePreview samples page 1 and scales its encoded size to the whole
// document.
func (p *Pipeline) EstimatePreview(ctx context.Context, data []byte, level Level) (Estimate, error) {
	const op = "compress.preview"
	quality, err := p.Levels.Quality(level)
	if err != nil {
		return Estimate{}, err
	}
	rd, err := p.Rasterizer.Open(data)
	if err != nil {
		return Estimate{}, apperr.Wrap(apperr.KindUnreadableDocument, op, err)
	}
	defer rd.Close()

	pages := rd.NumPage()
	if pages < 1 {
		return Estimate{}, apperr.New(apperr.KindUnreadableDocument, op, "document has no pages")
	}
	if err := ctx.Err(); err != nil {
		return Estimate{}, err
	}
	img, err := rd.Render(1, p.Scale)
	if err != nil {
		return Estimate{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
	}
	jpg, _, _, err := imagerender.EncodeJPEG(img, quality)
	if err != nil {
		return Estimate{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
	}
	sample := len(imagerender.EncodeToBase64(jpg))
	est := Estimate{
		BeforeBytes:        len(data),
		AfterEstimateBytes: int(float64(sample) * p.Correction * float64(pages)),
		PageCount:          pages,
		Level:              level,
		Quality:            quality,
	}
	log.Debug().
		Str("level", string(level)).
		Int("before", est.BeforeBytes).
		Int("after_estimate", est.AfterEstimateBytes).
		Int("pages", pages).
		Msg("compression estimate")
	return est, nil
}

// Compress rebuilds every page as a JPEG raster. Any failing page aborts
// the run; no partial document is returned.
func (p *Pipeline) Compress(ctx context.Context, file string, data []byte, level Level) (artifact.Artifact, error) {
	const op = "compress.run"
	quality, err := p.Levels.Quality(level)
	if err != nil {
		return artifact.Artifact{}, err
	}
	rd, err := p.Rasterizer.Open(data)
	if err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindUnreadableDocument, op, err)
	}
	defer rd.Close()

	pages := rd.NumPage()
	if pages < 1 {
		return artifact.Artifact{}, apperr.New(apperr.KindUnreadableDocument, op, "document has no pages")
	}

	start := time.Now()
	out := p.Model.Create()
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return artifact.Artifact{}, err
		}
		img, err := rd.Render(page, p.Scale)
		if err != nil {
			return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
		}
		jpg, w, h, err := imagerender.EncodeJPEG(img, quality)
		if err != nil {
			return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
		}
		if err := p.Model.AddRasterPage(out, pdfdoc.Raster{Data: jpg, Width: w, Height: h}); err != nil {
			return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
		}
		metrics.IncPages("compress")
	}

	result, err := p.Model.Save(out)
	if err != nil {
		return artifact.Artifact{}, apperr.Wrap(apperr.KindProcessingFailure, op, err)
	}
	log.Info().
		Str("file", file).
		Str("level", string(level)).
		Int("pages", pages).
		Int("before", len(data)).
		Int("after", len(result)).
		Dur("took", time.Since(start)).
		Msg("document compressed")
	return artifact.Document(artifact.Prefixed("compressed", file), result), nil
}
