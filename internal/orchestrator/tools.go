package orchestrator

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/artifact"
	"github.com/local/pdftools/internal/compress"
	"github.com/local/pdftools/internal/metrics"
	"github.com/local/pdftools/internal/numbering"
	"github.com/local/pdftools/internal/overlay"
	"github.com/local/pdftools/internal/session"
	"github.com/local/pdftools/internal/split"
	"github.com/local/pdftools/internal/storage"
	"github.com/local/pdftools/internal/store"
)

type toolFunc func(ctx context.Context, t session.Ticket) (artifact.Artifact, error)

func (o *Orchestrator) handleNumber(w http.ResponseWriter, r *http.Request) {
	opts, err := numberingOptions(r)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	o.run(w, r, session.ToolNumber, func(ctx context.Context, t session.Ticket) (artifact.Artifact, error) {
		return o.deps.Numberer.Apply(ctx, t.Selected.File.Name, t.Selected.File.Data, opts)
	})
}

// numberingOptions reads range, position, format, font_size, color and
// margin. Blank values fall back to the numberer's defaults.
func numberingOptions(r *http.Request) (numbering.Options, error) {
	opts := numbering.Options{
		Range:  r.FormValue("range"),
		Format: r.FormValue("format"),
		Color:  r.FormValue("color"),
	}
	if p := strings.TrimSpace(r.FormValue("position")); p != "" {
		a, err := overlay.ParseAnchor(p)
		if err != nil {
			return opts, err
		}
		opts.Anchor = a
	}
	if v := r.FormValue("font_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, apperr.Newf(apperr.KindInvalidOption, "number", "font_size %q", v)
		}
		opts.FontSize = n
	}
	if v := r.FormValue("margin"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil || m < 0 {
			return opts, apperr.Newf(apperr.KindInvalidOption, "number", "margin %q", v)
		}
		opts.Margin = numbering.Margin(m)
	}
	return opts, nil
}

func (o *Orchestrator) handleCompress(w http.ResponseWriter, r *http.Request) {
	level := o.level(r.FormValue("level"))
	o.run(w, r, session.ToolCompress, func(ctx context.Context, t session.Ticket) (artifact.Artifact, error) {
		return o.deps.Compress.Compress(ctx, t.Selected.File.Name, t.Selected.File.Data, level)
	})
}

func (o *Orchestrator) handleSplit(w http.ResponseWriter, r *http.Request) {
	mode, err := split.ParseMode(r.FormValue("mode"))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	expr := r.FormValue("ranges")
	o.run(w, r, session.ToolSplit, func(ctx context.Context, t session.Ticket) (artifact.Artifact, error) {
		return o.deps.Split.Split(ctx, t.Selected.File.Name, t.Selected.File.Data, mode, expr)
	})
}

func (o *Orchestrator) handleMerge(w http.ResponseWriter, r *http.Request) {
	o.run(w, r, session.ToolMerge, func(ctx context.Context, t session.Ticket) (artifact.Artifact, error) {
		return o.deps.Merge.Merge(ctx, t.Entries)
	})
}

// handlePreview returns a size estimate for the selected document. It
// consumes no session state and records no job.
func (o *Orchestrator) handlePreview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ticket, err := o.deps.Sessions.Begin(r.PathValue("id"), session.ToolPreview)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	release, err := o.deps.Limiter.Acquire(r.Context())
	var est compress.Estimate
	if err == nil {
		est, err = o.deps.Compress.EstimatePreview(r.Context(), ticket.Selected.File.Data, o.level(r.URL.Query().Get("level")))
		release()
	}
	eff := o.deps.Sessions.Finish(ticket, artifact.Artifact{}, err)
	metrics.ObserveOperation(string(session.ToolPreview), metricResult(eff.Err), time.Since(start))
	if eff.Err != nil {
		writeError(w, r, eff.Err, "")
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (o *Orchestrator) level(v string) compress.Level {
	if strings.TrimSpace(v) == "" {
		return o.deps.DefaultLevel
	}
	return compress.Level(v)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return store.StatusSuccess
	case apperr.Is(err, apperr.KindSuperseded):
		return store.StatusSuperseded
	default:
		return store.StatusFailed
	}
}

// metricResult splits user-correctable rejections from pipeline failures.
func metricResult(err error) string {
	if apperr.IsValidation(err) {
		return "rejected"
	}
	return resultLabel(err)
}

// run executes one tool against a session snapshot and answers with either
// the artifact as an attachment or a mapped error. The session is updated
// only through Finish, so a reset during the run discards the result.
func (o *Orchestrator) run(w http.ResponseWriter, r *http.Request, tool session.Tool, fn toolFunc) {
	ctx := r.Context()
	ticket, err := o.deps.Sessions.Begin(r.PathValue("id"), tool)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	start := time.Now()
	job := store.Job{
		ID:        uuid.NewString(),
		SessionID: ticket.SessionID,
		Tool:      string(tool),
		Status:    store.StatusProcessing,
		Message:   "processing",
		Start:     &start,
		Metadata:  ticketMeta(ticket),
	}
	o.saveJob(ctx, job)
	log.Info().Str("job_id", job.ID).Str("session_id", ticket.SessionID).Str("tool", string(tool)).Msg("operation started")

	release, err := o.deps.Limiter.Acquire(ctx)
	var art artifact.Artifact
	if err == nil {
		art, err = fn(ctx, ticket)
		release()
	}
	eff := o.deps.Sessions.Finish(ticket, art, err)

	end := time.Now()
	job.End = &end
	job.Status = resultLabel(eff.Err)
	metrics.ObserveOperation(string(tool), metricResult(eff.Err), end.Sub(start))

	if eff.Err != nil {
		job.Message = apperr.UserMessage(eff.Err)
		o.saveJob(ctx, job)
		writeError(w, r, eff.Err, job.ID)
		return
	}

	out := eff.Download
	job.Message = "completed"
	job.ResultName = out.Name
	job.ContentType = out.ContentType
	job.Size = out.Size()
	if ref, perr := o.deps.Sink.Put(ctx, job.ID+"_"+out.Name, storage.Object{Name: out.Name, ContentType: out.ContentType, Data: out.Data}); perr != nil {
		log.Error().Err(perr).Str("job_id", job.ID).Msg("failed to persist result")
	} else {
		job.ResultRef = ref
	}
	o.saveJob(ctx, job)
	log.Info().
		Str("job_id", job.ID).
		Str("tool", string(tool)).
		Str("result", out.Name).
		Int("bytes", out.Size()).
		Dur("took", end.Sub(start)).
		Msg("operation finished")

	w.Header().Set("X-Job-ID", job.ID)
	writeAttachment(w, out.Name, out.ContentType, out.Data)
}

func ticketMeta(t session.Ticket) map[string]any {
	if t.Tool == session.ToolMerge {
		names := make([]string, 0, len(t.Entries))
		for _, e := range t.Entries {
			names = append(names, e.DisplayName)
		}
		return map[string]any{"files": names}
	}
	return map[string]any{"file": t.Selected.File.Name, "pages": t.Selected.PageCount}
}

func (o *Orchestrator) saveJob(ctx context.Context, job store.Job) {
	if err := o.deps.Jobs.Set(ctx, job); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to record job")
	}
}

func writeAttachment(w http.ResponseWriter, name, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
