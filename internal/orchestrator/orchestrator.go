package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/artifact"
	"github.com/local/pdftools/internal/compress"
	"github.com/local/pdftools/internal/docqueue"
	"github.com/local/pdftools/internal/limiter"
	"github.com/local/pdftools/internal/metrics"
	"github.com/local/pdftools/internal/numbering"
	"github.com/local/pdftools/internal/pdfdoc"
	"github.com/local/pdftools/internal/session"
	"github.com/local/pdftools/internal/split"
	"github.com/local/pdftools/internal/statuscheck"
	"github.com/local/pdftools/internal/storage"
	"github.com/local/pdftools/internal/store"
)

// TypeChecker gates uploads on declared and sniffed content type.
type TypeChecker interface {
	CheckPDF(name, declared string, data []byte) error
}

// Numberer stamps page numbers.
type Numberer interface {
	Apply(ctx context.Context, file string, data []byte, opts numbering.Options) (artifact.Artifact, error)
}

// Compressor re-encodes documents and estimates the result.
type Compressor interface {
	Compress(ctx context.Context, file string, data []byte, level compress.Level) (artifact.Artifact, error)
	EstimatePreview(ctx context.Context, data []byte, level compress.Level) (compress.Estimate, error)
}

// Splitter extracts pages or explodes a document.
type Splitter interface {
	Split(ctx context.Context, file string, data []byte, mode split.Mode, expr string) (artifact.Artifact, error)
}

// Merger concatenates queued documents.
type Merger interface {
	Merge(ctx context.Context, entries []docqueue.Entry) (artifact.Artifact, error)
}

type Dependencies struct {
	Sessions *session.Manager
	Jobs     store.JobStore
	Sink     storage.Sink
	Limiter  *limiter.Limiter
	Types    TypeChecker
	// Model reads page counts of selected documents.
	Model    pdfdoc.Model
	Numberer Numberer
	Compress Compressor
	Split    Splitter
	Merge    Merger
	Status   *statuscheck.Checker

	// DefaultLevel is used when a compress request names none.
	DefaultLevel   compress.Level
	MaxUploadBytes int64
}

type Orchestrator struct {
	deps Dependencies
}

func New(deps Dependencies) *Orchestrator {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 64 << 20
	}
	if deps.DefaultLevel == "" {
		deps.DefaultLevel = compress.DefaultLevel
	}
	return &Orchestrator{deps: deps}
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /status", o.handleStatus)

	mux.HandleFunc("POST /sessions", o.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", o.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", o.handleDeleteSession)
	mux.HandleFunc("POST /sessions/{id}/select", o.handleSelect)
	mux.HandleFunc("POST /sessions/{id}/files", o.handleAddFiles)
	mux.HandleFunc("DELETE /sessions/{id}/files/{index}", o.handleRemoveFile)
	mux.HandleFunc("POST /sessions/{id}/reorder", o.handleReorder)
	mux.HandleFunc("POST /sessions/{id}/move", o.handleMove)
	mux.HandleFunc("POST /sessions/{id}/reset", o.handleReset)

	mux.HandleFunc("POST /sessions/{id}/number", o.handleNumber)
	mux.HandleFunc("POST /sessions/{id}/compress", o.handleCompress)
	mux.HandleFunc("POST /sessions/{id}/split", o.handleSplit)
	mux.HandleFunc("POST /sessions/{id}/merge", o.handleMerge)
	mux.HandleFunc("GET /sessions/{id}/preview", o.handlePreview)
	mux.HandleFunc("GET /sessions/{id}/jobs", o.handleSessionJobs)

	mux.HandleFunc("GET /jobs/{id}", o.handleJob)
	mux.HandleFunc("GET /download_result/{id}", o.handleDownloadResult)
}

func (o *Orchestrator) handleStatus(w http.ResponseWriter, r *http.Request) {
	if o.deps.Status == nil {
		http.Error(w, "status not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, o.deps.Status.Summary(r.Context()))
}

type errorResp struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err once; the cause goes to the log only.
func writeError(w http.ResponseWriter, r *http.Request, err error, jobID string) {
	code := apperr.HTTPStatus(err)
	ev := log.Warn()
	if code >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Int("status", code).Msg("request failed")
	writeJSON(w, code, errorResp{
		Status:  "error",
		Error:   apperr.KindOf(err).String(),
		Message: apperr.UserMessage(err),
		JobID:   jobID,
	})
}
