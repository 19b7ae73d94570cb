package orchestrator

import (
	"net/http"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/store"
)

type jobResp struct {
	store.Job
	DownloadURL string `json:"download_url,omitempty"`
}

func newJobResp(job store.Job) jobResp {
	resp := jobResp{Job: job}
	if job.Status == store.StatusSuccess && job.ResultRef != "" {
		resp.DownloadURL = "/download_result/" + job.ID
	}
	return resp
}

type sessionJobsResp struct {
	SessionID string    `json:"session_id"`
	Jobs      []jobResp `json:"jobs"`
}

func (o *Orchestrator) job(r *http.Request) (store.Job, error) {
	id := r.PathValue("id")
	job, ok, err := o.deps.Jobs.Get(r.Context(), id)
	if err != nil {
		return store.Job{}, apperr.Wrap(apperr.KindProcessingFailure, "jobs.get", err)
	}
	if !ok {
		return store.Job{}, apperr.Newf(apperr.KindNotFound, "jobs.get", "job %s", id)
	}
	return job, nil
}

func (o *Orchestrator) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := o.job(r)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newJobResp(job))
}

// handleSessionJobs lists a session's job records, oldest first. Records
// outlive the session, so an expired session still answers here; expired
// records are skipped.
func (o *Orchestrator) handleSessionJobs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ids, err := o.deps.Jobs.SessionJobs(r.Context(), id)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindProcessingFailure, "jobs.list", err), "")
		return
	}
	resp := sessionJobsResp{SessionID: id, Jobs: make([]jobResp, 0, len(ids))}
	for _, jobID := range ids {
		job, ok, err := o.deps.Jobs.Get(r.Context(), jobID)
		if err != nil {
			writeError(w, r, apperr.Wrap(apperr.KindProcessingFailure, "jobs.list", err), "")
			return
		}
		if ok {
			resp.Jobs = append(resp.Jobs, newJobResp(job))
		}
	}
	if len(resp.Jobs) == 0 {
		if _, err := o.deps.Sessions.Get(id); err != nil {
			writeError(w, r, err, "")
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDownloadResult serves a persisted result again.
func (o *Orchestrator) handleDownloadResult(w http.ResponseWriter, r *http.Request) {
	job, err := o.job(r)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if job.Status == store.StatusProcessing {
		http.Error(w, "not ready", http.StatusAccepted)
		return
	}
	if job.Status != store.StatusSuccess || job.ResultRef == "" {
		writeError(w, r, apperr.Newf(apperr.KindNotFound, "jobs.download", "job %s has no stored result", job.ID), job.ID)
		return
	}
	obj, err := o.deps.Sink.Get(r.Context(), job.ResultRef)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindNotFound, "jobs.download", err), job.ID)
		return
	}
	name := obj.Name
	if name == "" {
		name = job.ResultName
	}
	writeAttachment(w, name, obj.ContentType, obj.Data)
}
