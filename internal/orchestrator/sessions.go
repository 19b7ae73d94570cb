package orchestrator

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/docqueue"
	"github.com/local/pdftools/internal/session"
)

type queuedFile struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
	Size     int    `json:"size"`
}

type selectedFile struct {
	Name  string `json:"name"`
	Pages int    `json:"pages"`
	Size  int    `json:"size"`
}

type sessionResp struct {
	SessionID  string        `json:"session_id"`
	Generation uint64        `json:"generation"`
	Selected   *selectedFile `json:"selected,omitempty"`
	Queue      []queuedFile  `json:"queue"`
	CanMerge   bool          `json:"can_merge"`
}

func snapshot(s session.Session) sessionResp {
	resp := sessionResp{
		SessionID:  s.ID,
		Generation: s.Generation,
		Queue:      []queuedFile{},
		CanMerge:   s.CanMerge(),
	}
	if s.Selected != nil {
		resp.Selected = &selectedFile{Name: s.Selected.File.Name, Pages: s.Selected.PageCount, Size: len(s.Selected.File.Data)}
	}
	for _, e := range s.Queue.Snapshot() {
		resp.Queue = append(resp.Queue, queuedFile{Name: e.DisplayName, Position: e.Position, Size: len(e.File.Data)})
	}
	return resp
}

func (o *Orchestrator) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := o.deps.Sessions.Create()
	writeJSON(w, http.StatusCreated, snapshot(s))
}

func (o *Orchestrator) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, err := o.deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, snapshot(s))
}

func (o *Orchestrator) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	o.deps.Sessions.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// readUpload reads one multipart part into a RawFile.
func readUpload(hdr *multipart.FileHeader) (docqueue.RawFile, error) {
	f, err := hdr.Open()
	if err != nil {
		return docqueue.RawFile{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return docqueue.RawFile{}, err
	}
	return docqueue.RawFile{Name: hdr.Filename, ContentType: hdr.Header.Get("Content-Type"), Data: data}, nil
}

func (o *Orchestrator) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, o.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(o.deps.MaxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return false
	}
	return true
}

// handleSelect replaces the selected document. The file must be a PDF by
// declared type and by content, and must open.
func (o *Orchestrator) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !o.parseForm(w, r) {
		return
	}
	hdrs := r.MultipartForm.File["file"]
	if len(hdrs) == 0 {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	file, err := readUpload(hdrs[0])
	if err != nil {
		http.Error(w, "upload error", http.StatusBadRequest)
		return
	}
	if err := o.deps.Types.CheckPDF(file.Name, file.ContentType, file.Data); err != nil {
		writeError(w, r, err, "")
		return
	}
	doc, err := o.deps.Model.Load(file.Data)
	if err != nil {
		// A selection that cannot be read leaves nothing selected.
		_, _ = o.deps.Sessions.Update(id, func(s session.Session) (session.Session, error) {
			return s.Deselect(), nil
		})
		writeError(w, r, apperr.Wrap(apperr.KindUnreadableDocument, "select", err), "")
		return
	}
	s, err := o.deps.Sessions.Update(id, func(s session.Session) (session.Session, error) {
		return s.Select(file, doc.PageCount())
	})
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	log.Info().Str("session_id", id).Str("file", file.Name).Int("pages", doc.PageCount()).Msg("document selected")
	writeJSON(w, http.StatusOK, snapshot(s))
}

type addFilesResp struct {
	sessionResp
	Added      []string `json:"added"`
	Rejected   []string `json:"rejected"`
	Duplicates []string `json:"duplicates"`
}

// handleAddFiles appends uploads to the merge queue. Files that fail the
// content sniff count as rejected like any other non-PDF.
func (o *Orchestrator) handleAddFiles(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !o.parseForm(w, r) {
		return
	}
	var files []docqueue.RawFile
	var sniffed []string
	for _, hdr := range r.MultipartForm.File["files"] {
		f, err := readUpload(hdr)
		if err != nil {
			http.Error(w, "upload error", http.StatusBadRequest)
			return
		}
		if f.Accepted() && o.deps.Types.CheckPDF(f.Name, f.ContentType, f.Data) != nil {
			sniffed = append(sniffed, f.Name)
			continue
		}
		files = append(files, f)
	}
	var res docqueue.AddResult
	s, err := o.deps.Sessions.Update(id, func(s session.Session) (session.Session, error) {
		next, added := s.AddFiles(files)
		res = added
		return next, nil
	})
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, addFilesResp{
		sessionResp: snapshot(s),
		Added:       nonNil(res.Added),
		Rejected:    nonNil(append(res.Rejected, sniffed...)),
		Duplicates:  nonNil(res.Duplicates),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (o *Orchestrator) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, r, apperr.Newf(apperr.KindIndexOutOfBounds, "remove", "index %q", r.PathValue("index")), "")
		return
	}
	o.update(w, r, func(s session.Session) (session.Session, error) { return s.RemoveFile(index) })
}

type reorderReq struct {
	Order []int `json:"order"`
}

func (o *Orchestrator) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	o.update(w, r, func(s session.Session) (session.Session, error) { return s.Reorder(req.Order) })
}

type moveReq struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (o *Orchestrator) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	o.update(w, r, func(s session.Session) (session.Session, error) { return s.Move(req.From, req.To) })
}

func (o *Orchestrator) handleReset(w http.ResponseWriter, r *http.Request) {
	o.update(w, r, func(s session.Session) (session.Session, error) { return s.Reset(), nil })
}

func (o *Orchestrator) update(w http.ResponseWriter, r *http.Request, fn func(session.Session) (session.Session, error)) {
	s, err := o.deps.Sessions.Update(r.PathValue("id"), fn)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, snapshot(s))
}
