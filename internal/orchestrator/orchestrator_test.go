package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdftools/internal/archive"
	"github.com/local/pdftools/internal/compress"
	"github.com/local/pdftools/internal/filetype"
	"github.com/local/pdftools/internal/limiter"
	"github.com/local/pdftools/internal/merge"
	"github.com/local/pdftools/internal/numbering"
	"github.com/local/pdftools/internal/overlay"
	"github.com/local/pdftools/internal/pdfdoc/memdoc"
	"github.com/local/pdftools/internal/session"
	"github.com/local/pdftools/internal/split"
	"github.com/local/pdftools/internal/statuscheck"
	"github.com/local/pdftools/internal/storage"
	"github.com/local/pdftools/internal/store"
)

type harness struct {
	srv      *httptest.Server
	sessions *session.Manager
	jobs     *store.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	model := memdoc.New()
	sessions := session.NewManager()
	jobs := store.NewMemory()
	sink := storage.NewLocal(t.TempDir())
	lim := limiter.New(limiter.Options{MaxInflight: 2})
	o := New(Dependencies{
		Sessions: sessions,
		Jobs:     jobs,
		Sink:     sink,
		Limiter:  lim,
		Types:    filetype.New(),
		Model:    model,
		Numberer: numbering.New(model),
		Compress: compress.New(model, &memdoc.Rasterizer{}, nil),
		Split:    split.New(model, archive.Zip{}),
		Merge:    merge.New(model),
		Status:   statuscheck.New(statuscheck.Options{Storage: sink, Slots: lim, Sessions: sessions}),
	})
	mux := http.NewServeMux()
	o.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, sessions: sessions, jobs: jobs}
}

type upload struct {
	name, contentType string
	data              []byte
}

func pdfUpload(name string, pages int) upload {
	return upload{name: name, contentType: "application/pdf", data: memdoc.Build(name, pages, 200, 100)}
}

func (h *harness) multipart(t *testing.T, path, field string, files ...upload) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.name))
		hdr.Set("Content-Type", f.contentType)
		pw, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = pw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	resp, err := http.Post(h.srv.URL+path, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func (h *harness) form(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()
	resp, err := http.PostForm(h.srv.URL+path, values)
	require.NoError(t, err)
	return resp
}

func (h *harness) postJSON(t *testing.T, path string, v any) *http.Response {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(h.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(h.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func (h *harness) newSession(t *testing.T) string {
	t.Helper()
	resp := h.postJSON(t, "/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[sessionResp](t, resp).SessionID
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp := h.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(readAll(t, resp)))
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.newSession(t)
	sum := decode[statuscheck.Summary](t, h.get(t, "/status"))
	assert.True(t, sum.Storage.OK)
	assert.True(t, sum.Redis.OK)
	assert.Equal(t, "1 active", sum.Sessions.Message)
}

func TestSelectAndNumber(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)

	resp := h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("report.pdf", 3))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[sessionResp](t, resp)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, 3, snap.Selected.Pages)

	resp = h.form(t, "/sessions/"+id+"/number", url.Values{"range": {"2-3"}, "position": {"bottom-center"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "numbered-report.pdf")
	jobID := resp.Header.Get("X-Job-ID")
	out := readAll(t, resp)

	doc, err := memdoc.Decode(out)
	require.NoError(t, err)
	assert.Empty(t, doc.Pages[0].Texts)
	require.Len(t, doc.Pages[1].Texts, 1)
	assert.Equal(t, "2", doc.Pages[1].Texts[0].Value)

	snap = decode[sessionResp](t, h.get(t, "/sessions/"+id))
	assert.Nil(t, snap.Selected, "selection is consumed")

	job := decode[jobResp](t, h.get(t, "/jobs/"+jobID))
	assert.Equal(t, store.StatusSuccess, job.Status)
	assert.Equal(t, "numbered-report.pdf", job.ResultName)
	assert.Equal(t, "/download_result/"+jobID, job.DownloadURL)

	again := h.get(t, job.DownloadURL)
	require.Equal(t, http.StatusOK, again.StatusCode)
	assert.Equal(t, out, readAll(t, again))
}

func TestNumberEmptyRangeKeepsSelection(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("a.pdf", 3)).Body.Close()

	resp := h.form(t, "/sessions/"+id+"/number", url.Values{"range": {"9-12"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	e := decode[errorResp](t, resp)
	assert.Equal(t, "Please enter a valid page range.", e.Message)
	assert.NotEmpty(t, e.JobID)

	snap := decode[sessionResp](t, h.get(t, "/sessions/"+id))
	assert.NotNil(t, snap.Selected)
}

func TestNumberRejectsUnknownPosition(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("a.pdf", 1)).Body.Close()

	resp := h.form(t, "/sessions/"+id+"/number", url.Values{"position": {"upper-middle"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestNumberHonoursZeroMargin(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("a.pdf", 1)).Body.Close()

	resp := h.form(t, "/sessions/"+id+"/number", url.Values{"position": {"bottom-left"}, "margin": {"0"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := memdoc.Decode(readAll(t, resp))
	require.NoError(t, err)
	require.Len(t, doc.Pages[0].Texts, 1)
	want := overlay.Place(overlay.BottomLeft, 200, 100, 6, 12, 0)
	assert.Equal(t, want.X, doc.Pages[0].Texts[0].X)
	assert.Equal(t, want.Y, doc.Pages[0].Texts[0].Y)
}

func TestSelectRejectsNonPDF(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)

	resp := h.multipart(t, "/sessions/"+id+"/select", "file", upload{name: "notes.txt", contentType: "text/plain", data: []byte("hello")})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, "Please select a PDF file.", decode[errorResp](t, resp).Message)

	resp = h.multipart(t, "/sessions/"+id+"/select", "file", upload{name: "fake.pdf", contentType: "application/pdf", data: []byte("hello")})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	resp.Body.Close()
}

func TestSelectUnreadable(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("good.pdf", 2)).Body.Close()

	broken := upload{name: "broken.pdf", contentType: "application/pdf", data: []byte("%PDF-1.7 memdoc\n{not json")}
	resp := h.multipart(t, "/sessions/"+id+"/select", "file", broken)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	snap := decode[sessionResp](t, h.get(t, "/sessions/"+id))
	assert.Nil(t, snap.Selected)
}

func TestSplitMalformedRangeResets(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("a.pdf", 5)).Body.Close()

	resp := h.form(t, "/sessions/"+id+"/split", url.Values{"mode": {"extract"}, "ranges": {"1-3,7"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decode[errorResp](t, resp).Message, "Invalid page range")

	snap := decode[sessionResp](t, h.get(t, "/sessions/"+id))
	assert.Nil(t, snap.Selected)
}

func TestSplitExplode(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("deck.pdf", 3)).Body.Close()

	resp := h.form(t, "/sessions/"+id+"/split", url.Values{"mode": {"explode"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "all-pages-deck.zip")
	resp.Body.Close()
}

func TestCompressAndPreview(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("scan.pdf", 2)).Body.Close()

	resp := h.get(t, "/sessions/"+id+"/preview?level=high")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	est := decode[compress.Estimate](t, resp)
	assert.Equal(t, 2, est.PageCount)
	assert.Equal(t, compress.Level("high"), est.Level)
	assert.Positive(t, est.AfterEstimateBytes)

	snap := decode[sessionResp](t, h.get(t, "/sessions/"+id))
	require.NotNil(t, snap.Selected, "preview keeps the selection")

	resp = h.get(t, "/sessions/"+id+"/preview?level=extreme")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = h.form(t, "/sessions/"+id+"/compress", url.Values{"level": {"low"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "compressed-scan.pdf")
	doc, err := memdoc.Decode(readAll(t, resp))
	require.NoError(t, err)
	assert.Len(t, doc.Pages, 2)
}

func TestToolWithoutSelection(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	resp := h.form(t, "/sessions/"+id+"/compress", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Select a PDF file first.", decode[errorResp](t, resp).Message)
}

func TestMergeQueue(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)

	resp := h.multipart(t, "/sessions/"+id+"/files", "files",
		pdfUpload("a.pdf", 1),
		pdfUpload("b.pdf", 2),
		pdfUpload("a.pdf", 1),
		upload{name: "c.png", contentType: "image/png", data: []byte("png")},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	added := decode[addFilesResp](t, resp)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, added.Added)
	assert.Equal(t, []string{"a.pdf"}, added.Duplicates)
	assert.Equal(t, []string{"c.png"}, added.Rejected)
	assert.True(t, added.CanMerge)

	resp = h.postJSON(t, "/sessions/"+id+"/reorder", reorderReq{Order: []int{0, 0}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = h.postJSON(t, "/sessions/"+id+"/move", moveReq{From: 1, To: 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[sessionResp](t, resp)
	assert.Equal(t, "b.pdf", snap.Queue[0].Name)
	assert.Equal(t, 0, snap.Queue[0].Position)
	assert.Equal(t, 1, snap.Queue[1].Position)

	resp = h.form(t, "/sessions/"+id+"/merge", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Disposition"), "attachment"))
	doc, err := memdoc.Decode(readAll(t, resp))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf#1", "b.pdf#2", "a.pdf#1"}, doc.Labels())

	snap = decode[sessionResp](t, h.get(t, "/sessions/"+id))
	assert.Empty(t, snap.Queue)
	assert.False(t, snap.CanMerge)
}

func TestMergeNeedsTwoFiles(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/files", "files", pdfUpload("a.pdf", 1)).Body.Close()

	resp := h.form(t, "/sessions/"+id+"/merge", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Add at least 2 files.", decode[errorResp](t, resp).Message)
}

func TestRemoveFile(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/files", "files", pdfUpload("a.pdf", 1), pdfUpload("b.pdf", 1)).Body.Close()

	del := func(idx string) *http.Response {
		req, err := http.NewRequest(http.MethodDelete, h.srv.URL+"/sessions/"+id+"/files/"+idx, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := del("5")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = del("0")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[sessionResp](t, resp)
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, "b.pdf", snap.Queue[0].Name)
	assert.False(t, snap.CanMerge)
}

func TestResetClearsState(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("a.pdf", 1)).Body.Close()

	resp := h.form(t, "/sessions/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[sessionResp](t, resp)
	assert.Nil(t, snap.Selected)
	assert.Equal(t, uint64(1), snap.Generation)
}

func TestSessionJobs(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("a.pdf", 2)).Body.Close()

	resp := h.form(t, "/sessions/"+id+"/split", url.Values{"ranges": {"5"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	failedID := decode[errorResp](t, resp).JobID

	h.multipart(t, "/sessions/"+id+"/select", "file", pdfUpload("a.pdf", 2)).Body.Close()
	resp = h.form(t, "/sessions/"+id+"/split", url.Values{"ranges": {"2"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	okID := resp.Header.Get("X-Job-ID")
	resp.Body.Close()

	list := decode[sessionJobsResp](t, h.get(t, "/sessions/"+id+"/jobs"))
	assert.Equal(t, id, list.SessionID)
	require.Len(t, list.Jobs, 2)
	assert.Equal(t, failedID, list.Jobs[0].ID)
	assert.Equal(t, store.StatusFailed, list.Jobs[0].Status)
	assert.Empty(t, list.Jobs[0].DownloadURL)
	assert.Equal(t, okID, list.Jobs[1].ID)
	assert.Equal(t, store.StatusSuccess, list.Jobs[1].Status)
	assert.Equal(t, "/download_result/"+okID, list.Jobs[1].DownloadURL)

	// Job records outlive the session.
	h.sessions.Delete(id)
	list = decode[sessionJobsResp](t, h.get(t, "/sessions/"+id+"/jobs"))
	assert.Len(t, list.Jobs, 2)

	empty := decode[sessionJobsResp](t, h.get(t, "/sessions/"+h.newSession(t)+"/jobs"))
	assert.Empty(t, empty.Jobs)

	resp = h.get(t, "/sessions/nope/jobs")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownSessionAndJob(t *testing.T) {
	h := newHarness(t)
	resp := h.get(t, "/sessions/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = h.get(t, "/jobs/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = h.get(t, "/download_result/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestJanitorSweepsIdleSessions(t *testing.T) {
	sessions := session.NewManager()
	sessions.Create()
	sink := storage.NewLocal(t.TempDir())

	j := NewJanitor(sessions, sink, JanitorOptions{SessionTTL: time.Hour, ResultMaxAge: time.Hour})
	removed, _ := j.RunOnce()
	assert.Zero(t, removed)

	j = NewJanitor(sessions, sink, JanitorOptions{SessionTTL: time.Nanosecond})
	time.Sleep(time.Millisecond)
	removed, _ = j.RunOnce()
	assert.Equal(t, 1, removed)
	assert.Zero(t, sessions.Len())
}
