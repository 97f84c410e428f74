// A fake README generation service for tests. It speaks the same two
// endpoints as the real one: a multipart POST and an SSE progress stream.

package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedRequest is what the fake saw on one generation call.
type RecordedRequest struct {
	Token           string
	HeaderToken     string
	RepoURL         string
	HasRepoURL      bool
	FileName        string
	FileContentType string
	File            []byte
}

// FakeBackend serves /generate-readme and /progress-stream.
type FakeBackend struct {
	Server *httptest.Server

	mu sync.Mutex
	// Frames are written verbatim to every progress stream, e.g. "data: hi\n\n".
	frames []string
	// holdStream keeps the stream open after the frames until the client leaves.
	holdStream bool
	status     int
	body       string
	// release, when set, blocks generation until it is closed.
	release      chan struct{}
	requests     []RecordedRequest
	streamTokens []string
	generated    chan struct{}
}

// NewFakeBackend starts a fake answering `{"readme": ""}` with no progress frames.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		status:    http.StatusOK,
		body:      `{"readme": ""}`,
		generated: make(chan struct{}, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/generate-readme", fb.handleGenerate)
	mux.HandleFunc("/progress-stream", fb.handleStream)
	fb.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		fb.Release()
		fb.Server.CloseClientConnections()
		fb.Server.Close()
	})
	return fb
}

// URL is the base address of the fake.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// Respond sets the status and raw body of later generation calls.
func (fb *FakeBackend) Respond(status int, body string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.status = status
	fb.body = body
}

// Progress sets the messages sent as default events on every stream.
// With hold the stream stays open afterwards.
func (fb *FakeBackend) Progress(hold bool, messages ...string) {
	frames := make([]string, len(messages))
	for i, m := range messages {
		frames[i] = fmt.Sprintf("data: %s\n\n", m)
	}
	fb.RawProgress(hold, frames...)
}

// RawProgress sets raw SSE frames sent on every stream.
func (fb *FakeBackend) RawProgress(hold bool, frames ...string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.frames = frames
	fb.holdStream = hold
}

// Hold makes generation calls block until Release.
func (fb *FakeBackend) Hold() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.release = make(chan struct{})
}

// Release unblocks held generation calls.
func (fb *FakeBackend) Release() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.release != nil {
		close(fb.release)
		fb.release = nil
	}
}

// Requests returns the generation calls seen so far.
func (fb *FakeBackend) Requests() []RecordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]RecordedRequest(nil), fb.requests...)
}

// StreamTokens returns the session ids progress streams were opened with.
func (fb *FakeBackend) StreamTokens() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.streamTokens...)
}

// Generated signals each time a generation request has been received.
func (fb *FakeBackend) Generated() <-chan struct{} {
	return fb.generated
}

func (fb *FakeBackend) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec := RecordedRequest{
		Token:       r.FormValue("session_id"),
		HeaderToken: r.Header.Get("X-Session-ID"),
	}
	if vals, ok := r.MultipartForm.Value["repo_url"]; ok && len(vals) > 0 {
		rec.RepoURL = vals[0]
		rec.HasRepoURL = true
	}
	if file, header, err := r.FormFile("file"); err == nil {
		rec.FileName = header.Filename
		rec.FileContentType = header.Header.Get("Content-Type")
		rec.File, _ = io.ReadAll(file)
		file.Close()
	}

	fb.mu.Lock()
	fb.requests = append(fb.requests, rec)
	release := fb.release
	status, body := fb.status, fb.body
	fb.mu.Unlock()

	select {
	case fb.generated <- struct{}{}:
	default:
	}

	if release != nil {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func (fb *FakeBackend) handleStream(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	fb.streamTokens = append(fb.streamTokens, r.URL.Query().Get("session_id"))
	frames := append([]string(nil), fb.frames...)
	hold := fb.holdStream
	fb.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for _, f := range frames {
		io.WriteString(w, f)
		if flusher != nil {
			flusher.Flush()
		}
	}
	if hold {
		<-r.Context().Done()
	}
}
