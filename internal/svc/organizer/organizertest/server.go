// Package organizertest provides a scripted fake of the organizer service.
package organizertest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const ScanPath = "/scan-once"

// Response scripts one answer of the fake organizer.
type Response struct {
	Status int
	Body   string

	// Truncate sends the status line and headers, announces a longer body
	// than it writes, then drops the connection.
	Truncate bool
}

var (
	OK       = Response{Status: http.StatusOK, Body: "OK"}
	Failure  = Response{Status: http.StatusInternalServerError, Body: "ERROR"}
	Truncate = Response{Status: http.StatusOK, Body: "OK", Truncate: true}
)

// Call is what the fake observed for one trigger.
type Call struct {
	Method      string
	RequestID   string
	TorrentName string
	TorrentDir  string
	Traceparent string
	Body        []byte
}

// Server answers POST /scan-once with the scripted responses in order and
// repeats the last one once the script runs out. Any other route is a 404,
// like the real organizer.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	script []Response
	calls  []Call
}

// NewServer starts a fake organizer that is closed when t finishes.
func NewServer(t testing.TB, script ...Response) *Server {
	t.Helper()

	if len(script) == 0 {
		script = []Response{OK}
	}

	s := &Server{script: script}

	r := chi.NewRouter()
	r.Post(ScanPath, s.handleScan)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)

	return s
}

// ScanURL returns the trigger endpoint of the fake.
func (s *Server) ScanURL() string {
	return s.URL + ScanPath
}

// Calls returns a copy of the triggers received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Call(nil), s.calls...)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	idx := len(s.calls)
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}

	resp := s.script[idx]
	s.calls = append(s.calls, Call{
		Method:      r.Method,
		RequestID:   r.Header.Get("X-Request-ID"),
		TorrentName: r.Header.Get("X-Torrent-Name"),
		TorrentDir:  r.Header.Get("X-Torrent-Dir"),
		Traceparent: r.Header.Get("traceparent"),
		Body:        body,
	})
	s.mu.Unlock()

	if resp.Truncate {
		truncate(w, resp)
		return
	}

	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}

func truncate(w http.ResponseWriter, resp Response) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("organizertest: response writer does not support hijacking")
	}

	conn, buf, err := hj.Hijack()
	if err != nil {
		panic("organizertest: hijack failed: " + err.Error())
	}
	defer conn.Close()

	_, _ = fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\n", resp.Status, http.StatusText(resp.Status))
	_, _ = buf.WriteString("Content-Length: 1024\r\nConnection: close\r\n\r\n")
	_, _ = buf.WriteString(resp.Body)
	_ = buf.Flush()
}

// UnreachableURL returns a trigger URL nothing is listening on.
func UnreachableURL(t testing.TB) string {
	t.Helper()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + ScanPath
	srv.Close()

	return url
}
