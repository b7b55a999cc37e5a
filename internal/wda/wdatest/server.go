// Package wdatest provides an in-process fake WebDriverAgent for tests.
package wdatest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// SessionID is the id handed out by POST /session.
const SessionID = "s1"

// DefaultSource is a small Settings screen.
const DefaultSource = `<?xml version="1.0" encoding="UTF-8"?>
<XCUIElementTypeApplication type="XCUIElementTypeApplication" name="Settings" label="Settings" x="0" y="0" width="390" height="844">
  <XCUIElementTypeWindow type="XCUIElementTypeWindow" x="0" y="0" width="390" height="844">
    <XCUIElementTypeButton type="XCUIElementTypeButton" name="General" label="General" x="16" y="100" width="358" height="44"/>
    <XCUIElementTypeButton type="XCUIElementTypeButton" name="Privacy" label="Privacy" x="16" y="150" width="358" height="44"/>
  </XCUIElementTypeWindow>
</XCUIElementTypeApplication>`

// Request is one call the fake received.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// Server is a fake WDA speaking just enough of the protocol for the
// dashboard and the CLI. The logical screen is 390x844 and screenshots are
// 780 pixels wide.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	source     string
	screenshot []byte
	size       map[string]float64
	bundleID   string
	pasteboard string
	locked     bool
	sessions   int
	requests   []Request
}

// NewServer starts a fake WDA that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		source:     DefaultSource,
		screenshot: WhitePNG(780, 1688),
		size:       map[string]float64{"width": 390, "height": 844},
		bundleID:   "com.apple.Preferences",
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// WhitePNG encodes a blank w x h image.
func WhitePNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// SetSource replaces the accessibility dump.
func (s *Server) SetSource(doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = doc
}

// SetActiveApp sets the bundle id reported by activeAppInfo.
func (s *Server) SetActiveApp(bundleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundleID = bundleID
}

// Pasteboard returns the current pasteboard text.
func (s *Server) Pasteboard() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pasteboard
}

// SetPasteboard sets the pasteboard text.
func (s *Server) SetPasteboard(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pasteboard = text
}

// Locked reports the fake lock state.
func (s *Server) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Sessions counts POST /session calls.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests hit path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request to path, or false.
func (s *Server) Last(path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Post("/session", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.sessions++
		s.mu.Unlock()
		reply(w, map[string]any{"sessionId": SessionID, "capabilities": map[string]any{"device": "iphone", "sdkVersion": "17.2"}})
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"state": "success", "ready": true, "os": map[string]any{"name": "iOS", "version": "17.2"}})
	})
	r.Get("/wda/activeAppInfo", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		reply(w, map[string]any{"bundleId": s.bundleID, "name": "", "pid": 42})
	})
	r.Get("/source", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		reply(w, s.source)
	})
	r.Get("/screenshot", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		reply(w, base64.StdEncoding.EncodeToString(s.screenshot))
	})

	r.Route("/session/{id}", func(r chi.Router) {
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) { reply(w, nil) })
		r.Get("/window/size", func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			reply(w, s.size)
		})
		r.Get("/wda/locked", func(w http.ResponseWriter, r *http.Request) {
			reply(w, s.Locked())
		})
		r.Post("/wda/lock", func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.locked = true
			s.mu.Unlock()
			reply(w, nil)
		})
		r.Post("/wda/unlock", func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.locked = false
			s.mu.Unlock()
			reply(w, nil)
		})
		r.Post("/wda/setPasteboard", func(w http.ResponseWriter, r *http.Request) {
			body := bodyOf(r)
			content, _ := body["content"].(string)
			raw, _ := base64.StdEncoding.DecodeString(content)
			s.SetPasteboard(string(raw))
			reply(w, nil)
		})
		r.Post("/wda/getPasteboard", func(w http.ResponseWriter, r *http.Request) {
			reply(w, base64.StdEncoding.EncodeToString([]byte(s.Pasteboard())))
		})
		r.Post("/*", func(w http.ResponseWriter, r *http.Request) { reply(w, nil) })
	})
	return r
}

type bodyKey struct{}

// record stores every request and keeps its decoded body for handlers.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		s.mu.Unlock()
		next.ServeHTTP(w, r.WithContext(withBody(r, body)))
	})
}

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"value": v, "sessionId": SessionID})
}

func withBody(r *http.Request, body map[string]any) context.Context {
	return context.WithValue(r.Context(), bodyKey{}, body)
}

func bodyOf(r *http.Request) map[string]any {
	body, _ := r.Context().Value(bodyKey{}).(map[string]any)
	return body
}
