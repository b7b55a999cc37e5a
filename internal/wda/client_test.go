package wda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWDA records requests and answers like a WDA server with one session.
type fakeWDA struct {
	mu         sync.Mutex
	requests   []recorded
	sessions   atomic.Int32
	locked     bool
	pasteboard string
}

type recorded struct {
	Method string
	Path   string
	Body   map[string]any
}

func (f *fakeWDA) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &body))
		}
		f.mu.Lock()
		f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		reply := func(v any) { _ = json.NewEncoder(w).Encode(map[string]any{"value": v, "sessionId": "s1"}) }

		switch {
		case r.URL.Path == "/session" && r.Method == http.MethodPost:
			f.sessions.Add(1)
			time.Sleep(5 * time.Millisecond)
			reply(map[string]any{"sessionId": "s1", "capabilities": map[string]any{"device": "iphone", "sdkVersion": "17.2"}})
		case r.URL.Path == "/status":
			reply(map[string]any{"state": "success", "ready": true, "os": map[string]any{"name": "iOS", "version": "17.2"}})
		case r.URL.Path == "/wda/activeAppInfo":
			reply(map[string]any{"bundleId": "com.apple.Preferences", "name": "", "pid": 42})
		case r.URL.Path == "/source":
			reply(`<XCUIElementTypeApplication name="Settings"/>`)
		case r.URL.Path == "/screenshot":
			reply(base64.StdEncoding.EncodeToString([]byte("png-bytes")))
		case r.URL.Path == "/session/s1/wda/locked":
			reply(f.locked)
		case r.URL.Path == "/session/s1/wda/lock":
			f.locked = true
			reply(nil)
		case r.URL.Path == "/session/s1/wda/unlock":
			f.locked = false
			reply(nil)
		case r.URL.Path == "/session/s1/wda/setPasteboard":
			raw, _ := base64.StdEncoding.DecodeString(body["content"].(string))
			f.pasteboard = string(raw)
			reply(nil)
		case r.URL.Path == "/session/s1/wda/getPasteboard":
			reply(base64.StdEncoding.EncodeToString([]byte(f.pasteboard)))
		case r.URL.Path == "/session/s1/window/size":
			reply(map[string]any{"width": 390, "height": 844})
		case r.URL.Path == "/session/gone/wda/lock":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"value": map[string]any{"error": "invalid session id", "message": "Session does not exist"}})
		case strings.HasPrefix(r.URL.Path, "/session/s1/"), r.URL.Path == "/session/s1":
			reply(nil)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "boom"})
		}
	})
}

func (f *fakeWDA) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeWDA) {
	t.Helper()
	fake := &fakeWDA{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", opts...), fake
}

func TestClient_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t, WithDefaultCapabilities(Capabilities{"arguments": []string{"-x"}}))
	assert.Empty(t, c.SessionID())

	sess, err := c.CreateSession(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, "iphone", sess.Capabilities["device"])
	assert.Equal(t, "17.2", sess.Capabilities["sdkVersion"])
	assert.Equal(t, "s1", c.SessionID())

	caps := fake.last().Body["capabilities"].(map[string]any)
	assert.Contains(t, caps, "arguments", "empty caps should fall back to defaults")

	require.NoError(t, c.EndSession(ctx))
	assert.Empty(t, c.SessionID())
	assert.Equal(t, http.MethodDelete, fake.last().Method)

	// No session: EndSession does nothing.
	n := len(fake.requests)
	require.NoError(t, c.EndSession(ctx))
	assert.Len(t, fake.requests, n)
}

func TestClient_SessionCreatedLazilyOnce(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Tap(ctx, 10, 20))
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, fake.sessions.Load())
}

func TestClient_TapSendsPointerActions(t *testing.T) {
	c, fake := newTestClient(t, WithSessionID("s1"))
	require.NoError(t, c.Tap(context.Background(), 0, 0))

	req := fake.last()
	assert.Equal(t, "/session/s1/actions", req.Path)
	actions := req.Body["actions"].([]any)
	require.Len(t, actions, 1)
	first := actions[0].(map[string]any)
	assert.Equal(t, "finger-0", first["id"])
	assert.Equal(t, "pointer", first["type"])
	steps := first["actions"].([]any)
	require.Len(t, steps, 3)
	move := steps[0].(map[string]any)
	assert.Equal(t, "pointerMove", move["type"])
	assert.Equal(t, 0.0, move["x"], "zero coordinates must be serialized")
	assert.Equal(t, 0.0, move["y"])
	assert.EqualValues(t, 0, fake.sessions.Load())
}

func TestClient_Queries(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Ready)
	assert.Equal(t, "17.2", status.OS.Version)

	app, err := c.ActiveAppInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "com.apple.Preferences", app.BundleID)
	assert.Equal(t, 42, app.PID)

	src, err := c.Source(ctx)
	require.NoError(t, err)
	assert.Contains(t, src, "Settings")

	png, err := c.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), png)

	size, err := c.WindowSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 390.0, size.Width)
	assert.Equal(t, 844.0, size.Height)
}

func TestClient_PasteboardRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	require.NoError(t, c.SetPasteboard(ctx, "héllo", ""))
	assert.Equal(t, "plaintext", fake.last().Body["contentType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("héllo")), fake.last().Body["content"])

	got, err := c.GetPasteboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "héllo", got)
}

func TestClient_TogglePower(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	locked, err := c.TogglePower(ctx)
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, "/session/s1/wda/lock", fake.last().Path)

	locked, err = c.TogglePower(ctx)
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Equal(t, "/session/s1/wda/unlock", fake.last().Path)
}

func TestClient_PressButtonValidates(t *testing.T) {
	c, fake := newTestClient(t)
	require.Error(t, c.PressButton(context.Background(), "power"))
	assert.Empty(t, fake.requests)

	require.NoError(t, c.PressButton(context.Background(), ButtonHome))
	assert.Equal(t, "home", fake.last().Body["name"])
}

func TestClient_AppsLaunchDefaults(t *testing.T) {
	c, fake := newTestClient(t)
	require.NoError(t, c.AppsLaunch(context.Background(), "com.example", LaunchOptions{}))
	body := fake.last().Body
	assert.Equal(t, "com.example", body["bundleId"])
	assert.Equal(t, []any{}, body["arguments"])
	assert.Equal(t, map[string]any{}, body["environment"])
	assert.Equal(t, false, body["shouldWaitForQuiescence"])
}

func TestClient_ErrorCarriesServerMessage(t *testing.T) {
	c, _ := newTestClient(t, WithSessionID("gone"))
	err := c.Lock(context.Background())
	require.Error(t, err)

	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, http.StatusNotFound, werr.StatusCode)
	assert.Equal(t, "Session does not exist", werr.Message)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestClient_TransportError(t *testing.T) {
	c := New("http://127.0.0.1:1", WithTimeout(200*time.Millisecond))
	_, err := c.Status(context.Background())
	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Zero(t, werr.StatusCode)
	assert.NotEmpty(t, werr.Message)
}

func TestClient_ObserverSeesRoutes(t *testing.T) {
	var routes []string
	c, _ := newTestClient(t, WithObserver(func(method, route string, status int, _ time.Duration) {
		routes = append(routes, method+" "+route)
	}))
	require.NoError(t, c.Lock(context.Background()))
	assert.Equal(t, []string{"POST /session", "POST /session/{id}/wda/lock"}, routes)
}

func TestErrorMessagePrecedence(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"m","error":"e"}`, "m"},
		{`{"error":"e","value":{"message":"vm"}}`, "e"},
		{`{"value":{"message":"vm","error":"ve"}}`, "vm"},
		{`{"value":{"error":"ve"}}`, "ve"},
		{`{"value":"plain string","message":"m"}`, "m"},
		{`not json`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorMessage([]byte(tt.body)), tt.body)
	}
	assert.Equal(t, "request failed with status code 502", newStatusError(502, nil).Message)
	assert.Equal(t, unknownError, newTransportError(nil).Message)
}
