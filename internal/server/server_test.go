package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/wdadash/internal/backend"
	"github.com/mj1618/wdadash/internal/device"
	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/prefs"
	"github.com/mj1618/wdadash/internal/wda"
	"github.com/mj1618/wdadash/internal/wda/wdatest"
)

// fakeBackend answers the device backend routes the dashboard proxies.
type fakeBackend struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeBackend) handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/ios", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"udId": "dev1", "name": "iPhone", "platform": "ios"}})
	})
	r.Get("/api/ios/{udid}/apps", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"CFBundleIdentifier": "com.apple.Preferences", "CFBundleName": "Settings"}})
	})
	r.Post("/api/ios/{udid}/apps/{bundleId}/{action}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.actions = append(f.actions, chi.URLParam(req, "action")+":"+chi.URLParam(req, "bundleId"))
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	r.Get("/api/ios/forbidden/processes", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "device locked by another user"})
	})
	r.Get("/api/ios/{udid}/poco/{port}/dump", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":    "Root",
			"payload": map[string]any{"name": "Root", "type": "Root", "visible": true, "pos": []float64{0.5, 0.5}, "size": []float64{1, 1}, "anchorPoint": []float64{0.5, 0.5}},
			"children": []map[string]any{
				{"name": "Button", "payload": map[string]any{"name": "Start", "type": "Button", "visible": true, "pos": []float64{0.5, 0.5}, "size": []float64{0.5, 0.1}, "anchorPoint": []float64{0.5, 0.5}}},
				{"name": "Button", "payload": map[string]any{"name": "Hidden", "type": "Button", "visible": false, "pos": []float64{0, 0}, "size": []float64{0.1, 0.1}, "anchorPoint": []float64{0, 0}}},
			},
		})
	})
	r.Get("/api/android/{serial}/apps", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"packageName": "com.example.game", "label": "Game"}})
	})
	r.Post("/api/android/{serial}/apps/{pkg}/{action}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.actions = append(f.actions, "android-"+chi.URLParam(req, "action")+":"+chi.URLParam(req, "pkg"))
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	r.Get("/api/ios/{udid}/syslog", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: line one\n\nid: 7\ndata: line two\ndata: continued\n\n")
	})
	return r
}

func (f *fakeBackend) appActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

type harness struct {
	srv     *httptest.Server
	wda     *wdatest.Server
	backend *fakeBackend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fakeWDA := wdatest.NewServer(t)
	fb := &fakeBackend{}
	backendSrv := httptest.NewServer(fb.handler())
	t.Cleanup(backendSrv.Close)

	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)

	registry := device.NewRegistry(func(string) *wda.Client {
		return wda.New(fakeWDA.URL, wda.WithObserver(ObserveWDA))
	}, device.NewTreeCache(time.Minute), device.Options{})

	s, err := New(Config{
		Backend:   backend.New(backendSrv.URL + "/api"),
		Devices:   registry,
		Prefs:     store,
		Heartbeat: time.Hour,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &harness{srv: srv, wda: fakeWDA, backend: fb}
}

func (h *harness) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestServer_HealthAndIndex(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	resp = h.do(t, http.MethodGet, "/", nil)
	page, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(page), "<title>wdadash</title>")
}

func TestServer_RequestIDIsEchoed(t *testing.T) {
	h := newHarness(t)
	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestServer_Tree(t *testing.T) {
	h := newHarness(t)

	var tree treeResponse
	decodeBody(t, h.do(t, http.MethodGet, "/api/devices/dev1/tree", nil), &tree)
	assert.Equal(t, "dev1", tree.UDID)
	assert.Equal(t, 4, tree.Count)
	assert.Equal(t, 390.0, tree.Size.Width)

	var filtered treeResponse
	decodeBody(t, h.do(t, http.MethodGet, "/api/devices/dev1/tree?text=privacy&flat=1", nil), &filtered)
	require.Len(t, filtered.Flat, 3)
	assert.Equal(t, "Privacy", filtered.Flat[2].Name)
	assert.Equal(t, "app > window > btn", filtered.Flat[2].Path)

	// Cached: one source read for both requests.
	assert.Equal(t, 1, h.wda.Count(http.MethodGet, "/source"))

	_ = h.do(t, http.MethodGet, "/api/devices/dev1/tree?refresh=1", nil)
	assert.Equal(t, 2, h.wda.Count(http.MethodGet, "/source"))
}

func TestServer_Hit(t *testing.T) {
	h := newHarness(t)

	var hit device.Hit
	decodeBody(t, h.do(t, http.MethodGet, "/api/devices/dev1/tree/hit?x=100&y=120", nil), &hit)
	require.NotNil(t, hit.Element)
	assert.Equal(t, "General", hit.Element.Detail.Name())
	assert.Equal(t, []int{1, 2, 3}, hit.Path)

	// Screenshot displayed at half size with a 10px offset.
	var clientHit device.Hit
	decodeBody(t, h.do(t, http.MethodGet,
		"/api/devices/dev1/tree/hit?clientX=60&clientY=95&left=10&top=10&width=195&height=422", nil), &clientHit)
	require.NotNil(t, clientHit.Element)
	assert.Equal(t, "Privacy", clientHit.Element.Detail.Name())
	assert.InDelta(t, 100, clientHit.Point.X, 0.001)
	assert.InDelta(t, 170, clientHit.Point.Y, 0.001)

	resp := h.do(t, http.MethodGet, "/api/devices/dev1/tree/hit?clientX=1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_HighlightAndScreenshot(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/devices/dev1/tree/highlight?id=3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 780, img.Bounds().Dx())

	resp = h.do(t, http.MethodGet, "/api/devices/dev1/tree/highlight?id=99", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/devices/dev1/screenshot?width=390", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, err = png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 390, img.Bounds().Dx())

	resp = h.do(t, http.MethodGet, "/api/devices/dev1/screenshot?format=jpg&annotate=ids", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestServer_Gestures(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/devices/dev1/tap", map[string]any{"x": 100, "y": 120})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	req, ok := h.wda.Last("/session/" + wdatest.SessionID + "/actions")
	require.True(t, ok)
	actions := req.Body["actions"].([]any)
	assert.Len(t, actions, 1)

	resp = h.do(t, http.MethodPost, "/api/devices/dev1/swipe", map[string]any{"x1": 10, "y1": 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/devices/dev1/double-tap", map[string]any{"x": 1, "y": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, h.wda.Count(http.MethodPost, "/session/"+wdatest.SessionID+"/wda/doubleTap"))

	resp = h.do(t, http.MethodPost, "/api/devices/dev1/button", map[string]any{"name": "power"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/devices/dev1/button", map[string]any{"name": "home"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var power map[string]bool
	decodeBody(t, h.do(t, http.MethodPost, "/api/devices/dev1/power", nil), &power)
	assert.True(t, power["locked"])
	assert.True(t, h.wda.Locked())
}

func TestServer_PointerTap(t *testing.T) {
	h := newHarness(t)
	rect := map[string]any{"left": 0, "top": 0, "width": 390, "height": 844}

	resp := h.do(t, http.MethodPost, "/api/devices/dev1/pointer", map[string]any{"phase": "down", "clientX": 50, "clientY": 60, "rect": rect})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var up pointerResponse
	decodeBody(t, h.do(t, http.MethodPost, "/api/devices/dev1/pointer", map[string]any{"phase": "up", "clientX": 51, "clientY": 61, "rect": rect}), &up)
	assert.Equal(t, "tap", string(up.Gesture))
	assert.Equal(t, 1, h.wda.Count(http.MethodPost, "/session/"+wdatest.SessionID+"/actions"))

	resp = h.do(t, http.MethodPost, "/api/devices/dev1/pointer", map[string]any{"phase": "hover", "rect": rect})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Pasteboard(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/devices/dev1/pasteboard", map[string]any{"text": "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", h.wda.Pasteboard())

	siri, ok := h.wda.Last("/session/" + wdatest.SessionID + "/wda/siri/activate")
	require.True(t, ok)
	assert.Equal(t, device.RunnerPhrase, siri.Body["text"])
	activate, ok := h.wda.Last("/session/" + wdatest.SessionID + "/wda/apps/activate")
	require.True(t, ok)
	assert.Equal(t, "com.apple.Preferences", activate.Body["bundleId"])

	var got textRequest
	decodeBody(t, h.do(t, http.MethodGet, "/api/devices/dev1/pasteboard", nil), &got)
	assert.Equal(t, "hello", got.Text)
}

func TestServer_Prefs(t *testing.T) {
	h := newHarness(t)

	var layout prefs.Layout
	decodeBody(t, h.do(t, http.MethodGet, "/api/prefs", nil), &layout)
	assert.Equal(t, prefs.Default(), layout)

	decodeBody(t, h.do(t, http.MethodPut, "/api/prefs", map[string]any{"tabKey": "tree"}), &layout)
	assert.Equal(t, "tree", layout.TabKey)
	assert.Equal(t, prefs.Horizontal, layout.SplitterLayout)

	decodeBody(t, h.do(t, http.MethodPost, "/api/prefs/layout/toggle", nil), &layout)
	assert.Equal(t, prefs.Vertical, layout.SplitterLayout)

	resp := h.do(t, http.MethodPut, "/api/prefs", map[string]any{"splitterLayout": "diagonal"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_BackendProxy(t *testing.T) {
	h := newHarness(t)

	var devices []backend.Device
	decodeBody(t, h.do(t, http.MethodGet, "/api/devices?platform=ios", nil), &devices)
	require.Len(t, devices, 1)
	assert.Equal(t, "dev1", devices[0].UDID)

	resp := h.do(t, http.MethodPost, "/api/devices/dev1/apps/com.example/launch", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"launch:com.example"}, h.backend.appActions())

	resp = h.do(t, http.MethodPost, "/api/devices/dev1/apps/com.example/explode", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/devices/forbidden/processes", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.True(t, strings.HasPrefix(body["error"], "access denied"), body["error"])

	resp = h.do(t, http.MethodPost, "/api/devices/dev1/location", map[string]any{"latitude": 91, "longitude": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_AndroidApps(t *testing.T) {
	h := newHarness(t)

	var apps []backend.AndroidApp
	decodeBody(t, h.do(t, http.MethodGet, "/api/android/emulator-5554/apps", nil), &apps)
	require.Len(t, apps, 1)
	assert.Equal(t, "com.example.game", apps[0].PackageName)

	resp := h.do(t, http.MethodPost, "/api/android/emulator-5554/apps/com.example.game/launch", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = h.do(t, http.MethodPost, "/api/android/emulator-5554/apps/com.example.game/kill", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"android-launch:com.example.game", "android-kill:com.example.game"}, h.backend.appActions())

	resp = h.do(t, http.MethodPost, "/api/android/emulator-5554/apps/com.example.game/uninstall", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Poco(t *testing.T) {
	h := newHarness(t)

	var dump map[string]any
	decodeBody(t, h.do(t, http.MethodGet, "/api/devices/dev1/poco/5001/dump", nil), &dump)
	assert.Equal(t, "Root", dump["name"])

	var tree struct {
		Count    int             `json:"count"`
		Elements []model.Element `json:"elements"`
	}
	decodeBody(t, h.do(t, http.MethodGet, "/api/devices/dev1/poco/5001/tree?visible=1", nil), &tree)
	assert.Equal(t, 2, tree.Count)
	require.Len(t, tree.Elements, 1)
	start := tree.Elements[0].Children[0]
	assert.Equal(t, "Start", start.Detail.Name())
	box, ok := start.Detail.Box()
	require.True(t, ok)
	assert.Equal(t, 195, box.Width)
	assert.Equal(t, 84, box.Height)

	var hit device.Hit
	decodeBody(t, h.do(t, http.MethodGet, "/api/devices/dev1/poco/5001/hit?x=195&y=422", nil), &hit)
	require.NotNil(t, hit.Element)
	assert.Equal(t, "Start", hit.Element.Detail.Name())
	assert.Equal(t, []int{1, 2}, hit.Path)

	resp := h.do(t, http.MethodGet, "/api/devices/dev1/poco/99999/tree", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SyslogRelay(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/devices/dev1/syslog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "event: connected\n")
	assert.Contains(t, text, "data: line one\n\n")
	assert.Contains(t, text, "id: 7\ndata: line two\ndata: continued\n\n")
}

func TestServer_Metrics(t *testing.T) {
	h := newHarness(t)
	_ = h.do(t, http.MethodGet, "/api/devices/dev1/window-size", nil)

	resp := h.do(t, http.MethodGet, "/metrics", nil)
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "wdadash_http_requests_total")
	assert.Contains(t, string(data), fmt.Sprintf("wdadash_wda_request_duration_seconds_count{method=%q,route=%q,status=%q}", "GET", "/session/{id}/window/size", "200"))
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, backend.Event{Name: "sys_mem", ID: "3", Data: "a\nb"}))
	assert.Equal(t, "id: 3\nevent: sys_mem\ndata: a\ndata: b\n\n", buf.String())
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
