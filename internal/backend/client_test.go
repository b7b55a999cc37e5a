package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend mimics the device backend's REST routes.
func fakeBackend(t *testing.T) (*Client, *[]string) {
	t.Helper()
	var hits []string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			hits = append(hits, req.Method+" "+req.URL.RequestURI())
			next.ServeHTTP(w, req)
		})
	})
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	r.Get("/api/list", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, []map[string]any{{"udId": "A", "platform": "ios"}, {"udId": "B", "platform": "android"}})
	})
	r.Get("/api/ios", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, []map[string]any{{"udId": "A", "name": "iPhone", "version": "17.2", "level": 80}})
	})
	r.Get("/api/ios/{udid}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, 200, map[string]any{"device_serialno": chi.URLParam(req, "udid"), "device_name": "iPhone", "wda_port": 8100})
	})
	r.Get("/api/ios/{udid}/apps", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, 200, []map[string]any{{"CFBundleIdentifier": "com.example." + req.URL.Query().Get("type"), "CFBundleName": "Example"}})
	})
	r.Post("/api/ios/{udid}/apps/{bundleId}/{action}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "bundleId") == "com.missing" {
			writeJSON(w, 404, map[string]any{"error": "app not installed"})
			return
		}
		writeJSON(w, 200, map[string]any{})
	})
	r.Get("/api/ios/{udid}/processes", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, []map[string]any{{"Pid": 1, "Name": "launchd", "IsApplication": false}})
	})
	r.Get("/api/ios/{udid}/fsync/list/*", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"message": []string{"DCIM", "Downloads"}})
	})
	r.Get("/api/ios/{udid}/apps/{bundleId}/fsync/list/*", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"message": []string{"notes.txt"}})
	})
	r.Post("/api/ios/{udid}/location", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]float64
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body["lat"] != 31.2 || body["lon"] != 121.5 {
			writeJSON(w, 500, map[string]any{"message": "bad body"})
			return
		}
		writeJSON(w, 200, map[string]any{})
	})
	r.Post("/api/ios/{udid}/location/reset", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, 200, nil) })
	r.Get("/api/ios/{udid}/screenshot", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG"))
	})
	r.Get("/api/ios/{udid}/syslog", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "event:message\ndata:line %d\n\n", i)
			flusher.Flush()
		}
	})
	r.Get("/api/ios/{udid}/perf/sse", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:sys_mem\ndata:{\"type\":\"sys_mem\",\"timestamp\":1700000000,\"free_memory\":12}\n\n")
		w.(http.Flusher).Flush()
		<-req.Context().Done()
	})
	r.Get("/api/ios/forbidden/processes", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 403, map[string]any{"message": "token expired"})
	})
	r.Get("/api/ios/{udid}/poco/{port}/dump", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "port") != "5001" {
			writeJSON(w, 500, map[string]any{"message": "connection refused"})
			return
		}
		writeJSON(w, 200, map[string]any{
			"name":    "Root",
			"payload": map[string]any{"name": "Root", "type": "Root", "visible": true, "pos": []float64{0.5, 0.5}, "size": []float64{1, 1}, "anchorPoint": []float64{0.5, 0.5}},
			"children": []map[string]any{{
				"name":    "Button",
				"payload": map[string]any{"name": "Start", "type": "Button", "visible": true, "pos": []float64{0.5, 0.5}, "size": []float64{0.5, 0.1}, "anchorPoint": []float64{0.5, 0.5}},
			}},
		})
	})
	r.Get("/api/android/{serial}/apps", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, []map[string]any{{"packageName": "com.example.game", "label": "Game", "versionName": "1.2.0"}})
	})
	r.Post("/api/android/{serial}/apps/{pkg}/{action}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api/"), &hits
}

func TestClient_ListDevices(t *testing.T) {
	c, hits := fakeBackend(t)
	ctx := context.Background()

	all, err := c.ListDevices(ctx, PlatformAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ios, err := c.ListDevices(ctx, PlatformIOS)
	require.NoError(t, err)
	require.Len(t, ios, 1)
	assert.Equal(t, "iPhone", ios[0].Name)
	assert.Equal(t, 80, ios[0].Level)

	_, err = c.ListDevices(ctx, "windows")
	assert.Error(t, err)
	assert.Equal(t, []string{"GET /api/list", "GET /api/ios"}, *hits)
}

func TestClient_DeviceAndApps(t *testing.T) {
	c, hits := fakeBackend(t)
	ctx := context.Background()

	info, err := c.Device(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", info.DeviceSerialNo)
	assert.Equal(t, 8100, info.WDAPort)

	apps, err := c.ListApps(ctx, "A", "")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "com.example.user", apps[0].BundleID)

	_, err = c.ListApps(ctx, "A", AppsSystem)
	require.NoError(t, err)
	assert.Contains(t, *hits, "GET /api/ios/A/apps?type=system")

	require.NoError(t, c.LaunchApp(ctx, "A", "com.example"))
	require.NoError(t, c.KillApp(ctx, "A", "com.example"))
	require.NoError(t, c.UninstallApp(ctx, "A", "com.example"))
	assert.Contains(t, *hits, "POST /api/ios/A/apps/com.example/uninstall")
	assert.Error(t, c.LaunchApp(ctx, "A", ""))
}

func TestClient_AndroidApps(t *testing.T) {
	c, hits := fakeBackend(t)
	ctx := context.Background()

	apps, err := c.ListAndroidApps(ctx, "emulator-5554")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "com.example.game", apps[0].PackageName)
	assert.Equal(t, "1.2.0", apps[0].VersionName)

	require.NoError(t, c.LaunchAndroidApp(ctx, "emulator-5554", "com.example.game"))
	require.NoError(t, c.KillAndroidApp(ctx, "emulator-5554", "com.example.game"))
	assert.Error(t, c.KillAndroidApp(ctx, "emulator-5554", ""))
	assert.Equal(t, []string{
		"GET /api/android/emulator-5554/apps",
		"POST /api/android/emulator-5554/apps/com.example.game/launch",
		"POST /api/android/emulator-5554/apps/com.example.game/kill",
	}, *hits)
}

func TestClient_PocoDump(t *testing.T) {
	c, hits := fakeBackend(t)
	ctx := context.Background()

	root, err := c.PocoDump(ctx, "A", 5001)
	require.NoError(t, err)
	assert.Equal(t, "Root", root.Name)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "Start", root.Children[0].Payload.Name)
	assert.Equal(t, [2]float64{0.5, 0.1}, root.Children[0].Payload.Size)

	_, err = c.PocoDump(ctx, "A", 5002)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 500, be.StatusCode)

	_, err = c.PocoDump(ctx, "A", 0)
	assert.Error(t, err)
	assert.Equal(t, []string{"GET /api/ios/A/poco/5001/dump", "GET /api/ios/A/poco/5002/dump"}, *hits)
}

func TestClient_ErrorPrefixes(t *testing.T) {
	c, _ := fakeBackend(t)
	ctx := context.Background()

	err := c.KillApp(ctx, "A", "com.missing")
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 404, berr.StatusCode)
	assert.Equal(t, "not found: app not installed", berr.Message)

	_, err = c.ListProcesses(ctx, "forbidden")
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "access denied: token expired", berr.Error())

	unreachable := New("http://127.0.0.1:1/api")
	_, err = unreachable.ListDevices(ctx, "")
	require.ErrorAs(t, err, &berr)
	assert.Zero(t, berr.StatusCode)
	assert.Contains(t, berr.Message, "network error")
}

func TestStatusPrefix(t *testing.T) {
	tests := map[int]string{
		403: "access denied",
		404: "not found",
		500: "server error",
		502: "network error",
		0:   "network error",
	}
	for status, want := range tests {
		assert.Equal(t, want, statusPrefix(status), "status %d", status)
	}
	assert.Equal(t, "server error", newError(500, []byte("not json"), nil).Message)
}

func TestClient_ListFilesDefaults(t *testing.T) {
	c, hits := fakeBackend(t)
	ctx := context.Background()

	files, err := c.ListFiles(ctx, "A", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"DCIM", "Downloads"}, files)

	files, err = c.ListFiles(ctx, "A", "com.example", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, files)

	_, err = c.ListFiles(ctx, "A", "", "DCIM")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GET /api/ios/A/fsync/list/",
		"GET /api/ios/A/apps/com.example/fsync/list/Documents",
		"GET /api/ios/A/fsync/list/DCIM",
	}, *hits)
}

func TestClient_LocationAndScreenshot(t *testing.T) {
	c, _ := fakeBackend(t)
	ctx := context.Background()

	require.NoError(t, c.SetLocation(ctx, "A", 31.2, 121.5))
	require.NoError(t, c.ResetLocation(ctx, "A"))
	assert.Error(t, c.SetLocation(ctx, "A", 91, 0))

	png, err := c.Screenshot(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png)

	procs, err := c.ListProcesses(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "launchd", procs[0].Name)
}

func TestClient_WDAURL(t *testing.T) {
	c := New("")
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, "http://127.0.0.1:15037/api/ios/00008030-001/wda", c.WDAURL("00008030-001"))
}

func TestClient_SyslogStream(t *testing.T) {
	c, _ := fakeBackend(t)
	stream, err := c.Syslog(context.Background(), "A")
	require.NoError(t, err)
	defer stream.Close()

	var lines []string
	for e := range stream.Events() {
		assert.Equal(t, "message", e.Name)
		lines = append(lines, e.Data)
	}
	assert.Equal(t, []string{"line 0", "line 1", "line 2"}, lines)
	assert.NoError(t, stream.Err())
}

func TestClient_PerfStreamClose(t *testing.T) {
	c, _ := fakeBackend(t)
	stream, err := c.Perf(context.Background(), "A")
	require.NoError(t, err)

	select {
	case e := <-stream.Events():
		assert.Equal(t, "sys_mem", e.Name)
		sample, err := DecodePerf(e)
		require.NoError(t, err)
		assert.Equal(t, "sys_mem", sample.Type)
		var mem SystemMemory
		require.NoError(t, json.Unmarshal([]byte(e.Data), &mem))
		assert.EqualValues(t, 12, mem.FreeMemory)
	case <-time.After(2 * time.Second):
		t.Fatal("no perf event")
	}

	require.NoError(t, stream.Close())
	select {
	case _, ok := <-stream.Events():
		assert.False(t, ok, "events channel should close after Close")
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close")
	}
	assert.NoError(t, stream.Err())
}
