package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/wdadash/internal/backend"
	"github.com/mj1618/wdadash/internal/geometry"
)

// withPocoBackend points rt at a backend that serves one Unity dump.
func withPocoBackend(t *testing.T, rt *runtime) {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/ios/{udid}/poco/{port}/dump", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":    "Root",
			"payload": map[string]any{"name": "Root", "type": "Root", "visible": true, "pos": []float64{0.5, 0.5}, "size": []float64{1, 1}, "anchorPoint": []float64{0.5, 0.5}},
			"children": []map[string]any{{
				"name":    "Canvas",
				"payload": map[string]any{"name": "Canvas", "type": "Canvas", "visible": true, "pos": []float64{0.5, 0.5}, "size": []float64{1, 1}, "anchorPoint": []float64{0.5, 0.5}},
				"children": []map[string]any{{
					"name":    "Button",
					"payload": map[string]any{"name": "Start", "type": "Button", "visible": true, "pos": []float64{0.5, 0.5}, "size": []float64{0.5, 0.1}, "anchorPoint": []float64{0.5, 0.5}},
				}},
			}},
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	rt.backend = backend.New(srv.URL + "/api")
	rt.udid = "dev1"
}

func TestExecutePocoHit(t *testing.T) {
	rt, _ := newTestRuntime(t)
	withPocoBackend(t, rt)

	result, err := executePocoHit(context.Background(), rt, 5001, geometry.Point{X: 195, Y: 422})
	require.NoError(t, err)
	require.NotNil(t, result.Target)
	assert.Equal(t, "Start", result.Target.Name)
	assert.Equal(t, "/Root/Canvas/Button", result.Target.XPath)
	assert.Equal(t, "Root > Canvas > Start", result.Match)

	result, err = executePocoHit(context.Background(), rt, 5001, geometry.Point{X: 1000, Y: 1000})
	require.NoError(t, err)
	assert.Equal(t, "none", result.State)
}

func TestPocoSnapshot_RequiresUDID(t *testing.T) {
	rt, _ := newTestRuntime(t)
	_, err := pocoSnapshot(context.Background(), rt, 5001)
	assert.ErrorContains(t, err, "--udid is required")
}
