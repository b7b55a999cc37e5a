package server

import (
	"net/http"

	"github.com/mj1618/wdadash/internal/prefs"
)

func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prefs.Get())
}

// handlePutPrefs replaces the stored layout. Missing fields keep their
// current values.
func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	var req prefs.Layout
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	current := s.prefs.Get()
	if len(req.SplitterSizes) == 0 {
		req.SplitterSizes = current.SplitterSizes
	}
	if req.SplitterLayout == "" {
		req.SplitterLayout = current.SplitterLayout
	}
	if req.TabKey == "" {
		req.TabKey = current.TabKey
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	layout, err := s.prefs.Set(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (s *Server) handleToggleLayout(w http.ResponseWriter, r *http.Request) {
	layout, err := s.prefs.ToggleLayout()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}
