package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mj1618/wdadash/internal/device"
	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/poco"
)

func pocoPort(r *http.Request) (int, error) {
	port, err := strconv.Atoi(chi.URLParam(r, "port"))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", chi.URLParam(r, "port"))
	}
	return port, nil
}

// handlePocoDump passes the raw Unity Poco hierarchy through.
func (s *Server) handlePocoDump(w http.ResponseWriter, r *http.Request) {
	port, err := pocoPort(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	root, err := s.backend.PocoDump(r.Context(), chi.URLParam(r, "udid"), port)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

// pocoSnapshot converts the Poco hierarchy into an element tree laid out
// on the device's logical screen.
func (s *Server) pocoSnapshot(r *http.Request, port int) (*device.Snapshot, error) {
	d := s.device(r)
	size, err := d.LogicalSize(r.Context(), false)
	if err != nil {
		return nil, err
	}
	root, err := s.backend.PocoDump(r.Context(), d.UDID, port)
	if err != nil {
		return nil, err
	}
	return &device.Snapshot{
		Elements:  poco.Elements(*root, size),
		Size:      size,
		FetchedAt: time.Now(),
	}, nil
}

// handlePocoTree returns the Poco hierarchy as an element tree. Query:
// visible, text, flat.
func (s *Server) handlePocoTree(w http.ResponseWriter, r *http.Request) {
	port, err := pocoPort(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.pocoSnapshot(r, port)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	elements := snap.Elements
	if q.Get("visible") != "" {
		elements = model.VisibleOnly(elements)
	}
	elements = model.FilterByText(elements, q.Get("text"))
	if elements == nil {
		elements = []model.Element{}
	}
	resp := treeResponse{
		UDID:    chi.URLParam(r, "udid"),
		Count:   model.Count(elements),
		Size:    snap.Size,
		Fetched: snap.FetchedAt,
	}
	if q.Get("flat") != "" {
		resp.Flat = model.FlattenElements(elements)
	} else {
		resp.Elements = elements
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePocoHit hit-tests the Poco hierarchy the same way handleHit does
// the accessibility tree.
func (s *Server) handlePocoHit(w http.ResponseWriter, r *http.Request) {
	port, err := pocoPort(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.pocoSnapshot(r, port)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := pointFromQuery(r, snap.Size)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap.HitAt(p))
}
