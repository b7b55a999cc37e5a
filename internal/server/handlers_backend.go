package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mj1618/wdadash/internal/backend"
)

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.backend.ListDevices(r.Context(), r.URL.Query().Get("platform"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if devices == nil {
		devices = []backend.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	info, err := s.backend.Device(r.Context(), chi.URLParam(r, "udid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.backend.ListApps(r.Context(), chi.URLParam(r, "udid"), r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if apps == nil {
		apps = []backend.App{}
	}
	writeJSON(w, http.StatusOK, apps)
}

// handleAppAction launches, kills or uninstalls through the backend, or
// activates through WDA.
func (s *Server) handleAppAction(w http.ResponseWriter, r *http.Request) {
	udid := chi.URLParam(r, "udid")
	bundleID := chi.URLParam(r, "bundleId")
	action := chi.URLParam(r, "action")

	var err error
	switch action {
	case "launch":
		err = s.backend.LaunchApp(r.Context(), udid, bundleID)
	case "kill":
		err = s.backend.KillApp(r.Context(), udid, bundleID)
	case "uninstall":
		err = s.backend.UninstallApp(r.Context(), udid, bundleID)
	case "activate":
		d := s.devices.Get(udid)
		err = d.WDA.AppsActivate(r.Context(), bundleID)
		d.Invalidate()
	default:
		writeError(w, http.StatusBadRequest, "unknown app action "+action+" (use launch, kill, uninstall or activate)")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, Action: action})
}

func (s *Server) handleListAndroidApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.backend.ListAndroidApps(r.Context(), chi.URLParam(r, "serial"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if apps == nil {
		apps = []backend.AndroidApp{}
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleAndroidAppAction(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	pkg := chi.URLParam(r, "pkg")
	action := chi.URLParam(r, "action")

	var err error
	switch action {
	case "launch":
		err = s.backend.LaunchAndroidApp(r.Context(), serial, pkg)
	case "kill":
		err = s.backend.KillAndroidApp(r.Context(), serial, pkg)
	default:
		writeError(w, http.StatusBadRequest, "unknown app action "+action+" (use launch or kill)")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, Action: action})
}

func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	procs, err := s.backend.ListProcesses(r.Context(), chi.URLParam(r, "udid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if procs == nil {
		procs = []backend.Process{}
	}
	writeJSON(w, http.StatusOK, procs)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	files, err := s.backend.ListFiles(r.Context(), chi.URLParam(r, "udid"), q.Get("bundleId"), q.Get("path"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, files)
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	if lat, lon := *req.Latitude, *req.Longitude; lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "latitude must be within [-90, 90] and longitude within [-180, 180]")
		return
	}
	if err := s.backend.SetLocation(r.Context(), chi.URLParam(r, "udid"), *req.Latitude, *req.Longitude); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, Action: "location"})
}

func (s *Server) handleResetLocation(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.ResetLocation(r.Context(), chi.URLParam(r, "udid")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, Action: "location-reset"})
}
