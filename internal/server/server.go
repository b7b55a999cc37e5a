// Package server is the device dashboard: a chi router exposing the WDA
// and device backend operations as JSON, relaying live log and performance
// streams, and serving the embedded single-page UI.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mj1618/wdadash/internal/backend"
	"github.com/mj1618/wdadash/internal/device"
	"github.com/mj1618/wdadash/internal/prefs"
)

// DefaultHeartbeat is how often idle event streams get a keep-alive.
const DefaultHeartbeat = 30 * time.Second

// Config wires the dashboard to its collaborators.
type Config struct {
	// Address to listen on (default: :8080).
	Address string
	Backend *backend.Client
	Devices *device.Registry
	Prefs   *prefs.Store
	Logger  *zap.Logger
	// Heartbeat overrides DefaultHeartbeat.
	Heartbeat time.Duration
}

// Server is the dashboard HTTP server.
type Server struct {
	backend   *backend.Client
	devices   *device.Registry
	prefs     *prefs.Store
	logger    *zap.Logger
	heartbeat time.Duration

	router     chi.Router
	httpServer *http.Server
}

// New builds the router. Backend, Devices and Prefs are required.
func New(cfg Config) (*Server, error) {
	if cfg.Backend == nil || cfg.Devices == nil || cfg.Prefs == nil {
		return nil, errors.New("server: backend, devices and prefs are required")
	}
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}

	s := &Server{
		backend:   cfg.Backend,
		devices:   cfg.Devices,
		prefs:     cfg.Prefs,
		logger:    cfg.Logger,
		heartbeat: cfg.Heartbeat,
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.logMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/prefs", func(r chi.Router) {
			r.Get("/", s.handleGetPrefs)
			r.Put("/", s.handlePutPrefs)
			r.Post("/layout/toggle", s.handleToggleLayout)
		})

		r.Get("/devices", s.handleListDevices)
		r.Route("/android/{serial}", func(r chi.Router) {
			r.Get("/apps", s.handleListAndroidApps)
			r.Post("/apps/{pkg}/{action}", s.handleAndroidAppAction)
		})
		r.Route("/devices/{udid}", func(r chi.Router) {
			r.Get("/", s.handleDevice)

			// Backend-served operations.
			r.Get("/apps", s.handleListApps)
			r.Post("/apps/{bundleId}/{action}", s.handleAppAction)
			r.Get("/processes", s.handleProcesses)
			r.Get("/files", s.handleFiles)
			r.Post("/location", s.handleSetLocation)
			r.Post("/location/reset", s.handleResetLocation)
			r.Get("/syslog", s.handleSyslog)
			r.Get("/perf", s.handlePerf)
			r.Get("/poco/{port}/dump", s.handlePocoDump)
			r.Get("/poco/{port}/tree", s.handlePocoTree)
			r.Get("/poco/{port}/hit", s.handlePocoHit)

			// WDA operations.
			r.Get("/status", s.handleStatus)
			r.Get("/window-size", s.handleWindowSize)
			r.Get("/active-app", s.handleActiveApp)
			r.Get("/screenshot", s.handleScreenshot)
			r.Get("/tree", s.handleTree)
			r.Get("/tree/hit", s.handleHit)
			r.Get("/tree/highlight", s.handleHighlight)
			r.Post("/pointer", s.handlePointer)
			r.Post("/tap", s.handleTap)
			r.Post("/long-press", s.handleLongPress)
			r.Post("/swipe", s.handleSwipe)
			r.Post("/drag", s.handleDrag)
			r.Post("/double-tap", s.handleDoubleTap)
			r.Post("/button", s.handleButton)
			r.Post("/power", s.handlePower)
			r.Post("/siri", s.handleSiri)
			r.Get("/pasteboard", s.handleGetPasteboard)
			r.Post("/pasteboard", s.handleSetPasteboard)
		})
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// device returns the registry entry for the {udid} URL parameter.
func (s *Server) device(r *http.Request) *device.Device {
	return s.devices.Get(chi.URLParam(r, "udid"))
}
