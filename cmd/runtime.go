package cmd

import (
	"context"
	"errors"

	"github.com/mj1618/wdadash/internal/backend"
	"github.com/mj1618/wdadash/internal/device"
	"github.com/mj1618/wdadash/internal/wda"
)

// runtime bundles the clients one command invocation talks to.
type runtime struct {
	wda        *wda.Client
	backend    *backend.Client
	udid       string
	pasteboard *device.Pasteboard
}

// newRuntime builds clients from the resolved config. With --udid, WDA
// calls go through the backend's per-device proxy.
func newRuntime() *runtime {
	be := backend.New(cfg.BackendURL, backend.WithLogger(logger))
	wdaURL := cfg.WDAURL
	if cfg.UDID != "" {
		wdaURL = be.WDAURL(cfg.UDID)
	}
	opts := []wda.Option{wda.WithLogger(logger)}
	if cfg.Session != "" {
		opts = append(opts, wda.WithSessionID(cfg.Session))
	}
	client := wda.New(wdaURL, opts...)
	return &runtime{
		wda:        client,
		backend:    be,
		udid:       cfg.UDID,
		pasteboard: &device.Pasteboard{Client: client, Delay: cfg.PasteboardDelay},
	}
}

// snapshot reads and parses the current accessibility tree.
func (rt *runtime) snapshot(ctx context.Context) (*device.Snapshot, error) {
	return device.Capture(ctx, rt.wda, logger)
}

// requireUDID returns the device udid backend commands operate on.
func (rt *runtime) requireUDID() (string, error) {
	if rt.udid == "" {
		return "", errors.New("--udid is required for device backend commands")
	}
	return rt.udid, nil
}
