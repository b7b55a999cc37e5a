package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mj1618/wdadash/internal/backend"
	"github.com/mj1618/wdadash/internal/device"
	"github.com/mj1618/wdadash/internal/gesture"
	"github.com/mj1618/wdadash/internal/prefs"
	"github.com/mj1618/wdadash/internal/server"
	"github.com/mj1618/wdadash/internal/wda"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser dashboard",
	Long: `Serve the device dashboard: a device picker, live screen with touch
gestures, hardware buttons, accessibility tree with hit-testing and
highlights, installed apps, syslog and performance streams, files and the
pasteboard. WDA calls go through the backend's per-device proxy.

Examples:
  wdadash serve
  wdadash serve --listen :9000 --backend http://10.0.0.5:15037/api
  wdadash serve --cache-ttl 0`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "HTTP listen address (default :8080)")
	serveCmd.Flags().Duration("cache-ttl", 2*time.Second, "Accessibility tree cache TTL (0 disables caching)")
	serveCmd.Flags().String("prefs", "", "Layout file (default ~/.config/wdadash/prefs.yaml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be := backend.New(cfg.BackendURL, backend.WithLogger(logger))
	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return err
	}
	registry := newRegistry(be)

	srv, err := server.New(server.Config{
		Address: cfg.Listen,
		Backend: be,
		Devices: registry,
		Prefs:   store,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		registry.Close(closeCtx)
		return nil
	})
	logger.Info("dashboard starting",
		zap.String("addr", srv.Addr()),
		zap.String("backend", be.BaseURL()),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.String("prefs", store.Path()))
	return g.Wait()
}

// newRegistry builds the per-device state shared by dashboard requests.
func newRegistry(be *backend.Client) *device.Registry {
	factory := func(udid string) *wda.Client {
		return wda.New(be.WDAURL(udid),
			wda.WithLogger(logger.With(zap.String("udid", udid))),
			wda.WithObserver(server.ObserveWDA))
	}
	return device.NewRegistry(factory, device.NewTreeCache(cfg.CacheTTL), device.Options{
		LongPressDelay:  cfg.LongPressDelay,
		MoveThreshold:   cfg.MoveThreshold,
		PasteboardDelay: cfg.PasteboardDelay,
		ScreenshotRPS:   cfg.ScreenshotRPS,
		Logger:          logger,
		OnGesture: func(udid string, kind gesture.Kind, err error) {
			server.ObserveGesture(string(kind), err)
			if err != nil {
				logger.Warn("long press failed", zap.String("udid", udid), zap.Error(err))
			}
		},
	})
}
