package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/gesture"
	"github.com/mj1618/wdadash/internal/wda"
)

// Factory builds the WDA client for a device.
type Factory func(udid string) *wda.Client

// Options tune the per-device state created by a Registry.
type Options struct {
	LongPressDelay  time.Duration
	MoveThreshold   float64
	PasteboardDelay time.Duration
	// ScreenshotRPS caps screenshots per second per device; 0 disables the limit.
	ScreenshotRPS float64
	Logger        *zap.Logger
	// OnGesture is called after a timer-driven long press completes.
	OnGesture func(udid string, kind gesture.Kind, err error)
}

// Device is the state kept for one device.
type Device struct {
	UDID       string
	WDA        *wda.Client
	Recognizer *gesture.Recognizer
	Pasteboard *Pasteboard

	trees   *TreeCache
	logger  *zap.Logger
	limiter *rate.Limiter
	shots   singleflight.Group

	mu   sync.Mutex
	size *geometry.Size
}

// Registry lazily creates one Device per udid.
type Registry struct {
	factory Factory
	trees   *TreeCache
	opts    Options

	mu      sync.Mutex
	devices map[string]*Device
}

// NewRegistry returns an empty registry sharing trees across devices.
func NewRegistry(factory Factory, trees *TreeCache, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LongPressDelay <= 0 {
		opts.LongPressDelay = gesture.DefaultLongPressDelay
	}
	if opts.MoveThreshold <= 0 {
		opts.MoveThreshold = gesture.DefaultMoveThreshold
	}
	if trees == nil {
		trees = NewTreeCache(0)
	}
	return &Registry{
		factory: factory,
		trees:   trees,
		opts:    opts,
		devices: make(map[string]*Device),
	}
}

// Trees returns the shared tree cache.
func (r *Registry) Trees() *TreeCache { return r.trees }

// Get returns the device for udid, creating it on first use.
func (r *Registry) Get(udid string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[udid]; ok {
		return d
	}

	logger := r.opts.Logger.With(zap.String("udid", udid))
	client := r.factory(udid)
	d := &Device{
		UDID:   udid,
		WDA:    client,
		trees:  r.trees,
		logger: logger,
		Pasteboard: &Pasteboard{
			Client: client,
			Delay:  r.opts.PasteboardDelay,
		},
	}
	if r.opts.ScreenshotRPS > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(r.opts.ScreenshotRPS), 1)
	}
	d.Recognizer = gesture.NewRecognizer(client,
		gesture.WithLongPressDelay(r.opts.LongPressDelay),
		gesture.WithMoveThreshold(r.opts.MoveThreshold),
		gesture.WithLogger(logger),
		gesture.WithFireHook(func(kind gesture.Kind, err error) {
			d.Invalidate()
			if r.opts.OnGesture != nil {
				r.opts.OnGesture(udid, kind, err)
			}
		}),
	)
	r.devices[udid] = d
	return d
}

// UDIDs lists the devices created so far, sorted.
func (r *Registry) UDIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close ends every open WDA session. Errors are logged, not returned.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	devices := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	r.mu.Unlock()

	for _, d := range devices {
		if d.WDA.SessionID() == "" {
			continue
		}
		if err := d.WDA.EndSession(ctx); err != nil {
			d.logger.Warn("failed to end wda session", zap.Error(err))
		}
	}
}

// Tree returns the device's accessibility snapshot, from cache unless
// refresh is set.
func (d *Device) Tree(ctx context.Context, refresh bool) (*Snapshot, error) {
	if refresh {
		d.trees.Invalidate(d.UDID)
	}
	snap, err := d.trees.Get(ctx, d.UDID, func(ctx context.Context) (*Snapshot, error) {
		return Capture(ctx, d.WDA, d.logger)
	})
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	size := snap.Size
	d.size = &size
	d.mu.Unlock()
	return snap, nil
}

// Invalidate drops the cached tree after the screen may have changed.
func (d *Device) Invalidate() { d.trees.Invalidate(d.UDID) }

// LogicalSize returns the device's window size in points. The first
// successful answer is remembered until refresh is set.
func (d *Device) LogicalSize(ctx context.Context, refresh bool) (geometry.Size, error) {
	d.mu.Lock()
	if d.size != nil && !refresh {
		size := *d.size
		d.mu.Unlock()
		return size, nil
	}
	d.mu.Unlock()

	ws, err := d.WDA.WindowSize(ctx)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("read window size: %w", err)
	}
	size := geometry.Size{Width: ws.Width, Height: ws.Height}
	d.mu.Lock()
	d.size = &size
	d.mu.Unlock()
	return size, nil
}

// Screenshot returns a PNG of the screen. Concurrent callers share one WDA
// request, and requests are paced by the screenshot rate limit. The returned
// bytes are shared and must not be modified.
func (d *Device) Screenshot(ctx context.Context) ([]byte, error) {
	ch := d.shots.DoChan("screenshot", func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SharedFetchTimeout)
		defer cancel()
		if d.limiter != nil {
			if err := d.limiter.Wait(sctx); err != nil {
				return nil, err
			}
		}
		return d.WDA.Screenshot(sctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			d.logger.Debug("screenshot shared with concurrent request")
		}
		return res.Val.([]byte), nil
	}
}
