// Package gesture turns raw pointer down/move/up events into tap, long-press
// and swipe gestures on a device.
package gesture

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/wdadash/internal/geometry"
)

//go:generate mockgen -package=gesture -destination=mock_performer_test.go github.com/mj1618/wdadash/internal/gesture Performer

// Performer executes gestures on a device in logical coordinates.
// *wda.Client satisfies it.
type Performer interface {
	Tap(ctx context.Context, x, y float64) error
	LongPress(ctx context.Context, x, y float64, ms int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 float64) error
}

// Kind names the gesture an Up event resolved to.
type Kind string

const (
	KindNone      Kind = "none"
	KindTap       Kind = "tap"
	KindSwipe     Kind = "swipe"
	KindLongPress Kind = "long-press"
)

// Defaults for the recognizer thresholds.
const (
	DefaultLongPressDelay = time.Second
	DefaultMoveThreshold  = 5.0
)

// Timer is the subset of *time.Timer the recognizer uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the production value.
type AfterFunc func(d time.Duration, f func()) Timer

// Recognizer disambiguates pointer sequences. It is safe for concurrent use;
// a long press fires from the timer goroutine.
type Recognizer struct {
	performer Performer
	delay     time.Duration
	threshold float64
	afterFunc AfterFunc
	logger    *zap.Logger
	onFire    func(Kind, error)

	mu          sync.Mutex
	down        bool
	start       geometry.Point
	swiping     bool
	longPressed bool
	timer       Timer
	generation  uint64
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLongPressDelay sets how long a press must be held to become a long press.
func WithLongPressDelay(d time.Duration) Option {
	return func(r *Recognizer) { r.delay = d }
}

// WithMoveThreshold sets the per-axis distance, in device points, beyond
// which a press becomes a swipe.
func WithMoveThreshold(points float64) Option {
	return func(r *Recognizer) { r.threshold = points }
}

// WithAfterFunc replaces the timer scheduler.
func WithAfterFunc(f AfterFunc) Option {
	return func(r *Recognizer) { r.afterFunc = f }
}

// WithLogger sets the logger for gestures fired from the timer.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recognizer) { r.logger = l }
}

// WithFireHook is called after a timer-driven long press completes.
func WithFireHook(f func(Kind, error)) Option {
	return func(r *Recognizer) { r.onFire = f }
}

// NewRecognizer returns an idle recognizer driving p.
func NewRecognizer(p Performer, opts ...Option) *Recognizer {
	r := &Recognizer{
		performer: p,
		delay:     DefaultLongPressDelay,
		threshold: DefaultMoveThreshold,
		afterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Down starts a press at p and arms the long-press timer. A press already
// in progress is abandoned.
func (r *Recognizer) Down(p geometry.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
	r.down = true
	r.start = p
	gen := r.generation
	r.timer = r.afterFunc(r.delay, func() { r.fireLongPress(gen) })
}

// Move marks the press as a swipe once it travels past the threshold.
func (r *Recognizer) Move(p geometry.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.down || r.swiping || r.longPressed {
		return
	}
	if geometry.Exceeds(r.start, p, r.threshold) {
		r.swiping = true
		r.stopTimerLocked()
	}
}

// Up ends the press at p and performs a swipe (start to p), a tap at p, or
// nothing when the long press already fired or no press was in progress.
func (r *Recognizer) Up(ctx context.Context, p geometry.Point) (Kind, error) {
	r.mu.Lock()
	if !r.down {
		r.mu.Unlock()
		return KindNone, nil
	}
	start, swiping, longPressed := r.start, r.swiping, r.longPressed
	r.resetLocked()
	r.mu.Unlock()

	switch {
	case longPressed:
		return KindNone, nil
	case swiping:
		return KindSwipe, r.performer.Swipe(ctx, start.X, start.Y, p.X, p.Y)
	default:
		return KindTap, r.performer.Tap(ctx, p.X, p.Y)
	}
}

// Leave cancels any press in progress without performing anything.
func (r *Recognizer) Leave() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

// Pressed reports whether a press is in progress.
func (r *Recognizer) Pressed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.down
}

func (r *Recognizer) fireLongPress(gen uint64) {
	r.mu.Lock()
	if gen != r.generation || !r.down || r.swiping || r.longPressed {
		r.mu.Unlock()
		return
	}
	r.longPressed = true
	r.timer = nil
	start := r.start
	r.mu.Unlock()

	err := r.performer.LongPress(context.Background(), start.X, start.Y, 0)
	if err != nil {
		r.logger.Warn("long press failed", zap.Float64("x", start.X), zap.Float64("y", start.Y), zap.Error(err))
	}
	if r.onFire != nil {
		r.onFire(KindLongPress, err)
	}
}

func (r *Recognizer) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Recognizer) resetLocked() {
	r.stopTimerLocked()
	r.generation++
	r.down = false
	r.swiping = false
	r.longPressed = false
	r.start = geometry.Point{}
}
