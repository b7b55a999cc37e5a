package device

import (
	"context"
	"fmt"
	"time"

	"github.com/mj1618/wdadash/internal/wda"
)

// RunnerPhrase is spoken to Siri to bring the WDA runner to the foreground.
// iOS only lets the foreground app touch the pasteboard.
const RunnerPhrase = "open WebDriverAgentRunner-Runner"

// DefaultPasteboardDelay is how long to wait for the runner to come up.
const DefaultPasteboardDelay = 3 * time.Second

// PasteboardClient is the WDA surface the pasteboard round trip needs.
type PasteboardClient interface {
	ActiveAppInfo(ctx context.Context) (*wda.AppInfo, error)
	SiriActivate(ctx context.Context, text string) error
	GetPasteboard(ctx context.Context) (string, error)
	SetPasteboard(ctx context.Context, content, contentType string) error
	AppsActivate(ctx context.Context, bundleID string) error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the production Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pasteboard reads and writes the device pasteboard by switching to the WDA
// runner and back.
type Pasteboard struct {
	Client PasteboardClient
	Delay  time.Duration
	Sleep  Sleeper
}

// Read returns the pasteboard text.
func (p *Pasteboard) Read(ctx context.Context) (string, error) {
	var text string
	err := p.withRunner(ctx, func(ctx context.Context) error {
		var err error
		text, err = p.Client.GetPasteboard(ctx)
		return err
	})
	return text, err
}

// Write replaces the pasteboard with text.
func (p *Pasteboard) Write(ctx context.Context, text string) error {
	return p.withRunner(ctx, func(ctx context.Context) error {
		return p.Client.SetPasteboard(ctx, text, "plaintext")
	})
}

// withRunner remembers the foreground app, opens the runner, runs fn and
// re-activates the remembered app even when fn fails.
func (p *Pasteboard) withRunner(ctx context.Context, fn func(context.Context) error) error {
	info, err := p.Client.ActiveAppInfo(ctx)
	if err != nil {
		return fmt.Errorf("read active app: %w", err)
	}
	if err := p.Client.SiriActivate(ctx, RunnerPhrase); err != nil {
		return fmt.Errorf("open runner: %w", err)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	if err := sleep(ctx, p.Delay); err != nil {
		return err
	}

	opErr := fn(ctx)

	if info.BundleID != "" {
		if err := p.Client.AppsActivate(ctx, info.BundleID); err != nil && opErr == nil {
			return fmt.Errorf("reactivate %s: %w", info.BundleID, err)
		}
	}
	return opErr
}
