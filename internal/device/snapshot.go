// Package device holds per-device state shared by the dashboard and the MCP
// tools: WDA clients, gesture recognizers, cached accessibility snapshots and
// the pasteboard round trip through the WDA runner.
package device

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/wda"
)

// Snapshot is a parsed accessibility tree together with the logical screen
// size it was captured at.
type Snapshot struct {
	Elements  []model.Element `yaml:"elements" json:"elements"`
	Size      geometry.Size   `yaml:"size"     json:"size"`
	FetchedAt time.Time       `yaml:"fetched"  json:"fetched"`
}

// Hit is the result of hit testing a snapshot.
type Hit struct {
	Point   geometry.Point `yaml:"point"           json:"point"`
	Element *model.Element `yaml:"element"         json:"element"`
	Path    []int          `yaml:"path,omitempty"  json:"path,omitempty"`
}

// Capture reads the page source and the window size concurrently and
// parses the tree. A malformed source yields an empty tree, not an error.
func Capture(ctx context.Context, c *wda.Client, logger *zap.Logger) (*Snapshot, error) {
	var (
		source string
		size   *wda.WindowSize
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		source, err = c.Source(gctx)
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		size, err = c.WindowSize(gctx)
		if err != nil {
			return fmt.Errorf("read window size: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Snapshot{
		Elements:  model.ParseSource(source, logger),
		Size:      geometry.Size{Width: size.Width, Height: size.Height},
		FetchedAt: time.Now(),
	}, nil
}

// Count returns the number of elements in the snapshot.
func (s *Snapshot) Count() int { return model.Count(s.Elements) }

// HitAt returns the innermost element under a logical point along with the
// ids of its ancestors. Element is nil when nothing contains the point.
func (s *Snapshot) HitAt(p geometry.Point) Hit {
	hit := Hit{Point: p}
	el := model.ElementAt(s.Elements, p.X, p.Y)
	if el == nil {
		return hit
	}
	hit.Element = el
	hit.Path = model.PathToID(s.Elements, el.ID)
	return hit
}

// Find returns the element with the given id, or nil.
func (s *Snapshot) Find(id int) *model.Element { return model.FindByID(s.Elements, id) }
