// Package prefs persists the dashboard layout preferences.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Splitter orientations.
const (
	Horizontal = "horizontal"
	Vertical   = "vertical"
)

// Layout is the remembered arrangement of the device page.
type Layout struct {
	SplitterSizes  []string `yaml:"splitterSizes"  json:"splitterSizes"`
	SplitterLayout string   `yaml:"splitterLayout" json:"splitterLayout"`
	TabKey         string   `yaml:"tabKey"         json:"tabKey"`
}

// Default returns the layout used when nothing was saved.
func Default() Layout {
	return Layout{
		SplitterSizes:  []string{"30%", "70%"},
		SplitterLayout: Horizontal,
		TabKey:         "apps",
	}
}

// Validate checks a layout before it is stored.
func (l Layout) Validate() error {
	if len(l.SplitterSizes) != 2 {
		return fmt.Errorf("splitterSizes needs 2 entries, got %d", len(l.SplitterSizes))
	}
	for _, s := range l.SplitterSizes {
		if s == "" {
			return errors.New("splitterSizes entries must not be empty")
		}
	}
	if l.SplitterLayout != Horizontal && l.SplitterLayout != Vertical {
		return fmt.Errorf("splitterLayout must be %q or %q, got %q", Horizontal, Vertical, l.SplitterLayout)
	}
	if l.TabKey == "" {
		return errors.New("tabKey must not be empty")
	}
	return nil
}

// withDefaults fills missing fields from Default.
func (l Layout) withDefaults() Layout {
	d := Default()
	if len(l.SplitterSizes) == 0 {
		l.SplitterSizes = d.SplitterSizes
	}
	if l.SplitterLayout == "" {
		l.SplitterLayout = d.SplitterLayout
	}
	if l.TabKey == "" {
		l.TabKey = d.TabKey
	}
	return l
}

// Store is a YAML-file-backed Layout. It is safe for concurrent use.
type Store struct {
	path string

	mu     sync.Mutex
	layout Layout
}

// Open loads the store at path. A missing file yields the defaults.
func Open(path string) (*Store, error) {
	s := &Store{path: path, layout: Default()}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", path, err)
	}
	l = l.withDefaults()
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("prefs %s: %w", path, err)
	}
	s.layout = l
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current layout.
func (s *Store) Get() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Set validates and persists a whole layout. Empty fields keep their defaults.
func (s *Store) Set(l Layout) (Layout, error) {
	return s.Update(func(cur *Layout) { *cur = l.withDefaults() })
}

// SetSizes persists new splitter sizes.
func (s *Store) SetSizes(sizes []string) (Layout, error) {
	return s.Update(func(l *Layout) { l.SplitterSizes = append([]string(nil), sizes...) })
}

// SetTab persists the active tab.
func (s *Store) SetTab(key string) (Layout, error) {
	return s.Update(func(l *Layout) { l.TabKey = key })
}

// ToggleLayout flips between horizontal and vertical and persists the result.
func (s *Store) ToggleLayout() (Layout, error) {
	return s.Update(func(l *Layout) {
		if l.SplitterLayout == Vertical {
			l.SplitterLayout = Horizontal
		} else {
			l.SplitterLayout = Vertical
		}
	})
}

// Update applies fn to a copy of the layout and saves it when valid.
func (s *Store) Update(fn func(*Layout)) (Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.copyLocked()
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.copyLocked(), err
	}
	if err := s.save(next); err != nil {
		return s.copyLocked(), err
	}
	s.layout = next
	return s.copyLocked(), nil
}

func (s *Store) copyLocked() Layout {
	l := s.layout
	l.SplitterSizes = append([]string(nil), s.layout.SplitterSizes...)
	return l
}

// save writes through a temp file so a crash never leaves a torn file.
func (s *Store) save(l Layout) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}
