package model

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HashChange is an element matched by content hash whose mutable
// properties differ between two reads.
type HashChange struct {
	ID      int                  `yaml:"id"             json:"id"`
	Role    string               `yaml:"role,omitempty" json:"role,omitempty"`
	Name    string               `yaml:"name,omitempty" json:"name,omitempty"`
	Changes map[string][2]string `yaml:"changes"        json:"changes"`
}

// TreeDiff is the result of comparing two reads by content hash.
type TreeDiff struct {
	Added          []FlatElement `yaml:"added,omitempty"   json:"added,omitempty"`
	Removed        []FlatElement `yaml:"removed,omitempty" json:"removed,omitempty"`
	Changed        []HashChange  `yaml:"changed,omitempty" json:"changed,omitempty"`
	UnchangedCount int           `yaml:"unchanged_count"   json:"unchanged_count"`
}

// ElementHash is a stable identity for an element built from its type,
// identifier, label and role breadcrumb. Value and bounds are left out so a
// text field being typed into or a cell scrolling still matches.
func ElementHash(el FlatElement) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", el.Type, el.Name, el.Label, el.Path)
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// DiffElementsByHash compares two reads matching elements by ElementHash
// instead of xpath, so inserting a sibling does not report every later
// sibling as changed.
func DiffElementsByHash(prev, curr []FlatElement) TreeDiff {
	prevByHash := make(map[string]FlatElement, len(prev))
	for _, el := range prev {
		prevByHash[ElementHash(el)] = el
	}
	currByHash := make(map[string]FlatElement, len(curr))
	for _, el := range curr {
		currByHash[ElementHash(el)] = el
	}

	var diff TreeDiff
	for _, el := range curr {
		prevEl, existed := prevByHash[ElementHash(el)]
		if !existed {
			diff.Added = append(diff.Added, el)
			continue
		}
		if changes := diffMutable(prevEl, el); len(changes) > 0 {
			diff.Changed = append(diff.Changed, HashChange{ID: el.ID, Role: el.Role, Name: el.Name, Changes: changes})
		} else {
			diff.UnchangedCount++
		}
	}
	for _, el := range prev {
		if _, exists := currByHash[ElementHash(el)]; !exists {
			diff.Removed = append(diff.Removed, el)
		}
	}
	return diff
}

// diffMutable compares the properties ElementHash leaves out.
func diffMutable(prev, curr FlatElement) map[string][2]string {
	diffs := make(map[string][2]string)
	if prev.Value != curr.Value {
		diffs["value"] = [2]string{prev.Value, curr.Value}
	}
	if boundsString(prev) != boundsString(curr) {
		diffs["bounds"] = [2]string{boundsString(prev), boundsString(curr)}
	}
	if len(diffs) == 0 {
		return nil
	}
	return diffs
}

// snapshotPrefix is the filename prefix for saved snapshots.
const snapshotPrefix = "wdadash-snapshot-"

func snapshotKey(key string) string {
	return strings.NewReplacer("/", "_", " ", "_", ":", "_").Replace(key)
}

// SnapshotPath is where SaveSnapshot writes the read of key taken at ts.
func SnapshotPath(dir, key string, ts int64) string {
	return filepath.Join(dir, fmt.Sprintf("%s%s-%d.json", snapshotPrefix, snapshotKey(key), ts))
}

// SaveSnapshot writes a flat element list for later diffing. key names the
// device, typically its udid.
func SaveSnapshot(dir, key string, ts int64, elements []FlatElement) error {
	data, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return os.WriteFile(SnapshotPath(dir, key, ts), data, 0o644)
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func LoadSnapshot(dir, key string, ts int64) ([]FlatElement, error) {
	data, err := os.ReadFile(SnapshotPath(dir, key, ts))
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var elements []FlatElement
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return elements, nil
}

// CleanSnapshots removes snapshots of key older than maxAge and returns how
// many were removed.
func CleanSnapshots(dir, key string, maxAge time.Duration) int {
	prefix := snapshotPrefix + snapshotKey(key) + "-"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(dir, entry.Name())) == nil {
			removed++
		}
	}
	return removed
}
