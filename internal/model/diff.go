package model

import (
	"fmt"
	"time"
)

// ChangeType is the kind of tree change between two reads.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeChanged ChangeType = "changed"
)

// UIChange is a single change between two reads.
type UIChange struct {
	Type    ChangeType           `json:"type"`
	TS      int64                `json:"ts"`
	XPath   string               `json:"xpath"`
	Element *FlatElement         `json:"el,omitempty"`
	Role    string               `json:"role,omitempty"`
	Name    string               `json:"name,omitempty"`
	Changes map[string][2]string `json:"changes,omitempty"`
}

// DiffElements compares two flat element lists. Elements are matched by
// xpath since IDs are reassigned on every parse. Added and changed
// elements are reported in curr order, removed ones after them in prev
// order.
func DiffElements(prev, curr []FlatElement) []UIChange {
	prevMap := make(map[string]FlatElement, len(prev))
	for _, el := range prev {
		prevMap[el.XPath] = el
	}
	currMap := make(map[string]FlatElement, len(curr))
	for _, el := range curr {
		currMap[el.XPath] = el
	}

	var changes []UIChange
	now := time.Now().Unix()

	for _, el := range curr {
		prevEl, existed := prevMap[el.XPath]
		if !existed {
			elCopy := el
			changes = append(changes, UIChange{Type: ChangeAdded, TS: now, XPath: el.XPath, Element: &elCopy})
			continue
		}
		if diffs := diffProperties(prevEl, el); len(diffs) > 0 {
			changes = append(changes, UIChange{Type: ChangeChanged, TS: now, XPath: el.XPath, Changes: diffs})
		}
	}

	for _, el := range prev {
		if _, exists := currMap[el.XPath]; !exists {
			changes = append(changes, UIChange{Type: ChangeRemoved, TS: now, XPath: el.XPath, Role: el.Role, Name: el.Name})
		}
	}
	return changes
}

// diffProperties returns the changed fields as [old, new] pairs.
func diffProperties(prev, curr FlatElement) map[string][2]string {
	diffs := make(map[string][2]string)
	if prev.Name != curr.Name {
		diffs["name"] = [2]string{prev.Name, curr.Name}
	}
	if prev.Label != curr.Label {
		diffs["label"] = [2]string{prev.Label, curr.Label}
	}
	if prev.Value != curr.Value {
		diffs["value"] = [2]string{prev.Value, curr.Value}
	}
	if prev.Role != curr.Role {
		diffs["role"] = [2]string{prev.Role, curr.Role}
	}
	if boundsString(prev) != boundsString(curr) {
		diffs["bounds"] = [2]string{boundsString(prev), boundsString(curr)}
	}
	if len(diffs) == 0 {
		return nil
	}
	return diffs
}

func boundsString(el FlatElement) string {
	if el.Bounds == nil {
		return ""
	}
	b := el.Bounds
	return fmt.Sprintf("%d,%d,%d,%d", b.X, b.Y, b.Width, b.Height)
}
