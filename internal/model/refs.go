package model

import (
	"fmt"
	"regexp"
	"strings"
)

// slugRe matches characters that are not lowercase alphanumeric or hyphens.
var slugRe = regexp.MustCompile(`[^a-z0-9-]+`)

// slugify lowercases s and joins its words with single hyphens, capped at
// 40 characters.
func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugRe.ReplaceAllString(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = strings.TrimRight(s[:40], "-")
	}
	return s
}

// refLabel is the stable text of an element: its label, else its
// accessibility identifier. Value is left out since it changes as the user
// types or drags.
func refLabel(el Element) string {
	if l := el.Detail[AttrLabel]; l != "" {
		return l
	}
	return el.Detail[AttrName]
}

// landmarkRoles always extend the ref path of their descendants.
var landmarkRoles = map[string]bool{
	"toolbar":  true,
	"tab":      true,
	"list":     true,
	"alert":    true,
	"keyboard": true,
}

// skippedRoles never contribute a path segment.
var skippedRoles = map[string]bool{
	"app":    true,
	"window": true,
	"scroll": true,
	"web":    true,
}

// refRoles get a ref when they carry a label.
var refRoles = map[string]bool{
	"btn":    true,
	"lnk":    true,
	"input":  true,
	"toggle": true,
	"slider": true,
	"picker": true,
	"cell":   true,
	"key":    true,
	"txt":    true,
	"img":    true,
}

func isLandmark(el Element) bool {
	role := Role(el)
	if skippedRoles[role] {
		return false
	}
	if landmarkRoles[role] {
		return true
	}
	// Labeled containers group their contents.
	return role == "other" && refLabel(el) != "" && len(el.Children) > 0
}

func refSegment(el Element) string {
	if slug := slugify(refLabel(el)); slug != "" {
		return slug
	}
	return Role(el)
}

func joinRef(parent, seg string) string {
	if parent == "" {
		return seg
	}
	return parent + "/" + seg
}

// GenerateRefs returns stable path-based refs such as "general-nav/back" or
// "alert/allow", keyed by element ID. Refs survive re-reads as long as the
// labels along the path do not change, unlike IDs and positional xpaths.
// Only labeled leaf-like elements (buttons, text, inputs, cells and so on)
// get refs; landmarks such as navigation bars, tables and labeled groups
// contribute path segments. Duplicates get ".1", ".2" suffixes in document
// order.
func GenerateRefs(elements []Element) map[int]string {
	refs := make(map[int]string)
	var order []int
	generateRefs(elements, "", refs, &order)

	byRef := make(map[string][]int, len(order))
	for _, id := range order {
		byRef[refs[id]] = append(byRef[refs[id]], id)
	}
	for ref, ids := range byRef {
		if len(ids) < 2 {
			continue
		}
		for i, id := range ids {
			refs[id] = fmt.Sprintf("%s.%d", ref, i+1)
		}
	}
	return refs
}

func generateRefs(elements []Element, parentPath string, refs map[int]string, order *[]int) {
	for i := range elements {
		el := elements[i]
		childPath := parentPath
		if isLandmark(el) {
			childPath = joinRef(parentPath, refSegment(el))
		}
		if refRoles[Role(el)] && refLabel(el) != "" {
			refs[el.ID] = joinRef(parentPath, refSegment(el))
			*order = append(*order, el.ID)
		}
		generateRefs(el.Children, childPath, refs, order)
	}
}

// FindByRef resolves a ref produced by GenerateRefs. An exact match wins;
// otherwise a unique ref ending in "/"+ref is accepted, so "back" finds
// "general-nav/back" when nothing else ends that way.
func FindByRef(elements []Element, ref string) (*Element, error) {
	refs := GenerateRefs(elements)
	for id, r := range refs {
		if r == ref {
			return FindByID(elements, id), nil
		}
	}

	var matches []int
	for id, r := range refs {
		if strings.HasSuffix(r, "/"+ref) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no element matches ref %q", ref)
	case 1:
		return FindByID(elements, matches[0]), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "multiple elements match ref %q:", ref)
	for _, el := range FlattenElements(elements) {
		for _, id := range matches {
			if el.ID == id {
				fmt.Fprintf(&b, "\n  ref=%q id=%d %s", el.Ref, el.ID, el.Role)
			}
		}
	}
	return nil, fmt.Errorf("%s", b.String())
}
