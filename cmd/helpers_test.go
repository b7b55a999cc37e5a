package cmd

import (
	"strings"
	"testing"

	"github.com/mj1618/wdadash/internal/model"
)

func el(id int, typ string, name, label string, children ...model.Element) model.Element {
	d := model.Detail{model.AttrType: typ}
	if name != "" {
		d[model.AttrName] = name
	}
	if label != "" {
		d[model.AttrLabel] = label
	}
	return model.Element{ID: id, Label: typ, Detail: d, Children: children}
}

func withBox(e model.Element, x, y, w, h string) model.Element {
	e.Detail[model.AttrX] = x
	e.Detail[model.AttrY] = y
	e.Detail[model.AttrWidth] = w
	e.Detail[model.AttrHeight] = h
	return e
}

// buildSettingsTree creates a Settings screen where "General" appears both
// as a navigation title and as a row, and a search field sits in a sheet.
//
//	app (id=1)
//	└── window (id=2)
//	    ├── navbar (id=3) "Settings"
//	    │   └── txt (id=4) "General"
//	    ├── table (id=5)
//	    │   ├── cell (id=6) "General"
//	    │   └── cell (id=7) "General (2)"
//	    └── sheet (id=8)
//	        ├── input (id=9) "Search"
//	        └── btn (id=10) "Search Settings"
func buildSettingsTree() []model.Element {
	return []model.Element{
		el(1, "XCUIElementTypeApplication", "Settings", "Settings",
			el(2, "XCUIElementTypeWindow", "", "",
				el(3, "XCUIElementTypeNavigationBar", "Settings", "",
					el(4, "XCUIElementTypeStaticText", "", "General"),
				),
				el(5, "XCUIElementTypeTable", "", "",
					withBox(el(6, "XCUIElementTypeCell", "general", "General"), "0", "100", "390", "44"),
					withBox(el(7, "XCUIElementTypeCell", "", "General (2)"), "0", "144", "390", "44"),
				),
				el(8, "XCUIElementTypeSheet", "", "",
					el(9, "XCUIElementTypeSearchField", "", "Search"),
					el(10, "XCUIElementTypeButton", "", "Search Settings"),
				),
			),
		),
	}
}

func TestCollectLeafMatches_Substring(t *testing.T) {
	matches := collectLeafMatches(buildSettingsTree(), "general", nil, false)
	// txt id=4, cell id=6, cell id=7; the app only matches through descendants
	if len(matches) != 3 {
		t.Fatalf("expected 3 substring matches, got %d", len(matches))
	}
}

func TestCollectLeafMatches_Exact(t *testing.T) {
	matches := collectLeafMatches(buildSettingsTree(), "search", nil, true)
	if len(matches) != 1 {
		t.Fatalf("expected 1 exact match, got %d", len(matches))
	}
	if matches[0].ID != 9 {
		t.Fatalf("expected match id=9, got id=%d", matches[0].ID)
	}
}

func TestCollectLeafMatches_ExactStripsParenthetical(t *testing.T) {
	matches := collectLeafMatches(buildSettingsTree(), "general", map[string]bool{"cell": true}, true)
	if len(matches) != 2 {
		t.Fatalf("expected cells 6 and 7, got %d matches", len(matches))
	}
}

func TestCollectLeafMatches_Role(t *testing.T) {
	matches := collectLeafMatches(buildSettingsTree(), "search", map[string]bool{"btn": true}, false)
	if len(matches) != 1 || matches[0].ID != 10 {
		t.Fatalf("expected button id=10, got %v", matches)
	}
}

func TestCollectLeafMatches_ParentNotReturnedWhenChildMatches(t *testing.T) {
	matches := collectLeafMatches(buildSettingsTree(), "settings", nil, false)
	for _, m := range matches {
		if m.ID == 1 {
			t.Fatal("app should not be returned when a descendant matches")
		}
	}
}

func TestPreferInteractiveElements(t *testing.T) {
	tree := buildSettingsTree()
	txt := model.FindByID(tree, 4)
	cell := model.FindByID(tree, 6)
	got := preferInteractiveElements([]*model.Element{txt, cell})
	if len(got) != 1 || got[0].ID != 6 {
		t.Fatalf("expected only the cell, got %d elements", len(got))
	}

	// All static: nothing is dropped.
	got = preferInteractiveElements([]*model.Element{txt})
	if len(got) != 1 {
		t.Fatalf("expected the static match to survive, got %d", len(got))
	}
}

func TestResolveElementByText_Unique(t *testing.T) {
	got, err := resolveElementByText(buildSettingsTree(), "Search Settings", "", false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 10 {
		t.Fatalf("expected id=10, got id=%d", got.ID)
	}
}

func TestResolveElementByText_AmbiguousListsCandidates(t *testing.T) {
	_, err := resolveElementByText(buildSettingsTree(), "general", "", false, 0)
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "multiple elements match") {
		t.Errorf("unexpected message: %s", msg)
	}
	// The static title is dropped in favour of the interactive cells.
	if strings.Contains(msg, "id=4 ") {
		t.Errorf("static txt should be filtered out: %s", msg)
	}
	if !strings.Contains(msg, "id=6 cell (0,100,390,44)") {
		t.Errorf("expected cell 6 with bounds in candidates: %s", msg)
	}
	if !strings.Contains(msg, `path="app > window > list > cell"`) {
		t.Errorf("expected role path in candidates: %s", msg)
	}
}

func TestResolveElementByText_ExactNarrows(t *testing.T) {
	got, err := resolveElementByText(buildSettingsTree(), "general", "cell", true, 0)
	if err == nil {
		t.Fatalf("expected ambiguity between cells, got id=%d", got.ID)
	}
	got, err = resolveElementByText(buildSettingsTree(), "general (2)", "", true, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 7 {
		t.Fatalf("expected id=7, got id=%d", got.ID)
	}
}

func TestResolveElementByText_Scope(t *testing.T) {
	got, err := resolveElementByText(buildSettingsTree(), "general", "", false, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 4 {
		t.Fatalf("expected id=4 inside navbar, got id=%d", got.ID)
	}

	if _, err := resolveElementByText(buildSettingsTree(), "general", "", false, 99); err == nil {
		t.Fatal("expected error for unknown scope id")
	}
}

func TestResolveElementByText_InteractiveMetaRole(t *testing.T) {
	got, err := resolveElementByText(buildSettingsTree(), "search", "interactive", true, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 9 {
		t.Fatalf("expected input id=9, got id=%d", got.ID)
	}
}

func TestResolveElementByText_NoMatch(t *testing.T) {
	_, err := resolveElementByText(buildSettingsTree(), "bluetooth", "", false, 0)
	if err == nil || !strings.Contains(err.Error(), "no element found") {
		t.Fatalf("expected no-match error, got %v", err)
	}
}

func TestFindRolePathToID(t *testing.T) {
	tree := buildSettingsTree()
	if got := findRolePathToID(tree, 9); got != "app > window > alert > input" {
		t.Errorf("got %q", got)
	}
	if got := findRolePathToID(tree, 42); got != "" {
		t.Errorf("expected empty path for missing id, got %q", got)
	}
}

func TestElementCenter(t *testing.T) {
	tree := buildSettingsTree()
	p, err := elementCenter(model.FindByID(tree, 6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.X != 195 || p.Y != 122 {
		t.Errorf("expected (195,122), got (%v,%v)", p.X, p.Y)
	}
	if _, err := elementCenter(model.FindByID(tree, 9)); err == nil {
		t.Error("expected error for element without bounds")
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("12"); err != nil || id != 12 {
		t.Errorf("parseID(12) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "abc", ""} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
}

func TestParseRoles(t *testing.T) {
	got := parseRoles(" btn, ,cell ")
	if len(got) != 2 || got[0] != "btn" || got[1] != "cell" {
		t.Errorf("parseRoles = %v", got)
	}
	if parseRoles("") != nil {
		t.Error("expected nil for empty roles")
	}
}

func TestParams(t *testing.T) {
	params := map[string]interface{}{
		"s":   "text",
		"n":   3,
		"f":   1.5,
		"fs":  "2.5",
		"b":   true,
		"num": 42,
	}
	if got := stringParam(params, "num", ""); got != "42" {
		t.Errorf("stringParam numeric = %q", got)
	}
	if got := stringParam(params, "missing", "d"); got != "d" {
		t.Errorf("stringParam default = %q", got)
	}
	if got := intParam(params, "f", 0); got != 1 {
		t.Errorf("intParam float = %d", got)
	}
	if v, ok := floatParam(params, "fs"); !ok || v != 2.5 {
		t.Errorf("floatParam string = %v, %v", v, ok)
	}
	if _, ok := floatParam(params, "b"); ok {
		t.Error("floatParam should reject bool")
	}
	if !boolParam(params, "b", false) || boolParam(params, "s", false) {
		t.Error("boolParam mismatch")
	}
}
