package model

import (
	"strings"
	"testing"
)

const refsSource = `<XCUIElementTypeApplication type="XCUIElementTypeApplication" name="Settings" label="Settings">
  <XCUIElementTypeWindow type="XCUIElementTypeWindow">
    <XCUIElementTypeNavigationBar type="XCUIElementTypeNavigationBar" name="General">
      <XCUIElementTypeButton type="XCUIElementTypeButton" name="Back" label="Settings"/>
    </XCUIElementTypeNavigationBar>
    <XCUIElementTypeTable type="XCUIElementTypeTable">
      <XCUIElementTypeCell type="XCUIElementTypeCell" label="About"/>
      <XCUIElementTypeCell type="XCUIElementTypeCell" label="Software Update!"/>
      <XCUIElementTypeOther type="XCUIElementTypeOther"/>
      <XCUIElementTypeStaticText type="XCUIElementTypeStaticText" label="About"/>
    </XCUIElementTypeTable>
    <XCUIElementTypeButton type="XCUIElementTypeButton" name="Done"/>
  </XCUIElementTypeWindow>
</XCUIElementTypeApplication>`

func parseRefsSource(t *testing.T) []Element {
	t.Helper()
	tree, err := ParseXML(refsSource)
	if err != nil {
		t.Fatalf("ParseXML: %v", err)
	}
	return tree
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Software Update!":      "software-update",
		"  Wi-Fi  ":             "wi-fi",
		"":                      "",
		"Ünïcode only":          "n-code-only",
		strings.Repeat("a", 50): strings.Repeat("a", 40),
	}
	for in, want := range tests {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateRefs(t *testing.T) {
	tree := parseRefsSource(t)
	refs := GenerateRefs(tree)

	want := map[int]string{
		4:  "general/settings",
		6:  "list/about.1",
		7:  "list/software-update",
		9:  "list/about.2",
		10: "done",
	}
	for id, ref := range want {
		if refs[id] != ref {
			t.Errorf("ref of %d = %q, want %q (all: %v)", id, refs[id], ref, refs)
		}
	}
	if len(refs) != len(want) {
		t.Errorf("got %d refs, want %d: %v", len(refs), len(want), refs)
	}
}

func TestFindByRef(t *testing.T) {
	tree := parseRefsSource(t)

	el, err := FindByRef(tree, "general/settings")
	if err != nil || el.ID != 4 {
		t.Fatalf("exact match: %v %v", el, err)
	}
	el, err = FindByRef(tree, "software-update")
	if err != nil || el.ID != 7 {
		t.Fatalf("suffix match: %v %v", el, err)
	}
	if _, err := FindByRef(tree, "missing"); err == nil {
		t.Error("expected error for unknown ref")
	}
}

func TestFindByRef_AmbiguousSuffix(t *testing.T) {
	tree, err := ParseXML(`<App>
  <XCUIElementTypeNavigationBar type="XCUIElementTypeNavigationBar" name="A">
    <XCUIElementTypeButton type="XCUIElementTypeButton" name="Save"/>
  </XCUIElementTypeNavigationBar>
  <XCUIElementTypeToolbar type="XCUIElementTypeToolbar" name="B">
    <XCUIElementTypeButton type="XCUIElementTypeButton" name="Save"/>
  </XCUIElementTypeToolbar>
</App>`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = FindByRef(tree, "save")
	if err == nil || !strings.Contains(err.Error(), `ref="a/save"`) || !strings.Contains(err.Error(), `ref="b/save"`) {
		t.Errorf("expected ambiguity listing both refs, got %v", err)
	}
}

func TestFlattenElements_CarriesRefs(t *testing.T) {
	flat := FlattenElements(parseRefsSource(t))
	for _, el := range flat {
		if el.ID == 7 && el.Ref != "list/software-update" {
			t.Errorf("flat ref = %q", el.Ref)
		}
		if el.ID == 1 && el.Ref != "" {
			t.Errorf("app should have no ref, got %q", el.Ref)
		}
	}
}
