package model

import "strings"

// RoleMap maps XCUIElementType names to compact role codes.
var RoleMap = map[string]string{
	"XCUIElementTypeApplication":      "app",
	"XCUIElementTypeWindow":           "window",
	"XCUIElementTypeButton":           "btn",
	"XCUIElementTypeStaticText":       "txt",
	"XCUIElementTypeLink":             "lnk",
	"XCUIElementTypeImage":            "img",
	"XCUIElementTypeIcon":             "img",
	"XCUIElementTypeTextField":        "input",
	"XCUIElementTypeSecureTextField":  "input",
	"XCUIElementTypeSearchField":      "input",
	"XCUIElementTypeTextView":         "input",
	"XCUIElementTypeSwitch":           "toggle",
	"XCUIElementTypeToggle":           "toggle",
	"XCUIElementTypeSlider":           "slider",
	"XCUIElementTypePicker":           "picker",
	"XCUIElementTypePickerWheel":      "picker",
	"XCUIElementTypeNavigationBar":    "toolbar",
	"XCUIElementTypeToolbar":          "toolbar",
	"XCUIElementTypeTabBar":           "tab",
	"XCUIElementTypeSegmentedControl": "tab",
	"XCUIElementTypeTable":            "list",
	"XCUIElementTypeCollectionView":   "list",
	"XCUIElementTypeCell":             "cell",
	"XCUIElementTypeScrollView":       "scroll",
	"XCUIElementTypeWebView":          "web",
	"XCUIElementTypeAlert":            "alert",
	"XCUIElementTypeSheet":            "alert",
	"XCUIElementTypeKey":              "key",
	"XCUIElementTypeKeyboard":         "keyboard",
	"XCUIElementTypeOther":            "other",
}

// MetaRoles maps meta-role names to the concrete roles they expand to.
var MetaRoles = map[string][]string{
	"interactive": {"btn", "lnk", "input", "toggle", "slider", "picker", "cell", "key"},
}

// ExpandRoles expands any meta-roles in the given list to their concrete roles.
// Non-meta roles are passed through unchanged. Duplicates are removed.
func ExpandRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	var expanded []string
	for _, r := range roles {
		if concrete, ok := MetaRoles[r]; ok {
			for _, c := range concrete {
				if !seen[c] {
					seen[c] = true
					expanded = append(expanded, c)
				}
			}
		} else if !seen[r] {
			seen[r] = true
			expanded = append(expanded, r)
		}
	}
	return expanded
}

// MapRole converts an element type to a compact code. Unknown
// XCUIElementType names fall back to their lowercased suffix.
func MapRole(elementType string) string {
	if short, ok := RoleMap[elementType]; ok {
		return short
	}
	if rest, ok := strings.CutPrefix(elementType, "XCUIElementType"); ok && rest != "" {
		return strings.ToLower(rest)
	}
	return "other"
}

// Role returns the compact role of an element, preferring its "type"
// attribute over the tag name.
func Role(el Element) string {
	if t := el.Detail[AttrType]; t != "" {
		return MapRole(t)
	}
	return MapRole(el.Label)
}
