package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/model"
	"github.com/spf13/cobra"
)

// ElementInfo is a compact representation of a single UI element, used in
// gesture and hit responses to report the target.
type ElementInfo struct {
	ID     int           `yaml:"id"               json:"id"`
	Role   string        `yaml:"role"             json:"role"`
	Type   string        `yaml:"type"             json:"type"`
	Name   string        `yaml:"name,omitempty"   json:"name,omitempty"`
	Label  string        `yaml:"label,omitempty"  json:"label,omitempty"`
	Value  string        `yaml:"value,omitempty"  json:"value,omitempty"`
	Bounds *geometry.Box `yaml:"bounds,omitempty" json:"bounds,omitempty"`
	XPath  string        `yaml:"xpath"            json:"xpath"`
}

// elementInfoFromElement converts an Element to a compact ElementInfo.
func elementInfoFromElement(el *model.Element) *ElementInfo {
	info := &ElementInfo{
		ID:    el.ID,
		Role:  model.Role(*el),
		Type:  el.Label,
		Name:  el.Detail[model.AttrName],
		Label: el.Detail[model.AttrLabel],
		Value: el.Detail[model.AttrValue],
		XPath: el.Detail.XPath(),
	}
	if box, ok := el.Detail.Box(); ok {
		info.Bounds = &box
	}
	return info
}

// elementCenter returns the logical center of an element's box.
func elementCenter(el *model.Element) (geometry.Point, error) {
	box, ok := el.Detail.Box()
	if !ok {
		return geometry.Point{}, fmt.Errorf("element %d has no bounds", el.ID)
	}
	return box.Center(), nil
}

// collectLeafMatches collects elements that directly match the text (case-insensitive
// substring on name/label/value), optionally filtered by role.
// It recurses into children but only returns the deepest (most specific) matches.
// If exact is true, only exact (case-insensitive) matches are used.
func collectLeafMatches(elements []model.Element, textLower string, roles map[string]bool, exact bool) []*model.Element {
	var results []*model.Element
	for i := range elements {
		el := &elements[i]

		childMatches := collectLeafMatches(el.Children, textLower, roles, exact)

		selfMatch := textMatchesElement(*el, textLower, exact) && (len(roles) == 0 || roles[model.Role(*el)])

		if selfMatch && len(childMatches) == 0 {
			results = append(results, el)
		} else {
			results = append(results, childMatches...)
		}
	}
	return results
}

func textMatchesElement(el model.Element, textLower string, exact bool) bool {
	fields := []string{el.Detail[model.AttrName], el.Detail[model.AttrLabel], el.Detail[model.AttrValue]}
	for _, f := range fields {
		if exact {
			if exactFieldMatch(f, textLower) {
				return true
			}
		} else if strings.Contains(strings.ToLower(f), textLower) {
			return true
		}
	}
	return false
}

// exactFieldMatch returns true if field matches text case-insensitively,
// either directly or after stripping a trailing parenthetical suffix like " (2)".
func exactFieldMatch(field, textLower string) bool {
	if strings.EqualFold(field, textLower) {
		return true
	}
	if idx := strings.LastIndex(field, "("); idx > 0 && strings.HasSuffix(field, ")") {
		return strings.EqualFold(strings.TrimRight(field[:idx], " "), textLower)
	}
	return false
}

// staticRoles are display-only roles that should be deprioritized when
// interactive elements also match the same text.
var staticRoles = map[string]bool{
	"app":    true,
	"window": true,
	"txt":    true,
	"img":    true,
	"other":  true,
}

// preferInteractiveElements filters matches to interactive (non-static)
// elements when the match set contains a mix of interactive and static roles.
func preferInteractiveElements(matches []*model.Element) []*model.Element {
	var interactive []*model.Element
	for _, m := range matches {
		if !staticRoles[model.Role(*m)] {
			interactive = append(interactive, m)
		}
	}
	if len(interactive) > 0 && len(interactive) < len(matches) {
		return interactive
	}
	return matches
}

// resolveElementByText finds a single element matching text (and an optional
// role filter) in the tree. Returns an error if zero or multiple elements
// match; the error for multiple matches lists the candidates so the caller
// can refine with --id, --exact or --roles.
//
// If scopeID > 0, only descendants of that element are searched.
func resolveElementByText(elements []model.Element, text, roles string, exact bool, scopeID int) (*model.Element, error) {
	searchScope := elements
	if scopeID > 0 {
		scopeEl := model.FindByID(elements, scopeID)
		if scopeEl == nil {
			return nil, fmt.Errorf("scope element with id %d not found", scopeID)
		}
		searchScope = scopeEl.Children
	}

	roleSet := make(map[string]bool)
	for _, r := range model.ExpandRoles(parseRoles(roles)) {
		roleSet[r] = true
	}

	matches := collectLeafMatches(searchScope, strings.ToLower(text), roleSet, exact)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no element found matching text %q", text)
	}
	if len(matches) == 1 {
		return matches[0], nil
	}

	// Prefer a btn over a txt that share the same label.
	if roles == "" {
		matches = preferInteractiveElements(matches)
		if len(matches) == 1 {
			return matches[0], nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "multiple elements match text %q", text)
	if roles != "" {
		fmt.Fprintf(&b, " with roles %q", roles)
	}
	fmt.Fprintf(&b, "; use --id, --exact, --roles or --scope-id to narrow:\n")
	for _, m := range matches {
		info := elementInfoFromElement(m)
		fmt.Fprintf(&b, "  id=%d %s", info.ID, info.Role)
		if info.Bounds != nil {
			fmt.Fprintf(&b, " (%d,%d,%d,%d)", info.Bounds.X, info.Bounds.Y, info.Bounds.Width, info.Bounds.Height)
		}
		if info.Name != "" {
			fmt.Fprintf(&b, " name=%q", info.Name)
		}
		if path := findRolePathToID(elements, m.ID); path != "" {
			fmt.Fprintf(&b, " path=%q", path)
		}
		fmt.Fprintln(&b)
	}
	return nil, fmt.Errorf("%s", strings.TrimRight(b.String(), "\n"))
}

// findRolePathToID returns the role-based path from root to the element with
// the given ID, e.g. "app > window > list > cell > txt".
// Returns "" if the element is not found.
func findRolePathToID(elements []model.Element, targetID int) string {
	return rolePath(elements, model.PathToID(elements, targetID))
}

// parseRoles splits a comma-separated role list.
func parseRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// parseID parses a positive element ID argument.
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid element id %q: must be a positive integer", s)
	}
	return id, nil
}

// parseFloats parses positional coordinate arguments.
func parseFloats(args []string) ([]float64, error) {
	vals := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: must be a number", a)
		}
		vals[i] = v
	}
	return vals, nil
}

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		// Handle numeric values that YAML may parse as int/float
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

func intParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return defaultVal
}

// floatParam reads a number; ok is false when the key is absent or not numeric.
func floatParam(params map[string]interface{}, key string) (float64, bool) {
	switch n := params[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		v, err := strconv.ParseFloat(n, 64)
		return v, err == nil
	}
	return 0, false
}

func boolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// addTextTargetingFlags adds --text, --ref, --roles, --exact and --scope-id
// flags to a command for element targeting.
func addTextTargetingFlags(cmd *cobra.Command, textFlagName string, textHelp string) {
	cmd.Flags().String(textFlagName, "", textHelp)
	cmd.Flags().String("ref", "", "Find element by stable ref (see source --flat), suffix match allowed")
	cmd.Flags().String("roles", "", "Filter by role when using text targeting (e.g. \"btn\", \"btn,cell\")")
	cmd.Flags().Bool("exact", false, "Require exact match on name/label/value (default: substring)")
	cmd.Flags().Int("scope-id", 0, "Limit text search to descendants of this element ID")
}

// textTargetParams copies the text-targeting flags into a step params map.
func textTargetParams(cmd *cobra.Command, textFlagName string, params map[string]interface{}) {
	if v, _ := cmd.Flags().GetString(textFlagName); v != "" {
		params["text"] = v
	}
	if v, _ := cmd.Flags().GetString("ref"); v != "" {
		params["ref"] = v
	}
	if v, _ := cmd.Flags().GetString("roles"); v != "" {
		params["roles"] = v
	}
	if v, _ := cmd.Flags().GetBool("exact"); v {
		params["exact"] = true
	}
	if v, _ := cmd.Flags().GetInt("scope-id"); v > 0 {
		params["scope-id"] = v
	}
}
