package model

import "strings"

// FilterByText filters elements to those whose name, label or value
// contains the given text (case-insensitive). Parents are kept when any
// descendant matches so the result is still a tree.
func FilterByText(elements []Element, text string) []Element {
	if text == "" {
		return elements
	}
	textLower := strings.ToLower(text)
	var result []Element
	for _, el := range elements {
		matched := textMatchesElement(el, textLower)
		childMatches := FilterByText(el.Children, text)

		if matched || len(childMatches) > 0 {
			filtered := el
			filtered.Children = childMatches
			result = append(result, filtered)
		}
	}
	return result
}

func textMatchesElement(el Element, textLower string) bool {
	return strings.Contains(strings.ToLower(el.Detail[AttrName]), textLower) ||
		strings.Contains(strings.ToLower(el.Detail[AttrLabel]), textLower) ||
		strings.Contains(strings.ToLower(el.Detail[AttrValue]), textLower)
}

// FilterByRoles keeps elements whose compact role is in roles. Elements
// that don't match but have matching descendants are replaced by those
// descendants.
func FilterByRoles(elements []Element, roles []string) []Element {
	if len(roles) == 0 {
		return elements
	}
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	return filterByRoleSet(elements, roleSet)
}

func filterByRoleSet(elements []Element, roleSet map[string]bool) []Element {
	var result []Element
	for _, el := range elements {
		filteredChildren := filterByRoleSet(el.Children, roleSet)
		if roleSet[Role(el)] {
			filtered := el
			filtered.Children = filteredChildren
			result = append(result, filtered)
		} else if len(filteredChildren) > 0 {
			result = append(result, filteredChildren...)
		}
	}
	return result
}

// isEmptyGroup returns true if the element is a structural "other" node
// with no name, label or value.
func isEmptyGroup(el Element) bool {
	return Role(el) == "other" &&
		el.Detail[AttrName] == "" && el.Detail[AttrLabel] == "" && el.Detail[AttrValue] == ""
}

// PruneEmptyGroups removes anonymous XCUIElementTypeOther nodes and
// promotes their children to the parent. IDs and xpaths are untouched so
// they still address the unpruned tree.
func PruneEmptyGroups(elements []Element) []Element {
	var result []Element
	for _, el := range elements {
		prunedChildren := PruneEmptyGroups(el.Children)

		if isEmptyGroup(el) {
			result = append(result, prunedChildren...)
		} else {
			pruned := el
			pruned.Children = prunedChildren
			result = append(result, pruned)
		}
	}
	return result
}

// VisibleOnly drops elements whose "visible" attribute is "false" along
// with their subtrees.
func VisibleOnly(elements []Element) []Element {
	var result []Element
	for _, el := range elements {
		if el.Detail["visible"] == "false" {
			continue
		}
		kept := el
		kept.Children = VisibleOnly(el.Children)
		result = append(result, kept)
	}
	return result
}
