package model

import "github.com/mj1618/wdadash/internal/geometry"

// FlatElement is an element with a path breadcrumb instead of children.
type FlatElement struct {
	ID     int           `yaml:"id"              json:"id"`
	Role   string        `yaml:"role"            json:"role"`
	Type   string        `yaml:"type"            json:"type"`
	Name   string        `yaml:"name,omitempty"  json:"name,omitempty"`
	Label  string        `yaml:"label,omitempty" json:"label,omitempty"`
	Value  string        `yaml:"value,omitempty" json:"value,omitempty"`
	Bounds *geometry.Box `yaml:"bounds,omitempty" json:"bounds,omitempty"`
	XPath  string        `yaml:"xpath"           json:"xpath"`
	Ref    string        `yaml:"ref,omitempty"   json:"ref,omitempty"`
	Path   string        `yaml:"path"            json:"path"`
}

// FlattenElements converts a tree of elements into a flat list in document
// order. Each element gets a path string of compact roles joined with " > "
// and, where it has one, its ref from GenerateRefs.
func FlattenElements(elements []Element) []FlatElement {
	var result []FlatElement
	refs := GenerateRefs(elements)
	for _, el := range elements {
		flattenRecursive(el, "", refs, &result)
	}
	return result
}

func flattenRecursive(el Element, parentPath string, refs map[int]string, result *[]FlatElement) {
	role := Role(el)
	currentPath := role
	if parentPath != "" {
		currentPath = parentPath + " > " + role
	}

	flat := FlatElement{
		ID:    el.ID,
		Role:  role,
		Type:  el.Label,
		Name:  el.Detail[AttrName],
		Label: el.Detail[AttrLabel],
		Value: el.Detail[AttrValue],
		XPath: el.Detail.XPath(),
		Ref:   refs[el.ID],
		Path:  currentPath,
	}
	if box, ok := el.Detail.Box(); ok {
		flat.Bounds = &box
	}
	*result = append(*result, flat)

	for _, child := range el.Children {
		flattenRecursive(child, currentPath, refs, result)
	}
}
