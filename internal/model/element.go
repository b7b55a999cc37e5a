package model

import "github.com/mj1618/wdadash/internal/geometry"

// Well-known attribute keys in an element's detail bag.
const (
	AttrXPath  = "xpath"
	AttrType   = "type"
	AttrName   = "name"
	AttrLabel  = "label"
	AttrValue  = "value"
	AttrX      = "x"
	AttrY      = "y"
	AttrWidth  = "width"
	AttrHeight = "height"
)

// Detail is the attribute bag of an element: every XML attribute copied
// verbatim, plus the computed xpath.
type Detail map[string]string

// XPath returns the synthetic locator computed during parsing.
func (d Detail) XPath() string { return d[AttrXPath] }

// Name returns the accessibility identifier (the "name" attribute).
func (d Detail) Name() string { return d[AttrName] }

// Box parses the logical bounding box from the x/y/width/height attributes.
func (d Detail) Box() (geometry.Box, bool) { return geometry.ParseBox(d) }

// Element represents a UI element in the accessibility tree.
type Element struct {
	ID       int       `yaml:"id"                 json:"id"`     // Sequential per parse, starting at 1
	Label    string    `yaml:"label"              json:"label"`  // XML tag name, e.g. XCUIElementTypeButton
	Detail   Detail    `yaml:"detail"             json:"detail"` // Attributes + xpath
	Children []Element `yaml:"children,omitempty" json:"children,omitempty"`
}

// FindByID searches the tree recursively for the element with the given ID.
func FindByID(elements []Element, id int) *Element {
	for i := range elements {
		if elements[i].ID == id {
			return &elements[i]
		}
		if found := FindByID(elements[i].Children, id); found != nil {
			return found
		}
	}
	return nil
}

// PathToID returns the IDs from the root down to (and including) the
// target, or nil when the target is not in the tree. The dashboard uses it
// to expand every ancestor of a hit-tested element.
func PathToID(elements []Element, id int) []int {
	for _, el := range elements {
		if el.ID == id {
			return []int{el.ID}
		}
		if sub := PathToID(el.Children, id); sub != nil {
			return append([]int{el.ID}, sub...)
		}
	}
	return nil
}

// Count returns the number of elements in the tree.
func Count(elements []Element) int {
	n := 0
	for _, el := range elements {
		n += 1 + Count(el.Children)
	}
	return n
}
