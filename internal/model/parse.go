package model

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrEmptyDocument is returned when the source contains no root element.
var ErrEmptyDocument = errors.New("xml document has no root element")

// ParseSource converts a WDA accessibility dump into an element tree.
// Malformed input yields an empty tree and a logged warning; no partial
// tree is ever returned.
func ParseSource(doc string, logger *zap.Logger) []Element {
	elements, err := ParseXML(doc)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to parse accessibility tree", zap.Error(err), zap.Int("bytes", len(doc)))
		}
		return []Element{}
	}
	return elements
}

// ParseXML converts a WDA accessibility dump into an element tree. The
// document's root element (the application) is the single top-level node.
// IDs are assigned in document order starting at 1 on every call.
func ParseXML(doc string) ([]Element, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = true

	var (
		stack  []Element // open elements, innermost last
		roots  []Element
		nextID = 1
	)

	// RawToken keeps prefixes as written; end tags are matched by hand below.
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && len(roots) > 0 {
				return nil, fmt.Errorf("parse xml: multiple root elements (second is <%s>)", qualifiedName(t.Name))
			}
			stack = append(stack, Element{
				ID:     nextID,
				Label:  qualifiedName(t.Name),
				Detail: collectAttributes(t.Attr),
			})
			nextID++

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("parse xml: unexpected </%s>", qualifiedName(t.Name))
			}
			top := stack[len(stack)-1]
			if name := qualifiedName(t.Name); name != top.Label {
				return nil, fmt.Errorf("parse xml: element <%s> closed by </%s>", top.Label, name)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				roots = append(roots, top)
			} else {
				parent := &stack[len(stack)-1]
				parent.Children = append(parent.Children, top)
			}
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("parse xml: unclosed element <%s>", stack[len(stack)-1].Label)
	}
	if len(roots) == 0 {
		return nil, ErrEmptyDocument
	}

	assignXPaths(roots, "")
	return roots, nil
}

// collectAttributes copies every attribute verbatim, keyed by its name as
// written in the document ("a:x", "xml:lang", "xmlns:a").
func collectAttributes(attrs []xml.Attr) Detail {
	d := make(Detail, len(attrs)+1)
	for _, a := range attrs {
		d[qualifiedName(a.Name)] = a.Value
	}
	return d
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// AssignXPaths fills in the xpath of every element of a tree built outside
// ParseXML. Existing xpath attributes are kept.
func AssignXPaths(roots []Element) { assignXPaths(roots, "") }

// assignXPaths computes each element's xpath from its tag and its 1-based
// position among same-tag siblings. The index is omitted for unique tags.
func assignXPaths(siblings []Element, parentXPath string) {
	counts := make(map[string]int, len(siblings))
	for _, el := range siblings {
		counts[el.Label]++
	}
	seen := make(map[string]int, len(counts))
	for i := range siblings {
		el := &siblings[i]
		seen[el.Label]++
		xpath := parentXPath + "/" + el.Label
		if counts[el.Label] > 1 {
			xpath += "[" + strconv.Itoa(seen[el.Label]) + "]"
		}
		// A literal xpath attribute in the dump wins, as with any other attribute.
		if _, ok := el.Detail[AttrXPath]; !ok {
			el.Detail[AttrXPath] = xpath
		}
		assignXPaths(el.Children, xpath)
	}
}
