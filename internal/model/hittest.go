package model

// Candidate is an element whose bounding box contains a hit-test point.
type Candidate struct {
	Element *Element
	Area    int
}

// ElementsAt collects every element (and descendant) whose logical bounding
// box contains the point, edges included. Descendants are visited even when
// their parent does not contain the point. Elements without a parseable box
// are skipped.
func ElementsAt(elements []Element, x, y float64) []Candidate {
	var result []Candidate
	for i := range elements {
		el := &elements[i]
		if box, ok := el.Detail.Box(); ok && box.Contains(x, y) {
			result = append(result, Candidate{Element: el, Area: box.Area()})
		}
		result = append(result, ElementsAt(el.Children, x, y)...)
	}
	return result
}

// Smallest picks the innermost candidate: the smallest area wins, and among
// candidates sharing the smallest area the first with a non-empty name is
// preferred, else the first encountered. Returns nil for no candidates.
func Smallest(candidates []Candidate) *Element {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	bestNamed := best.Element.Detail.Name() != ""
	for _, c := range candidates[1:] {
		switch {
		case c.Area < best.Area:
			best = c
			bestNamed = c.Element.Detail.Name() != ""
		case c.Area == best.Area && !bestNamed && c.Element.Detail.Name() != "":
			best = c
			bestNamed = true
		}
	}
	return best.Element
}

// ElementAt returns the innermost element under the logical point, or nil.
func ElementAt(elements []Element, x, y float64) *Element {
	return Smallest(ElementsAt(elements, x, y))
}
