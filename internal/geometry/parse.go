package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseInt parses the leading integer of s the way a browser's parseInt
// does: surrounding whitespace is ignored, an optional sign is accepted and
// parsing stops at the first non-digit ("12.5" is 12). It fails when no
// digit is found.
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseBox reads the x, y, width and height attributes of an element's
// attribute bag. ok is false when any of the four is missing or not numeric.
func ParseBox(attrs map[string]string) (Box, bool) {
	var vals [4]int
	for i, key := range [4]string{"x", "y", "width", "height"} {
		raw, present := attrs[key]
		if !present {
			return Box{}, false
		}
		v, ok := ParseInt(raw)
		if !ok {
			return Box{}, false
		}
		vals[i] = v
	}
	return Box{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, true
}

// ParseBBox parses a "x,y,w,h" string into a Box.
func ParseBBox(s string) (Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Box{}, fmt.Errorf("invalid bbox %q: expected x,y,w,h", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Box{}, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		vals[i] = v
	}
	return Box{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// ParsePoint parses a "x,y" string.
func ParsePoint(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("invalid point %q: expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return Point{X: x, Y: y}, nil
}
