package geometry

import "testing"

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"42", 42, true},
		{" 42 ", 42, true},
		{"12.5", 12, true},
		{"-3", -3, true},
		{"+7", 7, true},
		{"100px", 100, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-", 0, false},
		{".5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseInt(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseInt(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseBox(t *testing.T) {
	b, ok := ParseBox(map[string]string{"x": "0", "y": "47", "width": "390", "height": "797.5"})
	if !ok {
		t.Fatal("expected box to parse")
	}
	if b != (Box{X: 0, Y: 47, Width: 390, Height: 797}) {
		t.Errorf("got %+v", b)
	}

	if _, ok := ParseBox(map[string]string{"x": "0", "y": "0", "width": "10"}); ok {
		t.Error("missing height should fail")
	}
	if _, ok := ParseBox(map[string]string{"x": "a", "y": "0", "width": "10", "height": "10"}); ok {
		t.Error("non-numeric x should fail")
	}
}

func TestParseBBox_Valid(t *testing.T) {
	b, err := ParseBBox("10,20,300,400")
	if err != nil {
		t.Fatal(err)
	}
	if b.X != 10 || b.Y != 20 || b.Width != 300 || b.Height != 400 {
		t.Errorf("got %+v, want {10 20 300 400}", b)
	}
}

func TestParseBBox_WithSpaces(t *testing.T) {
	b, err := ParseBBox("10, 20, 300, 400")
	if err != nil {
		t.Fatal(err)
	}
	if b.X != 10 || b.Y != 20 || b.Width != 300 || b.Height != 400 {
		t.Errorf("got %+v, want {10 20 300 400}", b)
	}
}

func TestParseBBox_Invalid(t *testing.T) {
	tests := []string{
		"",
		"10,20,300",
		"10,20,300,400,500",
		"a,b,c,d",
		"10,20,abc,400",
	}
	for _, s := range tests {
		_, err := ParseBBox(s)
		if err == nil {
			t.Errorf("ParseBBox(%q) should fail", s)
		}
	}
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint("12.5, 300")
	if err != nil {
		t.Fatal(err)
	}
	if p.X != 12.5 || p.Y != 300 {
		t.Errorf("got %+v", p)
	}
	for _, s := range []string{"", "1", "1,2,3", "a,1"} {
		if _, err := ParsePoint(s); err == nil {
			t.Errorf("ParsePoint(%q) should fail", s)
		}
	}
}
