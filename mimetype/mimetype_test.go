package mimetype

import "testing"

func TestParseValid(t *testing.T) {
	cases := []string{"image/png", "video/mp4", "Application/JSON", "a-b+c/d-e+f"}
	for _, c := range cases {
		if _, err := Parse(c); err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", c, err)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []string{"", "a/", "/a", "noslash", "a/b/c", "a/b c", "im"}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) expected error, got none", c)
		}
	}
}

func TestParseLowercases(t *testing.T) {
	m, err := Parse("IMAGE/PNG")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.String() != "image/png" {
		t.Fatalf("got %q", m.String())
	}
}

func TestBase64RoundTrip(t *testing.T) {
	m, err := Parse("image/png")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	filename := m.ToBase64Pathname()
	back, err := FromBase64Filename(filename)
	if err != nil {
		t.Fatalf("FromBase64Filename: %v", err)
	}
	if !back.Equal(m) {
		t.Fatalf("round trip mismatch: %q != %q", back, m)
	}
}
