package query

import "testing"

func TestParseIdentifier(t *testing.T) {
	node, err := Parse("mime:image/png")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	id, ok := node.(Identifier)
	if !ok || id.Name != "mime:image/png" {
		t.Fatalf("got %#v", node)
	}
}

func TestParseNotAndOr(t *testing.T) {
	node, err := Parse("tag:alpha && !tag:gamma || tag:beta")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// should parse as (alpha && !gamma) || beta, i.e. top node is Or
	if _, ok := node.(Or); !ok {
		t.Fatalf("expected top-level Or, got %#v", node)
	}
}

func TestParseParens(t *testing.T) {
	node, err := Parse("(mime:image/* && tag:anime) || (mime:video/* && !tag:anime)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := node.(Or); !ok {
		t.Fatalf("expected top-level Or, got %#v", node)
	}
}

func TestParseImpliesAndIff(t *testing.T) {
	if _, err := Parse("tag:a -> tag:b"); err != nil {
		t.Fatalf("Parse implies: %v", err)
	}
	if _, err := Parse("tag:a <-> tag:b"); err != nil {
		t.Fatalf("Parse iff: %v", err)
	}
}

func TestParseInvalidTrailingTokens(t *testing.T) {
	if _, err := Parse("tag:a tag:b"); err == nil {
		t.Fatalf("expected error for juxtaposed identifiers")
	}
}

func TestParseEmptyAtomFails(t *testing.T) {
	if _, err := Parse("&&"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseUnmatchedParen(t *testing.T) {
	if _, err := Parse("(tag:a && tag:b"); err == nil {
		t.Fatalf("expected error for unmatched paren")
	}
}
