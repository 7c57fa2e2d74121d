package vennbase

import (
	"testing"

	uuid "github.com/satori/go.uuid"

	"github.com/paoloose/vennbase/query"
	"github.com/paoloose/vennbase/tagindex"
)

func newTestTags(t *testing.T) *tagindex.Map {
	t.Helper()
	dir := t.TempDir()
	m, err := tagindex.New(dir + "/.map")
	if err != nil {
		t.Fatalf("tagindex.New: %v", err)
	}
	return m
}

func TestEvaluateMimeAndID(t *testing.T) {
	tags := newTestTags(t)
	id := uuid.NewV4()

	ok, err := evaluate(query.Identifier{Name: "mime:image/png"}, "image/png", id, tags)
	if err != nil || !ok {
		t.Fatalf("mime match: ok=%v err=%v", ok, err)
	}

	ok, err = evaluate(query.Identifier{Name: "id:" + id.String()}, "image/png", id, tags)
	if err != nil || !ok {
		t.Fatalf("id match: ok=%v err=%v", ok, err)
	}

	ok, err = evaluate(query.Identifier{Name: "mime:*"}, "video/mp4", id, tags)
	if err != nil || !ok {
		t.Fatalf("mime wildcard: ok=%v err=%v", ok, err)
	}
}

func TestEvaluateTagPredicate(t *testing.T) {
	tags := newTestTags(t)
	id := uuid.NewV4()
	tags.AddTag("alpha", id)

	ok, err := evaluate(query.Identifier{Name: "tag:alpha"}, "image/png", id, tags)
	if err != nil || !ok {
		t.Fatalf("tag match: ok=%v err=%v", ok, err)
	}

	ok, err = evaluate(query.Identifier{Name: "tag:beta"}, "image/png", id, tags)
	if err != nil || ok {
		t.Fatalf("tag non-match: ok=%v err=%v", ok, err)
	}
}

func TestEvaluateUnknownPrefixFails(t *testing.T) {
	tags := newTestTags(t)
	id := uuid.NewV4()

	if _, err := evaluate(query.Identifier{Name: "foo:bar"}, "image/png", id, tags); err == nil {
		t.Fatalf("expected error for unknown prefix")
	}
}

func TestValidateCatchesMalformedIdentifiersWithNoRecords(t *testing.T) {
	cases := []string{"mime:", ":value", "foo:bar"}
	for _, name := range cases {
		if err := validate(query.Identifier{Name: name}); err == nil {
			t.Fatalf("validate(%q): expected error", name)
		}
	}

	nested := query.And{
		L: query.Literal{Value: true},
		R: query.Not{X: query.Identifier{Name: "mime:"}},
	}
	if err := validate(nested); err == nil {
		t.Fatalf("validate: expected error for malformed identifier nested under connectives")
	}
}

func TestValidateAcceptsWellFormedExpression(t *testing.T) {
	node := query.And{
		L: query.Identifier{Name: "mime:image/png"},
		R: query.Or{
			L: query.Identifier{Name: "tag:*"},
			R: query.Literal{Value: false},
		},
	}
	if err := validate(node); err != nil {
		t.Fatalf("validate: unexpected error: %v", err)
	}
}

func TestEvaluateConnectives(t *testing.T) {
	tags := newTestTags(t)
	id := uuid.NewV4()

	node := query.And{
		L: query.Literal{Value: true},
		R: query.Not{X: query.Literal{Value: false}},
	}
	ok, err := evaluate(node, "image/png", id, tags)
	if err != nil || !ok {
		t.Fatalf("And(true, !false): ok=%v err=%v", ok, err)
	}

	doubleNegation := query.Not{X: query.Not{X: query.Literal{Value: true}}}
	ok, err = evaluate(doubleNegation, "image/png", id, tags)
	if err != nil || !ok {
		t.Fatalf("Not(Not(true)): ok=%v err=%v", ok, err)
	}

	implication := query.Implies{L: query.Literal{Value: true}, R: query.Literal{Value: false}}
	ok, err = evaluate(implication, "image/png", id, tags)
	if err != nil || ok {
		t.Fatalf("true -> false should be false: ok=%v err=%v", ok, err)
	}
}
