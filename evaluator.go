package vennbase

import (
	"strings"

	uuid "github.com/satori/go.uuid"

	"github.com/paoloose/vennbase/query"
	"github.com/paoloose/vennbase/tagindex"
)

// evaluate recursively evaluates node against a single candidate
// record. Short-circuiting is deliberately not observable: both
// operands of a binary connective are always evaluated, since the
// evaluator is pure and side-effect-free.
func evaluate(node query.Node, mime string, id uuid.UUID, tags *tagindex.Map) (bool, error) {
	switch n := node.(type) {
	case query.Literal:
		return n.Value, nil

	case query.Not:
		v, err := evaluate(n.X, mime, id, tags)
		if err != nil {
			return false, err
		}
		return !v, nil

	case query.And:
		l, err := evaluate(n.L, mime, id, tags)
		if err != nil {
			return false, err
		}
		r, err := evaluate(n.R, mime, id, tags)
		if err != nil {
			return false, err
		}
		return l && r, nil

	case query.Or:
		l, err := evaluate(n.L, mime, id, tags)
		if err != nil {
			return false, err
		}
		r, err := evaluate(n.R, mime, id, tags)
		if err != nil {
			return false, err
		}
		return l || r, nil

	case query.Implies:
		l, err := evaluate(n.L, mime, id, tags)
		if err != nil {
			return false, err
		}
		r, err := evaluate(n.R, mime, id, tags)
		if err != nil {
			return false, err
		}
		return !l || r, nil

	case query.IfAndOnlyIf:
		l, err := evaluate(n.L, mime, id, tags)
		if err != nil {
			return false, err
		}
		r, err := evaluate(n.R, mime, id, tags)
		if err != nil {
			return false, err
		}
		return l == r, nil

	case query.Identifier:
		return evaluateIdentifier(n.Name, mime, id, tags)

	default:
		return false, &ErrInvalidExpression{Reason: "unrecognized AST node"}
	}
}

// evaluateIdentifier evaluates a "prefix:value" leaf against the
// candidate record.
func evaluateIdentifier(name, mime string, id uuid.UUID, tags *tagindex.Map) (bool, error) {
	ident, err := splitIdentifier(name)
	if err != nil {
		return false, err
	}

	switch ident.prefix {
	case "mime":
		if ident.value == "*" {
			return true, nil
		}
		return ident.value == mime, nil
	case "id":
		if ident.value == "*" {
			return true, nil
		}
		return ident.value == id.String(), nil
	case "tag":
		if ident.value == "*" {
			return true, nil
		}
		return tags.HasTag(ident.value, id), nil
	default:
		return false, &ErrInvalidExpression{Reason: "unknown predicate prefix: " + ident.prefix}
	}
}

// identifier is the parsed "prefix:value" shape of a query.Identifier
// leaf, once it has been checked for a known prefix.
type identifier struct {
	prefix string
	value  string
}

// splitIdentifier parses and validates name's "prefix:value" shape,
// independent of any record it might later be evaluated against. This
// is what lets a malformed identifier surface an error even when
// there are zero records to iterate.
func splitIdentifier(name string) (identifier, error) {
	prefix, value, found := strings.Cut(name, ":")
	if !found || prefix == "" || value == "" {
		return identifier{}, &ErrInvalidExpression{Reason: "identifier requires a non-empty prefix and value: " + name}
	}

	switch prefix {
	case "mime", "id", "tag":
		return identifier{prefix: prefix, value: value}, nil
	default:
		return identifier{}, &ErrInvalidExpression{Reason: "unknown predicate prefix: " + prefix}
	}
}

// validate walks node and checks every identifier's shape and prefix
// structurally, without evaluating against any record. QueryRecords
// calls this right after parsing so a malformed expression is
// rejected even when a partition (or the whole database) has no
// active records for the per-record evaluator to ever run against.
func validate(node query.Node) error {
	switch n := node.(type) {
	case query.Literal:
		return nil
	case query.Not:
		return validate(n.X)
	case query.And:
		if err := validate(n.L); err != nil {
			return err
		}
		return validate(n.R)
	case query.Or:
		if err := validate(n.L); err != nil {
			return err
		}
		return validate(n.R)
	case query.Implies:
		if err := validate(n.L); err != nil {
			return err
		}
		return validate(n.R)
	case query.IfAndOnlyIf:
		if err := validate(n.L); err != nil {
			return err
		}
		return validate(n.R)
	case query.Identifier:
		_, err := splitIdentifier(n.Name)
		return err
	default:
		return &ErrInvalidExpression{Reason: "unrecognized AST node"}
	}
}
