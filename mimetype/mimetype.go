// Package mimetype implements the validated MIME-type value used to
// key partitions: a lowercase "type/subtype" string with a base64
// filename encoding for the on-disk partition name.
package mimetype

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	minLength = 3
	maxLength = 255
)

// ErrInvalidMimeType is returned by Parse when the input does not
// satisfy the MIME-type grammar: 3-255 bytes, lowercase, characters in
// [a-z0-9+\-/], exactly one '/'.
type ErrInvalidMimeType struct {
	Value string
}

func (e *ErrInvalidMimeType) Error() string {
	return fmt.Sprintf("invalid mime type: %q", e.Value)
}

// MimeType is a validated "type/subtype" string. The zero value is not
// a valid MimeType; construct one with Parse.
type MimeType struct {
	s string
}

func isPermittedChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '+' || c == '-' || c == '/':
		return true
	}
	return false
}

// Parse validates s (after ASCII-lowercasing) against the MIME-type
// grammar and returns the corresponding MimeType.
func Parse(s string) (MimeType, error) {
	lower := strings.ToLower(s)
	if len(lower) < minLength || len(lower) > maxLength {
		return MimeType{}, &ErrInvalidMimeType{Value: s}
	}

	slashes := 0
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c == '/' {
			slashes++
			continue
		}
		if !isPermittedChar(c) {
			return MimeType{}, &ErrInvalidMimeType{Value: s}
		}
	}
	if slashes != 1 {
		return MimeType{}, &ErrInvalidMimeType{Value: s}
	}
	// a lone '/' at either edge would satisfy the character/count
	// checks above but leave an empty type or subtype
	if strings.HasPrefix(lower, "/") || strings.HasSuffix(lower, "/") {
		return MimeType{}, &ErrInvalidMimeType{Value: s}
	}

	return MimeType{s: lower}, nil
}

// String returns the canonical lowercase "type/subtype" form.
func (m MimeType) String() string {
	return m.s
}

// Equal reports whether two MimeType values are the same string.
func (m MimeType) Equal(o MimeType) bool {
	return m.s == o.s
}

// ToBase64Pathname encodes the mime type using standard-alphabet
// base64 without padding, suitable as a partition filename.
func (m MimeType) ToBase64Pathname() string {
	return base64.RawStdEncoding.EncodeToString([]byte(m.s))
}

// FromBase64Filename decodes a partition filename back into a
// MimeType, re-validating the decoded string against the same
// grammar Parse enforces.
func FromBase64Filename(name string) (MimeType, error) {
	decoded, err := base64.RawStdEncoding.DecodeString(name)
	if err != nil {
		return MimeType{}, fmt.Errorf("invalid partition filename %q: %w", name, err)
	}
	return Parse(string(decoded))
}
