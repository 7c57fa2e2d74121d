// Package binio provides the small set of fixed-width binary I/O
// primitives that the partition format is built on: exact-length
// reads, little-endian integers, and
// millisecond Unix timestamps.
package binio

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// ErrShortRead is returned whenever the underlying stream ends before
// the requested number of bytes could be read.
type ErrShortRead struct {
	Wanted int
	Got    int
}

func (e *ErrShortRead) Error() string {
	return fmt.Sprintf("short read: wanted %d bytes, got %d", e.Wanted, e.Got)
}

// ReadExact reads exactly len(buf) bytes from r, or returns
// ErrShortRead if the stream ends first.
func ReadExact(r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &ErrShortRead{Wanted: len(buf), Got: n}
		}
		return err
	}
	return nil
}

// ReadUint64LE reads an unsigned 64-bit little-endian integer.
func ReadUint64LE(r io.Reader) (uint64, error) {
	var b [8]byte
	if err := ReadExact(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// PutUint64LE encodes v as 8 little-endian bytes.
func PutUint64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// ReadTimestampLE reads a signed 64-bit little-endian millisecond Unix
// timestamp, as used for VennTimestamp fields.
func ReadTimestampLE(r io.Reader) (int64, error) {
	var b [8]byte
	if err := ReadExact(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// PutTimestampLE encodes a millisecond Unix timestamp as 8
// little-endian bytes.
func PutTimestampLE(ms int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(ms))
	return b
}

// ReadNBytesAsString reads n bytes and decodes them as UTF-8,
// replacing invalid sequences with the Unicode replacement character.
// This lossy mode matches the historical use for partition filenames;
// callers that need strict validation (record tag data) should decode
// with unicode/utf8 themselves.
func ReadNBytesAsString(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if err := ReadExact(r, buf); err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(buf), "�"), nil
}
