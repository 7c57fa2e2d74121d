// Package partition implements the on-disk partition format: a
// single append-only file holding every record of one MIME type.
//
// Layout (all integers little-endian):
//
//	+----------------+------------------+
//	| created_at i64 | last_compact i64 |   header, 16 bytes
//	+----------------+------------------+
//	| flags u8 | uuid [16] | size u64 | data [size] |  record 0
//	| flags u8 | uuid [16] | size u64 | data [size] |  record 1
//	...
//
// This mirrors the byte-offset parsing style of an ext4 superblock
// decode (fixed fields at fixed offsets, read with encoding/binary)
// adapted to a much smaller, flat header.
package partition

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bits-and-blooms/bitset"
	uuid "github.com/satori/go.uuid"

	"github.com/paoloose/vennbase/binio"
)

const (
	// HeaderSize is the size in bytes of the partition header.
	HeaderSize = 16
	// RecordHeaderSize is the size in bytes of one record's header
	// (flags + uuid + size), i.e. everything before its data bytes.
	RecordHeaderSize = 1 + 16 + 8

	activeFlagBit = 7
)

// ErrMalformedPartition is returned when a record header is truncated
// or carries impossible flag bits.
type ErrMalformedPartition struct {
	Reason string
}

func (e *ErrMalformedPartition) Error() string {
	return fmt.Sprintf("malformed partition: %s", e.Reason)
}

// RecordInformation is the in-memory index entry for one record
// within a partition.
type RecordInformation struct {
	IsActive bool
	// Start is the absolute file offset of the first data byte, i.e.
	// immediately after the record header.
	Start uint64
	// Size is the length of the record's data in bytes.
	Size uint64
}

// Partition owns one partition file and the index built from it.
type Partition struct {
	mu sync.Mutex

	path           string
	records        map[uuid.UUID]RecordInformation
	createdAt      int64
	lastCompaction int64
	// nextStart is the byte offset where the next pushed record's data
	// will begin; it always equals the file length plus
	// RecordHeaderSize.
	nextStart uint64
}

// Path returns the partition's file path.
func (p *Partition) Path() string {
	return p.path
}

// CreatedAt returns the partition's creation timestamp (ms Unix).
func (p *Partition) CreatedAt() int64 {
	return p.createdAt
}

// recordFlags packs the active bit into a single byte, asserting the
// reserved bits (0-6) stay clear.
func recordFlags(isActive bool) byte {
	bs := bitset.New(8)
	if isActive {
		bs.Set(activeFlagBit)
	}
	words := bs.Bytes()
	if len(words) == 0 {
		return 0
	}
	return byte(words[0])
}

// decodeRecordFlags reports whether the active bit is set and
// whether any reserved bit (0-6) was set, which would indicate a
// malformed or future-versioned partition file.
func decodeRecordFlags(b byte) (isActive bool, reservedBitsSet bool) {
	bs := bitset.From([]uint64{uint64(b)})
	isActive = bs.Test(activeFlagBit)
	for i := uint(0); i < activeFlagBit; i++ {
		if bs.Test(i) {
			reservedBitsSet = true
			break
		}
	}
	return isActive, reservedBitsSet
}

// Create initializes a new, empty partition file at path, writing the
// 16-byte header with created_at = last_compaction = now (ms).
//
// Callers must ensure path does not already exist; Create truncates
// whatever is there.
func Create(path string, nowMillis int64) (*Partition, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create partition file %s: %w", path, err)
	}
	defer f.Close()

	header := append(binio.PutTimestampLE(nowMillis), binio.PutTimestampLE(nowMillis)...)
	if _, err := f.Write(header); err != nil {
		return nil, fmt.Errorf("could not write partition header %s: %w", path, err)
	}

	return &Partition{
		path:           path,
		records:        make(map[uuid.UUID]RecordInformation),
		createdAt:      nowMillis,
		lastCompaction: nowMillis,
		nextStart:      HeaderSize + RecordHeaderSize,
	}, nil
}

// FromFile opens an existing partition file and rebuilds its index by
// scanning every record header.
func FromFile(path string) (*Partition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open partition file %s: %w", path, err)
	}
	defer f.Close()

	createdAt, err := binio.ReadTimestampLE(f)
	if err != nil {
		return nil, &ErrMalformedPartition{Reason: fmt.Sprintf("reading created_at: %v", err)}
	}
	lastCompaction, err := binio.ReadTimestampLE(f)
	if err != nil {
		return nil, &ErrMalformedPartition{Reason: fmt.Sprintf("reading last_compaction: %v", err)}
	}

	records := make(map[uuid.UUID]RecordInformation)
	offset := uint64(HeaderSize)

	for {
		var flagByte [1]byte
		n, err := io.ReadFull(f, flagByte[:])
		if err != nil && n == 0 {
			// clean EOF between records
			break
		}
		if err != nil {
			return nil, &ErrMalformedPartition{Reason: fmt.Sprintf("short read inside record header at offset %d: %v", offset, err)}
		}

		isActive, reservedBitsSet := decodeRecordFlags(flagByte[0])
		if reservedBitsSet {
			return nil, &ErrMalformedPartition{Reason: fmt.Sprintf("reserved flag bits set at offset %d", offset)}
		}

		var idBytes [16]byte
		if err := binio.ReadExact(f, idBytes[:]); err != nil {
			return nil, &ErrMalformedPartition{Reason: fmt.Sprintf("short read of record uuid at offset %d: %v", offset, err)}
		}
		id, err := uuid.FromBytes(idBytes[:])
		if err != nil {
			return nil, &ErrMalformedPartition{Reason: fmt.Sprintf("invalid uuid at offset %d: %v", offset, err)}
		}

		size, err := binio.ReadUint64LE(f)
		if err != nil {
			return nil, &ErrMalformedPartition{Reason: fmt.Sprintf("short read of record size at offset %d: %v", offset, err)}
		}

		start := offset + RecordHeaderSize
		records[id] = RecordInformation{IsActive: isActive, Start: start, Size: size}

		if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("could not seek past record data at offset %d: %w", start, err)
		}
		offset = start + size
	}

	return &Partition{
		path:           path,
		records:        records,
		createdAt:      createdAt,
		lastCompaction: lastCompaction,
		nextStart:      offset + RecordHeaderSize,
	}, nil
}

// PushRecord appends data as a new active record and returns its
// freshly generated UUID.
func (p *Partition) PushRecord(data []byte) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.NewV4()

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("could not open partition file %s for append: %w", p.path, err)
	}
	defer f.Close()

	idBytes := id.Bytes()
	buf := make([]byte, 0, RecordHeaderSize+len(data))
	buf = append(buf, recordFlags(true))
	buf = append(buf, idBytes...)
	buf = append(buf, binio.PutUint64LE(uint64(len(data)))...)
	buf = append(buf, data...)

	if _, err := f.Write(buf); err != nil {
		return uuid.UUID{}, fmt.Errorf("could not append record to partition file %s: %w", p.path, err)
	}

	start := p.nextStart
	p.records[id] = RecordInformation{IsActive: true, Start: start, Size: uint64(len(data))}
	p.nextStart = start + uint64(len(data)) + RecordHeaderSize

	return id, nil
}

// BoundedReader is a reader that returns io.EOF after exactly N bytes,
// even if the underlying file grows past the record's boundary.
type BoundedReader struct {
	f       *os.File
	remain  int64
	onClose func() error
}

// Read implements io.Reader.
func (b *BoundedReader) Read(p []byte) (int, error) {
	if b.remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remain {
		p = p[:b.remain]
	}
	n, err := b.f.Read(p)
	b.remain -= int64(n)
	return n, err
}

// Close releases the underlying file handle.
func (b *BoundedReader) Close() error {
	if b.onClose != nil {
		return b.onClose()
	}
	return nil
}

// FetchRecord returns a bounded reader over record id's data, or
// (nil, false) if id is not indexed.
func (p *Partition) FetchRecord(id uuid.UUID) (*BoundedReader, bool, error) {
	p.mu.Lock()
	info, ok := p.records[id]
	p.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	f, err := os.Open(p.path)
	if err != nil {
		return nil, false, fmt.Errorf("could not open partition file %s: %w", p.path, err)
	}
	if _, err := f.Seek(int64(info.Start), io.SeekStart); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("could not seek to record %s in %s: %w", id, p.path, err)
	}

	reader := &BoundedReader{f: f, remain: int64(info.Size), onClose: f.Close}
	return reader, true, nil
}

// RecordInfo returns the index entry for id, if present.
func (p *Partition) RecordInfo(id uuid.UUID) (RecordInformation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.records[id]
	return info, ok
}

// SetActive flips the active bit of an already-indexed record both in
// memory and on disk, by rewriting only the single flags byte at its
// header offset. This in-place scheme preserves the "no gaps, no
// tombstone-append" file-size invariant that a rebuild-on-delete
// scheme would break.
func (p *Partition) SetActive(id uuid.UUID, active bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, ok := p.records[id]
	if !ok {
		return fmt.Errorf("record %s not found in partition %s", id, p.path)
	}

	flagOffset := int64(info.Start) - RecordHeaderSize
	f, err := os.OpenFile(p.path, os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open partition file %s: %w", p.path, err)
	}
	defer f.Close()

	if _, err := f.WriteAt([]byte{recordFlags(active)}, flagOffset); err != nil {
		return fmt.Errorf("could not rewrite flags byte for %s in %s: %w", id, p.path, err)
	}

	info.IsActive = active
	p.records[id] = info
	return nil
}

// IterActive calls fn for every record currently marked active, in
// unspecified order. Iteration stops early if fn returns false.
func (p *Partition) IterActive(fn func(id uuid.UUID, info RecordInformation) bool) {
	p.mu.Lock()
	snapshot := make(map[uuid.UUID]RecordInformation, len(p.records))
	for id, info := range p.records {
		snapshot[id] = info
	}
	p.mu.Unlock()

	for id, info := range snapshot {
		if !info.IsActive {
			continue
		}
		if !fn(id, info) {
			return
		}
	}
}

// Len returns the number of indexed records (active and tombstoned).
func (p *Partition) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}
