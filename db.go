// Package vennbase is the database coordinator: it owns the set of
// partitions keyed by MIME type plus the persistent tag index, and
// implements save/fetch/query against them, including the recursive
// boolean query evaluator.
package vennbase

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	uuid "github.com/satori/go.uuid"

	"github.com/paoloose/vennbase/mimetype"
	"github.com/paoloose/vennbase/partition"
	"github.com/paoloose/vennbase/query"
	"github.com/paoloose/vennbase/resize"
	"github.com/paoloose/vennbase/tagindex"
)

const tagIndexFilename = ".map"

// Vennbase is the root database object: a directory of partition
// files plus a persistent tag index, all guarded by a single
// process-wide mutex. Reads are serialized along with writes
// intentionally, trading read concurrency for a simpler invariant.
type Vennbase struct {
	mu sync.Mutex

	path       string
	partitions map[string]*partition.Partition // keyed by mimetype.MimeType.String()
	tags       *tagindex.Map

	log *logrus.Entry
}

// FetchResult is the result of FetchRecordByID: either a streamed
// reader over the record's bytes, or, when a resize was requested and
// applied, the fully materialized resized bytes.
type FetchResult struct {
	Mime string

	// Reader is set when no resize was applied; the caller is
	// responsible for closing it.
	Reader io.ReadCloser

	// Bytes is set instead of Reader when a resize was requested and
	// the record's MIME type is resizable.
	Bytes []byte
}

// Open bootstraps a new database directory or loads an existing one.
func Open(path string) (*Vennbase, error) {
	log := logrus.WithField("path", path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		log.Info("creating new database directory")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory %s: %w", path, err)
		}
		tags, err := tagindex.New(filepath.Join(path, tagIndexFilename))
		if err != nil {
			return nil, fmt.Errorf("could not bootstrap tag index in %s: %w", path, err)
		}
		return &Vennbase{
			path:       path,
			partitions: make(map[string]*partition.Partition),
			tags:       tags,
			log:        log,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not stat database directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("database path %s is not a directory", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("could not read database directory %s: %w", path, err)
	}

	partitions := make(map[string]*partition.Partition)
	var tags *tagindex.Map

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// ".lock" is the advisory lock file that "vennbase serve" keeps
		// in the database directory; it is not a partition.
		if name == tagIndexFilename || name == ".lock" {
			continue
		}

		mt, err := mimetype.FromBase64Filename(name)
		if err != nil {
			return nil, fmt.Errorf("malformed partition filename %q in %s: %w", name, path, err)
		}

		p, err := partition.FromFile(filepath.Join(path, name))
		if err != nil {
			return nil, fmt.Errorf("malformed partition %q in %s: %w", name, path, err)
		}
		partitions[mt.String()] = p
		log.WithField("mime", mt.String()).Debug("loaded partition")
	}

	tags, err = tagindex.Load(filepath.Join(path, tagIndexFilename))
	if err != nil {
		return nil, fmt.Errorf("could not load tag index in %s: %w", path, err)
	}

	log.WithField("partitions", len(partitions)).Info("opened database")
	return &Vennbase{
		path:       path,
		partitions: partitions,
		tags:       tags,
		log:        log,
	}, nil
}

// partitionFor returns (creating if necessary) the partition for mt.
// Callers must hold db.mu.
func (db *Vennbase) partitionFor(mt mimetype.MimeType) (*partition.Partition, error) {
	if p, ok := db.partitions[mt.String()]; ok {
		return p, nil
	}

	path := filepath.Join(db.path, mt.ToBase64Pathname())
	p, err := partition.Create(path, time.Now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("could not create partition for %s: %w", mt.String(), err)
	}
	db.partitions[mt.String()] = p
	db.log.WithField("mime", mt.String()).Info("created partition")
	return p, nil
}

// PartitionSummary describes one partition file for operator tooling
// (fsck) that needs to walk the database without going
// through the save/fetch/query surface.
type PartitionSummary struct {
	Mime      string
	Path      string
	CreatedAt int64
	Records   int
}

// Partitions returns a summary of every partition currently open,
// in unspecified order.
func (db *Vennbase) Partitions() []PartitionSummary {
	db.mu.Lock()
	defer db.mu.Unlock()

	summaries := make([]PartitionSummary, 0, len(db.partitions))
	for mime, p := range db.partitions {
		summaries = append(summaries, PartitionSummary{
			Mime:      mime,
			Path:      p.Path(),
			CreatedAt: p.CreatedAt(),
			Records:   p.Len(),
		})
	}
	return summaries
}

// WalkActiveRecords calls fn for every active record in every
// partition, passing the owning partition so callers (dedupe) can
// fetch the record's bytes. Iteration stops early if fn returns
// false.
func (db *Vennbase) WalkActiveRecords(fn func(mime string, id uuid.UUID, p *partition.Partition) bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for mime, p := range db.partitions {
		keepGoing := true
		p.IterActive(func(id uuid.UUID, _ partition.RecordInformation) bool {
			if !fn(mime, id, p) {
				keepGoing = false
				return false
			}
			return true
		})
		if !keepGoing {
			return
		}
	}
}

// SaveRecord stores data under mime with the given tags, returning the
// freshly generated record id. Each tag is flushed to the index before
// SaveRecord returns.
func (db *Vennbase) SaveRecord(mime string, data []byte, tags []string) (uuid.UUID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	mt, err := mimetype.Parse(mime)
	if err != nil {
		return uuid.UUID{}, err
	}

	p, err := db.partitionFor(mt)
	if err != nil {
		return uuid.UUID{}, err
	}

	id, err := p.PushRecord(data)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("could not save record: %w", err)
	}

	for _, tag := range tags {
		db.tags.AddTag(tag, id)
	}

	db.log.WithFields(logrus.Fields{"mime": mt.String(), "id": id.String(), "tags": len(tags)}).Debug("saved record")
	return id, nil
}

// FetchRecordByID locates the record across every partition. If dims
// is non-nil and the record's MIME type is resizable, the record is
// read fully into memory and transcoded; otherwise a streamed reader
// is returned.
func (db *Vennbase) FetchRecordByID(id uuid.UUID, dims *resize.Dimensions) (*FetchResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for mimeStr, p := range db.partitions {
		info, ok := p.RecordInfo(id)
		if !ok || !info.IsActive {
			continue
		}

		if dims != nil && resize.IsResizable(mimeStr) {
			reader, _, err := p.FetchRecord(id)
			if err != nil {
				return nil, fmt.Errorf("could not fetch record %s: %w", id, err)
			}
			raw, err := io.ReadAll(reader)
			reader.Close()
			if err != nil {
				return nil, fmt.Errorf("could not read record %s: %w", id, err)
			}

			resized, err := resize.Resize(raw, mimeStr, *dims)
			if err != nil {
				return nil, &ErrResizeFailure{Err: err}
			}
			return &FetchResult{Mime: mimeStr, Bytes: resized}, nil
		}

		reader, found, err := p.FetchRecord(id)
		if err != nil {
			return nil, fmt.Errorf("could not fetch record %s: %w", id, err)
		}
		if !found {
			continue
		}
		return &FetchResult{Mime: mimeStr, Reader: reader}, nil
	}

	return nil, &ErrNotFound{ID: id.String()}
}

// QueryMatch is one match from QueryRecords: the partition's MIME type
// and the matching record's id.
type QueryMatch struct {
	Mime string
	ID   uuid.UUID
}

// QueryRecords parses expr and evaluates it against every active
// record in every partition.
func (db *Vennbase) QueryRecords(expr string) ([]QueryMatch, error) {
	node, err := query.Parse(expr)
	if err != nil {
		return nil, err
	}
	if err := validate(node); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	var matches []QueryMatch
	var evalErr error

	for mimeStr, p := range db.partitions {
		p.IterActive(func(id uuid.UUID, _ partition.RecordInformation) bool {
			ok, err := evaluate(node, mimeStr, id, db.tags)
			if err != nil {
				evalErr = err
				return false
			}
			if ok {
				matches = append(matches, QueryMatch{Mime: mimeStr, ID: id})
			}
			return true
		})
		if evalErr != nil {
			return nil, evalErr
		}
	}

	return matches, nil
}

// GetTagsForRecord returns every tag associated with id via a linear
// scan of the tag index.
func (db *Vennbase) GetTagsForRecord(id uuid.UUID) []string {
	return db.tags.TagsForRecord(id)
}

// DeleteRecord clears the active bit of an indexed record. It is
// reserved: neither the wire protocol nor any CLI command calls it;
// it is exercised directly by tests. Tag map cleanup is not
// performed; a caller that wants the tags gone too must remove them
// itself.
func (db *Vennbase) DeleteRecord(mime string, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	mt, err := mimetype.Parse(mime)
	if err != nil {
		return err
	}
	p, ok := db.partitions[mt.String()]
	if !ok {
		return &ErrNotFound{ID: id.String()}
	}
	if _, ok := p.RecordInfo(id); !ok {
		return &ErrNotFound{ID: id.String()}
	}

	db.log.WithFields(logrus.Fields{"mime": mt.String(), "id": id.String()}).Debug("deleting record")
	return p.SetActive(id, false)
}

// ReplaceRecord appends data as a new record in id's partition and
// then clears the old record's active bit. It is reserved: neither the
// wire protocol nor any CLI command calls it. The new record's id is
// not returned, and the old record's tags are not moved to it.
func (db *Vennbase) ReplaceRecord(mime string, id uuid.UUID, data []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	mt, err := mimetype.Parse(mime)
	if err != nil {
		return err
	}
	p, ok := db.partitions[mt.String()]
	if !ok {
		return &ErrNotFound{ID: id.String()}
	}
	if _, ok := p.RecordInfo(id); !ok {
		return &ErrNotFound{ID: id.String()}
	}

	if _, err := p.PushRecord(data); err != nil {
		return fmt.Errorf("could not append replacement record: %w", err)
	}
	return p.SetActive(id, false)
}
