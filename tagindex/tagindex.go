// Package tagindex implements the persistent tag -> record-id
// inverted index, serialized as JSON to a ".map" file and kept
// coherent with the in-memory state on every mutation.
package tagindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	uuid "github.com/satori/go.uuid"
)

// wireEntry is one (tag, ids) pair as it appears in the ".map" file's
// "map" array.
type wireEntry struct {
	Tag string   `json:"-"`
	IDs []string `json:"-"`
}

// MarshalJSON encodes a wireEntry as a two-element JSON array, so the
// file's "map" key holds `[["tag", ["id", ...]], ...]` rather than an
// object (tags are arbitrary strings and JSON object keys would force
// escaping rules we don't want to depend on).
func (e wireEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Tag, e.IDs})
}

func (e *wireEntry) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &e.Tag); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.IDs)
}

type wireFormat struct {
	Map []wireEntry `json:"map"`
}

// Map is the in-memory tag -> record-id-strings index, backed by a
// JSON file on disk.
type Map struct {
	mu   sync.Mutex
	path string
	data map[string][]string
}

// New creates an empty index and immediately flushes it to path,
// producing a `{"map":[]}` bootstrap file.
func New(path string) (*Map, error) {
	m := &Map{path: path, data: make(map[string][]string)}
	if err := m.flushLocked(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads an existing ".map" file.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open tag index %s: %w", path, err)
	}
	defer f.Close()

	var wf wireFormat
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wf); err != nil {
		return nil, fmt.Errorf("malformed tag index %s: %w", path, err)
	}

	data := make(map[string][]string, len(wf.Map))
	for _, entry := range wf.Map {
		data[entry.Tag] = entry.IDs
	}
	return &Map{path: path, data: data}, nil
}

// flushLocked writes the index to a sibling temp file and renames it
// over path, so a crash mid-write never leaves a truncated ".map".
func (m *Map) flushLocked() error {
	wf := wireFormat{Map: make([]wireEntry, 0, len(m.data))}
	for tag, ids := range m.data {
		wf.Map = append(wf.Map, wireEntry{Tag: tag, IDs: ids})
	}

	serialized, err := json.Marshal(wf)
	if err != nil {
		// flush failures panic in this version
		panic(fmt.Sprintf("tagindex: failed to marshal index: %v", err))
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".map.tmp-*")
	if err != nil {
		panic(fmt.Sprintf("tagindex: failed to create temp file: %v", err))
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(serialized); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		panic(fmt.Sprintf("tagindex: failed to write temp file: %v", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		panic(fmt.Sprintf("tagindex: failed to close temp file: %v", err))
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		panic(fmt.Sprintf("tagindex: failed to rename temp file into place: %v", err))
	}
	return nil
}

// AddTag associates tag with record id, flushing the index to disk
// before returning. Adding the same (tag, id) pair twice is a no-op
// on the second call.
func (m *Map) AddTag(tag string, id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idStr := id.String()
	ids := m.data[tag]
	for _, existing := range ids {
		if existing == idStr {
			return
		}
	}
	m.data[tag] = append(ids, idStr)
	_ = m.flushLocked()
}

// RemoveTag disassociates tag from record id, flushing the index to
// disk before returning. It is a no-op if the pair is not present.
//
// Deleting a record does not currently call this automatically;
// callers that delete a record and also want its tags gone must call
// RemoveTag themselves per tag.
func (m *Map) RemoveTag(tag string, id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idStr := id.String()
	ids, ok := m.data[tag]
	if !ok {
		return
	}
	for i, existing := range ids {
		if existing == idStr {
			m.data[tag] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	_ = m.flushLocked()
}

// TagsForRecord returns every tag whose list contains id, via a
// linear scan of the map.
func (m *Map) TagsForRecord(id uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	idStr := id.String()
	var tags []string
	for tag, ids := range m.data {
		for _, existing := range ids {
			if existing == idStr {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

// HasTag reports whether tag's list contains id.
func (m *Map) HasTag(tag string, id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idStr := id.String()
	for _, existing := range m.data[tag] {
		if existing == idStr {
			return true
		}
	}
	return false
}
