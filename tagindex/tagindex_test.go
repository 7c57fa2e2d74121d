package tagindex

import (
	"path/filepath"
	"testing"

	"github.com/go-test/deep"
	uuid "github.com/satori/go.uuid"
)

func TestAddTagNoDuplicate(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, ".map"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id := uuid.NewV4()
	m.AddTag("alpha", id)
	m.AddTag("alpha", id)

	tags := m.TagsForRecord(id)
	if len(tags) != 1 || tags[0] != "alpha" {
		t.Fatalf("expected exactly one alpha tag, got %v", tags)
	}
}

func TestRemoveTag(t *testing.T) {
	dir := t.TempDir()
	m, _ := New(filepath.Join(dir, ".map"))

	id := uuid.NewV4()
	m.AddTag("alpha", id)
	m.RemoveTag("alpha", id)

	if m.HasTag("alpha", id) {
		t.Fatalf("expected tag to be removed")
	}
}

func TestReloadPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".map")
	m, _ := New(path)

	id := uuid.NewV4()
	m.AddTag("alpha", id)
	m.AddTag("beta", id)

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := reloaded.TagsForRecord(id)
	want := []string{"alpha", "beta"}
	if diff := deep.Equal(sortedCopy(got), want); diff != nil {
		t.Fatalf("tags mismatch: %v", diff)
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func TestBootstrapFileShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".map")
	if _, err := New(path); err != nil {
		t.Fatalf("New: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.TagsForRecord(uuid.NewV4())) != 0 {
		t.Fatalf("expected empty index")
	}
}
