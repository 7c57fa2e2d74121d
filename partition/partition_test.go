package partition

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	uuid "github.com/satori/go.uuid"
)

func newTestPartition(t *testing.T) (*Partition, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "part")
	p, err := Create(path, 1000)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p, path
}

func TestPushAndFetchRecord(t *testing.T) {
	p, _ := newTestPartition(t)

	id, err := p.PushRecord([]byte("abc"))
	if err != nil {
		t.Fatalf("PushRecord: %v", err)
	}

	reader, ok, err := p.FetchRecord(id)
	if err != nil {
		t.Fatalf("FetchRecord: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to be found")
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "abc" {
		t.Fatalf("got %q", data)
	}
}

func TestFetchRecordNotFound(t *testing.T) {
	p, _ := newTestPartition(t)
	reader, ok, err := p.FetchRecord(uuid.NewV4())
	if err != nil {
		t.Fatalf("FetchRecord: %v", err)
	}
	if ok || reader != nil {
		t.Fatalf("expected not found")
	}
}

func TestFileLengthInvariant(t *testing.T) {
	p, path := newTestPartition(t)

	sizes := []int{3, 0, 10, 1}
	for _, n := range sizes {
		data := make([]byte, n)
		if _, err := p.PushRecord(data); err != nil {
			t.Fatalf("PushRecord: %v", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	total := 0
	for _, n := range sizes {
		total += n
	}
	want := int64(HeaderSize) + int64(len(sizes))*int64(RecordHeaderSize) + int64(total)
	if info.Size() != want {
		t.Fatalf("got file size %d, want %d", info.Size(), want)
	}
}

func TestReopenReconstructsIndex(t *testing.T) {
	p, path := newTestPartition(t)

	id1, _ := p.PushRecord([]byte("hello"))
	id2, _ := p.PushRecord([]byte("world!"))

	reopened, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}

	info1, ok := reopened.RecordInfo(id1)
	if !ok || info1.Size != 5 {
		t.Fatalf("record 1 missing or wrong size: %+v ok=%v", info1, ok)
	}
	info2, ok := reopened.RecordInfo(id2)
	if !ok || info2.Size != 6 {
		t.Fatalf("record 2 missing or wrong size: %+v ok=%v", info2, ok)
	}
}

func TestSetActiveExcludesFromIteration(t *testing.T) {
	p, _ := newTestPartition(t)
	id, _ := p.PushRecord([]byte("x"))

	if err := p.SetActive(id, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	count := 0
	p.IterActive(func(_ uuid.UUID, _ RecordInformation) bool {
		count++
		return true
	})
	if count != 0 {
		t.Fatalf("expected 0 active records after tombstoning, got %d", count)
	}
}
