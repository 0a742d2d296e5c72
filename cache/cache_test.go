package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/exilekit/langsync/document"
)

func TestLoadMissingSnapshot(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), DefaultDir))

	doc, err := c.Load()
	if err != nil {
		t.Fatalf("Load() error for missing snapshot: %v", err)
	}
	if doc != nil {
		t.Fatalf("Load() = %v, want nil", doc)
	}

	st, err := c.State()
	if err != nil || st != nil {
		t.Fatalf("State() = %v, %v; want nil, nil", st, err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DefaultDir)
	c := New(dir)

	doc, err := document.Parse([]byte(`{"common":{"save":"Save","cancel":"Cancel"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := c.Save(doc, "run-1"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, SnapshotFileName))
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	want := "{\n  \"common\": {\n    \"save\": \"Save\",\n    \"cancel\": \"Cancel\"\n  }\n}\n"
	if string(data) != want {
		t.Fatalf("snapshot =\n%s\nwant\n%s", data, want)
	}

	loaded, err := c.Load()
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	if !document.Equal(loaded, doc) {
		t.Fatal("loaded snapshot differs from saved document")
	}

	st, err := c.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.RunID != "run-1" || st.Keys != 2 || st.Version != Version {
		t.Errorf("State = %+v", st)
	}
	if st.Checksum != Checksum(data) {
		t.Errorf("Checksum = %s, want %s", st.Checksum, Checksum(data))
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != SnapshotFileName && e.Name() != StateFileName {
			t.Errorf("unexpected leftover file %s", e.Name())
		}
	}
}

func TestLoadCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SnapshotFileName), []byte("{oops"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := New(dir).Load()
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DefaultDir)
	c := New(dir)
	if err := c.Save(document.New(), "r"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("cache dir still exists: %v", err)
	}
}
