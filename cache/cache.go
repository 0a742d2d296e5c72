// Package cache stores the merged source document from the last completed
// run. The next run diffs against it to find what changed.
//
// Files in the cache directory (default .translation-cache/):
//
//	source.last.json  merged source snapshot (2-space JSON)
//	state.yaml        run metadata: run id, time, checksum, key count
package cache

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/exilekit/langsync/document"
)

const (
	// DefaultDir is the conventional cache directory name.
	DefaultDir = ".translation-cache"
	// SnapshotFileName is the snapshot file inside the cache directory.
	SnapshotFileName = "source.last.json"
	// StateFileName holds metadata about the run that wrote the snapshot.
	StateFileName = "state.yaml"
	// Version is the state file format version.
	Version = 1
)

// ErrCorrupt is returned when a snapshot exists but cannot be parsed.
var ErrCorrupt = errors.New("cache snapshot is corrupt")

// State describes the run that produced the current snapshot.
type State struct {
	Version   int       `yaml:"version"`
	RunID     string    `yaml:"run_id"`
	UpdatedAt time.Time `yaml:"updated_at"`
	Checksum  string    `yaml:"checksum"`
	Keys      int       `yaml:"keys"`
}

// Cache is a snapshot cache rooted at a directory.
type Cache struct {
	dir string
}

// New returns a cache rooted at dir. Nothing is created until Save.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// SnapshotPath returns the snapshot file path.
func (c *Cache) SnapshotPath() string {
	return filepath.Join(c.dir, SnapshotFileName)
}

// Load reads the previous snapshot. A missing snapshot returns (nil, nil)
// so callers treat it as an empty document. An unparsable one returns an
// error wrapping ErrCorrupt.
func (c *Cache) Load() (*document.Object, error) {
	data, err := os.ReadFile(c.SnapshotPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", c.SnapshotPath(), err)
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.SnapshotPath(), ErrCorrupt, err)
	}
	return doc, nil
}

// Save atomically replaces the snapshot with doc and records the run.
func (c *Cache) Save(doc *document.Object, runID string) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := document.WriteAtomic(c.SnapshotPath(), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", c.SnapshotPath(), err)
	}

	st := State{
		Version:   Version,
		RunID:     runID,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
		Checksum:  Checksum(data),
		Keys:      len(doc.Leaves()),
	}
	out, err := yaml.Marshal(&st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	path := filepath.Join(c.dir, StateFileName)
	if err := document.WriteAtomic(path, out, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// State returns metadata for the current snapshot, or nil when no run
// has completed yet.
func (c *Cache) State() (*State, error) {
	path := filepath.Join(c.dir, StateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &st, nil
}

// Clear removes the cache directory. The next run treats every key as new.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("removing %s: %w", c.dir, err)
	}
	return nil
}

// Checksum returns the MD5 hex digest of data.
func Checksum(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}
