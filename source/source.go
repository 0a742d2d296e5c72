// Package source merges a tree of per-namespace JSON files into a single
// translation document.
//
// Layout:
//
//	translations-src/
//	  common.json          -> common.*
//	  pages/Home.json      -> pages.home.*
//	  pages/admin/users.json -> pages.admin.users.*
//
// Directory names become path segments as-is; file names are lower-cased
// with the .json extension stripped.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/exilekit/langsync/document"
	"github.com/exilekit/langsync/parallel"
)

// DefaultDir is the conventional source directory name.
const DefaultDir = "translations-src"

// ErrSourceMissing is returned when the source root does not exist.
var ErrSourceMissing = errors.New("source directory not found")

// Options controls merging.
type Options struct {
	// MaxConcurrent bounds concurrent file reads (default 8).
	MaxConcurrent int
	// OnLog reports each merged namespace.
	OnLog func(format string, args ...any)
	// OnWarn reports files skipped because they could not be read or parsed.
	OnWarn func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) warn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return 8
}

// File describes one source file that contributed to the merge.
type File struct {
	// Rel is the path relative to the source root, slash-separated.
	Rel string
	// Namespace is the dotted namespace path derived from Rel.
	Namespace string
	// Keys is the number of top-level keys the file contributed.
	Keys int
}

// Skipped describes a source file excluded from the merge.
type Skipped struct {
	Rel string
	Err error
}

// Result is the outcome of a merge.
type Result struct {
	Doc     *document.Object
	Files   []File
	Skipped []Skipped
}

// Namespace derives the dotted namespace path for a file path relative
// to the source root.
func Namespace(rel string) string {
	segs := strings.Split(strings.Trim(filepath.ToSlash(rel), "/"), "/")
	name := segs[len(segs)-1]
	segs[len(segs)-1] = strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	return document.JoinPath(segs...)
}

// Merge walks root and merges every *.json file into one document.
// Unreadable or invalid files are skipped and reported, never fatal.
// A missing root returns ErrSourceMissing.
func Merge(ctx context.Context, root string, opts Options) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, ErrSourceMissing)
		}
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", root, ErrSourceMissing)
	}

	rels, err := collect(root)
	if err != nil {
		return nil, err
	}

	outcomes := parallel.Settle(ctx, rels, opts.effectiveMaxConcurrent(), func(_ context.Context, rel string) (*document.Object, error) {
		return document.ParseFile(filepath.Join(root, filepath.FromSlash(rel)))
	})

	res := &Result{Doc: document.New()}
	for _, o := range outcomes {
		if o.Err != nil {
			opts.warn("Skipping %s: %v", o.Input, o.Err)
			res.Skipped = append(res.Skipped, Skipped{Rel: o.Input, Err: o.Err})
			continue
		}
		ns := Namespace(o.Input)
		if err := res.Doc.SetNamespace(ns, o.Value); err != nil {
			opts.warn("Skipping %s: %v", o.Input, err)
			res.Skipped = append(res.Skipped, Skipped{Rel: o.Input, Err: err})
			continue
		}
		res.Files = append(res.Files, File{Rel: o.Input, Namespace: ns, Keys: o.Value.Len()})
		opts.log("Merged %s -> %s (%d keys)", o.Input, ns, o.Value.Len())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// collect returns the slash-separated relative paths of every JSON file
// under root, sorted so merge order does not depend on read timing.
func collect(root string) ([]string, error) {
	var rels []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(rels)
	return rels, nil
}
