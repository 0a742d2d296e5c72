// Package locales reads and rewrites the per-locale output documents
// (translations/<lang>.json).
//
// Every locale owns its own file, so writes for different locales run
// concurrently. A failure in one locale never stops the others: each
// operation returns one result per locale.
package locales

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/exilekit/langsync/document"
	"github.com/exilekit/langsync/parallel"
)

// DefaultDir is the conventional output directory name.
const DefaultDir = "translations"

// Store is a directory of <lang>.json files.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for a locale.
func (s *Store) Path(lang string) string {
	return filepath.Join(s.dir, lang+".json")
}

// Read loads a locale document. A missing file yields an empty document
// and exists == false; any other failure is returned.
func (s *Store) Read(lang string) (doc *document.Object, exists bool, err error) {
	doc, err = document.ParseFile(s.Path(lang))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document.New(), false, nil
		}
		return nil, false, err
	}
	return doc, true, nil
}

// Write atomically replaces a locale document.
func (s *Store) Write(lang string, doc *document.Object) error {
	if err := document.WriteFile(s.Path(lang), doc); err != nil {
		return fmt.Errorf("writing %s: %w", s.Path(lang), err)
	}
	return nil
}

// Languages lists the locale codes that have a file in the store.
func (s *Store) Languages() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	langs := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		langs = append(langs, base[:len(base)-len(".json")])
	}
	sort.Strings(langs)
	return langs, nil
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls apply and remove operations.
type Options struct {
	// DryRun computes results and diffs without writing files.
	DryRun bool
	// MaxConcurrent bounds concurrent locale writes (0 = one per locale).
	MaxConcurrent int
	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnError emits path-level and file-level failures.
	OnError func(format string, args ...any)
	// OnDiff receives a unified diff for every locale whose content would
	// change. Only called when set.
	OnDiff func(lang, diff string)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// ---------------------------------------------------------------------------
// Apply translations
// ---------------------------------------------------------------------------

// ApplyResult reports what happened to one locale during Apply.
type ApplyResult struct {
	Lang    string
	Applied int
	Failed  int
	Created bool
	Err     error
}

// Apply merges translated entries into each locale file. Each entry of
// a locale's object is a dotted path and its translated value.
//
// A nested object value is merged leaf by leaf into an existing object
// at that path, and replaces anything else.
func (s *Store) Apply(ctx context.Context, translations map[string]*document.Object, opts Options) []ApplyResult {
	langs := make([]string, 0, len(translations))
	for lang := range translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	outcomes := parallel.Settle(ctx, langs, opts.MaxConcurrent, func(_ context.Context, lang string) (ApplyResult, error) {
		return s.applyOne(lang, translations[lang], opts)
	})

	results := make([]ApplyResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.Value
		results[i].Lang = o.Input
		if o.Err != nil {
			results[i].Err = o.Err
			opts.logError("Failed to update %s.json: %v", o.Input, o.Err)
		}
	}
	return results
}

func (s *Store) applyOne(lang string, entries *document.Object, opts Options) (ApplyResult, error) {
	res := ApplyResult{Lang: lang}
	if entries == nil {
		return res, fmt.Errorf("invalid translation content for %s", lang)
	}

	doc, exists, err := s.Read(lang)
	if err != nil {
		return res, err
	}
	res.Created = !exists
	if !exists {
		opts.log("Creating new file for %s", lang)
	}

	before, err := doc.Marshal()
	if err != nil {
		return res, err
	}

	for _, path := range entries.Keys() {
		v, _ := entries.Get(path)
		if err := applyValue(doc, path, v); err != nil {
			opts.logError("%s: cannot apply %s: %v", lang, path, err)
			res.Failed++
			continue
		}
		res.Applied++
	}

	if err := s.commit(lang, before, doc, opts); err != nil {
		return res, err
	}
	opts.log("Updated %s.json (%d applied, %d failed)", lang, res.Applied, res.Failed)
	return res, nil
}

func applyValue(doc *document.Object, path string, v any) error {
	obj, ok := v.(*document.Object)
	if !ok {
		return doc.SetPath(path, v)
	}
	existing, ok := doc.Lookup(path)
	if !ok || !document.IsObject(existing) {
		return doc.SetPath(path, obj.Clone())
	}
	for _, leaf := range obj.Leaves() {
		if err := doc.SetPath(path+"."+leaf.Path, leaf.Value); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Remove keys
// ---------------------------------------------------------------------------

// RemoveResult reports what happened to one locale during Remove.
type RemoveResult struct {
	Lang    string
	Removed int
	// Missing is set when the locale has no file; nothing is created.
	Missing bool
	Err     error
}

// Remove deletes every path from each locale file, then prunes empty
// namespaces bottom-up. Paths whose parents do not exist are ignored.
func (s *Store) Remove(ctx context.Context, langs []string, paths []string, opts Options) []RemoveResult {
	outcomes := parallel.Settle(ctx, langs, opts.MaxConcurrent, func(_ context.Context, lang string) (RemoveResult, error) {
		return s.removeOne(lang, paths, opts)
	})

	results := make([]RemoveResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.Value
		results[i].Lang = o.Input
		if o.Err != nil {
			results[i].Err = o.Err
			opts.logError("Failed to clean %s.json: %v", o.Input, o.Err)
		}
	}
	return results
}

func (s *Store) removeOne(lang string, paths []string, opts Options) (RemoveResult, error) {
	res := RemoveResult{Lang: lang}

	doc, exists, err := s.Read(lang)
	if err != nil {
		return res, err
	}
	if !exists {
		res.Missing = true
		return res, nil
	}

	before, err := doc.Marshal()
	if err != nil {
		return res, err
	}

	for _, p := range paths {
		if doc.DeletePath(p) {
			res.Removed++
		}
	}
	doc.Prune()

	if err := s.commit(lang, before, doc, opts); err != nil {
		return res, err
	}
	opts.log("Cleaned %s.json (%d removed)", lang, res.Removed)
	return res, nil
}

// commit writes doc unless it is unchanged or this is a dry run, and
// reports a diff when requested.
func (s *Store) commit(lang string, before []byte, doc *document.Object, opts Options) error {
	after, err := doc.Marshal()
	if err != nil {
		return err
	}
	if bytes.Equal(before, after) {
		return nil
	}
	if opts.OnDiff != nil {
		name := filepath.ToSlash(filepath.Join(filepath.Base(s.dir), lang+".json"))
		opts.OnDiff(lang, Unified(name, before, after))
	}
	if opts.DryRun {
		return nil
	}
	return document.WriteAtomic(s.Path(lang), after, 0644)
}

// ---------------------------------------------------------------------------
// Coverage
// ---------------------------------------------------------------------------

// Coverage compares a locale's leaf paths with a reference document.
type Coverage struct {
	Lang    string
	Total   int
	Present int
	Missing []string
	Extra   []string
	Exists  bool
}

// Percent returns the share of reference paths present in the locale.
func (c Coverage) Percent() float64 {
	if c.Total == 0 {
		return 100
	}
	return float64(c.Present) * 100 / float64(c.Total)
}

// Coverage reports, for each locale, which reference leaf paths it has.
func (s *Store) Coverage(ref *document.Object, langs []string) ([]Coverage, error) {
	refPaths := ref.LeafPaths()
	refSet := make(map[string]bool, len(refPaths))
	for _, p := range refPaths {
		refSet[p] = true
	}

	out := make([]Coverage, 0, len(langs))
	for _, lang := range langs {
		doc, exists, err := s.Read(lang)
		if err != nil {
			return nil, err
		}
		cov := Coverage{Lang: lang, Total: len(refPaths), Exists: exists}
		have := make(map[string]bool)
		for _, p := range doc.LeafPaths() {
			have[p] = true
			if !refSet[p] {
				cov.Extra = append(cov.Extra, p)
			}
		}
		for _, p := range refPaths {
			if have[p] {
				cov.Present++
			} else {
				cov.Missing = append(cov.Missing, p)
			}
		}
		out = append(out, cov)
	}
	return out, nil
}
