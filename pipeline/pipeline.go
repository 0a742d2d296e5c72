// Package pipeline runs one translation sync: merge the source tree, diff
// it against the cached snapshot, translate added and modified entries,
// remove deleted keys from every locale, and refresh the cache.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/exilekit/langsync/cache"
	"github.com/exilekit/langsync/changes"
	"github.com/exilekit/langsync/document"
	"github.com/exilekit/langsync/locales"
	"github.com/exilekit/langsync/source"
	"github.com/exilekit/langsync/translate"
)

var (
	// ErrSourceMissing is returned when the source directory does not exist.
	ErrSourceMissing = source.ErrSourceMissing
	// ErrCredentialMissing is returned when there is something to translate
	// but no translator was configured.
	ErrCredentialMissing = errors.New("no translator configured (missing API key?)")
)

// ---------------------------------------------------------------------------
// States
// ---------------------------------------------------------------------------

// State is a step of a run.
type State int

const (
	Idle State = iota
	Diffing
	NoChanges
	HasChanges
	Translating
	Removing
	CacheUpdate
	Done
)

var stateNames = [...]string{"idle", "diffing", "no-changes", "has-changes", "translating", "removing", "cache-update", "done"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options configures a run.
type Options struct {
	SourceDir string
	OutputDir string
	CacheDir  string
	// Languages are the target locales that receive translations and
	// removals.
	Languages []string
	// Translator performs translation calls. It may be nil when the run
	// only removes keys.
	Translator translate.Translator
	// Translate controls chunking, batching, and retries.
	Translate translate.Options
	// Force ignores the cached snapshot so every entry counts as added.
	Force bool
	// DryRun reports diffs without touching locale files or the cache.
	DryRun bool
	// MaxConcurrent bounds concurrent file reads and writes.
	MaxConcurrent int

	OnLog   func(format string, args ...any)
	OnWarn  func(format string, args ...any)
	OnError func(format string, args ...any)
	OnDiff  func(lang, diff string)
	OnState func(State)
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

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) effectiveSourceDir() string {
	if o.SourceDir != "" {
		return o.SourceDir
	}
	return source.DefaultDir
}

func (o *Options) effectiveOutputDir() string {
	if o.OutputDir != "" {
		return o.OutputDir
	}
	return locales.DefaultDir
}

func (o *Options) effectiveCacheDir() string {
	if o.CacheDir != "" {
		return o.CacheDir
	}
	return cache.DefaultDir
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Summary describes a finished run.
type Summary struct {
	RunID string
	// State is the last state reached.
	State     State
	Files     int
	Skipped   int
	Changes   *changes.ChangeSet
	Translate *translate.Summary
	// Applied counts translated paths written per locale.
	Applied map[string]int
	// FailedWrites counts locale files that could not be updated.
	FailedWrites int
	Removed      []locales.RemoveResult
	CacheUpdated bool
	Duration     time.Duration
}

// Plan merges the source tree and diffs it against the cache without
// writing anything.
func Plan(ctx context.Context, opts Options) (*source.Result, *changes.ChangeSet, error) {
	res, err := source.Merge(ctx, opts.effectiveSourceDir(), source.Options{
		MaxConcurrent: opts.MaxConcurrent,
		OnWarn:        opts.OnWarn,
	})
	if err != nil {
		return nil, nil, err
	}

	var previous *document.Object
	if opts.Force {
		opts.log("Ignoring cache, treating all content as new")
	} else {
		previous, err = cache.New(opts.effectiveCacheDir()).Load()
		switch {
		case errors.Is(err, cache.ErrCorrupt):
			opts.warn("%v; treating all content as new", err)
			previous = nil
		case err != nil:
			return nil, nil, err
		case previous == nil:
			opts.log("No cache found, treating all content as new")
		}
	}

	return res, changes.Detect(res.Doc, previous), nil
}

// Run executes one sync. It returns an error only for fatal conditions:
// a missing source directory, a missing translator, an unreadable cache,
// cancellation, or a failed cache write. Translation and per-locale
// failures are logged and counted in the summary.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: uuid.NewString(), Applied: make(map[string]int)}
	enter := func(s State) {
		sum.State = s
		if opts.OnState != nil {
			opts.OnState(s)
		}
	}
	defer func() { sum.Duration = time.Since(start) }()

	enter(Idle)
	opts.log("Run %s: detecting changes in %s", sum.RunID, opts.effectiveSourceDir())

	enter(Diffing)
	res, cs, err := Plan(ctx, opts)
	if err != nil {
		return sum, err
	}
	sum.Files = len(res.Files)
	sum.Skipped = len(res.Skipped)
	sum.Changes = cs

	if cs.Empty() {
		enter(NoChanges)
		opts.log("No changes detected, skipping translation")
		return sum, nil
	}

	enter(HasChanges)
	logChanges(opts, cs)

	entries := cs.Translatable()
	if entries.Len() > 0 && opts.Translator == nil {
		return sum, ErrCredentialMissing
	}

	store := locales.NewStore(opts.effectiveOutputDir())
	lopts := locales.Options{
		DryRun:        opts.DryRun,
		MaxConcurrent: opts.MaxConcurrent,
		OnLog:         opts.OnLog,
		OnError:       opts.OnError,
		OnDiff:        opts.OnDiff,
	}

	if entries.Len() > 0 {
		enter(Translating)
		topts := opts.Translate
		if topts.OnLog == nil {
			topts.OnLog = opts.OnLog
		}
		if topts.OnError == nil {
			topts.OnError = opts.OnError
		}

		tsum, err := translate.Run(ctx, opts.Translator, entries, opts.Languages,
			func(ctx context.Context, _ int, translations map[string]*document.Object) error {
				results := store.Apply(ctx, translations, lopts)
				failed := 0
				for _, r := range results {
					if r.Err != nil {
						failed++
						continue
					}
					sum.Applied[r.Lang] += r.Applied
				}
				sum.FailedWrites += failed
				if failed > 0 {
					opts.warn("Failed to update %d language files", failed)
				}
				if failed == len(results) {
					return fmt.Errorf("no language file could be updated")
				}
				return nil
			}, topts)
		sum.Translate = tsum
		if err != nil {
			return sum, err
		}

		opts.log("Translation summary: %d/%d chunks succeeded", tsum.SucceededChunks, tsum.Chunks)
		if tsum.FailedChunks > 0 {
			opts.logError("Failed chunks: %d/%d", tsum.FailedChunks, tsum.Chunks)
		}
	}

	if len(cs.Removed) > 0 {
		enter(Removing)
		opts.log("Removing %d deleted keys from all languages", len(cs.Removed))
		sum.Removed = store.Remove(ctx, opts.Languages, cs.Removed, lopts)
		failed := 0
		for _, r := range sum.Removed {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			opts.warn("Failed to clean %d language files", failed)
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
	}

	enter(CacheUpdate)
	if opts.DryRun {
		opts.log("Dry run: cache not updated")
	} else {
		if err := cache.New(opts.effectiveCacheDir()).Save(res.Doc, sum.RunID); err != nil {
			return sum, fmt.Errorf("saving cache: %w", err)
		}
		sum.CacheUpdated = true
		opts.log("Saved cache for %s", opts.effectiveSourceDir())
	}

	enter(Done)
	return sum, nil
}

func logChanges(opts Options, cs *changes.ChangeSet) {
	opts.log("Found changes:")
	if n := cs.Added.Len(); n > 0 {
		opts.log("  Added: %d keys (%s)", n, changes.Preview(cs.Added.Keys(), 3))
	}
	if n := cs.Modified.Len(); n > 0 {
		opts.log("  Modified: %d keys (%s)", n, changes.Preview(cs.Modified.Keys(), 3))
	}
	if n := len(cs.Removed); n > 0 {
		opts.log("  Removed: %d keys (%s)", n, changes.Preview(cs.Removed, 3))
	}
}
