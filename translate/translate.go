// Package translate sends changed source entries to a translation backend
// in bounded chunks and language batches, validating every response and
// retrying failed calls with exponential backoff.
//
// Backends implement Translator. Two are provided: an OpenAI-compatible
// chat-completions client (openai, groq, ollama, custom-openai) and an
// AWS Lambda function invoker.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/exilekit/langsync/changes"
	"github.com/exilekit/langsync/document"
)

// ---------------------------------------------------------------------------
// Error kinds
// ---------------------------------------------------------------------------

var (
	// ErrTransport marks a call that did not produce a response body:
	// network failure, non-2xx status, or an API error payload.
	ErrTransport = errors.New("translation call failed")
	// ErrValidation marks a response that was received but is not a JSON
	// object holding an object for every requested language.
	ErrValidation = errors.New("invalid translation response")
	// ErrRetriesExhausted wraps the last error once every attempt failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Kind returns a short label for the error kind, for logs.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Translator
// ---------------------------------------------------------------------------

// Request is one translation call: a chunk of dotted path -> source value
// entries and the languages to translate it into.
type Request struct {
	Chunk     *document.Object
	Languages []string
}

// Translator performs a single translation call and returns the raw JSON
// response: an object keyed by language code.
type Translator interface {
	Translate(ctx context.Context, req Request) ([]byte, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, req Request) ([]byte, error)

// Translate implements Translator.
func (f TranslatorFunc) Translate(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls chunking, batching, and retries.
type Options struct {
	// ChunkSize is the maximum number of entries per call (default 10).
	ChunkSize int
	// BatchSize is the maximum number of languages per call (default 3).
	BatchSize int
	// MaxRetries is the number of attempts per batch (default 3).
	MaxRetries int
	// RetryDelay is the base backoff; attempt n waits RetryDelay*2^(n-1).
	// Zero disables waiting.
	RetryDelay time.Duration
	// BatchDelay is the pause between language batches of a chunk.
	// Zero disables waiting.
	BatchDelay time.Duration
	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnError emits failures that were isolated and skipped.
	OnError func(format string, args ...any)
	// OnProgress is called after each chunk.
	OnProgress func(done, total int)
	// Verbose enables per-attempt logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) debug(format string, args ...any) {
	if o.Verbose {
		o.log(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveChunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return 10
}

func (o *Options) effectiveBatchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 3
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

// Backoff returns the wait before the attempt after a failed attempt n
// (1-based): base * 2^(n-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 1 {
		return 0
	}
	return base << (attempt - 1)
}

// ---------------------------------------------------------------------------
// Chunking
// ---------------------------------------------------------------------------

// Chunk splits a flat path -> value object into consecutive chunks of at
// most n entries, preserving order.
func Chunk(entries *document.Object, n int) []*document.Object {
	if n <= 0 {
		n = 10
	}
	var chunks []*document.Object
	var cur *document.Object
	for _, k := range entries.Keys() {
		if cur == nil || cur.Len() == n {
			cur = document.New()
			chunks = append(chunks, cur)
		}
		v, _ := entries.Get(k)
		cur.Set(k, v)
	}
	return chunks
}

// ChunkChanges merges added then modified entries of cs and chunks them.
func ChunkChanges(cs *changes.ChangeSet, n int) []*document.Object {
	return Chunk(cs.Translatable(), n)
}

// BatchLanguages splits langs into consecutive batches of at most n.
func BatchLanguages(langs []string, n int) [][]string {
	if n <= 0 {
		n = 3
	}
	var batches [][]string
	for i := 0; i < len(langs); i += n {
		end := i + n
		if end > len(langs) {
			end = len(langs)
		}
		batches = append(batches, langs[i:end])
	}
	return batches
}

// ---------------------------------------------------------------------------
// Retry loop
// ---------------------------------------------------------------------------

// Attempt calls t until it returns a valid response for every language
// in req, or until opts.MaxRetries attempts have failed. It returns the
// per-language translations restricted to the chunk's paths and the
// number of attempts made.
func Attempt(ctx context.Context, t Translator, req Request, opts Options) (map[string]*document.Object, int, error) {
	maxRetries := opts.effectiveMaxRetries()
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}
		opts.debug("Attempt %d/%d for %s", attempt, maxRetries, strings.Join(req.Languages, ", "))

		raw, err := t.Translate(ctx, req)
		if err == nil {
			var out map[string]*document.Object
			out, err = ParseResponse(raw, req)
			if err == nil {
				return out, attempt, nil
			}
		}
		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}
		lastErr = err
		opts.debug("Attempt %d failed (%s): %v", attempt, Kind(err), err)

		if attempt == maxRetries {
			break
		}

		wait := Backoff(opts.RetryDelay, attempt)
		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > wait {
			wait = se.RetryAfter
		}
		if wait > 0 {
			opts.debug("Waiting %v before retry", wait)
			if err := sleep(ctx, wait); err != nil {
				return nil, attempt, err
			}
		}
	}

	return nil, maxRetries, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxRetries, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Chunk x batch driver
// ---------------------------------------------------------------------------

// ChunkHandler receives the translations gathered for one chunk. An error
// marks the chunk as failed; later chunks still run.
type ChunkHandler func(ctx context.Context, index int, translations map[string]*document.Object) error

// BatchFailure records a language batch that exhausted its retries.
type BatchFailure struct {
	Chunk     int
	Languages []string
	Err       error
}

// Summary is the outcome of Run.
type Summary struct {
	Chunks           int
	SucceededChunks  int
	FailedChunks     int
	Batches          int
	FailedBatches    []BatchFailure
	TranslatedByLang map[string]int
}

// Run translates entries into langs. Chunks are processed one after
// another; within a chunk, language batches run sequentially and a
// successful batch is followed by opts.BatchDelay unless it is the last.
// A batch that exhausts its retries is dropped and logged; the chunk
// still delivers whatever batches succeeded. A chunk with no successful batch, or whose handler fails,
// counts as failed and the run moves on.
func Run(ctx context.Context, t Translator, entries *document.Object, langs []string, handle ChunkHandler, opts Options) (*Summary, error) {
	chunks := Chunk(entries, opts.effectiveChunkSize())
	batches := BatchLanguages(langs, opts.effectiveBatchSize())

	sum := &Summary{Chunks: len(chunks), TranslatedByLang: make(map[string]int)}
	if len(chunks) == 0 {
		return sum, nil
	}
	opts.log("Split into %d chunks for translation (max %d keys per chunk)", len(chunks), opts.effectiveChunkSize())

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		opts.log("Processing chunk %d/%d: %d keys, %d characters", i+1, len(chunks), chunk.Len(), chunkChars(chunk))
		opts.log("Sample keys: %s", changes.Preview(chunk.Keys(), 3))

		merged := make(map[string]*document.Object)
		for b, batch := range batches {
			opts.log("Translating to: %s (batch %d/%d)", strings.Join(batch, ", "), b+1, len(batches))
			sum.Batches++

			result, attempts, err := Attempt(ctx, t, Request{Chunk: chunk, Languages: batch}, opts)
			if err != nil {
				if ctx.Err() != nil {
					return sum, ctx.Err()
				}
				opts.logError("Failed to translate batch %d of chunk %d: %v", b+1, i+1, err)
				sum.FailedBatches = append(sum.FailedBatches, BatchFailure{Chunk: i, Languages: batch, Err: err})
				continue
			}
			if attempts > 1 {
				opts.debug("Batch %d succeeded after %d attempts", b+1, attempts)
			}
			for lang, obj := range result {
				merged[lang] = obj
			}
			if b < len(batches)-1 && opts.BatchDelay > 0 {
				opts.log("Waiting %v before next batch", opts.BatchDelay)
				if err := sleep(ctx, opts.BatchDelay); err != nil {
					return sum, err
				}
			}
		}

		if len(merged) == 0 {
			opts.logError("No translations were successful for chunk %d", i+1)
			sum.FailedChunks++
			progress(opts, i+1, len(chunks))
			continue
		}

		if err := handle(ctx, i, merged); err != nil {
			opts.logError("Failed to process chunk %d: %v", i+1, err)
			sum.FailedChunks++
			progress(opts, i+1, len(chunks))
			continue
		}
		for lang, obj := range merged {
			sum.TranslatedByLang[lang] += obj.Len()
		}
		sum.SucceededChunks++
		progress(opts, i+1, len(chunks))
	}

	return sum, nil
}

func progress(opts Options, done, total int) {
	if opts.OnProgress != nil {
		opts.OnProgress(done, total)
	}
}

func chunkChars(chunk *document.Object) int {
	data, err := chunk.MarshalJSON()
	if err != nil {
		return 0
	}
	return len([]rune(string(data)))
}
