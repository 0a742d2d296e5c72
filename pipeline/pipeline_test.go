package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/exilekit/langsync/cache"
	"github.com/exilekit/langsync/document"
	"github.com/exilekit/langsync/translate"
)

type project struct {
	root  string
	opts  Options
	calls int
}

func newProject(t *testing.T, langs ...string) *project {
	t.Helper()
	root := t.TempDir()
	p := &project{root: root}
	p.opts = Options{
		SourceDir: filepath.Join(root, "translations-src"),
		OutputDir: filepath.Join(root, "translations"),
		CacheDir:  filepath.Join(root, ".translation-cache"),
		Languages: langs,
		Translator: translate.TranslatorFunc(func(_ context.Context, req translate.Request) ([]byte, error) {
			p.calls++
			resp := document.New()
			for _, l := range req.Languages {
				obj := document.New()
				for _, k := range req.Chunk.Keys() {
					v, _ := req.Chunk.Get(k)
					obj.Set(k, fmt.Sprintf("%s:%v", l, v))
				}
				resp.Set(l, obj)
			}
			return resp.MarshalJSON()
		}),
	}
	return p
}

func (p *project) writeSource(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(p.opts.SourceDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func (p *project) locale(t *testing.T, lang string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.opts.OutputDir, lang+".json"))
	if err != nil {
		t.Fatalf("reading %s.json: %v", lang, err)
	}
	return string(data)
}

func TestRun_FirstRunTranslatesEverything(t *testing.T) {
	p := newProject(t, "de", "fr")
	p.writeSource(t, "common.json", `{"save":"Save","cancel":"Cancel"}`)

	var states []State
	p.opts.OnState = func(s State) { states = append(states, s) }

	sum, err := Run(context.Background(), p.opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "{\n  \"common\": {\n    \"save\": \"de:Save\",\n    \"cancel\": \"de:Cancel\"\n  }\n}\n"
	if got := p.locale(t, "de"); got != want {
		t.Fatalf("de.json =\n%s\nwant\n%s", got, want)
	}
	if sum.Applied["fr"] != 2 || sum.Changes.Added.Len() != 2 || !sum.CacheUpdated {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.RunID == "" {
		t.Error("RunID is empty")
	}
	if wantStates := []State{Idle, Diffing, HasChanges, Translating, CacheUpdate, Done}; !reflect.DeepEqual(states, wantStates) {
		t.Fatalf("states = %v, want %v", states, wantStates)
	}

	snap, err := cache.New(p.opts.CacheDir).Load()
	if err != nil || snap == nil {
		t.Fatalf("cache Load = %v, %v", snap, err)
	}
	if v, _ := snap.Lookup("common.save"); v != "Save" {
		t.Fatalf("cached common.save = %v", v)
	}
}

func TestRun_NoChangesTouchesNothing(t *testing.T) {
	p := newProject(t, "de")
	p.writeSource(t, "common.json", `{"save":"Save"}`)
	if _, err := Run(context.Background(), p.opts); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	calls := p.calls
	before := p.locale(t, "de")
	stateBefore, _ := cache.New(p.opts.CacheDir).State()

	sum, err := Run(context.Background(), p.opts)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.State != NoChanges {
		t.Fatalf("State = %v, want %v", sum.State, NoChanges)
	}
	if p.calls != calls {
		t.Fatalf("translator called %d more times", p.calls-calls)
	}
	if got := p.locale(t, "de"); got != before {
		t.Fatalf("de.json changed:\n%s", got)
	}
	stateAfter, _ := cache.New(p.opts.CacheDir).State()
	if stateAfter.RunID != stateBefore.RunID {
		t.Fatal("cache rewritten on a run without changes")
	}
}

func TestRun_ModifiedAndRemovedKeys(t *testing.T) {
	p := newProject(t, "de", "ru")
	p.writeSource(t, "common.json", `{"save":"Save","cancel":"Cancel"}`)
	p.writeSource(t, "pages/Home.json", `{"title":"Home"}`)
	if _, err := Run(context.Background(), p.opts); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := os.Remove(filepath.Join(p.opts.OutputDir, "ru.json")); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	p.writeSource(t, "common.json", `{"save":"Save now"}`)
	if err := os.Remove(filepath.Join(p.opts.SourceDir, "pages", "Home.json")); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	sum, err := Run(context.Background(), p.opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := sum.Changes.Modified.Keys(); !reflect.DeepEqual(got, []string{"common.save"}) {
		t.Fatalf("modified = %v", got)
	}
	if got := sum.Changes.Removed; !reflect.DeepEqual(got, []string{"common.cancel", "pages.home.title"}) {
		t.Fatalf("removed = %v", got)
	}

	want := "{\n  \"common\": {\n    \"save\": \"de:Save now\"\n  }\n}\n"
	if got := p.locale(t, "de"); got != want {
		t.Fatalf("de.json =\n%s\nwant\n%s", got, want)
	}
	// ru.json is recreated by the translation, never by the removal.
	if got, want := p.locale(t, "ru"), "{\n  \"common\": {\n    \"save\": \"ru:Save now\"\n  }\n}\n"; got != want {
		t.Fatalf("ru.json =\n%s\nwant\n%s", got, want)
	}
}

func TestRun_RemovalOnlyNeedsNoTranslator(t *testing.T) {
	p := newProject(t, "de")
	p.writeSource(t, "a.json", `{"x":"X","y":"Y"}`)
	if _, err := Run(context.Background(), p.opts); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	p.writeSource(t, "a.json", `{"x":"X"}`)
	p.opts.Translator = nil
	sum, err := Run(context.Background(), p.opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.State != Done || len(sum.Removed) != 1 || sum.Removed[0].Removed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestRun_MissingTranslator(t *testing.T) {
	p := newProject(t, "de")
	p.writeSource(t, "a.json", `{"x":"X"}`)
	p.opts.Translator = nil

	_, err := Run(context.Background(), p.opts)
	if !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("Run error = %v, want ErrCredentialMissing", err)
	}
	if snap, _ := cache.New(p.opts.CacheDir).Load(); snap != nil {
		t.Fatal("cache written after a fatal error")
	}
}

func TestRun_MissingSource(t *testing.T) {
	p := newProject(t, "de")
	_, err := Run(context.Background(), p.opts)
	if !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("Run error = %v, want ErrSourceMissing", err)
	}
}

func TestRun_DryRun(t *testing.T) {
	p := newProject(t, "de")
	p.writeSource(t, "a.json", `{"x":"X"}`)
	p.opts.DryRun = true

	var diffs []string
	p.opts.OnDiff = func(lang, d string) { diffs = append(diffs, lang) }

	sum, err := Run(context.Background(), p.opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.CacheUpdated {
		t.Error("dry run updated the cache")
	}
	if _, err := os.Stat(filepath.Join(p.opts.OutputDir, "de.json")); !os.IsNotExist(err) {
		t.Error("dry run wrote de.json")
	}
	if !reflect.DeepEqual(diffs, []string{"de"}) {
		t.Fatalf("diffs = %v", diffs)
	}
}

func TestRun_FailedChunksStillUpdateCache(t *testing.T) {
	p := newProject(t, "de")
	p.writeSource(t, "a.json", `{"x":"X"}`)
	p.opts.Translator = translate.TranslatorFunc(func(context.Context, translate.Request) ([]byte, error) {
		return nil, translate.ErrTransport
	})
	p.opts.Translate.MaxRetries = 1

	sum, err := Run(context.Background(), p.opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Translate.FailedChunks != 1 || !sum.CacheUpdated {
		t.Fatalf("summary = %+v, translate = %+v", sum, sum.Translate)
	}
}

func TestPlan_ForceIgnoresCache(t *testing.T) {
	p := newProject(t, "de")
	p.writeSource(t, "a.json", `{"x":"X"}`)
	if _, err := Run(context.Background(), p.opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	_, cs, err := Plan(context.Background(), p.opts)
	if err != nil || !cs.Empty() {
		t.Fatalf("Plan = %+v, %v; want no changes", cs, err)
	}

	p.opts.Force = true
	_, cs, err = Plan(context.Background(), p.opts)
	if err != nil || cs.Added.Len() != 1 {
		t.Fatalf("forced Plan = %+v, %v; want 1 added", cs, err)
	}
}

func TestStateString(t *testing.T) {
	if got := CacheUpdate.String(); got != "cache-update" {
		t.Fatalf("CacheUpdate.String() = %q", got)
	}
}
