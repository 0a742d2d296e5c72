package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/exilekit/langsync/config"
	"github.com/exilekit/langsync/document"
	"github.com/exilekit/langsync/pipeline"
	"github.com/exilekit/langsync/settings"
	"github.com/exilekit/langsync/translate"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestParseLangs(t *testing.T) {
	got := parseLangs(" de,fr,, de ,nl")
	want := []string{"de", "fr", "nl"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseLangs() = %#v, want %#v", got, want)
	}
	if got := parseLangs(""); got != nil {
		t.Fatalf("parseLangs(\"\") = %#v, want nil", got)
	}
}

func TestOverridesApplyOnlyChangedFlags(t *testing.T) {
	f := config.Default()
	ov := overrides{
		langs:      "de,fr",
		chunkSize:  4,
		maxRetries: 9,
		delay:      250 * time.Millisecond,
		provider:   translate.ProviderGroq,
	}
	changed := map[string]bool{"lang": true, "chunk-size": true, "delay": true}
	ov.apply(f, func(name string) bool { return changed[name] })

	if !reflect.DeepEqual(f.Languages, []string{"de", "fr"}) {
		t.Errorf("Languages = %v", f.Languages)
	}
	if f.MaxKeysPerChunk != 4 {
		t.Errorf("MaxKeysPerChunk = %d, want 4", f.MaxKeysPerChunk)
	}
	if time.Duration(f.APICallDelay) != 250*time.Millisecond {
		t.Errorf("APICallDelay = %v", time.Duration(f.APICallDelay))
	}
	if f.MaxRetries != 3 || f.Provider != translate.ProviderOpenAI {
		t.Errorf("unchanged flags were applied: retries=%d provider=%s", f.MaxRetries, f.Provider)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		want    string
	}{
		{name: "clamps below zero", percent: -10, want: colorRed + "░░░░" + colorReset + "   0%"},
		{name: "mid range uses yellow", percent: 50, want: colorYellow + "██░░" + colorReset + "  50%"},
		{name: "clamps above hundred", percent: 120, want: colorGreen + "████" + colorReset + " 100%"},
	}
	for _, tc := range tests {
		if got := progressBar(tc.percent, 4); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLoadProject(t *testing.T) {
	t.Setenv(config.EnvProjectName, "")
	t.Setenv(config.EnvProjectDescription, "")

	t.Run("defaults without a config file", func(t *testing.T) {
		root := t.TempDir()
		f, err := loadProject(root, overrides{}, nil)
		if err != nil {
			t.Fatalf("loadProject: %v", err)
		}
		if f.SourceDir != filepath.Join(root, "translations-src") {
			t.Fatalf("SourceDir = %q", f.SourceDir)
		}
		if f.ProjectName != filepath.Base(root) {
			t.Fatalf("ProjectName = %q, want directory name", f.ProjectName)
		}
	})

	t.Run("invalid override is rejected", func(t *testing.T) {
		root := t.TempDir()
		changed := func(name string) bool { return name == "lang" }
		_, err := loadProject(root, overrides{langs: "en,de"}, changed)
		if err == nil || !strings.Contains(err.Error(), "languages") {
			t.Fatalf("loadProject() error = %v, want a languages error", err)
		}
	})
}

func TestBuildTranslatorMissingKey(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv(settings.EnvAPIKey, "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := buildTranslator(context.Background(), config.Default(), "")
	if !errors.Is(err, pipeline.ErrCredentialMissing) {
		t.Fatalf("buildTranslator() error = %v, want ErrCredentialMissing", err)
	}

	tr, err := buildTranslator(context.Background(), config.Default(), "sk-test-0000")
	if err != nil || tr == nil {
		t.Fatalf("buildTranslator() with flag key = %v, %v", tr, err)
	}
}

func TestRunMerge(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "translations-src", "common.json"), `{"save":"Save"}`)
	writeFile(t, filepath.Join(root, "translations-src", "pages", "Home.json"), `{"title":"Home"}`)

	f, err := loadProject(root, overrides{}, nil)
	if err != nil {
		t.Fatalf("loadProject: %v", err)
	}
	if err := runMerge(context.Background(), f, 0); err != nil {
		t.Fatalf("runMerge: %v", err)
	}

	doc, err := document.ParseFile(filepath.Join(root, "translations", "en.json"))
	if err != nil {
		t.Fatalf("reading en.json: %v", err)
	}
	if got := doc.LeafPaths(); !reflect.DeepEqual(got, []string{"common.save", "pages.home.title"}) {
		t.Fatalf("en.json paths = %v", got)
	}
}

func TestRunMergeMissingSource(t *testing.T) {
	f, err := loadProject(t.TempDir(), overrides{}, nil)
	if err != nil {
		t.Fatalf("loadProject: %v", err)
	}
	if err := runMerge(context.Background(), f, 0); !errors.Is(err, pipeline.ErrSourceMissing) {
		t.Fatalf("runMerge() error = %v, want ErrSourceMissing", err)
	}
}

func TestRunTranslateAgainstChatServer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		content := `{"de":{"common.save":"Speichern"}}`
		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "translations-src", "common.json"), `{"save":"Save"}`)
	writeFile(t, filepath.Join(root, config.FileName), "languages: [de]\n"+
		"provider: ollama\n"+
		"model: test-model\n"+
		"base_url: "+srv.URL+"/v1\n"+
		"retry_delay: 0s\n"+
		"api_call_delay: 0s\n")

	f, err := loadProject(root, overrides{}, nil)
	if err != nil {
		t.Fatalf("loadProject: %v", err)
	}

	if err := runTranslate(f, translateArgs{}); err != nil {
		t.Fatalf("runTranslate: %v", err)
	}
	doc, err := document.ParseFile(filepath.Join(root, "translations", "de.json"))
	if err != nil {
		t.Fatalf("reading de.json: %v", err)
	}
	if v, _ := doc.Lookup("common.save"); v != "Speichern" {
		t.Fatalf("de common.save = %v, want Speichern", v)
	}

	if err := runTranslate(f, translateArgs{}); err != nil {
		t.Fatalf("second runTranslate: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("chat calls = %d, want 1 (second run has no changes)", n)
	}
}

func TestAuthLogin(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	provs := translate.DefaultProviders()

	in := bufio.NewScanner(strings.NewReader("http://llm.local/v1\nsk-custom-0001\n"))
	if err := authLogin(in, provs[translate.ProviderCustomOpenAI]); err != nil {
		t.Fatalf("authLogin: %v", err)
	}
	c := settings.Get(translate.ProviderCustomOpenAI)
	if c == nil || c.Key != "sk-custom-0001" || c.BaseURL != "http://llm.local/v1" {
		t.Fatalf("stored credential = %+v", c)
	}

	// An empty answer keeps the stored key.
	in = bufio.NewScanner(strings.NewReader("\n\n"))
	if err := authLogin(in, provs[translate.ProviderCustomOpenAI]); err != nil {
		t.Fatalf("authLogin keep: %v", err)
	}
	if c := settings.Get(translate.ProviderCustomOpenAI); c.Key != "sk-custom-0001" || c.BaseURL != "http://llm.local/v1" {
		t.Fatalf("credential after keep = %+v", c)
	}

	in = bufio.NewScanner(strings.NewReader("\n"))
	if err := authLogin(in, provs[translate.ProviderGroq]); err == nil {
		t.Fatal("authLogin accepted an empty key")
	}
}
