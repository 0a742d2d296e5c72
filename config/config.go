// Package config — .langsync.yaml configuration file support.
//
// The file is optional. Every field has a default, so a project that keeps
// the conventional layout (translations-src/, translations/,
// .translation-cache/) needs no configuration at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/exilekit/langsync/cache"
	"github.com/exilekit/langsync/locale"
	"github.com/exilekit/langsync/locales"
	"github.com/exilekit/langsync/source"
	"github.com/exilekit/langsync/translate"
)

// FileName is the default config file name.
const FileName = ".langsync.yaml"

// Environment variables read by ApplyEnv.
const (
	EnvProjectName        = "NEXT_PUBLIC_PROJECT_NAME"
	EnvProjectDescription = "NEXT_PUBLIC_PROJECT_DESCRIPTION"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Duration is a time.Duration written as "2s" or "1500ms" in YAML. A bare
// integer is read as milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	return fmt.Errorf("line %d: invalid duration %q", value.Line, s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// File is the .langsync.yaml structure.
type File struct {
	// SourceDir holds the per-namespace source files.
	SourceDir string `yaml:"source_dir,omitempty"`
	// OutputDir receives <lang>.json files.
	OutputDir string `yaml:"output_dir,omitempty"`
	// CacheDir holds the snapshot of the last translated source.
	CacheDir string `yaml:"cache_dir,omitempty"`
	// DefaultLocale is the source-of-truth locale written by merge.
	DefaultLocale string `yaml:"default_locale,omitempty"`
	// Languages are the target locales.
	Languages []string `yaml:"languages,omitempty"`

	MaxKeysPerChunk   int      `yaml:"max_keys_per_chunk,omitempty"`
	LanguageBatchSize int      `yaml:"language_batch_size,omitempty"`
	MaxRetries        int      `yaml:"max_retries,omitempty"`
	RetryDelay        Duration `yaml:"retry_delay,omitempty"`
	APICallDelay      Duration `yaml:"api_call_delay,omitempty"`

	// Provider is one of translate.DefaultProviders().
	Provider string `yaml:"provider,omitempty"`
	// Model overrides the provider's model; for lambda it is the function.
	Model       string   `yaml:"model,omitempty"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty"`
	Proxy       string   `yaml:"proxy,omitempty"`

	ProjectName        string `yaml:"project_name,omitempty"`
	ProjectDescription string `yaml:"project_description,omitempty"`
	// Prompt is extra guidance appended to the system prompt.
	Prompt string `yaml:"prompt,omitempty"`
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		SourceDir:         source.DefaultDir,
		OutputDir:         locales.DefaultDir,
		CacheDir:          cache.DefaultDir,
		DefaultLocale:     locale.DefaultLocale,
		Languages:         append([]string(nil), locale.TargetLanguages...),
		MaxKeysPerChunk:   10,
		LanguageBatchSize: 3,
		MaxRetries:        3,
		RetryDelay:        Duration(2 * time.Second),
		APICallDelay:      Duration(time.Second),
		Provider:          translate.ProviderOpenAI,
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads FileName from rootDir over the defaults. found is false when
// the file does not exist; the defaults are returned in that case.
func Load(rootDir string) (f *File, found bool, err error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err = Parse(data)
	if err != nil {
		return nil, true, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, true, nil
}

// Parse decodes YAML over the defaults. Fields absent from data keep
// their default values.
func Parse(data []byte) (*File, error) {
	f := Default()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ApplyEnv fills project metadata from the environment when unset.
func (f *File) ApplyEnv() {
	if f.ProjectName == "" {
		f.ProjectName = os.Getenv(EnvProjectName)
	}
	if f.ProjectDescription == "" {
		f.ProjectDescription = os.Getenv(EnvProjectDescription)
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func init() {
	// Report field errors under their YAML names.
	validation.ErrorTag = "yaml"
}

// Validate checks the configuration. The error, when not nil, is a
// validation.Errors keyed by YAML field name.
func (f *File) Validate() error {
	providers := translate.DefaultProviders()
	providerIDs := make([]any, 0, len(providers))
	for id := range providers {
		providerIDs = append(providerIDs, id)
	}

	errs := validation.Errors{}
	if err := validation.ValidateStruct(f,
		validation.Field(&f.SourceDir, validation.Required),
		validation.Field(&f.OutputDir, validation.Required),
		validation.Field(&f.CacheDir, validation.Required),
		validation.Field(&f.DefaultLocale, validation.Required),
		validation.Field(&f.Languages, validation.Required),
		validation.Field(&f.MaxKeysPerChunk, validation.Min(1)),
		validation.Field(&f.LanguageBatchSize, validation.Min(1)),
		validation.Field(&f.MaxRetries, validation.Min(1)),
		validation.Field(&f.RetryDelay, validation.Min(Duration(0))),
		validation.Field(&f.APICallDelay, validation.Min(Duration(0))),
		validation.Field(&f.Provider, validation.Required, validation.In(providerIDs...)),
		validation.Field(&f.Temperature, validation.Min(0.0), validation.Max(2.0)),
	); err != nil {
		if fieldErrs, ok := err.(validation.Errors); ok {
			for k, v := range fieldErrs {
				errs[k] = v
			}
		} else {
			return err
		}
	}

	if msg := f.languageProblem(); msg != "" {
		errs["languages"] = validation.NewError("validation_languages", msg)
	}
	if f.Provider == translate.ProviderCustomOpenAI && f.BaseURL == "" {
		errs["base_url"] = validation.NewError("validation_base_url", "is required for the custom-openai provider")
	}
	if f.Provider == translate.ProviderLambda && f.Model == "" {
		errs["model"] = validation.NewError("validation_model", "must name the Lambda function for the lambda provider")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (f *File) languageProblem() string {
	seen := make(map[string]bool, len(f.Languages))
	for _, l := range f.Languages {
		switch {
		case strings.TrimSpace(l) == "":
			return "must not contain empty codes"
		case seen[l]:
			return fmt.Sprintf("contains %q twice", l)
		case l == f.DefaultLocale:
			return fmt.Sprintf("must not include the default locale %q", l)
		}
		seen[l] = true
	}
	return ""
}

// ---------------------------------------------------------------------------
// Derived settings
// ---------------------------------------------------------------------------

// Resolve makes the directory fields absolute relative to rootDir.
func (f *File) Resolve(rootDir string) {
	for _, p := range []*string{&f.SourceDir, &f.OutputDir, &f.CacheDir} {
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(rootDir, *p)
		}
	}
}

// ProviderConfig returns the provider definition with the file's
// overrides applied. The API key is left empty.
func (f *File) ProviderConfig() (translate.Provider, error) {
	prov, ok := translate.DefaultProviders()[f.Provider]
	if !ok {
		return translate.Provider{}, fmt.Errorf("unknown provider %q", f.Provider)
	}
	if f.Model != "" {
		prov.Model = f.Model
	}
	if f.BaseURL != "" {
		prov.BaseURL = f.BaseURL
	}
	if f.Temperature != nil {
		prov.Temperature = *f.Temperature
	}
	if f.Timeout > 0 {
		prov.Timeout = time.Duration(f.Timeout)
	}
	prov.Proxy = f.Proxy
	return prov, nil
}

// TranslateOptions returns chunking and retry settings.
func (f *File) TranslateOptions() translate.Options {
	return translate.Options{
		ChunkSize:  f.MaxKeysPerChunk,
		BatchSize:  f.LanguageBatchSize,
		MaxRetries: f.MaxRetries,
		RetryDelay: time.Duration(f.RetryDelay),
		BatchDelay: time.Duration(f.APICallDelay),
	}
}

// PromptContext returns the project context for translation prompts.
func (f *File) PromptContext() translate.Prompt {
	return translate.Prompt{
		ProjectName:        f.ProjectName,
		ProjectDescription: f.ProjectDescription,
		Guidance:           f.Prompt,
	}
}
