// langsync keeps per-locale JSON message files in sync with an English
// source tree, translating only what changed since the last run.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/exilekit/langsync/cache"
	"github.com/exilekit/langsync/config"
	"github.com/exilekit/langsync/i18n"
	"github.com/exilekit/langsync/locale"
	"github.com/exilekit/langsync/locales"
	"github.com/exilekit/langsync/pipeline"
	"github.com/exilekit/langsync/server"
	"github.com/exilekit/langsync/settings"
	"github.com/exilekit/langsync/source"
	"github.com/exilekit/langsync/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
	colorGray   = "\033[0;90m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

func logDebug(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGray+"[DEBUG] "+format+colorReset+"\n", args...)
}

// fatal logs err and exits 1.
func fatal(err error) {
	logError("%v", err)
	os.Exit(1)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	uiLang  string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "langsync",
		Short: "Incremental AI translation of JSON locale files",
		Long: `langsync — incremental AI translation of JSON locale files.

English source strings live in translations-src/, one JSON file per
namespace. langsync merges them, compares the result with the snapshot from
the previous run, translates only added and modified strings, removes
deleted keys from every locale, and writes translations/<lang>.json.

Commands:
  translate   Translate changed strings into every target language
  merge       Write the merged English source to translations/en.json
  status      Show pending changes and per-locale coverage
  serve       Serve locale files to a web front-end
  auth        Manage provider API keys

Configuration is read from .langsync.yaml in the project root when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			i18n.Init(uiLang)
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&uiLang, "ui-lang", "", "Language of langsync's own messages (default: from LANG)")

	root.AddCommand(
		newTranslateCmd(),
		newMergeCmd(),
		newStatusCmd(),
		newServeCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logWarning("%s", i18n.T("Interrupted, stopping after the current step..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("langsync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Configuration helpers
// ---------------------------------------------------------------------------

// loadProject reads .langsync.yaml, fills project metadata, and applies
// overrides. The result is validated and its directories are absolute.
func loadProject(root string, ov overrides, changed func(string) bool) (*config.File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	f, found, err := config.Load(absRoot)
	if err != nil {
		return nil, err
	}
	if found {
		logInfo(i18n.T("Using %s"), filepath.Join(absRoot, config.FileName))
	}
	f.ApplyEnv()
	f.ApplyProject(config.Detect(absRoot))
	ov.apply(f, changed)

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.FileName, err)
	}
	f.Resolve(absRoot)
	return f, nil
}

// overrides are command-line values that replace config file settings
// when their flag was given.
type overrides struct {
	langs      string
	chunkSize  int
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	delay      time.Duration
	provider   string
	model      string
	baseURL    string
	proxy      string
	timeout    time.Duration
}

func (o overrides) apply(f *config.File, changed func(string) bool) {
	if changed == nil {
		return
	}
	if changed("lang") {
		f.Languages = parseLangs(o.langs)
	}
	if changed("chunk-size") {
		f.MaxKeysPerChunk = o.chunkSize
	}
	if changed("batch-size") {
		f.LanguageBatchSize = o.batchSize
	}
	if changed("max-retries") {
		f.MaxRetries = o.maxRetries
	}
	if changed("retry-delay") {
		f.RetryDelay = config.Duration(o.retryDelay)
	}
	if changed("delay") {
		f.APICallDelay = config.Duration(o.delay)
	}
	if changed("provider") {
		f.Provider = o.provider
	}
	if changed("model") {
		f.Model = o.model
	}
	if changed("base-url") {
		f.BaseURL = o.baseURL
	}
	if changed("proxy") {
		f.Proxy = o.proxy
	}
	if changed("timeout") {
		f.Timeout = config.Duration(o.timeout)
	}
}

// parseLangs splits a comma-separated language list, dropping blanks and
// duplicates.
func parseLangs(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		l := strings.TrimSpace(part)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func changedFunc(cmd *cobra.Command) func(string) bool {
	return func(name string) bool { return cmd.Flags().Changed(name) }
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		ov      overrides
		apiKey  string
		force   bool
		dryRun  bool
		verbose bool
		jobs    int
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate changed strings into every target language",
		Long: `Translate added and modified source strings into every target language
and remove deleted keys from all locale files.

Only strings that changed since the last successful run are sent to the
provider. Use --force to translate everything again.

Examples:
  # Translate with OpenAI (key from OPENAI_API_KEY or 'langsync auth login')
  langsync translate

  # Only German and French, smaller chunks
  langsync translate --lang de,fr --chunk-size 5

  # Local Ollama model
  langsync translate --provider ollama --model qwen2.5

  # Preview the locale file changes without writing anything
  langsync translate --dry-run`,
		Run: func(cmd *cobra.Command, args []string) {
			f, err := loadProject(rootDir, ov, changedFunc(cmd))
			if err != nil {
				fatal(err)
			}
			if err := runTranslate(f, translateArgs{
				apiKey: apiKey, force: force, dryRun: dryRun,
				verbose: verbose, jobs: jobs,
			}); err != nil {
				fatal(err)
			}
		},
	}

	cmd.Flags().StringVar(&ov.langs, "lang", "", "Target languages (comma-separated, default: from config)")
	cmd.Flags().IntVar(&ov.chunkSize, "chunk-size", 10, "Maximum keys per translation request")
	cmd.Flags().IntVar(&ov.batchSize, "batch-size", 3, "Languages per translation request")
	cmd.Flags().IntVar(&ov.maxRetries, "max-retries", 3, "Attempts per request before giving up")
	cmd.Flags().DurationVar(&ov.retryDelay, "retry-delay", 2*time.Second, "Base delay for exponential backoff")
	cmd.Flags().DurationVar(&ov.delay, "delay", time.Second, "Pause between language batches")

	cmd.Flags().StringVar(&ov.provider, "provider", translate.ProviderOpenAI, "Provider: openai, groq, ollama, custom-openai, lambda")
	cmd.Flags().StringVar(&ov.model, "model", "", "Model name (lambda: function name or ARN)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	cmd.Flags().StringVar(&ov.baseURL, "base-url", "", "Custom API base URL")
	cmd.Flags().StringVar(&ov.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().DurationVar(&ov.timeout, "timeout", 0, "Request timeout (0 = provider default)")

	cmd.Flags().BoolVar(&force, "force", false, "Ignore the cache and translate every string")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show locale file diffs without writing files or the cache")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log every request attempt")
	cmd.Flags().IntVar(&jobs, "jobs", 0, "Concurrent file reads and writes (0 = one per file)")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		provs := translate.DefaultProviders()
		ids := make([]string, 0, len(provs))
		for id, p := range provs {
			ids = append(ids, id+"\t"+p.Name)
		}
		sort.Strings(ids)
		return ids, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("lang", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, m := range locale.List() {
			if m.Code != locale.DefaultLocale {
				out = append(out, m.Code+"\t"+m.Name)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type translateArgs struct {
	apiKey        string
	force, dryRun bool
	verbose       bool
	jobs          int
}

func runTranslate(f *config.File, a translateArgs) error {
	ctx, cancel := signalContext()
	defer cancel()

	tr, err := buildTranslator(ctx, f, a.apiKey)
	if err != nil {
		return err
	}

	topts := f.TranslateOptions()
	topts.Verbose = a.verbose
	topts.OnProgress = func(done, total int) {
		logInfo(i18n.T("Progress: %d/%d chunks"), done, total)
	}

	opts := pipeline.Options{
		SourceDir:     f.SourceDir,
		OutputDir:     f.OutputDir,
		CacheDir:      f.CacheDir,
		Languages:     f.Languages,
		Translator:    tr,
		Translate:     topts,
		Force:         a.force,
		DryRun:        a.dryRun,
		MaxConcurrent: a.jobs,
		OnLog:         logInfo,
		OnWarn:        logWarning,
		OnError:       logError,
		OnDiff: func(lang, diff string) {
			fmt.Fprintf(os.Stdout, "%s\n", diff)
		},
	}
	if a.verbose {
		opts.OnState = func(s pipeline.State) { logDebug("state: %s", s) }
	}

	sum, err := pipeline.Run(ctx, opts)
	if err != nil {
		if errors.Is(err, pipeline.ErrSourceMissing) {
			return fmt.Errorf(i18n.T("%v (run from the project root or pass --root)"), err)
		}
		return err
	}
	printRunSummary(sum)
	return nil
}

// buildTranslator resolves the provider and its credential. A provider
// that needs an API key and has none is an error.
func buildTranslator(ctx context.Context, f *config.File, apiKeyFlag string) (translate.Translator, error) {
	prov, err := f.ProviderConfig()
	if err != nil {
		return nil, err
	}
	if prov.ID == translate.ProviderCustomOpenAI && prov.BaseURL == "" {
		prov.BaseURL = settings.BaseURL(prov.ID)
	}
	if prov.NeedsAPIKey() {
		key, from := settings.APIKey(prov.ID, apiKeyFlag)
		if key == "" {
			return nil, fmt.Errorf(i18n.T("%w: no API key for %s; pass --api-key, set %s, or run 'langsync auth login --provider %s'"),
				pipeline.ErrCredentialMissing, prov.Name, settings.EnvAPIKey, prov.ID)
		}
		prov.APIKey = key
		logInfo(i18n.T("Using %s API key from %s"), prov.Name, from)
	}
	return translate.New(ctx, prov, f.PromptContext())
}

func printRunSummary(sum *pipeline.Summary) {
	if sum.State == pipeline.NoChanges {
		logSuccess("%s", i18n.T("Everything is up to date"))
		return
	}

	if t := sum.Translate; t != nil {
		langs := make([]string, 0, len(t.TranslatedByLang))
		for l := range t.TranslatedByLang {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		for _, l := range langs {
			logInfo("  %s %-6s %d", locale.Resolve(l).Flag, l, t.TranslatedByLang[l])
		}
		for _, bf := range t.FailedBatches {
			logWarning(i18n.T("Chunk %d, languages %s: %v"), bf.Chunk+1, strings.Join(bf.Languages, ","), bf.Err)
		}
	}

	removed := 0
	for _, r := range sum.Removed {
		removed += r.Removed
	}
	if removed > 0 {
		logInfo(i18n.N("Removed %d path from locale files", "Removed %d paths from locale files", removed), removed)
	}

	failedChunks := 0
	if sum.Translate != nil {
		failedChunks = sum.Translate.FailedChunks
	}
	if failedChunks > 0 || sum.FailedWrites > 0 {
		logWarning(i18n.T("Run %s finished with failures in %s; rerun with --force to retry them"),
			sum.RunID, sum.Duration.Round(time.Millisecond))
		return
	}
	logSuccess(i18n.T("Run %s finished in %s"), sum.RunID, sum.Duration.Round(time.Millisecond))
}

// ---------------------------------------------------------------------------
// merge
// ---------------------------------------------------------------------------

func newMergeCmd() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Write the merged source to the default locale file",
		Long: `Merge every JSON file under the source directory into one document and
write it as the default locale file (translations/en.json by default).

A file's path inside the source directory becomes its namespace:
translations-src/pages/home.json is stored under "pages.home".`,
		Run: func(cmd *cobra.Command, args []string) {
			f, err := loadProject(rootDir, overrides{}, nil)
			if err != nil {
				fatal(err)
			}
			ctx, cancel := signalContext()
			defer cancel()
			if err := runMerge(ctx, f, jobs); err != nil {
				fatal(err)
			}
		},
	}

	cmd.Flags().IntVar(&jobs, "jobs", 0, "Concurrent file reads (0 = default)")
	return cmd
}

func runMerge(ctx context.Context, f *config.File, jobs int) error {
	res, err := source.Merge(ctx, f.SourceDir, source.Options{
		MaxConcurrent: jobs,
		OnLog:         logInfo,
		OnWarn:        logWarning,
	})
	if err != nil {
		return err
	}

	store := locales.NewStore(f.OutputDir)
	if err := store.Write(f.DefaultLocale, res.Doc); err != nil {
		return err
	}
	logSuccess(i18n.T("Merged %d files into %s (%d keys)"), len(res.Files), store.Path(f.DefaultLocale), len(res.Doc.LeafPaths()))
	if len(res.Skipped) > 0 {
		logWarning(i18n.N("%d file was skipped", "%d files were skipped", len(res.Skipped)), len(res.Skipped))
	}
	return nil
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var (
		langs string
		diff  bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pending changes and per-locale coverage",
		Long: `Compare the source tree with the cached snapshot and report what the next
translate run would do, then show how many source keys each locale file has.

Nothing is written.`,
		Run: func(cmd *cobra.Command, args []string) {
			f, err := loadProject(rootDir, overrides{langs: langs}, changedFunc(cmd))
			if err != nil {
				fatal(err)
			}
			ctx, cancel := signalContext()
			defer cancel()
			if err := runStatus(ctx, f, diff); err != nil {
				fatal(err)
			}
		},
	}

	cmd.Flags().StringVar(&langs, "lang", "", "Languages to report (comma-separated, default: from config)")
	cmd.Flags().BoolVar(&diff, "diff", false, "Print the diff that removing deleted keys would apply")
	return cmd
}

func runStatus(ctx context.Context, f *config.File, showDiff bool) error {
	opts := pipeline.Options{
		SourceDir: f.SourceDir,
		CacheDir:  f.CacheDir,
		OnLog:     logInfo,
		OnWarn:    logWarning,
	}
	res, cs, err := pipeline.Plan(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Pending changes"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  %-10s %d\n", i18n.T("Added"), cs.Added.Len())
	fmt.Fprintf(os.Stderr, "  %-10s %d\n", i18n.T("Modified"), cs.Modified.Len())
	fmt.Fprintf(os.Stderr, "  %-10s %d\n", i18n.T("Removed"), len(cs.Removed))
	if st, err := cache.New(f.CacheDir).State(); err == nil && st != nil {
		fmt.Fprintf(os.Stderr, "  %s\n", fmt.Sprintf(i18n.T("Last run %s at %s"), st.RunID, st.UpdatedAt.Local().Format(time.RFC3339)))
	}

	store := locales.NewStore(f.OutputDir)
	ref, exists, err := store.Read(f.DefaultLocale)
	if err != nil {
		return err
	}
	if !exists {
		ref = res.Doc
	}
	cov, err := store.Coverage(ref, f.Languages)
	if err != nil {
		return err
	}
	printCoverage(cov)

	if showDiff && len(cs.Removed) > 0 {
		store.Remove(ctx, f.Languages, cs.Removed, locales.Options{
			DryRun:  true,
			OnError: logError,
			OnDiff: func(lang, d string) {
				fmt.Fprintf(os.Stdout, "%s\n", d)
			},
		})
	}
	return nil
}

func printCoverage(cov []locales.Coverage) {
	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Locale coverage"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	for _, c := range cov {
		meta := locale.Resolve(c.Lang)
		if !c.Exists {
			fmt.Fprintf(os.Stderr, "  %s %-6s %s%s%s\n", meta.Flag, c.Lang, colorRed, i18n.T("missing"), colorReset)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s %-6s %s %d/%d", meta.Flag, c.Lang, progressBar(c.Percent(), 20), c.Present, c.Total)
		if len(c.Extra) > 0 {
			fmt.Fprintf(os.Stderr, "  %s+%d%s", colorGray, len(c.Extra), colorReset)
		}
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintln(os.Stderr)
}

// progressBar renders percent as a colored bar followed by the value.
func progressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent * float64(width) / 100)

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset +
		fmt.Sprintf(" %3.0f%%", percent)
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var (
		addr   string
		secure bool
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve locale files over HTTP",
		Long: `Serve the generated locale files to a web front-end.

Endpoints:
  GET  /api/messages   Messages for the negotiated locale (?lang= overrides)
  GET  /api/locales    Supported locales with native labels and flags
  POST /api/locale     Set the NEXT_LOCALE cookie (requires x-csrf-token)
  GET  /healthz        Liveness probe`,
		Run: func(cmd *cobra.Command, args []string) {
			f, err := loadProject(rootDir, overrides{}, nil)
			if err != nil {
				fatal(err)
			}
			ctx, cancel := signalContext()
			defer cancel()

			srv := server.New(server.Options{
				Dir:     f.OutputDir,
				Locales: append([]string{f.DefaultLocale}, f.Languages...),
				Secure:  secure,
				Quiet:   quiet,
				OnLog:   logInfo,
				OnError: logError,
			})
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				fatal(err)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:3000", "Listen address")
	cmd.Flags().BoolVar(&secure, "secure", false, "Mark cookies Secure (use behind HTTPS)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Disable request logging")
	return cmd
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage API keys stored in ` + settings.FilePath() + `.

Keys are looked up in this order: --api-key, ` + settings.EnvAPIKey + `, the
provider's own variable (OPENAI_API_KEY, GROQ_API_KEY), then the store.

Examples:
  langsync auth login --provider openai
  langsync auth logout --provider groq
  langsync auth list`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)
	return cmd
}

// keyProviders lists the providers that take an API key, in menu order.
func keyProviders() []translate.Provider {
	var out []translate.Provider
	for _, p := range translate.DefaultProviders() {
		if p.NeedsAPIKey() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func newAuthLoginCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for a provider",
		Run: func(cmd *cobra.Command, args []string) {
			prov, ok := translate.DefaultProviders()[provider]
			if !ok || !prov.NeedsAPIKey() {
				logError(i18n.T("Provider '%s' does not take an API key"), provider)
				os.Exit(1)
			}
			if err := authLogin(bufio.NewScanner(os.Stdin), prov); err != nil {
				fatal(err)
			}
		},
	}

	cmd.Flags().StringVar(&provider, "provider", translate.ProviderOpenAI, "Provider to store a key for")
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, p := range keyProviders() {
			out = append(out, p.ID+"\t"+p.Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// authLogin prompts for a key (and a base URL for custom endpoints) and
// stores it.
func authLogin(in *bufio.Scanner, prov translate.Provider) error {
	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, prov.Name, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	existing := settings.Get(prov.ID)

	baseURL := ""
	if prov.ID == translate.ProviderCustomOpenAI {
		fmt.Fprintf(os.Stderr, "  %s", i18n.T("Base URL (e.g. http://localhost:8080/v1): "))
		if !in.Scan() {
			return errors.New(i18n.T("no input received"))
		}
		baseURL = strings.TrimSpace(in.Text())
		if baseURL == "" && existing != nil {
			baseURL = existing.BaseURL
		}
		if baseURL == "" {
			return errors.New(i18n.T("a base URL is required"))
		}
	}

	if existing != nil && existing.Key != "" {
		fmt.Fprintf(os.Stderr, "  %s %s%s%s\n", i18n.T("Current key:"), colorYellow, settings.MaskKey(existing.Key), colorReset)
		fmt.Fprintf(os.Stderr, "  %s", i18n.T("Enter new key to replace, or press Enter to keep: "))
	} else {
		fmt.Fprintf(os.Stderr, "  %s", i18n.T("Enter API key: "))
	}
	if !in.Scan() {
		return errors.New(i18n.T("no input received"))
	}
	key := strings.TrimSpace(in.Text())
	if key == "" {
		if existing == nil || existing.Key == "" {
			return errors.New(i18n.T("no API key provided"))
		}
		key = existing.Key
	}

	if err := settings.SetAPIKey(prov.ID, key, baseURL); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	logSuccess(i18n.T("%s API key saved"), prov.Name)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored API keys",
		Long:  `Remove the stored key for one provider, or every key when --provider is not given.`,
		Run: func(cmd *cobra.Command, args []string) {
			if provider == "" {
				if err := settings.RemoveAll(); err != nil {
					fatal(err)
				}
				logSuccess("%s", i18n.T("All stored credentials removed"))
				return
			}
			if err := settings.Remove(provider); err != nil {
				fatal(err)
			}
			logSuccess(i18n.T("%s credentials removed"), provider)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to log out (default: all)")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Stored Credentials"), colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

			store := settings.Load()
			for _, p := range keyProviders() {
				c := store[p.ID]
				if c == nil || c.Key == "" {
					fmt.Fprintf(os.Stderr, "  %-14s %s%s%s\n", p.ID, colorRed, i18n.T("not configured"), colorReset)
					continue
				}
				status := fmt.Sprintf("%s%s%s (%s)", colorGreen, i18n.T("configured"), colorReset, settings.MaskKey(c.Key))
				if c.BaseURL != "" {
					status += fmt.Sprintf("\n  %14s %s", "", c.BaseURL)
				}
				fmt.Fprintf(os.Stderr, "  %-14s %s\n", p.ID, status)
			}

			fmt.Fprintf(os.Stderr, "\n  %s%s%s\n", colorYellow, i18n.T("Environment Variables"), colorReset)
			for _, env := range []string{settings.EnvAPIKey, "OPENAI_API_KEY", "GROQ_API_KEY"} {
				if v := os.Getenv(env); v != "" {
					fmt.Fprintf(os.Stderr, "  %-18s %s%s%s\n", env, colorGreen, settings.MaskKey(v), colorReset)
				} else {
					fmt.Fprintf(os.Stderr, "  %-18s %s%s%s\n", env, colorRed, i18n.T("not set"), colorReset)
				}
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}
