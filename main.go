// stkit — Stringtable Kit: bulk AI translation for game stringtable files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gamelocale/stkit/builder"
	"github.com/gamelocale/stkit/cache"
	"github.com/gamelocale/stkit/config"
	"github.com/gamelocale/stkit/glossary"
	"github.com/gamelocale/stkit/rate"
	"github.com/gamelocale/stkit/settings"
	"github.com/gamelocale/stkit/stringtable"
	"github.com/gamelocale/stkit/translate"
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

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stkit",
		Short: "Stringtable Kit: bulk AI translation for game stringtable files",
		Long: `stkit — Stringtable Kit: bulk AI translation for game stringtable files.

Translates a tree of .stringtable XML files through an OpenAI-compatible
provider. Runs are resumable: existing valid output files are skipped,
corrupted or failed ones are redone, and every translated string is cached
by content hash so repeated strings and repeated sessions cost nothing.

Commands:
  build       Translate an input tree into the output directory
  dry-run     Show what a build would translate, with a cost estimate
  verify      Structurally validate previously built output files
  cache       Inspect or clear the shared translation cache

Configuration comes from flags, an optional .stkit.yaml project file, and
environment variables (OPENAI_API_KEY, STKIT_*). Flags win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newBuildCmd(),
		newDryRunCmd(),
		newVerifyCmd(),
		newCacheCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Shared configuration plumbing
// ---------------------------------------------------------------------------

// buildFlags are the command-line overrides shared by build and dry-run.
type buildFlags struct {
	output    string
	glossary  string
	language  string
	slot      string
	model     string
	baseURL   string
	apiKey    string
	batchSize int
	verbose   bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.output, "output", "", `Output directory (default "out")`)
	cmd.Flags().StringVar(&f.glossary, "glossary", "", "CSV glossary file (columns: english/farsi, en/fa, or source/target)")
	cmd.Flags().StringVar(&f.language, "lang", "", "Target language name used in prompts")
	cmd.Flags().StringVar(&f.slot, "lang-slot", "", "localized/<slot> directory the output occupies")
	cmd.Flags().StringVar(&f.model, "model", "", "Chat model")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Provider API base URL")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Provider API key (overrides OPENAI_API_KEY)")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Texts per provider request")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig merges environment, project file, and changed flags.
func loadConfig(cmd *cobra.Command, f *buildFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	pf, err := config.LoadProjectFile(".")
	if err != nil {
		return nil, err
	}
	cfg.MergeProject(pf)

	if cmd.Flags().Changed("output") {
		cfg.OutputDir = f.output
	}
	if cmd.Flags().Changed("glossary") {
		cfg.GlossaryPath = f.glossary
	}
	if cmd.Flags().Changed("lang") {
		cfg.TargetLanguage = f.language
	}
	if cmd.Flags().Changed("lang-slot") {
		cfg.LanguageSlot = f.slot
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = f.model
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the zerolog logger for the pipeline packages.
func newLogger(level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// openCache opens the shared cache store, honoring the configured
// override. A broken cache degrades to nil (uncached operation).
func openCache(cfg *config.Config) *cache.Store {
	path := cfg.CachePath
	if path == "" {
		var err error
		path, err = settings.CacheFilePath()
		if err != nil {
			logWarning("cache location unavailable, running uncached: %v", err)
			return nil
		}
	}
	store, err := cache.Open(path)
	if err != nil {
		logWarning("cannot open cache, running uncached: %v", err)
		return nil
	}
	return store
}

// loadGlossary loads the configured glossary, degrading to empty on error.
func loadGlossary(path string) *glossary.Glossary {
	g, err := glossary.Load(path)
	if err != nil {
		logWarning("failed to load glossary: %v", err)
		return &glossary.Glossary{}
	}
	if g.Len() > 0 {
		logInfo("Loaded %d entries from glossary", g.Len())
	}
	return g
}

// resolveInputDir picks the input tree: the positional argument wins,
// then the project file (or STKIT_INPUT) fallback.
func resolveInputDir(args []string, cfg *config.Config) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cfg.InputDir != "" {
		return cfg.InputDir, nil
	}
	return "", fmt.Errorf("input directory required: pass it as an argument or set input: in %s", config.ProjectFileName)
}

// runFailed reports whether a completed run should exit non-zero: only
// when items failed and nothing at all succeeded.
func runFailed(sum builder.Summary) bool {
	return sum.Failed > 0 && sum.Processed == 0 && sum.Skipped == 0
}

// ---------------------------------------------------------------------------
// build
// ---------------------------------------------------------------------------

func newBuildCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build [input-dir]",
		Short: "Translate an input tree into the output directory",
		Long: `Translate every .stringtable file under the input directory, given as
the argument or as input: in the project file.

Output lands in <output>/localized/<slot>/text/, mirroring the input tree.
Files whose output already exists and validates are skipped, so an
interrupted build resumes where it stopped. Items that fail completely
leave a tagged marker file and are retried on the next run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			if err := cfg.ValidateProvider(); err != nil {
				return err
			}
			input, err := resolveInputDir(args, cfg)
			if err != nil {
				return err
			}
			return runBuild(input, cfg.OutputDir, cfg, f.verbose)
		},
	}
	f.register(cmd)
	return cmd
}

func runBuild(inputDir, outputDir string, cfg *config.Config, verbose bool) error {
	logger := newLogger(cfg.LogLevel, verbose)

	store := openCache(cfg)
	if store != nil {
		defer store.Close()
	}

	provider := translate.NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.RequestTimeout)
	tr := translate.New(provider, translate.Options{
		Cache:          store,
		Glossary:       loadGlossary(cfg.GlossaryPath),
		Gate:           rate.NewGate(cfg.MinRequestInterval),
		TargetLanguage: cfg.TargetLanguage,
		BatchSize:      cfg.BatchSize,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		Logger:         logger,
	})

	b := builder.New(tr, builder.Options{
		InputDir:     inputDir,
		OutputDir:    outputDir,
		LanguageSlot: cfg.LanguageSlot,
		Logger:       logger,
	})

	logInfo("Translating %s -> %s (%s, model %s)", inputDir, outputDir, cfg.TargetLanguage, cfg.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := b.Run(ctx)
	if err != nil {
		logWarning("run interrupted: %v (completed items are kept; rerun to resume)", err)
		return err
	}

	stats := tr.Stats()
	logInfo("Provider requests: %d, cache hits: %d, fallbacks: %d", stats.Requests, stats.CacheHits, stats.Fallbacks)
	if sum.Failed > 0 {
		logWarning("%d of %d items failed (success ratio %.0f%%); rerun to retry them", sum.Failed, sum.Total, sum.SuccessRatio()*100)
	}
	logSuccess("Build complete: %d processed, %d skipped, %d failed", sum.Processed, sum.Skipped, sum.Failed)

	if runFailed(sum) {
		return fmt.Errorf("no items succeeded")
	}
	return nil
}

// ---------------------------------------------------------------------------
// dry-run
// ---------------------------------------------------------------------------

func newDryRunCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "dry-run [input-dir]",
		Short: "Show what a build would translate, with a cost estimate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			input, err := resolveInputDir(args, cfg)
			if err != nil {
				return err
			}
			return runDryRun(input, cfg.OutputDir, cfg)
		},
	}
	f.register(cmd)
	return cmd
}

func runDryRun(inputDir, outputDir string, cfg *config.Config) error {
	b := builder.New(nil, builder.Options{
		InputDir:     inputDir,
		OutputDir:    outputDir,
		LanguageSlot: cfg.LanguageSlot,
		Logger:       zerolog.Nop(),
	})

	items, err := b.Plan()
	if err != nil {
		return err
	}

	pending := 0
	tokens := 0
	for _, item := range items {
		if item.Decision != builder.DecisionProcess {
			continue
		}
		pending++
		entries, err := stringtable.ParseFile(item.SourcePath)
		if err != nil {
			logWarning("unreadable source %s: %v", item.RelPath, err)
			continue
		}
		for _, e := range entries {
			if strings.TrimSpace(e.Text) != "" {
				tokens += translate.EstimateTokens(e.Text)
			}
		}
	}

	fmt.Printf("Found %d total files\n", len(items))
	fmt.Printf("Already completed: %d\n", len(items)-pending)
	fmt.Printf("Would process: %d files\n", pending)
	fmt.Printf("Estimated tokens: ~%d (~$%.2f)\n", tokens, translate.EstimateCost(tokens))
	return nil
}

// ---------------------------------------------------------------------------
// verify
// ---------------------------------------------------------------------------

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <output-dir>",
		Short: "Structurally validate previously built output files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := builder.Verify(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Valid files:    %d\n", sum.Valid)
			fmt.Printf("Invalid files:  %d\n", sum.Invalid)
			fmt.Printf("Failed markers: %d\n", sum.Failed)
			if sum.Invalid > 0 || sum.Failed > 0 {
				logWarning("%d files need rebuilding; run build again", sum.Invalid+sum.Failed)
			} else {
				logSuccess("All output files are valid")
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// cache
// ---------------------------------------------------------------------------

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the shared translation cache",
	}
	cmd.AddCommand(newCacheStatsCmd(), newCacheClearCmd())
	return cmd
}

func cacheStoreFromEnv() (*cache.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path := cfg.CachePath
	if path == "" {
		path, err = settings.CacheFilePath()
		if err != nil {
			return nil, err
		}
	}
	return cache.Open(path)
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cacheStoreFromEnv()
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Cached translations: %d\n", st.Total)
			fmt.Printf("Added last 24h:      %d\n", st.Recent)
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cacheStoreFromEnv()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return err
			}
			logSuccess("Cache cleared")
			return nil
		},
	}
}
