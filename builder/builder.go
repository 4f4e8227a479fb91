// Package builder drives the translation of a stringtable tree: it
// enumerates work items, decides per item whether prior output can be
// kept, runs the translation pipeline for the rest, and reports a run
// summary.
//
// Resumability needs no state file. The output artifact itself is the
// source of truth: an item is skipped only when its output parses as a
// valid, non-empty stringtable. Missing, empty, truncated, and
// failure-marked outputs all converge to "process again", so an
// interrupted or partially failed run is repaired by simply running the
// tool again.
package builder

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gamelocale/stkit/stringtable"
)

// FailedMarker is written as the output artifact when an item fails
// completely. It is deliberately not a valid stringtable document, so the
// next run's validity check reclassifies the item for reprocessing; the
// marker just makes the failure visible to a human browsing the tree.
const FailedMarker = "<!-- stkit:failed -->\n"

// Translator is the translation surface the builder depends on.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string) ([]string, error)
}

// Decision classifies one work item at plan time.
type Decision int

const (
	// DecisionProcess means the output must be (re)generated.
	DecisionProcess Decision = iota
	// DecisionSkip means valid prior output exists.
	DecisionSkip
)

// Item is one source stringtable and its paired output artifact.
type Item struct {
	// SourcePath is the input file.
	SourcePath string
	// RelPath is SourcePath relative to the input root.
	RelPath string
	// OutputPath is where the translated artifact goes.
	OutputPath string
	// Decision is the resume classification for this run.
	Decision Decision
	// Reason explains the decision (for logs and dry runs).
	Reason string
}

// Summary reports the outcome of a run.
type Summary struct {
	Total     int
	Processed int
	Skipped   int
	Failed    int
}

// SuccessRatio is the fraction of attempted items that succeeded.
func (s Summary) SuccessRatio() float64 {
	attempted := s.Processed + s.Failed
	if attempted == 0 {
		return 1
	}
	return float64(s.Processed) / float64(attempted)
}

// Options configures a Builder.
type Options struct {
	// InputDir is the root of the source stringtable tree.
	InputDir string
	// OutputDir is the build output root.
	OutputDir string
	// LanguageSlot is the localized/<slot>/text directory the output
	// tree mirrors the input into.
	LanguageSlot string
	// Logger receives per-item progress.
	Logger zerolog.Logger
}

// Builder owns one run over a stringtable tree.
type Builder struct {
	input    string
	output   string
	langSlot string
	tr       Translator
	log      zerolog.Logger
}

// New builds a Builder. The translator may be nil for plan-only use
// (dry runs).
func New(tr Translator, opts Options) *Builder {
	return &Builder{
		input:    opts.InputDir,
		output:   opts.OutputDir,
		langSlot: opts.LanguageSlot,
		tr:       tr,
		log:      opts.Logger,
	}
}

// OutputPathFor maps a source-relative path into the output tree.
func (b *Builder) OutputPathFor(relPath string) string {
	return filepath.Join(b.output, "localized", b.langSlot, "text", relPath)
}

// Plan enumerates every work item under the input root and classifies it
// against existing output. Items come back in deterministic walk order.
func (b *Builder) Plan() ([]Item, error) {
	info, err := os.Stat(b.input)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path is not a directory: %s", b.input)
	}

	var items []Item
	err = filepath.WalkDir(b.input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), stringtable.Extension) {
			return nil
		}
		rel, err := filepath.Rel(b.input, path)
		if err != nil {
			return err
		}
		item := Item{
			SourcePath: path,
			RelPath:    rel,
			OutputPath: b.OutputPathFor(rel),
		}
		if verr := stringtable.Validate(item.OutputPath); verr == nil {
			item.Decision = DecisionSkip
			item.Reason = "valid output exists"
		} else {
			item.Decision = DecisionProcess
			item.Reason = decisionReason(item.OutputPath, verr)
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", b.input, err)
	}
	return items, nil
}

func decisionReason(outputPath string, verr error) string {
	if os.IsNotExist(verr) {
		return "no output yet"
	}
	if data, err := os.ReadFile(outputPath); err == nil && strings.HasPrefix(string(data), FailedMarker) {
		return "previous attempt failed"
	}
	return "output invalid, regenerating"
}

// Run plans and processes every item. A single item's failure never aborts
// the run; it is recorded in the summary and leaves a failure marker as
// the item's output. Cancellation is honored between items, keeping
// completed items durable.
func (b *Builder) Run(ctx context.Context) (Summary, error) {
	items, err := b.Plan()
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Total: len(items)}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		if item.Decision == DecisionSkip {
			sum.Skipped++
			b.log.Info().Str("file", item.RelPath).Int("n", i+1).Int("total", len(items)).Msg("skipping, output valid")
			continue
		}

		b.log.Info().Str("file", item.RelPath).Str("reason", item.Reason).Int("n", i+1).Int("total", len(items)).Msg("processing")
		if err := b.processItem(ctx, item); err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.Failed++
			b.log.Error().Err(err).Str("file", item.RelPath).Msg("item failed")
			b.writeFailureMarker(item, err)
			continue
		}
		sum.Processed++
	}

	b.log.Info().
		Int("processed", sum.Processed).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Float64("success_ratio", sum.SuccessRatio()).
		Msg("run complete")
	return sum, nil
}

// processItem runs the pipeline for one stringtable file.
func (b *Builder) processItem(ctx context.Context, item Item) error {
	entries, err := stringtable.ParseFile(item.SourcePath)
	if err != nil {
		return fmt.Errorf("source unreadable: %w", err)
	}

	if len(entries) == 0 {
		// Preserve the slot with an empty (structurally complete) file.
		return stringtable.WriteFile(item.OutputPath, entries)
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}

	translated, err := b.tr.TranslateBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("translating: %w", err)
	}
	if len(translated) != len(entries) {
		return fmt.Errorf("translator returned %d results for %d texts", len(translated), len(entries))
	}

	out := make([]stringtable.Entry, len(entries))
	for i, e := range entries {
		out[i] = stringtable.Entry{ID: e.ID, Text: translated[i]}
	}
	return stringtable.WriteFile(item.OutputPath, out)
}

// writeFailureMarker records a failed item as a tagged, intentionally
// invalid artifact. Best effort: if even this write fails, the slot stays
// missing, which classifies identically on the next run.
func (b *Builder) writeFailureMarker(item Item, cause error) {
	if err := os.MkdirAll(filepath.Dir(item.OutputPath), 0755); err != nil {
		b.log.Warn().Err(err).Str("file", item.RelPath).Msg("cannot create failure marker directory")
		return
	}
	content := FailedMarker + "<!-- " + cause.Error() + " -->\n"
	if err := os.WriteFile(item.OutputPath, []byte(content), 0644); err != nil {
		b.log.Warn().Err(err).Str("file", item.RelPath).Msg("cannot write failure marker")
	}
}

// ---------------------------------------------------------------------------
// Output verification
// ---------------------------------------------------------------------------

// VerifySummary reports the state of an output tree.
type VerifySummary struct {
	Valid   int
	Invalid int
	Failed  int // failure-marker artifacts
}

// Verify sweeps an output directory and classifies every stringtable
// artifact found.
func Verify(outputDir string) (VerifySummary, error) {
	var sum VerifySummary
	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), stringtable.Extension) {
			return nil
		}
		if data, rerr := os.ReadFile(path); rerr == nil && strings.HasPrefix(string(data), FailedMarker) {
			sum.Failed++
			return nil
		}
		if stringtable.Validate(path) == nil {
			sum.Valid++
		} else {
			sum.Invalid++
		}
		return nil
	})
	if err != nil {
		return sum, fmt.Errorf("scanning %s: %w", outputDir, err)
	}
	return sum, nil
}
