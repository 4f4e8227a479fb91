// Package translate implements the batch translation engine: it groups
// texts into provider-sized requests, protects embedded markup, applies
// the glossary, drives retries with backoff, and keeps the content cache
// up to date.
//
// The Translator is constructed once per run and owns its collaborators
// (cache handle, rate gate, glossary); nothing in this package is global.
package translate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gamelocale/stkit/cache"
	"github.com/gamelocale/stkit/glossary"
	"github.com/gamelocale/stkit/mask"
	"github.com/gamelocale/stkit/rate"
)

// systemPromptTemplate instructs the provider. {{targetLang}} is replaced
// at construction time. The numbered-response contract here must stay in
// sync with parseBatchResponse.
const systemPromptTemplate = `You are a professional translator specializing in video game localization. ` +
	`Translate the following numbered English texts to {{targetLang}} while maintaining ` +
	`the tone, style, and context appropriate for a fantasy RPG game. ` +
	`Preserve any placeholder tokens exactly as they appear. ` +
	`Do not translate proper nouns unless they have established {{targetLang}} equivalents. ` +
	`Maintain the emotional tone and formality level of the original text. ` +
	`Return the translations with the same numbers in the format: [1] translation1\n[2] translation2\n etc.`

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options configures a Translator. Zero values fall back to the effective
// defaults below.
type Options struct {
	// Cache is the shared translation cache (nil disables caching).
	Cache *cache.Store
	// Glossary supplies fixed term substitutions (nil is a no-op).
	Glossary *glossary.Glossary
	// Gate spaces provider requests (nil disables spacing).
	Gate *rate.Gate
	// TargetLanguage is the language name used in the prompt.
	TargetLanguage string
	// BatchSize is the number of texts per provider request.
	BatchSize int
	// MaxRetries caps retries per request.
	MaxRetries int
	// RetryDelay is the base backoff delay.
	RetryDelay time.Duration
	// Logger receives pipeline diagnostics.
	Logger zerolog.Logger
}

func (o *Options) effectiveBatchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 15
}

func (o *Options) effectiveRetryDelay() time.Duration {
	if o.RetryDelay > 0 {
		return o.RetryDelay
	}
	return 2 * time.Second
}

func (o *Options) effectiveLanguage() string {
	if o.TargetLanguage != "" {
		return o.TargetLanguage
	}
	return "Farsi"
}

// ---------------------------------------------------------------------------
// Translator
// ---------------------------------------------------------------------------

// Stats counts what a Translator did over its lifetime.
type Stats struct {
	Requests  int
	CacheHits int
	Fallbacks int
}

// Translator batches texts through a Provider.
type Translator struct {
	provider   Provider
	cache      *cache.Store
	glossary   *glossary.Glossary
	gate       *rate.Gate
	system     string
	lang       string
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	log        zerolog.Logger
	stats      Stats

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Translator around the given provider.
func New(p Provider, opts Options) *Translator {
	lang := opts.effectiveLanguage()
	return &Translator{
		provider:   p,
		cache:      opts.Cache,
		glossary:   opts.Glossary,
		gate:       opts.Gate,
		system:     strings.ReplaceAll(systemPromptTemplate, "{{targetLang}}", lang),
		lang:       lang,
		batchSize:  opts.effectiveBatchSize(),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.effectiveRetryDelay(),
		log:        opts.Logger,
		sleep:      sleepCtx,
	}
}

// Stats returns the counters accumulated so far.
func (t *Translator) Stats() Stats {
	return t.stats
}

// Translate translates a single text. Blank text passes through untouched.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	results, err := t.TranslateBatch(ctx, []string{text})
	if err != nil {
		return "", err
	}
	return results[0], nil
}

// TranslateBatch translates texts preserving length and order: result[i]
// always corresponds to texts[i], whether it came from the cache, the
// provider, or fell back to the original after exhausted retries.
//
// The returned error is non-nil only for fatal provider errors and context
// cancellation; rate-limit and transient failures degrade to original-text
// fallback after retries.
func (t *Translator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([]string, len(texts))
	for start := 0; start < len(texts); start += t.batchSize {
		end := start + t.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		t.log.Debug().Int("from", start).Int("to", end).Int("total", len(texts)).Msg("translating chunk")
		if err := t.translateChunk(ctx, texts[start:end], results[start:end]); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// translateChunk fills results (same length as texts) for one provider
// request worth of work.
func (t *Translator) translateChunk(ctx context.Context, texts, results []string) error {
	// Partition: blank pass-through, cache hits, and texts that need the
	// provider. pending holds indices into texts in original order.
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = text
			continue
		}
		if t.cache != nil {
			cached, ok, err := t.cache.Get(text)
			if err != nil {
				t.log.Warn().Err(err).Msg("cache lookup failed, treating as miss")
			} else if ok {
				t.stats.CacheHits++
				results[i] = cached
				continue
			}
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return nil
	}

	// Mask tokens, apply the glossary to the masked text, and frame each
	// item as a numbered line. The ordinal is the request/response
	// correlation key.
	maps := make([]mask.Map, len(pending))
	lines := make([]string, len(pending))
	for j, idx := range pending {
		masked, m := mask.Protect(texts[idx])
		masked = t.glossary.Apply(masked)
		maps[j] = m
		lines[j] = fmt.Sprintf("[%d] %s", j+1, masked)
	}
	userPrompt := fmt.Sprintf("Translate these texts to %s:\n%s", t.lang, strings.Join(lines, "\n"))

	raw, err := t.callWithRetry(ctx, userPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if classify(err) == classFatal {
			return err
		}
		// Retries exhausted: every unresolved text falls back to its
		// original so the caller still gets a full-length sequence.
		t.log.Error().Err(err).Int("texts", len(pending)).Msg("batch failed, falling back to original texts")
		for _, idx := range pending {
			t.stats.Fallbacks++
			results[idx] = texts[idx]
		}
		return nil
	}

	translations := parseBatchResponse(raw, len(pending))
	for j, idx := range pending {
		translated := translations[j]
		if strings.TrimSpace(translated) == "" {
			// Response shortfall: the provider returned fewer numbered
			// lines than requested.
			t.stats.Fallbacks++
			results[idx] = texts[idx]
			t.log.Warn().Str("text", truncate(texts[idx], 40)).Msg("no translation in response, keeping original")
			continue
		}
		if n := mask.Missing(translated, maps[j]); n > 0 {
			t.log.Warn().Int("missing", n).Str("text", truncate(texts[idx], 40)).Msg("provider dropped placeholder markers, partial restoration")
		}
		translated = mask.Restore(translated, maps[j])
		if t.cache != nil {
			if err := t.cache.Put(texts[idx], translated); err != nil {
				t.log.Warn().Err(err).Msg("cache store failed")
			}
		}
		results[idx] = translated
	}
	return nil
}

// ---------------------------------------------------------------------------
// Retry policy
// ---------------------------------------------------------------------------

type errClass int

const (
	classFatal errClass = iota
	classRateLimited
	classTransient
)

// classify maps a provider error onto the retry taxonomy.
func classify(err error) errClass {
	switch {
	case err == nil:
		return classFatal
	case errors.Is(err, ErrRateLimited):
		return classRateLimited
	case errors.Is(err, ErrTransient):
		return classTransient
	default:
		return classFatal
	}
}

// backoffDelay computes the wait before retry attempt+1: exponential for
// rate limits, linear for transient failures.
func backoffDelay(class errClass, attempt int, base time.Duration) time.Duration {
	switch class {
	case classRateLimited:
		return base * time.Duration(1<<attempt)
	case classTransient:
		return base * time.Duration(attempt+1)
	default:
		return 0
	}
}

// callWithRetry performs one framed batch request with the full retry
// policy. The rate gate is consulted before every attempt, so spacing
// holds proactively, not just after a 429.
func (t *Translator) callWithRetry(ctx context.Context, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if err := t.gate.Wait(ctx); err != nil {
			return "", err
		}

		t.stats.Requests++
		raw, err := t.provider.Complete(ctx, t.system, userPrompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		class := classify(err)
		if class == classFatal || attempt == t.maxRetries {
			break
		}
		delay := backoffDelay(class, attempt, t.retryDelay)
		t.log.Warn().Err(err).Int("attempt", attempt+1).Int("max", t.maxRetries).Dur("delay", delay).Msg("provider error, retrying")
		if err := t.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
// Response parsing
// ---------------------------------------------------------------------------

var numberedLine = regexp.MustCompile(`^\[\d+\]`)
var numberPrefix = regexp.MustCompile(`^\[\d+\]\s*`)

// parseBatchResponse splits a numbered provider response into individual
// translations. Lines between two numbered markers fold into the preceding
// item, tolerating multi-line provider output. A response with fewer items
// than expected is padded with empty strings (the fallback signal).
//
// Known fragility, kept to match observed provider output: a leading
// un-numbered line starts an anonymous first item rather than being
// rejected, so a response that drops the "[1]" prefix shifts everything
// by one.
func parseBatchResponse(response string, expected int) []string {
	var translations []string
	current := ""

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		if numberedLine.MatchString(line) {
			if current != "" {
				translations = append(translations, strings.TrimSpace(numberPrefix.ReplaceAllString(current, "")))
			}
			current = line
		} else if current != "" {
			current += " " + line
		} else {
			current = line
		}
	}
	if current != "" {
		translations = append(translations, strings.TrimSpace(numberPrefix.ReplaceAllString(current, "")))
	}

	for len(translations) < expected {
		translations = append(translations, "")
	}
	return translations[:expected]
}

// ---------------------------------------------------------------------------
// Cost estimation
// ---------------------------------------------------------------------------

// EstimateTokens approximates the provider token count of a text. Four
// characters per token is the usual English heuristic.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// EstimateCost converts a token estimate into US dollars using gpt-4o
// list pricing, assuming roughly symmetric input/output for translation.
func EstimateCost(totalTokens int) float64 {
	input := float64(totalTokens) / 1_000_000 * 5.00
	output := float64(totalTokens) / 1_000_000 * 15.00
	return input + output
}
