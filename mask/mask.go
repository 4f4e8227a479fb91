// Package mask protects non-translatable tokens embedded in free text
// before it is sent to an AI provider, and restores them afterwards.
//
// Three token grammars are recognized, each matched independently:
//
//   - brace interpolation:   {PlayerName}, {0}
//   - bracket rich-text tags: [color=red], [/color]
//   - angle-bracket tags:     <i>, </i>
//
// Every match is replaced, in first-occurrence order across all classes,
// with a numbered marker (__PLACEHOLDER_0__, __PLACEHOLDER_1__, ...) that
// does not occur in natural-language text. Restoration substitutes the
// markers back literally; a marker the provider dropped or mangled is left
// in place rather than failing the translation.
package mask

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Map holds the marker → original token mapping for one protected text.
// It is ephemeral: valid for exactly one protect/restore cycle.
type Map map[string]string

// markerFormat is the synthetic marker grammar. Double underscores keep it
// out of any natural-language translation output.
const markerFormat = "__PLACEHOLDER_%d__"

// The supported token classes, in fixed priority order. The set is closed:
// adding a grammar means adding a pattern here, not threading regexes
// through call sites.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\{[^{}]+\}`),   // {variable}, {0}
	regexp.MustCompile(`\[[^\[\]]+\]`), // [tag=value], [/tag]
	regexp.MustCompile(`<[^<>]+>`),     // <tag>, </tag>
}

// span is one matched token with its position in the source text.
type span struct {
	start int
	end   int
	text  string
}

// Protect replaces every recognized token in text with a numbered marker.
// Markers are assigned in order of appearance in the text, regardless of
// which class matched, so identical tokens occurring twice get two markers.
func Protect(text string) (string, Map) {
	if text == "" {
		return text, nil
	}

	var spans []span
	for _, pat := range tokenPatterns {
		for _, loc := range pat.FindAllStringIndex(text, -1) {
			spans = append(spans, span{start: loc[0], end: loc[1], text: text[loc[0]:loc[1]]})
		}
	}
	if len(spans) == 0 {
		return text, nil
	}

	// Position order across all classes determines marker numbering.
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	// Drop spans swallowed by an earlier, wider match (a bracket tag
	// inside an angle tag, say). Only the outer token gets a marker, so
	// every marker in the Map occurs in the masked text.
	kept := spans[:0]
	lastEnd := 0
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		kept = append(kept, s)
		lastEnd = s.end
	}

	m := make(Map, len(kept))
	masked := text
	for i, s := range kept {
		marker := fmt.Sprintf(markerFormat, i)
		m[marker] = s.text
		masked = strings.Replace(masked, s.text, marker, 1)
	}
	return masked, m
}

// Restore substitutes markers back to their original tokens. Markers absent
// from text (dropped by the provider) are simply skipped; Missing reports
// how many, for audit logging by the caller.
func Restore(text string, m Map) string {
	for marker, token := range m {
		text = strings.ReplaceAll(text, marker, token)
	}
	return text
}

// Missing counts markers from m that no longer occur in the translated
// text. A non-zero count means the provider dropped or rewrote markers and
// restoration was partial.
func Missing(translated string, m Map) int {
	n := 0
	for marker := range m {
		if !strings.Contains(translated, marker) {
			n++
		}
	}
	return n
}
