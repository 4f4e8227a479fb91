// Package glossary applies fixed term translations before text is sent to
// the AI provider, pinning down terminology the provider would otherwise
// translate inconsistently (character names, item names, UI verbs).
//
// Glossaries are CSV files with a header row. Accepted column pairs, in
// order of preference: english/farsi, en/fa, source/target. A missing or
// empty glossary is valid and substitution becomes a no-op.
package glossary

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// columnSynonyms lists the accepted (source, target) header pairs.
var columnSynonyms = [][2]string{
	{"english", "farsi"},
	{"en", "fa"},
	{"source", "target"},
}

// term is one glossary rule, pre-compiled for whole-word matching.
type term struct {
	source  string
	target  string
	pattern *regexp.Regexp
}

// Glossary holds the ordered substitution rules. The zero value is an
// empty glossary whose Apply is the identity.
type Glossary struct {
	terms []term
}

// Load reads a glossary CSV from path. A non-existent path yields an empty
// glossary, not an error.
func Load(path string) (*Glossary, error) {
	if path == "" {
		return &Glossary{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Glossary{}, nil
		}
		return nil, fmt.Errorf("opening glossary %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing glossary %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Glossary{}, nil
	}

	header := records[0]
	srcCol, dstCol := -1, -1
	for _, pair := range columnSynonyms {
		for i, name := range header {
			switch strings.ToLower(strings.TrimSpace(name)) {
			case pair[0]:
				srcCol = i
			case pair[1]:
				dstCol = i
			}
		}
		if srcCol >= 0 && dstCol >= 0 {
			break
		}
		srcCol, dstCol = -1, -1
	}
	if srcCol < 0 || dstCol < 0 {
		return nil, fmt.Errorf("glossary %s: no recognized column pair (english/farsi, en/fa, source/target)", path)
	}

	g := &Glossary{}
	for _, row := range records[1:] {
		if srcCol >= len(row) || dstCol >= len(row) {
			continue
		}
		src := strings.TrimSpace(row[srcCol])
		dst := strings.TrimSpace(row[dstCol])
		if src == "" {
			continue
		}
		g.terms = append(g.terms, term{source: src, target: dst})
	}

	// Longest term first so "Adra Dragon" wins over "Dragon" when both
	// are present.
	sort.SliceStable(g.terms, func(i, j int) bool {
		return len(g.terms[i].source) > len(g.terms[j].source)
	})
	for i := range g.terms {
		g.terms[i].pattern = regexp.MustCompile(
			`(?i)\b` + regexp.QuoteMeta(g.terms[i].source) + `\b`)
	}
	return g, nil
}

// Len returns the number of loaded terms.
func (g *Glossary) Len() int {
	if g == nil {
		return 0
	}
	return len(g.terms)
}

// Apply rewrites every whole-word, case-insensitive occurrence of a
// glossary term with its target translation. Intended to run on masked
// text, after token protection, so it can never touch a protected token.
func (g *Glossary) Apply(text string) string {
	if g == nil {
		return text
	}
	for _, t := range g.terms {
		text = t.pattern.ReplaceAllString(text, t.target)
	}
	return text
}
