package extract

import (
	"context"
	"regexp"
	"strings"
)

// RegexExtractor pulls place-name mentions out of narrative text using
// surface patterns: administrative keywords, prepositional phrases and the
// "Hai ..." neighborhood convention. It is the cheap first pass, a language
// model only runs on what this pass misses.
type RegexExtractor struct {
	patterns []*regexp.Regexp
}

func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{
		patterns: []*regexp.Regexp{
			// "Wau County", "Central Equatoria State", "Mankien Payam"
			regexp.MustCompile(`([A-Z][a-zA-Z'\-]+(?:\s+[A-Z][a-zA-Z'\-]+){0,3}\s+(?:County|State|Payam|Boma))`),
			// "village of Mayen", "town of Torit"
			regexp.MustCompile(`(?:[Vv]illage|[Tt]own|[Ss]ettlement|[Aa]rea)\s+of\s+([A-Z][a-zA-Z'\-]+(?:\s+[A-Z][a-zA-Z'\-]+){0,3})`),
			// "in Juba", "near Bentiu", "from Old Fangak"
			regexp.MustCompile(`(?:\bin|\bat|\bnear|\bfrom|\bto)\s+([A-Z][a-zA-Z'\-]+(?:\s+[A-Z][a-zA-Z'\-]+){0,2})`),
			// "Hai Masana", "Hai Referendum"
			regexp.MustCompile(`(Hai\s+[A-Z][a-zA-Z'\-]+(?:\s+[A-Z][a-zA-Z'\-]+)?)`),
		},
	}
}

func (re *RegexExtractor) Name() string { return "regex" }

// Extract returns every distinct mention with a context window around it.
func (re *RegexExtractor) Extract(_ context.Context, text string) ([]Extraction, error) {
	var out []Extraction
	seen := make(map[string]struct{})

	for _, pattern := range re.patterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
			// First capture group, or the whole match when there is none.
			start, end := loc[2], loc[3]
			if start < 0 {
				start, end = loc[0], loc[1]
			}
			mention := strings.TrimSpace(text[start:end])
			key := strings.ToLower(mention)
			if mention == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Extraction{
				Text:    mention,
				Context: contextWindow(text, start, end),
				Method:  re.Name(),
				Start:   start,
				End:     end,
			})
		}
	}
	return out, nil
}

const contextRadius = 60

func contextWindow(text string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextRadius
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}
