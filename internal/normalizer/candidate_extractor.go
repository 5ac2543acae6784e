package normalizer

import (
	"sort"
	"strings"

	"github.com/gazetteer-geocoder/app/config"
)

// stopWords are tokens never useful as standalone lookup candidates. They
// still appear inside longer n-grams ("bahr el ghazal" keeps its "el").
var stopWords = map[string]struct{}{
	"the": {}, "of": {}, "in": {}, "at": {}, "on": {}, "to": {},
	"for": {}, "and": {}, "or": {}, "a": {}, "an": {},
}

// CandidateExtractor slices a normalized string into lookup candidates:
// every contiguous token window up to the configured size, plus the full
// string itself.
type CandidateExtractor struct {
	maxTokens int
	minLen    int
}

func NewCandidateExtractor(cfg *config.ResolverCfg) *CandidateExtractor {
	return &CandidateExtractor{
		maxTokens: cfg.NgramMaxTokens,
		minLen:    cfg.MinCandidateLen,
	}
}

// ExtractCandidates returns the deduplicated candidate set for a normalized
// string, longest candidates first so multi-word names are tried before
// their fragments.
func (ce *CandidateExtractor) ExtractCandidates(normalized string) []string {
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil
	}

	tokens := strings.Fields(normalized)
	seen := make(map[string]struct{})
	var candidates []string

	add := func(c string) {
		if len(c) < ce.minLen {
			return
		}
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		candidates = append(candidates, c)
	}

	add(normalized)
	for window := ce.maxTokens; window >= 1; window-- {
		if window > len(tokens) {
			continue
		}
		for start := 0; start+window <= len(tokens); start++ {
			gram := strings.Join(tokens[start:start+window], " ")
			if window == 1 {
				if _, stop := stopWords[gram]; stop {
					continue
				}
			}
			add(gram)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		li, lj := len(strings.Fields(candidates[i])), len(strings.Fields(candidates[j]))
		if li != lj {
			return li > lj
		}
		return candidates[i] < candidates[j]
	})
	return candidates
}
