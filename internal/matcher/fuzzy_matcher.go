package matcher

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/internal/index"
)

// Candidate is an index entry with its similarity to the query. Exact marks
// a literal normalized-form match, the only kind allowed to score 1.0 after
// context boosts.
type Candidate struct {
	Entry index.Entry
	Score float64
	Exact bool
}

// FuzzyMatcher ranks index entries against a normalized query. Matching is
// staged: an exact hit wins outright, otherwise thresholds relax step by
// step and the first stage with any hits defines the result set. Short
// queries get one extra low-confidence stage.
type FuzzyMatcher struct {
	cfg *config.FuzzyCfg
}

func NewFuzzyMatcher(cfg *config.FuzzyCfg) *FuzzyMatcher {
	return &FuzzyMatcher{cfg: cfg}
}

// Match returns the candidates from the tightest non-empty stage, best
// first. An empty return means nothing cleared the active threshold.
func (fm *FuzzyMatcher) Match(query string, entries []index.Entry) []Candidate {
	if query == "" || len(entries) == 0 {
		return nil
	}

	var exacts []Candidate
	for _, e := range entries {
		if e.Normalized == query {
			exacts = append(exacts, Candidate{Entry: e, Score: 1.0, Exact: true})
		}
	}
	if len(exacts) > 0 {
		sortCandidates(exacts)
		return exacts
	}

	scored := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		scored = append(scored, Candidate{Entry: e, Score: fm.Similarity(query, e.Normalized)})
	}

	stages := make([]float64, 0, len(fm.cfg.StageThresholds)+2)
	stages = append(stages, fm.cfg.StageThresholds...)
	stages = append(stages, fm.cfg.BaseThreshold)
	if fm.isShortQuery(query) {
		stages = append(stages, fm.cfg.LowConfidence)
	}

	for _, threshold := range stages {
		var hits []Candidate
		for _, c := range scored {
			if c.Score >= threshold {
				hits = append(hits, c)
			}
		}
		if len(hits) > 0 {
			sortCandidates(hits)
			return hits
		}
	}
	return nil
}

// Similarity combines three measures and keeps the best: token-sort edit
// ratio for word-order noise, partial alignment for names embedded in longer
// text, and Jaro-Winkler for prefix-heavy typos.
func (fm *FuzzyMatcher) Similarity(query, name string) float64 {
	if query == "" || name == "" {
		return 0
	}
	if query == name {
		return 1
	}

	best := tokenSortRatio(query, name)
	if pr := fm.partialRatio(query, name); pr > best {
		best = pr
	}
	if jw := smetrics.JaroWinkler(query, name, 0.7, 4); jw > best {
		best = jw
	}
	return best
}

func (fm *FuzzyMatcher) isShortQuery(query string) bool {
	return len(strings.Fields(query)) <= fm.cfg.ShortQueryTokens ||
		len(query) <= fm.cfg.ShortQueryChars
}

func tokenSortRatio(a, b string) float64 {
	return editRatio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

func editRatio(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// partialRatio aligns the shorter string against same-length windows of the
// longer one. A large length gap downweights the result so a tiny fragment
// cannot ride a long name to a confident score.
func (fm *FuzzyMatcher) partialRatio(a, b string) float64 {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}

	var best float64
	if strings.Contains(longer, shorter) {
		best = 1
	} else {
		for i := 0; i+len(shorter) <= len(longer); i++ {
			if r := editRatio(shorter, longer[i:i+len(shorter)]); r > best {
				best = r
			}
		}
	}

	if float64(len(shorter))/float64(len(longer)) < fm.cfg.SubstringLenRatio {
		best *= fm.cfg.SubstringDownscale
	}
	return best
}

// sortCandidates orders by score, then shorter name, then lexically, then
// feature id. Ties resolve the same way on every run.
func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		ni, nj := cands[i].Entry.Normalized, cands[j].Entry.Normalized
		if len(ni) != len(nj) {
			return len(ni) < len(nj)
		}
		if ni != nj {
			return ni < nj
		}
		return cands[i].Entry.FeatureID < cands[j].Entry.FeatureID
	})
}
