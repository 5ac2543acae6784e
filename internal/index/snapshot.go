package index

import (
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/normalizer"
)

// Entry is one lookup row in the name index: a normalized name or alias
// bound to a gazetteer feature, with normalized lineage for constraint
// scoping and context scoring.
type Entry struct {
	Layer      string
	FeatureID  string
	Name       string
	Normalized string
	IsAlias    bool
	Lineage    models.Lineage
}

// Snapshot is an immutable view of the gazetteer built for one version of
// the data. All lookups during resolution run against a single snapshot, so
// a rebuild never changes results mid-query.
type Snapshot struct {
	version string
	builtAt time.Time

	entries map[string][]Entry
	exact   map[string]map[string][]Entry

	features    map[string]map[string]*models.AdminFeature
	settlements map[string]*models.SettlementPoint

	// geoBuckets maps precision-5 geohash cells to the settlements inside
	// them, for proximity lookups. bucketKeys is the sorted key set used for
	// prefix scans with coarser cells.
	geoBuckets map[string][]string
	bucketKeys []string

	counts map[string]int
}

func (s *Snapshot) Version() string    { return s.version }
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Counts returns the number of indexed features per layer.
func (s *Snapshot) Counts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Entries returns the candidate pool for a layer, scoped to the constraint's
// county and state when present.
func (s *Snapshot) Entries(layer string, con *normalizer.Constraint) []Entry {
	pool := s.entries[layer]
	if con == nil || (con.County == "" && con.State == "") {
		return pool
	}
	scoped := make([]Entry, 0, len(pool))
	for _, e := range pool {
		if entryInScope(e, con) {
			scoped = append(scoped, e)
		}
	}
	return scoped
}

// Exact returns the entries whose normalized form equals the query.
func (s *Snapshot) Exact(layer, normalized string) []Entry {
	byName := s.exact[layer]
	if byName == nil {
		return nil
	}
	return byName[normalized]
}

// Feature returns the polygon feature for a layer, or nil.
func (s *Snapshot) Feature(layer, featureID string) *models.AdminFeature {
	byID := s.features[layer]
	if byID == nil {
		return nil
	}
	return byID[featureID]
}

// Settlement returns the point feature for an id, or nil.
func (s *Snapshot) Settlement(featureID string) *models.SettlementPoint {
	return s.settlements[featureID]
}

// Features returns every polygon feature in a layer. The slice is fresh, the
// features themselves are shared and must not be mutated.
func (s *Snapshot) Features(layer string) []*models.AdminFeature {
	byID := s.features[layer]
	out := make([]*models.AdminFeature, 0, len(byID))
	for _, f := range byID {
		out = append(out, f)
	}
	return out
}

// SettlementsInCells returns the ids of settlements whose precision-5
// geohash starts with any of the given cells. Cells may be coarser than the
// bucket precision.
func (s *Snapshot) SettlementsInCells(cells []string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, cell := range cells {
		start := sort.SearchStrings(s.bucketKeys, cell)
		for i := start; i < len(s.bucketKeys) && strings.HasPrefix(s.bucketKeys[i], cell); i++ {
			for _, id := range s.geoBuckets[s.bucketKeys[i]] {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// entryInScope checks an entry's lineage against the constraint. A county
// qualifier parsed from free text often names the state instead, so county
// scoping accepts a state-level agreement too.
func entryInScope(e Entry, con *normalizer.Constraint) bool {
	if con.County != "" {
		if !LineageAgrees(con.County, e.Lineage.County) && !LineageAgrees(con.County, e.Lineage.State) {
			return false
		}
	}
	if con.State != "" {
		if !LineageAgrees(con.State, e.Lineage.State) {
			return false
		}
	}
	return true
}

// levelWords are generic administrative words ignored when comparing a
// constraint value to a lineage field.
var levelWords = map[string]struct{}{
	"county": {}, "state": {}, "payam": {}, "boma": {},
	"town": {}, "village": {},
}

// LineageAgrees reports whether two normalized place references name the
// same unit. Generic level words are ignored and a token-subset match in
// either direction counts, so "wau" agrees with "wau county".
func LineageAgrees(a, b string) bool {
	ta := levelTokens(a)
	tb := levelTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	return tokenSubset(ta, tb) || tokenSubset(tb, ta)
}

func levelTokens(s string) []string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if _, generic := levelWords[f]; generic {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func tokenSubset(sub, super []string) bool {
	for _, t := range sub {
		found := false
		for _, u := range super {
			if tokensEqual(t, u) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// tokensEqual tolerates a single edit on tokens of three or more letters,
// so a misspelled qualifier like "waw" still scopes to "wau".
func tokensEqual(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	return levenshtein.ComputeDistance(a, b) == 1
}
