package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/index"
	"github.com/gazetteer-geocoder/internal/matcher"
	"github.com/gazetteer-geocoder/internal/normalizer"
)

// cascadeLayers is the matching order: most specific first, and the first
// layer with a confident winner stops the descent. State is not attempted
// on its own, a state-only reference is too coarse to be useful.
var cascadeLayers = []string{
	models.LayerSettlements,
	models.LayerBoma,
	models.LayerPayam,
	models.LayerCounty,
}

// SpatialResolver turns free text into a gazetteer match by cascading
// through the administrative layers. Every lookup runs against the snapshot
// grabbed at the start of the call.
type SpatialResolver struct {
	snapshots *index.Store
	fm        *matcher.FuzzyMatcher
	scorer    *matcher.ContextScorer
	tn        *normalizer.TextNormalizer
	extractor *normalizer.CandidateExtractor
	parser    *normalizer.ConstraintParser
	cfg       *config.GeocoderCfg
	logger    *zap.Logger
}

func NewSpatialResolver(snapshots *index.Store, cfg *config.GeocoderCfg, logger *zap.Logger) *SpatialResolver {
	tn := normalizer.NewTextNormalizer()
	return &SpatialResolver{
		snapshots: snapshots,
		fm:        matcher.NewFuzzyMatcher(&cfg.Fuzzy),
		scorer:    matcher.NewContextScorer(&cfg.Boost),
		tn:        tn,
		extractor: normalizer.NewCandidateExtractor(&cfg.Resolver),
		parser:    normalizer.NewConstraintParser(tn),
		cfg:       cfg,
		logger:    logger,
	}
}

// Normalizer exposes the resolver's normalizer so callers derive cache keys
// from the exact same canonical form.
func (sr *SpatialResolver) Normalizer() *normalizer.TextNormalizer {
	return sr.tn
}

// ParseConstraint parses qualifiers out of free text without resolving it.
func (sr *SpatialResolver) ParseConstraint(text string) *normalizer.Constraint {
	return sr.parser.Parse(text)
}

// Resolve matches text against the gazetteer. A miss is a normal result
// with a zero score, not an error. When explicit is empty a constraint is
// parsed from the text itself.
func (sr *SpatialResolver) Resolve(ctx context.Context, text string, explicit *normalizer.Constraint) (*models.GeocodeResult, error) {
	snap := sr.snapshots.Current()
	if snap == nil {
		return nil, ErrDataStore
	}
	return sr.ResolveWithSnapshot(ctx, snap, text, explicit)
}

// ResolveWithSnapshot resolves against a caller-pinned snapshot. Callers
// that derive artifacts from the snapshot version (cache keys) use this to
// bind them to the exact data that produced the result across a concurrent
// swap.
func (sr *SpatialResolver) ResolveWithSnapshot(ctx context.Context, snap *index.Snapshot, text string, explicit *normalizer.Constraint) (*models.GeocodeResult, error) {
	if snap == nil {
		return nil, ErrDataStore
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := sr.tn.Normalize(text)
	if normalized == "" {
		return nil, ErrEmptyInput
	}

	con := explicit
	if con.IsEmpty() {
		con = sr.parser.Parse(text)
	}
	candidates := sr.candidateSet(normalized, con)

	result := &models.GeocodeResult{
		InputText:      text,
		NormalizedText: normalized,
	}

	altFloor := sr.cfg.Fuzzy.BaseThreshold * 0.8
	var alternatives []models.Alternative

	// Layers are tried most specific first and the first confident winner
	// stops the descent. A low-confidence winner never stops it: the search
	// continues to coarser layers and the weak hit survives only as a
	// fallback when nothing confident turns up anywhere.
	var fallback *layerMatch
	var fallbackLayer string
	for _, layer := range cascadeLayers {
		winner, alts := sr.matchLayer(snap, layer, candidates, con, altFloor)
		alternatives = append(alternatives, alts...)
		if winner == nil {
			continue
		}
		if winner.Exact || winner.Score >= sr.cfg.Fuzzy.BaseThreshold {
			sr.fillResult(snap, result, layer, winner)
			result.Alternatives = trimAlternatives(alternatives, winner.Entry.FeatureID, sr.cfg.Resolver.MaxAlternatives)
			return result, nil
		}
		if fallback == nil || winner.Final > fallback.Final {
			fallback = winner
			fallbackLayer = layer
		}
	}
	if fallback != nil {
		sr.fillResult(snap, result, fallbackLayer, fallback)
		result.Alternatives = trimAlternatives(alternatives, fallback.Entry.FeatureID, sr.cfg.Resolver.MaxAlternatives)
		return result, nil
	}

	result.Alternatives = trimAlternatives(alternatives, "", sr.cfg.Resolver.MaxAlternatives)
	sr.logger.Debug("no gazetteer match",
		zap.String("normalized", normalized),
		zap.Int("alternatives", len(result.Alternatives)))
	return result, nil
}

// candidateSet builds the lookup strings for one resolution. A parsed
// settlement hint goes first, with and without a trailing "area", so the
// most intentional mention is tried before raw n-grams.
func (sr *SpatialResolver) candidateSet(normalized string, con *normalizer.Constraint) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(c string) {
		if c == "" {
			return
		}
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	if con.Village != "" {
		add(con.Village)
		add(strings.TrimSuffix(con.Village, " area"))
	}
	for _, c := range sr.extractor.ExtractCandidates(normalized) {
		add(c)
	}
	if max := sr.cfg.Resolver.MaxCandidates; len(out) > max {
		out = out[:max]
	}
	return out
}

type layerMatch struct {
	matcher.Candidate
	Final float64
}

// matchLayer scores every candidate string against one layer and returns
// the best acceptable winner plus near-threshold alternatives. A candidate
// whose lineage contradicts the constraint never wins, whatever its score.
func (sr *SpatialResolver) matchLayer(snap *index.Snapshot, layer string, candidates []string, con *normalizer.Constraint, altFloor float64) (*layerMatch, []models.Alternative) {
	pool := snap.Entries(layer, con)
	if len(pool) == 0 {
		pool = snap.Entries(layer, nil)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	var winner *layerMatch
	bestByFeature := make(map[string]layerMatch)

	for _, q := range candidates {
		for _, cand := range sr.fm.Match(q, pool) {
			final := sr.scorer.Score(cand, con)
			lm := layerMatch{Candidate: cand, Final: final}

			if prev, ok := bestByFeature[cand.Entry.FeatureID]; !ok || final > prev.Final {
				bestByFeature[cand.Entry.FeatureID] = lm
			}

			if final < sr.acceptFloor(q) {
				continue
			}
			if matcher.Contradicts(cand.Entry.Lineage, con) {
				continue
			}
			if winner == nil || final > winner.Final || (final == winner.Final && cand.Exact && !winner.Exact) {
				copied := lm
				winner = &copied
			}
		}
	}

	var alts []models.Alternative
	for _, lm := range bestByFeature {
		if lm.Final < altFloor {
			continue
		}
		alts = append(alts, sr.toAlternative(snap, layer, lm))
	}
	return winner, alts
}

// acceptFloor is the boosted score a candidate must clear to count as a
// layer winner at all. Short queries drop to the low-confidence floor.
func (sr *SpatialResolver) acceptFloor(query string) float64 {
	if len(strings.Fields(query)) <= sr.cfg.Fuzzy.ShortQueryTokens ||
		len(query) <= sr.cfg.Fuzzy.ShortQueryChars {
		return sr.cfg.Fuzzy.LowConfidence
	}
	return sr.cfg.Fuzzy.BaseThreshold
}

// fillResult loads the winner's feature and fills coordinates and lineage
// per layer. County matches keep their coordinates withheld: a county is
// too coarse to map to a point honestly.
func (sr *SpatialResolver) fillResult(snap *index.Snapshot, result *models.GeocodeResult, layer string, winner *layerMatch) {
	result.ResolvedLayer = layer
	result.FeatureID = winner.Entry.FeatureID
	result.MatchedName = winner.Entry.Name
	result.Score = winner.Final

	switch layer {
	case models.LayerSettlements:
		sp := snap.Settlement(winner.Entry.FeatureID)
		if sp == nil {
			return
		}
		pt := sp.Point()
		result.Lon, result.Lat = ptr(pt[0]), ptr(pt[1])
		lin := mergeLineage(sp.Lineage, lineageIfIncomplete(snap, sp.Lineage, pt))
		result.Village = sp.Name
		result.Boma, result.Payam = lin.Boma, lin.Payam
		result.County, result.State = lin.County, lin.State

	case models.LayerBoma, models.LayerPayam:
		f := snap.Feature(layer, winner.Entry.FeatureID)
		if f == nil {
			return
		}
		if lon, lat, err := Centroid(f.Geometry); err == nil {
			result.Lon, result.Lat = ptr(lon), ptr(lat)
		} else {
			sr.logger.Warn("centroid failed",
				zap.String("feature_id", f.FeatureID), zap.Error(err))
		}
		if layer == models.LayerBoma {
			result.Boma = f.Name
			result.Payam = f.Lineage.Payam
		} else {
			result.Payam = f.Name
		}
		result.County, result.State = f.Lineage.County, f.Lineage.State

	case models.LayerCounty:
		f := snap.Feature(layer, winner.Entry.FeatureID)
		if f == nil {
			return
		}
		result.County = f.Name
		result.State = f.Lineage.State
		result.ResolutionTooCoarse = true
	}
}

// lineageIfIncomplete derives lineage spatially only when the stored one
// has gaps, polygon scans are not free.
func lineageIfIncomplete(snap *index.Snapshot, stored models.Lineage, pt orb.Point) models.Lineage {
	if stored.State != "" && stored.County != "" && stored.Payam != "" && stored.Boma != "" {
		return models.Lineage{}
	}
	return LineageForPoint(snap, pt)
}

func (sr *SpatialResolver) toAlternative(snap *index.Snapshot, layer string, lm layerMatch) models.Alternative {
	alt := models.Alternative{
		Layer:     layer,
		FeatureID: lm.Entry.FeatureID,
		Name:      lm.Entry.Name,
		Score:     lm.Final,
	}
	switch layer {
	case models.LayerSettlements:
		if sp := snap.Settlement(lm.Entry.FeatureID); sp != nil {
			alt.Lon, alt.Lat = ptr(sp.Lon), ptr(sp.Lat)
		}
	case models.LayerBoma, models.LayerPayam:
		if f := snap.Feature(layer, lm.Entry.FeatureID); f != nil {
			if lon, lat, err := Centroid(f.Geometry); err == nil {
				alt.Lon, alt.Lat = ptr(lon), ptr(lat)
			}
		}
	}
	return alt
}

// trimAlternatives drops the winner, sorts best first and bounds the list.
func trimAlternatives(alts []models.Alternative, winnerID string, limit int) []models.Alternative {
	kept := alts[:0]
	for _, a := range alts {
		if a.FeatureID == winnerID {
			continue
		}
		kept = append(kept, a)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Name < kept[j].Name
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

func ptr(v float64) *float64 {
	return &v
}
