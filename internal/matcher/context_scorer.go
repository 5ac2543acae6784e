package matcher

import (
	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/index"
	"github.com/gazetteer-geocoder/internal/normalizer"
)

// nonExactCeiling keeps boosted fuzzy scores below a literal match, so 1.0
// always means the normalized forms were identical.
const nonExactCeiling = 0.99

// ContextScorer adjusts a fuzzy score with the administrative context of the
// candidate: agreement or disagreement with the parsed constraint, plus a
// small bonus for more specific layers so a settlement outranks the county
// of the same name.
type ContextScorer struct {
	cfg *config.BoostCfg
}

func NewContextScorer(cfg *config.BoostCfg) *ContextScorer {
	return &ContextScorer{cfg: cfg}
}

// Score returns the candidate's final score in [0, 1].
func (cs *ContextScorer) Score(cand Candidate, con *normalizer.Constraint) float64 {
	score := cand.Score + cs.specificityBonus(cand.Entry.Layer)
	if !con.IsEmpty() {
		score += cs.contextAdjustment(cand.Entry.Lineage, con)
	}

	if score < 0 {
		return 0
	}
	ceiling := 1.0
	if !cand.Exact {
		ceiling = nonExactCeiling
	}
	if score > ceiling {
		return ceiling
	}
	return score
}

// contextAdjustment compares the constraint to the candidate's lineage.
// State and county carry penalties on disagreement; payam and boma only
// reward agreement, since field reports get them wrong too often to punish.
// A county qualifier that actually names the candidate's state counts as
// state agreement.
func (cs *ContextScorer) contextAdjustment(lin models.Lineage, con *normalizer.Constraint) float64 {
	var adj float64

	if con.State != "" {
		if index.LineageAgrees(con.State, lin.State) {
			adj += cs.cfg.StateMatch
		} else {
			adj += cs.cfg.StateMismatch
		}
	}

	if con.County != "" {
		switch {
		case index.LineageAgrees(con.County, lin.County):
			adj += cs.cfg.CountyMatch
		case index.LineageAgrees(con.County, lin.State):
			adj += cs.cfg.StateMatch
		default:
			adj += cs.cfg.CountyMismatch
		}
	}

	if con.Payam != "" && index.LineageAgrees(con.Payam, lin.Payam) {
		adj += cs.cfg.PayamMatch
	}
	if con.Boma != "" && index.LineageAgrees(con.Boma, lin.Boma) {
		adj += cs.cfg.BomaMatch
	}
	return adj
}

func (cs *ContextScorer) specificityBonus(layer string) float64 {
	switch layer {
	case models.LayerSettlements:
		return cs.cfg.VillageBonus
	case models.LayerBoma:
		return cs.cfg.BomaBonus
	case models.LayerPayam:
		return cs.cfg.PayamBonus
	case models.LayerCounty:
		return cs.cfg.CountyBonus
	case models.LayerState:
		return cs.cfg.StateBonus
	}
	return 0
}

// Contradicts reports whether a candidate's lineage is incompatible with an
// explicit constraint at the levels that carry penalties. The resolver uses
// this to discard a winner instead of returning a confident wrong answer.
func Contradicts(lin models.Lineage, con *normalizer.Constraint) bool {
	if con.IsEmpty() {
		return false
	}
	if con.State != "" && lin.State != "" && !index.LineageAgrees(con.State, lin.State) {
		return true
	}
	if con.County != "" && lin.County != "" &&
		!index.LineageAgrees(con.County, lin.County) &&
		!index.LineageAgrees(con.County, lin.State) {
		return true
	}
	return false
}
