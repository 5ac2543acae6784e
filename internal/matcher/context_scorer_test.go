package matcher

import (
	"math"
	"testing"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/index"
	"github.com/gazetteer-geocoder/internal/normalizer"
)

func settlementCandidate(score float64, exact bool, lin models.Lineage) Candidate {
	return Candidate{
		Entry: index.Entry{
			Layer:     models.LayerSettlements,
			FeatureID: "pt-1",
			Lineage:   lin,
		},
		Score: score,
		Exact: exact,
	}
}

func TestScoreClampedToUnit(t *testing.T) {
	cs := NewContextScorer(&config.C.Boost)
	lin := models.Lineage{State: "central equatoria", County: "juba county"}

	exact := settlementCandidate(1.0, true, lin)
	got := cs.Score(exact, &normalizer.Constraint{County: "juba"})
	if got != 1.0 {
		t.Errorf("boosted exact match should clamp to 1.0, got %v", got)
	}

	mismatched := settlementCandidate(0.2, false, lin)
	if got := cs.Score(mismatched, &normalizer.Constraint{State: "unity", County: "rubkona"}); got != 0 {
		t.Errorf("heavily penalized score should clamp to 0, got %v", got)
	}
}

func TestScoreNonExactCeiling(t *testing.T) {
	cs := NewContextScorer(&config.C.Boost)
	lin := models.Lineage{State: "central equatoria", County: "juba county"}

	fuzzy := settlementCandidate(0.95, false, lin)
	got := cs.Score(fuzzy, &normalizer.Constraint{County: "juba"})
	if got >= 1.0 {
		t.Errorf("fuzzy match must stay below 1.0, got %v", got)
	}
}

func TestCountyAgreementAndPenalty(t *testing.T) {
	cs := NewContextScorer(&config.C.Boost)
	lin := models.Lineage{State: "western bahr el ghazal", County: "wau county"}
	base := settlementCandidate(0.8, false, lin)

	matched := cs.Score(base, &normalizer.Constraint{County: "wau"})
	neutral := cs.Score(base, nil)
	mismatched := cs.Score(base, &normalizer.Constraint{County: "juba"})

	if !(matched > neutral && neutral > mismatched) {
		t.Errorf("expected matched > neutral > mismatched, got %v, %v, %v",
			matched, neutral, mismatched)
	}

	wantMismatch := 0.8 + config.C.Boost.VillageBonus + config.C.Boost.CountyMismatch
	if math.Abs(mismatched-wantMismatch) > 1e-9 {
		t.Errorf("mismatch score = %v, want %v", mismatched, wantMismatch)
	}
}

func TestCoarseQualifierNamesState(t *testing.T) {
	cs := NewContextScorer(&config.C.Boost)
	lin := models.Lineage{State: "central equatoria", County: "juba county"}
	base := settlementCandidate(0.9, false, lin)

	// "Juba, Central Equatoria" parses the state name into the county slot.
	// That must count as agreement, not a county mismatch.
	got := cs.Score(base, &normalizer.Constraint{County: "central equatoria"})
	want := cs.Score(base, &normalizer.Constraint{State: "central equatoria"})
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("state-through-county boost = %v, want %v", got, want)
	}
}

func TestPayamBomaNoPenalty(t *testing.T) {
	cs := NewContextScorer(&config.C.Boost)
	lin := models.Lineage{Payam: "mankien", Boma: "kuerbona"}
	base := settlementCandidate(0.8, false, lin)

	neutral := cs.Score(base, nil)
	wrongPayam := cs.Score(base, &normalizer.Constraint{Payam: "mayom"})
	if wrongPayam != neutral {
		t.Errorf("payam disagreement must not penalize: %v != %v", wrongPayam, neutral)
	}

	rightPayam := cs.Score(base, &normalizer.Constraint{Payam: "mankien"})
	if rightPayam <= neutral {
		t.Errorf("payam agreement should reward: %v <= %v", rightPayam, neutral)
	}
}

func TestSpecificityOrdersLayers(t *testing.T) {
	cs := NewContextScorer(&config.C.Boost)

	layers := []string{
		models.LayerState,
		models.LayerCounty,
		models.LayerPayam,
		models.LayerBoma,
		models.LayerSettlements,
	}
	prev := -1.0
	for _, layer := range layers {
		cand := Candidate{Entry: index.Entry{Layer: layer}, Score: 0.8}
		got := cs.Score(cand, nil)
		if got <= prev {
			t.Errorf("layer %s should outscore coarser layers: %v <= %v", layer, got, prev)
		}
		prev = got
	}
}

func TestContradicts(t *testing.T) {
	lin := models.Lineage{State: "western bahr el ghazal", County: "wau county"}

	tests := []struct {
		name     string
		con      *normalizer.Constraint
		expected bool
	}{
		{"empty constraint", &normalizer.Constraint{}, false},
		{"county agrees", &normalizer.Constraint{County: "wau"}, false},
		{"county names state", &normalizer.Constraint{County: "western bahr el ghazal"}, false},
		{"county disagrees", &normalizer.Constraint{County: "juba"}, true},
		{"state disagrees", &normalizer.Constraint{State: "unity"}, true},
		{"payam only never contradicts", &normalizer.Constraint{Payam: "anything"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contradicts(lin, tt.con); got != tt.expected {
				t.Errorf("Contradicts = %v, want %v", got, tt.expected)
			}
		})
	}
}
