package matcher

import (
	"testing"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/index"
)

func entry(id, normalized string) index.Entry {
	return index.Entry{
		Layer:      models.LayerSettlements,
		FeatureID:  id,
		Name:       normalized,
		Normalized: normalized,
	}
}

func TestMatchExactShortCircuits(t *testing.T) {
	fm := NewFuzzyMatcher(&config.C.Fuzzy)
	entries := []index.Entry{
		entry("a", "juba"),
		entry("b", "jubba"),
		entry("c", "juba"),
	}

	got := fm.Match("juba", entries)
	if len(got) != 2 {
		t.Fatalf("expected both exact hits, got %+v", got)
	}
	for _, c := range got {
		if !c.Exact || c.Score != 1.0 {
			t.Errorf("exact candidate = %+v", c)
		}
	}
}

func TestMatchStagedThresholds(t *testing.T) {
	fm := NewFuzzyMatcher(&config.C.Fuzzy)
	entries := []index.Entry{
		entry("close", "malakal"),
		entry("far", "renk"),
	}

	got := fm.Match("malakel", entries)
	if len(got) != 1 || got[0].Entry.FeatureID != "close" {
		t.Fatalf("expected only the near-miss, got %+v", got)
	}
	if got[0].Exact {
		t.Error("fuzzy hit must not be marked exact")
	}
	if got[0].Score < config.C.Fuzzy.BaseThreshold || got[0].Score >= 1.0 {
		t.Errorf("fuzzy score out of range: %v", got[0].Score)
	}
}

func TestMatchNothingClearsThreshold(t *testing.T) {
	fm := NewFuzzyMatcher(&config.C.Fuzzy)
	entries := []index.Entry{
		entry("a", "bentiu"),
		entry("b", "torit"),
	}

	if got := fm.Match("xyzzyxx", entries); len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}

func TestSimilarityMonotonicity(t *testing.T) {
	fm := NewFuzzyMatcher(&config.C.Fuzzy)

	near := fm.Similarity("jubba", "juba")
	far := fm.Similarity("jubba", "wau")
	if near <= far {
		t.Errorf("one-edit variant (%v) should outscore unrelated name (%v)", near, far)
	}
	if near < 0.85 || near >= 1.0 {
		t.Errorf("Similarity(jubba, juba) = %v, want high but below 1.0", near)
	}
	if fm.Similarity("juba", "juba") != 1.0 {
		t.Error("identical strings must score 1.0")
	}
}

func TestSimilarityTokenOrder(t *testing.T) {
	fm := NewFuzzyMatcher(&config.C.Fuzzy)
	if got := fm.Similarity("county wau", "wau county"); got != 1.0 {
		t.Errorf("token reorder should score 1.0, got %v", got)
	}
}

func TestPartialRatioDownweight(t *testing.T) {
	fm := NewFuzzyMatcher(&config.C.Fuzzy)

	// "wau" inside a much longer string is contained but length-penalized.
	got := fm.partialRatio("wau", "wau west industrial zone")
	if got >= 1.0 {
		t.Errorf("short fragment should be downweighted, got %v", got)
	}
	if got != config.C.Fuzzy.SubstringDownscale {
		t.Errorf("contained fragment should score the downscale factor, got %v", got)
	}
}

func TestCandidateOrderingDeterministic(t *testing.T) {
	fm := NewFuzzyMatcher(&config.C.Fuzzy)
	entries := []index.Entry{
		entry("b", "mayom"),
		entry("a", "mayom"),
	}

	for i := 0; i < 5; i++ {
		got := fm.Match("mayom", entries)
		if len(got) != 2 || got[0].Entry.FeatureID != "a" || got[1].Entry.FeatureID != "b" {
			t.Fatalf("unstable ordering: %+v", got)
		}
	}
}
