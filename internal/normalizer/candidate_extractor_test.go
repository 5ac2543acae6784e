package normalizer

import (
	"strings"
	"testing"

	"github.com/gazetteer-geocoder/app/config"
)

func TestExtractCandidates(t *testing.T) {
	ce := NewCandidateExtractor(&config.C.Resolver)

	t.Run("single token", func(t *testing.T) {
		got := ce.ExtractCandidates("juba")
		if len(got) != 1 || got[0] != "juba" {
			t.Errorf("ExtractCandidates(juba) = %v", got)
		}
	})

	t.Run("windows plus full text", func(t *testing.T) {
		got := ce.ExtractCandidates("hai masana wau")
		want := map[string]bool{
			"hai masana wau": false,
			"hai masana":     false,
			"masana wau":     false,
			"hai":            false,
			"masana":         false,
			"wau":            false,
		}
		for _, c := range got {
			if _, ok := want[c]; !ok {
				t.Errorf("unexpected candidate %q", c)
			}
			want[c] = true
		}
		for c, seen := range want {
			if !seen {
				t.Errorf("missing candidate %q", c)
			}
		}
	})

	t.Run("longest candidates first", func(t *testing.T) {
		got := ce.ExtractCandidates("northern bahr el ghazal")
		if len(got) == 0 || got[0] != "northern bahr el ghazal" {
			t.Errorf("full text should come first, got %v", got)
		}
		for i := 1; i < len(got); i++ {
			pi := len(strings.Fields(got[i-1]))
			ci := len(strings.Fields(got[i]))
			if ci > pi {
				t.Errorf("candidates not ordered by length: %q before %q", got[i-1], got[i])
			}
		}
	})

	t.Run("stop words dropped as unigrams", func(t *testing.T) {
		for _, c := range ce.ExtractCandidates("port of juba") {
			if c == "of" || c == "the" {
				t.Errorf("stop word leaked as candidate: %q", c)
			}
		}
	})

	t.Run("short fragments dropped", func(t *testing.T) {
		for _, c := range ce.ExtractCandidates("bo juba") {
			if len(c) < config.C.Resolver.MinCandidateLen {
				t.Errorf("candidate %q below minimum length", c)
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := ce.ExtractCandidates("  "); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}
