package extract

import (
	"context"
	"strings"
	"testing"
)

func TestRegexExtract(t *testing.T) {
	re := NewRegexExtractor()

	report := "Displaced families arrived in Wau Town from Kuarjena Boma. " +
		"Fighting was reported near the village of Mayen in Wau County, " +
		"and shelters opened in Hai Masana over the weekend."

	got, err := re.Extract(context.Background(), report)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	found := make(map[string]Extraction)
	for _, m := range got {
		found[strings.ToLower(m.Text)] = m
	}

	for _, want := range []string{"kuarjena boma", "mayen", "wau county", "hai masana"} {
		if _, ok := found[want]; !ok {
			t.Errorf("missing mention %q in %v", want, keys(found))
		}
	}

	for _, m := range got {
		if m.Method != "regex" {
			t.Errorf("mention %q method = %q", m.Text, m.Method)
		}
		if m.Context == "" || !strings.Contains(report, m.Text) {
			t.Errorf("mention %q has bad context or offset", m.Text)
		}
	}
}

func TestRegexExtractDedupes(t *testing.T) {
	re := NewRegexExtractor()

	got, _ := re.Extract(context.Background(), "Staff moved from Juba to Juba again, in Juba.")
	count := 0
	for _, m := range got {
		if strings.EqualFold(m.Text, "juba") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one deduplicated mention of juba, got %d", count)
	}
}

func TestParseOllamaLines(t *testing.T) {
	oe := &OllamaExtractor{}
	source := "Clashes near Mankien and Bentiu town displaced hundreds."

	got := oe.parseLines("- Mankien\n2. Bentiu\nAtlantis\n\n- Mankien", source)
	if len(got) != 2 {
		t.Fatalf("parseLines = %+v", got)
	}
	if got[0].Text != "Mankien" || got[1].Text != "Bentiu" {
		t.Errorf("mentions = %q, %q", got[0].Text, got[1].Text)
	}
	for _, m := range got {
		if m.Method != "ollama" {
			t.Errorf("method = %q", m.Method)
		}
	}
}

func keys(m map[string]Extraction) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
