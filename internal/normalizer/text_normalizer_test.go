package normalizer

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tn := NewTextNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase and whitespace collapse",
			input:    "  JUBA   Town ",
			expected: "juba town",
		},
		{
			name:     "diacritics stripped",
			input:    "Jubá",
			expected: "juba",
		},
		{
			name:     "punctuation removed",
			input:    "Wau, (Western Bahr el-Ghazal)",
			expected: "wau western bahr el ghazal",
		},
		{
			name:     "state abbreviation expanded",
			input:    "Yei, CES",
			expected: "yei central equatoria",
		},
		{
			name:     "wbeg abbreviation expanded",
			input:    "Wau WBEG",
			expected: "wau western bahr el ghazal",
		},
		{
			name:     "admin area abbreviation expanded",
			input:    "Pibor Adm Area",
			expected: "pibor administrative area",
		},
		{
			name:     "spelling variant folded",
			input:    "Bahr al Ghazal",
			expected: "bahr el ghazal",
		},
		{
			name:     "particle survives noise filtering",
			input:    "Northern Bahr el Ghazal",
			expected: "northern bahr el ghazal",
		},
		{
			name:     "stray single letters dropped",
			input:    "Juba * B camp",
			expected: "juba camp",
		},
		{
			name:     "digits kept",
			input:    "Block 5, Hai Referendum",
			expected: "block 5 hai referendum",
		},
		{
			name:     "empty input",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tn.Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	tn := NewTextNormalizer()

	inputs := []string{
		"Hai Masana area, Wau Town, Wau County",
		"Jubá, Céntral Equatoria",
		"Northern Bahr el-Ghazal State",
		"Pibor Adm Area",
		"NBeG",
	}
	for _, input := range inputs {
		once := tn.Normalize(input)
		twice := tn.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestFingerprint(t *testing.T) {
	tn := NewTextNormalizer()

	a := tn.Fingerprint("juba", "v1")
	b := tn.Fingerprint("juba", "v1")
	if a != b {
		t.Errorf("fingerprint not stable: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, "sha256:") {
		t.Errorf("fingerprint missing scheme prefix: %q", a)
	}
	if c := tn.Fingerprint("juba", "v2"); c == a {
		t.Error("fingerprint should change with gazetteer version")
	}
	if d := tn.Fingerprint("wau", "v1"); d == a {
		t.Error("fingerprint should change with text")
	}
}
