package normalizer

import "testing"

func TestParseConstraint(t *testing.T) {
	cp := NewConstraintParser(NewTextNormalizer())

	tests := []struct {
		name     string
		input    string
		expected Constraint
	}{
		{
			name:     "single part yields empty constraint",
			input:    "Juba",
			expected: Constraint{},
		},
		{
			name:     "positional settlement and coarse qualifier",
			input:    "Juba, Central Equatoria",
			expected: Constraint{Village: "juba", County: "central equatoria"},
		},
		{
			name:  "county keyword stripped",
			input: "Hai Masana area, Wau Town, Wau County",
			expected: Constraint{
				Village: "hai masana area",
				Boma:    "wau",
				County:  "wau",
			},
		},
		{
			name:     "state keyword stripped",
			input:    "Bentiu, Unity State",
			expected: Constraint{Village: "bentiu", State: "unity"},
		},
		{
			name:     "administrative area kept whole",
			input:    "Pibor, Greater Pibor Administrative Area",
			expected: Constraint{Village: "pibor", State: "greater pibor administrative area"},
		},
		{
			name:     "payam and boma keywords",
			input:    "Mankien, Mankien Payam, Mayom County",
			expected: Constraint{Village: "mankien", Payam: "mankien", County: "mayom"},
		},
		{
			name:     "last county occurrence wins",
			input:    "Juba, Yei County, Juba County",
			expected: Constraint{Village: "juba", County: "juba"},
		},
		{
			name:     "three positional parts",
			input:    "Hai Malakal, Juba, Central Equatoria",
			expected: Constraint{Village: "hai malakal", Boma: "juba", County: "central equatoria"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cp.Parse(tt.input)
			if *got != tt.expected {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, *got, tt.expected)
			}
		})
	}
}

func TestConstraintIsEmpty(t *testing.T) {
	var nilCon *Constraint
	if !nilCon.IsEmpty() {
		t.Error("nil constraint should be empty")
	}
	if !(&Constraint{}).IsEmpty() {
		t.Error("zero constraint should be empty")
	}
	if (&Constraint{County: "wau"}).IsEmpty() {
		t.Error("constraint with county should not be empty")
	}
}
