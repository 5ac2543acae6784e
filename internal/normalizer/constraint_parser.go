package normalizer

import (
	"regexp"
	"strings"
)

// Constraint carries the administrative qualifiers parsed out of an input
// string, or supplied explicitly by a caller. Values are normalized. A
// constraint only reflects surface structure: validation against the
// gazetteer happens downstream.
type Constraint struct {
	State   string `json:"state,omitempty"`
	County  string `json:"county,omitempty"`
	Payam   string `json:"payam,omitempty"`
	Boma    string `json:"boma,omitempty"`
	Village string `json:"village,omitempty"`
}

// IsEmpty reports whether no qualifier was parsed or supplied.
func (c *Constraint) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.State == "" && c.County == "" && c.Payam == "" && c.Boma == "" && c.Village == ""
}

// ConstraintParser splits free text on separators and assigns each part to
// an administrative level, by keyword when one is present and by position
// otherwise.
type ConstraintParser struct {
	normalizer *TextNormalizer
	separator  *regexp.Regexp
}

func NewConstraintParser(tn *TextNormalizer) *ConstraintParser {
	return &ConstraintParser{
		normalizer: tn,
		separator:  regexp.MustCompile(`[,;/]`),
	}
}

// Parse derives a constraint from free text. Multi-part inputs like
// "Hai Masana area, Wau Town, Wau County" yield one qualifier per part.
// Single-part inputs yield an empty constraint.
func (cp *ConstraintParser) Parse(text string) *Constraint {
	con := &Constraint{}
	parts := cp.separator.Split(text, -1)
	if len(parts) < 2 {
		return con
	}

	var positional []string
	for _, raw := range parts {
		part := cp.normalizer.Normalize(raw)
		if part == "" {
			continue
		}
		if !cp.assignByKeyword(con, part) {
			positional = append(positional, part)
		}
	}

	// Without a keyword the first part is read as the most specific level
	// and the last as the coarsest qualifier. A lone unkeyworded part next
	// to keyworded ones goes coarse once a finer level is already claimed.
	for i, part := range positional {
		last := i == len(positional)-1
		if last && (i > 0 || con.Village != "") {
			cp.assignCoarse(con, part)
			continue
		}
		cp.assignSpecific(con, part)
	}
	return con
}

// assignByKeyword handles parts carrying an explicit level keyword. Repeated
// keywords overwrite: the last occurrence wins.
func (cp *ConstraintParser) assignByKeyword(con *Constraint, part string) bool {
	switch {
	case strings.HasSuffix(part, " county"):
		con.County = strings.TrimSuffix(part, " county")
	case strings.HasSuffix(part, " state"):
		con.State = strings.TrimSuffix(part, " state")
	case strings.HasSuffix(part, "administrative area"):
		// Administrative areas sit at the state level and keep their full
		// name ("abyei administrative area").
		con.State = part
	case strings.HasSuffix(part, " payam"):
		con.Payam = strings.TrimSuffix(part, " payam")
	case strings.HasSuffix(part, " boma"):
		con.Boma = strings.TrimSuffix(part, " boma")
	case strings.HasSuffix(part, " area"):
		// "area" is often part of the settlement name itself, so the value
		// keeps the keyword.
		cp.assignSettlement(con, part)
	case strings.HasSuffix(part, " town"), strings.HasSuffix(part, " village"), strings.HasSuffix(part, " settlement"):
		idx := strings.LastIndex(part, " ")
		cp.assignSettlement(con, part[:idx])
	default:
		return false
	}
	return true
}

// assignSettlement fills the village slot, spilling to the next coarser
// unfilled slot when a finer mention already claimed it.
func (cp *ConstraintParser) assignSettlement(con *Constraint, value string) {
	switch {
	case con.Village == "":
		con.Village = value
	case con.Boma == "":
		con.Boma = value
	case con.Payam == "":
		con.Payam = value
	}
}

func (cp *ConstraintParser) assignSpecific(con *Constraint, value string) {
	cp.assignSettlement(con, value)
}

func (cp *ConstraintParser) assignCoarse(con *Constraint, value string) {
	switch {
	case con.County == "":
		con.County = value
	case con.State == "":
		con.State = value
	}
}
