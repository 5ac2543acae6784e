package normalizer

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextNormalizer canonicalizes raw place-name text for matching against the
// gazetteer. Normalize is pure and idempotent: running it on its own output
// returns the same string.
type TextNormalizer struct {
	punctPattern *regexp.Regexp
	spacePattern *regexp.Regexp

	// diacritics strips combining marks after NFD decomposition.
	diacritics transform.Transformer

	// abbreviations expands exact whole-word phrases, e.g. the common state
	// shorthands used in field reports ("wbeg" for Western Bahr el Ghazal).
	abbreviations []substitution

	// spellingVariants folds frequently misspelled names onto one canonical
	// spelling so the fuzzy stages see a single form.
	spellingVariants []substitution

	// protected are short connective particles that are load-bearing inside
	// compound names ("Bahr el Ghazal") and must survive noise filtering.
	protected map[string]string
	restore   map[string]string
}

type substitution struct {
	pattern     *regexp.Regexp
	replacement string
}

// protectedSentinel prefixes a particle while punctuation and short-token
// noise are being removed. Letters only, so it survives both passes.
const protectedSentinel = "zqprotectedzq"

// NewTextNormalizer creates a normalizer with the South Sudan substitution
// tables precompiled.
func NewTextNormalizer() *TextNormalizer {
	tn := &TextNormalizer{
		punctPattern: regexp.MustCompile(`[^a-z0-9\s]+`),
		spacePattern: regexp.MustCompile(`\s+`),
		diacritics:   transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		protected:    make(map[string]string),
		restore:      make(map[string]string),
	}

	tn.abbreviations = compileSubstitutions(map[string]string{
		"ces":        "central equatoria",
		"ees":        "eastern equatoria",
		"wes":        "western equatoria",
		"nbeg":       "northern bahr el ghazal",
		"nbg":        "northern bahr el ghazal",
		"wbeg":       "western bahr el ghazal",
		"wbg":        "western bahr el ghazal",
		"adm area":   "administrative area",
		"admin area": "administrative area",
		"aaa":        "abyei administrative area",
		"gpaa":       "greater pibor administrative area",
	})

	tn.spellingVariants = compileSubstitutions(map[string]string{
		"bahr al ghazal":  "bahr el ghazal",
		"bahar el ghazal": "bahr el ghazal",
		"bar el ghazal":   "bahr el ghazal",
		"billinyang":      "billinang",
		"melakal":         "malakal",
		"benitu":          "bentiu",
		"torit town":      "torit",
	})

	for _, particle := range []string{"el", "al", "na"} {
		sentinel := protectedSentinel + particle
		tn.protected[particle] = sentinel
		tn.restore[sentinel] = particle
	}

	return tn
}

func compileSubstitutions(table map[string]string) []substitution {
	subs := make([]substitution, 0, len(table))
	for phrase, replacement := range table {
		subs = append(subs, substitution{
			pattern:     regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`),
			replacement: replacement,
		})
	}
	// Longest phrase first so "admin area" wins over any shorter overlap.
	for i := 0; i < len(subs)-1; i++ {
		for j := i + 1; j < len(subs); j++ {
			if len(subs[j].pattern.String()) > len(subs[i].pattern.String()) {
				subs[i], subs[j] = subs[j], subs[i]
			}
		}
	}
	return subs
}

// Normalize canonicalizes text: unicode decomposition and diacritic
// stripping, lowercasing, abbreviation expansion, spelling-variant folding,
// punctuation removal and whitespace collapse. Connective particles are
// swapped for sentinels across the destructive passes and restored at the
// end.
func (tn *TextNormalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	working, _, err := transform.String(tn.diacritics, text)
	if err != nil {
		working = text
	}
	working = unidecode.Unidecode(working)
	working = strings.ToLower(working)

	for _, sub := range tn.abbreviations {
		working = sub.pattern.ReplaceAllString(working, sub.replacement)
	}
	for _, sub := range tn.spellingVariants {
		working = sub.pattern.ReplaceAllString(working, sub.replacement)
	}

	// Protection runs after punctuation removal so hyphenated forms like
	// "el-Ghazal" are already split into standalone tokens.
	working = tn.punctPattern.ReplaceAllString(working, " ")
	working = tn.protectParticles(working)
	working = tn.dropNoiseTokens(working)
	working = tn.restoreParticles(working)

	working = tn.spacePattern.ReplaceAllString(working, " ")
	return strings.TrimSpace(working)
}

// protectParticles replaces standalone protected particles with sentinels so
// the punctuation and noise passes cannot eat them.
func (tn *TextNormalizer) protectParticles(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		if sentinel, ok := tn.protected[f]; ok {
			fields[i] = sentinel
		}
	}
	return strings.Join(fields, " ")
}

func (tn *TextNormalizer) restoreParticles(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		if particle, ok := tn.restore[f]; ok {
			fields[i] = particle
		}
	}
	return strings.Join(fields, " ")
}

// dropNoiseTokens removes short letter-only tokens: initials, bullet
// remnants and filler words. Digits are kept, and protected particles are
// already sentinels at this point so they pass through.
func (tn *TextNormalizer) dropNoiseTokens(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		if len(f) <= 2 && lettersOnly(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func lettersOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// Fingerprint returns the cache fingerprint for a normalized string bound to
// a gazetteer version.
func (tn *TextNormalizer) Fingerprint(normalized, gazetteerVersion string) string {
	sum := sha256.Sum256([]byte(normalized + "\x1f" + gazetteerVersion))
	return fmt.Sprintf("sha256:%x", sum)
}
