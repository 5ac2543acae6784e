package extract

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
)

// Extraction is one place-name mention found in a document.
type Extraction struct {
	Text    string `json:"text"`
	Context string `json:"context"`
	Method  string `json:"method"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Strategy is one way of finding mentions in text.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, text string) ([]Extraction, error)
}

// GeocodeFunc resolves a mention against the gazetteer.
type GeocodeFunc func(ctx context.Context, text string) (*models.GeocodeResult, error)

// ExtractedLocation is a mention with its resolution.
type ExtractedLocation struct {
	Extraction
	Result *models.GeocodeResult `json:"result,omitempty"`
}

// ExtractionResult is the outcome of a document pass.
type ExtractionResult struct {
	Locations []ExtractedLocation `json:"locations"`
	Methods   map[string]int      `json:"methods"`
}

// DocumentExtractor runs the extraction ladder over a document: the regex
// pass first, then the language model only when the cheap pass left gaps.
// Every mention is resolved through the geocoder, so each location carries
// coordinates or an honest no-match.
type DocumentExtractor struct {
	regex   *RegexExtractor
	llm     Strategy
	geocode GeocodeFunc
	cfg     *config.ExtractCfg
	logger  *zap.Logger
}

func NewDocumentExtractor(geocode GeocodeFunc, cfg *config.ExtractCfg, logger *zap.Logger) *DocumentExtractor {
	de := &DocumentExtractor{
		regex:   NewRegexExtractor(),
		geocode: geocode,
		cfg:     cfg,
		logger:  logger,
	}
	if cfg.EnableOllama {
		de.llm = NewOllamaExtractor(cfg)
	}
	return de
}

// ExtractLocations runs the ladder and geocodes every distinct mention.
func (de *DocumentExtractor) ExtractLocations(ctx context.Context, text string) (*ExtractionResult, error) {
	result := &ExtractionResult{Methods: make(map[string]int)}
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	mentions, err := de.regex.Extract(ctx, text)
	if err != nil {
		return nil, err
	}

	resolved := de.resolveAll(ctx, mentions)
	if de.llm != nil && hasGaps(resolved) {
		llmMentions, err := de.llm.Extract(ctx, text)
		if err != nil {
			// Model down or slow: the regex results stand on their own.
			de.logger.Warn("llm extraction unavailable", zap.Error(err))
		} else {
			resolved = append(resolved, de.resolveAll(ctx, llmMentions)...)
		}
	}

	result.Locations = dedupe(resolved)
	for _, loc := range result.Locations {
		result.Methods[loc.Method]++
	}
	return result, nil
}

func (de *DocumentExtractor) resolveAll(ctx context.Context, mentions []Extraction) []ExtractedLocation {
	out := make([]ExtractedLocation, 0, len(mentions))
	for _, m := range mentions {
		loc := ExtractedLocation{Extraction: m}
		res, err := de.geocode(ctx, m.Text)
		if err != nil {
			de.logger.Debug("mention did not geocode",
				zap.String("text", m.Text), zap.Error(err))
		} else {
			loc.Result = res
		}
		out = append(out, loc)
	}
	return out
}

// hasGaps decides whether the model pass is worth its cost: nothing found,
// or too many mentions that did not resolve.
func hasGaps(locations []ExtractedLocation) bool {
	if len(locations) == 0 {
		return true
	}
	unresolved := 0
	for _, loc := range locations {
		if loc.Result == nil || !loc.Result.IsMatch() {
			unresolved++
		}
	}
	return unresolved*2 > len(locations)
}

// dedupe keeps the best-resolved mention per distinct text, regex results
// ahead of model results on ties.
func dedupe(locations []ExtractedLocation) []ExtractedLocation {
	best := make(map[string]int)
	var out []ExtractedLocation
	for _, loc := range locations {
		key := strings.ToLower(loc.Text)
		if idx, ok := best[key]; ok {
			if score(loc) > score(out[idx]) {
				out[idx] = loc
			}
			continue
		}
		best[key] = len(out)
		out = append(out, loc)
	}
	return out
}

func score(loc ExtractedLocation) float64 {
	if loc.Result == nil {
		return -1
	}
	return loc.Result.Score
}
