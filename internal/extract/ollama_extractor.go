package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gazetteer-geocoder/app/config"
)

const ollamaPrompt = `Extract every place name from the following South Sudan field report.
Return one place name per line, nothing else. Include villages, neighborhoods,
bomas, payams, counties and states exactly as written in the text.

Report:
%s`

// OllamaExtractor asks a local language model for the place names a regex
// pass cannot see: misspelled names, names without administrative keywords,
// names buried in prose. The service degrades gracefully when the model is
// down, extraction falls back to the regex results alone.
type OllamaExtractor struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaExtractor(cfg *config.ExtractCfg) *OllamaExtractor {
	return &OllamaExtractor{
		baseURL: strings.TrimRight(cfg.OllamaBaseURL, "/"),
		model:   cfg.OllamaModel,
		client:  &http.Client{Timeout: cfg.OllamaTimeout},
	}
}

func (oe *OllamaExtractor) Name() string { return "ollama" }

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (oe *OllamaExtractor) Extract(ctx context.Context, text string) ([]Extraction, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  oe.model,
		Prompt: fmt.Sprintf(ollamaPrompt, text),
		Stream: false,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		oe.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := oe.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama status %d", resp.StatusCode)
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ollama response: %w", err)
	}
	return oe.parseLines(parsed.Response, text), nil
}

// parseLines turns the model output into extractions, stripping list
// markers and dropping anything not actually present in the source text.
func (oe *OllamaExtractor) parseLines(output, source string) []Extraction {
	lowerSource := strings.ToLower(source)
	seen := make(map[string]struct{})
	var out []Extraction

	for _, line := range strings.Split(output, "\n") {
		mention := strings.TrimSpace(line)
		mention = strings.TrimLeft(mention, "-*0123456789. \t")
		mention = strings.Trim(mention, `"'`)
		if mention == "" || len(mention) > 80 {
			continue
		}
		key := strings.ToLower(mention)
		if _, dup := seen[key]; dup {
			continue
		}
		// Hallucination guard: the mention must occur in the report.
		pos := strings.Index(lowerSource, key)
		if pos < 0 {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Extraction{
			Text:    mention,
			Context: contextWindow(source, pos, pos+len(mention)),
			Method:  oe.Name(),
			Start:   pos,
			End:     pos + len(mention),
		})
	}
	return out
}
