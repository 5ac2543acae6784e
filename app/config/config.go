package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FuzzyCfg holds the staged fuzzy-matching thresholds. Stages are attempted
// highest-first and the first non-empty stage wins.
type FuzzyCfg struct {
	BaseThreshold      float64   `yaml:"base_threshold" json:"base_threshold"`
	StageThresholds    []float64 `yaml:"stage_thresholds" json:"stage_thresholds"`
	LowConfidence      float64   `yaml:"low_confidence" json:"low_confidence"`
	ShortQueryTokens   int       `yaml:"short_query_tokens" json:"short_query_tokens"`
	ShortQueryChars    int       `yaml:"short_query_chars" json:"short_query_chars"`
	SubstringLenRatio  float64   `yaml:"substring_len_ratio" json:"substring_len_ratio"`
	SubstringDownscale float64   `yaml:"substring_downscale" json:"substring_downscale"`
}

// BoostCfg holds the context-agreement adjustments applied on top of the raw
// similarity score. The numbers are empirically tuned, not derived from a
// cost model; treat them as knobs.
type BoostCfg struct {
	StateMatch     float64 `yaml:"state_match" json:"state_match"`
	StateMismatch  float64 `yaml:"state_mismatch" json:"state_mismatch"`
	CountyMatch    float64 `yaml:"county_match" json:"county_match"`
	CountyMismatch float64 `yaml:"county_mismatch" json:"county_mismatch"`
	PayamMatch     float64 `yaml:"payam_match" json:"payam_match"`
	BomaMatch      float64 `yaml:"boma_match" json:"boma_match"`

	// Specificity bonuses per resolved layer.
	VillageBonus float64 `yaml:"village_bonus" json:"village_bonus"`
	BomaBonus    float64 `yaml:"boma_bonus" json:"boma_bonus"`
	PayamBonus   float64 `yaml:"payam_bonus" json:"payam_bonus"`
	CountyBonus  float64 `yaml:"county_bonus" json:"county_bonus"`
	StateBonus   float64 `yaml:"state_bonus" json:"state_bonus"`
}

// ResolverCfg holds resolution-cascade settings.
type ResolverCfg struct {
	MaxAlternatives int `yaml:"max_alternatives" json:"max_alternatives"`
	MaxCandidates   int `yaml:"max_candidates" json:"max_candidates"`
	// CentroidUTMZone is the UTM zone used for polygon centroid computation.
	// Zone 36N (EPSG:32636) covers South Sudan.
	CentroidUTMZone int `yaml:"centroid_utm_zone" json:"centroid_utm_zone"`
	NgramMaxTokens  int `yaml:"ngram_max_tokens" json:"ngram_max_tokens"`
	MinCandidateLen int `yaml:"min_candidate_len" json:"min_candidate_len"`
}

// ExtractCfg holds document-extraction collaborator settings.
type ExtractCfg struct {
	EnableOllama  bool          `yaml:"enable_ollama" json:"enable_ollama"`
	OllamaBaseURL string        `yaml:"ollama_base_url" json:"ollama_base_url"`
	OllamaModel   string        `yaml:"ollama_model" json:"ollama_model"`
	OllamaTimeout time.Duration `yaml:"ollama_timeout" json:"ollama_timeout"`
}

// UnmarshalYAML parses duration fields from strings like "20s".
func (c *ExtractCfg) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		EnableOllama  *bool  `yaml:"enable_ollama"`
		OllamaBaseURL string `yaml:"ollama_base_url"`
		OllamaModel   string `yaml:"ollama_model"`
		OllamaTimeout string `yaml:"ollama_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.EnableOllama != nil {
		c.EnableOllama = *raw.EnableOllama
	}
	if raw.OllamaBaseURL != "" {
		c.OllamaBaseURL = raw.OllamaBaseURL
	}
	if raw.OllamaModel != "" {
		c.OllamaModel = raw.OllamaModel
	}
	if raw.OllamaTimeout != "" {
		d, err := time.ParseDuration(raw.OllamaTimeout)
		if err != nil {
			return err
		}
		c.OllamaTimeout = d
	}
	return nil
}

// CacheCfg holds result-cache settings.
type CacheCfg struct {
	TTL    time.Duration `yaml:"ttl" json:"ttl"`
	L1Size int           `yaml:"l1_size" json:"l1_size"`
}

// UnmarshalYAML parses the ttl field from strings like "24h".
func (c *CacheCfg) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TTL    string `yaml:"ttl"`
		L1Size *int   `yaml:"l1_size"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.TTL != "" {
		d, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return err
		}
		c.TTL = d
	}
	if raw.L1Size != nil {
		c.L1Size = *raw.L1Size
	}
	return nil
}

// GeocoderCfg is the full tunable configuration for the geocoding engine.
type GeocoderCfg struct {
	Fuzzy    FuzzyCfg    `yaml:"fuzzy" json:"fuzzy"`
	Boost    BoostCfg    `yaml:"boost" json:"boost"`
	Resolver ResolverCfg `yaml:"resolver" json:"resolver"`
	Extract  ExtractCfg  `yaml:"extract" json:"extract"`
	Cache    CacheCfg    `yaml:"cache" json:"cache"`
}

var C = Defaults()

// Defaults returns the documented default configuration.
func Defaults() GeocoderCfg {
	return GeocoderCfg{
		Fuzzy: FuzzyCfg{
			BaseThreshold:      0.7,
			StageThresholds:    []float64{0.9, 0.8},
			LowConfidence:      0.5,
			ShortQueryTokens:   2,
			ShortQueryChars:    5,
			SubstringLenRatio:  0.6,
			SubstringDownscale: 0.75,
		},
		Boost: BoostCfg{
			StateMatch:     0.20,
			StateMismatch:  -0.50,
			CountyMatch:    0.20,
			CountyMismatch: -0.30,
			PayamMatch:     0.05,
			BomaMatch:      0.05,
			VillageBonus:   0.15,
			BomaBonus:      0.10,
			PayamBonus:     0.05,
			CountyBonus:    0.02,
			StateBonus:     0.01,
		},
		Resolver: ResolverCfg{
			MaxAlternatives: 5,
			MaxCandidates:   20,
			CentroidUTMZone: 36,
			NgramMaxTokens:  5,
			MinCandidateLen: 3,
		},
		Extract: ExtractCfg{
			EnableOllama:  true,
			OllamaBaseURL: "http://localhost:11434",
			OllamaModel:   "llama3.2:3b",
			OllamaTimeout: 20 * time.Second,
		},
		Cache: CacheCfg{
			TTL:    24 * time.Hour,
			L1Size: 10000,
		},
	}
}

// Load reads the yaml config file into C and applies env overrides.
func Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return err
	}
	C = cfg
	applyEnvOverrides()
	return nil
}

func applyEnvOverrides() {
	if v := os.Getenv("FUZZY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			C.Fuzzy.BaseThreshold = f
		}
	}
	switch os.Getenv("ENABLE_OLLAMA") {
	case "0", "false":
		C.Extract.EnableOllama = false
	case "1", "true":
		C.Extract.EnableOllama = true
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		C.Extract.OllamaBaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		C.Extract.OllamaModel = v
	}
}

// RequestTimeout bounds a single resolve request end to end.
func RequestTimeout() time.Duration { return 1500 * time.Millisecond }
