package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	yml := `
fuzzy:
  base_threshold: 0.65
cache:
  ttl: 12h
extract:
  ollama_timeout: 5s
  enable_ollama: false
`
	path := filepath.Join(t.TempDir(), "geocoder.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	saved := C
	defer func() { C = saved }()

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if C.Fuzzy.BaseThreshold != 0.65 {
		t.Errorf("base threshold = %v", C.Fuzzy.BaseThreshold)
	}
	if C.Cache.TTL != 12*time.Hour {
		t.Errorf("cache ttl = %v", C.Cache.TTL)
	}
	if C.Extract.OllamaTimeout != 5*time.Second {
		t.Errorf("ollama timeout = %v", C.Extract.OllamaTimeout)
	}
	if C.Extract.EnableOllama {
		t.Error("enable_ollama: false should stick")
	}

	// Keys absent from the file keep their defaults.
	if C.Resolver.MaxAlternatives != 5 {
		t.Errorf("max alternatives = %v", C.Resolver.MaxAlternatives)
	}
	if C.Cache.L1Size != 10000 {
		t.Errorf("l1 size = %v", C.Cache.L1Size)
	}
}

func TestLoadMissingFile(t *testing.T) {
	saved := C
	defer func() { C = saved }()

	if err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
