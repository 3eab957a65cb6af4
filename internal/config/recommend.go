package config

import (
	"fmt"
	"os"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"gopkg.in/yaml.v3"
)

// LoadRecommendConfig returns the engine defaults overlaid with the YAML file
// at path. Keys absent from the file keep their defaults; a mode row under
// "modes" replaces the built-in row for that mode as a whole.
func LoadRecommendConfig(path string) (recommend.Config, error) {
	cfg := recommend.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read recommend config: %w", err)
	}
	return ParseRecommendConfig(raw)
}

// ParseRecommendConfig overlays YAML onto the defaults and validates the result
func ParseRecommendConfig(raw []byte) (recommend.Config, error) {
	cfg := recommend.DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse recommend config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid recommend config: %w", err)
	}
	return cfg, nil
}
