// Package samples serves the built-in code samples.
package samples

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"repolens/internal/types"
)

//go:embed samples.yaml
var builtin []byte

// Load decodes the embedded sample set.
func Load() ([]types.CodeSample, error) {
	return Parse(builtin)
}

// Parse decodes a YAML list of samples. Every sample needs an id and code.
func Parse(raw []byte) ([]types.CodeSample, error) {
	var out []types.CodeSample
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse samples: %w", err)
	}
	seen := make(map[string]bool, len(out))
	for i, s := range out {
		if s.ID == "" || s.Code == "" {
			return nil, fmt.Errorf("sample %d: id and code are required", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate sample id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return out, nil
}
