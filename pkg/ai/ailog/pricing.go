package ailog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelPrice is the price of a model in currency units per one million
// tokens.
type ModelPrice struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// Pricing maps model identifiers to their prices.
type Pricing map[string]ModelPrice

type pricingFile struct {
	Models Pricing `yaml:"models"`
}

// LoadPricing reads a YAML pricing table of the form
//
//	models:
//	  openai/gpt-4o-mini:
//	    input: 0.15
//	    output: 0.6
//
// An empty path returns an empty table.
func LoadPricing(path string) (Pricing, error) {
	if path == "" {
		return Pricing{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file %s: %w", path, err)
	}
	return ParsePricing(data)
}

// ParsePricing decodes a YAML pricing table.
func ParsePricing(data []byte) (Pricing, error) {
	var f pricingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse pricing: %w", err)
	}
	if f.Models == nil {
		return Pricing{}, nil
	}
	return f.Models, nil
}

// Cost returns the price of one call. Unknown models cost 0.
func (p Pricing) Cost(model string, inputTokens, outputTokens int) float64 {
	price, ok := p[model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)*price.Input + float64(outputTokens)*price.Output) / 1_000_000
}
