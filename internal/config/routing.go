package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Routing holds the model table and the fixed prompts used around it.
type Routing struct {
	DefaultModel     string `yaml:"default_model"`
	ReasoningModel   string `yaml:"reasoning_model"`
	DefaultPersona   string `yaml:"default_persona"`
	ClassifierPrompt string `yaml:"classifier_prompt"`
	FunFactPersona   string `yaml:"funfact_persona"`
	FunFactPrompt    string `yaml:"funfact_prompt"`
}

// DefaultRouting returns the built-in table for a provider.
func DefaultRouting(provider string) Routing {
	r := Routing{
		DefaultModel:     "openai/gpt-oss-120b",
		ReasoningModel:   "deepseek-r1-distill-llama-70b",
		DefaultPersona:   "You are a sweet and kind loving assistant.",
		ClassifierPrompt: `You are a classifier. Answer with "simple" or "complex" based on the user question.`,
		FunFactPersona:   "You are a fun-fact generator.",
		FunFactPrompt:    "gimme a fact.",
	}
	if provider == ProviderGemini {
		r.DefaultModel = "gemini-2.5-flash"
		r.ReasoningModel = "gemini-2.5-pro"
	}
	return r
}

// LoadRouting overlays the non-empty fields of a YAML file onto base.
func LoadRouting(path string, base Routing) (Routing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file Routing
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	overlay(&base.DefaultModel, file.DefaultModel)
	overlay(&base.ReasoningModel, file.ReasoningModel)
	overlay(&base.DefaultPersona, file.DefaultPersona)
	overlay(&base.ClassifierPrompt, file.ClassifierPrompt)
	overlay(&base.FunFactPersona, file.FunFactPersona)
	overlay(&base.FunFactPrompt, file.FunFactPrompt)

	return base, nil
}

func overlay(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}
