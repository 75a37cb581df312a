package analysis

import (
	"maps"
	"slices"
	"strings"

	"github.com/bryanwahyu/seller-hub/internal/errx"
)

// Family is a group of models sharing one upstream API contract.
type Family string

const (
	FamilyOpenAI   Family = "openai"
	FamilyDeepSeek Family = "deepseek"
	FamilyGoogle   Family = "google"
)

var familyPrefixes = []struct {
	prefix string
	family Family
}{
	{"gpt-", FamilyOpenAI},
	{"deepseek-", FamilyDeepSeek},
	{"gemini-", FamilyGoogle},
}

// DisplayName is used in upstream error messages.
func (f Family) DisplayName() string {
	switch f {
	case FamilyOpenAI:
		return "OpenAI"
	case FamilyDeepSeek:
		return "DeepSeek"
	case FamilyGoogle:
		return "Google Gemini"
	default:
		return string(f)
	}
}

// ParseFamily resolves the provider family from the model prefix.
// Matching is exact and case-sensitive; there is no fallback family.
func ParseFamily(model string) (Family, error) {
	for _, p := range familyPrefixes {
		if strings.HasPrefix(model, p.prefix) {
			return p.family, nil
		}
	}
	return "", errx.UnsupportedModel(model)
}

// ModelConfig holds the generation parameters sent upstream.
type ModelConfig struct {
	ProviderModel   string  `json:"provider_model"`
	MaxOutputTokens int     `json:"max_output_tokens"`
	Temperature     float32 `json:"temperature"`
}

type familyModels struct {
	defaultModel string
	models       map[string]ModelConfig
}

var modelTable = map[Family]familyModels{
	FamilyOpenAI: {
		defaultModel: "gpt-4o",
		models: map[string]ModelConfig{
			"gpt-4o":        {ProviderModel: "gpt-4o", MaxOutputTokens: 2000, Temperature: 0.7},
			"gpt-4-turbo":   {ProviderModel: "gpt-4-turbo-preview", MaxOutputTokens: 1500, Temperature: 0.7},
			"gpt-3.5-turbo": {ProviderModel: "gpt-3.5-turbo", MaxOutputTokens: 1000, Temperature: 0.8},
		},
	},
	FamilyDeepSeek: {
		defaultModel: "deepseek-v2",
		models: map[string]ModelConfig{
			"deepseek-v2":    {ProviderModel: "deepseek-chat", MaxOutputTokens: 2000, Temperature: 0.3},
			"deepseek-coder": {ProviderModel: "deepseek-coder", MaxOutputTokens: 1500, Temperature: 0.1},
		},
	},
	FamilyGoogle: {
		defaultModel: "gemini-1.5-pro",
		models: map[string]ModelConfig{
			"gemini-1.5-pro":       {ProviderModel: "gemini-1.5-pro", MaxOutputTokens: 2000, Temperature: 0.7},
			"gemini-1.5-flash":     {ProviderModel: "gemini-1.5-flash", MaxOutputTokens: 1500, Temperature: 0.7},
			"gemini-2.0-flash-exp": {ProviderModel: "gemini-2.0-flash-exp", MaxOutputTokens: 1500, Temperature: 0.8},
		},
	},
}

// ResolveModel returns the config for model, falling back to the family's
// default model when the id is not in the table.
func ResolveModel(family Family, model string) ModelConfig {
	fm := modelTable[family]
	if cfg, ok := fm.models[model]; ok {
		return cfg
	}
	return fm.models[fm.defaultModel]
}

// CatalogEntry describes one selectable model.
type CatalogEntry struct {
	ID       string      `json:"id"`
	Provider Family      `json:"provider"`
	Default  bool        `json:"default"`
	Config   ModelConfig `json:"config"`
}

// recommended models per category, best first
var recommended = map[Type][]string{
	TypeDiagnosis:    {"gpt-4o", "gpt-4-turbo"},
	TypeCopywriting:  {"gpt-4o", "gpt-3.5-turbo"},
	TypeBenchmarking: {"deepseek-v2", "gpt-4-turbo"},
	TypeSimulation:   {"deepseek-v2", "gpt-4o"},
	TypeAutomation:   {"deepseek-coder", "gpt-3.5-turbo"},
}

// Recommended returns the preferred models for an analysis type.
func Recommended(t Type) []string {
	out := make([]string, len(recommended[t]))
	copy(out, recommended[t])
	return out
}

// Catalog lists every configured model, grouped by family in a stable order.
func Catalog() []CatalogEntry {
	var out []CatalogEntry
	for _, p := range familyPrefixes {
		fm := modelTable[p.family]
		for _, id := range slices.Sorted(maps.Keys(fm.models)) {
			out = append(out, CatalogEntry{
				ID:       id,
				Provider: p.family,
				Default:  id == fm.defaultModel,
				Config:   fm.models[id],
			})
		}
	}
	return out
}
