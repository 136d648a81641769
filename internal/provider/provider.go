// Package provider calls an external AI model to score a translation pair
// on the MQM dimensions (accuracy, fluency, terminology). Two backends are
// supported: any OpenAI-compatible chat API (OpenAI, OpenRouter) and a
// self-hosted Ollama instance. The package owns prompt construction,
// response extraction/validation, and the provider error taxonomy.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/qualitran/internal"
)

// Config selects and authenticates a provider backend.
type Config struct {
	Provider string        `mapstructure:"provider" json:"provider"`
	Model    string        `mapstructure:"model" json:"model"`
	APIKey   string        `mapstructure:"api_key" json:"api_key"`
	BaseURL  string        `mapstructure:"base_url" json:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// Request is one pair to score, with optional prompt context.
type Request struct {
	SourceText string
	TargetText string
	SourceLang string
	TargetLang string
	// Examples is a short natural-language list of related translations.
	Examples string
	// Context is the structured related-translations block.
	Context  string
	Glossary map[string]string
}

// MultiRequest scores one source against every enabled target language in a
// single call, for cross-language consistency and fewer round-trips.
type MultiRequest struct {
	SourceText string
	SourceLang string
	// Targets maps target language code to the translation under review.
	Targets  map[string]string
	Context  string
	Glossary map[string]string
}

// Dimensions carries the per-dimension verdict for one language.
type Dimensions struct {
	Accuracy    float64
	Fluency     float64
	Terminology float64
	Issues      []internal.QualityIssue
}

// Result is a validated single-pair evaluation.
type Result struct {
	Dimensions
	Provider string
	Model    string
	Usage    internal.TokenUsage
}

// MultiResult is a validated multi-language evaluation.
type MultiResult struct {
	PerLanguage map[string]Dimensions
	Provider    string
	Model       string
	Usage       internal.TokenUsage
}

// Evaluator scores translations through one configured backend.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, req Request) (*Result, error)
	EvaluateMulti(ctx context.Context, req MultiRequest) (*MultiResult, error)
}

// completer is the transport seam between the shared evaluation flow and a
// concrete backend: one prompt in, one raw reply out.
type completer interface {
	name() string
	model() string
	complete(ctx context.Context, system, user string) (string, internal.TokenUsage, error)
}

// New builds an Evaluator for the configured backend.
func New(cfg Config) (Evaluator, error) {
	switch cfg.Provider {
	case "openai", "openrouter":
		return &client{backend: newOpenAIBackend(cfg)}, nil
	case "ollama":
		return &client{backend: newOllamaBackend(cfg)}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.Provider)
	}
}
