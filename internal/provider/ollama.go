package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/qualitran/internal"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaTimeout = 60 * time.Second
)

// ollamaBackend scores translations through a self-hosted Ollama instance.
type ollamaBackend struct {
	modelName string
	baseURL   string
	client    *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func newOllamaBackend(cfg Config) *ollamaBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultOllamaTimeout
	}
	return &ollamaBackend{
		modelName: cfg.Model,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (b *ollamaBackend) name() string  { return "ollama" }
func (b *ollamaBackend) model() string { return b.modelName }

func (b *ollamaBackend) complete(ctx context.Context, system, user string) (string, internal.TokenUsage, error) {
	var usage internal.TokenUsage

	reqBody := ollamaRequest{
		Model:  b.modelName,
		System: system,
		Prompt: user,
		Stream: false,
		Format: "json",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", usage, &PermanentError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/generate", b.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", usage, &PermanentError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", usage, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", usage, classifyStatus(resp.StatusCode, fmt.Errorf("ollama returned status %d", resp.StatusCode))
	}

	var body ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", usage, &MalformedResponseError{Path: "$", Reason: fmt.Sprintf("failed to decode response envelope: %v", err)}
	}

	usage = internal.TokenUsage{
		PromptTokens:     body.PromptEvalCount,
		CompletionTokens: body.EvalCount,
		TotalTokens:      body.PromptEvalCount + body.EvalCount,
	}
	return body.Response, usage, nil
}

var _ completer = (*ollamaBackend)(nil)
