package provider

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/valpere/qualitran/internal"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// openaiBackend talks to any OpenAI-compatible chat-completions API.
// OpenRouter only differs in its base URL.
type openaiBackend struct {
	providerName string
	modelName    string
	api          *openai.Client
}

func newOpenAIBackend(cfg Config) *openaiBackend {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		clientConfig.BaseURL = cfg.BaseURL
	case cfg.Provider == "openrouter":
		clientConfig.BaseURL = defaultOpenRouterBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &openaiBackend{
		providerName: cfg.Provider,
		modelName:    model,
		api:          openai.NewClientWithConfig(clientConfig),
	}
}

func (b *openaiBackend) name() string  { return b.providerName }
func (b *openaiBackend) model() string { return b.modelName }

func (b *openaiBackend) complete(ctx context.Context, system, user string) (string, internal.TokenUsage, error) {
	var usage internal.TokenUsage

	resp, err := b.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   1024,
		Temperature: 0.1,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", usage, classifyStatus(apiErr.HTTPStatusCode, err)
		}
		return "", usage, classifyTransport(err)
	}

	usage = internal.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	if len(resp.Choices) == 0 {
		return "", usage, &MalformedResponseError{Path: "$", Reason: "empty choice list from API"}
	}
	return resp.Choices[0].Message.Content, usage, nil
}

var _ completer = (*openaiBackend)(nil)
