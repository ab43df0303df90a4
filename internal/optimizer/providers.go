package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/genai"

	"postpilot/internal/config"
	"postpilot/internal/services"
	"postpilot/internal/services/llm"
)

// Gemini completes prompts with the Google Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float64
}

// GeminiOption customizes the Gemini client.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at another endpoint.
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = baseURL
	}
}

// NewGemini constructs a Gemini completer.
func NewGemini(ctx context.Context, apiKey, model string, temperature float64, opts ...GeminiOption) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "optimizer", "gemini", "api key required", nil)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, temperature: temperature}, nil
}

func (g *Gemini) Name() string { return config.ProviderGemini }

// CompleteJSON requests a JSON response.
func (g *Gemini) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	if g.temperature > 0 {
		temp := float32(g.temperature)
		cfg.Temperature = &temp
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), cfg)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

// OpenAICompatible completes prompts against an OpenAI-style chat completions
// endpoint. Groq is served through its OpenAI compatible base URL.
type OpenAICompatible struct {
	client      openai.Client
	name        string
	model       string
	temperature float64
}

// NewOpenAICompatible constructs a chat completions completer. An empty
// baseURL uses the OpenAI default.
func NewOpenAICompatible(name, apiKey, baseURL, model string, temperature float64, timeout time.Duration) (*OpenAICompatible, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "optimizer", name, "api key required", nil)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(2)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &OpenAICompatible{
		client:      openai.NewClient(opts...),
		name:        name,
		model:       model,
		temperature: temperature,
	}, nil
}

func (o *OpenAICompatible) Name() string { return o.name }

// CompleteJSON sends a system and user message and returns the first choice.
func (o *OpenAICompatible) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}
	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", o.name)
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s returned empty content (finish_reason=%s)", o.name, completion.Choices[0].FinishReason)
	}
	return text, nil
}

// NewCompleter builds the completer for the configured provider. The "none"
// provider yields a nil completer and no error.
func NewCompleter(ctx context.Context, cfg config.Optimizer) (Completer, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderGemini:
		var opts []GeminiOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithGeminiBaseURL(cfg.BaseURL))
		}
		return NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.Temperature, opts...)
	case config.ProviderGroq, config.ProviderOpenAI:
		return NewOpenAICompatible(cfg.Provider, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, timeout)
	case config.ProviderOpenRouter:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "optimizer", "openrouter", "api key required", nil)
		}
		return llm.NewClient(llm.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			Temperature:    cfg.Temperature,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "optimizer", "provider", fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
	}
}

// FromConfig returns the optimizer for cfg.
func FromConfig(ctx context.Context, cfg config.Optimizer, logger *slog.Logger) (*Service, error) {
	completer, err := NewCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(completer, logger), nil
}
