// Package optimizer rewrites content for a target platform through a
// generative AI backend.
//
// The Optimizer is provider-agnostic: every backend (Gemini, Groq, OpenAI,
// OpenRouter) is reduced to a Completer that returns a JSON document for a
// system and user prompt. Decoded results are clamped to the platform limits
// before they are returned.
package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"postpilot/internal/content"
	"postpilot/internal/logging"
	"postpilot/internal/platform"
	"postpilot/internal/services"
	"postpilot/internal/services/llm"
)

// Completer returns a JSON completion for a system and user prompt.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Input is the content handed to the optimizer.
type Input struct {
	Title    string
	Content  string
	Excerpt  string
	Tags     []string
	Category content.Category
}

// InputFromItem copies the optimizable fields of an item.
func InputFromItem(item content.Item) Input {
	return Input{
		Title:    item.Title,
		Content:  item.Content,
		Excerpt:  item.Excerpt,
		Tags:     append([]string(nil), item.Tags...),
		Category: item.Category,
	}
}

// Result is the rewritten content.
type Result struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags"`
}

// Usable reports whether the result carries anything worth publishing.
func (r Result) Usable() bool {
	return strings.TrimSpace(r.Title) != "" || strings.TrimSpace(r.Content) != ""
}

// Apply overlays the non-empty fields of r onto item.
func (r Result) Apply(item content.Item) content.Item {
	if title := strings.TrimSpace(r.Title); title != "" {
		item.Title = title
	}
	if body := strings.TrimSpace(r.Content); body != "" {
		item.Content = body
	}
	if excerpt := strings.TrimSpace(r.Excerpt); excerpt != "" {
		item.Excerpt = excerpt
	}
	if len(r.Tags) > 0 {
		item.Tags = append([]string(nil), r.Tags...)
	}
	return item
}

// Optimizer is the call contract the dispatch loop depends on.
type Optimizer interface {
	Optimize(ctx context.Context, in Input, target platform.ID) (Result, error)
}

// Service implements Optimizer over a Completer.
type Service struct {
	completer Completer
	logger    *slog.Logger
}

// New returns an optimizer backed by completer.
func New(completer Completer, logger *slog.Logger) *Service {
	return &Service{completer: completer, logger: logging.NewComponentLogger(logger, "optimizer")}
}

// Enabled reports whether a backend is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.completer != nil
}

// Optimize rewrites in for target. A disabled optimizer returns the input
// unchanged.
func (s *Service) Optimize(ctx context.Context, in Input, target platform.ID) (Result, error) {
	if !s.Enabled() {
		return Clamp(passthrough(in), target), nil
	}
	userPrompt, err := buildPrompt(in, target)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "optimizer", "build prompt", "encode content", err)
	}
	raw, err := s.completer.CompleteJSON(ctx, OptimizePrompt, userPrompt)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "optimizer", "complete", "backend request failed", err)
	}
	var result Result
	if err := llm.DecodeJSON(raw, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "optimizer", "decode", "backend returned invalid JSON", err)
	}
	if !result.Usable() {
		return Result{}, services.Wrap(services.ErrExternalService, "optimizer", "decode", "backend returned empty content", nil)
	}
	result = Clamp(result, target)
	s.logger.Debug("content optimized",
		logging.String(logging.FieldPlatform, string(target)),
		logging.Int("title_chars", len([]rune(result.Title))),
		logging.Int("content_chars", len([]rune(result.Content))),
		logging.Int("tags", len(result.Tags)),
	)
	return result, nil
}

func passthrough(in Input) Result {
	return Result{Title: in.Title, Content: in.Content, Excerpt: in.Excerpt, Tags: append([]string(nil), in.Tags...)}
}

type promptPayload struct {
	Platform string   `json:"platform"`
	Category string   `json:"category"`
	Limits   string   `json:"limits"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Excerpt  string   `json:"excerpt,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func buildPrompt(in Input, target platform.ID) (string, error) {
	category := in.Category
	if category == "" {
		category = target.Category()
	}
	encoded, err := json.Marshal(promptPayload{
		Platform: target.DisplayName(),
		Category: string(category),
		Limits:   LimitsFor(target).Describe(),
		Title:    strings.TrimSpace(in.Title),
		Content:  strings.TrimSpace(in.Content),
		Excerpt:  strings.TrimSpace(in.Excerpt),
		Tags:     in.Tags,
	})
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}
	return string(encoded), nil
}
