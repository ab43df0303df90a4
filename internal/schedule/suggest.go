package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"postpilot/internal/logging"
	"postpilot/internal/platform"
	"postpilot/internal/services"
	"postpilot/internal/services/llm"
)

// Completer is the slice of an AI backend the suggester needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const suggestSystemPrompt = `You plan social media and blog publishing calendars.
Given platforms and a number of weekly posts per platform, choose the weekly
slots with the best expected audience engagement for a developer audience.
Respond with JSON only:
{"schedules":[{"platform":"<id>","day":"monday","time":"HH:MM","reasoning":"<one sentence>"}]}
Use 24 hour times and only the platform ids you were given.`

// SuggestRequest asks for slots per platform.
type SuggestRequest struct {
	// PostsPerWeek maps platform to the number of weekly slots wanted.
	PostsPerWeek map[platform.ID]int
	// Timezone is included in the prompt for context only.
	Timezone string
}

type suggestion struct {
	Platform  string `json:"platform"`
	Day       string `json:"day"`
	Time      string `json:"time"`
	Reasoning string `json:"reasoning"`
}

type suggestResponse struct {
	Schedules []suggestion `json:"schedules"`
}

// Suggester turns AI responses into validated, unsaved schedules.
type Suggester struct {
	completer Completer
	logger    *slog.Logger
	now       func() time.Time
}

// NewSuggester builds a suggester over completer.
func NewSuggester(completer Completer, logger *slog.Logger) *Suggester {
	return &Suggester{
		completer: completer,
		logger:    logging.NewComponentLogger(logger, "schedule-suggest"),
		now:       time.Now,
	}
}

// Suggest returns schedules marked createdByAI. Malformed or duplicate slots
// in the response are dropped with a warning; an empty result is an error.
func (s *Suggester) Suggest(ctx context.Context, req SuggestRequest) ([]WeeklySchedule, error) {
	if s == nil || s.completer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "schedule", "suggest", "no optimizer backend configured", nil)
	}
	if len(req.PostsPerWeek) == 0 {
		return nil, services.Wrap(services.ErrValidation, "schedule", "suggest", "no platforms requested", nil)
	}

	raw, err := s.completer.CompleteJSON(ctx, suggestSystemPrompt, buildSuggestPrompt(req))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "schedule", "suggest", "ai request failed", err)
	}
	var resp suggestResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "schedule", "suggest", "decode ai response", err)
	}

	now := s.now().UTC()
	seen := make(map[string]struct{})
	perPlatform := make(map[platform.ID]int)
	var out []WeeklySchedule
	for _, item := range resp.Schedules {
		candidate, err := s.toSchedule(ctx, item, now)
		if err != nil {
			logging.WarnWithContext(s.logger, "dropping ai schedule suggestion", "suggestion_invalid",
				logging.String("platform", item.Platform),
				logging.String("day", item.Day),
				logging.String("time", item.Time),
				logging.Error(err),
				logging.String(logging.FieldImpact, "slot not proposed"),
			)
			continue
		}
		want, requested := req.PostsPerWeek[candidate.PlatformID]
		if !requested || perPlatform[candidate.PlatformID] >= want {
			continue
		}
		key := fmt.Sprintf("%s/%s/%s", candidate.PlatformID, candidate.DayOfWeek, candidate.Time)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		perPlatform[candidate.PlatformID]++
		out = append(out, candidate)
	}
	if len(out) == 0 {
		return nil, services.Wrap(services.ErrExternalService, "schedule", "suggest", "ai response contained no usable slots", nil)
	}
	return out, nil
}

func (s *Suggester) toSchedule(ctx context.Context, item suggestion, now time.Time) (WeeklySchedule, error) {
	id, err := platform.Parse(item.Platform)
	if err != nil {
		return WeeklySchedule{}, err
	}
	day, err := ParseWeekday(item.Day)
	if err != nil {
		return WeeklySchedule{}, err
	}
	clock, err := NormalizeClock(item.Time)
	if err != nil {
		return WeeklySchedule{}, err
	}
	candidate := WeeklySchedule{
		ID:          uuid.NewString(),
		PlatformID:  id,
		DayOfWeek:   day,
		Time:        clock,
		Enabled:     true,
		CreatedByAI: true,
		AIReasoning: strings.TrimSpace(item.Reasoning),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := candidate.Validate(ctx); err != nil {
		return WeeklySchedule{}, err
	}
	return candidate, nil
}

func buildSuggestPrompt(req SuggestRequest) string {
	ids := make([]string, 0, len(req.PostsPerWeek))
	for id := range req.PostsPerWeek {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("Platforms and weekly post counts:\n")
	for _, id := range ids {
		pid := platform.ID(id)
		fmt.Fprintf(&b, "- %s (%s, %s content): %d posts per week\n", id, pid.DisplayName(), pid.Category(), req.PostsPerWeek[pid])
	}
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		fmt.Fprintf(&b, "Audience timezone: %s\n", tz)
	}
	return b.String()
}
