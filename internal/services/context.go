package services

import "context"

type contextKey string

const (
	scheduleIDKey contextKey = "schedule_id"
	platformKey   contextKey = "platform"
	tickIDKey     contextKey = "tick_id"
	requestIDKey  contextKey = "request_id"
)

// WithScheduleID annotates context with the weekly schedule identifier.
func WithScheduleID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, scheduleIDKey, id)
}

// ScheduleIDFromContext extracts the schedule identifier if present.
func ScheduleIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(scheduleIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPlatform annotates context with the target platform identifier.
func WithPlatform(ctx context.Context, platform string) context.Context {
	if platform == "" {
		return ctx
	}
	return context.WithValue(ctx, platformKey, platform)
}

// PlatformFromContext returns the platform identifier if present.
func PlatformFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(platformKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithTickID annotates context with the dispatch tick identifier.
func WithTickID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, tickIDKey, id)
}

// TickIDFromContext returns the tick identifier if present.
func TickIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(tickIDKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
