package services_test

import (
	"context"
	"testing"

	"postpilot/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithScheduleID(ctx, "sched-1")
	ctx = services.WithPlatform(ctx, "devTo")
	ctx = services.WithTickID(ctx, "tick-9")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ScheduleIDFromContext(ctx); !ok || id != "sched-1" {
		t.Fatalf("unexpected schedule id: %v %v", id, ok)
	}
	if platform, ok := services.PlatformFromContext(ctx); !ok || platform != "devTo" {
		t.Fatalf("unexpected platform: %v %v", platform, ok)
	}
	if tick, ok := services.TickIDFromContext(ctx); !ok || tick != "tick-9" {
		t.Fatalf("unexpected tick id: %v %v", tick, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestPlatformBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPlatform(ctx, "")
	if _, ok := services.PlatformFromContext(ctx); ok {
		t.Fatal("expected no platform value")
	}
}
