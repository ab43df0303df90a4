package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"postpilot/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "publish", "devTo", "create article", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"publish", "devTo", "create article"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want services.Category
	}{
		{nil, ""},
		{services.Wrap(services.ErrConfiguration, "optimizer", "init", "missing key", nil), services.CategoryConfiguration},
		{services.Wrap(services.ErrValidation, "schedule", "parse", "bad time", nil), services.CategoryValidation},
		{fmt.Errorf("fetch: %w", context.DeadlineExceeded), services.CategoryTimeout},
		{services.Wrap(services.ErrPersistence, "store", "set", "disk full", nil), services.CategoryPersistence},
		{services.Wrap(services.ErrExternalService, "publish", "post", "500", nil), services.CategoryExternal},
		{errors.New("plain"), services.CategoryTransient},
	}
	for _, tc := range cases {
		if got := services.Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(services.Wrap(services.ErrValidation, "publish", "", "payload rejected", nil)) {
		t.Fatal("validation errors should not be retried")
	}
	if !services.Retryable(services.Wrap(services.ErrExternalService, "publish", "", "503", nil)) {
		t.Fatal("external errors should be retried")
	}
	if services.Retryable(context.Canceled) {
		t.Fatal("cancellation should not be retried")
	}
	if services.Retryable(nil) {
		t.Fatal("nil error should not be retried")
	}
}
