package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalService = errors.New("external service error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
	ErrPersistence     = errors.New("persistence failure")
)

// Category labels a failure for logs, publish records, and notifications.
type Category string

const (
	CategoryConfiguration Category = "configuration"
	CategoryValidation    Category = "validation"
	CategoryNotFound      Category = "not_found"
	CategoryTimeout       Category = "timeout"
	CategoryExternal      Category = "external"
	CategoryPersistence   Category = "persistence"
	CategoryTransient     Category = "transient"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the category reported alongside failed attempts.
// Context deadline errors count as timeouts even when unwrapped.
func Classify(err error) Category {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return CategoryConfiguration
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, ErrPersistence):
		return CategoryPersistence
	case errors.Is(err, ErrExternalService):
		return CategoryExternal
	default:
		return CategoryTransient
	}
}

// Retryable reports whether a failure is worth another attempt.
func Retryable(err error) bool {
	switch Classify(err) {
	case CategoryConfiguration, CategoryValidation, CategoryNotFound:
		return false
	case "":
		return false
	default:
		return !errors.Is(err, context.Canceled)
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
