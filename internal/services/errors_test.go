package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"concierge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternal, "lifecycle", "delete_channel", "failed", base)
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"lifecycle", "delete_channel", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestErrorKindClassification(t *testing.T) {
	tests := []struct {
		err  error
		want services.Kind
	}{
		{nil, services.KindNone},
		{services.Wrap(services.ErrValidation, "lifecycle", "create_task", "bad due time", nil), services.KindValidation},
		{services.Wrap(services.ErrUnauthorized, "lifecycle", "close_ticket", "missing staff role", nil), services.KindUnauthorized},
		{services.Wrap(services.ErrNotFound, "registry", "get", "task 1", nil), services.KindNotFound},
		{services.Wrap(services.ErrConflict, "lifecycle", "complete", "already completed", nil), services.KindConflict},
		{services.Wrap(services.ErrPersistence, "registry", "save", "", errors.New("disk full")), services.KindPersistence},
		{services.Wrap(services.ErrPartial, "lifecycle", "close", "", nil), services.KindPartial},
		{errors.New("plain"), services.KindInternal},
	}
	for _, tt := range tests {
		if got := services.ErrorKind(tt.err); got != tt.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestDegradedOnlyForPersistence(t *testing.T) {
	saveErr := services.Wrap(services.ErrPersistence, "registry", "save", "", errors.New("disk full"))
	if !services.Degraded(fmt.Errorf("create ticket: %w", saveErr)) {
		t.Fatal("expected persistence error to be degraded")
	}
	if services.Degraded(services.Wrap(services.ErrNotFound, "registry", "get", "", nil)) {
		t.Fatal("not found must not be reported as degraded")
	}
}

func TestUserMessageDoesNotLeakDetail(t *testing.T) {
	err := services.Wrap(services.ErrUnauthorized, "lifecycle", "close_ticket", "roles [111 222]", nil)
	msg := services.UserMessage(err)
	if strings.Contains(msg, "111") || strings.Contains(msg, "222") {
		t.Fatalf("user message leaks role ids: %q", msg)
	}

	validation := services.Wrap(services.ErrValidation, "lifecycle", "create_task", "due time must be HH:MM:SS", nil)
	if got := services.UserMessage(validation); got != "Due time must be HH:MM:SS" {
		t.Fatalf("unexpected validation message %q", got)
	}
	if services.UserMessage(nil) != "" {
		t.Fatal("expected empty message for nil error")
	}
}
