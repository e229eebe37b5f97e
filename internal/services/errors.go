package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input. Nothing was changed.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized marks a caller lacking the required role or permission.
	ErrUnauthorized = errors.New("not authorized")
	// ErrNotFound marks a transition on a record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a transition on a record already in a terminal state.
	ErrConflict = errors.New("conflict")
	// ErrPersistence marks a save failure. The in-memory mutation stands.
	ErrPersistence = errors.New("persistence failure")
	// ErrPartial marks a multi-step transition that stopped part way through.
	ErrPartial = errors.New("partial failure")
	// ErrExternal marks a failed call to the chat platform.
	ErrExternal = errors.New("external service error")
)

// Kind names an error category for logs and user-facing replies.
type Kind string

const (
	KindNone         Kind = ""
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindPersistence  Kind = "persistence"
	KindPartial      Kind = "partial"
	KindExternal     Kind = "external"
	KindInternal     Kind = "internal"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorKind classifies err by the first matching marker. Persistence is
// checked last so a validation failure wrapped around a save error still
// reads as validation.
func ErrorKind(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrPartial):
		return KindPartial
	case errors.Is(err, ErrExternal):
		return KindExternal
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}

// Degraded reports whether err only signals that a completed transition could
// not be saved.
func Degraded(err error) bool {
	return ErrorKind(err) == KindPersistence
}

// UserMessage returns the reply shown to a chat member for err. Validation
// messages carry the wrapped detail because it describes the member's own
// input; every other kind gets a fixed sentence so internal ids and role
// lists never reach the channel.
func UserMessage(err error) string {
	switch ErrorKind(err) {
	case KindNone:
		return ""
	case KindValidation:
		return validationDetail(err)
	case KindUnauthorized:
		return "You do not have permission to do that."
	case KindNotFound:
		return "That record no longer exists."
	case KindConflict:
		return "That has already been done."
	case KindPersistence:
		return "Done, but the change could not be saved. An operator has been notified."
	case KindPartial:
		return "The action only partly completed. An operator has been notified."
	default:
		return "Something went wrong. Please try again."
	}
}

func validationDetail(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 && idx+2 < len(msg) {
		msg = msg[idx+2:]
	}
	if msg == "" {
		return "Invalid input."
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
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
