package services_test

import (
	"context"
	"testing"

	"concierge/internal/services"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithResourceID(ctx, "123")
	ctx = services.WithTransition(ctx, "complete_task")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.ResourceIDFromContext(ctx); !ok || id != "123" {
		t.Fatalf("unexpected resource id %q ok=%v", id, ok)
	}
	if name, ok := services.TransitionFromContext(ctx); !ok || name != "complete_task" {
		t.Fatalf("unexpected transition %q ok=%v", name, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("unexpected request id %q ok=%v", rid, ok)
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	ctx := services.WithResourceID(context.Background(), "")
	ctx = services.WithTransition(ctx, "")
	if _, ok := services.ResourceIDFromContext(ctx); ok {
		t.Fatal("expected no resource id")
	}
	if _, ok := services.TransitionFromContext(ctx); ok {
		t.Fatal("expected no transition")
	}
}
