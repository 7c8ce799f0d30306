package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"newsreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "render-video", "tts", "synthesis failed", base)
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"render-video", "tts", "synthesis failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestDetails(t *testing.T) {
	err := fmt.Errorf("outer: %w", services.Wrap(services.ErrParse, "build-slides", "parse yaml", "bad deck", errors.New("line 3")))
	details := services.Details(err)
	if details.Kind != services.ErrorKindParse {
		t.Fatalf("kind = %q", details.Kind)
	}
	if details.Stage != "build-slides" || details.Operation != "parse yaml" || details.Message != "bad deck" {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.Cause == nil || details.Cause.Error() != "line 3" {
		t.Fatalf("unexpected cause: %v", details.Cause)
	}

	plain := services.Details(errors.New("plain"))
	if plain.Kind != services.ErrorKindUnknown || plain.Message != "plain" {
		t.Fatalf("unexpected plain details: %+v", plain)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"external", services.Wrap(services.ErrExternalService, "", "", "", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "", "", "", nil), true},
		{"parse", services.Wrap(services.ErrParse, "", "", "", nil), false},
		{"canceled", fmt.Errorf("%w: %w", services.ErrExternalService, context.Canceled), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOfDeadline(t *testing.T) {
	if kind := services.KindOf(context.DeadlineExceeded); kind != services.ErrorKindTimeout {
		t.Fatalf("kind = %q", kind)
	}
}
