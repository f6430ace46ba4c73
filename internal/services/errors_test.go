package services_test

import (
	"errors"
	"strings"
	"testing"

	"opptrace/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "scoring", "complete", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"scoring", "complete", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "fetch", "request", "no marker", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestDetailsStripsMarkerPrefix(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "fetch", "request", "provider timed out", nil)
	if got := services.Details(err); got != "fetch: request: provider timed out" {
		t.Fatalf("Details = %q", got)
	}
	if got := services.Details(nil); got != "" {
		t.Fatalf("Details(nil) = %q", got)
	}
	if got := services.Details(errors.New("plain")); got != "plain" {
		t.Fatalf("Details(plain) = %q", got)
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", services.Wrap(services.ErrValidation, "ingest", "parse", "bad", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "scoring", "auth", "missing key", nil), false},
		{"timeout", services.Wrap(services.ErrTimeout, "fetch", "request", "slow", nil), true},
		{"transient", services.Wrap(services.ErrTransient, "scoring", "complete", "502", nil), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
