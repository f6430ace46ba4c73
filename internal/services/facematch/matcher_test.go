package facematch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"opptrace/internal/enrichment"
	"opptrace/internal/services"
)

func attendeesWithPhotos() []enrichment.Attendee {
	return []enrichment.Attendee{
		{
			Identity:    "alice-ng",
			DisplayName: "Alice Ng",
			Profile:     &enrichment.Profile{PhotoURL: "https://cdn.example.com/alice.jpg"},
		},
		{
			Identity:    "bob-tran",
			DisplayName: "Bob Tran",
			Profile:     &enrichment.Profile{},
		},
		{
			Identity: "carol",
		},
	}
}

func TestMatchParsesVerdict(t *testing.T) {
	svc := NewService(Config{Command: "matcher", MinConfidence: 0.2})
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "matcher" {
			t.Fatalf("command = %q", name)
		}
		if len(args) != 2 {
			t.Fatalf("args = %v", args)
		}
		if args[0] != "aGVsbG8=" {
			t.Fatalf("image arg = %q", args[0])
		}

		// Only attendees with a photo reach the candidate file.
		data, err := os.ReadFile(args[1])
		if err != nil {
			t.Fatalf("read candidate file: %v", err)
		}
		var candidates []map[string]any
		if err := json.Unmarshal(data, &candidates); err != nil {
			t.Fatalf("parse candidate file: %v", err)
		}
		if len(candidates) != 1 || candidates[0]["identity"] != "alice-ng" {
			t.Fatalf("candidates = %v", candidates)
		}

		return []byte(`{"success": true, "match": {"profile": {"identity": "alice-ng"}, "confidence": 0.91, "distance": 0.21, "verified": true}}`), nil
	})

	result, err := svc.Match(context.Background(), "aGVsbG8=", attendeesWithPhotos())
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if result == nil || result.Identity != "alice-ng" || !result.Verified {
		t.Fatalf("result = %+v", result)
	}
}

func TestMatchBelowConfidenceFloor(t *testing.T) {
	svc := NewService(Config{Command: "matcher", MinConfidence: 0.5})
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{"success": true, "match": {"profile": {"identity": "alice-ng"}, "confidence": 0.3}}`), nil
	})

	result, err := svc.Match(context.Background(), "aGVsbG8=", attendeesWithPhotos())
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no match, got %+v", result)
	}
}

func TestMatchHelperFailure(t *testing.T) {
	svc := NewService(Config{Command: "matcher"})
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{"success": false, "error": "no face detected in image"}`), nil
	})

	_, err := svc.Match(context.Background(), "aGVsbG8=", attendeesWithPhotos())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestMatchInvalidStdout(t *testing.T) {
	svc := NewService(Config{Command: "matcher"})
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Downloading model weights..."), nil
	})

	_, err := svc.Match(context.Background(), "aGVsbG8=", attendeesWithPhotos())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestMatchValidation(t *testing.T) {
	unconfigured := NewService(Config{})
	if _, err := unconfigured.Match(context.Background(), "aGVsbG8=", attendeesWithPhotos()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	svc := NewService(Config{Command: "matcher"})
	if _, err := svc.Match(context.Background(), "", attendeesWithPhotos()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty image, got %v", err)
	}
	if _, err := svc.Match(context.Background(), "aGVsbG8=", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for no candidates, got %v", err)
	}
}
