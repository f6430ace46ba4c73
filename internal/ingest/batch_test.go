package ingest_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"opptrace/internal/ingest"
	"opptrace/internal/services"
)

func TestParseValidBatch(t *testing.T) {
	doc := []byte(`{
		"source_reference": "https://events.example.com/hack-night",
		"attendees": [
			{"identity": "  alice-ng ", "display_name": "Alice Ng", "social_links": ["https://example.com/alice "]},
			{"identity": "", "display_name": "Walk-in"}
		]
	}`)

	batch, err := ingest.Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if batch.SourceReference != "https://events.example.com/hack-night" {
		t.Fatalf("source reference = %q", batch.SourceReference)
	}
	if got := batch.Attendees[0].Identity; got != "alice-ng" {
		t.Fatalf("identity not trimmed: %q", got)
	}
	if got := batch.Attendees[0].SocialLinks[0]; got != "https://example.com/alice" {
		t.Fatalf("social link not trimmed: %q", got)
	}

	records := batch.Records()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[1].Identity != "" || records[1].DisplayName != "Walk-in" {
		t.Fatalf("second record = %+v", records[1])
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"source_reference": "x", "attendees": [`},
		{"unknown field", `{"source_reference": "x", "attendees": [], "extra": 1}`},
		{"missing source", `{"attendees": [{"identity": "a"}]}`},
		{"empty attendees", `{"source_reference": "x", "attendees": []}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ingest.Parse([]byte(tc.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	doc := `{"source_reference": "event", "attendees": [{"identity": "alice"}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	batch, err := ingest.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(batch.Attendees) != 1 {
		t.Fatalf("attendees = %d, want 1", len(batch.Attendees))
	}

	if _, err := ingest.ParseFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker for missing file, got %v", err)
	}
}
