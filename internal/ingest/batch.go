// Package ingest parses attendee batch documents and performs the synchronous
// validation that gates enrichment scheduling. Anything that passes here is
// accepted with an immediate ack; later failures surface only through the
// polling snapshot.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"opptrace/internal/enrichment"
	"opptrace/internal/services"
)

// Entry is one attendee row as supplied by the batch source.
type Entry struct {
	Identity    string   `json:"identity"`
	DisplayName string   `json:"display_name,omitempty"`
	SocialLinks []string `json:"social_links,omitempty"`
}

// Batch is a validated attendee batch ready for enrichment.
type Batch struct {
	SourceReference string  `json:"source_reference"`
	Attendees       []Entry `json:"attendees"`
}

// Parse decodes and validates a batch document. Unknown fields are rejected so
// a misspelled key fails loudly instead of silently dropping data.
func Parse(data []byte) (*Batch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var batch Batch
	if err := dec.Decode(&batch); err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "parse", "batch document is not valid JSON", err)
	}
	if err := batch.validate(); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ParseFile reads and parses a batch document from disk.
func ParseFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read", fmt.Sprintf("cannot read batch file %s", path), err)
	}
	return Parse(data)
}

func (b *Batch) validate() error {
	b.SourceReference = strings.TrimSpace(b.SourceReference)
	if b.SourceReference == "" {
		return services.Wrap(services.ErrValidation, "ingest", "validate", "batch is missing source_reference", nil)
	}
	if len(b.Attendees) == 0 {
		return services.Wrap(services.ErrValidation, "ingest", "validate", "batch contains no attendees", nil)
	}
	for i := range b.Attendees {
		entry := &b.Attendees[i]
		entry.Identity = strings.TrimSpace(entry.Identity)
		entry.DisplayName = strings.TrimSpace(entry.DisplayName)
		for j, link := range entry.SocialLinks {
			entry.SocialLinks[j] = strings.TrimSpace(link)
		}
	}
	return nil
}

// Records converts the batch entries into initial enrichment records, keeping
// ingestion order.
func (b *Batch) Records() []enrichment.Attendee {
	records := make([]enrichment.Attendee, len(b.Attendees))
	for i, entry := range b.Attendees {
		records[i] = enrichment.Attendee{
			Identity:    entry.Identity,
			DisplayName: entry.DisplayName,
			SocialLinks: append([]string(nil), entry.SocialLinks...),
		}
	}
	return records
}
