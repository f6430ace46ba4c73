package profile

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"opptrace/internal/enrichment"
)

var titleCaser = cases.Title(language.English)

// Normalize maps a raw provider payload into the fixed profile shape.
// Missing or mistyped fields default to empty values; providers vary in which
// keys they emit, so alternates are checked in order.
func Normalize(payload map[string]any) enrichment.Profile {
	p := enrichment.Profile{
		FullName: stringField(payload, "full_name", "fullName", "name"),
		Headline: stringField(payload, "headline", "title"),
		PhotoURL: stringField(payload, "photo_url", "photoUrl", "avatar"),
		Location: stringField(payload, "location", "city"),
		About:    stringField(payload, "about", "summary", "bio"),
		Skills:   stringSlice(payload["skills"]),
	}

	for _, raw := range anySlice(payload["experience"]) {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		p.Experience = append(p.Experience, enrichment.Position{
			Title:       stringField(entry, "title", "position"),
			Company:     stringField(entry, "company", "organization"),
			Duration:    stringField(entry, "duration", "dates"),
			Description: stringField(entry, "description"),
		})
	}

	for _, raw := range anySlice(payload["education"]) {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		p.Education = append(p.Education, enrichment.School{
			School: stringField(entry, "school", "institution"),
			Degree: stringField(entry, "degree", "field_of_study"),
			Years:  stringField(entry, "years", "dates"),
		})
	}

	return p
}

// DisplayNameFromIdentity derives a presentable name from a slug-style
// identity ("jane-doe-b2a91c" style) when the provider supplies no full name.
// Trailing hex discriminators are dropped and the rest is title-cased.
func DisplayNameFromIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return ""
	}
	parts := strings.Split(identity, "-")
	if len(parts) > 1 && isHexToken(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	return titleCaser.String(strings.Join(parts, " "))
}

func isHexToken(s string) bool {
	if len(s) < 4 {
		return false
	}
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return digits
}

func stringField(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := payload[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func anySlice(value any) []any {
	if items, ok := value.([]any); ok {
		return items
	}
	return nil
}

func stringSlice(value any) []string {
	var out []string
	for _, item := range anySlice(value) {
		if str, ok := item.(string); ok {
			if trimmed := strings.TrimSpace(str); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
