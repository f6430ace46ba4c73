package scoring

import (
	"fmt"
	"strings"

	"opptrace/internal/enrichment"
)

// EvaluationPrompt captures the instructions sent to the scoring model. Keep
// updates centralized here so it is easy to tweak without hunting through
// call sites.
const EvaluationPrompt = `You are an assistant that evaluates hackathon partnership potential from a professional profile.

Extract and score:

1. Hackathons won: count if mentioned, otherwise use "unavailable"
2. Scores (1-100 scale with percentile calibration):
   - Technical Skill: depth of technical projects, languages, frameworks, system design
   - Collaboration: teamwork indicators, leadership roles, group projects, communication ability
   - Overall: holistic hackathon readiness combining technical + collaboration + execution track record

CALIBRATION: Population of university students where median = 50, top 10% = 80+, exceptional = 90+. Distribute scores across 40-70 range for most candidates. Only truly exceptional profiles score 85+. Avoid clustering around 70-80.

3. Summaries: if overall_score > 75 or under 20, write one paragraph (3-4 sentences) for each summary field. Otherwise, leave them as empty strings.

You must respond ONLY with a JSON object like:
{"hackathons_won": "unavailable", "technical_skill": 55, "technical_skill_summary": "", "collaboration": 60, "collaboration_summary": "", "overall_score": 58, "summary": ""}`

// BuildProfileSummary renders a profile into the plain-text form sent to the
// model, truncated to maxChars to keep request sizes bounded. A maxChars <= 0
// disables truncation.
func BuildProfileSummary(profile enrichment.Profile, maxChars int) string {
	var b strings.Builder

	writeLine := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}

	writeLine("Name", profile.FullName)
	writeLine("Headline", profile.Headline)
	writeLine("Location", profile.Location)
	writeLine("About", profile.About)

	if len(profile.Experience) > 0 {
		b.WriteString("Experience:\n")
		for _, pos := range profile.Experience {
			fmt.Fprintf(&b, "- %s at %s (%s)", strings.TrimSpace(pos.Title), strings.TrimSpace(pos.Company), strings.TrimSpace(pos.Duration))
			if desc := strings.TrimSpace(pos.Description); desc != "" {
				fmt.Fprintf(&b, ": %s", desc)
			}
			b.WriteString("\n")
		}
	}
	if len(profile.Education) > 0 {
		b.WriteString("Education:\n")
		for _, school := range profile.Education {
			fmt.Fprintf(&b, "- %s, %s (%s)\n", strings.TrimSpace(school.School), strings.TrimSpace(school.Degree), strings.TrimSpace(school.Years))
		}
	}
	if len(profile.Skills) > 0 {
		writeLine("Skills", strings.Join(profile.Skills, ", "))
	}

	text := strings.TrimSpace(b.String())
	if maxChars > 0 {
		runes := []rune(text)
		if len(runes) > maxChars {
			text = string(runes[:maxChars]) + "..."
		}
	}
	return text
}
