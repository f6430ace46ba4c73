package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"opptrace/internal/enrichment"
)

// rawEvaluation mirrors the model's JSON payload before validation.
// hackathons_won arrives as either an integer or the string "unavailable".
type rawEvaluation struct {
	HackathonsWon         json.RawMessage `json:"hackathons_won"`
	TechnicalSkill        int             `json:"technical_skill"`
	TechnicalSkillSummary string          `json:"technical_skill_summary"`
	Collaboration         int             `json:"collaboration"`
	CollaborationSummary  string          `json:"collaboration_summary"`
	OverallScore          int             `json:"overall_score"`
	Summary               string          `json:"summary"`
}

// Score evaluates one profile and returns a validated report.
func (c *Client) Score(ctx context.Context, profile enrichment.Profile, maxSummaryChars int) (enrichment.ScoreReport, error) {
	summary := BuildProfileSummary(profile, maxSummaryChars)
	if summary == "" {
		return enrichment.ScoreReport{}, errors.New("scoring: profile has no scorable content")
	}
	content, err := c.CompleteJSON(ctx, EvaluationPrompt, summary)
	if err != nil {
		return enrichment.ScoreReport{}, err
	}
	return ParseReport(content)
}

// ParseReport decodes and validates a model payload into a ScoreReport.
func ParseReport(content string) (enrichment.ScoreReport, error) {
	var raw rawEvaluation
	if err := DecodeJSON(content, &raw); err != nil {
		return enrichment.ScoreReport{}, fmt.Errorf("scoring: parse payload: %w", err)
	}

	report := enrichment.ScoreReport{
		HackathonsWon:         "unavailable",
		TechnicalSkill:        raw.TechnicalSkill,
		TechnicalSkillSummary: strings.TrimSpace(raw.TechnicalSkillSummary),
		Collaboration:         raw.Collaboration,
		CollaborationSummary:  strings.TrimSpace(raw.CollaborationSummary),
		OverallScore:          raw.OverallScore,
		Summary:               strings.TrimSpace(raw.Summary),
	}

	if won, err := parseHackathonsWon(raw.HackathonsWon); err != nil {
		return enrichment.ScoreReport{}, err
	} else if won != "" {
		report.HackathonsWon = won
	}

	for _, check := range []struct {
		name  string
		value int
	}{
		{"technical_skill", report.TechnicalSkill},
		{"collaboration", report.Collaboration},
		{"overall_score", report.OverallScore},
	} {
		if check.value < 1 || check.value > 100 {
			return enrichment.ScoreReport{}, fmt.Errorf("scoring: %s %d outside 1-100", check.name, check.value)
		}
	}

	return report, nil
}

func parseHackathonsWon(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var asInt int
	if err := json.Unmarshal(raw, &asInt); err == nil {
		if asInt < 0 {
			return "", fmt.Errorf("scoring: negative hackathons_won %d", asInt)
		}
		return strconv.Itoa(asInt), nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if asString == "" {
			return "", nil
		}
		return asString, nil
	}
	return "", fmt.Errorf("scoring: hackathons_won is neither int nor string: %s", string(raw))
}

// ApplySummaryFilter clears summary fields when the overall score falls in
// the unremarkable middle band. Models sometimes fill them regardless of the
// prompt instructions.
func ApplySummaryFilter(report *enrichment.ScoreReport, highThreshold, lowThreshold int) {
	if report == nil {
		return
	}
	if report.OverallScore > highThreshold || report.OverallScore < lowThreshold {
		return
	}
	report.TechnicalSkillSummary = ""
	report.CollaborationSummary = ""
	report.Summary = ""
}

// DecodeJSON decodes JSON from a model response, handling common formatting
// quirks such as code fences and surrounding prose.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}

	sanitizedErr := json.Unmarshal([]byte(sanitized), target)
	if sanitizedErr == nil {
		return nil
	}
	return fmt.Errorf("%w (sanitized payload snippet: %s)", sanitizedErr, summarizePayloadSnippet(sanitized))
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
