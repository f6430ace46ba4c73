package enrichment

import "strings"

// FetchStatus represents the lifecycle of an attendee's profile fetch.
type FetchStatus string

const (
	FetchNotApplicable FetchStatus = "not_applicable"
	FetchPending       FetchStatus = "pending"
	FetchCompleted     FetchStatus = "completed"
	FetchFailed        FetchStatus = "failed"
)

// Terminal reports whether no further automatic fetch transition occurs.
func (s FetchStatus) Terminal() bool {
	switch s {
	case FetchCompleted, FetchFailed, FetchNotApplicable:
		return true
	default:
		return false
	}
}

// ScoreStatus represents the lifecycle of an attendee's AI scoring.
type ScoreStatus string

const (
	ScorePending   ScoreStatus = "pending"
	ScoreCompleted ScoreStatus = "completed"
	ScoreFailed    ScoreStatus = "failed"
	ScoreSkipped   ScoreStatus = "skipped"
)

// Terminal reports whether no further automatic score transition occurs.
func (s ScoreStatus) Terminal() bool {
	switch s {
	case ScoreCompleted, ScoreFailed, ScoreSkipped:
		return true
	default:
		return false
	}
}

// Position is one entry in a profile's experience history.
type Position struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// School is one entry in a profile's education history.
type School struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Years  string `json:"years"`
}

// Profile is the fixed normalized shape produced by the fetch stage. Missing
// optional fields in provider payloads default to empty values here.
type Profile struct {
	FullName   string     `json:"full_name"`
	Headline   string     `json:"headline"`
	PhotoURL   string     `json:"photo_url"`
	Location   string     `json:"location"`
	About      string     `json:"about"`
	Experience []Position `json:"experience"`
	Education  []School   `json:"education"`
	Skills     []string   `json:"skills"`
}

// ScoreReport is the validated payload returned by the scoring provider.
// Numeric fields are bounded to a 1-100 scale; HackathonsWon is "unavailable"
// when the profile does not mention a count.
type ScoreReport struct {
	HackathonsWon         string `json:"hackathons_won"`
	TechnicalSkill        int    `json:"technical_skill"`
	TechnicalSkillSummary string `json:"technical_skill_summary"`
	Collaboration         int    `json:"collaboration"`
	CollaborationSummary  string `json:"collaboration_summary"`
	OverallScore          int    `json:"overall_score"`
	Summary               string `json:"summary"`
}

// Attendee is one enrichment record. Identity and SocialLinks are immutable
// inputs; the remaining fields are owned by the pipeline stages.
type Attendee struct {
	Identity    string       `json:"identity"`
	DisplayName string       `json:"display_name"`
	SocialLinks []string     `json:"social_links,omitempty"`
	FetchStatus FetchStatus  `json:"fetch_status"`
	FetchError  string       `json:"fetch_error,omitempty"`
	Profile     *Profile     `json:"profile,omitempty"`
	ScoreStatus ScoreStatus  `json:"score_status"`
	ScoreError  string       `json:"score_error,omitempty"`
	Scores      *ScoreReport `json:"scores,omitempty"`
}

// HasIdentity reports whether the attendee carries a fetchable identity key.
func (a Attendee) HasIdentity() bool {
	return strings.TrimSpace(a.Identity) != ""
}

// ScoreEligible reports whether the attendee qualifies for the score stage.
func (a Attendee) ScoreEligible() bool {
	return a.FetchStatus == FetchCompleted && a.ScoreStatus == ScorePending
}

func (a Attendee) clone() Attendee {
	cp := a
	if a.SocialLinks != nil {
		cp.SocialLinks = append([]string(nil), a.SocialLinks...)
	}
	if a.Profile != nil {
		profile := a.Profile.clone()
		cp.Profile = &profile
	}
	if a.Scores != nil {
		scores := *a.Scores
		cp.Scores = &scores
	}
	return cp
}

func (p Profile) clone() Profile {
	cp := p
	if p.Experience != nil {
		cp.Experience = append([]Position(nil), p.Experience...)
	}
	if p.Education != nil {
		cp.Education = append([]School(nil), p.Education...)
	}
	if p.Skills != nil {
		cp.Skills = append([]string(nil), p.Skills...)
	}
	return cp
}
