package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// AttendeeView describes an enrichment record in a transport-friendly format.
type AttendeeView struct {
	Identity    string       `json:"identity"`
	DisplayName string       `json:"displayName"`
	SocialLinks []string     `json:"socialLinks,omitempty"`
	FetchStatus string       `json:"fetchStatus"`
	FetchError  string       `json:"fetchError,omitempty"`
	Profile     *ProfileView `json:"profile,omitempty"`
	ScoreStatus string       `json:"scoreStatus"`
	ScoreError  string       `json:"scoreError,omitempty"`
	Scores      *ScoresView  `json:"scores,omitempty"`
}

// ProfileView mirrors the normalized profile shape for pollers.
type ProfileView struct {
	FullName   string         `json:"fullName"`
	Headline   string         `json:"headline,omitempty"`
	PhotoURL   string         `json:"photoUrl,omitempty"`
	Location   string         `json:"location,omitempty"`
	About      string         `json:"about,omitempty"`
	Experience []PositionView `json:"experience,omitempty"`
	Education  []SchoolView   `json:"education,omitempty"`
	Skills     []string       `json:"skills,omitempty"`
}

// PositionView is one experience entry.
type PositionView struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// SchoolView is one education entry.
type SchoolView struct {
	School string `json:"school"`
	Degree string `json:"degree,omitempty"`
	Years  string `json:"years,omitempty"`
}

// ScoresView mirrors the validated evaluation payload.
type ScoresView struct {
	HackathonsWon         string `json:"hackathonsWon"`
	TechnicalSkill        int    `json:"technicalSkill"`
	TechnicalSkillSummary string `json:"technicalSkillSummary,omitempty"`
	Collaboration         int    `json:"collaboration"`
	CollaborationSummary  string `json:"collaborationSummary,omitempty"`
	OverallScore          int    `json:"overallScore"`
	Summary               string `json:"summary,omitempty"`
}

// ProgressView captures aggregate counters for one stage.
type ProgressView struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped,omitempty"`
}

// SnapshotView is the complete poller-facing snapshot.
type SnapshotView struct {
	Generation      string         `json:"generation"`
	SourceReference string         `json:"sourceReference"`
	CapturedAt      string         `json:"capturedAt,omitempty"`
	Attendees       []AttendeeView `json:"attendees"`
	FetchProgress   ProgressView   `json:"fetchProgress"`
	ScoreProgress   ProgressView   `json:"scoreProgress"`
}

// StatusView summarizes daemon and pipeline state.
type StatusView struct {
	Running         bool   `json:"running"`
	FetchRunning    bool   `json:"fetchRunning"`
	ScoreRunning    bool   `json:"scoreRunning"`
	Generation      string `json:"generation,omitempty"`
	SourceReference string `json:"sourceReference,omitempty"`
	Attendees       int    `json:"attendees"`
	CacheEntries    int    `json:"cacheEntries"`
}

// EnrichAck acknowledges a scheduled enrichment run.
type EnrichAck struct {
	Generation string `json:"generation"`
	Scheduled  bool   `json:"scheduled"`
}

// MatchView is the face match verdict for one request.
type MatchView struct {
	Matched    bool          `json:"matched"`
	Attendee   *AttendeeView `json:"attendee,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Distance   float64       `json:"distance,omitempty"`
	Verified   bool          `json:"verified,omitempty"`
}
