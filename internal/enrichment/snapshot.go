package enrichment

import (
	"fmt"
	"time"
)

// Snapshot is the complete state of one batch's enrichment progress. The
// enrichment store owns the live instance; stage workers mutate individual
// records through the store's transition methods and pollers receive deep
// copies.
type Snapshot struct {
	Generation      string        `json:"generation"`
	SourceReference string        `json:"source_reference"`
	CapturedAt      time.Time     `json:"captured_at"`
	Attendees       []Attendee    `json:"attendees"`
	FetchProgress   StageProgress `json:"fetch_progress"`
	ScoreProgress   StageProgress `json:"score_progress"`
}

// NewSnapshot builds the initial snapshot for a freshly ingested batch.
// Attendees without an identity are marked NotApplicable immediately and are
// excluded from the fetch total; everything else starts Pending.
func NewSnapshot(generation, sourceReference string, attendees []Attendee) *Snapshot {
	snap := &Snapshot{
		Generation:      generation,
		SourceReference: sourceReference,
		CapturedAt:      time.Now().UTC(),
		Attendees:       make([]Attendee, len(attendees)),
	}
	for i, attendee := range attendees {
		record := attendee.clone()
		record.ScoreStatus = ScorePending
		if record.HasIdentity() {
			record.FetchStatus = FetchPending
			snap.FetchProgress.Total++
			snap.FetchProgress.Pending++
		} else {
			record.FetchStatus = FetchNotApplicable
		}
		snap.Attendees[i] = record
	}
	return snap
}

// Clone returns a deep copy safe to hand to pollers.
func (s *Snapshot) Clone() Snapshot {
	cp := *s
	cp.Attendees = make([]Attendee, len(s.Attendees))
	for i, attendee := range s.Attendees {
		cp.Attendees[i] = attendee.clone()
	}
	return cp
}

// CompleteFetch resolves one record's fetch as successful.
func (s *Snapshot) CompleteFetch(idx int, profile Profile) error {
	record, err := s.pendingFetch(idx)
	if err != nil {
		return err
	}
	cloned := profile.clone()
	record.FetchStatus = FetchCompleted
	record.FetchError = ""
	record.Profile = &cloned
	if record.DisplayName == "" {
		record.DisplayName = cloned.FullName
	}
	s.FetchProgress.complete()
	s.touch()
	return nil
}

// FailFetch resolves one record's fetch as failed with a diagnostic.
func (s *Snapshot) FailFetch(idx int, message string) error {
	record, err := s.pendingFetch(idx)
	if err != nil {
		return err
	}
	if message == "" {
		message = "profile fetch failed"
	}
	record.FetchStatus = FetchFailed
	record.FetchError = message
	record.Profile = nil
	s.FetchProgress.fail()
	s.touch()
	return nil
}

// BeginScoring partitions records for the score stage: eligible records stay
// Pending and are counted into the score total, every other record still
// Pending is skipped. It returns the indexes the stage should dispatch and
// requires every fetch status to be terminal first.
func (s *Snapshot) BeginScoring() ([]int, error) {
	if !s.FetchProgress.Done() {
		return nil, fmt.Errorf("fetch stage still has %d pending items", s.FetchProgress.Pending)
	}
	var eligible []int
	for i := range s.Attendees {
		record := &s.Attendees[i]
		if record.ScoreStatus != ScorePending {
			continue
		}
		if record.FetchStatus == FetchCompleted {
			eligible = append(eligible, i)
			s.ScoreProgress.Total++
			s.ScoreProgress.Pending++
			continue
		}
		record.ScoreStatus = ScoreSkipped
		s.ScoreProgress.Skipped++
	}
	s.touch()
	return eligible, nil
}

// CompleteScore resolves one record's scoring as successful.
func (s *Snapshot) CompleteScore(idx int, report ScoreReport) error {
	record, err := s.pendingScore(idx)
	if err != nil {
		return err
	}
	record.ScoreStatus = ScoreCompleted
	record.ScoreError = ""
	record.Scores = &report
	s.ScoreProgress.complete()
	s.touch()
	return nil
}

// FailScore resolves one record's scoring as failed with a diagnostic.
func (s *Snapshot) FailScore(idx int, message string) error {
	record, err := s.pendingScore(idx)
	if err != nil {
		return err
	}
	if message == "" {
		message = "scoring failed"
	}
	record.ScoreStatus = ScoreFailed
	record.ScoreError = message
	record.Scores = nil
	s.ScoreProgress.fail()
	s.touch()
	return nil
}

// ResetFailedFetches returns failed fetch records to Pending for an explicit
// re-run and reopens their score status. Returns the affected indexes.
func (s *Snapshot) ResetFailedFetches() []int {
	var reset []int
	for i := range s.Attendees {
		record := &s.Attendees[i]
		if record.FetchStatus != FetchFailed {
			continue
		}
		record.FetchStatus = FetchPending
		record.FetchError = ""
		if record.ScoreStatus == ScoreSkipped {
			record.ScoreStatus = ScorePending
			s.ScoreProgress.Skipped--
		}
		s.FetchProgress.Failed--
		s.FetchProgress.Pending++
		reset = append(reset, i)
	}
	if len(reset) > 0 {
		s.touch()
	}
	return reset
}

// ResetFailedScores returns failed score records to Pending for an explicit
// re-run. Returns the affected indexes.
func (s *Snapshot) ResetFailedScores() []int {
	var reset []int
	for i := range s.Attendees {
		record := &s.Attendees[i]
		if record.ScoreStatus != ScoreFailed {
			continue
		}
		record.ScoreStatus = ScorePending
		record.ScoreError = ""
		s.ScoreProgress.Failed--
		s.ScoreProgress.Pending++
		reset = append(reset, i)
	}
	if len(reset) > 0 {
		s.touch()
	}
	return reset
}

func (s *Snapshot) pendingFetch(idx int) (*Attendee, error) {
	record, err := s.record(idx)
	if err != nil {
		return nil, err
	}
	if record.FetchStatus != FetchPending {
		return nil, fmt.Errorf("attendee %d fetch status is %s, not pending", idx, record.FetchStatus)
	}
	return record, nil
}

func (s *Snapshot) pendingScore(idx int) (*Attendee, error) {
	record, err := s.record(idx)
	if err != nil {
		return nil, err
	}
	if !record.FetchStatus.Terminal() {
		return nil, fmt.Errorf("attendee %d fetch status %s is not terminal", idx, record.FetchStatus)
	}
	if record.ScoreStatus != ScorePending {
		return nil, fmt.Errorf("attendee %d score status is %s, not pending", idx, record.ScoreStatus)
	}
	return record, nil
}

func (s *Snapshot) record(idx int) (*Attendee, error) {
	if idx < 0 || idx >= len(s.Attendees) {
		return nil, fmt.Errorf("attendee index %d out of range (%d records)", idx, len(s.Attendees))
	}
	return &s.Attendees[idx], nil
}

func (s *Snapshot) touch() {
	s.CapturedAt = time.Now().UTC()
}
