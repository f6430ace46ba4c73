package api

import (
	"opptrace/internal/enrichment"
	"opptrace/internal/pipeline"
)

// FromAttendee converts an enrichment record to its API representation.
func FromAttendee(attendee enrichment.Attendee) AttendeeView {
	view := AttendeeView{
		Identity:    attendee.Identity,
		DisplayName: attendee.DisplayName,
		SocialLinks: attendee.SocialLinks,
		FetchStatus: string(attendee.FetchStatus),
		FetchError:  attendee.FetchError,
		ScoreStatus: string(attendee.ScoreStatus),
		ScoreError:  attendee.ScoreError,
	}
	if attendee.Profile != nil {
		profile := fromProfile(*attendee.Profile)
		view.Profile = &profile
	}
	if attendee.Scores != nil {
		scores := ScoresView{
			HackathonsWon:         attendee.Scores.HackathonsWon,
			TechnicalSkill:        attendee.Scores.TechnicalSkill,
			TechnicalSkillSummary: attendee.Scores.TechnicalSkillSummary,
			Collaboration:         attendee.Scores.Collaboration,
			CollaborationSummary:  attendee.Scores.CollaborationSummary,
			OverallScore:          attendee.Scores.OverallScore,
			Summary:               attendee.Scores.Summary,
		}
		view.Scores = &scores
	}
	return view
}

func fromProfile(profile enrichment.Profile) ProfileView {
	view := ProfileView{
		FullName: profile.FullName,
		Headline: profile.Headline,
		PhotoURL: profile.PhotoURL,
		Location: profile.Location,
		About:    profile.About,
		Skills:   profile.Skills,
	}
	for _, pos := range profile.Experience {
		view.Experience = append(view.Experience, PositionView{
			Title:       pos.Title,
			Company:     pos.Company,
			Duration:    pos.Duration,
			Description: pos.Description,
		})
	}
	for _, school := range profile.Education {
		view.Education = append(view.Education, SchoolView{
			School: school.School,
			Degree: school.Degree,
			Years:  school.Years,
		})
	}
	return view
}

func fromProgress(progress enrichment.StageProgress) ProgressView {
	return ProgressView{
		Total:     progress.Total,
		Completed: progress.Completed,
		Pending:   progress.Pending,
		Failed:    progress.Failed,
		Skipped:   progress.Skipped,
	}
}

// FromSnapshot converts a snapshot copy to the poller-facing payload.
func FromSnapshot(snap enrichment.Snapshot) SnapshotView {
	view := SnapshotView{
		Generation:      snap.Generation,
		SourceReference: snap.SourceReference,
		Attendees:       make([]AttendeeView, 0, len(snap.Attendees)),
		FetchProgress:   fromProgress(snap.FetchProgress),
		ScoreProgress:   fromProgress(snap.ScoreProgress),
	}
	if !snap.CapturedAt.IsZero() {
		view.CapturedAt = snap.CapturedAt.UTC().Format(dateTimeFormat)
	}
	for _, attendee := range snap.Attendees {
		view.Attendees = append(view.Attendees, FromAttendee(attendee))
	}
	return view
}

// FromRunState merges pipeline run state and snapshot stats into a status payload.
func FromRunState(running bool, state pipeline.RunState, attendees, cacheEntries int) StatusView {
	return StatusView{
		Running:         running,
		FetchRunning:    state.FetchRunning,
		ScoreRunning:    state.ScoreRunning,
		Generation:      state.Generation,
		SourceReference: state.SourceReference,
		Attendees:       attendees,
		CacheEntries:    cacheEntries,
	}
}
