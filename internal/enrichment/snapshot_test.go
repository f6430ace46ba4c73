package enrichment

import "testing"

func batchOf(identities ...string) []Attendee {
	attendees := make([]Attendee, len(identities))
	for i, id := range identities {
		attendees[i] = Attendee{Identity: id}
	}
	return attendees
}

func TestNewSnapshotPartitionsBlankIdentities(t *testing.T) {
	snap := NewSnapshot("gen-1", "event.json", batchOf("alice", "", "carol"))

	if got := snap.FetchProgress.Total; got != 2 {
		t.Fatalf("fetch total = %d, want 2", got)
	}
	if got := snap.FetchProgress.Pending; got != 2 {
		t.Fatalf("fetch pending = %d, want 2", got)
	}
	if snap.Attendees[1].FetchStatus != FetchNotApplicable {
		t.Fatalf("blank identity fetch status = %s, want not_applicable", snap.Attendees[1].FetchStatus)
	}
	for _, idx := range []int{0, 2} {
		if snap.Attendees[idx].FetchStatus != FetchPending {
			t.Fatalf("attendee %d fetch status = %s, want pending", idx, snap.Attendees[idx].FetchStatus)
		}
	}
	if !snap.FetchProgress.Consistent() {
		t.Fatalf("fetch progress inconsistent: %+v", snap.FetchProgress)
	}
}

func TestFetchTransitionsKeepCountersConsistent(t *testing.T) {
	snap := NewSnapshot("gen-1", "event.json", batchOf("alice", "bob"))

	if err := snap.CompleteFetch(0, Profile{FullName: "Alice Ng"}); err != nil {
		t.Fatalf("CompleteFetch: %v", err)
	}
	if err := snap.FailFetch(1, "provider returned 502"); err != nil {
		t.Fatalf("FailFetch: %v", err)
	}

	want := StageProgress{Total: 2, Completed: 1, Failed: 1}
	if snap.FetchProgress != want {
		t.Fatalf("fetch progress = %+v, want %+v", snap.FetchProgress, want)
	}
	if snap.Attendees[0].Profile == nil || snap.Attendees[0].Profile.FullName != "Alice Ng" {
		t.Fatalf("completed attendee missing profile: %+v", snap.Attendees[0])
	}
	if snap.Attendees[1].FetchError != "provider returned 502" {
		t.Fatalf("fetch error = %q", snap.Attendees[1].FetchError)
	}
}

func TestCompleteFetchRejectsNonPending(t *testing.T) {
	snap := NewSnapshot("gen-1", "event.json", batchOf("alice"))
	if err := snap.CompleteFetch(0, Profile{}); err != nil {
		t.Fatalf("first CompleteFetch: %v", err)
	}
	if err := snap.CompleteFetch(0, Profile{}); err == nil {
		t.Fatal("second CompleteFetch on same record should fail")
	}
	if err := snap.FailFetch(0, "late"); err == nil {
		t.Fatal("FailFetch after completion should fail")
	}
}

func TestBeginScoringSkipsIneligibleRecords(t *testing.T) {
	// One completed fetch, one failed fetch, one record with no identity.
	snap := NewSnapshot("gen-1", "event.json", batchOf("alice", "bob", ""))
	if err := snap.CompleteFetch(0, Profile{FullName: "Alice Ng"}); err != nil {
		t.Fatalf("CompleteFetch: %v", err)
	}
	if err := snap.FailFetch(1, "timeout"); err != nil {
		t.Fatalf("FailFetch: %v", err)
	}

	eligible, err := snap.BeginScoring()
	if err != nil {
		t.Fatalf("BeginScoring: %v", err)
	}
	if len(eligible) != 1 || eligible[0] != 0 {
		t.Fatalf("eligible = %v, want [0]", eligible)
	}
	if err := snap.CompleteScore(0, ScoreReport{OverallScore: 80}); err != nil {
		t.Fatalf("CompleteScore: %v", err)
	}

	want := StageProgress{Total: 1, Completed: 1, Skipped: 2}
	if snap.ScoreProgress != want {
		t.Fatalf("score progress = %+v, want %+v", snap.ScoreProgress, want)
	}
	if snap.Attendees[1].ScoreStatus != ScoreSkipped {
		t.Fatalf("failed-fetch attendee score status = %s, want skipped", snap.Attendees[1].ScoreStatus)
	}
	if snap.Attendees[2].ScoreStatus != ScoreSkipped {
		t.Fatalf("no-identity attendee score status = %s, want skipped", snap.Attendees[2].ScoreStatus)
	}
}

func TestBeginScoringRequiresFetchDone(t *testing.T) {
	snap := NewSnapshot("gen-1", "event.json", batchOf("alice"))
	if _, err := snap.BeginScoring(); err == nil {
		t.Fatal("BeginScoring with pending fetches should fail")
	}
}

func TestResetFailedFetchesReopensScoring(t *testing.T) {
	snap := NewSnapshot("gen-1", "event.json", batchOf("alice", "bob"))
	if err := snap.CompleteFetch(0, Profile{}); err != nil {
		t.Fatalf("CompleteFetch: %v", err)
	}
	if err := snap.FailFetch(1, "timeout"); err != nil {
		t.Fatalf("FailFetch: %v", err)
	}
	if _, err := snap.BeginScoring(); err != nil {
		t.Fatalf("BeginScoring: %v", err)
	}
	if err := snap.CompleteScore(0, ScoreReport{OverallScore: 50}); err != nil {
		t.Fatalf("CompleteScore: %v", err)
	}

	reset := snap.ResetFailedFetches()
	if len(reset) != 1 || reset[0] != 1 {
		t.Fatalf("reset = %v, want [1]", reset)
	}
	if snap.Attendees[1].FetchStatus != FetchPending {
		t.Fatalf("reset attendee fetch status = %s, want pending", snap.Attendees[1].FetchStatus)
	}
	if snap.Attendees[1].ScoreStatus != ScorePending {
		t.Fatalf("reset attendee score status = %s, want pending", snap.Attendees[1].ScoreStatus)
	}
	if got := snap.ScoreProgress.Skipped; got != 0 {
		t.Fatalf("score skipped = %d, want 0", got)
	}
	if !snap.FetchProgress.Consistent() {
		t.Fatalf("fetch progress inconsistent after reset: %+v", snap.FetchProgress)
	}

	// The reopened record becomes eligible once its fetch succeeds.
	if err := snap.CompleteFetch(1, Profile{FullName: "Bob Tran"}); err != nil {
		t.Fatalf("CompleteFetch after reset: %v", err)
	}
	eligible, err := snap.BeginScoring()
	if err != nil {
		t.Fatalf("second BeginScoring: %v", err)
	}
	if len(eligible) != 1 || eligible[0] != 1 {
		t.Fatalf("second eligible = %v, want [1]", eligible)
	}
	want := StageProgress{Total: 2, Completed: 1, Pending: 1}
	if snap.ScoreProgress != want {
		t.Fatalf("score progress = %+v, want %+v", snap.ScoreProgress, want)
	}
}

func TestResetFailedScores(t *testing.T) {
	snap := NewSnapshot("gen-1", "event.json", batchOf("alice"))
	if err := snap.CompleteFetch(0, Profile{}); err != nil {
		t.Fatalf("CompleteFetch: %v", err)
	}
	if _, err := snap.BeginScoring(); err != nil {
		t.Fatalf("BeginScoring: %v", err)
	}
	if err := snap.FailScore(0, "model unavailable"); err != nil {
		t.Fatalf("FailScore: %v", err)
	}

	reset := snap.ResetFailedScores()
	if len(reset) != 1 || reset[0] != 0 {
		t.Fatalf("reset = %v, want [0]", reset)
	}
	if snap.Attendees[0].ScoreError != "" {
		t.Fatalf("score error not cleared: %q", snap.Attendees[0].ScoreError)
	}
	want := StageProgress{Total: 1, Pending: 1}
	if snap.ScoreProgress != want {
		t.Fatalf("score progress = %+v, want %+v", snap.ScoreProgress, want)
	}
}

func TestCloneIsDeep(t *testing.T) {
	snap := NewSnapshot("gen-1", "event.json", []Attendee{{
		Identity:    "alice",
		SocialLinks: []string{"https://example.com/alice"},
	}})
	if err := snap.CompleteFetch(0, Profile{Skills: []string{"go"}}); err != nil {
		t.Fatalf("CompleteFetch: %v", err)
	}

	cp := snap.Clone()
	cp.Attendees[0].SocialLinks[0] = "mutated"
	cp.Attendees[0].Profile.Skills[0] = "mutated"
	cp.Attendees[0].FetchStatus = FetchFailed

	if snap.Attendees[0].SocialLinks[0] != "https://example.com/alice" {
		t.Fatal("clone shares social links slice")
	}
	if snap.Attendees[0].Profile.Skills[0] != "go" {
		t.Fatal("clone shares profile skills slice")
	}
	if snap.Attendees[0].FetchStatus != FetchCompleted {
		t.Fatal("clone shares attendee record")
	}
}
