package workers_test

import (
	"context"
	"testing"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/application/commands"
	"devquest/contexts/contest-lifecycle/contest-engine/application/workers"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
)

func (f *fixture) scheduler() workers.VotingWindowScheduler {
	return workers.VotingWindowScheduler{
		Challenges: f.store,
		Lifecycle:  f.lifecycle,
		Clock:      f.clock,
		BatchSize:  10,
		Logger:     f.logger,
	}
}

func (f *fixture) mustStatus(t *testing.T, challengeID string, want entities.ChallengeStatus) entities.Challenge {
	t.Helper()
	challenge, err := f.store.GetChallenge(context.Background(), challengeID)
	if err != nil {
		t.Fatalf("load challenge %s failed: %v", challengeID, err)
	}
	if challenge.Status != want {
		t.Fatalf("challenge %s: expected status %s, got %s", challengeID, want, challenge.Status)
	}
	return challenge
}

func TestSchedulerDrivesVotingWindow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mustCreateChallenge(t, "challenge-1")
	entry := f.mustSubmit(t, "author-1", "challenge-1")
	f.mustSubmit(t, "author-2", "challenge-1")
	scheduler := f.scheduler()

	report, err := scheduler.RunOnce(ctx)
	if err != nil {
		t.Fatalf("early sweep failed: %v", err)
	}
	if report != (workers.SchedulerReport{}) {
		t.Fatalf("expected no transitions before the window, got %+v", report)
	}
	f.mustStatus(t, "challenge-1", entities.ChallengeStatusActive)

	f.clock.now = f.schedule().VotingStartDate.Add(time.Minute)
	report, err = scheduler.RunOnce(ctx)
	if err != nil {
		t.Fatalf("voting start sweep failed: %v", err)
	}
	if report.VotingStarted != 1 {
		t.Fatalf("expected one voting start, got %+v", report)
	}
	f.mustStatus(t, "challenge-1", entities.ChallengeStatusVoting)
	opened, err := f.store.GetSubmission(ctx, entry.SubmissionID)
	if err != nil {
		t.Fatalf("load submission failed: %v", err)
	}
	if !opened.IsPublic {
		t.Fatalf("expected submissions to be public once voting starts")
	}

	if _, err := f.reactions.Vote(ctx, commands.ReactionCommand{SubmissionID: entry.SubmissionID, UserID: "voter"}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	f.clock.now = f.schedule().VotingEndDate
	report, err = scheduler.RunOnce(ctx)
	if err != nil {
		t.Fatalf("voting end sweep failed: %v", err)
	}
	if report.VotingEnded != 1 {
		t.Fatalf("expected one voting end, got %+v", report)
	}
	completed := f.mustStatus(t, "challenge-1", entities.ChallengeStatusCompleted)
	if len(completed.Winners) != 2 || completed.Winners[0] != entry.SubmissionID {
		t.Fatalf("expected voted entry to win, got %v", completed.Winners)
	}

	report, err = scheduler.RunOnce(ctx)
	if err != nil {
		t.Fatalf("idle sweep failed: %v", err)
	}
	if report != (workers.SchedulerReport{}) {
		t.Fatalf("expected idle sweep after completion, got %+v", report)
	}
}

func TestSchedulerIgnoresManualTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mustCreateChallenge(t, "challenge-1")
	f.mustCreateChallenge(t, "challenge-2")
	if _, err := f.lifecycle.Archive(ctx, "challenge-2"); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	f.clock.now = f.schedule().VotingStartDate
	if _, err := f.lifecycle.StartVoting(ctx, "challenge-1"); err != nil {
		t.Fatalf("manual start failed: %v", err)
	}

	report, err := f.scheduler().RunOnce(ctx)
	if err != nil {
		t.Fatalf("sweep after manual start failed: %v", err)
	}
	if report.VotingStarted != 0 {
		t.Fatalf("expected no scheduler start for manual or archived challenges, got %+v", report)
	}
	f.mustStatus(t, "challenge-2", entities.ChallengeStatusArchived)
}

func TestSchedulerReopensLateSubmissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mustCreateChallenge(t, "challenge-1")
	f.clock.now = f.schedule().VotingStartDate
	if _, err := f.lifecycle.StartVoting(ctx, "challenge-1"); err != nil {
		t.Fatalf("start voting failed: %v", err)
	}

	if err := f.store.CreateSubmission(ctx, entities.Submission{
		SubmissionID: "straggler",
		ChallengeID:  "challenge-1",
		AuthorID:     "late-author",
		Content:      entities.SubmissionContent{Name: "late", HTMLCode: "<p>late</p>"},
		SubmittedAt:  f.clock.now,
	}); err != nil {
		t.Fatalf("seed private submission failed: %v", err)
	}

	report, err := f.scheduler().RunOnce(ctx)
	if err != nil {
		t.Fatalf("reconcile sweep failed: %v", err)
	}
	if report.Reopened != 1 {
		t.Fatalf("expected one reopened submission, got %+v", report)
	}
	straggler, err := f.store.GetSubmission(ctx, "straggler")
	if err != nil {
		t.Fatalf("load straggler failed: %v", err)
	}
	if !straggler.IsPublic {
		t.Fatalf("expected straggler to be public")
	}
}
