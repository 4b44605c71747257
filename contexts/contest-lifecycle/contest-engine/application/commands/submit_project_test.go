package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/application/commands"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/internal/shared/events"

	"github.com/stretchr/testify/require"
)

func TestSubmitProjectFirstCompletionCreditsXP(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createChallenge(t, "challenge-1", entities.ChallengeStatusActive)

	result := h.submitProject(t, "user-1", "challenge-1")
	require.True(t, result.Created)
	require.True(t, result.FirstCompletion)
	require.Equal(t, entities.DefaultXPReward, result.XPAwarded)
	require.False(t, result.Submission.IsPublic)
	require.Equal(t, "user-1", result.Submission.AuthorID)

	profile, err := h.store.GetProfileByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, entities.DefaultXPReward, profile.TotalXP)
	require.Equal(t, 1, profile.ChallengesCompleted)
	require.True(t, profile.HasCompleted("challenge-1"))

	challenge, err := h.store.GetChallenge(ctx, "challenge-1")
	require.NoError(t, err)
	require.Equal(t, 1, challenge.SubmissionCount)

	created := h.outboxEvents(t, events.TypeSubmissionCreated)
	require.Len(t, created, 1)
	require.Equal(t, "user-1", decodeData(t, created[0])["author_id"])
	made := h.outboxEvents(t, events.TypeChallengeSubmissionMade)
	require.Len(t, made, 1)
	require.Equal(t, true, decodeData(t, made[0])["first_completion"])
}

func TestResubmitUpdatesInPlaceWithoutSecondCredit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createChallenge(t, "challenge-1", entities.ChallengeStatusActive)
	first := h.submitProject(t, "user-1", "challenge-1")

	h.clock.Advance(time.Hour)
	second, err := h.submit.Execute(ctx, commands.SubmitProjectCommand{
		UserID:      "user-1",
		ChallengeID: "challenge-1",
		Content:     projectContent("second take"),
	})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.False(t, second.FirstCompletion)
	require.Zero(t, second.XPAwarded)
	require.Equal(t, first.Submission.SubmissionID, second.Submission.SubmissionID)
	require.Equal(t, "second take", second.Submission.Content.Name)
	require.True(t, second.Submission.SubmittedAt.After(first.Submission.SubmittedAt))

	profile, err := h.store.GetProfileByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, entities.DefaultXPReward, profile.TotalXP)
	require.Equal(t, 1, profile.ChallengesCompleted)

	challenge, err := h.store.GetChallenge(ctx, "challenge-1")
	require.NoError(t, err)
	require.Equal(t, 1, challenge.SubmissionCount)

	require.Len(t, h.outboxEvents(t, events.TypeSubmissionCreated), 1)
	require.Len(t, h.outboxEvents(t, events.TypeChallengeSubmissionMade), 2)
}

func TestResubmitKeepsReactions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createChallenge(t, "challenge-1", entities.ChallengeStatusActive)
	first := h.submitProject(t, "user-1", "challenge-1")

	_, err := h.reactions.Like(ctx, commands.ReactionCommand{SubmissionID: first.Submission.SubmissionID, UserID: "fan-1"})
	require.NoError(t, err)

	updated, err := h.submit.Execute(ctx, commands.SubmitProjectCommand{
		UserID:               "user-1",
		ChallengeID:          "challenge-1",
		ExistingSubmissionID: first.Submission.SubmissionID,
		Content:              projectContent("polished"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, updated.Submission.LikeCount)
	require.True(t, updated.Submission.LikedByUser("fan-1"))
}

func TestSubmitDuringVotingIsPublic(t *testing.T) {
	h := newHarness(t)
	h.createChallenge(t, "challenge-1", entities.ChallengeStatusActive)
	h.openVoting(t, "challenge-1")

	result := h.submitProject(t, "user-1", "challenge-1")
	require.True(t, result.Submission.IsPublic)
}

func TestSubmitRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createChallenge(t, "challenge-1", entities.ChallengeStatusActive)
	h.createChallenge(t, "challenge-2", entities.ChallengeStatusActive)
	owned := h.submitProject(t, "owner", "challenge-1")
	elsewhere := h.submitProject(t, "owner", "challenge-2")

	cases := []struct {
		name string
		cmd  commands.SubmitProjectCommand
		want error
	}{
		{
			name: "anonymous",
			cmd:  commands.SubmitProjectCommand{ChallengeID: "challenge-1", Content: projectContent("x")},
			want: domainerrors.ErrUnauthenticated,
		},
		{
			name: "missing html",
			cmd: commands.SubmitProjectCommand{
				UserID: "user-1", ChallengeID: "challenge-1",
				Content: entities.SubmissionContent{Name: "no markup", HTMLCode: "   "},
			},
			want: domainerrors.ErrValidation,
		},
		{
			name: "missing name",
			cmd: commands.SubmitProjectCommand{
				UserID: "user-1", ChallengeID: "challenge-1",
				Content: entities.SubmissionContent{HTMLCode: "<p>hi</p>"},
			},
			want: domainerrors.ErrValidation,
		},
		{
			name: "unknown challenge",
			cmd:  commands.SubmitProjectCommand{UserID: "user-1", ChallengeID: "missing", Content: projectContent("x")},
			want: domainerrors.ErrChallengeNotFound,
		},
		{
			name: "someone else's submission",
			cmd: commands.SubmitProjectCommand{
				UserID: "intruder", ChallengeID: "challenge-1",
				ExistingSubmissionID: owned.Submission.SubmissionID,
				Content:              projectContent("hijack"),
			},
			want: domainerrors.ErrForbidden,
		},
		{
			name: "submission from another challenge",
			cmd: commands.SubmitProjectCommand{
				UserID: "owner", ChallengeID: "challenge-1",
				ExistingSubmissionID: elsewhere.Submission.SubmissionID,
				Content:              projectContent("moved"),
			},
			want: domainerrors.ErrValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.submit.Execute(ctx, tc.cmd)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSubmitRejectedOnClosedChallenges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createChallenge(t, "archived", entities.ChallengeStatusActive)
	_, err := h.lifecycle.Archive(ctx, "archived")
	require.NoError(t, err)

	h.createChallenge(t, "completed", entities.ChallengeStatusActive)
	h.openVoting(t, "completed")
	h.clock.Set(defaultSchedule().VotingEndDate)
	_, err = h.lifecycle.EndVoting(ctx, "completed")
	require.NoError(t, err)

	for _, challengeID := range []string{"archived", "completed"} {
		_, err := h.submit.Execute(ctx, commands.SubmitProjectCommand{
			UserID:      "user-1",
			ChallengeID: challengeID,
			Content:     projectContent("late"),
		})
		require.ErrorIs(t, err, domainerrors.ErrInvalidState, challengeID)
	}
	_, err = h.store.GetProfileByUser(ctx, "user-1")
	require.ErrorIs(t, err, domainerrors.ErrProfileNotFound)
}

func TestConcurrentSubmitsBySameUserKeepOneSubmission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createChallenge(t, "challenge-1", entities.ChallengeStatusActive)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.submit.Execute(ctx, commands.SubmitProjectCommand{
				UserID:      "user-1",
				ChallengeID: "challenge-1",
				Content:     projectContent("racing"),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := h.store.CountSubmissionsByAuthor(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	profile, err := h.store.GetProfileByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, entities.DefaultXPReward, profile.TotalXP)

	challenge, err := h.store.GetChallenge(ctx, "challenge-1")
	require.NoError(t, err)
	require.Equal(t, 1, challenge.SubmissionCount)
	require.Len(t, h.outboxEvents(t, events.TypeSubmissionCreated), 1)
}
