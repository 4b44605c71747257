package commands

import (
	"context"
	"strings"
	"time"

	application "devquest/contexts/contest-lifecycle/contest-engine/application"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
	"devquest/internal/shared/events"
)

type Winner struct {
	Place        int
	SubmissionID string
	UserID       string
	VoteCount    int
	XP           int
}

type EndVotingResult struct {
	Challenge entities.Challenge
	Winners   []Winner
}

// StartVoting opens the voting window. Every submission of the challenge is
// made public with its votes cleared before the status switch, so a crashed
// run can simply be repeated. A second pass after the switch opens entries
// that were submitted while the cascade was running.
func (uc ChallengeLifecycleUseCase) StartVoting(ctx context.Context, challengeID string) (entities.Challenge, error) {
	logger := application.ResolveLogger(uc.Logger)
	challengeID = strings.TrimSpace(challengeID)
	challenge, err := uc.Challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return entities.Challenge{}, err
	}
	if !challenge.CanStartVoting() {
		return entities.Challenge{}, uc.rejectTransition(challenge, entities.ChallengeStatusVoting)
	}
	now := resolveNow(uc.Clock)
	if now.Before(challenge.Schedule.VotingStartDate) {
		logger.Warn("voting start requested too early",
			"event", "contest_voting_start_too_early",
			"module", application.ModuleName,
			"layer", "application",
			"challenge_id", challengeID,
			"voting_start_date", challenge.Schedule.VotingStartDate.Format(time.RFC3339),
		)
		return entities.Challenge{}, domainerrors.ErrTooEarly
	}

	opened, err := uc.openSubmissions(ctx, challengeID, false, now)
	if err != nil {
		return entities.Challenge{}, err
	}
	updated, err := uc.transition(ctx, challenge, ports.ChallengeTransition{
		ChallengeID: challengeID,
		From:        []entities.ChallengeStatus{entities.ChallengeStatusDraft, entities.ChallengeStatusActive},
		To:          entities.ChallengeStatusVoting,
	}, events.TypeChallengeVotingStarted, map[string]any{
		"opened_submissions": opened,
	})
	if err != nil {
		return entities.Challenge{}, err
	}

	if late, err := uc.openSubmissions(ctx, challengeID, true, now); err != nil {
		logger.Error("voting catch-up cascade failed",
			"event", "contest_voting_catchup_failed",
			"module", application.ModuleName,
			"layer", "application",
			"challenge_id", challengeID,
			"error", err.Error(),
		)
	} else if late > 0 {
		logger.Info("voting catch-up cascade opened late submissions",
			"event", "contest_voting_catchup_opened",
			"module", application.ModuleName,
			"layer", "application",
			"challenge_id", challengeID,
			"opened_submissions", late,
		)
	}
	return updated, nil
}

// ResumeVotingCascade re-runs the visibility cascade for a challenge that is
// already voting. Only private submissions are touched.
func (uc ChallengeLifecycleUseCase) ResumeVotingCascade(ctx context.Context, challengeID string) (int, error) {
	challengeID = strings.TrimSpace(challengeID)
	challenge, err := uc.Challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return 0, err
	}
	if challenge.Status != entities.ChallengeStatusVoting {
		return 0, domainerrors.ErrInvalidTransition
	}
	return uc.openSubmissions(ctx, challengeID, true, resolveNow(uc.Clock))
}

func (uc ChallengeLifecycleUseCase) openSubmissions(
	ctx context.Context,
	challengeID string,
	onlyPrivate bool,
	now time.Time,
) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	ids, err := uc.Submissions.ListSubmissionIDsByChallenge(ctx, challengeID, onlyPrivate)
	if err != nil {
		return 0, err
	}
	for _, submissionID := range ids {
		if err := uc.Submissions.OpenSubmissionForVoting(ctx, submissionID, now); err != nil {
			logger.Error("voting cascade submission update failed",
				"event", "contest_voting_cascade_failed",
				"module", application.ModuleName,
				"layer", "application",
				"challenge_id", challengeID,
				"submission_id", submissionID,
				"error", err.Error(),
			)
			return 0, err
		}
	}
	return len(ids), nil
}

// EndVoting closes voting, credits up to three winners and completes the
// challenge. The ranking is frozen on the challenge before any prize is paid
// and votes are refused from then on, so a repeated run pays the same
// submissions in the same places. Prize credits are keyed by
// (challenge, place) and never pay a place twice.
func (uc ChallengeLifecycleUseCase) EndVoting(ctx context.Context, challengeID string) (EndVotingResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	challengeID = strings.TrimSpace(challengeID)
	challenge, err := uc.Challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return EndVotingResult{}, err
	}
	if challenge.Status != entities.ChallengeStatusVoting {
		return EndVotingResult{}, uc.rejectTransition(challenge, entities.ChallengeStatusCompleted)
	}
	now := resolveNow(uc.Clock)
	if now.Before(challenge.Schedule.VotingEndDate) {
		logger.Warn("voting end requested too early",
			"event", "contest_voting_end_too_early",
			"module", application.ModuleName,
			"layer", "application",
			"challenge_id", challengeID,
			"voting_end_date", challenge.Schedule.VotingEndDate.Format(time.RFC3339),
		)
		return EndVotingResult{}, domainerrors.ErrTooEarly
	}

	closed, err := uc.closeVoting(ctx, challengeID, now)
	if err != nil {
		return EndVotingResult{}, err
	}
	if len(closed.Winners) > entities.MaxWinners {
		return EndVotingResult{}, domainerrors.ErrInvalidState
	}
	winners := make([]Winner, 0, len(closed.Winners))
	winnerIDs := make([]string, 0, len(closed.Winners))
	for i, submissionID := range closed.Winners {
		submission, err := uc.Submissions.GetSubmission(ctx, submissionID)
		if err != nil {
			return EndVotingResult{}, err
		}
		winner := Winner{
			Place:        i + 1,
			SubmissionID: submission.SubmissionID,
			UserID:       submission.AuthorID,
			VoteCount:    submission.VoteCount,
			XP:           entities.PrizeXP[i],
		}
		if err := uc.awardPrize(ctx, challengeID, winner, now); err != nil {
			return EndVotingResult{}, err
		}
		winners = append(winners, winner)
		winnerIDs = append(winnerIDs, winner.SubmissionID)
	}

	payloadWinners := make([]map[string]any, 0, len(winners))
	for _, winner := range winners {
		payloadWinners = append(payloadWinners, map[string]any{
			"place":         winner.Place,
			"submission_id": winner.SubmissionID,
			"user_id":       winner.UserID,
			"vote_count":    winner.VoteCount,
			"xp":            winner.XP,
		})
	}
	updated, err := uc.transition(ctx, closed, ports.ChallengeTransition{
		ChallengeID: challengeID,
		From:        []entities.ChallengeStatus{entities.ChallengeStatusVoting},
		To:          entities.ChallengeStatusCompleted,
		Winners:     winnerIDs,
	}, events.TypeChallengeCompleted, map[string]any{
		"winners": payloadWinners,
	})
	if err != nil {
		return EndVotingResult{}, err
	}
	return EndVotingResult{Challenge: updated, Winners: winners}, nil
}

// closeVoting returns the challenge with its winners frozen. The challenge
// row is locked before ranking so no vote lands between the ranking read
// and the freeze. An earlier freeze is reused as stored.
func (uc ChallengeLifecycleUseCase) closeVoting(
	ctx context.Context,
	challengeID string,
	now time.Time,
) (entities.Challenge, error) {
	logger := application.ResolveLogger(uc.Logger)
	var closed entities.Challenge
	err := application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		challenge, err := uc.Challenges.GetChallengeForUpdate(ctx, challengeID)
		if err != nil {
			return err
		}
		if challenge.Status != entities.ChallengeStatusVoting {
			return uc.rejectTransition(challenge, entities.ChallengeStatusCompleted)
		}
		if challenge.VotingClosed() {
			closed = challenge
			return nil
		}
		ranked, err := uc.Ranking.Top(ctx, challengeID, entities.MaxWinners)
		if err != nil {
			return err
		}
		winnerIDs := make([]string, 0, len(ranked))
		for _, submission := range ranked {
			winnerIDs = append(winnerIDs, submission.SubmissionID)
		}
		closed, err = uc.Challenges.CloseVoting(ctx, challengeID, winnerIDs, now)
		if err != nil {
			return err
		}
		logger.Info("voting closed and winners frozen",
			"event", "contest_voting_closed",
			"module", application.ModuleName,
			"layer", "application",
			"challenge_id", challengeID,
			"winners", len(closed.Winners),
		)
		return nil
	})
	if err != nil {
		return entities.Challenge{}, err
	}
	if !closed.VotingClosed() {
		return entities.Challenge{}, domainerrors.ErrInvalidState
	}
	return closed, nil
}

func (uc ChallengeLifecycleUseCase) awardPrize(ctx context.Context, challengeID string, winner Winner, now time.Time) error {
	logger := application.ResolveLogger(uc.Logger)
	return application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		if _, _, err := ensureProfile(ctx, uc.Profiles, uc.IDGen, winner.UserID, "", now); err != nil {
			return err
		}
		applied, err := uc.Profiles.AwardPrize(ctx, entities.Prize{
			ChallengeID:  challengeID,
			Place:        winner.Place,
			SubmissionID: winner.SubmissionID,
			UserID:       winner.UserID,
			XP:           winner.XP,
			AwardedAt:    now,
		})
		if err != nil {
			logger.Error("winner prize award failed",
				"event", "contest_prize_award_failed",
				"module", application.ModuleName,
				"layer", "application",
				"challenge_id", challengeID,
				"place", winner.Place,
				"user_id", winner.UserID,
				"error", err.Error(),
			)
			return err
		}
		if !applied {
			logger.Info("winner prize already credited",
				"event", "contest_prize_award_replayed",
				"module", application.ModuleName,
				"layer", "application",
				"challenge_id", challengeID,
				"place", winner.Place,
			)
			return nil
		}
		logger.Info("winner prize credited",
			"event", "contest_prize_awarded",
			"module", application.ModuleName,
			"layer", "application",
			"challenge_id", challengeID,
			"place", winner.Place,
			"submission_id", winner.SubmissionID,
			"user_id", winner.UserID,
			"xp", winner.XP,
		)
		return nil
	})
}
