package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "devquest/contexts/contest-lifecycle/contest-engine/application"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
	"devquest/internal/shared/events"
)

type ReactionCommand struct {
	SubmissionID string
	UserID       string
}

type ReactionResult struct {
	Submission entities.Submission
	Changed    bool
}

// ReactionUseCase records likes and votes. Counters are maintained by the
// repository next to the membership change, never recomputed here.
type ReactionUseCase struct {
	Submissions ports.SubmissionRepository
	Reactions   ports.ReactionRepository
	Challenges  ports.ChallengeRepository
	Outbox      ports.OutboxWriter
	Tx          ports.TxManager
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (uc ReactionUseCase) Like(ctx context.Context, cmd ReactionCommand) (ReactionResult, error) {
	return uc.applyLike(ctx, cmd, true)
}

func (uc ReactionUseCase) Unlike(ctx context.Context, cmd ReactionCommand) (ReactionResult, error) {
	return uc.applyLike(ctx, cmd, false)
}

// ToggleLike likes the submission when the user has not liked it yet and
// unlikes it otherwise.
func (uc ReactionUseCase) ToggleLike(ctx context.Context, cmd ReactionCommand) (ReactionResult, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return ReactionResult{}, domainerrors.ErrUnauthenticated
	}
	submission, err := uc.Submissions.GetSubmission(ctx, strings.TrimSpace(cmd.SubmissionID))
	if err != nil {
		return ReactionResult{}, err
	}
	return uc.applyLike(ctx, cmd, !submission.LikedByUser(strings.TrimSpace(cmd.UserID)))
}

func (uc ReactionUseCase) applyLike(ctx context.Context, cmd ReactionCommand, like bool) (ReactionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	kind := "like"
	if !like {
		kind = "unlike"
	}
	if userID == "" {
		uc.observe(kind, "unauthenticated")
		return ReactionResult{}, domainerrors.ErrUnauthenticated
	}

	now := resolveNow(uc.Clock)
	var result ReactionResult
	err := application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		var (
			submission entities.Submission
			changed    bool
			err        error
		)
		if like {
			submission, changed, err = uc.Reactions.AddLike(ctx, submissionID, userID, now)
		} else {
			submission, changed, err = uc.Reactions.RemoveLike(ctx, submissionID, userID, now)
		}
		if err != nil {
			return err
		}
		result = ReactionResult{Submission: submission, Changed: changed}
		if !changed {
			return nil
		}
		return uc.appendLikeCountChanged(ctx, submission, userID, kind)
	})
	if err != nil {
		uc.observe(kind, "failed")
		logger.Warn("submission reaction failed",
			"event", "contest_reaction_failed",
			"module", application.ModuleName,
			"layer", "application",
			"kind", kind,
			"submission_id", submissionID,
			"user_id", userID,
			"error", err.Error(),
		)
		return ReactionResult{}, err
	}
	if !result.Changed {
		uc.observe(kind, "noop")
		return result, nil
	}
	uc.observe(kind, "applied")
	logger.Info("submission reaction applied",
		"event", "contest_reaction_applied",
		"module", application.ModuleName,
		"layer", "application",
		"kind", kind,
		"submission_id", submissionID,
		"user_id", userID,
		"like_count", result.Submission.LikeCount,
	)
	return result, nil
}

// Vote records a vote during the voting window. A vote also likes the
// submission; both memberships change in one storage operation. Votes stop
// once EndVoting has frozen the ranking, and storage re-checks that under
// its own lock.
func (uc ReactionUseCase) Vote(ctx context.Context, cmd ReactionCommand) (ReactionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if userID == "" {
		uc.observe("vote", "unauthenticated")
		return ReactionResult{}, domainerrors.ErrUnauthenticated
	}
	submission, err := uc.Submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return ReactionResult{}, err
	}
	challenge, err := uc.Challenges.GetChallenge(ctx, submission.ChallengeID)
	if err != nil {
		return ReactionResult{}, err
	}
	if !challenge.AcceptsVotes() {
		uc.observe("vote", "invalid_state")
		return ReactionResult{}, domainerrors.ErrInvalidState
	}
	if submission.AuthorID == userID {
		uc.observe("vote", "self_vote")
		logger.Warn("self vote rejected",
			"event", "contest_vote_self_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"submission_id", submissionID,
			"user_id", userID,
		)
		return ReactionResult{}, domainerrors.ErrSelfVote
	}

	now := resolveNow(uc.Clock)
	var result ReactionResult
	err = application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		updated, likeAdded, err := uc.Reactions.RecordVote(ctx, submissionID, userID, now)
		if err != nil {
			return err
		}
		result = ReactionResult{Submission: updated, Changed: true}
		if err := appendEvent(ctx, uc.Outbox, uc.IDGen, events.TypeSubmissionVoted, "submission_id", submissionID, now,
			map[string]any{
				"submission_id": submissionID,
				"challenge_id":  updated.ChallengeID,
				"author_id":     updated.AuthorID,
				"voter_id":      userID,
				"vote_count":    updated.VoteCount,
			}); err != nil {
			return err
		}
		if !likeAdded {
			return nil
		}
		return uc.appendLikeCountChanged(ctx, updated, userID, "vote")
	})
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrDuplicateVote):
			uc.observe("vote", "duplicate")
		case errors.Is(err, domainerrors.ErrInvalidState):
			uc.observe("vote", "invalid_state")
		default:
			uc.observe("vote", "failed")
		}
		logger.Warn("vote failed",
			"event", "contest_vote_failed",
			"module", application.ModuleName,
			"layer", "application",
			"submission_id", submissionID,
			"user_id", userID,
			"error", err.Error(),
		)
		return ReactionResult{}, err
	}

	uc.observe("vote", "applied")
	logger.Info("vote recorded",
		"event", "contest_vote_recorded",
		"module", application.ModuleName,
		"layer", "application",
		"submission_id", submissionID,
		"user_id", userID,
		"vote_count", result.Submission.VoteCount,
		"like_count", result.Submission.LikeCount,
	)
	return result, nil
}

func (uc ReactionUseCase) appendLikeCountChanged(
	ctx context.Context,
	submission entities.Submission,
	actorID string,
	reason string,
) error {
	return appendEvent(ctx, uc.Outbox, uc.IDGen, events.TypeLikeCountChanged, "submission_id", submission.SubmissionID,
		resolveNow(uc.Clock), map[string]any{
			"submission_id": submission.SubmissionID,
			"challenge_id":  submission.ChallengeID,
			"author_id":     submission.AuthorID,
			"actor_id":      actorID,
			"like_count":    submission.LikeCount,
			"reason":        reason,
		})
}

func (uc ReactionUseCase) observe(kind string, outcome string) {
	if uc.Metrics != nil {
		uc.Metrics.ObserveReaction(kind, outcome)
	}
}
