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

type SubmitProjectCommand struct {
	UserID               string
	ChallengeID          string
	Content              entities.SubmissionContent
	ExistingSubmissionID string
}

type SubmitProjectResult struct {
	Submission      entities.Submission
	Created         bool
	FirstCompletion bool
	XPAwarded       int
}

// SubmitProjectUseCase upserts a user's entry to a challenge. There is one
// submission per (user, challenge); resubmitting updates content in place and
// keeps likes and votes.
type SubmitProjectUseCase struct {
	Challenges  ports.ChallengeRepository
	Submissions ports.SubmissionRepository
	Profiles    ports.ProfileRepository
	Outbox      ports.OutboxWriter
	Tx          ports.TxManager
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc SubmitProjectUseCase) Execute(ctx context.Context, cmd SubmitProjectCommand) (SubmitProjectResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	challengeID := strings.TrimSpace(cmd.ChallengeID)
	if userID == "" {
		return SubmitProjectResult{}, domainerrors.ErrUnauthenticated
	}
	content := normalizeContent(cmd.Content)
	if err := application.ValidateStruct(content); err != nil {
		logger.Warn("submission validation failed",
			"event", "contest_submission_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"user_id", userID,
			"challenge_id", challengeID,
			"error", err.Error(),
		)
		return SubmitProjectResult{}, err
	}

	challenge, err := uc.Challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return SubmitProjectResult{}, err
	}
	if !challenge.AcceptsSubmissions() {
		logger.Warn("submission rejected for closed challenge",
			"event", "contest_submission_challenge_closed",
			"module", application.ModuleName,
			"layer", "application",
			"user_id", userID,
			"challenge_id", challengeID,
			"status", string(challenge.Status),
		)
		return SubmitProjectResult{}, domainerrors.ErrInvalidState
	}

	now := resolveNow(uc.Clock)
	isPublic := challenge.Status == entities.ChallengeStatusVoting
	var result SubmitProjectResult
	err = application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		result = SubmitProjectResult{}
		submission, created, err := uc.upsertSubmission(ctx, cmd.ExistingSubmissionID, userID, challengeID, content, isPublic)
		if err != nil {
			return err
		}
		result.Submission = submission
		result.Created = created

		if _, _, err := ensureProfile(ctx, uc.Profiles, uc.IDGen, userID, "", now); err != nil {
			return err
		}
		xp := challenge.EffectiveXPReward()
		_, first, err := uc.Profiles.CompleteChallenge(ctx, userID, challengeID, xp, now)
		if err != nil {
			return err
		}
		if first {
			if err := uc.Challenges.IncrementSubmissionCount(ctx, challengeID, 1); err != nil {
				return err
			}
			result.FirstCompletion = true
			result.XPAwarded = xp
		}

		if created {
			if err := appendEvent(ctx, uc.Outbox, uc.IDGen, events.TypeSubmissionCreated, "user_id", userID, now,
				map[string]any{
					"submission_id": submission.SubmissionID,
					"challenge_id":  challengeID,
					"author_id":     userID,
				}); err != nil {
				return err
			}
		}
		return appendEvent(ctx, uc.Outbox, uc.IDGen, events.TypeChallengeSubmissionMade, "user_id", userID, now,
			map[string]any{
				"submission_id":    submission.SubmissionID,
				"challenge_id":     challengeID,
				"user_id":          userID,
				"first_completion": first,
				"xp_awarded":       result.XPAwarded,
			})
	})
	if err != nil {
		logger.Error("submission failed",
			"event", "contest_submission_failed",
			"module", application.ModuleName,
			"layer", "application",
			"user_id", userID,
			"challenge_id", challengeID,
			"error", err.Error(),
		)
		return SubmitProjectResult{}, err
	}

	logger.Info("submission stored",
		"event", "contest_submission_stored",
		"module", application.ModuleName,
		"layer", "application",
		"user_id", userID,
		"challenge_id", challengeID,
		"submission_id", result.Submission.SubmissionID,
		"created", result.Created,
		"first_completion", result.FirstCompletion,
		"is_public", result.Submission.IsPublic,
	)
	return result, nil
}

func (uc SubmitProjectUseCase) upsertSubmission(
	ctx context.Context,
	existingSubmissionID string,
	userID string,
	challengeID string,
	content entities.SubmissionContent,
	isPublic bool,
) (entities.Submission, bool, error) {
	now := resolveNow(uc.Clock)
	if existingID := strings.TrimSpace(existingSubmissionID); existingID != "" {
		existing, err := uc.Submissions.GetSubmission(ctx, existingID)
		if err != nil {
			return entities.Submission{}, false, err
		}
		if existing.AuthorID != userID {
			return entities.Submission{}, false, domainerrors.ErrForbidden
		}
		if existing.ChallengeID != challengeID {
			return entities.Submission{}, false, domainerrors.ErrValidation
		}
		updated, err := uc.Submissions.UpdateSubmissionContent(ctx, existing.SubmissionID, content, isPublic, now)
		return updated, false, err
	}

	if existing, found, err := uc.Submissions.FindSubmissionByAuthor(ctx, challengeID, userID); err != nil {
		return entities.Submission{}, false, err
	} else if found {
		updated, err := uc.Submissions.UpdateSubmissionContent(ctx, existing.SubmissionID, content, isPublic, now)
		return updated, false, err
	}

	submissionID, err := newID(ctx, uc.IDGen)
	if err != nil {
		return entities.Submission{}, false, err
	}
	submission := entities.Submission{
		SubmissionID: submissionID,
		ChallengeID:  challengeID,
		AuthorID:     userID,
		Content:      content,
		IsPublic:     isPublic,
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Submissions.CreateSubmission(ctx, submission); err != nil {
		if !errors.Is(err, domainerrors.ErrConflict) {
			return entities.Submission{}, false, err
		}
		// A concurrent submit by the same user won the insert.
		existing, found, err := uc.Submissions.FindSubmissionByAuthor(ctx, challengeID, userID)
		if err != nil {
			return entities.Submission{}, false, err
		}
		if !found {
			return entities.Submission{}, false, domainerrors.ErrConflict
		}
		updated, err := uc.Submissions.UpdateSubmissionContent(ctx, existing.SubmissionID, content, isPublic, now)
		return updated, false, err
	}
	return submission, true, nil
}

func normalizeContent(content entities.SubmissionContent) entities.SubmissionContent {
	content.Name = strings.TrimSpace(content.Name)
	content.Description = strings.TrimSpace(content.Description)
	if strings.TrimSpace(content.HTMLCode) == "" {
		content.HTMLCode = ""
	}
	return content
}
