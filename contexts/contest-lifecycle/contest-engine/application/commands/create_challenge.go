package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "devquest/contexts/contest-lifecycle/contest-engine/application"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
	"devquest/internal/shared/events"
)

type CreateChallengeCommand struct {
	ChallengeID string
	Title       string
	Status      entities.ChallengeStatus
	Schedule    entities.Schedule
	XPReward    int
}

type CreateChallengeUseCase struct {
	Challenges ports.ChallengeRepository
	Outbox     ports.OutboxWriter
	Tx         ports.TxManager
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// Execute validates and persists an operator-created challenge. Only draft and
// active are valid initial states.
func (uc CreateChallengeUseCase) Execute(ctx context.Context, cmd CreateChallengeCommand) (entities.Challenge, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	status := entities.ChallengeStatus(strings.TrimSpace(string(cmd.Status)))
	if status == "" {
		status = entities.ChallengeStatusDraft
	}
	if title == "" || cmd.XPReward < 0 ||
		(status != entities.ChallengeStatusDraft && status != entities.ChallengeStatusActive) {
		logger.Warn("challenge create validation failed",
			"event", "contest_challenge_create_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"title", title,
			"status", string(status),
		)
		return entities.Challenge{}, domainerrors.ErrValidation
	}
	if !cmd.Schedule.Valid() {
		logger.Warn("challenge create schedule rejected",
			"event", "contest_challenge_create_invalid_dates",
			"module", application.ModuleName,
			"layer", "application",
			"title", title,
		)
		return entities.Challenge{}, domainerrors.ErrInvalidDateRange
	}

	challengeID := strings.TrimSpace(cmd.ChallengeID)
	if challengeID == "" {
		id, err := newID(ctx, uc.IDGen)
		if err != nil {
			return entities.Challenge{}, err
		}
		challengeID = id
	}
	xpReward := cmd.XPReward
	if xpReward == 0 {
		xpReward = entities.DefaultXPReward
	}

	now := resolveNow(uc.Clock)
	challenge := entities.Challenge{
		ChallengeID: challengeID,
		Title:       title,
		Status:      status,
		Schedule:    cmd.Schedule.UTC(),
		XPReward:    xpReward,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		if err := uc.Challenges.CreateChallenge(ctx, challenge); err != nil {
			return err
		}
		return appendEvent(ctx, uc.Outbox, uc.IDGen, events.TypeChallengeCreated, "challenge_id", challengeID, now,
			map[string]any{
				"challenge_id":      challengeID,
				"title":             title,
				"status":            string(status),
				"start_date":        challenge.Schedule.StartDate.Format(time.RFC3339),
				"voting_start_date": challenge.Schedule.VotingStartDate.Format(time.RFC3339),
				"voting_end_date":   challenge.Schedule.VotingEndDate.Format(time.RFC3339),
				"xp_reward":         xpReward,
			})
	})
	if err != nil {
		logger.Error("challenge create failed",
			"event", "contest_challenge_create_failed",
			"module", application.ModuleName,
			"layer", "application",
			"challenge_id", challengeID,
			"error", err.Error(),
		)
		return entities.Challenge{}, err
	}

	logger.Info("challenge created",
		"event", "contest_challenge_created",
		"module", application.ModuleName,
		"layer", "application",
		"challenge_id", challengeID,
		"status", string(status),
	)
	return challenge, nil
}
