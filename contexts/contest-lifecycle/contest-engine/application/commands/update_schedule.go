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

// UpdateScheduleCommand carries a partial schedule. Nil fields keep their
// stored value.
type UpdateScheduleCommand struct {
	ChallengeID     string
	StartDate       *time.Time
	VotingStartDate *time.Time
	VotingEndDate   *time.Time
}

type UpdateScheduleUseCase struct {
	Challenges ports.ChallengeRepository
	Outbox     ports.OutboxWriter
	Tx         ports.TxManager
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// Execute merges the new dates into the stored schedule and rejects the update
// before persisting when the windows would be out of order.
func (uc UpdateScheduleUseCase) Execute(ctx context.Context, cmd UpdateScheduleCommand) (entities.Challenge, error) {
	logger := application.ResolveLogger(uc.Logger)
	challengeID := strings.TrimSpace(cmd.ChallengeID)
	challenge, err := uc.Challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return entities.Challenge{}, err
	}
	if challenge.IsTerminal() {
		return entities.Challenge{}, domainerrors.ErrInvalidState
	}

	schedule := challenge.Schedule
	if cmd.StartDate != nil {
		schedule.StartDate = cmd.StartDate.UTC()
	}
	if cmd.VotingStartDate != nil {
		schedule.VotingStartDate = cmd.VotingStartDate.UTC()
	}
	if cmd.VotingEndDate != nil {
		schedule.VotingEndDate = cmd.VotingEndDate.UTC()
	}
	if !schedule.Valid() {
		logger.Warn("challenge schedule update rejected",
			"event", "contest_challenge_schedule_invalid_dates",
			"module", application.ModuleName,
			"layer", "application",
			"challenge_id", challengeID,
			"start_date", schedule.StartDate.Format(time.RFC3339),
			"voting_start_date", schedule.VotingStartDate.Format(time.RFC3339),
			"voting_end_date", schedule.VotingEndDate.Format(time.RFC3339),
		)
		return entities.Challenge{}, domainerrors.ErrInvalidDateRange
	}

	now := resolveNow(uc.Clock)
	var updated entities.Challenge
	err = application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		var err error
		updated, err = uc.Challenges.UpdateChallengeSchedule(ctx, challengeID, schedule, now)
		if err != nil {
			return err
		}
		return appendEvent(ctx, uc.Outbox, uc.IDGen, events.TypeChallengeScheduleUpdate, "challenge_id", challengeID, now,
			map[string]any{
				"challenge_id":      challengeID,
				"start_date":        schedule.StartDate.Format(time.RFC3339),
				"voting_start_date": schedule.VotingStartDate.Format(time.RFC3339),
				"voting_end_date":   schedule.VotingEndDate.Format(time.RFC3339),
			})
	})
	if err != nil {
		return entities.Challenge{}, err
	}

	logger.Info("challenge schedule updated",
		"event", "contest_challenge_schedule_updated",
		"module", application.ModuleName,
		"layer", "application",
		"challenge_id", challengeID,
	)
	return updated, nil
}
