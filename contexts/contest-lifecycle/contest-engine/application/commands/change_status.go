package commands

import (
	"context"
	"log/slog"
	"strings"

	application "devquest/contexts/contest-lifecycle/contest-engine/application"
	"devquest/contexts/contest-lifecycle/contest-engine/application/queries"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
	"devquest/internal/shared/events"
)

// ChallengeLifecycleUseCase is the challenge state machine:
//
//	draft -> active -> voting -> completed
//	draft|active|voting -> archived
//
// Status writes are compare-and-set on the stored status so concurrent
// callers cannot apply the same transition twice.
type ChallengeLifecycleUseCase struct {
	Challenges  ports.ChallengeRepository
	Submissions ports.SubmissionRepository
	Profiles    ports.ProfileRepository
	Ranking     queries.RankingUseCase
	Outbox      ports.OutboxWriter
	Tx          ports.TxManager
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (uc ChallengeLifecycleUseCase) Activate(ctx context.Context, challengeID string) (entities.Challenge, error) {
	challenge, err := uc.Challenges.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return entities.Challenge{}, err
	}
	if challenge.Status != entities.ChallengeStatusDraft {
		return entities.Challenge{}, uc.rejectTransition(challenge, entities.ChallengeStatusActive)
	}
	return uc.transition(ctx, challenge, ports.ChallengeTransition{
		ChallengeID: challenge.ChallengeID,
		From:        []entities.ChallengeStatus{entities.ChallengeStatusDraft},
		To:          entities.ChallengeStatusActive,
	}, events.TypeChallengeActivated, nil)
}

// Archive moves any non-completed challenge to the archived dead end.
func (uc ChallengeLifecycleUseCase) Archive(ctx context.Context, challengeID string) (entities.Challenge, error) {
	challenge, err := uc.Challenges.GetChallenge(ctx, strings.TrimSpace(challengeID))
	if err != nil {
		return entities.Challenge{}, err
	}
	if !challenge.CanArchive() {
		return entities.Challenge{}, uc.rejectTransition(challenge, entities.ChallengeStatusArchived)
	}
	return uc.transition(ctx, challenge, ports.ChallengeTransition{
		ChallengeID: challenge.ChallengeID,
		From: []entities.ChallengeStatus{
			entities.ChallengeStatusDraft,
			entities.ChallengeStatusActive,
			entities.ChallengeStatusVoting,
		},
		To: entities.ChallengeStatusArchived,
	}, events.TypeChallengeArchived, nil)
}

// transition applies the status change and its event in one transaction.
func (uc ChallengeLifecycleUseCase) transition(
	ctx context.Context,
	challenge entities.Challenge,
	transition ports.ChallengeTransition,
	eventType string,
	data map[string]any,
) (entities.Challenge, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	transition.UpdatedAt = now
	if data == nil {
		data = map[string]any{}
	}
	data["challenge_id"] = challenge.ChallengeID
	data["from_status"] = string(challenge.Status)
	data["to_status"] = string(transition.To)

	var updated entities.Challenge
	err := application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		var err error
		updated, err = uc.Challenges.TransitionChallenge(ctx, transition)
		if err != nil {
			return err
		}
		return appendEvent(ctx, uc.Outbox, uc.IDGen, eventType, "challenge_id", challenge.ChallengeID, now, data)
	})
	if err != nil {
		logger.Warn("challenge transition failed",
			"event", "contest_challenge_transition_failed",
			"module", application.ModuleName,
			"layer", "application",
			"challenge_id", challenge.ChallengeID,
			"from_status", string(challenge.Status),
			"to_status", string(transition.To),
			"error", err.Error(),
		)
		return entities.Challenge{}, err
	}
	if uc.Metrics != nil {
		uc.Metrics.ObserveTransition(string(challenge.Status), string(transition.To))
	}
	logger.Info("challenge state changed",
		"event", "contest_challenge_state_changed",
		"module", application.ModuleName,
		"layer", "application",
		"challenge_id", challenge.ChallengeID,
		"from_status", string(challenge.Status),
		"to_status", string(transition.To),
	)
	return updated, nil
}

func (uc ChallengeLifecycleUseCase) rejectTransition(challenge entities.Challenge, to entities.ChallengeStatus) error {
	application.ResolveLogger(uc.Logger).Warn("challenge transition rejected",
		"event", "contest_challenge_transition_rejected",
		"module", application.ModuleName,
		"layer", "application",
		"challenge_id", challenge.ChallengeID,
		"from_status", string(challenge.Status),
		"to_status", string(to),
	)
	return domainerrors.ErrInvalidTransition
}
