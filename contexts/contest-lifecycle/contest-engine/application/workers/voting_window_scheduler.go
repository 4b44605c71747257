package workers

import (
	"context"
	"errors"
	"log/slog"

	application "devquest/contexts/contest-lifecycle/contest-engine/application"
	"devquest/contexts/contest-lifecycle/contest-engine/application/commands"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

type SchedulerReport struct {
	VotingStarted int
	VotingEnded   int
	Reopened      int
}

// VotingWindowScheduler sweeps challenges whose voting window opened or closed
// and drives them through the state machine.
type VotingWindowScheduler struct {
	Challenges ports.ChallengeRepository
	Lifecycle  commands.ChallengeLifecycleUseCase
	Clock      ports.Clock
	BatchSize  int
	Logger     *slog.Logger
}

// RunOnce applies every due transition. Losing a race against a manual
// transition is not an error; other failures are collected and the sweep
// continues with the next challenge.
func (j VotingWindowScheduler) RunOnce(ctx context.Context) (SchedulerReport, error) {
	logger := application.ResolveLogger(j.Logger)
	now := resolveNow(j.Clock)
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	var (
		report SchedulerReport
		errs   []error
	)

	toStart, err := j.Challenges.ListChallengesDue(ctx, entities.ChallengeStatusActive, ports.DueVotingStart, now, limit)
	if err != nil {
		return report, j.logSweepError(err, "start")
	}
	for _, challenge := range toStart {
		if _, err := j.Lifecycle.StartVoting(ctx, challenge.ChallengeID); err != nil {
			if !isTransitionRace(err) {
				errs = append(errs, err)
			}
			continue
		}
		report.VotingStarted++
	}

	toEnd, err := j.Challenges.ListChallengesDue(ctx, entities.ChallengeStatusVoting, ports.DueVotingEnd, now, limit)
	if err != nil {
		return report, j.logSweepError(err, "end")
	}
	for _, challenge := range toEnd {
		if _, err := j.Lifecycle.EndVoting(ctx, challenge.ChallengeID); err != nil {
			if !isTransitionRace(err) {
				errs = append(errs, err)
			}
			continue
		}
		report.VotingEnded++
	}

	voting, err := j.Challenges.ListChallengesDue(ctx, entities.ChallengeStatusVoting, ports.DueVotingStart, now, limit)
	if err != nil {
		return report, j.logSweepError(err, "reconcile")
	}
	for _, challenge := range voting {
		reopened, err := j.Lifecycle.ResumeVotingCascade(ctx, challenge.ChallengeID)
		if err != nil {
			if !isTransitionRace(err) {
				errs = append(errs, err)
			}
			continue
		}
		report.Reopened += reopened
	}

	if report.VotingStarted > 0 || report.VotingEnded > 0 || report.Reopened > 0 {
		logger.Info("voting window sweep completed",
			"event", "contest_voting_window_sweep_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"voting_started", report.VotingStarted,
			"voting_ended", report.VotingEnded,
			"reopened_submissions", report.Reopened,
		)
	}
	if err := errors.Join(errs...); err != nil {
		return report, j.logSweepError(err, "transition")
	}
	return report, nil
}

func (j VotingWindowScheduler) logSweepError(err error, stage string) error {
	application.ResolveLogger(j.Logger).Error("voting window sweep failed",
		"event", "contest_voting_window_sweep_failed",
		"module", application.ModuleName,
		"layer", "worker",
		"stage", stage,
		"error", err.Error(),
	)
	return err
}

func isTransitionRace(err error) bool {
	return errors.Is(err, domainerrors.ErrInvalidTransition) || errors.Is(err, domainerrors.ErrTooEarly)
}
