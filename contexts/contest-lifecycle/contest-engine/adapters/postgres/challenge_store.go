package postgresadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateChallenge(ctx context.Context, challenge entities.Challenge) error {
	row := challengeModelFromEntity(challenge)
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "challenge_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("contest_repo_create_challenge_failed", create.Error,
			"challenge_id", row.ChallengeID,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) GetChallenge(ctx context.Context, challengeID string) (entities.Challenge, error) {
	return r.loadChallenge(ctx, challengeID, false)
}

// GetChallengeForUpdate holds the row lock until the surrounding transaction
// ends, so votes taking a shared lock on the challenge wait for it.
func (r *Repository) GetChallengeForUpdate(ctx context.Context, challengeID string) (entities.Challenge, error) {
	return r.loadChallenge(ctx, challengeID, true)
}

func (r *Repository) loadChallenge(ctx context.Context, challengeID string, lock bool) (entities.Challenge, error) {
	query := r.conn(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row challengeModel
	err := query.
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Challenge{}, domainerrors.ErrChallengeNotFound
		}
		return entities.Challenge{}, r.logError("contest_repo_get_challenge_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpdateChallengeSchedule(
	ctx context.Context,
	challengeID string,
	schedule entities.Schedule,
	updatedAt time.Time,
) (entities.Challenge, error) {
	schedule = schedule.UTC()
	result := r.conn(ctx).
		Model(&challengeModel{}).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Updates(map[string]any{
			"start_date":        schedule.StartDate,
			"voting_start_date": schedule.VotingStartDate,
			"voting_end_date":   schedule.VotingEndDate,
			"updated_at":        updatedAt.UTC(),
		})
	if result.Error != nil {
		return entities.Challenge{}, r.logError("contest_repo_update_schedule_failed", result.Error,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	if result.RowsAffected == 0 {
		return entities.Challenge{}, domainerrors.ErrChallengeNotFound
	}
	return r.GetChallenge(ctx, challengeID)
}

// TransitionChallenge is a compare-and-set on status: the row only changes
// when its current status is one of transition.From.
func (r *Repository) TransitionChallenge(
	ctx context.Context,
	transition ports.ChallengeTransition,
) (entities.Challenge, error) {
	challengeID := strings.TrimSpace(transition.ChallengeID)
	from := make([]string, 0, len(transition.From))
	for _, status := range transition.From {
		from = append(from, string(status))
	}
	updates := map[string]any{
		"status":     string(transition.To),
		"updated_at": transition.UpdatedAt.UTC(),
	}
	if transition.To == entities.ChallengeStatusCompleted {
		updates["winners"] = encodeWinners(transition.Winners)
	}
	result := r.conn(ctx).
		Model(&challengeModel{}).
		Where("challenge_id = ?", challengeID).
		Where("status IN ?", from).
		Updates(updates)
	if result.Error != nil {
		return entities.Challenge{}, r.logError("contest_repo_transition_challenge_failed", result.Error,
			"challenge_id", challengeID,
			"to", string(transition.To),
		)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetChallenge(ctx, challengeID); err != nil {
			return entities.Challenge{}, err
		}
		return entities.Challenge{}, domainerrors.ErrInvalidTransition
	}
	return r.GetChallenge(ctx, challengeID)
}

// CloseVoting writes the frozen winners and the close time only while the
// challenge is in voting and still open. A challenge closed earlier is
// returned unchanged.
func (r *Repository) CloseVoting(
	ctx context.Context,
	challengeID string,
	winners []string,
	closedAt time.Time,
) (entities.Challenge, error) {
	challengeID = strings.TrimSpace(challengeID)
	result := r.conn(ctx).
		Model(&challengeModel{}).
		Where("challenge_id = ?", challengeID).
		Where("status = ?", string(entities.ChallengeStatusVoting)).
		Where("voting_closed_at IS NULL").
		Updates(map[string]any{
			"winners":          encodeWinners(winners),
			"voting_closed_at": closedAt.UTC(),
			"updated_at":       closedAt.UTC(),
		})
	if result.Error != nil {
		return entities.Challenge{}, r.logError("contest_repo_close_voting_failed", result.Error,
			"challenge_id", challengeID,
		)
	}
	challenge, err := r.GetChallenge(ctx, challengeID)
	if err != nil {
		return entities.Challenge{}, err
	}
	if result.RowsAffected == 0 && challenge.Status != entities.ChallengeStatusVoting {
		return entities.Challenge{}, domainerrors.ErrInvalidTransition
	}
	return challenge, nil
}

func (r *Repository) IncrementSubmissionCount(ctx context.Context, challengeID string, delta int) error {
	result := r.conn(ctx).
		Model(&challengeModel{}).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Update("submission_count", gorm.Expr("submission_count + ?", delta))
	if result.Error != nil {
		return r.logError("contest_repo_increment_submission_count_failed", result.Error,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrChallengeNotFound
	}
	return nil
}

func (r *Repository) ListChallengesDue(
	ctx context.Context,
	status entities.ChallengeStatus,
	dueField ports.DueField,
	now time.Time,
	limit int,
) ([]entities.Challenge, error) {
	column := string(ports.DueVotingStart)
	if dueField == ports.DueVotingEnd {
		column = string(ports.DueVotingEnd)
	}
	if limit <= 0 {
		limit = 100
	}
	var rows []challengeModel
	if err := r.conn(ctx).
		Where("status = ?", string(status)).
		Where(column+" <= ?", now.UTC()).
		Order(column + " ASC").
		Order("challenge_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("contest_repo_list_challenges_due_failed", err,
			"status", string(status),
			"due_field", column,
		)
	}
	items := make([]entities.Challenge, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}
