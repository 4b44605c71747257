package postgresadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) EnsureProfile(ctx context.Context, profile entities.Profile) (entities.Profile, bool, error) {
	row := profileModel{
		ProfileID: strings.TrimSpace(profile.ProfileID),
		UserID:    strings.TrimSpace(profile.UserID),
		Username:  strings.TrimSpace(profile.Username),
		Bio:       profile.Bio,
		CreatedAt: profile.CreatedAt.UTC(),
		UpdatedAt: profile.UpdatedAt.UTC(),
	}
	if row.ProfileID == "" {
		row.ProfileID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return entities.Profile{}, false, r.logError("contest_repo_ensure_profile_failed", create.Error,
			"user_id", row.UserID,
		)
	}
	stored, err := r.GetProfileByUser(ctx, row.UserID)
	if err != nil {
		return entities.Profile{}, false, err
	}
	return stored, create.RowsAffected > 0, nil
}

func (r *Repository) GetProfileByUser(ctx context.Context, userID string) (entities.Profile, error) {
	row, err := r.loadProfile(ctx, userID, false)
	if err != nil {
		return entities.Profile{}, err
	}
	profile := row.toEntity()

	var slugs []string
	if err := r.conn(ctx).
		Model(&profileBadgeModel{}).
		Where("profile_id = ?", row.ProfileID).
		Order("badge_slug ASC").
		Pluck("badge_slug", &slugs).Error; err != nil {
		return entities.Profile{}, r.logError("contest_repo_list_profile_badges_failed", err,
			"profile_id", row.ProfileID,
		)
	}
	var completed []string
	if err := r.conn(ctx).
		Model(&completedChallengeModel{}).
		Where("profile_id = ?", row.ProfileID).
		Order("challenge_id ASC").
		Pluck("challenge_id", &completed).Error; err != nil {
		return entities.Profile{}, r.logError("contest_repo_list_completed_challenges_failed", err,
			"profile_id", row.ProfileID,
		)
	}
	profile.BadgeSlugs = slugs
	profile.CompletedChallenges = completed
	return profile, nil
}

func (r *Repository) UpdateProfileDetails(
	ctx context.Context,
	userID string,
	details entities.ProfileDetails,
	updatedAt time.Time,
) (entities.Profile, error) {
	result := r.conn(ctx).
		Model(&profileModel{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Updates(map[string]any{
			"bio":         details.Bio,
			"github_user": details.GithubUser,
			"updated_at":  updatedAt.UTC(),
		})
	if result.Error != nil {
		return entities.Profile{}, r.logError("contest_repo_update_profile_details_failed", result.Error,
			"user_id", strings.TrimSpace(userID),
		)
	}
	if result.RowsAffected == 0 {
		return entities.Profile{}, domainerrors.ErrProfileNotFound
	}
	return r.GetProfileByUser(ctx, userID)
}

// CompleteChallenge records the completion once per (profile, challenge) and
// credits xp with it. first is false when the completion already existed.
func (r *Repository) CompleteChallenge(
	ctx context.Context,
	userID string,
	challengeID string,
	xp int,
	at time.Time,
) (entities.Profile, bool, error) {
	var first bool
	err := r.WithinTx(ctx, func(ctx context.Context) error {
		row, err := r.loadProfile(ctx, userID, true)
		if err != nil {
			return err
		}
		completion := completedChallengeModel{
			ProfileID:   row.ProfileID,
			ChallengeID: strings.TrimSpace(challengeID),
			XPAwarded:   xp,
			CompletedAt: at.UTC(),
		}
		create := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&completion)
		if create.Error != nil {
			return r.logError("contest_repo_complete_challenge_failed", create.Error,
				"profile_id", row.ProfileID,
				"challenge_id", completion.ChallengeID,
			)
		}
		if create.RowsAffected == 0 {
			return nil
		}
		first = true
		return r.creditProfile(ctx, row.ProfileID, map[string]any{
			"challenges_completed": gorm.Expr("challenges_completed + ?", 1),
			"total_xp":             gorm.Expr("total_xp + ?", xp),
			"updated_at":           at.UTC(),
		})
	})
	if err != nil {
		return entities.Profile{}, false, err
	}
	profile, err := r.GetProfileByUser(ctx, userID)
	if err != nil {
		return entities.Profile{}, false, err
	}
	return profile, first, nil
}

// AwardPrize writes the (challenge, place) ledger row and credits the winner.
// A second call for the same place applies nothing.
func (r *Repository) AwardPrize(ctx context.Context, prize entities.Prize) (bool, error) {
	var applied bool
	err := r.WithinTx(ctx, func(ctx context.Context) error {
		row, err := r.loadProfile(ctx, prize.UserID, true)
		if err != nil {
			return err
		}
		ledger := prizeModel{
			ChallengeID:  strings.TrimSpace(prize.ChallengeID),
			Place:        prize.Place,
			SubmissionID: strings.TrimSpace(prize.SubmissionID),
			UserID:       row.UserID,
			XP:           prize.XP,
			AwardedAt:    prize.AwardedAt.UTC(),
		}
		create := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ledger)
		if create.Error != nil {
			return r.logError("contest_repo_award_prize_failed", create.Error,
				"challenge_id", ledger.ChallengeID,
				"place", ledger.Place,
			)
		}
		if create.RowsAffected == 0 {
			return nil
		}
		applied = true
		return r.creditProfile(ctx, row.ProfileID, map[string]any{
			"challenges_won": gorm.Expr("challenges_won + ?", 1),
			"total_xp":       gorm.Expr("total_xp + ?", prize.XP),
			"updated_at":     prize.AwardedAt.UTC(),
		})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *Repository) UpsertBadge(ctx context.Context, badge entities.Badge) (entities.Badge, bool, error) {
	row := badgeModelFromEntity(badge)
	if row.BadgeID == "" {
		row.BadgeID = uuid.NewString()
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return entities.Badge{}, false, r.logError("contest_repo_upsert_badge_insert_failed", create.Error,
			"slug", row.Slug,
		)
	}
	if create.RowsAffected > 0 {
		return row.toEntity(), true, nil
	}
	if err := r.conn(ctx).
		Model(&badgeModel{}).
		Where("slug = ?", row.Slug).
		Updates(map[string]any{
			"name":        row.Name,
			"description": row.Description,
			"icon":        row.Icon,
			"requirement": row.Requirement,
			"category":    row.Category,
			"rarity":      row.Rarity,
		}).Error; err != nil {
		return entities.Badge{}, false, r.logError("contest_repo_upsert_badge_update_failed", err,
			"slug", row.Slug,
		)
	}
	stored, err := r.GetBadgeBySlug(ctx, row.Slug)
	if err != nil {
		return entities.Badge{}, false, err
	}
	return stored, false, nil
}

func (r *Repository) GetBadgeBySlug(ctx context.Context, slug string) (entities.Badge, error) {
	var row badgeModel
	err := r.conn(ctx).
		Where("slug = ?", strings.TrimSpace(slug)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Badge{}, domainerrors.ErrBadgeNotConfigured
		}
		return entities.Badge{}, r.logError("contest_repo_get_badge_failed", err,
			"slug", strings.TrimSpace(slug),
		)
	}
	return row.toEntity(), nil
}

// ListBadgesBySlugs returns the configured badges in the order of slugs.
// Unknown slugs are skipped.
func (r *Repository) ListBadgesBySlugs(ctx context.Context, slugs []string) ([]entities.Badge, error) {
	if len(slugs) == 0 {
		return []entities.Badge{}, nil
	}
	var rows []badgeModel
	if err := r.conn(ctx).
		Where("slug IN ?", slugs).
		Find(&rows).Error; err != nil {
		return nil, r.logError("contest_repo_list_badges_failed", err, "count", len(slugs))
	}
	bySlug := make(map[string]entities.Badge, len(rows))
	for _, row := range rows {
		bySlug[row.Slug] = row.toEntity()
	}
	items := make([]entities.Badge, 0, len(rows))
	for _, slug := range slugs {
		if badge, ok := bySlug[strings.TrimSpace(slug)]; ok {
			items = append(items, badge)
		}
	}
	return items, nil
}

// LinkBadge inserts the (profile, badge) link when absent. A false result
// means another writer linked it first.
func (r *Repository) LinkBadge(ctx context.Context, award entities.BadgeAward) (bool, error) {
	row := profileBadgeModel{
		ProfileID: strings.TrimSpace(award.ProfileID),
		BadgeID:   strings.TrimSpace(award.BadgeID),
		BadgeSlug: strings.TrimSpace(award.BadgeSlug),
		UserID:    strings.TrimSpace(award.UserID),
		AwardedAt: award.AwardedAt.UTC(),
	}
	if row.AwardedAt.IsZero() {
		row.AwardedAt = time.Now().UTC()
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if create.Error != nil {
		return false, r.logError("contest_repo_link_badge_failed", create.Error,
			"profile_id", row.ProfileID,
			"badge_id", row.BadgeID,
		)
	}
	return create.RowsAffected > 0, nil
}

func (r *Repository) creditProfile(ctx context.Context, profileID string, updates map[string]any) error {
	if err := r.conn(ctx).
		Model(&profileModel{}).
		Where("profile_id = ?", profileID).
		Updates(updates).Error; err != nil {
		return r.logError("contest_repo_credit_profile_failed", err, "profile_id", profileID)
	}
	return nil
}

func (r *Repository) loadProfile(ctx context.Context, userID string, lock bool) (profileModel, error) {
	query := r.conn(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row profileModel
	err := query.
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return profileModel{}, domainerrors.ErrProfileNotFound
		}
		return profileModel{}, r.logError("contest_repo_get_profile_failed", err,
			"user_id", strings.TrimSpace(userID),
		)
	}
	return row, nil
}
