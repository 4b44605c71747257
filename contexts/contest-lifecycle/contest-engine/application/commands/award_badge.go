package commands

import (
	"context"
	"log/slog"
	"strings"

	application "devquest/contexts/contest-lifecycle/contest-engine/application"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
	"devquest/internal/shared/events"
)

type AwardOutcome string

const (
	AwardOutcomeAwarded        AwardOutcome = "awarded"
	AwardOutcomeAlreadyAwarded AwardOutcome = "already_awarded"
)

type AwardResult struct {
	Outcome AwardOutcome
	Badge   entities.Badge
	Award   entities.BadgeAward
}

// AchievementUseCase is the single writer of profile badge links.
type AchievementUseCase struct {
	Profiles ports.ProfileRepository
	Badges   ports.BadgeRepository
	Outbox   ports.OutboxWriter
	Tx       ports.TxManager
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Metrics  ports.Metrics
	Logger   *slog.Logger
}

// EvaluateAndAward links the badge to the user's profile at most once.
// Holding the badge already is reported as AwardOutcomeAlreadyAwarded, not as
// an error. Racing callers are settled by the repository's conditional insert;
// only the winner emits badge.awarded.
func (uc AchievementUseCase) EvaluateAndAward(ctx context.Context, userID string, badgeSlug string) (AwardResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	userID = strings.TrimSpace(userID)
	badgeSlug = strings.TrimSpace(badgeSlug)
	if userID == "" {
		return AwardResult{}, domainerrors.ErrUnauthenticated
	}

	profile, err := uc.Profiles.GetProfileByUser(ctx, userID)
	if err != nil {
		return AwardResult{}, err
	}
	if profile.HasBadge(badgeSlug) {
		uc.observe(badgeSlug, string(AwardOutcomeAlreadyAwarded))
		logger.Debug("badge already held",
			"event", "contest_badge_already_awarded",
			"module", application.ModuleName,
			"layer", "application",
			"user_id", userID,
			"badge_slug", badgeSlug,
		)
		return AwardResult{Outcome: AwardOutcomeAlreadyAwarded}, nil
	}

	badge, err := uc.Badges.GetBadgeBySlug(ctx, badgeSlug)
	if err != nil {
		uc.observe(badgeSlug, "failed")
		logger.Error("badge lookup failed",
			"event", "contest_badge_lookup_failed",
			"module", application.ModuleName,
			"layer", "application",
			"user_id", userID,
			"badge_slug", badgeSlug,
			"error", err.Error(),
		)
		return AwardResult{}, err
	}

	now := resolveNow(uc.Clock)
	award := entities.BadgeAward{
		ProfileID: profile.ProfileID,
		BadgeID:   badge.BadgeID,
		BadgeSlug: badge.Slug,
		UserID:    userID,
		AwardedAt: now,
	}
	var linked bool
	err = application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		var err error
		linked, err = uc.Badges.LinkBadge(ctx, award)
		if err != nil || !linked {
			return err
		}
		return appendEvent(ctx, uc.Outbox, uc.IDGen, events.TypeBadgeAwarded, "user_id", userID, now,
			map[string]any{
				"profile_id": profile.ProfileID,
				"user_id":    userID,
				"badge_id":   badge.BadgeID,
				"badge_slug": badge.Slug,
				"badge_name": badge.Name,
			})
	})
	if err != nil {
		uc.observe(badgeSlug, "failed")
		logger.Error("badge award failed",
			"event", "contest_badge_award_failed",
			"module", application.ModuleName,
			"layer", "application",
			"user_id", userID,
			"badge_slug", badgeSlug,
			"error", err.Error(),
		)
		return AwardResult{}, err
	}
	if !linked {
		uc.observe(badgeSlug, string(AwardOutcomeAlreadyAwarded))
		return AwardResult{Outcome: AwardOutcomeAlreadyAwarded, Badge: badge}, nil
	}

	uc.observe(badgeSlug, string(AwardOutcomeAwarded))
	logger.Info("badge awarded",
		"event", "contest_badge_awarded",
		"module", application.ModuleName,
		"layer", "application",
		"user_id", userID,
		"profile_id", profile.ProfileID,
		"badge_slug", badge.Slug,
	)
	return AwardResult{Outcome: AwardOutcomeAwarded, Badge: badge, Award: award}, nil
}

func (uc AchievementUseCase) observe(slug string, outcome string) {
	if uc.Metrics != nil {
		uc.Metrics.ObserveBadgeAward(slug, outcome)
	}
}

type BadgeCatalogUseCase struct {
	Badges ports.BadgeRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// Seed upserts the catalog by slug. Existing badges keep their ids.
func (uc BadgeCatalogUseCase) Seed(ctx context.Context, catalog []entities.Badge) ([]entities.Badge, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	seeded := make([]entities.Badge, 0, len(catalog))
	created := 0
	for _, badge := range catalog {
		badge.Slug = strings.TrimSpace(badge.Slug)
		if badge.Slug == "" || strings.TrimSpace(badge.Name) == "" {
			return nil, domainerrors.ErrValidation
		}
		if badge.BadgeID == "" {
			id, err := newID(ctx, uc.IDGen)
			if err != nil {
				return nil, err
			}
			badge.BadgeID = id
		}
		if badge.CreatedAt.IsZero() {
			badge.CreatedAt = now
		}
		stored, inserted, err := uc.Badges.UpsertBadge(ctx, badge)
		if err != nil {
			logger.Error("badge seed failed",
				"event", "contest_badge_seed_failed",
				"module", application.ModuleName,
				"layer", "application",
				"badge_slug", badge.Slug,
				"error", err.Error(),
			)
			return nil, err
		}
		if inserted {
			created++
		}
		seeded = append(seeded, stored)
	}
	logger.Info("badge catalog seeded",
		"event", "contest_badge_catalog_seeded",
		"module", application.ModuleName,
		"layer", "application",
		"badge_count", len(seeded),
		"created_count", created,
	)
	return seeded, nil
}
