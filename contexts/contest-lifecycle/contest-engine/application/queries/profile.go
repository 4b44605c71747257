package queries

import (
	"context"
	"strings"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

type ProfileSummary struct {
	Profile entities.Profile
	Badges  []entities.Badge
}

type ProfileQueryUseCase struct {
	Profiles ports.ProfileRepository
	Badges   ports.BadgeRepository
}

// GetProfile returns the caller's gamification state with earned badges
// resolved to their catalog entries.
func (uc ProfileQueryUseCase) GetProfile(ctx context.Context, userID string) (ProfileSummary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ProfileSummary{}, domainerrors.ErrUnauthenticated
	}
	profile, err := uc.Profiles.GetProfileByUser(ctx, userID)
	if err != nil {
		return ProfileSummary{}, err
	}
	badges, err := uc.Badges.ListBadgesBySlugs(ctx, profile.BadgeSlugs)
	if err != nil {
		return ProfileSummary{}, err
	}
	return ProfileSummary{Profile: profile, Badges: badges}, nil
}
