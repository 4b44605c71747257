package commands_test

import (
	"context"
	"strings"
	"testing"

	"devquest/contexts/contest-lifecycle/contest-engine/application/commands"
	"devquest/contexts/contest-lifecycle/contest-engine/application/queries"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/internal/shared/events"

	"github.com/stretchr/testify/require"
)

func TestProvisionProfileIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	profile, created, err := h.profiles.ProvisionProfile(ctx, commands.ProvisionProfileCommand{UserID: "user-1", Username: "ada"})
	require.NoError(t, err)
	require.True(t, created)
	require.Zero(t, profile.TotalXP)
	require.Empty(t, profile.BadgeSlugs)
	require.Equal(t, "ada", profile.Username)

	again, created, err := h.profiles.ProvisionProfile(ctx, commands.ProvisionProfileCommand{UserID: "user-1", Username: "other"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, profile.ProfileID, again.ProfileID)
	require.Equal(t, "ada", again.Username)

	require.Len(t, h.outboxEvents(t, events.TypeProfileCreated), 1)

	_, _, err = h.profiles.ProvisionProfile(ctx, commands.ProvisionProfileCommand{})
	require.ErrorIs(t, err, domainerrors.ErrUnauthenticated)
}

func TestUpdateProfileDetailsValidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	provision(t, h, "user-1")

	updated, err := h.profiles.UpdateProfileDetails(ctx, commands.UpdateProfileDetailsCommand{
		UserID:     "user-1",
		Bio:        "  Frontend tinkerer  ",
		GithubUser: "ada-lovelace",
	})
	require.NoError(t, err)
	require.Equal(t, "Frontend tinkerer", updated.Bio)
	require.Equal(t, "ada-lovelace", updated.GithubUser)

	_, err = h.profiles.UpdateProfileDetails(ctx, commands.UpdateProfileDetailsCommand{
		UserID: "user-1",
		Bio:    strings.Repeat("x", 501),
	})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = h.profiles.UpdateProfileDetails(ctx, commands.UpdateProfileDetailsCommand{
		UserID:     "user-1",
		GithubUser: "-bad--name",
	})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = h.profiles.UpdateProfileDetails(ctx, commands.UpdateProfileDetailsCommand{UserID: "ghost"})
	require.ErrorIs(t, err, domainerrors.ErrProfileNotFound)
}

func TestProfileQueryResolvesBadges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedCatalog(t, h)
	provision(t, h, "user-1")
	_, err := h.awards.EvaluateAndAward(ctx, "user-1", entities.BadgeSlugJuniorStar)
	require.NoError(t, err)

	query := queries.ProfileQueryUseCase{Profiles: h.store, Badges: h.store}
	summary, err := query.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, summary.Badges, 1)
	require.Equal(t, "Junior Star", summary.Badges[0].Name)

	_, err = query.GetProfile(ctx, " ")
	require.ErrorIs(t, err, domainerrors.ErrUnauthenticated)
	_, err = query.GetProfile(ctx, "ghost")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
