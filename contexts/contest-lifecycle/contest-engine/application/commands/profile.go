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

type ProvisionProfileCommand struct {
	UserID   string
	Username string
}

type UpdateProfileDetailsCommand struct {
	UserID     string
	Bio        string
	GithubUser string
}

type ProfileUseCase struct {
	Profiles ports.ProfileRepository
	Outbox   ports.OutboxWriter
	Tx       ports.TxManager
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// ProvisionProfile creates the zeroed profile for a new account. Replays of the
// account event return the existing profile.
func (uc ProfileUseCase) ProvisionProfile(ctx context.Context, cmd ProvisionProfileCommand) (entities.Profile, bool, error) {
	logger := application.ResolveLogger(uc.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return entities.Profile{}, false, domainerrors.ErrUnauthenticated
	}
	now := resolveNow(uc.Clock)

	var (
		profile entities.Profile
		created bool
	)
	err := application.RunInTx(ctx, uc.Tx, func(ctx context.Context) error {
		var err error
		profile, created, err = ensureProfile(ctx, uc.Profiles, uc.IDGen, userID, cmd.Username, now)
		if err != nil || !created {
			return err
		}
		return appendEvent(ctx, uc.Outbox, uc.IDGen, events.TypeProfileCreated, "user_id", userID, now,
			map[string]any{
				"profile_id": profile.ProfileID,
				"user_id":    userID,
			})
	})
	if err != nil {
		logger.Error("profile provisioning failed",
			"event", "contest_profile_provision_failed",
			"module", application.ModuleName,
			"layer", "application",
			"user_id", userID,
			"error", err.Error(),
		)
		return entities.Profile{}, false, err
	}
	if created {
		logger.Info("profile provisioned",
			"event", "contest_profile_provisioned",
			"module", application.ModuleName,
			"layer", "application",
			"user_id", userID,
			"profile_id", profile.ProfileID,
		)
	}
	return profile, created, nil
}

func (uc ProfileUseCase) UpdateProfileDetails(ctx context.Context, cmd UpdateProfileDetailsCommand) (entities.Profile, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return entities.Profile{}, domainerrors.ErrUnauthenticated
	}
	details := entities.ProfileDetails{
		Bio:        strings.TrimSpace(cmd.Bio),
		GithubUser: strings.TrimSpace(cmd.GithubUser),
	}
	if err := application.ValidateStruct(details); err != nil {
		return entities.Profile{}, err
	}
	return uc.Profiles.UpdateProfileDetails(ctx, userID, details, resolveNow(uc.Clock))
}

// ensureProfile returns the user's profile, creating an empty one when the
// account event has not been processed yet.
func ensureProfile(
	ctx context.Context,
	profiles ports.ProfileRepository,
	ids ports.IDGenerator,
	userID string,
	username string,
	now time.Time,
) (entities.Profile, bool, error) {
	profileID, err := newID(ctx, ids)
	if err != nil {
		return entities.Profile{}, false, err
	}
	return profiles.EnsureProfile(ctx, entities.Profile{
		ProfileID: profileID,
		UserID:    strings.TrimSpace(userID),
		Username:  strings.TrimSpace(username),
		CreatedAt: now,
		UpdatedAt: now,
	})
}
