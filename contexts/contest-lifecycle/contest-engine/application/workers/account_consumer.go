package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "devquest/contexts/contest-lifecycle/contest-engine/application"
	"devquest/contexts/contest-lifecycle/contest-engine/application/commands"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
	"devquest/internal/shared/events"
)

const defaultAccountCG = "contest-engine-account-cg"

// AccountCreatedConsumer provisions a profile for every new account.
type AccountCreatedConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Profiles      commands.ProfileUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c AccountCreatedConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if err := c.Subscriber.Subscribe(ctx, events.TypeAccountCreated, c.group(), c.Handle); err != nil {
		logger.Error("account consumer subscribe failed",
			"event", "contest_account_consumer_subscribe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"topic", events.TypeAccountCreated,
			"consumer_group", c.group(),
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (c AccountCreatedConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	key := dedupKey(c.group(), event)
	if c.Dedup != nil {
		now := resolveNow(c.Clock)
		alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, key, hashPayload(event.Data), now, now.Add(resolveTTL(c.DedupTTL)))
		if err != nil {
			return err
		}
		if alreadyProcessed {
			return nil
		}
	}

	var payload struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	}
	err := json.Unmarshal(event.Data, &payload)
	if err == nil {
		_, _, err = c.Profiles.ProvisionProfile(ctx, commands.ProvisionProfileCommand{
			UserID:   strings.TrimSpace(payload.UserID),
			Username: strings.TrimSpace(payload.Username),
		})
	}
	if err != nil {
		logger.Error("account.created handling failed",
			"event", "contest_account_created_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		if c.Dedup != nil {
			if releaseErr := c.Dedup.ReleaseEvent(ctx, key); releaseErr != nil {
				err = errors.Join(err, releaseErr)
			}
		}
		return err
	}
	return nil
}

func (c AccountCreatedConsumer) group() string {
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		return defaultAccountCG
	}
	return group
}
