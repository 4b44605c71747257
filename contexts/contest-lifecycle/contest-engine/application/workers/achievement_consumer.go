package workers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "devquest/contexts/contest-lifecycle/contest-engine/application"
	"devquest/contexts/contest-lifecycle/contest-engine/application/achievements"
	"devquest/contexts/contest-lifecycle/contest-engine/application/commands"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

const defaultAchievementCG = "contest-engine-achievement-cg"

// AchievementConsumer evaluates the badge rule table for every event type it
// covers. Awards go through AchievementUseCase, which settles duplicates, so a
// redelivered event is harmless.
type AchievementConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Facts         achievements.Facts
	Achievements  commands.AchievementUseCase
	Rules         []achievements.Rule
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c AchievementConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := c.group()
	for _, topic := range achievements.EventTypes(c.rules()) {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.Handle); err != nil {
			logger.Error("achievement consumer subscribe failed",
				"event", "contest_achievement_consumer_subscribe_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("achievement consumer subscriptions active",
		"event", "contest_achievement_consumer_started",
		"module", application.ModuleName,
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Handle processes one event. A failed event releases its dedup reservation so
// the bus retry evaluates it again.
func (c AchievementConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	key := dedupKey(c.group(), event)
	if c.Dedup != nil {
		now := resolveNow(c.Clock)
		alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, key, hashPayload(event.Data), now, now.Add(resolveTTL(c.DedupTTL)))
		if err != nil {
			logger.Error("achievement event dedupe failed",
				"event", "contest_achievement_dedupe_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if alreadyProcessed {
			logger.Debug("achievement event replay skipped",
				"event", "contest_achievement_event_replayed",
				"module", application.ModuleName,
				"layer", "worker",
				"event_id", event.EventID,
				"event_type", event.EventType,
			)
			return nil
		}
	}

	if err := c.evaluate(ctx, event); err != nil {
		if c.Dedup != nil {
			if releaseErr := c.Dedup.ReleaseEvent(ctx, key); releaseErr != nil {
				err = errors.Join(err, releaseErr)
			}
		}
		return err
	}
	return nil
}

func (c AchievementConsumer) evaluate(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	var errs []error
	for _, rule := range achievements.RulesFor(c.rules(), event.EventType) {
		decision, err := rule.Evaluate(ctx, c.Facts, event.Data)
		if err != nil {
			logger.Error("achievement rule evaluation failed",
				"event", "contest_achievement_rule_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"event_id", event.EventID,
				"rule", rule.Name,
				"error", err.Error(),
			)
			errs = append(errs, err)
			continue
		}
		if !decision.Eligible || strings.TrimSpace(decision.UserID) == "" {
			continue
		}
		result, err := c.Achievements.EvaluateAndAward(ctx, decision.UserID, rule.BadgeSlug)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info("achievement rule applied",
			"event", "contest_achievement_rule_applied",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"rule", rule.Name,
			"user_id", decision.UserID,
			"badge_slug", rule.BadgeSlug,
			"outcome", string(result.Outcome),
		)
	}
	return errors.Join(errs...)
}

func (c AchievementConsumer) rules() []achievements.Rule {
	if len(c.Rules) == 0 {
		return achievements.DefaultRules()
	}
	return c.Rules
}

func (c AchievementConsumer) group() string {
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		return defaultAchievementCG
	}
	return group
}
