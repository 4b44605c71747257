package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "devquest/contexts/contest-lifecycle/contest-engine/application"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

// RelayMetrics is optional instrumentation for the relay loop.
type RelayMetrics interface {
	ObserveOutboxPublished(eventType string)
	ObserveOutboxFailure(stage string)
}

// OutboxRelay publishes persisted outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Metrics   RelayMetrics
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows in creation order
// and marks each row published only after the publish succeeded. Publishers
// acknowledge once every consumer group handled the event, so an event a
// consumer gave up on stays pending. RunOnce stops on the first failure and
// the next cycle resumes from that row; consumer dedup skips the groups that
// already handled it.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		r.fail("list")
		logger.Error("contest outbox list failed",
			"event", "contest_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	published := 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			r.fail("decode")
			logger.Error("contest outbox decode failed",
				"event", "contest_outbox_decode_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			r.fail("publish")
			logger.Error("contest outbox publish failed",
				"event", "contest_outbox_publish_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, resolveNow(r.Clock)); err != nil {
			r.fail("mark")
			logger.Error("contest outbox mark published failed",
				"event", "contest_outbox_mark_published_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		if r.Metrics != nil {
			r.Metrics.ObserveOutboxPublished(topic)
		}
		published++
	}

	logger.Info("contest outbox relay cycle completed",
		"event", "contest_outbox_relay_completed",
		"module", application.ModuleName,
		"layer", "worker",
		"published_count", published,
	)
	return published, nil
}

func (r OutboxRelay) fail(stage string) {
	if r.Metrics != nil {
		r.Metrics.ObserveOutboxFailure(stage)
	}
}
