package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"devquest/internal/shared/events"
)

var (
	// ErrDeliveryExhausted is returned by Publish when a consumer group's
	// handler still fails after MaxAttempts.
	ErrDeliveryExhausted = errors.New("event delivery exhausted")
	// ErrSubscriberStopped is returned by Publish when a consumer group stopped
	// before handling the event.
	ErrSubscriberStopped = errors.New("event subscriber stopped")
)

// DeliveryMetrics is optional instrumentation for consumer deliveries.
type DeliveryMetrics interface {
	ObserveDelivery(topic string, consumerGroup string, outcome string)
}

type Options struct {
	BufferSize   int
	MaxAttempts  int
	RetryBackoff time.Duration
	Metrics      DeliveryMetrics
}

type delivery struct {
	event  events.Envelope
	result chan error
}

type subscription struct {
	group string
	ch    chan delivery
	done  chan struct{}
}

// Bus is the in-process event bus between the outbox relay and consumers.
// Publish is acknowledged: it returns only after every live consumer group
// handled the event, and reports an error for each group that did not. A
// failing handler is retried with linear backoff up to MaxAttempts, after
// which the caller keeps the event and publishes it again later.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	opts        Options
	logger      *slog.Logger
}

func NewBus(opts Options, logger *slog.Logger) *Bus {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 128
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]*subscription),
		opts:        opts,
		logger:      logger,
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event events.Envelope) error {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	pending := make([]delivery, len(subs))
	var errs []error
	for i, sub := range subs {
		pending[i] = delivery{event: event, result: make(chan error, 1)}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.done:
			pending[i].result <- fmt.Errorf("%w: %s", ErrSubscriberStopped, sub.group)
		case sub.ch <- pending[i]:
		}
	}
	for i, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-pending[i].result:
			if err != nil {
				errs = append(errs, err)
			}
		case <-sub.done:
			select {
			case err := <-pending[i].result:
				if err != nil {
					errs = append(errs, err)
				}
			default:
				errs = append(errs, fmt.Errorf("%w: %s", ErrSubscriberStopped, sub.group))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	b.logger.Debug("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"subscribers", len(subs),
	)
	return nil
}

func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	sub := &subscription{
		group: consumerGroup,
		ch:    make(chan delivery, b.opts.BufferSize),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	go func() {
		defer func() {
			b.removeSubscriber(topic, sub)
			close(sub.done)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case item := <-sub.ch:
				item.result <- b.deliver(ctx, topic, sub.group, item.event, handler)
			}
		}
	}()
	return nil
}

func (b *Bus) deliver(
	ctx context.Context,
	topic string,
	group string,
	event events.Envelope,
	handler func(context.Context, events.Envelope) error,
) error {
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			b.observe(topic, group, "delivered")
			return nil
		}
		if attempt >= b.opts.MaxAttempts || ctx.Err() != nil {
			b.observe(topic, group, "exhausted")
			b.logger.Error("consumer handler failed, event left for redelivery",
				"event", "bus_consume_failed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", group,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"attempts", attempt,
				"error", err.Error(),
			)
			return fmt.Errorf("%w: %s: %w", ErrDeliveryExhausted, group, err)
		}
		b.observe(topic, group, "retried")
		b.logger.Warn("consumer handler failed, retrying",
			"event", "bus_consume_retry",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"consumer_group", group,
			"event_id", event.EventID,
			"attempt", attempt,
			"error", err.Error(),
		)
		timer := time.NewTimer(b.opts.RetryBackoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %s: %w", ErrSubscriberStopped, group, ctx.Err())
		case <-timer.C:
		}
	}
}

func (b *Bus) observe(topic string, group string, outcome string) {
	if b.opts.Metrics != nil {
		b.opts.Metrics.ObserveDelivery(topic, group, outcome)
	}
}

func (b *Bus) removeSubscriber(topic string, target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]*subscription, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}
