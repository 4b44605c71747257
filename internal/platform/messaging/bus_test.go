package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"devquest/internal/shared/events"

	"github.com/stretchr/testify/require"
)

type deliveryRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *deliveryRecorder) ObserveDelivery(topic string, group string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[topic+"/"+group+"/"+outcome]++
}

func (r *deliveryRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[key]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBusDeliversToEveryGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewBus(Options{}, quietLogger())

	received := make(chan string, 2)
	for _, group := range []string{"group-a", "group-b"} {
		require.NoError(t, bus.Subscribe(ctx, events.TypeBadgeAwarded, group, func(_ context.Context, event events.Envelope) error {
			received <- group + ":" + event.EventID
			return nil
		}))
	}
	require.NoError(t, bus.Subscribe(ctx, events.TypeProfileCreated, "other", func(context.Context, events.Envelope) error {
		t.Errorf("unexpected delivery on unrelated topic")
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, events.TypeBadgeAwarded, events.Envelope{EventID: "evt-1", EventType: events.TypeBadgeAwarded}))

	got := []string{<-received, <-received}
	require.ElementsMatch(t, []string{"group-a:evt-1", "group-b:evt-1"}, got)
}

func TestBusRetriesFailingHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	recorder := &deliveryRecorder{outcomes: map[string]int{}}
	bus := NewBus(Options{MaxAttempts: 3, RetryBackoff: time.Millisecond, Metrics: recorder}, quietLogger())

	var attempts atomic.Int32
	require.NoError(t, bus.Subscribe(ctx, "topic", "cg", func(context.Context, events.Envelope) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))
	require.NoError(t, bus.Publish(ctx, "topic", events.Envelope{EventID: "evt-1"}))

	require.Equal(t, 1, recorder.count("topic/cg/delivered"))
	require.Equal(t, 2, recorder.count("topic/cg/retried"))
	require.Equal(t, int32(3), attempts.Load())
}

func TestBusReportsExhaustedDeliveryToPublisher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	recorder := &deliveryRecorder{outcomes: map[string]int{}}
	bus := NewBus(Options{MaxAttempts: 2, RetryBackoff: time.Millisecond, Metrics: recorder}, quietLogger())

	var attempts atomic.Int32
	require.NoError(t, bus.Subscribe(ctx, "topic", "cg", func(context.Context, events.Envelope) error {
		if attempts.Add(1) <= 2 {
			return errors.New("catalog not seeded")
		}
		return nil
	}))

	err := bus.Publish(ctx, "topic", events.Envelope{EventID: "evt-1"})
	require.ErrorIs(t, err, ErrDeliveryExhausted)
	require.Contains(t, err.Error(), "catalog not seeded")
	require.Equal(t, 1, recorder.count("topic/cg/exhausted"))
	require.Equal(t, int32(2), attempts.Load())

	require.NoError(t, bus.Publish(ctx, "topic", events.Envelope{EventID: "evt-1"}), "a later publish of the same event is handled")
	require.Equal(t, 1, recorder.count("topic/cg/delivered"))
}

func TestBusJoinsFailuresAcrossGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewBus(Options{}, quietLogger())

	var healthy atomic.Int32
	require.NoError(t, bus.Subscribe(ctx, "topic", "group-ok", func(context.Context, events.Envelope) error {
		healthy.Add(1)
		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx, "topic", "group-failing", func(context.Context, events.Envelope) error {
		return errors.New("boom")
	}))

	err := bus.Publish(ctx, "topic", events.Envelope{EventID: "evt-1"})
	require.ErrorIs(t, err, ErrDeliveryExhausted)
	require.Contains(t, err.Error(), "group-failing")
	require.NotContains(t, err.Error(), "group-ok")
	require.Equal(t, int32(1), healthy.Load())
}

func TestBusPublishHonoursCancellation(t *testing.T) {
	subCtx, stopSub := context.WithCancel(context.Background())
	defer stopSub()
	bus := NewBus(Options{BufferSize: 1}, quietLogger())

	block := make(chan struct{})
	defer close(block)
	require.NoError(t, bus.Subscribe(subCtx, "topic", "cg", func(context.Context, events.Envelope) error {
		<-block
		return nil
	}))

	pubCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := bus.Publish(pubCtx, "topic", events.Envelope{EventID: "evt-1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBusReportsSubscriberStoppedMidDelivery(t *testing.T) {
	subCtx, stopSub := context.WithCancel(context.Background())
	bus := NewBus(Options{MaxAttempts: 5, RetryBackoff: time.Millisecond}, quietLogger())

	started := make(chan struct{})
	require.NoError(t, bus.Subscribe(subCtx, "topic", "cg", func(ctx context.Context, _ events.Envelope) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	result := make(chan error, 1)
	go func() { result <- bus.Publish(context.Background(), "topic", events.Envelope{EventID: "evt-1"}) }()
	<-started
	stopSub()

	select {
	case err := <-result:
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrDeliveryExhausted) || errors.Is(err, ErrSubscriberStopped), err.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("publish did not return after the subscriber stopped")
	}
}

func TestBusSkipsStoppedSubscribers(t *testing.T) {
	subCtx, stopSub := context.WithCancel(context.Background())
	bus := NewBus(Options{BufferSize: 1}, quietLogger())
	require.NoError(t, bus.Subscribe(subCtx, "topic", "cg", func(context.Context, events.Envelope) error {
		return nil
	}))
	stopSub()

	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["topic"]) == 0
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, "topic", events.Envelope{EventID: "evt"}))
	}
}
