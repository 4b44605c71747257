package commands_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/adapters/memory"
	"devquest/contexts/contest-lifecycle/contest-engine/application/commands"
	"devquest/contexts/contest-lifecycle/contest-engine/application/queries"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	"devquest/internal/shared/events"

	"github.com/stretchr/testify/require"
)

var contestBase = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []string
	reactions   map[string]int
	awards      map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{reactions: map[string]int{}, awards: map[string]int{}}
}

func (m *recordingMetrics) ObserveTransition(from string, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+"->"+to)
}

func (m *recordingMetrics) ObserveReaction(kind string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions[kind+":"+outcome]++
}

func (m *recordingMetrics) ObserveBadgeAward(slug string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awards[slug+":"+outcome]++
}

type harness struct {
	store   *memory.Store
	clock   *testClock
	metrics *recordingMetrics

	create    commands.CreateChallengeUseCase
	schedule  commands.UpdateScheduleUseCase
	lifecycle commands.ChallengeLifecycleUseCase
	submit    commands.SubmitProjectUseCase
	reactions commands.ReactionUseCase
	awards    commands.AchievementUseCase
	catalog   commands.BadgeCatalogUseCase
	profiles  commands.ProfileUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	clock := &testClock{now: contestBase.Add(time.Hour)}
	metrics := newRecordingMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &harness{
		store:   store,
		clock:   clock,
		metrics: metrics,
		create: commands.CreateChallengeUseCase{
			Challenges: store, Outbox: store, Tx: store, Clock: clock, IDGen: store, Logger: logger,
		},
		schedule: commands.UpdateScheduleUseCase{
			Challenges: store, Outbox: store, Tx: store, Clock: clock, IDGen: store, Logger: logger,
		},
		lifecycle: commands.ChallengeLifecycleUseCase{
			Challenges:  store,
			Submissions: store,
			Profiles:    store,
			Ranking:     queries.RankingUseCase{Submissions: store, PageSize: 2},
			Outbox:      store,
			Tx:          store,
			Clock:       clock,
			IDGen:       store,
			Metrics:     metrics,
			Logger:      logger,
		},
		submit: commands.SubmitProjectUseCase{
			Challenges: store, Submissions: store, Profiles: store,
			Outbox: store, Tx: store, Clock: clock, IDGen: store, Logger: logger,
		},
		reactions: commands.ReactionUseCase{
			Submissions: store, Reactions: store, Challenges: store,
			Outbox: store, Tx: store, Clock: clock, IDGen: store, Metrics: metrics, Logger: logger,
		},
		awards: commands.AchievementUseCase{
			Profiles: store, Badges: store, Outbox: store, Tx: store,
			Clock: clock, IDGen: store, Metrics: metrics, Logger: logger,
		},
		catalog: commands.BadgeCatalogUseCase{Badges: store, Clock: clock, IDGen: store, Logger: logger},
		profiles: commands.ProfileUseCase{
			Profiles: store, Outbox: store, Tx: store, Clock: clock, IDGen: store, Logger: logger,
		},
	}
}

func defaultSchedule() entities.Schedule {
	return entities.Schedule{
		StartDate:       contestBase,
		VotingStartDate: contestBase.Add(7 * 24 * time.Hour),
		VotingEndDate:   contestBase.Add(14 * 24 * time.Hour),
	}
}

func (h *harness) createChallenge(t *testing.T, id string, status entities.ChallengeStatus) entities.Challenge {
	t.Helper()
	challenge, err := h.create.Execute(context.Background(), commands.CreateChallengeCommand{
		ChallengeID: id,
		Title:       "Landing page " + id,
		Status:      status,
		Schedule:    defaultSchedule(),
	})
	require.NoError(t, err)
	return challenge
}

// openVoting moves an active challenge into voting at its voting start date.
func (h *harness) openVoting(t *testing.T, challengeID string) {
	t.Helper()
	h.clock.Set(defaultSchedule().VotingStartDate)
	_, err := h.lifecycle.StartVoting(context.Background(), challengeID)
	require.NoError(t, err)
}

func (h *harness) submitProject(t *testing.T, userID string, challengeID string) commands.SubmitProjectResult {
	t.Helper()
	result, err := h.submit.Execute(context.Background(), commands.SubmitProjectCommand{
		UserID:      userID,
		ChallengeID: challengeID,
		Content:     projectContent("project by " + userID),
	})
	require.NoError(t, err)
	return result
}

func projectContent(name string) entities.SubmissionContent {
	return entities.SubmissionContent{
		Name:     name,
		HTMLCode: "<main><h1>" + name + "</h1></main>",
		CSSCode:  "h1 { color: teal; }",
	}
}

func (h *harness) outboxEvents(t *testing.T, eventType string) []events.Envelope {
	t.Helper()
	messages, err := h.store.ListPendingOutbox(context.Background(), 10000)
	require.NoError(t, err)
	matched := make([]events.Envelope, 0)
	for _, message := range messages {
		if message.EventType != eventType {
			continue
		}
		var envelope events.Envelope
		require.NoError(t, json.Unmarshal(message.Payload, &envelope))
		matched = append(matched, envelope)
	}
	return matched
}

func decodeData(t *testing.T, envelope events.Envelope) map[string]any {
	t.Helper()
	var data map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	return data
}
