package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/adapters/memory"
	"devquest/contexts/contest-lifecycle/contest-engine/application/commands"
	"devquest/contexts/contest-lifecycle/contest-engine/application/queries"
	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

var workerBase = time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type stubSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
	groups   map[string]string
}

func (s *stubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	group string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	if s.handlers == nil {
		s.handlers = map[string]func(context.Context, ports.EventEnvelope) error{}
		s.groups = map[string]string{}
	}
	s.handlers[topic] = handler
	s.groups[topic] = group
	return nil
}

type recordingPublisher struct {
	published []ports.EventEnvelope
	failOn    string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if topic == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

type fixture struct {
	store     *memory.Store
	clock     *fixedClock
	logger    *slog.Logger
	create    commands.CreateChallengeUseCase
	submit    commands.SubmitProjectUseCase
	reactions commands.ReactionUseCase
	lifecycle commands.ChallengeLifecycleUseCase
	awards    commands.AchievementUseCase
	profiles  commands.ProfileUseCase
	catalog   commands.BadgeCatalogUseCase
}

func newFixture() *fixture {
	store := memory.NewStore()
	clock := &fixedClock{now: workerBase}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		store:  store,
		clock:  clock,
		logger: logger,
		create: commands.CreateChallengeUseCase{
			Challenges: store, Outbox: store, Tx: store, Clock: clock, IDGen: store, Logger: logger,
		},
		submit: commands.SubmitProjectUseCase{
			Challenges: store, Submissions: store, Profiles: store,
			Outbox: store, Tx: store, Clock: clock, IDGen: store, Logger: logger,
		},
		reactions: commands.ReactionUseCase{
			Submissions: store, Reactions: store, Challenges: store,
			Outbox: store, Tx: store, Clock: clock, IDGen: store, Logger: logger,
		},
		lifecycle: commands.ChallengeLifecycleUseCase{
			Challenges:  store,
			Submissions: store,
			Profiles:    store,
			Ranking:     queries.RankingUseCase{Submissions: store},
			Outbox:      store,
			Tx:          store,
			Clock:       clock,
			IDGen:       store,
			Logger:      logger,
		},
		awards: commands.AchievementUseCase{
			Profiles: store, Badges: store, Outbox: store, Tx: store, Clock: clock, IDGen: store, Logger: logger,
		},
		profiles: commands.ProfileUseCase{
			Profiles: store, Outbox: store, Tx: store, Clock: clock, IDGen: store, Logger: logger,
		},
		catalog: commands.BadgeCatalogUseCase{Badges: store, Clock: clock, IDGen: store, Logger: logger},
	}
}

func (f *fixture) schedule() entities.Schedule {
	return entities.Schedule{
		StartDate:       workerBase.Add(-24 * time.Hour),
		VotingStartDate: workerBase.Add(24 * time.Hour),
		VotingEndDate:   workerBase.Add(72 * time.Hour),
	}
}

func (f *fixture) mustCreateChallenge(t *testing.T, challengeID string) {
	t.Helper()
	if _, err := f.create.Execute(context.Background(), commands.CreateChallengeCommand{
		ChallengeID: challengeID,
		Title:       "Portfolio " + challengeID,
		Status:      entities.ChallengeStatusActive,
		Schedule:    f.schedule(),
	}); err != nil {
		t.Fatalf("create challenge %s failed: %v", challengeID, err)
	}
}

func (f *fixture) mustSubmit(t *testing.T, userID string, challengeID string) entities.Submission {
	t.Helper()
	result, err := f.submit.Execute(context.Background(), commands.SubmitProjectCommand{
		UserID:      userID,
		ChallengeID: challengeID,
		Content: entities.SubmissionContent{
			Name:     "entry by " + userID,
			HTMLCode: "<section>" + userID + "</section>",
		},
	})
	if err != nil {
		t.Fatalf("submit for %s failed: %v", userID, err)
	}
	return result.Submission
}

func (f *fixture) mustSeedCatalog(t *testing.T) {
	t.Helper()
	if _, err := f.catalog.Seed(context.Background(), entities.DefaultBadgeCatalog()); err != nil {
		t.Fatalf("seed badge catalog failed: %v", err)
	}
}

func (f *fixture) pendingEvents(t *testing.T, eventType string) []ports.EventEnvelope {
	t.Helper()
	rows, err := f.store.ListPendingOutbox(context.Background(), 1000)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	items := make([]ports.EventEnvelope, 0)
	for _, row := range rows {
		if row.EventType != eventType {
			continue
		}
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			t.Fatalf("decode outbox payload failed: %v", err)
		}
		items = append(items, event)
	}
	return items
}
