package contestengine

import (
	"log/slog"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/adapters/memory"
	"devquest/contexts/contest-lifecycle/contest-engine/application/achievements"
	"devquest/contexts/contest-lifecycle/contest-engine/application/commands"
	"devquest/contexts/contest-lifecycle/contest-engine/application/queries"
	"devquest/contexts/contest-lifecycle/contest-engine/application/workers"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

type Module struct {
	CreateChallenge commands.CreateChallengeUseCase
	UpdateSchedule  commands.UpdateScheduleUseCase
	Lifecycle       commands.ChallengeLifecycleUseCase
	SubmitProject   commands.SubmitProjectUseCase
	Reactions       commands.ReactionUseCase
	Achievements    commands.AchievementUseCase
	BadgeCatalog    commands.BadgeCatalogUseCase
	Profiles        commands.ProfileUseCase

	Ranking      queries.RankingUseCase
	ProfileQuery queries.ProfileQueryUseCase

	OutboxRelay         workers.OutboxRelay
	AchievementConsumer workers.AchievementConsumer
	AccountConsumer     workers.AccountCreatedConsumer
	Scheduler           workers.VotingWindowScheduler

	Store *memory.Store
}

type Dependencies struct {
	Challenges  ports.ChallengeRepository
	Submissions ports.SubmissionRepository
	Reactions   ports.ReactionRepository
	Profiles    ports.ProfileRepository
	Badges      ports.BadgeRepository
	Outbox      ports.OutboxRepository
	Dedup       ports.EventDedupStore
	Tx          ports.TxManager
	Publisher   ports.EventPublisher
	Subscriber  ports.EventSubscriber
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Metrics     ports.Metrics
	// RelayMetrics is optional.
	RelayMetrics workers.RelayMetrics

	RankingPageSize    int
	OutboxBatchSize    int
	SchedulerBatchSize int
	DedupTTL           time.Duration
	Logger             *slog.Logger
}

func NewModule(deps Dependencies) Module {
	ranking := queries.RankingUseCase{
		Submissions: deps.Submissions,
		PageSize:    deps.RankingPageSize,
	}
	lifecycle := commands.ChallengeLifecycleUseCase{
		Challenges:  deps.Challenges,
		Submissions: deps.Submissions,
		Profiles:    deps.Profiles,
		Ranking:     ranking,
		Outbox:      deps.Outbox,
		Tx:          deps.Tx,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	profiles := commands.ProfileUseCase{
		Profiles: deps.Profiles,
		Outbox:   deps.Outbox,
		Tx:       deps.Tx,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	awards := commands.AchievementUseCase{
		Profiles: deps.Profiles,
		Badges:   deps.Badges,
		Outbox:   deps.Outbox,
		Tx:       deps.Tx,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Metrics:  deps.Metrics,
		Logger:   deps.Logger,
	}

	return Module{
		CreateChallenge: commands.CreateChallengeUseCase{
			Challenges: deps.Challenges,
			Outbox:     deps.Outbox,
			Tx:         deps.Tx,
			Clock:      deps.Clock,
			IDGen:      deps.IDGen,
			Logger:     deps.Logger,
		},
		UpdateSchedule: commands.UpdateScheduleUseCase{
			Challenges: deps.Challenges,
			Outbox:     deps.Outbox,
			Tx:         deps.Tx,
			Clock:      deps.Clock,
			IDGen:      deps.IDGen,
			Logger:     deps.Logger,
		},
		Lifecycle: lifecycle,
		SubmitProject: commands.SubmitProjectUseCase{
			Challenges:  deps.Challenges,
			Submissions: deps.Submissions,
			Profiles:    deps.Profiles,
			Outbox:      deps.Outbox,
			Tx:          deps.Tx,
			Clock:       deps.Clock,
			IDGen:       deps.IDGen,
			Logger:      deps.Logger,
		},
		Reactions: commands.ReactionUseCase{
			Submissions: deps.Submissions,
			Reactions:   deps.Reactions,
			Challenges:  deps.Challenges,
			Outbox:      deps.Outbox,
			Tx:          deps.Tx,
			Clock:       deps.Clock,
			IDGen:       deps.IDGen,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		Achievements: awards,
		BadgeCatalog: commands.BadgeCatalogUseCase{
			Badges: deps.Badges,
			Clock:  deps.Clock,
			IDGen:  deps.IDGen,
			Logger: deps.Logger,
		},
		Profiles: profiles,
		Ranking:  ranking,
		ProfileQuery: queries.ProfileQueryUseCase{
			Profiles: deps.Profiles,
			Badges:   deps.Badges,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.OutboxBatchSize,
			Metrics:   deps.RelayMetrics,
			Logger:    deps.Logger,
		},
		AchievementConsumer: workers.AchievementConsumer{
			Subscriber:   deps.Subscriber,
			Dedup:        deps.Dedup,
			Facts:        achievementFacts{submissions: deps.Submissions, profiles: deps.Profiles},
			Achievements: awards,
			Rules:        achievements.DefaultRules(),
			Clock:        deps.Clock,
			DedupTTL:     deps.DedupTTL,
			Logger:       deps.Logger,
		},
		AccountConsumer: workers.AccountCreatedConsumer{
			Subscriber: deps.Subscriber,
			Dedup:      deps.Dedup,
			Profiles:   profiles,
			Clock:      deps.Clock,
			DedupTTL:   deps.DedupTTL,
			Logger:     deps.Logger,
		},
		Scheduler: workers.VotingWindowScheduler{
			Challenges: deps.Challenges,
			Lifecycle:  lifecycle,
			Clock:      deps.Clock,
			BatchSize:  deps.SchedulerBatchSize,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory store. Publisher and
// subscriber stay unset until the caller attaches a bus.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Challenges:  store,
		Submissions: store,
		Reactions:   store,
		Profiles:    store,
		Badges:      store,
		Outbox:      store,
		Dedup:       store,
		Tx:          store,
		Clock:       store,
		IDGen:       store,
		DedupTTL:    7 * 24 * time.Hour,
		Logger:      logger,
	})
	module.Store = store
	return module
}
