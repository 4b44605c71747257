package ports

import (
	"context"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	"devquest/internal/shared/events"
	"devquest/internal/shared/outbox"
)

type EventEnvelope = events.Envelope
type OutboxMessage = outbox.Message

// ChallengeTransition is a compare-and-set status change. The repository
// applies it only while the stored status is one of From.
type ChallengeTransition struct {
	ChallengeID string
	From        []entities.ChallengeStatus
	To          entities.ChallengeStatus
	Winners     []string
	UpdatedAt   time.Time
}

type ChallengeRepository interface {
	CreateChallenge(ctx context.Context, challenge entities.Challenge) error
	GetChallenge(ctx context.Context, challengeID string) (entities.Challenge, error)
	// GetChallengeForUpdate locks the challenge for the rest of the
	// surrounding transaction.
	GetChallengeForUpdate(ctx context.Context, challengeID string) (entities.Challenge, error)
	UpdateChallengeSchedule(
		ctx context.Context,
		challengeID string,
		schedule entities.Schedule,
		updatedAt time.Time,
	) (entities.Challenge, error)
	TransitionChallenge(ctx context.Context, transition ChallengeTransition) (entities.Challenge, error)
	// CloseVoting freezes the ranked winners of a voting challenge and stops
	// it taking votes. It writes only while the challenge is in voting and
	// not yet closed; a closed challenge is returned as stored so replays
	// see the first freeze.
	CloseVoting(
		ctx context.Context,
		challengeID string,
		winners []string,
		closedAt time.Time,
	) (entities.Challenge, error)
	IncrementSubmissionCount(ctx context.Context, challengeID string, delta int) error
	ListChallengesDue(
		ctx context.Context,
		status entities.ChallengeStatus,
		dueField DueField,
		now time.Time,
		limit int,
	) ([]entities.Challenge, error)
}

type DueField string

const (
	DueVotingStart DueField = "voting_start_date"
	DueVotingEnd   DueField = "voting_end_date"
)

type SubmissionRepository interface {
	GetSubmission(ctx context.Context, submissionID string) (entities.Submission, error)
	FindSubmissionByAuthor(ctx context.Context, challengeID string, authorID string) (entities.Submission, bool, error)
	// CreateSubmission returns ErrConflict when the author already holds a
	// submission for the challenge.
	CreateSubmission(ctx context.Context, submission entities.Submission) error
	UpdateSubmissionContent(
		ctx context.Context,
		submissionID string,
		content entities.SubmissionContent,
		isPublic bool,
		submittedAt time.Time,
	) (entities.Submission, error)
	ListSubmissionIDsByChallenge(ctx context.Context, challengeID string, onlyPrivate bool) ([]string, error)
	// OpenSubmissionForVoting publishes the submission and clears its votes.
	OpenSubmissionForVoting(ctx context.Context, submissionID string, updatedAt time.Time) error
	ListRankedSubmissions(
		ctx context.Context,
		challengeID string,
		after *entities.RankCursor,
		limit int,
	) ([]entities.Submission, error)
	CountSubmissionsByAuthor(ctx context.Context, authorID string) (int, error)
	MaxLikeCountByAuthor(ctx context.Context, authorID string) (int, error)
}

type ReactionRepository interface {
	// AddLike and RemoveLike report whether membership changed.
	AddLike(ctx context.Context, submissionID string, userID string, at time.Time) (entities.Submission, bool, error)
	RemoveLike(ctx context.Context, submissionID string, userID string, at time.Time) (entities.Submission, bool, error)
	// RecordVote adds the vote and its implied like atomically. It returns
	// ErrDuplicateVote when the user already voted, ErrInvalidState when the
	// challenge no longer accepts votes, and reports whether the like
	// membership was newly added.
	RecordVote(ctx context.Context, submissionID string, userID string, at time.Time) (entities.Submission, bool, error)
}

type ProfileRepository interface {
	// EnsureProfile creates the profile when missing and reports whether it
	// did so. Existing profiles are returned untouched.
	EnsureProfile(ctx context.Context, profile entities.Profile) (entities.Profile, bool, error)
	GetProfileByUser(ctx context.Context, userID string) (entities.Profile, error)
	UpdateProfileDetails(
		ctx context.Context,
		userID string,
		details entities.ProfileDetails,
		updatedAt time.Time,
	) (entities.Profile, error)
	// CompleteChallenge inserts the challenge into the completed set and, only
	// when the insert happened, increments counters and XP.
	CompleteChallenge(
		ctx context.Context,
		userID string,
		challengeID string,
		xp int,
		at time.Time,
	) (entities.Profile, bool, error)
	// AwardPrize records the ledger row and credits the winner once per
	// (challenge, place).
	AwardPrize(ctx context.Context, prize entities.Prize) (bool, error)
}

type BadgeRepository interface {
	UpsertBadge(ctx context.Context, badge entities.Badge) (entities.Badge, bool, error)
	GetBadgeBySlug(ctx context.Context, slug string) (entities.Badge, error)
	ListBadgesBySlugs(ctx context.Context, slugs []string) ([]entities.Badge, error)
	// LinkBadge is a conditional insert keyed by (profile, badge).
	LinkBadge(ctx context.Context, award entities.BadgeAward) (bool, error)
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	OutboxWriter
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventDedupStore interface {
	// ReserveEvent treats reservations that expired before reservedAt as free.
	ReserveEvent(
		ctx context.Context,
		eventID string,
		payloadHash string,
		reservedAt time.Time,
		expiresAt time.Time,
	) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// Metrics receives domain counters. A nil Metrics is valid in use cases.
type Metrics interface {
	ObserveTransition(from string, to string)
	ObserveReaction(kind string, outcome string)
	ObserveBadgeAward(slug string, outcome string)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
