package events

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned event shape written to the outbox and carried by
// the event bus. Data holds the JSON payload of the concrete event type.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Event types produced and consumed by the contest engine.
const (
	TypeChallengeCreated        = "challenge.created"
	TypeChallengeActivated      = "challenge.activated"
	TypeChallengeScheduleUpdate = "challenge.schedule_updated"
	TypeChallengeVotingStarted  = "challenge.voting_started"
	TypeChallengeCompleted      = "challenge.completed"
	TypeChallengeArchived       = "challenge.archived"
	TypeSubmissionCreated       = "submission.created"
	TypeChallengeSubmissionMade = "challenge.submission_made"
	TypeSubmissionVoted         = "submission.voted"
	TypeLikeCountChanged        = "submission.like_count_changed"
	TypeBadgeAwarded            = "badge.awarded"
	TypeProfileCreated          = "profile.created"
	TypeAccountCreated          = "account.created"
)
