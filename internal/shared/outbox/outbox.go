package outbox

import "time"

// Message is an outbox row persisted inside the same DB transaction as the
// state change it describes. Payload is the JSON encoded events.Envelope.
type Message struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

const (
	StatusPending   = "pending"
	StatusPublished = "published"
)
