package workers

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

const defaultDedupTTL = 7 * 24 * time.Hour

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// dedupKey scopes event ids per consumer group so two groups reading the same
// topic do not shadow each other.
func dedupKey(group string, event ports.EventEnvelope) string {
	return group + ":" + event.EventID
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}

func resolveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultDedupTTL
	}
	return ttl
}
