// Package contestengine implements the contest lifecycle and achievement
// engine of the devquest platform.
//
// The module owns the challenge state machine (draft, active, voting,
// completed, archived), project submission with first-completion XP, likes
// and votes with atomically maintained counters, deterministic winner
// selection and prize payout, and badge awards driven by domain events.
// Every state change writes an outbox event in the same transaction; a relay
// publishes those events and idempotent consumers react to them.
package contestengine
