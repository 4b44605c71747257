package entities

import (
	"strings"
	"time"
)

type ChallengeStatus string

const (
	ChallengeStatusDraft     ChallengeStatus = "draft"
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusVoting    ChallengeStatus = "voting"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusArchived  ChallengeStatus = "archived"
)

const (
	DefaultXPReward = 50
	MaxWinners      = 3
)

// PrizeXP is indexed by place - 1.
var PrizeXP = [MaxWinners]int{200, 100, 50}

// Schedule holds the date-bound windows of a challenge. Submissions open at
// StartDate, voting runs from VotingStartDate until VotingEndDate.
type Schedule struct {
	StartDate       time.Time
	VotingStartDate time.Time
	VotingEndDate   time.Time
}

// Valid reports whether the windows are strictly ordered.
func (s Schedule) Valid() bool {
	if s.StartDate.IsZero() || s.VotingStartDate.IsZero() || s.VotingEndDate.IsZero() {
		return false
	}
	return s.VotingStartDate.After(s.StartDate) && s.VotingEndDate.After(s.VotingStartDate)
}

func (s Schedule) UTC() Schedule {
	return Schedule{
		StartDate:       s.StartDate.UTC(),
		VotingStartDate: s.VotingStartDate.UTC(),
		VotingEndDate:   s.VotingEndDate.UTC(),
	}
}

type Challenge struct {
	ChallengeID     string
	Title           string
	Status          ChallengeStatus
	Schedule        Schedule
	XPReward        int
	SubmissionCount int
	Winners         []string
	VotingClosedAt  time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EffectiveXPReward is the XP granted for a first submission.
func (c Challenge) EffectiveXPReward() int {
	if c.XPReward <= 0 {
		return DefaultXPReward
	}
	return c.XPReward
}

func (c Challenge) IsTerminal() bool {
	return c.Status == ChallengeStatusCompleted || c.Status == ChallengeStatusArchived
}

// AcceptsSubmissions is false once the challenge is completed or archived.
func (c Challenge) AcceptsSubmissions() bool {
	return !c.IsTerminal()
}

// CanStartVoting reports whether the status allows entering the voting state.
func (c Challenge) CanStartVoting() bool {
	return c.Status == ChallengeStatusDraft || c.Status == ChallengeStatusActive
}

// VotingClosed reports whether the ranking has been frozen. A closed
// challenge still sits in voting until every prize is paid, but it no
// longer takes votes.
func (c Challenge) VotingClosed() bool {
	return !c.VotingClosedAt.IsZero()
}

// AcceptsVotes is true only while voting is open and the ranking unfrozen.
func (c Challenge) AcceptsVotes() bool {
	return c.Status == ChallengeStatusVoting && !c.VotingClosed()
}

func (c Challenge) CanArchive() bool {
	return !c.IsTerminal()
}

func IsKnownChallengeStatus(status ChallengeStatus) bool {
	switch ChallengeStatus(strings.TrimSpace(string(status))) {
	case ChallengeStatusDraft,
		ChallengeStatusActive,
		ChallengeStatusVoting,
		ChallengeStatusCompleted,
		ChallengeStatusArchived:
		return true
	default:
		return false
	}
}
