package entities

import (
	"slices"
	"time"
)

type Profile struct {
	ProfileID           string
	UserID              string
	Username            string
	TotalXP             int
	ChallengesCompleted int
	ChallengesWon       int
	BadgeSlugs          []string
	CompletedChallenges []string
	Bio                 string
	GithubUser          string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (p Profile) HasBadge(slug string) bool {
	return slices.Contains(p.BadgeSlugs, slug)
}

func (p Profile) HasCompleted(challengeID string) bool {
	return slices.Contains(p.CompletedChallenges, challengeID)
}

type ProfileDetails struct {
	Bio        string `validate:"max=500"`
	GithubUser string `validate:"omitempty,max=39,github_username"`
}

// Prize is the ledger row of one placed winner. It is unique per
// (ChallengeID, Place) so replays of the reward cascade are no-ops.
type Prize struct {
	ChallengeID  string
	Place        int
	SubmissionID string
	UserID       string
	XP           int
	AwardedAt    time.Time
}
