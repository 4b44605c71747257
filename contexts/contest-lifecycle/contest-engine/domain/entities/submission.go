package entities

import (
	"slices"
	"time"
)

// SubmissionContent is the project payload. The engine only requires a name
// and HTML source; everything else is carried through untouched.
type SubmissionContent struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=5000"`
	HTMLCode    string `validate:"required"`
	CSSCode     string
	JSCode      string
}

type Submission struct {
	SubmissionID string
	ChallengeID  string
	AuthorID     string
	Content      SubmissionContent
	IsPublic     bool
	LikeCount    int
	VoteCount    int
	LikedBy      []string
	VotedBy      []string
	SubmittedAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s Submission) LikedByUser(userID string) bool {
	return slices.Contains(s.LikedBy, userID)
}

func (s Submission) VotedByUser(userID string) bool {
	return slices.Contains(s.VotedBy, userID)
}

// RankCursor is the keyset position of the last submission yielded by a
// ranking page.
type RankCursor struct {
	VoteCount    int
	SubmittedAt  time.Time
	SubmissionID string
}

func CursorOf(s Submission) RankCursor {
	return RankCursor{
		VoteCount:    s.VoteCount,
		SubmittedAt:  s.SubmittedAt,
		SubmissionID: s.SubmissionID,
	}
}

// RanksBefore orders by vote count desc, submitted at asc, id asc.
func RanksBefore(a, b Submission) bool {
	if a.VoteCount != b.VoteCount {
		return a.VoteCount > b.VoteCount
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.SubmissionID < b.SubmissionID
}

// After reports whether s ranks strictly after the cursor position.
func (c RankCursor) After(s Submission) bool {
	return RanksBefore(Submission{
		SubmissionID: c.SubmissionID,
		VoteCount:    c.VoteCount,
		SubmittedAt:  c.SubmittedAt,
	}, s)
}
