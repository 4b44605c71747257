package entities

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduleValidRequiresStrictOrder(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, Schedule{
		StartDate:       start,
		VotingStartDate: start.Add(24 * time.Hour),
		VotingEndDate:   start.Add(48 * time.Hour),
	}.Valid())
	require.False(t, Schedule{
		StartDate:       start,
		VotingStartDate: start,
		VotingEndDate:   start.Add(48 * time.Hour),
	}.Valid())
	require.False(t, Schedule{
		StartDate:       start,
		VotingStartDate: start.Add(48 * time.Hour),
		VotingEndDate:   start.Add(24 * time.Hour),
	}.Valid())
	require.False(t, Schedule{StartDate: start}.Valid())
}

func TestChallengeStatusPredicates(t *testing.T) {
	cases := []struct {
		status         ChallengeStatus
		acceptsSubmits bool
		canStartVoting bool
		canArchive     bool
	}{
		{ChallengeStatusDraft, true, true, true},
		{ChallengeStatusActive, true, true, true},
		{ChallengeStatusVoting, true, false, true},
		{ChallengeStatusCompleted, false, false, false},
		{ChallengeStatusArchived, false, false, false},
	}
	for _, tc := range cases {
		challenge := Challenge{Status: tc.status}
		require.Equal(t, tc.acceptsSubmits, challenge.AcceptsSubmissions(), tc.status)
		require.Equal(t, tc.canStartVoting, challenge.CanStartVoting(), tc.status)
		require.Equal(t, tc.canArchive, challenge.CanArchive(), tc.status)
		require.True(t, IsKnownChallengeStatus(tc.status))
	}
	require.False(t, IsKnownChallengeStatus("paused"))
}

func TestEffectiveXPRewardDefaults(t *testing.T) {
	require.Equal(t, DefaultXPReward, Challenge{}.EffectiveXPReward())
	require.Equal(t, 120, Challenge{XPReward: 120}.EffectiveXPReward())
}

func TestRanksBeforeBreaksTiesDeterministically(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []Submission{
		{SubmissionID: "d", VoteCount: 1, SubmittedAt: base},
		{SubmissionID: "b", VoteCount: 5, SubmittedAt: base.Add(time.Minute)},
		{SubmissionID: "c", VoteCount: 3, SubmittedAt: base},
		{SubmissionID: "a", VoteCount: 5, SubmittedAt: base},
		{SubmissionID: "e", VoteCount: 5, SubmittedAt: base},
	}
	sort.Slice(items, func(i, j int) bool { return RanksBefore(items[i], items[j]) })

	order := make([]string, 0, len(items))
	for _, item := range items {
		order = append(order, item.SubmissionID)
	}
	require.Equal(t, []string{"a", "e", "b", "c", "d"}, order)
}

func TestRankCursorAfter(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pivot := Submission{SubmissionID: "m", VoteCount: 4, SubmittedAt: base}
	cursor := CursorOf(pivot)

	require.False(t, cursor.After(pivot))
	require.True(t, cursor.After(Submission{SubmissionID: "z", VoteCount: 3, SubmittedAt: base}))
	require.True(t, cursor.After(Submission{SubmissionID: "a", VoteCount: 4, SubmittedAt: base.Add(time.Second)}))
	require.True(t, cursor.After(Submission{SubmissionID: "n", VoteCount: 4, SubmittedAt: base}))
	require.False(t, cursor.After(Submission{SubmissionID: "l", VoteCount: 4, SubmittedAt: base}))
	require.False(t, cursor.After(Submission{SubmissionID: "z", VoteCount: 9, SubmittedAt: base}))
}

func TestMembershipHelpers(t *testing.T) {
	submission := Submission{LikedBy: []string{"u1"}, VotedBy: []string{"u2"}}
	require.True(t, submission.LikedByUser("u1"))
	require.False(t, submission.LikedByUser("u2"))
	require.True(t, submission.VotedByUser("u2"))

	profile := Profile{BadgeSlugs: []string{BadgeSlugJuniorStar}, CompletedChallenges: []string{"c1"}}
	require.True(t, profile.HasBadge(BadgeSlugJuniorStar))
	require.False(t, profile.HasBadge(BadgeSlugFirstProject))
	require.True(t, profile.HasCompleted("c1"))
}

func TestDefaultBadgeCatalogCoversRuleSlugs(t *testing.T) {
	slugs := map[string]Badge{}
	for _, badge := range DefaultBadgeCatalog() {
		require.NotEmpty(t, badge.Name)
		slugs[badge.Slug] = badge
	}
	require.Len(t, slugs, 3)
	require.Contains(t, slugs, BadgeSlugFirstProject)
	require.Contains(t, slugs, BadgeSlugFirstChallengeSubmit)
	require.Equal(t, BadgeRarityRare, slugs[BadgeSlugJuniorStar].Rarity)
}

func TestAcceptsVotesStopsOnceVotingIsClosed(t *testing.T) {
	open := Challenge{Status: ChallengeStatusVoting}
	require.True(t, open.AcceptsVotes())
	require.False(t, open.VotingClosed())

	closed := Challenge{Status: ChallengeStatusVoting, VotingClosedAt: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}
	require.True(t, closed.VotingClosed())
	require.False(t, closed.AcceptsVotes())
	require.False(t, Challenge{Status: ChallengeStatusActive}.AcceptsVotes())
}
