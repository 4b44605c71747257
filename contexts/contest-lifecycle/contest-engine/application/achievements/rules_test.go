package achievements

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/internal/shared/events"

	"github.com/stretchr/testify/require"
)

type stubFacts struct {
	submissions map[string]int
	maxLikes    map[string]int
	profiles    map[string]entities.Profile
	err         error
}

func (s stubFacts) CountSubmissionsByAuthor(_ context.Context, authorID string) (int, error) {
	return s.submissions[authorID], s.err
}

func (s stubFacts) MaxLikeCountByAuthor(_ context.Context, authorID string) (int, error) {
	return s.maxLikes[authorID], s.err
}

func (s stubFacts) GetProfileByUser(_ context.Context, userID string) (entities.Profile, error) {
	if s.err != nil {
		return entities.Profile{}, s.err
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return entities.Profile{}, domainerrors.ErrProfileNotFound
	}
	return profile, nil
}

func ruleFor(t *testing.T, eventType string) Rule {
	t.Helper()
	rules := RulesFor(DefaultRules(), eventType)
	require.Len(t, rules, 1)
	return rules[0]
}

func payload(t *testing.T, data map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return raw
}

func TestDefaultRulesCoverBadgeCatalog(t *testing.T) {
	rules := DefaultRules()
	slugs := map[string]bool{}
	for _, rule := range rules {
		slugs[rule.BadgeSlug] = true
	}
	for _, badge := range entities.DefaultBadgeCatalog() {
		require.True(t, slugs[badge.Slug], badge.Slug)
	}
	require.ElementsMatch(t, []string{
		events.TypeSubmissionCreated,
		events.TypeChallengeSubmissionMade,
		events.TypeLikeCountChanged,
	}, EventTypes(rules))
	require.Empty(t, RulesFor(rules, events.TypeSubmissionVoted))
}

func TestFirstProjectRule(t *testing.T) {
	rule := ruleFor(t, events.TypeSubmissionCreated)
	require.Equal(t, entities.BadgeSlugFirstProject, rule.BadgeSlug)
	facts := stubFacts{submissions: map[string]int{"u1": 1, "u2": 0}}

	decision, err := rule.Evaluate(context.Background(), facts, payload(t, map[string]any{"author_id": "u1"}))
	require.NoError(t, err)
	require.Equal(t, Decision{UserID: "u1", Eligible: true}, decision)

	decision, err = rule.Evaluate(context.Background(), facts, payload(t, map[string]any{"author_id": "u2"}))
	require.NoError(t, err)
	require.False(t, decision.Eligible)

	decision, err = rule.Evaluate(context.Background(), facts, payload(t, map[string]any{}))
	require.NoError(t, err)
	require.Empty(t, decision.UserID)
}

func TestFirstChallengeSubmitRule(t *testing.T) {
	rule := ruleFor(t, events.TypeChallengeSubmissionMade)
	facts := stubFacts{profiles: map[string]entities.Profile{
		"veteran": {UserID: "veteran", ChallengesCompleted: 2},
		"fresh":   {UserID: "fresh"},
	}}

	decision, err := rule.Evaluate(context.Background(), facts, payload(t, map[string]any{"user_id": "veteran"}))
	require.NoError(t, err)
	require.True(t, decision.Eligible)

	decision, err = rule.Evaluate(context.Background(), facts, payload(t, map[string]any{"user_id": "fresh"}))
	require.NoError(t, err)
	require.False(t, decision.Eligible)

	decision, err = rule.Evaluate(context.Background(), facts, payload(t, map[string]any{"user_id": "ghost"}))
	require.NoError(t, err)
	require.Equal(t, Decision{UserID: "ghost"}, decision)
}

func TestJuniorStarRuleUsesLikeThreshold(t *testing.T) {
	rule := ruleFor(t, events.TypeLikeCountChanged)
	facts := stubFacts{maxLikes: map[string]int{"star": JuniorStarLikeThreshold, "rising": JuniorStarLikeThreshold - 1}}

	decision, err := rule.Evaluate(context.Background(), facts, payload(t, map[string]any{"author_id": "star"}))
	require.NoError(t, err)
	require.True(t, decision.Eligible)

	decision, err = rule.Evaluate(context.Background(), facts, payload(t, map[string]any{"author_id": "rising"}))
	require.NoError(t, err)
	require.False(t, decision.Eligible)
}

func TestRulesPropagateFactErrors(t *testing.T) {
	failure := errors.New("facts unavailable")
	facts := stubFacts{err: failure}
	for _, rule := range DefaultRules() {
		_, err := rule.Evaluate(context.Background(), facts, payload(t, map[string]any{"author_id": "u1", "user_id": "u1"}))
		require.ErrorIs(t, err, failure, rule.Name)
	}

	_, err := DefaultRules()[0].Evaluate(context.Background(), stubFacts{}, json.RawMessage(`{"author_id":`))
	require.Error(t, err)
}
