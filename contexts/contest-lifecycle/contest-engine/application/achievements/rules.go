// Package achievements holds the badge rule table. Each rule maps one event
// type to a badge and decides eligibility from stored facts rather than from
// the event payload, so a late or repeated delivery reaches the same answer.
package achievements

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/internal/shared/events"
)

const JuniorStarLikeThreshold = 3

// Facts is the read model rules evaluate against.
type Facts interface {
	CountSubmissionsByAuthor(ctx context.Context, authorID string) (int, error)
	MaxLikeCountByAuthor(ctx context.Context, authorID string) (int, error)
	GetProfileByUser(ctx context.Context, userID string) (entities.Profile, error)
}

type Decision struct {
	UserID   string
	Eligible bool
}

type Rule struct {
	Name      string
	EventType string
	BadgeSlug string
	Evaluate  func(ctx context.Context, facts Facts, data json.RawMessage) (Decision, error)
}

func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "first published project",
			EventType: events.TypeSubmissionCreated,
			BadgeSlug: entities.BadgeSlugFirstProject,
			Evaluate:  evaluateFirstProject,
		},
		{
			Name:      "first challenge submission",
			EventType: events.TypeChallengeSubmissionMade,
			BadgeSlug: entities.BadgeSlugFirstChallengeSubmit,
			Evaluate:  evaluateFirstChallengeSubmit,
		},
		{
			Name:      "liked project",
			EventType: events.TypeLikeCountChanged,
			BadgeSlug: entities.BadgeSlugJuniorStar,
			Evaluate:  evaluateJuniorStar,
		},
	}
}

// RulesFor returns the rules triggered by eventType, in table order.
func RulesFor(rules []Rule, eventType string) []Rule {
	matched := make([]Rule, 0, 1)
	for _, rule := range rules {
		if rule.EventType == eventType {
			matched = append(matched, rule)
		}
	}
	return matched
}

// EventTypes lists the distinct event types of the table.
func EventTypes(rules []Rule) []string {
	seen := make(map[string]struct{}, len(rules))
	types := make([]string, 0, len(rules))
	for _, rule := range rules {
		if _, ok := seen[rule.EventType]; ok {
			continue
		}
		seen[rule.EventType] = struct{}{}
		types = append(types, rule.EventType)
	}
	return types
}

func evaluateFirstProject(ctx context.Context, facts Facts, data json.RawMessage) (Decision, error) {
	var payload struct {
		AuthorID string `json:"author_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Decision{}, err
	}
	authorID := strings.TrimSpace(payload.AuthorID)
	if authorID == "" {
		return Decision{}, nil
	}
	count, err := facts.CountSubmissionsByAuthor(ctx, authorID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{UserID: authorID, Eligible: count >= 1}, nil
}

func evaluateFirstChallengeSubmit(ctx context.Context, facts Facts, data json.RawMessage) (Decision, error) {
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Decision{}, err
	}
	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		return Decision{}, nil
	}
	profile, err := facts.GetProfileByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return Decision{UserID: userID}, nil
		}
		return Decision{}, err
	}
	return Decision{UserID: userID, Eligible: profile.ChallengesCompleted >= 1}, nil
}

func evaluateJuniorStar(ctx context.Context, facts Facts, data json.RawMessage) (Decision, error) {
	var payload struct {
		AuthorID string `json:"author_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Decision{}, err
	}
	authorID := strings.TrimSpace(payload.AuthorID)
	if authorID == "" {
		return Decision{}, nil
	}
	maxLikes, err := facts.MaxLikeCountByAuthor(ctx, authorID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{UserID: authorID, Eligible: maxLikes >= JuniorStarLikeThreshold}, nil
}
