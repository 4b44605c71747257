package contestengine

import (
	"context"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

type achievementFacts struct {
	submissions ports.SubmissionRepository
	profiles    ports.ProfileRepository
}

func (f achievementFacts) CountSubmissionsByAuthor(ctx context.Context, authorID string) (int, error) {
	return f.submissions.CountSubmissionsByAuthor(ctx, authorID)
}

func (f achievementFacts) MaxLikeCountByAuthor(ctx context.Context, authorID string) (int, error) {
	return f.submissions.MaxLikeCountByAuthor(ctx, authorID)
}

func (f achievementFacts) GetProfileByUser(ctx context.Context, userID string) (entities.Profile, error) {
	return f.profiles.GetProfileByUser(ctx, userID)
}
