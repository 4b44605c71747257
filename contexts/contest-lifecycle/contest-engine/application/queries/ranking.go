package queries

import (
	"context"
	"iter"
	"strings"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"
)

const defaultRankPageSize = 50

// RankingUseCase orders a challenge's submissions by vote count desc, then by
// earliest submission time, then by submission id.
type RankingUseCase struct {
	Submissions ports.SubmissionRepository
	PageSize    int
}

// Rank returns a lazy sequence over the ranked submissions. Pages are loaded
// on demand with a keyset cursor, and every range over the sequence starts
// from the top again. A storage error is yielded once and ends the sequence.
func (uc RankingUseCase) Rank(ctx context.Context, challengeID string) iter.Seq2[entities.Submission, error] {
	challengeID = strings.TrimSpace(challengeID)
	pageSize := uc.PageSize
	if pageSize <= 0 {
		pageSize = defaultRankPageSize
	}
	return func(yield func(entities.Submission, error) bool) {
		var cursor *entities.RankCursor
		for {
			page, err := uc.Submissions.ListRankedSubmissions(ctx, challengeID, cursor, pageSize)
			if err != nil {
				yield(entities.Submission{}, err)
				return
			}
			for _, item := range page {
				if !yield(item, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			next := entities.CursorOf(page[len(page)-1])
			cursor = &next
		}
	}
}

// Top collects at most n leading entries of Rank.
func (uc RankingUseCase) Top(ctx context.Context, challengeID string, n int) ([]entities.Submission, error) {
	if n <= 0 {
		return nil, nil
	}
	items := make([]entities.Submission, 0, n)
	for item, err := range uc.Rank(ctx, challengeID) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if len(items) == n {
			break
		}
	}
	return items, nil
}
