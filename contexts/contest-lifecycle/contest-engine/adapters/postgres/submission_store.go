package postgresadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetSubmission(ctx context.Context, submissionID string) (entities.Submission, error) {
	row, err := r.loadSubmission(ctx, submissionID, false)
	if err != nil {
		return entities.Submission{}, err
	}
	return r.withMembers(ctx, row.toEntity())
}

func (r *Repository) FindSubmissionByAuthor(
	ctx context.Context,
	challengeID string,
	authorID string,
) (entities.Submission, bool, error) {
	var row submissionModel
	err := r.conn(ctx).
		Where("challenge_id = ?", strings.TrimSpace(challengeID)).
		Where("author_id = ?", strings.TrimSpace(authorID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Submission{}, false, nil
		}
		return entities.Submission{}, false, r.logError("contest_repo_find_submission_by_author_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
			"author_id", strings.TrimSpace(authorID),
		)
	}
	submission, err := r.withMembers(ctx, row.toEntity())
	if err != nil {
		return entities.Submission{}, false, err
	}
	return submission, true, nil
}

// CreateSubmission inserts without raising a unique violation so a duplicate
// does not abort the surrounding transaction.
func (r *Repository) CreateSubmission(ctx context.Context, submission entities.Submission) error {
	row := submissionModelFromEntity(submission)
	create := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("contest_repo_create_submission_failed", create.Error,
			"submission_id", row.SubmissionID,
			"challenge_id", row.ChallengeID,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) UpdateSubmissionContent(
	ctx context.Context,
	submissionID string,
	content entities.SubmissionContent,
	isPublic bool,
	submittedAt time.Time,
) (entities.Submission, error) {
	result := r.conn(ctx).
		Model(&submissionModel{}).
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		Updates(map[string]any{
			"name":         content.Name,
			"description":  content.Description,
			"html_code":    content.HTMLCode,
			"css_code":     content.CSSCode,
			"js_code":      content.JSCode,
			"is_public":    isPublic,
			"submitted_at": submittedAt.UTC(),
			"updated_at":   submittedAt.UTC(),
		})
	if result.Error != nil {
		return entities.Submission{}, r.logError("contest_repo_update_submission_failed", result.Error,
			"submission_id", strings.TrimSpace(submissionID),
		)
	}
	if result.RowsAffected == 0 {
		return entities.Submission{}, domainerrors.ErrSubmissionNotFound
	}
	return r.GetSubmission(ctx, submissionID)
}

func (r *Repository) ListSubmissionIDsByChallenge(
	ctx context.Context,
	challengeID string,
	onlyPrivate bool,
) ([]string, error) {
	query := r.conn(ctx).
		Model(&submissionModel{}).
		Where("challenge_id = ?", strings.TrimSpace(challengeID))
	if onlyPrivate {
		query = query.Where("is_public = ?", false)
	}
	var ids []string
	if err := query.Order("submission_id ASC").Pluck("submission_id", &ids).Error; err != nil {
		return nil, r.logError("contest_repo_list_submission_ids_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	return ids, nil
}

// OpenSubmissionForVoting publishes the submission and clears every vote it
// carries. Likes are left untouched.
func (r *Repository) OpenSubmissionForVoting(ctx context.Context, submissionID string, updatedAt time.Time) error {
	submissionID = strings.TrimSpace(submissionID)
	return r.WithinTx(ctx, func(ctx context.Context) error {
		result := r.conn(ctx).
			Model(&submissionModel{}).
			Where("submission_id = ?", submissionID).
			Updates(map[string]any{
				"is_public":  true,
				"vote_count": 0,
				"updated_at": updatedAt.UTC(),
			})
		if result.Error != nil {
			return r.logError("contest_repo_open_submission_failed", result.Error,
				"submission_id", submissionID,
			)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrSubmissionNotFound
		}
		if err := r.conn(ctx).
			Where("submission_id = ?", submissionID).
			Delete(&submissionVoteModel{}).Error; err != nil {
			return r.logError("contest_repo_clear_votes_failed", err,
				"submission_id", submissionID,
			)
		}
		return nil
	})
}

// ListRankedSubmissions returns one keyset page in ranking order. Rows carry
// counters only; membership lists are left empty.
func (r *Repository) ListRankedSubmissions(
	ctx context.Context,
	challengeID string,
	after *entities.RankCursor,
	limit int,
) ([]entities.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.conn(ctx).Where("challenge_id = ?", strings.TrimSpace(challengeID))
	if after != nil {
		submittedAt := after.SubmittedAt.UTC()
		query = query.Where(
			"(vote_count < ?) OR (vote_count = ? AND submitted_at > ?) OR (vote_count = ? AND submitted_at = ? AND submission_id > ?)",
			after.VoteCount,
			after.VoteCount, submittedAt,
			after.VoteCount, submittedAt, after.SubmissionID,
		)
	}
	var rows []submissionModel
	if err := query.
		Order("vote_count DESC").
		Order("submitted_at ASC").
		Order("submission_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("contest_repo_list_ranked_submissions_failed", err,
			"challenge_id", strings.TrimSpace(challengeID),
		)
	}
	items := make([]entities.Submission, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountSubmissionsByAuthor(ctx context.Context, authorID string) (int, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&submissionModel{}).
		Where("author_id = ?", strings.TrimSpace(authorID)).
		Count(&count).Error; err != nil {
		return 0, r.logError("contest_repo_count_submissions_failed", err,
			"author_id", strings.TrimSpace(authorID),
		)
	}
	return int(count), nil
}

func (r *Repository) MaxLikeCountByAuthor(ctx context.Context, authorID string) (int, error) {
	var maxLikes int64
	if err := r.conn(ctx).
		Model(&submissionModel{}).
		Select("COALESCE(MAX(like_count), 0)").
		Where("author_id = ?", strings.TrimSpace(authorID)).
		Scan(&maxLikes).Error; err != nil {
		return 0, r.logError("contest_repo_max_like_count_failed", err,
			"author_id", strings.TrimSpace(authorID),
		)
	}
	return int(maxLikes), nil
}

func (r *Repository) AddLike(
	ctx context.Context,
	submissionID string,
	userID string,
	at time.Time,
) (entities.Submission, bool, error) {
	var (
		submission entities.Submission
		changed    bool
	)
	err := r.WithinTx(ctx, func(ctx context.Context) error {
		row, err := r.loadSubmission(ctx, submissionID, true)
		if err != nil {
			return err
		}
		changed, err = r.insertLike(ctx, row.SubmissionID, userID, at)
		if err != nil {
			return err
		}
		submission, err = r.GetSubmission(ctx, row.SubmissionID)
		return err
	})
	if err != nil {
		return entities.Submission{}, false, err
	}
	return submission, changed, nil
}

func (r *Repository) RemoveLike(
	ctx context.Context,
	submissionID string,
	userID string,
	at time.Time,
) (entities.Submission, bool, error) {
	var (
		submission entities.Submission
		changed    bool
	)
	err := r.WithinTx(ctx, func(ctx context.Context) error {
		row, err := r.loadSubmission(ctx, submissionID, true)
		if err != nil {
			return err
		}
		deleted := r.conn(ctx).
			Where("submission_id = ? AND user_id = ?", row.SubmissionID, strings.TrimSpace(userID)).
			Delete(&submissionLikeModel{})
		if deleted.Error != nil {
			return r.logError("contest_repo_remove_like_failed", deleted.Error,
				"submission_id", row.SubmissionID,
				"user_id", strings.TrimSpace(userID),
			)
		}
		if deleted.RowsAffected > 0 {
			changed = true
			if err := r.bumpCounter(ctx, row.SubmissionID, "like_count", -1, at); err != nil {
				return err
			}
		}
		submission, err = r.GetSubmission(ctx, row.SubmissionID)
		return err
	})
	if err != nil {
		return entities.Submission{}, false, err
	}
	return submission, changed, nil
}

// RecordVote adds the vote and, when missing, the voter's like in one
// transaction. The challenge row is share-locked while it is open for
// votes, so a concurrent close waits for this vote or makes it fail.
func (r *Repository) RecordVote(
	ctx context.Context,
	submissionID string,
	userID string,
	at time.Time,
) (entities.Submission, bool, error) {
	var (
		submission entities.Submission
		likeAdded  bool
	)
	userID = strings.TrimSpace(userID)
	err := r.WithinTx(ctx, func(ctx context.Context) error {
		row, err := r.loadSubmission(ctx, submissionID, true)
		if err != nil {
			return err
		}
		if err := r.lockOpenForVotes(ctx, row.ChallengeID); err != nil {
			return err
		}
		vote := submissionVoteModel{
			SubmissionID: row.SubmissionID,
			UserID:       userID,
			CreatedAt:    at.UTC(),
		}
		create := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&vote)
		if create.Error != nil {
			return r.logError("contest_repo_record_vote_failed", create.Error,
				"submission_id", row.SubmissionID,
				"user_id", userID,
			)
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrDuplicateVote
		}
		if err := r.bumpCounter(ctx, row.SubmissionID, "vote_count", 1, at); err != nil {
			return err
		}
		likeAdded, err = r.insertLike(ctx, row.SubmissionID, userID, at)
		if err != nil {
			return err
		}
		submission, err = r.GetSubmission(ctx, row.SubmissionID)
		return err
	})
	if err != nil {
		return entities.Submission{}, false, err
	}
	return submission, likeAdded, nil
}

func (r *Repository) lockOpenForVotes(ctx context.Context, challengeID string) error {
	var row challengeModel
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("challenge_id = ?", challengeID).
		Where("status = ?", string(entities.ChallengeStatusVoting)).
		Where("voting_closed_at IS NULL").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrInvalidState
		}
		return r.logError("contest_repo_lock_challenge_failed", err,
			"challenge_id", challengeID,
		)
	}
	return nil
}

func (r *Repository) insertLike(ctx context.Context, submissionID string, userID string, at time.Time) (bool, error) {
	like := submissionLikeModel{
		SubmissionID: submissionID,
		UserID:       strings.TrimSpace(userID),
		CreatedAt:    at.UTC(),
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if create.Error != nil {
		return false, r.logError("contest_repo_add_like_failed", create.Error,
			"submission_id", submissionID,
			"user_id", like.UserID,
		)
	}
	if create.RowsAffected == 0 {
		return false, nil
	}
	if err := r.bumpCounter(ctx, submissionID, "like_count", 1, at); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) bumpCounter(
	ctx context.Context,
	submissionID string,
	column string,
	delta int,
	at time.Time,
) error {
	if err := r.conn(ctx).
		Model(&submissionModel{}).
		Where("submission_id = ?", submissionID).
		Updates(map[string]any{
			column:       gorm.Expr(column+" + ?", delta),
			"updated_at": at.UTC(),
		}).Error; err != nil {
		return r.logError("contest_repo_bump_counter_failed", err,
			"submission_id", submissionID,
			"column", column,
		)
	}
	return nil
}

func (r *Repository) loadSubmission(ctx context.Context, submissionID string, lock bool) (submissionModel, error) {
	query := r.conn(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row submissionModel
	err := query.
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return submissionModel{}, domainerrors.ErrSubmissionNotFound
		}
		return submissionModel{}, r.logError("contest_repo_get_submission_failed", err,
			"submission_id", strings.TrimSpace(submissionID),
		)
	}
	return row, nil
}

func (r *Repository) withMembers(ctx context.Context, submission entities.Submission) (entities.Submission, error) {
	var likedBy []string
	if err := r.conn(ctx).
		Model(&submissionLikeModel{}).
		Where("submission_id = ?", submission.SubmissionID).
		Order("user_id ASC").
		Pluck("user_id", &likedBy).Error; err != nil {
		return entities.Submission{}, r.logError("contest_repo_list_likes_failed", err,
			"submission_id", submission.SubmissionID,
		)
	}
	var votedBy []string
	if err := r.conn(ctx).
		Model(&submissionVoteModel{}).
		Where("submission_id = ?", submission.SubmissionID).
		Order("user_id ASC").
		Pluck("user_id", &votedBy).Error; err != nil {
		return entities.Submission{}, r.logError("contest_repo_list_votes_failed", err,
			"submission_id", submission.SubmissionID,
		)
	}
	submission.LikedBy = likedBy
	submission.VotedBy = votedBy
	return submission, nil
}
