package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
)

type challengeModel struct {
	ChallengeID     string     `gorm:"column:challenge_id;primaryKey"`
	Title           string     `gorm:"column:title"`
	Status          string     `gorm:"column:status;index:ix_challenges_status"`
	StartDate       time.Time  `gorm:"column:start_date"`
	VotingStartDate time.Time  `gorm:"column:voting_start_date"`
	VotingEndDate   time.Time  `gorm:"column:voting_end_date"`
	XPReward        int        `gorm:"column:xp_reward"`
	SubmissionCount int        `gorm:"column:submission_count"`
	Winners         string     `gorm:"column:winners"`
	VotingClosedAt  *time.Time `gorm:"column:voting_closed_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (challengeModel) TableName() string {
	return "challenges"
}

func challengeModelFromEntity(challenge entities.Challenge) challengeModel {
	schedule := challenge.Schedule.UTC()
	row := challengeModel{
		ChallengeID:     strings.TrimSpace(challenge.ChallengeID),
		Title:           strings.TrimSpace(challenge.Title),
		Status:          string(challenge.Status),
		StartDate:       schedule.StartDate,
		VotingStartDate: schedule.VotingStartDate,
		VotingEndDate:   schedule.VotingEndDate,
		XPReward:        challenge.XPReward,
		SubmissionCount: challenge.SubmissionCount,
		Winners:         encodeWinners(challenge.Winners),
		CreatedAt:       challenge.CreatedAt.UTC(),
		UpdatedAt:       challenge.UpdatedAt.UTC(),
	}
	if !challenge.VotingClosedAt.IsZero() {
		closedAt := challenge.VotingClosedAt.UTC()
		row.VotingClosedAt = &closedAt
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m challengeModel) toEntity() entities.Challenge {
	challenge := entities.Challenge{
		ChallengeID: m.ChallengeID,
		Title:       m.Title,
		Status:      entities.ChallengeStatus(m.Status),
		Schedule: entities.Schedule{
			StartDate:       m.StartDate.UTC(),
			VotingStartDate: m.VotingStartDate.UTC(),
			VotingEndDate:   m.VotingEndDate.UTC(),
		},
		XPReward:        m.XPReward,
		SubmissionCount: m.SubmissionCount,
		Winners:         decodeWinners(m.Winners),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	if m.VotingClosedAt != nil {
		challenge.VotingClosedAt = m.VotingClosedAt.UTC()
	}
	return challenge
}

type submissionModel struct {
	SubmissionID string    `gorm:"column:submission_id;primaryKey"`
	ChallengeID  string    `gorm:"column:challenge_id;uniqueIndex:ux_submissions_challenge_author"`
	AuthorID     string    `gorm:"column:author_id;uniqueIndex:ux_submissions_challenge_author;index:ix_submissions_author"`
	Name         string    `gorm:"column:name"`
	Description  string    `gorm:"column:description"`
	HTMLCode     string    `gorm:"column:html_code"`
	CSSCode      string    `gorm:"column:css_code"`
	JSCode       string    `gorm:"column:js_code"`
	IsPublic     bool      `gorm:"column:is_public"`
	LikeCount    int       `gorm:"column:like_count"`
	VoteCount    int       `gorm:"column:vote_count"`
	SubmittedAt  time.Time `gorm:"column:submitted_at"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (submissionModel) TableName() string {
	return "submissions"
}

func submissionModelFromEntity(submission entities.Submission) submissionModel {
	row := submissionModel{
		SubmissionID: strings.TrimSpace(submission.SubmissionID),
		ChallengeID:  strings.TrimSpace(submission.ChallengeID),
		AuthorID:     strings.TrimSpace(submission.AuthorID),
		Name:         submission.Content.Name,
		Description:  submission.Content.Description,
		HTMLCode:     submission.Content.HTMLCode,
		CSSCode:      submission.Content.CSSCode,
		JSCode:       submission.Content.JSCode,
		IsPublic:     submission.IsPublic,
		SubmittedAt:  submission.SubmittedAt.UTC(),
		CreatedAt:    submission.CreatedAt.UTC(),
		UpdatedAt:    submission.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	if row.SubmittedAt.IsZero() {
		row.SubmittedAt = row.CreatedAt
	}
	return row
}

func (m submissionModel) toEntity() entities.Submission {
	return entities.Submission{
		SubmissionID: m.SubmissionID,
		ChallengeID:  m.ChallengeID,
		AuthorID:     m.AuthorID,
		Content: entities.SubmissionContent{
			Name:        m.Name,
			Description: m.Description,
			HTMLCode:    m.HTMLCode,
			CSSCode:     m.CSSCode,
			JSCode:      m.JSCode,
		},
		IsPublic:    m.IsPublic,
		LikeCount:   m.LikeCount,
		VoteCount:   m.VoteCount,
		SubmittedAt: m.SubmittedAt.UTC(),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type submissionLikeModel struct {
	SubmissionID string    `gorm:"column:submission_id;primaryKey"`
	UserID       string    `gorm:"column:user_id;primaryKey"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (submissionLikeModel) TableName() string {
	return "submission_likes"
}

type submissionVoteModel struct {
	SubmissionID string    `gorm:"column:submission_id;primaryKey"`
	UserID       string    `gorm:"column:user_id;primaryKey"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (submissionVoteModel) TableName() string {
	return "submission_votes"
}

type profileModel struct {
	ProfileID           string    `gorm:"column:profile_id;primaryKey"`
	UserID              string    `gorm:"column:user_id;uniqueIndex:ux_profiles_user"`
	Username            string    `gorm:"column:username"`
	TotalXP             int       `gorm:"column:total_xp"`
	ChallengesCompleted int       `gorm:"column:challenges_completed"`
	ChallengesWon       int       `gorm:"column:challenges_won"`
	Bio                 string    `gorm:"column:bio"`
	GithubUser          string    `gorm:"column:github_user"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (profileModel) TableName() string {
	return "profiles"
}

func (m profileModel) toEntity() entities.Profile {
	return entities.Profile{
		ProfileID:           m.ProfileID,
		UserID:              m.UserID,
		Username:            m.Username,
		TotalXP:             m.TotalXP,
		ChallengesCompleted: m.ChallengesCompleted,
		ChallengesWon:       m.ChallengesWon,
		Bio:                 m.Bio,
		GithubUser:          m.GithubUser,
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
	}
}

type profileBadgeModel struct {
	ProfileID string    `gorm:"column:profile_id;primaryKey"`
	BadgeID   string    `gorm:"column:badge_id;primaryKey"`
	BadgeSlug string    `gorm:"column:badge_slug"`
	UserID    string    `gorm:"column:user_id"`
	AwardedAt time.Time `gorm:"column:awarded_at"`
}

func (profileBadgeModel) TableName() string {
	return "profile_badges"
}

type completedChallengeModel struct {
	ProfileID   string    `gorm:"column:profile_id;primaryKey"`
	ChallengeID string    `gorm:"column:challenge_id;primaryKey"`
	XPAwarded   int       `gorm:"column:xp_awarded"`
	CompletedAt time.Time `gorm:"column:completed_at"`
}

func (completedChallengeModel) TableName() string {
	return "profile_completed_challenges"
}

type prizeModel struct {
	ChallengeID  string    `gorm:"column:challenge_id;primaryKey"`
	Place        int       `gorm:"column:place;primaryKey"`
	SubmissionID string    `gorm:"column:submission_id"`
	UserID       string    `gorm:"column:user_id"`
	XP           int       `gorm:"column:xp"`
	AwardedAt    time.Time `gorm:"column:awarded_at"`
}

func (prizeModel) TableName() string {
	return "challenge_prizes"
}

type badgeModel struct {
	BadgeID     string    `gorm:"column:badge_id;primaryKey"`
	Slug        string    `gorm:"column:slug;uniqueIndex:ux_badges_slug"`
	Name        string    `gorm:"column:name"`
	Description string    `gorm:"column:description"`
	Icon        string    `gorm:"column:icon"`
	Requirement string    `gorm:"column:requirement"`
	Category    string    `gorm:"column:category"`
	Rarity      string    `gorm:"column:rarity"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (badgeModel) TableName() string {
	return "badges"
}

func badgeModelFromEntity(badge entities.Badge) badgeModel {
	row := badgeModel{
		BadgeID:     strings.TrimSpace(badge.BadgeID),
		Slug:        strings.TrimSpace(badge.Slug),
		Name:        badge.Name,
		Description: badge.Description,
		Icon:        badge.Icon,
		Requirement: badge.Requirement,
		Category:    string(badge.Category),
		Rarity:      string(badge.Rarity),
		CreatedAt:   badge.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m badgeModel) toEntity() entities.Badge {
	return entities.Badge{
		BadgeID:     m.BadgeID,
		Slug:        m.Slug,
		Name:        m.Name,
		Description: m.Description,
		Icon:        m.Icon,
		Requirement: m.Requirement,
		Category:    entities.BadgeCategory(m.Category),
		Rarity:      entities.BadgeRarity(m.Rarity),
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index:ix_contest_outbox_status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "contest_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "contest_event_dedup"
}

func encodeWinners(winners []string) string {
	if len(winners) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(winners)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func decodeWinners(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var winners []string
	if err := json.Unmarshal([]byte(raw), &winners); err != nil || len(winners) == 0 {
		return nil
	}
	return winners
}
