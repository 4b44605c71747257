package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"devquest/contexts/contest-lifecycle/contest-engine/domain/entities"
	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"
	"devquest/contexts/contest-lifecycle/contest-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	seq       int64
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

type submissionRecord struct {
	submission entities.Submission
	likedBy    map[string]struct{}
	votedBy    map[string]struct{}
}

type profileRecord struct {
	profile   entities.Profile
	badges    map[string]struct{}
	completed map[string]struct{}
}

type txKey struct{}

// Store is the in-process adapter for every contest engine port. Each method
// is atomic under mu; WithinTx serializes transactional blocks against each
// other.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	challenges   map[string]entities.Challenge
	submissions  map[string]*submissionRecord
	authorIndex  map[string]string
	profiles     map[string]*profileRecord
	profileUsers map[string]string
	prizes       map[string]entities.Prize
	badges       map[string]entities.Badge
	awards       map[string]entities.BadgeAward
	outbox       map[string]outboxRecord
	outboxSeq    int64
	eventDedup   map[string]dedupRecord
}

func NewStore() *Store {
	return &Store{
		challenges:   make(map[string]entities.Challenge),
		submissions:  make(map[string]*submissionRecord),
		authorIndex:  make(map[string]string),
		profiles:     make(map[string]*profileRecord),
		profileUsers: make(map[string]string),
		prizes:       make(map[string]entities.Prize),
		badges:       make(map[string]entities.Badge),
		awards:       make(map[string]entities.BadgeAward),
		outbox:       make(map[string]outboxRecord),
		eventDedup:   make(map[string]dedupRecord),
	}
}

// WithinTx serializes transactional blocks but never rolls back: writes made
// before fn returns an error stay applied. Tests must not rely on rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

func (s *Store) CreateChallenge(_ context.Context, challenge entities.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(challenge.ChallengeID)
	if _, ok := s.challenges[id]; ok {
		return domainerrors.ErrConflict
	}
	challenge.ChallengeID = id
	challenge.Winners = slices.Clone(challenge.Winners)
	s.challenges[id] = challenge
	return nil
}

func (s *Store) GetChallenge(_ context.Context, challengeID string) (entities.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	challenge, ok := s.challenges[strings.TrimSpace(challengeID)]
	if !ok {
		return entities.Challenge{}, domainerrors.ErrChallengeNotFound
	}
	challenge.Winners = slices.Clone(challenge.Winners)
	return challenge, nil
}

// GetChallengeForUpdate relies on WithinTx serializing the caller's block.
func (s *Store) GetChallengeForUpdate(ctx context.Context, challengeID string) (entities.Challenge, error) {
	return s.GetChallenge(ctx, challengeID)
}

func (s *Store) UpdateChallengeSchedule(
	_ context.Context,
	challengeID string,
	schedule entities.Schedule,
	updatedAt time.Time,
) (entities.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(challengeID)
	challenge, ok := s.challenges[id]
	if !ok {
		return entities.Challenge{}, domainerrors.ErrChallengeNotFound
	}
	challenge.Schedule = schedule.UTC()
	challenge.UpdatedAt = updatedAt.UTC()
	s.challenges[id] = challenge
	return challenge, nil
}

func (s *Store) TransitionChallenge(_ context.Context, transition ports.ChallengeTransition) (entities.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(transition.ChallengeID)
	challenge, ok := s.challenges[id]
	if !ok {
		return entities.Challenge{}, domainerrors.ErrChallengeNotFound
	}
	if !slices.Contains(transition.From, challenge.Status) {
		return entities.Challenge{}, domainerrors.ErrInvalidTransition
	}
	challenge.Status = transition.To
	if transition.To == entities.ChallengeStatusCompleted {
		challenge.Winners = slices.Clone(transition.Winners)
	}
	challenge.UpdatedAt = transition.UpdatedAt.UTC()
	s.challenges[id] = challenge
	challenge.Winners = slices.Clone(challenge.Winners)
	return challenge, nil
}

func (s *Store) CloseVoting(
	_ context.Context,
	challengeID string,
	winners []string,
	closedAt time.Time,
) (entities.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(challengeID)
	challenge, ok := s.challenges[id]
	if !ok {
		return entities.Challenge{}, domainerrors.ErrChallengeNotFound
	}
	if challenge.Status != entities.ChallengeStatusVoting {
		return entities.Challenge{}, domainerrors.ErrInvalidTransition
	}
	if !challenge.VotingClosed() {
		challenge.Winners = slices.Clone(winners)
		challenge.VotingClosedAt = closedAt.UTC()
		challenge.UpdatedAt = closedAt.UTC()
		s.challenges[id] = challenge
	}
	challenge.Winners = slices.Clone(challenge.Winners)
	return challenge, nil
}

func (s *Store) IncrementSubmissionCount(_ context.Context, challengeID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(challengeID)
	challenge, ok := s.challenges[id]
	if !ok {
		return domainerrors.ErrChallengeNotFound
	}
	challenge.SubmissionCount += delta
	s.challenges[id] = challenge
	return nil
}

func (s *Store) ListChallengesDue(
	_ context.Context,
	status entities.ChallengeStatus,
	dueField ports.DueField,
	now time.Time,
	limit int,
) ([]entities.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dueAt := func(challenge entities.Challenge) time.Time {
		if dueField == ports.DueVotingEnd {
			return challenge.Schedule.VotingEndDate
		}
		return challenge.Schedule.VotingStartDate
	}
	items := make([]entities.Challenge, 0)
	for _, challenge := range s.challenges {
		if challenge.Status != status || dueAt(challenge).After(now) {
			continue
		}
		challenge.Winners = slices.Clone(challenge.Winners)
		items = append(items, challenge)
	}
	sort.Slice(items, func(i, j int) bool {
		if !dueAt(items[i]).Equal(dueAt(items[j])) {
			return dueAt(items[i]).Before(dueAt(items[j]))
		}
		return items[i].ChallengeID < items[j].ChallengeID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) GetSubmission(_ context.Context, submissionID string) (entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return entities.Submission{}, domainerrors.ErrSubmissionNotFound
	}
	return record.toEntity(), nil
}

func (s *Store) FindSubmissionByAuthor(
	_ context.Context,
	challengeID string,
	authorID string,
) (entities.Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.authorIndex[authorKey(challengeID, authorID)]
	if !ok {
		return entities.Submission{}, false, nil
	}
	return s.submissions[id].toEntity(), true, nil
}

func (s *Store) CreateSubmission(_ context.Context, submission entities.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(submission.SubmissionID)
	key := authorKey(submission.ChallengeID, submission.AuthorID)
	if _, ok := s.submissions[id]; ok {
		return domainerrors.ErrConflict
	}
	if _, ok := s.authorIndex[key]; ok {
		return domainerrors.ErrConflict
	}
	record := &submissionRecord{
		likedBy: make(map[string]struct{}, len(submission.LikedBy)),
		votedBy: make(map[string]struct{}, len(submission.VotedBy)),
	}
	for _, userID := range submission.LikedBy {
		record.likedBy[userID] = struct{}{}
	}
	for _, userID := range submission.VotedBy {
		record.votedBy[userID] = struct{}{}
	}
	submission.SubmissionID = id
	submission.LikeCount = len(record.likedBy)
	submission.VoteCount = len(record.votedBy)
	submission.LikedBy = nil
	submission.VotedBy = nil
	record.submission = submission
	s.submissions[id] = record
	s.authorIndex[key] = id
	return nil
}

func (s *Store) UpdateSubmissionContent(
	_ context.Context,
	submissionID string,
	content entities.SubmissionContent,
	isPublic bool,
	submittedAt time.Time,
) (entities.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return entities.Submission{}, domainerrors.ErrSubmissionNotFound
	}
	record.submission.Content = content
	record.submission.IsPublic = isPublic
	record.submission.SubmittedAt = submittedAt.UTC()
	record.submission.UpdatedAt = submittedAt.UTC()
	return record.toEntity(), nil
}

func (s *Store) ListSubmissionIDsByChallenge(_ context.Context, challengeID string, onlyPrivate bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	challengeID = strings.TrimSpace(challengeID)
	ids := make([]string, 0)
	for id, record := range s.submissions {
		if record.submission.ChallengeID != challengeID {
			continue
		}
		if onlyPrivate && record.submission.IsPublic {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) OpenSubmissionForVoting(_ context.Context, submissionID string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return domainerrors.ErrSubmissionNotFound
	}
	record.submission.IsPublic = true
	record.submission.VoteCount = 0
	record.votedBy = make(map[string]struct{})
	record.submission.UpdatedAt = updatedAt.UTC()
	return nil
}

func (s *Store) ListRankedSubmissions(
	_ context.Context,
	challengeID string,
	after *entities.RankCursor,
	limit int,
) ([]entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	challengeID = strings.TrimSpace(challengeID)
	items := make([]entities.Submission, 0)
	for _, record := range s.submissions {
		if record.submission.ChallengeID != challengeID {
			continue
		}
		item := record.toEntity()
		if after != nil && !after.After(item) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return entities.RanksBefore(items[i], items[j])
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) CountSubmissionsByAuthor(_ context.Context, authorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, record := range s.submissions {
		if record.submission.AuthorID == strings.TrimSpace(authorID) {
			count++
		}
	}
	return count, nil
}

func (s *Store) MaxLikeCountByAuthor(_ context.Context, authorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	maxLikes := 0
	for _, record := range s.submissions {
		if record.submission.AuthorID == strings.TrimSpace(authorID) && record.submission.LikeCount > maxLikes {
			maxLikes = record.submission.LikeCount
		}
	}
	return maxLikes, nil
}

func (s *Store) AddLike(
	_ context.Context,
	submissionID string,
	userID string,
	at time.Time,
) (entities.Submission, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return entities.Submission{}, false, domainerrors.ErrSubmissionNotFound
	}
	if _, liked := record.likedBy[userID]; liked {
		return record.toEntity(), false, nil
	}
	record.likedBy[userID] = struct{}{}
	record.submission.LikeCount++
	record.submission.UpdatedAt = at.UTC()
	return record.toEntity(), true, nil
}

func (s *Store) RemoveLike(
	_ context.Context,
	submissionID string,
	userID string,
	at time.Time,
) (entities.Submission, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return entities.Submission{}, false, domainerrors.ErrSubmissionNotFound
	}
	if _, liked := record.likedBy[userID]; !liked {
		return record.toEntity(), false, nil
	}
	delete(record.likedBy, userID)
	record.submission.LikeCount--
	record.submission.UpdatedAt = at.UTC()
	return record.toEntity(), true, nil
}

func (s *Store) RecordVote(
	_ context.Context,
	submissionID string,
	userID string,
	at time.Time,
) (entities.Submission, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return entities.Submission{}, false, domainerrors.ErrSubmissionNotFound
	}
	challenge, ok := s.challenges[record.submission.ChallengeID]
	if !ok || !challenge.AcceptsVotes() {
		return entities.Submission{}, false, domainerrors.ErrInvalidState
	}
	if _, voted := record.votedBy[userID]; voted {
		return entities.Submission{}, false, domainerrors.ErrDuplicateVote
	}
	record.votedBy[userID] = struct{}{}
	record.submission.VoteCount++
	likeAdded := false
	if _, liked := record.likedBy[userID]; !liked {
		record.likedBy[userID] = struct{}{}
		record.submission.LikeCount++
		likeAdded = true
	}
	record.submission.UpdatedAt = at.UTC()
	return record.toEntity(), likeAdded, nil
}

func (s *Store) EnsureProfile(_ context.Context, profile entities.Profile) (entities.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := strings.TrimSpace(profile.UserID)
	if existing, ok := s.profiles[userID]; ok {
		return existing.toEntity(), false, nil
	}
	record := &profileRecord{
		badges:    make(map[string]struct{}, len(profile.BadgeSlugs)),
		completed: make(map[string]struct{}, len(profile.CompletedChallenges)),
	}
	for _, slug := range profile.BadgeSlugs {
		record.badges[slug] = struct{}{}
	}
	for _, challengeID := range profile.CompletedChallenges {
		record.completed[challengeID] = struct{}{}
	}
	profile.UserID = userID
	if strings.TrimSpace(profile.ProfileID) == "" {
		profile.ProfileID = uuid.NewString()
	}
	profile.BadgeSlugs = nil
	profile.CompletedChallenges = nil
	record.profile = profile
	s.profiles[userID] = record
	s.profileUsers[profile.ProfileID] = userID
	return record.toEntity(), true, nil
}

func (s *Store) GetProfileByUser(_ context.Context, userID string) (entities.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.profiles[strings.TrimSpace(userID)]
	if !ok {
		return entities.Profile{}, domainerrors.ErrProfileNotFound
	}
	return record.toEntity(), nil
}

func (s *Store) UpdateProfileDetails(
	_ context.Context,
	userID string,
	details entities.ProfileDetails,
	updatedAt time.Time,
) (entities.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.profiles[strings.TrimSpace(userID)]
	if !ok {
		return entities.Profile{}, domainerrors.ErrProfileNotFound
	}
	record.profile.Bio = details.Bio
	record.profile.GithubUser = details.GithubUser
	record.profile.UpdatedAt = updatedAt.UTC()
	return record.toEntity(), nil
}

func (s *Store) CompleteChallenge(
	_ context.Context,
	userID string,
	challengeID string,
	xp int,
	at time.Time,
) (entities.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.profiles[strings.TrimSpace(userID)]
	if !ok {
		return entities.Profile{}, false, domainerrors.ErrProfileNotFound
	}
	challengeID = strings.TrimSpace(challengeID)
	if _, done := record.completed[challengeID]; done {
		return record.toEntity(), false, nil
	}
	record.completed[challengeID] = struct{}{}
	record.profile.ChallengesCompleted++
	record.profile.TotalXP += xp
	record.profile.UpdatedAt = at.UTC()
	return record.toEntity(), true, nil
}

func (s *Store) AwardPrize(_ context.Context, prize entities.Prize) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(prize.ChallengeID) + "|" + strconv.Itoa(prize.Place)
	if _, ok := s.prizes[key]; ok {
		return false, nil
	}
	record, ok := s.profiles[strings.TrimSpace(prize.UserID)]
	if !ok {
		return false, domainerrors.ErrProfileNotFound
	}
	s.prizes[key] = prize
	record.profile.TotalXP += prize.XP
	record.profile.ChallengesWon++
	record.profile.UpdatedAt = prize.AwardedAt.UTC()
	return true, nil
}

// Prizes returns the ledger rows of a challenge ordered by place.
func (s *Store) Prizes(challengeID string) []entities.Prize {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Prize, 0, entities.MaxWinners)
	for _, prize := range s.prizes {
		if prize.ChallengeID == challengeID {
			items = append(items, prize)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Place < items[j].Place })
	return items
}

func (s *Store) UpsertBadge(_ context.Context, badge entities.Badge) (entities.Badge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slug := strings.TrimSpace(badge.Slug)
	badge.Slug = slug
	if existing, ok := s.badges[slug]; ok {
		badge.BadgeID = existing.BadgeID
		badge.CreatedAt = existing.CreatedAt
		s.badges[slug] = badge
		return badge, false, nil
	}
	if strings.TrimSpace(badge.BadgeID) == "" {
		badge.BadgeID = uuid.NewString()
	}
	s.badges[slug] = badge
	return badge, true, nil
}

func (s *Store) GetBadgeBySlug(_ context.Context, slug string) (entities.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	badge, ok := s.badges[strings.TrimSpace(slug)]
	if !ok {
		return entities.Badge{}, domainerrors.ErrBadgeNotConfigured
	}
	return badge, nil
}

func (s *Store) ListBadgesBySlugs(_ context.Context, slugs []string) ([]entities.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Badge, 0, len(slugs))
	for _, slug := range slugs {
		if badge, ok := s.badges[strings.TrimSpace(slug)]; ok {
			items = append(items, badge)
		}
	}
	return items, nil
}

func (s *Store) LinkBadge(_ context.Context, award entities.BadgeAward) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := award.ProfileID + "|" + award.BadgeID
	if _, ok := s.awards[key]; ok {
		return false, nil
	}
	userID, ok := s.profileUsers[award.ProfileID]
	if !ok {
		return false, domainerrors.ErrProfileNotFound
	}
	s.awards[key] = award
	s.profiles[userID].badges[award.BadgeSlug] = struct{}{}
	return true, nil
}

// BadgeAwardCount returns how many profile links exist for the badge slug.
func (s *Store) BadgeAwardCount(slug string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, award := range s.awards {
		if award.BadgeSlug == slug {
			count++
		}
	}
	return count
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSeq++
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
		seq: s.outboxSeq,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].message.CreatedAt.Equal(rows[j].message.CreatedAt) {
			return rows[i].message.CreatedAt.Before(rows[j].message.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	reservedAt time.Time,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && reservedAt.UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) ReleaseEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.eventDedup, strings.TrimSpace(eventID))
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (r *submissionRecord) toEntity() entities.Submission {
	submission := r.submission
	submission.LikedBy = sortedKeys(r.likedBy)
	submission.VotedBy = sortedKeys(r.votedBy)
	return submission
}

func (r *profileRecord) toEntity() entities.Profile {
	profile := r.profile
	profile.BadgeSlugs = sortedKeys(r.badges)
	profile.CompletedChallenges = sortedKeys(r.completed)
	return profile
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func authorKey(challengeID string, authorID string) string {
	return strings.TrimSpace(challengeID) + "|" + strings.TrimSpace(authorID)
}

var (
	_ ports.ChallengeRepository  = (*Store)(nil)
	_ ports.SubmissionRepository = (*Store)(nil)
	_ ports.ReactionRepository   = (*Store)(nil)
	_ ports.ProfileRepository    = (*Store)(nil)
	_ ports.BadgeRepository      = (*Store)(nil)
	_ ports.TxManager            = (*Store)(nil)
	_ ports.OutboxRepository     = (*Store)(nil)
	_ ports.EventDedupStore      = (*Store)(nil)
	_ ports.Clock                = (*Store)(nil)
	_ ports.IDGenerator          = (*Store)(nil)
)
