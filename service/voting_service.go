package service

import (
	"context"
	"errors"
	"log"
	"time"

	"polls-backend/cache"
	"polls-backend/models"
	"polls-backend/repository"
	"polls-backend/websocket"
)

var (
	// ErrQuestionNotFound covers both a missing question and, for the detail
	// view, one whose pub_date is still in the future; callers cannot tell
	// the two apart.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrPollClosed means now is outside [pub_date, end_date].
	ErrPollClosed = errors.New("question is not in its voting period")

	// ErrNoSelection means the submitted choice is absent or does not belong
	// to the question.
	ErrNoSelection = errors.New("no valid choice selected")

	// ErrInvalidQuestion rejects malformed question definitions at creation.
	ErrInvalidQuestion = errors.New("invalid question definition")

	// ErrStoreUnavailable is a transient store failure; the caller may retry
	// the whole operation.
	ErrStoreUnavailable = errors.New("store temporarily unavailable")
)

// voteLockExpiry bounds how long a vote transition may hold the pair lock.
const voteLockExpiry = 5 * time.Second

// QuestionSummary is one row of the published-question listing.
type QuestionSummary struct {
	ID                   uint      `json:"id"`
	QuestionText         string    `json:"question_text"`
	PubDate              time.Time `json:"pub_date"`
	EndDate              time.Time `json:"end_date"`
	CanVote              bool      `json:"can_vote"`
	WasPublishedRecently bool      `json:"was_published_recently"`
}

// QuestionDetail is the voting view of a single published question,
// including the caller's current choice when one exists.
type QuestionDetail struct {
	ID            uint            `json:"id"`
	QuestionText  string          `json:"question_text"`
	PubDate       time.Time       `json:"pub_date"`
	EndDate       time.Time       `json:"end_date"`
	CanVote       bool            `json:"can_vote"`
	Choices       []models.Choice `json:"choices"`
	CurrentChoice uint            `json:"current_choice,omitempty"`
}

// VotingService is the application core: visibility, the cast-or-change-vote
// transition, and result aggregation.
type VotingService interface {
	ListQuestions(ctx context.Context, now time.Time) ([]QuestionSummary, error)
	GetQuestionDetail(ctx context.Context, id uint, userID string, now time.Time) (*QuestionDetail, error)
	GetResults(ctx context.Context, id uint) (*models.QuestionResults, error)
	CastVote(ctx context.Context, questionID, choiceID uint, userID string, now time.Time) (*models.QuestionResults, error)

	CreateQuestion(ctx context.Context, question *models.Question) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id uint) error
}

// VotingServiceImpl wires the repository with the optional Redis cache, the
// optional per-pair lock and the live-results hub.
type VotingServiceImpl struct {
	repo  repository.QuestionRepository
	locks *cache.VoteLockService
	hub   *websocket.Hub
}

// NewVotingService builds the service. locks and hub may be nil; the service
// then relies on the store transaction alone and skips broadcasting.
func NewVotingService(repo repository.QuestionRepository, locks *cache.VoteLockService, hub *websocket.Hub) VotingService {
	return &VotingServiceImpl{
		repo:  repo,
		locks: locks,
		hub:   hub,
	}
}

// ListQuestions returns all questions published at now, newest first. An
// empty slice is a valid result, not an error.
func (s *VotingServiceImpl) ListQuestions(ctx context.Context, now time.Time) ([]QuestionSummary, error) {
	questions, err := s.repo.ListPublished(ctx, now)
	if err != nil {
		return nil, translateStoreError(err)
	}

	summaries := make([]QuestionSummary, len(questions))
	for i := range questions {
		q := &questions[i]
		summaries[i] = QuestionSummary{
			ID:                   q.ID,
			QuestionText:         q.QuestionText,
			PubDate:              q.PubDate,
			EndDate:              q.EndDate,
			CanVote:              q.CanVote(now),
			WasPublishedRecently: q.WasPublishedRecently(now),
		}
	}
	return summaries, nil
}

// GetQuestionDetail returns a published question with its choices. An
// unpublished question is reported as not found, indistinguishable from a
// nonexistent one.
func (s *VotingServiceImpl) GetQuestionDetail(ctx context.Context, id uint, userID string, now time.Time) (*QuestionDetail, error) {
	question, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, translateStoreError(err)
	}

	if !question.IsPublished(now) {
		return nil, ErrQuestionNotFound
	}

	detail := &QuestionDetail{
		ID:           question.ID,
		QuestionText: question.QuestionText,
		PubDate:      question.PubDate,
		EndDate:      question.EndDate,
		CanVote:      question.CanVote(now),
		Choices:      question.Choices,
	}

	if userID != "" {
		vote, err := s.repo.GetVote(ctx, id, userID)
		switch {
		case err == nil:
			detail.CurrentChoice = vote.ChoiceID
		case errors.Is(err, repository.ErrVoteNotFound):
			// No vote yet; the echo is simply absent.
		default:
			return nil, translateStoreError(err)
		}
	}

	return detail, nil
}

// GetResults aggregates vote counts per choice, serving from the Redis cache
// when possible. Aggregates may be slightly stale across requests; every
// committed vote invalidates the cache.
func (s *VotingServiceImpl) GetResults(ctx context.Context, id uint) (*models.QuestionResults, error) {
	if cached, err := cache.GetResults(ctx, id); err == nil {
		return cached, nil
	}

	return s.computeResults(ctx, id)
}

func (s *VotingServiceImpl) computeResults(ctx context.Context, id uint) (*models.QuestionResults, error) {
	question, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, translateStoreError(err)
	}

	counts, err := s.repo.CountVotes(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}

	results := &models.QuestionResults{
		QuestionID:   question.ID,
		QuestionText: question.QuestionText,
		Choices:      counts,
		ComputedAt:   time.Now(),
	}
	for _, c := range counts {
		results.TotalVotes += c.Votes
	}
	for i := range results.Choices {
		if results.TotalVotes > 0 {
			results.Choices[i].Percentage = float64(results.Choices[i].Votes) / float64(results.TotalVotes) * 100
		}
	}

	if err := cache.SetResults(ctx, results); err != nil && !errors.Is(err, cache.ErrRedisNotAvailable) {
		log.Printf("failed to cache results for question %d: %v", id, err)
	}

	return results, nil
}

// CastVote applies the cast-or-change transition for one (question, user)
// pair: NoVote creates a row, a different choice updates it in place, the
// same choice is a no-op. Every path either fully commits or writes nothing.
func (s *VotingServiceImpl) CastVote(ctx context.Context, questionID, choiceID uint, userID string, now time.Time) (*models.QuestionResults, error) {
	question, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, translateStoreError(err)
	}

	if !question.CanVote(now) {
		return nil, ErrPollClosed
	}

	if !questionHasChoice(question, choiceID) {
		return nil, ErrNoSelection
	}

	var changed bool
	transition := func() error {
		var err error
		changed, err = s.repo.UpsertVote(ctx, questionID, choiceID, userID)
		return err
	}

	if s.locks != nil {
		err = s.locks.WithVoteLock(questionID, userID, voteLockExpiry, transition)
	} else {
		err = transition()
	}
	if err != nil {
		return nil, translateStoreError(err)
	}

	if changed {
		if err := cache.InvalidateResults(ctx, questionID); err != nil && !errors.Is(err, cache.ErrRedisNotAvailable) {
			log.Printf("failed to invalidate results cache for question %d: %v", questionID, err)
		}
	}

	results, err := s.computeResults(ctx, questionID)
	if err != nil {
		return nil, err
	}

	if changed && s.hub != nil {
		go s.hub.BroadcastResults(questionID, results)
	}

	return results, nil
}

// CreateQuestion validates and stores a new question with its choices.
func (s *VotingServiceImpl) CreateQuestion(ctx context.Context, question *models.Question) (*models.Question, error) {
	if question.QuestionText == "" {
		return nil, ErrInvalidQuestion
	}
	if len(question.Choices) < 2 {
		return nil, ErrInvalidQuestion
	}
	if !question.EndDate.After(question.PubDate) {
		return nil, ErrInvalidQuestion
	}

	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		return nil, translateStoreError(err)
	}

	created, err := s.repo.GetQuestion(ctx, question.ID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return created, nil
}

// DeleteQuestion removes a question together with its choices and votes.
func (s *VotingServiceImpl) DeleteQuestion(ctx context.Context, id uint) error {
	err := s.repo.DeleteQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return ErrQuestionNotFound
		}
		return translateStoreError(err)
	}

	if err := cache.InvalidateResults(ctx, id); err != nil && !errors.Is(err, cache.ErrRedisNotAvailable) {
		log.Printf("failed to invalidate results cache for question %d: %v", id, err)
	}
	return nil
}

func questionHasChoice(question *models.Question, choiceID uint) bool {
	if choiceID == 0 {
		return false
	}
	for _, choice := range question.Choices {
		if choice.ID == choiceID {
			return true
		}
	}
	return false
}

// translateStoreError maps deadline expiry onto the transient-failure
// sentinel so the request boundary can decide to retry.
func translateStoreError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrStoreUnavailable
	}
	return err
}
