package repository

import (
	"context"
	"testing"
	"time"

	"polls-backend/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRepo(t *testing.T) (QuestionRepository, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&models.Question{}, &models.Choice{}, &models.Vote{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})
	return NewQuestionRepository(db), db
}

func seedQuestion(t *testing.T, repo QuestionRepository, text string, pub, end time.Time) *models.Question {
	question := &models.Question{
		QuestionText: text,
		PubDate:      pub,
		EndDate:      end,
		Choices:      []models.Choice{{ChoiceText: "X"}, {ChoiceText: "Y"}},
	}
	if err := repo.CreateQuestion(context.Background(), question); err != nil {
		t.Fatalf("failed to seed question: %v", err)
	}
	return question
}

func TestListPublished_Ordering(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	old := seedQuestion(t, repo, "old", now.Add(-72*time.Hour), now.Add(72*time.Hour))
	recent := seedQuestion(t, repo, "recent", now.Add(-time.Hour), now.Add(72*time.Hour))
	future := seedQuestion(t, repo, "future", now.Add(time.Hour), now.Add(72*time.Hour))

	questions, err := repo.ListPublished(ctx, now)
	assert.NoError(t, err)
	assert.Len(t, questions, 2)
	assert.Equal(t, recent.ID, questions[0].ID)
	assert.Equal(t, old.ID, questions[1].ID)
	for _, q := range questions {
		assert.NotEqual(t, future.ID, q.ID)
	}
}

func TestListPublished_TieBreaksOnID(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	now := time.Now()
	pub := now.Add(-time.Hour)

	first := seedQuestion(t, repo, "first", pub, now.Add(72*time.Hour))
	second := seedQuestion(t, repo, "second", pub, now.Add(72*time.Hour))

	questions, err := repo.ListPublished(ctx, now)
	assert.NoError(t, err)
	assert.Len(t, questions, 2)
	assert.Equal(t, second.ID, questions[0].ID)
	assert.Equal(t, first.ID, questions[1].ID)
}

func TestUpsertVote_Transitions(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	question := seedQuestion(t, repo, "transitions", now.Add(-time.Hour), now.Add(time.Hour))
	choiceX := question.Choices[0].ID
	choiceY := question.Choices[1].ID

	// NoVote -> Voted(X)
	changed, err := repo.UpsertVote(ctx, question.ID, choiceX, "alice")
	assert.NoError(t, err)
	assert.True(t, changed)

	// Voted(X) -> Voted(X) is a no-op
	changed, err = repo.UpsertVote(ctx, question.ID, choiceX, "alice")
	assert.NoError(t, err)
	assert.False(t, changed)

	// Voted(X) -> Voted(Y) updates in place
	changed, err = repo.UpsertVote(ctx, question.ID, choiceY, "alice")
	assert.NoError(t, err)
	assert.True(t, changed)

	var votes []models.Vote
	db.Where("question_id = ?", question.ID).Find(&votes)
	assert.Len(t, votes, 1)
	assert.Equal(t, choiceY, votes[0].ChoiceID)
	assert.Equal(t, "alice", votes[0].UserID)
}

func TestUpsertVote_IndependentPairs(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	q1 := seedQuestion(t, repo, "q1", now.Add(-time.Hour), now.Add(time.Hour))
	q2 := seedQuestion(t, repo, "q2", now.Add(-time.Hour), now.Add(time.Hour))

	// Same user may hold one vote on each question
	_, err := repo.UpsertVote(ctx, q1.ID, q1.Choices[0].ID, "alice")
	assert.NoError(t, err)
	_, err = repo.UpsertVote(ctx, q2.ID, q2.Choices[1].ID, "alice")
	assert.NoError(t, err)

	// Different users on the same question
	_, err = repo.UpsertVote(ctx, q1.ID, q1.Choices[1].ID, "bob")
	assert.NoError(t, err)

	var total int64
	db.Model(&models.Vote{}).Where("question_id IN ?", []uint{q1.ID, q2.ID}).Count(&total)
	assert.Equal(t, int64(3), total)
}

func TestVoteUniqueIndex(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	question := seedQuestion(t, repo, "guarded", now.Add(-time.Hour), now.Add(time.Hour))
	choiceX := question.Choices[0].ID
	choiceY := question.Choices[1].ID

	_, err := repo.UpsertVote(ctx, question.ID, choiceX, "alice")
	assert.NoError(t, err)

	// A second row for the same pair must be rejected by the schema itself,
	// independent of the upsert logic.
	err = db.Create(&models.Vote{QuestionID: question.ID, ChoiceID: choiceY, UserID: "alice"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUpsertVote_InsertConflictBecomesUpdate(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	question := seedQuestion(t, repo, "contended", now.Add(-time.Hour), now.Add(time.Hour))
	choiceX := question.Choices[0].ID
	choiceY := question.Choices[1].ID

	// Simulate losing the insert race: a competing transition commits the
	// pair's row after this transaction's existence check but before its
	// insert. The callback fires on the transaction's own connection right
	// before gorm runs the INSERT.
	raced := false
	err := db.Callback().Create().Before("gorm:create").Register("competing_vote", func(d *gorm.DB) {
		if raced || d.Statement.Table != "votes" {
			return
		}
		raced = true
		_, execErr := d.Statement.ConnPool.ExecContext(d.Statement.Context,
			"INSERT INTO votes (created_at, updated_at, question_id, choice_id, user_id) VALUES (?, ?, ?, ?, ?)",
			time.Now(), time.Now(), question.ID, choiceX, "alice")
		assert.NoError(t, execErr)
	})
	assert.NoError(t, err)

	changed, err := repo.UpsertVote(ctx, question.ID, choiceY, "alice")
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, raced)

	// The one-vote invariant held and the loser's choice won as an update
	var votes []models.Vote
	db.Where("question_id = ? AND user_id = ?", question.ID, "alice").Find(&votes)
	assert.Len(t, votes, 1)
	assert.Equal(t, choiceY, votes[0].ChoiceID)
}

func TestCountVotes(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	question := seedQuestion(t, repo, "counted", now.Add(-time.Hour), now.Add(time.Hour))
	choiceX := question.Choices[0].ID
	choiceY := question.Choices[1].ID

	_, _ = repo.UpsertVote(ctx, question.ID, choiceX, "alice")
	_, _ = repo.UpsertVote(ctx, question.ID, choiceX, "bob")
	_, _ = repo.UpsertVote(ctx, question.ID, choiceY, "carol")

	counts, err := repo.CountVotes(ctx, question.ID)
	assert.NoError(t, err)
	assert.Len(t, counts, 2)
	assert.Equal(t, choiceX, counts[0].ChoiceID)
	assert.Equal(t, int64(2), counts[0].Votes)
	assert.Equal(t, choiceY, counts[1].ChoiceID)
	assert.Equal(t, int64(1), counts[1].Votes)
}

func TestCountVotes_ZeroRows(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	question := seedQuestion(t, repo, "untouched", now.Add(-time.Hour), now.Add(time.Hour))

	counts, err := repo.CountVotes(ctx, question.ID)
	assert.NoError(t, err)
	assert.Len(t, counts, 2)
	assert.Equal(t, int64(0), counts[0].Votes)
	assert.Equal(t, int64(0), counts[1].Votes)
}

func TestGetQuestion_NotFound(t *testing.T) {
	repo, _ := setupRepo(t)

	_, err := repo.GetQuestion(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestDeleteQuestion_CascadesVotes(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	question := seedQuestion(t, repo, "doomed", now.Add(-time.Hour), now.Add(time.Hour))
	_, _ = repo.UpsertVote(ctx, question.ID, question.Choices[0].ID, "alice")

	err := repo.DeleteQuestion(ctx, question.ID)
	assert.NoError(t, err)

	var count int64
	db.Model(&models.Question{}).Where("id = ?", question.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// Votes and choices are gone for real, not just soft-deleted; their
	// unique index slots must be free for reuse.
	db.Unscoped().Model(&models.Choice{}).Where("question_id = ?", question.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.Unscoped().Model(&models.Vote{}).Where("question_id = ?", question.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	assert.ErrorIs(t, repo.DeleteQuestion(ctx, question.ID), ErrQuestionNotFound)
}
