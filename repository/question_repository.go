package repository

import (
	"context"
	"errors"
	"time"

	"polls-backend/models"

	"gorm.io/gorm"
)

// QuestionRepository is the data-access boundary over questions, choices and
// votes. All methods honor context deadlines via WithContext.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, question *models.Question) error
	DeleteQuestion(ctx context.Context, id uint) error

	// GetQuestion loads a question with its choices regardless of
	// publication state; visibility policy is the service's concern.
	GetQuestion(ctx context.Context, id uint) (*models.Question, error)

	// ListPublished returns questions with pub_date <= now, newest first,
	// ties broken by id descending.
	ListPublished(ctx context.Context, now time.Time) ([]models.Question, error)

	GetVote(ctx context.Context, questionID uint, userID string) (*models.Vote, error)

	// UpsertVote applies the cast-or-change transition for one
	// (question, user) pair as a single transaction. It reports whether the
	// stored state actually changed (false for an idempotent resubmit of the
	// current choice).
	UpsertVote(ctx context.Context, questionID, choiceID uint, userID string) (bool, error)

	// CountVotes aggregates vote rows per choice for a question.
	CountVotes(ctx context.Context, questionID uint) ([]models.ChoiceResult, error)
}

type gormQuestionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository wraps a gorm handle in the repository interface.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &gormQuestionRepository{db: db}
}

func (r *gormQuestionRepository) CreateQuestion(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *gormQuestionRepository) DeleteQuestion(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Cascade by hand as well: the schema-level constraint does not
		// cover drivers where AutoMigrate could not add it. Votes and
		// choices are removed for real; a soft-deleted vote would keep
		// occupying its (question_id, user_id) slot in the unique index.
		if err := tx.Unscoped().Where("question_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("question_id = ?", id).Delete(&models.Choice{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Question{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrQuestionNotFound
		}
		return nil
	})
}

func (r *gormQuestionRepository) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	err := r.db.WithContext(ctx).Preload("Choices").First(&question, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return &question, nil
}

func (r *gormQuestionRepository) ListPublished(ctx context.Context, now time.Time) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Where("pub_date <= ?", now).
		Order("pub_date DESC, id DESC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *gormQuestionRepository) GetVote(ctx context.Context, questionID uint, userID string) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}
	return &vote, nil
}

func (r *gormQuestionRepository) UpsertVote(ctx context.Context, questionID, choiceID uint, userID string) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vote models.Vote
		err := tx.Where("question_id = ? AND user_id = ?", questionID, userID).First(&vote).Error
		switch {
		case err == nil:
			if vote.ChoiceID == choiceID {
				// Resubmitting the current choice is a no-op.
				return nil
			}
			changed = true
			return tx.Model(&vote).Update("choice_id", choiceID).Error

		case errors.Is(err, gorm.ErrRecordNotFound):
			changed = true
			vote = models.Vote{QuestionID: questionID, ChoiceID: choiceID, UserID: userID}
			if createErr := tx.Create(&vote).Error; createErr != nil {
				if errors.Is(createErr, gorm.ErrDuplicatedKey) {
					// A concurrent transition for the same pair won the
					// insert; fall back to updating the surviving row so the
					// one-vote invariant holds.
					return tx.Model(&models.Vote{}).
						Where("question_id = ? AND user_id = ?", questionID, userID).
						Update("choice_id", choiceID).Error
				}
				return createErr
			}
			return nil

		default:
			return err
		}
	})
	return changed, err
}

func (r *gormQuestionRepository) CountVotes(ctx context.Context, questionID uint) ([]models.ChoiceResult, error) {
	var results []models.ChoiceResult
	err := r.db.WithContext(ctx).Raw(`
		SELECT choices.id AS choice_id, choices.choice_text, COUNT(votes.id) AS votes
		FROM choices
		LEFT JOIN votes ON votes.choice_id = choices.id AND votes.deleted_at IS NULL
		WHERE choices.question_id = ? AND choices.deleted_at IS NULL
		GROUP BY choices.id, choices.choice_text
		ORDER BY choices.id`, questionID).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
