package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"polls-backend/models"
	"polls-backend/service"

	"github.com/gin-gonic/gin"
)

// storeTimeout bounds every store-touching request; expiry surfaces as a
// transient failure to be retried by the caller.
const storeTimeout = 3 * time.Second

// QuestionHandler serves the listing, detail, results and admin endpoints.
type QuestionHandler struct {
	svc service.VotingService
}

// NewQuestionHandler creates a handler over the voting service.
func NewQuestionHandler(svc service.VotingService) *QuestionHandler {
	return &QuestionHandler{svc: svc}
}

// CreateQuestionInput defines the admin payload for publishing a question.
type CreateQuestionInput struct {
	QuestionText string              `json:"question_text" binding:"required"`
	PubDate      time.Time           `json:"pub_date" binding:"required"`
	EndDate      time.Time           `json:"end_date" binding:"required"`
	Choices      []CreateChoiceInput `json:"choices" binding:"required,min=2,dive"`
}

// CreateChoiceInput is one option in the creation payload.
type CreateChoiceInput struct {
	Text string `json:"text" binding:"required"`
}

// ListQuestions handles GET /api/questions.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	questions, err := h.svc.ListQuestions(ctx, time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if questions == nil {
		questions = []service.QuestionSummary{}
	}
	c.JSON(http.StatusOK, questions)
}

// GetQuestion handles GET /api/questions/:id. Unpublished questions are
// indistinguishable from missing ones.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	detail, err := h.svc.GetQuestionDetail(ctx, id, CurrentUser(c), time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetResults handles GET /api/questions/:id/results.
func (h *QuestionHandler) GetResults(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	results, err := h.svc.GetResults(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// CreateQuestion handles POST /api/questions (admin).
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var input CreateQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := models.Question{
		QuestionText: input.QuestionText,
		PubDate:      input.PubDate,
		EndDate:      input.EndDate,
	}
	for _, choice := range input.Choices {
		question.Choices = append(question.Choices, models.Choice{ChoiceText: choice.Text})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	created, err := h.svc.CreateQuestion(ctx, &question)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteQuestion handles DELETE /api/questions/:id (admin). Choices and
// votes go with the question.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.DeleteQuestion(ctx, id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

func questionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question ID format"})
		return 0, false
	}
	return uint(id), true
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), storeTimeout)
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
	case errors.Is(err, service.ErrPollClosed):
		c.JSON(http.StatusForbidden, gin.H{"error": "This question is not in its voting period"})
	case errors.Is(err, service.ErrNoSelection):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You didn't select a valid choice"})
	case errors.Is(err, service.ErrInvalidQuestion):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question definition"})
	case errors.Is(err, service.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporary storage failure, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
