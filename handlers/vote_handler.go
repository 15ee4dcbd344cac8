package handlers

import (
	"net/http"
	"time"

	"polls-backend/service"

	"github.com/gin-gonic/gin"
)

// VoteHandler serves the cast-or-change-vote endpoint.
type VoteHandler struct {
	svc service.VotingService
}

// NewVoteHandler creates a handler over the voting service.
func NewVoteHandler(svc service.VotingService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// VoteInput is the vote submission payload. A zero ChoiceID means no
// selection was made.
type VoteInput struct {
	ChoiceID uint `json:"choice_id"`
}

// SubmitVote handles POST /api/questions/:id/vote. The authenticated user
// gets exactly one vote per question; submitting again changes it, and
// resubmitting the current choice changes nothing.
func (h *VoteHandler) SubmitVote(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}

	var input VoteInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	results, err := h.svc.CastVote(ctx, id, input.ChoiceID, CurrentUser(c), time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Vote recorded",
		"current_results": results,
	})
}
