package repository

import "errors"

var (
	// ErrQuestionNotFound is returned when no question row matches the id.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrVoteNotFound is returned when a (question, user) pair has no vote.
	ErrVoteNotFound = errors.New("vote not found")
)
