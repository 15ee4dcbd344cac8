package models

import (
	"time"

	"gorm.io/gorm"
)

// Question represents a poll with a publication window. Voting is allowed
// from PubDate up to and including EndDate.
type Question struct {
	gorm.Model
	QuestionText string    `gorm:"not null" json:"question_text"`
	PubDate      time.Time `gorm:"not null;index" json:"pub_date"`
	EndDate      time.Time `gorm:"not null" json:"end_date"`
	Choices      []Choice  `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"choices,omitempty"`
}

// IsPublished reports whether the question is visible at the given time.
func (q *Question) IsPublished(now time.Time) bool {
	return !now.Before(q.PubDate)
}

// WasPublishedRecently reports whether PubDate lies within [now-24h, now].
// The window moves with now, so the result flips back to false once now
// drifts past PubDate+24h; it must be recomputed on every read, never cached.
func (q *Question) WasPublishedRecently(now time.Time) bool {
	return !q.PubDate.Before(now.Add(-24*time.Hour)) && !q.PubDate.After(now)
}

// CanVote reports whether now falls inside the closed interval
// [PubDate, EndDate].
func (q *Question) CanVote(now time.Time) bool {
	return !now.Before(q.PubDate) && !now.After(q.EndDate)
}

// Choice represents one selectable option within a question. Vote counts are
// always derived from Vote rows at read time; they are never stored on the
// choice itself.
type Choice struct {
	gorm.Model
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	ChoiceText string `gorm:"not null" json:"choice_text"`
}

// Vote is a single user's current selection for a question. The composite
// unique index enforces at most one row per (question, user) pair; a revote
// updates ChoiceID in place.
type Vote struct {
	gorm.Model
	QuestionID uint   `gorm:"not null;uniqueIndex:idx_votes_question_user" json:"question_id"`
	ChoiceID   uint   `gorm:"not null;index" json:"choice_id"`
	UserID     string `gorm:"not null;size:64;uniqueIndex:idx_votes_question_user" json:"user_id"`
}
