package models

import (
	"encoding/json"
	"time"
)

// ChoiceResult is a single choice together with its derived vote count.
type ChoiceResult struct {
	ChoiceID   uint    `json:"choice_id"`
	ChoiceText string  `json:"choice_text"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// QuestionResults is the aggregated result view for one question, computed
// by counting Vote rows per choice at read time.
type QuestionResults struct {
	QuestionID   uint           `json:"question_id"`
	QuestionText string         `json:"question_text"`
	TotalVotes   int64          `json:"total_votes"`
	Choices      []ChoiceResult `json:"choices"`
	ComputedAt   time.Time      `json:"computed_at"`
}

// WebSocketMessage is the envelope broadcast to live-results subscribers.
type WebSocketMessage struct {
	Type       string      `json:"type"`
	QuestionID uint        `json:"question_id"`
	Payload    interface{} `json:"payload"`
}

// ToJSON serializes the message for the wire.
func (m *WebSocketMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
