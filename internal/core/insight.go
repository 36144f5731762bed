package core

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Insight is a generated observation about a user's finances.
type Insight struct {
	ID             int64     `json:"id,omitempty"`
	UserID         int64     `json:"user_id,omitempty"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation,omitempty"`
	Priority       Priority  `json:"priority"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}
