package models

import (
	"time"
)

// Roles for dialog messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DialogMessage is a single entry in a user's conversation history.
// Immutable once created.
type DialogMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CacheEntry represents a cached inference response.
type CacheEntry struct {
	Prompt    string
	Answer    string
	CreatedAt time.Time
}

// StoreStats is a read-only snapshot of the dialog context store.
type StoreStats struct {
	Total     int
	Active    int
	Expired   int
	MaxLength int
	Timeout   time.Duration
}

// ServiceStats tracks request counters for the conversation service.
type ServiceStats struct {
	TotalRequests int64
	TotalErrors   int64
}

// SuccessRate returns the share of requests that completed without error,
// in percent. An idle service reports 100.
func (s ServiceStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 100
	}
	return float64(s.TotalRequests-s.TotalErrors) / float64(s.TotalRequests) * 100
}
