package handlers

import (
	"fmt"
	"sync/atomic"
	"time"
)

// BotStats tracks process-level counters shared by the command and
// message handlers.
type BotStats struct {
	started  time.Time
	messages atomic.Int64
	users    atomic.Int64
}

// NewBotStats creates bot statistics starting now.
func NewBotStats() *BotStats {
	return &BotStats{started: time.Now()}
}

// CountMessage records one inbound update.
func (s *BotStats) CountMessage() {
	s.messages.Add(1)
}

// CountUser records one /start.
func (s *BotStats) CountUser() {
	s.users.Add(1)
}

// Messages returns the inbound update count.
func (s *BotStats) Messages() int64 {
	return s.messages.Load()
}

// Users returns the /start count.
func (s *BotStats) Users() int64 {
	return s.users.Load()
}

// Uptime renders elapsed time since start as "1ч 23м 45с".
func (s *BotStats) Uptime() string {
	elapsed := time.Since(s.started)
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
}
