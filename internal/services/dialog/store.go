package dialog

import (
	"sync"
	"time"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/codequeen-tgbot-go/internal/models"
	"github.com/sirupsen/logrus"
)

// Context holds one user's bounded, time-limited conversation history.
// All access goes through the owning Store.
type Context struct {
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []models.DialogMessage

	maxLength int
	timeout   time.Duration
}

func (c *Context) expiredAt(now time.Time) bool {
	return now.After(c.UpdatedAt.Add(c.timeout))
}

// Info is a per-user snapshot used by the /stats command.
type Info struct {
	UserID       int64
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Expired      bool
}

// Store owns the mapping from user ID to dialog context. It is the sole
// mutator of that mapping; the max-length and expiry invariants are
// enforced here and nowhere else.
type Store struct {
	mu        sync.RWMutex
	contexts  map[int64]*Context
	maxLength int
	timeout   time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

// NewStore creates a dialog context store.
func NewStore(cfg *config.ContextConfig, logger *logrus.Logger) *Store {
	return &Store{
		contexts:  make(map[int64]*Context),
		maxLength: cfg.MaxLength,
		timeout:   cfg.SessionTimeout,
		now:       time.Now,
		logger:    logger,
	}
}

// getOrCreateLocked returns the live context for userID, replacing an
// expired or missing one. Caller must hold the write lock.
func (s *Store) getOrCreateLocked(userID int64) *Context {
	now := s.now()
	ctx, ok := s.contexts[userID]
	if !ok || ctx.expiredAt(now) {
		ctx = &Context{
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
			maxLength: s.maxLength,
			timeout:   s.timeout,
		}
		s.contexts[userID] = ctx
		s.logger.WithField("user_id", userID).Info("Created new dialog context")
	}
	return ctx
}

// Append records a message for userID, evicting the oldest entries once
// the history exceeds the configured cap.
func (s *Store) Append(userID int64, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getOrCreateLocked(userID)
	now := s.now()
	ctx.UpdatedAt = now
	ctx.Messages = append(ctx.Messages, models.DialogMessage{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	if len(ctx.Messages) > ctx.maxLength {
		ctx.Messages = ctx.Messages[len(ctx.Messages)-ctx.maxLength:]
	}
}

// History returns a copy of userID's conversation history. An expired
// context is replaced by a fresh empty one first.
func (s *Store) History(userID int64) []models.DialogMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getOrCreateLocked(userID)
	history := make([]models.DialogMessage, len(ctx.Messages))
	copy(history, ctx.Messages)
	return history
}

// Reset clears userID's history and reports whether a context existed.
// The context record itself is kept; its activity timestamp is refreshed
// so a freshly reset dialog is not swept as expired.
func (s *Store) Reset(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.contexts[userID]
	if !ok {
		return false
	}
	ctx.Messages = nil
	ctx.UpdatedAt = s.now()
	s.logger.WithField("user_id", userID).Info("Dialog context cleared")
	return true
}

// UserInfo returns liveness metadata for userID's context.
func (s *Store) UserInfo(userID int64) Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getOrCreateLocked(userID)
	return Info{
		UserID:       userID,
		MessageCount: len(ctx.Messages),
		CreatedAt:    ctx.CreatedAt,
		UpdatedAt:    ctx.UpdatedAt,
		Expired:      ctx.expiredAt(s.now()),
	}
}

// SweepExpired removes all expired contexts and returns how many were
// removed. Intended to run on a fixed interval, independent of request
// handling.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, ctx := range s.contexts {
		if ctx.expiredAt(now) {
			delete(s.contexts, userID)
			removed++
		}
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Swept expired dialog contexts")
	}
	return removed
}

// Stats returns a snapshot of the store.
func (s *Store) Stats() models.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	active := 0
	for _, ctx := range s.contexts {
		if !ctx.expiredAt(now) {
			active++
		}
	}
	return models.StoreStats{
		Total:     len(s.contexts),
		Active:    active,
		Expired:   len(s.contexts) - active,
		MaxLength: s.maxLength,
		Timeout:   s.timeout,
	}
}
