package conversation

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/codequeen-tgbot-go/internal/i18n"
	"github.com/codequeen-tgbot-go/internal/middleware"
	"github.com/codequeen-tgbot-go/internal/models"
	"github.com/codequeen-tgbot-go/internal/services/ai"
	"github.com/codequeen-tgbot-go/internal/services/dialog"
	"github.com/codequeen-tgbot-go/internal/services/filter"
	"github.com/sirupsen/logrus"
)

// Service is the conversation orchestrator: it gates an inbound message,
// runs it through the inference client against the user's history, and
// records the exchange. Every return value is a user-safe string; no
// internal error ever crosses this boundary.
type Service struct {
	store     *dialog.Store
	filter    *filter.Filter
	validator *filter.Validator
	client    ai.Service
	localizer *i18n.Localizer
	lang      string
	metrics   *middleware.Metrics
	logger    *logrus.Logger

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewService creates a conversation orchestrator.
func NewService(
	store *dialog.Store,
	contentFilter *filter.Filter,
	validator *filter.Validator,
	client ai.Service,
	localizer *i18n.Localizer,
	lang string,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Service {
	return &Service{
		store:     store,
		filter:    contentFilter,
		validator: validator,
		client:    client,
		localizer: localizer,
		lang:      lang,
		metrics:   metrics,
		logger:    logger,
	}
}

// Process handles one inbound message and returns the reply text.
//
// Two messages from the same user processed concurrently may interleave
// their inference calls; replies can then arrive out of order. No
// per-user queue is kept.
func (s *Service) Process(ctx context.Context, userID int64, text string) (reply string) {
	s.requestCount.Add(1)

	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"panic":   r,
			}).Error("Panic while processing message")
			s.errorCount.Add(1)
			reply = s.msg(i18n.MsgError)
		}
	}()

	if ok, reason := s.validator.Validate(text); !ok {
		s.metrics.RecordMessageRejected(reason)
		if reason == filter.ReasonTooLong {
			return s.msg(i18n.MsgMessageTooLong)
		}
		return s.msg(i18n.MsgEmptyMessage)
	}

	text = s.validator.Sanitize(text)

	if ok, reason := s.filter.Check(text); !ok {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"reason":  reason,
		}).Warn("Message rejected by content filter")
		s.errorCount.Add(1)
		s.metrics.RecordMessageRejected(reason)
		return s.msg(i18n.MsgContentWarning)
	}

	// History is read before the network call and written after; no store
	// lock is held while the round trip is in flight.
	history := s.store.History(userID)

	start := time.Now()
	answer, err := s.client.Generate(ctx, history, text)
	if err != nil {
		s.errorCount.Add(1)
		s.metrics.RecordInferenceRequest("error", time.Since(start))
		s.logger.WithError(err).WithField("user_id", userID).Error("Inference failed")

		var aerr *ai.Error
		if errors.As(err, &aerr) {
			switch aerr.Kind {
			case ai.ErrKindTimeout:
				return s.msg(i18n.MsgTimeout)
			case ai.ErrKindEmptyOutput:
				return s.msg(i18n.MsgEmptyOutput)
			}
		}
		return s.msg(i18n.MsgError)
	}
	s.metrics.RecordInferenceRequest("success", time.Since(start))

	// Record the exchange only on full success.
	s.store.Append(userID, models.RoleUser, text)
	s.store.Append(userID, models.RoleAssistant, answer)

	return answer
}

// RecordGreeting stores a bot-sent greeting into the user's context so
// the model sees it as part of the conversation.
func (s *Service) RecordGreeting(userID int64, greeting string) {
	s.store.Append(userID, models.RoleAssistant, greeting)
}

// Stats returns the running request counters.
func (s *Service) Stats() models.ServiceStats {
	return models.ServiceStats{
		TotalRequests: s.requestCount.Load(),
		TotalErrors:   s.errorCount.Load(),
	}
}

func (s *Service) msg(id string) string {
	return s.localizer.Get(s.lang, id, nil)
}
