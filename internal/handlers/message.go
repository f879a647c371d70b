package handlers

import (
	"context"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/codequeen-tgbot-go/internal/i18n"
	"github.com/codequeen-tgbot-go/internal/middleware"
	"github.com/codequeen-tgbot-go/internal/services/conversation"
	"github.com/codequeen-tgbot-go/pkg/markdown"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// MessageHandler handles regular text messages
type MessageHandler struct {
	bot          *tgbotapi.BotAPI
	config       *config.Config
	conversation *conversation.Service
	rateLimiter  middleware.RateLimiter
	localizer    *i18n.Localizer
	metrics      *middleware.Metrics
	stats        *BotStats
	logger       *logrus.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(
	bot *tgbotapi.BotAPI,
	cfg *config.Config,
	conversationService *conversation.Service,
	rateLimiter middleware.RateLimiter,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	stats *BotStats,
	logger *logrus.Logger,
) *MessageHandler {
	return &MessageHandler{
		bot:          bot,
		config:       cfg,
		conversation: conversationService,
		rateLimiter:  rateLimiter,
		localizer:    localizer,
		metrics:      metrics,
		stats:        stats,
		logger:       logger,
	}
}

// HandleMessage processes one inbound update
func (h *MessageHandler) HandleMessage(ctx context.Context, update *tgbotapi.Update) error {
	message := update.Message
	if message == nil || message.IsCommand() {
		return nil
	}

	// Ignore the bot's own messages
	if message.From.ID == h.bot.Self.ID {
		return nil
	}

	userID := message.From.ID
	chatID := message.Chat.ID
	h.stats.CountMessage()
	h.metrics.RecordMessageReceived()

	// Only text reaches the conversation pipeline.
	if message.Text == "" {
		return h.send(chatID, message.MessageID, h.msg(i18n.MsgUnsupported))
	}

	if !h.rateLimiter.Allow(userID) {
		h.metrics.RecordRateLimitExceeded()
		return h.send(chatID, message.MessageID, h.msg(i18n.MsgRateLimitExceeded))
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"length":  len(message.Text),
	}).Info("Message received")

	// Show "processing" right away, then edit it with the reply.
	processingMsg := tgbotapi.NewMessage(chatID, h.msg(i18n.MsgProcessing))
	processingMsg.ReplyToMessageID = message.MessageID
	sent, err := h.bot.Send(processingMsg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to send processing message")
		return err
	}

	// Process in the background so one user's retries never stall the
	// update loop for everyone else.
	go h.processMessage(ctx, userID, chatID, sent.MessageID, message.Text)

	return nil
}

func (h *MessageHandler) processMessage(ctx context.Context, userID, chatID int64, processingMsgID int, text string) {
	reqCtx, cancel := context.WithTimeout(ctx, h.config.Bot.RequestTimeout)
	defer cancel()

	reply := h.conversation.Process(reqCtx, userID, text)
	h.metrics.RecordMessageProcessed("success")

	h.editReply(chatID, processingMsgID, reply)
}

// editReply replaces the processing message with the reply, falling back
// to plain text when Telegram rejects the HTML rendering.
func (h *MessageHandler) editReply(chatID int64, messageID int, reply string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, markdown.ToTelegramHTML(reply))
	edit.ParseMode = tgbotapi.ModeHTML

	if _, err := h.bot.Send(edit); err != nil {
		h.logger.WithError(err).Warn("Failed to send HTML reply, trying plain text")
		edit.ParseMode = ""
		edit.Text = reply
		if _, err := h.bot.Send(edit); err != nil {
			h.logger.WithError(err).Error("Failed to send reply")
		}
	}
}

func (h *MessageHandler) send(chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.WithError(err).Error("Failed to send message")
		return err
	}
	return nil
}

func (h *MessageHandler) msg(id string) string {
	return h.localizer.Get(h.config.I18n.DefaultLanguage, id, nil)
}
