package handlers

import (
	"context"
	"fmt"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/codequeen-tgbot-go/internal/i18n"
	"github.com/codequeen-tgbot-go/internal/services/ai"
	"github.com/codequeen-tgbot-go/internal/services/conversation"
	"github.com/codequeen-tgbot-go/internal/services/dialog"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	bot          *tgbotapi.BotAPI
	config       *config.Config
	conversation *conversation.Service
	store        *dialog.Store
	aiClient     ai.Service
	localizer    *i18n.Localizer
	stats        *BotStats
	logger       *logrus.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	bot *tgbotapi.BotAPI,
	cfg *config.Config,
	conversationService *conversation.Service,
	store *dialog.Store,
	aiClient ai.Service,
	localizer *i18n.Localizer,
	stats *BotStats,
	logger *logrus.Logger,
) *CommandHandler {
	return &CommandHandler{
		bot:          bot,
		config:       cfg,
		conversation: conversationService,
		store:        store,
		aiClient:     aiClient,
		localizer:    localizer,
		stats:        stats,
		logger:       logger,
	}
}

// HandleCommand processes a command message
func (h *CommandHandler) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := message.From.ID
	h.stats.CountMessage()

	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"command": message.Command(),
	}).Info("Command received")

	switch message.Command() {
	case "start":
		return h.handleStart(message)
	case "help":
		return h.reply(message, h.msg(i18n.MsgHelp))
	case "about":
		return h.reply(message, h.msg(i18n.MsgAbout))
	case "reset":
		return h.handleReset(message)
	case "status":
		return h.handleStatus(ctx, message)
	case "stats":
		return h.handleStats(message)
	default:
		return h.reply(message, h.msg(i18n.MsgHelp))
	}
}

func (h *CommandHandler) handleStart(message *tgbotapi.Message) error {
	h.stats.CountUser()

	welcome := h.msg(i18n.MsgWelcome)
	if err := h.reply(message, welcome); err != nil {
		return err
	}

	// The greeting becomes part of the dialog so the model can refer to it.
	h.conversation.RecordGreeting(message.From.ID, welcome)
	return nil
}

func (h *CommandHandler) handleReset(message *tgbotapi.Message) error {
	cleared := h.store.Reset(message.From.ID)
	if cleared {
		return h.reply(message, h.msg(i18n.MsgResetSuccess))
	}
	return h.reply(message, h.msg(i18n.MsgResetEmpty))
}

func (h *CommandHandler) handleStatus(ctx context.Context, message *tgbotapi.Message) error {
	aiStatus := h.msg(i18n.MsgAIUnavailable)
	if h.aiClient.TestConnectivity(ctx) {
		aiStatus = h.msg(i18n.MsgAIAvailable)
	}

	storeStats := h.store.Stats()
	text := h.localizer.Get(h.lang(), i18n.MsgStatus, map[string]interface{}{
		"AIStatus":      aiStatus,
		"Uptime":        h.stats.Uptime(),
		"ActiveDialogs": storeStats.Active,
		"TotalMessages": h.stats.Messages(),
	})
	return h.reply(message, text)
}

func (h *CommandHandler) handleStats(message *tgbotapi.Message) error {
	storeStats := h.store.Stats()
	serviceStats := h.conversation.Stats()
	userInfo := h.store.UserInfo(message.From.ID)

	text := h.localizer.Get(h.lang(), i18n.MsgStats, map[string]interface{}{
		"Uptime":        h.stats.Uptime(),
		"TotalUsers":    h.stats.Users(),
		"TotalMessages": h.stats.Messages(),
		"ActiveDialogs": storeStats.Active,
		"AIRequests":    serviceStats.TotalRequests,
		"SuccessRate":   fmt.Sprintf("%.1f", serviceStats.SuccessRate()),
		"UserMessages":  userInfo.MessageCount,
		"ContextSize":   storeStats.MaxLength,
	})
	return h.reply(message, text)
}

func (h *CommandHandler) reply(message *tgbotapi.Message, text string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := h.bot.Send(msg); err != nil {
		// Markdown in user content can break parsing; fall back to plain.
		msg.ParseMode = ""
		if _, err := h.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send reply: %w", err)
		}
	}
	return nil
}

func (h *CommandHandler) msg(id string) string {
	return h.localizer.Get(h.lang(), id, nil)
}

func (h *CommandHandler) lang() string {
	return h.config.I18n.DefaultLanguage
}
