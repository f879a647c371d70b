package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Localizer manages the fixed user-facing strings.
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.Russian)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.Directory, lang+".json")
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgWelcome           = "welcome"
	MsgHelp              = "help"
	MsgAbout             = "about"
	MsgProcessing        = "processing"
	MsgError             = "error"
	MsgTimeout           = "api_timeout"
	MsgEmptyOutput       = "empty_output"
	MsgContentWarning    = "content_warning"
	MsgMessageTooLong    = "message_too_long"
	MsgEmptyMessage      = "empty_message"
	MsgResetSuccess      = "reset_success"
	MsgResetEmpty        = "reset_empty"
	MsgUnsupported       = "unsupported_message"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgStatus            = "status"
	MsgStats             = "stats"
	MsgAIAvailable       = "ai_available"
	MsgAIUnavailable     = "ai_unavailable"
)
