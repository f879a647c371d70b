package ai

import (
	"strings"

	"github.com/codequeen-tgbot-go/internal/models"
)

// Role labels used when rendering a prompt. AssistantMarker doubles as
// the continuation signal at the end of the prompt and as the echo marker
// stripped from responses.
const (
	UserLabel       = "Пользователь"
	AssistantLabel  = "Ассистент"
	AssistantMarker = AssistantLabel + ":"
)

const systemPreamble = "Ты — дружелюбный ассистент. Отвечай кратко и по существу на русском языке.\n\n"

const greetingPreamble = "Ты — дружелюбный ассистент. Поприветствуй нового собеседника и ответь на его сообщение кратко и по существу на русском языке.\n\n"

func roleLabel(role string) string {
	if role == models.RoleAssistant {
		return AssistantLabel
	}
	return UserLabel
}

// BuildPrompt renders the conversation into a single text block: a system
// preamble, the most recent window of history entries, the new user
// message, and a trailing assistant marker for the model to continue
// from. An empty history gets a greeting preamble instead of a bare
// render.
func (c *Client) BuildPrompt(history []models.DialogMessage, message string) string {
	var b strings.Builder

	if len(history) == 0 {
		b.WriteString(greetingPreamble)
	} else {
		b.WriteString(systemPreamble)
	}

	if len(history) > c.historyWindow {
		history = history[len(history)-c.historyWindow:]
	}
	for _, msg := range history {
		b.WriteString(roleLabel(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	b.WriteString(UserLabel)
	b.WriteString(": ")
	b.WriteString(message)
	b.WriteString("\n")
	b.WriteString(AssistantMarker)

	return b.String()
}
