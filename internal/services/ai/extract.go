package ai

import (
	"encoding/json"
	"strings"
)

// maxResponseLen bounds cleaned response text.
const maxResponseLen = 1000

// terminalPunct is the set of acceptable sentence-terminal characters.
const terminalPunct = ".!?:)]}"

type generatedRecord struct {
	GeneratedText string `json:"generated_text"`
	Text          string `json:"text"`
	Error         string `json:"error"`
}

// Extract pulls generated text out of a raw endpoint payload. The payload
// may be a list of records, a single record with generated_text or text,
// or a single record carrying a model-reported error. ok is false when no
// shape matched.
func Extract(payload []byte) (text string, modelErr string, ok bool) {
	var records []generatedRecord
	if err := json.Unmarshal(payload, &records); err == nil {
		for _, rec := range records {
			if rec.GeneratedText != "" {
				return stripEcho(rec.GeneratedText), "", true
			}
		}
		return "", "", false
	}

	var single generatedRecord
	if err := json.Unmarshal(payload, &single); err == nil {
		if single.Error != "" {
			return "", single.Error, false
		}
		if single.GeneratedText != "" {
			return single.GeneratedText, "", true
		}
		if single.Text != "" {
			return single.Text, "", true
		}
	}

	return "", "", false
}

// stripEcho drops everything up to the last assistant marker when the
// model echoes the prompt back in its output.
func stripEcho(text string) string {
	if idx := strings.LastIndex(text, AssistantMarker); idx != -1 {
		return strings.TrimSpace(text[idx+len(AssistantMarker):])
	}
	return text
}

// Clean normalizes response text: whitespace runs collapse to single
// spaces, overlong text is truncated with a marker, and the result always
// ends in sentence-terminal punctuation.
func Clean(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	runes := []rune(text)
	if len(runes) > maxResponseLen {
		text = string(runes[:maxResponseLen]) + "..."
	}

	if !strings.ContainsRune(terminalPunct, []rune(text)[len([]rune(text))-1]) {
		text += "."
	}

	return strings.TrimSpace(text)
}
