package ai

import (
	"strings"
	"testing"
)

func TestExtractListShape(t *testing.T) {
	payload := []byte(`[{"generated_text": "Привет! Чем могу помочь?"}]`)

	text, modelErr, ok := Extract(payload)
	if !ok || modelErr != "" {
		t.Fatalf("Extract failed: ok=%v modelErr=%q", ok, modelErr)
	}
	if text != "Привет! Чем могу помочь?" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractListStripsPromptEcho(t *testing.T) {
	payload := []byte(`[{"generated_text": "Ассистент: текст ответа"}]`)

	text, _, ok := Extract(payload)
	if !ok {
		t.Fatal("Extract failed")
	}
	if text != "текст ответа" {
		t.Errorf("text = %q, want %q", text, "текст ответа")
	}
}

func TestExtractListLastMarkerWins(t *testing.T) {
	payload := []byte(`[{"generated_text": "Пользователь: вопрос\nАссистент: раз\nАссистент: два"}]`)

	text, _, ok := Extract(payload)
	if !ok {
		t.Fatal("Extract failed")
	}
	if text != "два" {
		t.Errorf("text = %q, want %q", text, "два")
	}
}

func TestExtractListSkipsEmptyRecords(t *testing.T) {
	payload := []byte(`[{"score": 0.1}, {"generated_text": "ответ"}]`)

	text, _, ok := Extract(payload)
	if !ok || text != "ответ" {
		t.Errorf("Extract = (%q, %v)", text, ok)
	}
}

func TestExtractSingleShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"generated_text", `{"generated_text": "ответ модели"}`, "ответ модели"},
		{"text", `{"text": "другой ответ"}`, "другой ответ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, modelErr, ok := Extract([]byte(tt.payload))
			if !ok || modelErr != "" || text != tt.want {
				t.Errorf("Extract = (%q, %q, %v), want (%q, \"\", true)", text, modelErr, ok, tt.want)
			}
		})
	}
}

func TestExtractModelError(t *testing.T) {
	payload := []byte(`{"error": "Model is currently loading"}`)

	_, modelErr, ok := Extract(payload)
	if ok {
		t.Error("Error payload should not extract")
	}
	if modelErr != "Model is currently loading" {
		t.Errorf("modelErr = %q", modelErr)
	}
}

func TestExtractUnrecognized(t *testing.T) {
	for _, payload := range []string{`[]`, `{}`, `"строка"`, `42`, `not json`} {
		if _, _, ok := Extract([]byte(payload)); ok {
			t.Errorf("Extract(%q) unexpectedly succeeded", payload)
		}
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	if got := Clean("  много \n\n пробелов.  "); got != "много пробелов." {
		t.Errorf("Clean = %q", got)
	}
}

func TestCleanAppendsPeriod(t *testing.T) {
	if got := Clean("ответ без точки"); got != "ответ без точки." {
		t.Errorf("Clean = %q", got)
	}
}

func TestCleanTerminalPunctuation(t *testing.T) {
	// Any non-empty input must end with sentence-terminal punctuation.
	inputs := []string{
		"вопрос?",
		"восклицание!",
		"двоеточие:",
		"скобка)",
		"текст без знака",
		"смайлик :)",
		strings.Repeat("слово ", 400),
	}
	for _, in := range inputs {
		got := Clean(in)
		if got == "" {
			t.Fatalf("Clean(%q) returned empty", in)
		}
		last := []rune(got)[len([]rune(got))-1]
		if !strings.ContainsRune(terminalPunct, last) {
			t.Errorf("Clean(%q) ends in %q", in, last)
		}
	}
}

func TestCleanTruncates(t *testing.T) {
	got := Clean(strings.Repeat("а", 1500))
	runes := []rune(got)
	if len(runes) != 1003 {
		t.Errorf("Truncated length = %d runes, want 1003", len(runes))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("Truncated text missing marker")
	}
}

func TestCleanEmpty(t *testing.T) {
	if got := Clean("   "); got != "" {
		t.Errorf("Clean(whitespace) = %q, want empty", got)
	}
}
