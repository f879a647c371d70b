package conversation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/codequeen-tgbot-go/internal/i18n"
	"github.com/codequeen-tgbot-go/internal/middleware"
	"github.com/codequeen-tgbot-go/internal/models"
	"github.com/codequeen-tgbot-go/internal/services/ai"
	"github.com/codequeen-tgbot-go/internal/services/dialog"
	"github.com/codequeen-tgbot-go/internal/services/filter"
	"github.com/sirupsen/logrus"
)

type fakeAI struct {
	reply string
	err   error
	calls int
}

func (f *fakeAI) Generate(ctx context.Context, history []models.DialogMessage, message string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeAI) TestConnectivity(ctx context.Context) bool {
	return true
}

const testMessages = `{
	"welcome": "Добро пожаловать!",
	"error": "Произошла ошибка. Попробуйте позже.",
	"api_timeout": "Сервис не отвечает. Попробуйте позже.",
	"empty_output": "Не удалось сгенерировать ответ. Попробуйте ещё раз.",
	"content_warning": "Пожалуйста, общайтесь вежливо.",
	"message_too_long": "Сообщение слишком длинное.",
	"empty_message": "Отправьте текстовое сообщение."
}`

func testLocalizer(t *testing.T) *i18n.Localizer {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ru.json"), []byte(testMessages), 0o644); err != nil {
		t.Fatal(err)
	}

	localizer, err := i18n.NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "ru",
		Directory:       dir,
		Languages:       []string{"ru"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return localizer
}

func newTestService(t *testing.T, client ai.Service) (*Service, *dialog.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := dialog.NewStore(&config.ContextConfig{
		MaxLength:      10,
		SessionTimeout: time.Hour,
	}, logger)

	filterCfg := &config.FilterConfig{
		BadWords:       []string{"глупый"},
		MaxMessageLen:  1000,
		CharRunLimit:   10,
		UppercaseRatio: 0.7,
		WordRepeatMax:  5,
	}

	svc := NewService(
		store,
		filter.NewFilter(filterCfg, logger),
		filter.NewValidator(filterCfg),
		client,
		testLocalizer(t),
		"ru",
		middleware.NewMetrics(),
		logger,
	)
	return svc, store
}

func TestProcessSuccess(t *testing.T) {
	fake := &fakeAI{reply: "Привет! Чем могу помочь?"}
	svc, store := newTestService(t, fake)

	reply := svc.Process(context.Background(), 1, "привет")
	if reply != "Привет! Чем могу помочь?" {
		t.Errorf("reply = %q", reply)
	}

	history := store.History(1)
	if len(history) != 2 {
		t.Fatalf("Expected user+assistant recorded, got %d messages", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "привет" {
		t.Errorf("Unexpected user record: %+v", history[0])
	}
	if history[1].Role != models.RoleAssistant || history[1].Content != fake.reply {
		t.Errorf("Unexpected assistant record: %+v", history[1])
	}
}

func TestProcessSanitizesBeforeInference(t *testing.T) {
	fake := &fakeAI{reply: "ок."}
	svc, store := newTestService(t, fake)

	svc.Process(context.Background(), 1, "   привет    мир   ")

	if got := store.History(1)[0].Content; got != "привет мир" {
		t.Errorf("Recorded text not sanitized: %q", got)
	}
}

func TestProcessContentRejected(t *testing.T) {
	fake := &fakeAI{reply: "не должно дойти"}
	svc, store := newTestService(t, fake)

	reply := svc.Process(context.Background(), 1, "ты глупый бот")
	if reply != "Пожалуйста, общайтесь вежливо." {
		t.Errorf("reply = %q", reply)
	}
	if fake.calls != 0 {
		t.Error("Rejected message must not reach inference")
	}
	if len(store.History(1)) != 0 {
		t.Error("Rejected message must not be recorded")
	}
}

func TestProcessValidation(t *testing.T) {
	fake := &fakeAI{reply: "ок."}
	svc, _ := newTestService(t, fake)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "   ", "Отправьте текстовое сообщение."},
		{"too long", longText(1001), "Сообщение слишком длинное."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Process(context.Background(), 1, tt.text); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
	if fake.calls != 0 {
		t.Error("Invalid messages must not reach inference")
	}
}

func TestProcessInferenceFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", &ai.Error{Kind: ai.ErrKindTimeout}, "Сервис не отвечает. Попробуйте позже."},
		{"empty output", &ai.Error{Kind: ai.ErrKindEmptyOutput}, "Не удалось сгенерировать ответ. Попробуйте ещё раз."},
		{"api error", &ai.Error{Kind: ai.ErrKindAPI, Status: 500}, "Произошла ошибка. Попробуйте позже."},
		{"network", &ai.Error{Kind: ai.ErrKindNetwork}, "Произошла ошибка. Попробуйте позже."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, &fakeAI{err: tt.err})

			if got := svc.Process(context.Background(), 1, "вопрос"); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
			// History is written only on full success.
			if len(store.History(1)) != 0 {
				t.Error("Failed exchange must not be recorded")
			}
		})
	}
}

func TestStatsCounters(t *testing.T) {
	svc, _ := newTestService(t, &fakeAI{err: &ai.Error{Kind: ai.ErrKindAPI}})

	svc.Process(context.Background(), 1, "вопрос")
	svc.Process(context.Background(), 1, "ты глупый бот")

	stats := svc.Stats()
	if stats.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", stats.TotalRequests)
	}
	if stats.TotalErrors != 2 {
		t.Errorf("TotalErrors = %d, want 2", stats.TotalErrors)
	}
	if stats.SuccessRate() != 0 {
		t.Errorf("SuccessRate = %v, want 0", stats.SuccessRate())
	}
}

func TestRecordGreeting(t *testing.T) {
	svc, store := newTestService(t, &fakeAI{reply: "ок."})

	svc.RecordGreeting(5, "Добро пожаловать!")

	history := store.History(5)
	if len(history) != 1 || history[0].Role != models.RoleAssistant {
		t.Fatalf("Greeting not recorded as assistant message: %+v", history)
	}
}

func longText(n int) string {
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = 'б'
	}
	return string(runes)
}
