package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/codequeen-tgbot-go/internal/handlers"
	"github.com/codequeen-tgbot-go/internal/i18n"
	"github.com/codequeen-tgbot-go/internal/middleware"
	"github.com/codequeen-tgbot-go/internal/services/ai"
	"github.com/codequeen-tgbot-go/internal/services/cache"
	"github.com/codequeen-tgbot-go/internal/services/conversation"
	"github.com/codequeen-tgbot-go/internal/services/dialog"
	"github.com/codequeen-tgbot-go/internal/services/filter"
	"github.com/codequeen-tgbot-go/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting dialog bot...")

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}

	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	store := dialog.NewStore(&cfg.Context, log)
	cacheService := cache.NewCache(&cfg.Cache, log)
	aiClient := ai.NewClient(&cfg.Inference, cacheService, log)
	contentFilter := filter.NewFilter(&cfg.Filter, log)
	validator := filter.NewValidator(&cfg.Filter)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	metrics := middleware.NewMetrics()

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	conversationService := conversation.NewService(
		store,
		contentFilter,
		validator,
		aiClient,
		localizer,
		cfg.I18n.DefaultLanguage,
		metrics,
		log,
	)

	if aiClient.TestConnectivity(ctx) {
		log.Info("Inference endpoint reachable")
	} else {
		log.Warn("Inference endpoint unreachable, continuing anyway")
	}

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	botStats := handlers.NewBotStats()

	commandHandler := handlers.NewCommandHandler(
		bot,
		cfg,
		conversationService,
		store,
		aiClient,
		localizer,
		botStats,
		log,
	)

	messageHandler := handlers.NewMessageHandler(
		bot,
		cfg,
		conversationService,
		rateLimiter,
		localizer,
		metrics,
		botStats,
		log,
	)

	// Setup update channel
	var updates tgbotapi.UpdatesChannel

	if cfg.Bot.Webhook.Enabled {
		webhookURL := fmt.Sprintf("%s/%s", cfg.Bot.Webhook.URL, bot.Token)
		webhook, err := tgbotapi.NewWebhook(webhookURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to create webhook")
		}

		if _, err := bot.Request(webhook); err != nil {
			log.WithError(err).Fatal("Failed to set webhook")
		}

		updates = bot.ListenForWebhook("/" + bot.Token)

		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Bot.Webhook.Port)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.WithError(err).Fatal("Webhook server failed")
			}
		}()
		log.WithField("url", webhookURL).Info("Webhook set")
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = cfg.Bot.UpdateTimeout

		updates = bot.GetUpdatesChan(u)
		log.Info("Using long polling")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Main bot loop
	go func() {
		for update := range updates {
			if update.Message == nil {
				continue
			}

			if update.Message.IsCommand() {
				metrics.RecordCommandExecuted(update.Message.Command())

				if err := commandHandler.HandleCommand(ctx, update.Message); err != nil {
					log.WithError(err).Error("Failed to handle command")
					metrics.RecordMessageProcessed("error")
				} else {
					metrics.RecordMessageProcessed("success")
				}
				continue
			}

			if err := messageHandler.HandleMessage(ctx, &update); err != nil {
				log.WithError(err).Error("Failed to handle message")
				metrics.RecordMessageProcessed("error")
			}
		}
	}()

	// Start periodic tasks
	go startPeriodicTasks(ctx, cfg, store, metrics, log)

	<-sigChan
	log.Info("Shutdown signal received")

	if cfg.Bot.Webhook.Enabled {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Error("Failed to delete webhook")
		}
	}

	cancel()

	// Give goroutines time to finish
	time.Sleep(2 * time.Second)

	log.Info("Bot stopped")
}

// startPeriodicTasks sweeps expired dialog contexts and refreshes the
// active-context gauge on a fixed interval.
func startPeriodicTasks(ctx context.Context, cfg *config.Config, store *dialog.Store, metrics *middleware.Metrics, log *logrus.Logger) {
	ticker := time.NewTicker(cfg.Context.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := store.SweepExpired()
			metrics.RecordContextsSwept(removed)
			metrics.SetActiveContexts(store.Stats().Active)
		}
	}
}
