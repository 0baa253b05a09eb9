package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"

	"TelegramBotReminder/application"
	"TelegramBotReminder/domain"
	"TelegramBotReminder/handler"
	"TelegramBotReminder/infrastructure"
	"TelegramBotReminder/infrastructure/rutime"
)

// mongoConnectWait bounds the startup retries against MongoDB.
const mongoConnectWait = 30 * time.Second

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "reminder-bot",
		Short:         "Telegram bot for one-shot reminders written in plain Russian",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(envFile)
			if err != nil {
				return err
			}
			if err := run(cmd.Context(), cfg, logger); err != nil {
				logger.Error().Err(err).Msg("reminder bot stopped")
				return err
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to a .env file; a missing file is ignored")

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate configuration, open the store and print the number of stored reminders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(envFile)
			if err != nil {
				return err
			}
			return check(cmd.Context(), cmd, cfg, logger)
		},
	})

	return root
}

func setup(envFile string) (*infrastructure.Config, zerolog.Logger, error) {
	cfg, err := infrastructure.LoadConfig(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return nil, zerolog.Nop(), err
	}
	logger := infrastructure.NewLogger(cfg.LogLevel)
	logger.Info().
		Str("store_driver", cfg.StoreDriver).
		Bool("metrics", cfg.MetricsAddr != "").
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")
	return cfg, logger, nil
}

func openRepository(ctx context.Context, cfg *infrastructure.Config, logger zerolog.Logger) (domain.ReminderRepository, error) {
	switch cfg.StoreDriver {
	case infrastructure.DriverMongo:
		client, err := infrastructure.ConnectMongoDB(ctx, cfg.MongoURI, mongoConnectWait, logger)
		if err != nil {
			return nil, err
		}
		repo := domain.NewMongoReminderRepository(client, cfg.MongoDatabase, cfg.StoreTimeout)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil
	default:
		db, err := infrastructure.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo, err := domain.NewSQLiteReminderRepository(ctx, db, cfg.StoreTimeout)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return repo, nil
	}
}

func check(ctx context.Context, cmd *cobra.Command, cfg *infrastructure.Config, logger zerolog.Logger) error {
	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	reminders, err := repo.GetReminders(ctx, nil)
	if err != nil {
		return err
	}

	now := time.Now()
	due := 0
	for _, r := range reminders {
		if !r.Time().After(now) {
			due++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "store: %s\nreminders: %d\nalready due: %d\n", cfg.StoreDriver, len(reminders), due)
	return nil
}

func run(ctx context.Context, cfg *infrastructure.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Подключение к хранилищу напоминаний
	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer repo.Close()

	// Создаем нового бота
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.TelegramToken,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c tele.Context) {
			event := logger.Error().Err(err)
			if c != nil && c.Chat() != nil {
				event = event.Int64("chat_id", c.Chat().ID)
			}
			event.Msg("telegram handler failed")
		},
	})
	if err != nil {
		return errors.Wrap(err, "create telegram bot")
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.SendRate), max(1, int(cfg.SendRate)))
	notifier := handler.NewTelegramNotifier(bot, limiter)
	scheduler := application.NewScheduler(repo, notifier, logger, cfg.DeliveryTimeout)
	defer scheduler.Stop()

	locator := infrastructure.NewGeoNamesLocator(cfg.GeoNamesURL, cfg.GeoNamesUsername, cfg.GeoNamesTimeout)
	service := application.NewReminderService(repo, application.NewResolver(rutime.New()), scheduler, locator, logger)

	// timers must be armed before the first update is processed
	if err := service.Start(ctx); err != nil {
		return errors.Wrap(err, "reconcile reminders")
	}

	botUsername := cfg.BotUsername
	if botUsername == "" {
		botUsername = bot.Me.Username
	}
	bot.Use(handler.RateLimit(limiter))
	handler.NewReminderHandler(service, application.NewConversation(service), botUsername).HandleMessages(bot)

	// Запуск бота
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("bot", bot.Me.Username).Msg("bot started")
		bot.Start()
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		bot.Stop()
		return nil
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics server")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
