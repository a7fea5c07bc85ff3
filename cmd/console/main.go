package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/notify"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/infra/config"
	idb "github.com/hojiakbarsobirov/admin-pannel-sub000/internal/infra/database"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/infra/logger"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/infra/memstore"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/infra/scheduler"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Record store
	var store record.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		mainLogger.Warn("Using in-memory record store, data is lost on exit")
		store = memstore.NewTransactional()
	default:
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			mainLogger.Fatalf("Could not connect to database: %v", err)
		}
		defer func(db *sql.DB) { _ = db.Close() }(db)
		if cfg.RunMigrations {
			if err := idb.Migrate(ctx, db); err != nil {
				mainLogger.Fatalf("Could not migrate database: %v", err)
			}
		}
		store = idb.NewPostgresRecordStore(db)
		mainLogger.Info("Database connection established")
	}

	// Telegram bot (optional)
	var (
		bot      *telebot.Bot
		notifier notify.Notifier = app.NopNotifier{}
	)
	if cfg.TelegramToken != "" {
		botLogger := logger.Component("telegram")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID).WithField("chat_id", c.Chat().ID)
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			mainLogger.Fatalf("Could not create Telegram bot: %v", err)
		}
		notifier = telegram.NewAdminNotifier(telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID)
	}

	// Services
	groups := app.NewGroupService(store, logger.Component("groups"))
	services := telegram.Services{
		Search:     app.NewSearchService(store, logger.Component("search")),
		Groups:     groups,
		Attendance: app.NewAttendanceService(store, groups, logger.Component("attendance")),
		Reconciler: app.NewReconciler(store, notifier, logger.Component("reconciler")),
	}
	lifecycle := telegram.LifecycleServices{
		Leads:  app.NewLeadService(store, logger.Component("leads")),
		Engine: app.NewLifecycleEngine(store, app.NewEnroller(logger.Component("enrollment")), notifier, logger.Component("lifecycle")),
		Debts:  app.NewDebtService(store, logger.Component("debts")),
	}

	// Reconciliation scheduler
	reconcileScheduler := scheduler.NewReconcileScheduler(services.Reconciler, logger.Component("scheduler"), cfg.CronSpecReconcile, cfg.ReconcileTimeout)
	if err := reconcileScheduler.Start(); err != nil {
		mainLogger.Fatalf("Could not start scheduler: %v", err)
	}

	if bot != nil {
		botLogger := logger.Component("telegram")
		telegram.RegisterBotCommands(bot, cfg.AdminTelegramID, botLogger)
		telegram.RegisterAdminHandlers(ctx, bot, services, cfg.AdminTelegramID, botLogger)
		telegram.RegisterAttendanceHandlers(ctx, bot, services, cfg.AdminTelegramID, botLogger)
		telegram.RegisterLifecycleHandlers(ctx, bot, lifecycle, cfg.AdminTelegramID, botLogger)
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	mainLogger.Info("Application setup complete")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	if bot != nil {
		bot.Stop()
	}
	<-reconcileScheduler.Stop().Done()
	mainLogger.Info("Application shut down gracefully")
}
