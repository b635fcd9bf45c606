package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"calendar-planner/internal/bot"
	"calendar-planner/internal/config"
	"calendar-planner/internal/gateway"
	"calendar-planner/internal/httpapi"
	"calendar-planner/internal/logger"
	"calendar-planner/internal/model"
	"calendar-planner/internal/reconcile"
	"calendar-planner/internal/repository"
	"calendar-planner/internal/service"
	"calendar-planner/internal/session"
)

// sessionStore is what both surfaces need from the configured session backend.
type sessionStore interface {
	session.Store
	ListAll(ctx context.Context) ([]model.Session, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = cfg.Log.Output
	logCfg.FilePath = cfg.Log.File
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("logger: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	var sessions sessionStore = repository.NewSessionRepository(db)
	if cfg.SessionStore == config.SessionStoreRedis {
		rdb, err := session.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb)
	}

	loc := time.Local
	gw := gateway.New(cfg.APIBaseURL, cfg.APITimeout)
	overlays := service.NewOverlays(reconcile.WithCelebration(cfg.CelebrateDuration))

	taskRepo := repository.NewTaskRepository(db)
	eventRepo := repository.NewEventRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	authSvc := service.NewAuthService(gw, sessions, overlays)
	calendarSvc := service.NewCalendarService(gw, taskRepo, eventRepo, overlays, loc)
	taskSvc := service.NewTaskService(gw, taskRepo, overlays, loc)
	eventSvc := service.NewEventService(gw, eventRepo, loc)
	noteSvc := service.NewNoteService(gw, repository.NewNoteRepository(db))
	categorySvc := service.NewCategoryService(gw, categoryRepo)
	reminderSvc := service.NewReminderService(taskRepo, eventRepo, categoryRepo, loc)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.TelegramToken != "" {
		telegramBot, err := bot.New(cfg.TelegramToken, bot.Services{
			Auth:       authSvc,
			Calendar:   calendarSvc,
			Tasks:      taskSvc,
			Events:     eventSvc,
			Notes:      noteSvc,
			Categories: categorySvc,
			Reminder:   reminderSvc,
		}, sessions, &cfg)
		if err != nil {
			log.Fatalf("bot: %v", err)
		}

		scheduler := service.NewSchedulerService(loc)
		if _, err := scheduler.Schedule(cfg.ReportAt, cfg.ReportInterval, func() {
			jobCtx, cancel := context.WithTimeout(gctx, 2*time.Minute)
			defer cancel()
			if err := telegramBot.SendReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("send reports", "error", err)
			}
		}); err != nil {
			log.Fatalf("schedule reports: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()

		g.Go(func() error { return telegramBot.Start(gctx) })
	}

	if cfg.HTTPAddr != "" {
		server := httpapi.New(httpapi.Services{
			Auth:     authSvc,
			Calendar: calendarSvc,
			Tasks:    taskSvc,
			Events:   eventSvc,
			Notes:    noteSvc,
		})
		g.Go(func() error { return server.Run(gctx, cfg.HTTPAddr) })
	}

	logger.Info("calendar planner started", "api", cfg.APIBaseURL, "session_store", cfg.SessionStore)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
