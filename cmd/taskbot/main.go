package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskbot/internal/bot"
	"taskbot/internal/config"
	"taskbot/internal/repository"
	"taskbot/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:          "taskbot",
		Short:        "Telegram task tracker with deadline reminders and recurring tasks",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and its schedulers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	taskRepo := repository.NewTaskRepository(db)
	todoRepo := repository.NewTodoRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	taskSvc := service.NewTaskService(taskRepo, projectRepo, logger)
	recurSvc := service.NewRecurrenceService(taskRepo, todoRepo, logger)

	sessions := bot.NewMemorySessionStore()
	telegramBot, err := bot.New(cfg.TelegramToken, taskSvc, groupRepo, sessions, &cfg, logger)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	clockSvc := service.NewClockService(taskRepo, groupRepo, recurSvc, telegramBot, logger)
	digestSvc := service.NewDigestService(taskRepo, recurSvc, telegramBot, cfg.OwnerScanLimit, logger)

	scheduler := service.NewSchedulerService(cfg.Timezone)
	if _, err := scheduler.ScheduleEveryMinute(func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
		defer cancel()
		clockSvc.Tick(jobCtx, time.Now().In(cfg.Timezone))
	}); err != nil {
		return fmt.Errorf("schedule clock: %w", err)
	}

	dailyJobs := []struct {
		name string
		at   string
		run  func(context.Context, time.Time)
	}{
		{"reconcile", cfg.ReconcileTime, digestSvc.ReconcileRecurring},
		{"morning summary", cfg.MorningTime, digestSvc.MorningSummary},
		{"triage", cfg.TriageTime, digestSvc.MorningTriage},
		{"evening plan", cfg.EveningTime, digestSvc.EveningPlan},
	}
	for _, job := range dailyJobs {
		run := job.run
		if _, err := scheduler.ScheduleDaily(job.at, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			run(jobCtx, time.Now().In(cfg.Timezone))
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("taskbot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
