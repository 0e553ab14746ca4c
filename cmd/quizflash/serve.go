package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/quizflash/internal/api"
	"github.com/vytor/quizflash/internal/config"
	"github.com/vytor/quizflash/internal/events"
	"github.com/vytor/quizflash/internal/locks"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/mastery"
	"github.com/vytor/quizflash/internal/quiz"
	"github.com/vytor/quizflash/internal/repository/sqlstore"
	"github.com/vytor/quizflash/internal/scheduler"
	"github.com/vytor/quizflash/internal/selector"
	"github.com/vytor/quizflash/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides ADDR env var)")
}

func serve(cfg config.Config) error {
	log := logger.Default()

	log.Info("===========================================")
	log.Info("QuizFlash Server Starting")
	log.Info("===========================================")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_driver=%s", cfg.DBDriver)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("answer_time_limit=%s", cfg.AnswerTimeLimit)
	log.Debug("default_question_count=%d", cfg.DefaultQuestionCount)
	log.Debug("redis_addr=%s", cfg.RedisAddr)
	log.Debug("event_worker_count=%d", cfg.EventWorkerCount)
	log.Debug("event_queue_size=%d", cfg.EventQueueSize)

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	broker, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	eventPool := worker.NewPool(cfg.EventWorkerCount, cfg.EventQueueSize)
	publisher := events.NewAsyncPublisher(broker, eventPool)

	store := sqlstore.New(database)
	sched := scheduler.New(store, locker)
	sel := selector.New(store, sched)
	quizService := quiz.NewService(store, sel, sched, locker, publisher, quiz.Config{
		DefaultQuestionCount: cfg.DefaultQuestionCount,
		AnswerTimeLimit:      cfg.AnswerTimeLimit,
	})
	srv := api.NewServer(quizService, mastery.NewScorer(store), database)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventPool.Start(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-stop:
		log.Info("received signal %v, initiating graceful shutdown", sig)
	case runErr = <-serverErr:
		log.Error("HTTP server error: %v", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("flushing event pool")
	eventPool.Stop(shutdownCtx)
	if err := publisher.Close(); err != nil {
		log.Warn("failed to close event publisher: %v", err)
	}

	log.Info("===========================================")
	log.Info("QuizFlash Server Stopped")
	log.Info("===========================================")
	return runErr
}

// newLocker uses Redis when REDIS_ADDR is set so several instances can share
// one database; otherwise locks are process-local.
func newLocker(cfg config.Config) (locks.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Default().Info("using in-process user locks")
		return locks.NewKeyedMutex(), func() {}, nil
	}
	client, err := locks.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Default().Info("using redis user locks at %s", cfg.RedisAddr)
	return locks.NewRedisLocker(client, cfg.LockTTL), func() { _ = client.Close() }, nil
}

func newPublisher(cfg config.Config) (events.Publisher, error) {
	if cfg.RabbitMQURL == "" {
		logger.Default().Info("event publishing disabled")
		return events.NoopPublisher{}, nil
	}
	p, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	logger.Default().Info("publishing events to queue %s", cfg.EventsQueue)
	return p, nil
}
