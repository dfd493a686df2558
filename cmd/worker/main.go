// Package main runs the background worker: an asynq server handling the
// periodic overdue sweep.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jmdelacruz/bibliotek/internal/config"
	"github.com/jmdelacruz/bibliotek/internal/database"
	"github.com/jmdelacruz/bibliotek/internal/policy"
	"github.com/jmdelacruz/bibliotek/internal/queue"
	"github.com/jmdelacruz/bibliotek/internal/repository"
	"github.com/jmdelacruz/bibliotek/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	policies := policy.NewService(repository.NewSettingStore(pool))
	processor := worker.NewProcessor(repository.NewReportStore(pool), policies, nil)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(
		"@every "+cfg.SweepInterval.String(),
		asynq.NewTask(queue.OverdueSweepTask, nil),
	); err != nil {
		log.Fatalf("register sweep schedule: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
	})
	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	if err := server.Run(processor.Handler()); err != nil {
		log.Printf("worker stopped: %v", err)
		os.Exit(1)
	}
}
