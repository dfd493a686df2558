// Package main is the entry point for the bibliotek API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmdelacruz/bibliotek/internal/api"
	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/config"
	"github.com/jmdelacruz/bibliotek/internal/database"
	"github.com/jmdelacruz/bibliotek/internal/policy"
	"github.com/jmdelacruz/bibliotek/internal/repository"
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

	policies := policy.NewService(repository.NewSettingStore(pool))
	circs := repository.NewCirculationStore(pool)
	engine := circulation.NewEngine(circs, policies, nil)

	srv := api.New(cfg, api.Deps{
		Engine:       engine,
		Circulations: circs,
		Catalog:      repository.NewCatalogStore(pool),
		Patrons:      repository.NewPatronStore(pool),
		Attendance:   repository.NewAttendanceStore(pool),
		Reports:      repository.NewReportStore(pool),
		Policies:     policies,
	})
	if err := srv.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
