// Package main is the bibliotek operator CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jmdelacruz/bibliotek/internal/api"
	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/config"
	"github.com/jmdelacruz/bibliotek/internal/database"
	"github.com/jmdelacruz/bibliotek/internal/model"
	"github.com/jmdelacruz/bibliotek/internal/policy"
	"github.com/jmdelacruz/bibliotek/internal/queue"
	"github.com/jmdelacruz/bibliotek/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bibliotek: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "bibliotek",
		Short:        "Library circulation service CLI",
		Long:         `Bibliotek CLI runs the API server and common operational tasks: bootstrapping the schema, seeding sample records, and triggering an immediate overdue sweep.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newSweepCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			policies := policy.NewService(repository.NewSettingStore(pool))
			circs := repository.NewCirculationStore(pool)
			srv := api.New(cfg, api.Deps{
				Engine:       circulation.NewEngine(circs, policies, nil),
				Circulations: circs,
				Catalog:      repository.NewCatalogStore(pool),
				Patrons:      repository.NewPatronStore(pool),
				Attendance:   repository.NewAttendanceStore(pool),
				Reports:      repository.NewReportStore(pool),
				Policies:     policies,
			})
			return srv.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			log.Println("schema is up to date")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var copies int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a sample book, copies, and patron",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			catalog := repository.NewCatalogStore(pool)
			book := &model.Book{
				Title:        "Noli Me Tangere",
				Author:       "Jose Rizal",
				Section:      "Filipiniana",
				DeweyDecimal: "899.211",
				AuthorNumber: "R627",
				Copyright:    "1887",
				Source:       "library",
			}
			if err := catalog.CreateBook(ctx, book, copies); err != nil {
				return err
			}
			log.Printf("seeded book %d with %d copies", book.ID, len(book.Copies))

			patrons := repository.NewPatronStore(pool)
			patron := &model.Patron{
				FirstName: "Juan",
				LastName:  "Dela Cruz",
				Email:     "juan.delacruz@example.com",
				City:      "Quezon City",
				Province:  "Metro Manila",
			}
			if err := patrons.Create(ctx, patron); err != nil {
				return err
			}
			log.Printf("seeded patron %s", patron.PatronID)
			return nil
		},
	}
	cmd.Flags().IntVar(&copies, "copies", 3, "Number of copies for the seeded book")
	return cmd
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Enqueue an immediate overdue sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer client.Close()
			if err := queue.EnqueueOverdueSweep(cmd.Context(), client); err != nil {
				return err
			}
			log.Println("overdue sweep enqueued")
			return nil
		},
	}
}

func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return cfg, pool, nil
}
