// Package main - утилита миграций схемы PostgreSQL.
//
// Использование:
//
//	migrate up       применить все ожидающие миграции
//	migrate down     откатить последнюю миграцию
//	migrate status   показать состояние миграций
//	migrate seed F   импортировать каталог из JSON-файла F
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alem-hub/lingo-progress/config"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func usage() error {
	return errors.New("usage: migrate up|down|status|seed <file>")
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage()
	}

	dbConfig, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	log := logger.Default().With(logger.Component("migrate"))

	pgConfig := postgres.DefaultConfig()
	pgConfig.URL = dbConfig.URL
	pgConfig.MaxConns = 2
	pgConfig.MinConns = 0

	conn, err := postgres.NewConnection(ctx, pgConfig)
	if err != nil {
		return err
	}
	defer conn.Close()

	migrator := postgres.NewMigrator(conn)

	switch args[0] {
	case "up":
		applied, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", logger.Int("count", applied))

	case "down":
		if err := migrator.Rollback(ctx); err != nil {
			return err
		}
		log.Info("last migration rolled back")

	case "status":
		migrations, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
		for _, m := range migrations {
			appliedAt := "pending"
			if m.IsApplied {
				appliedAt = m.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", m.Version, m.Name, appliedAt)
		}
		return w.Flush()

	case "seed":
		if len(args) < 2 {
			return usage()
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		seed, err := catalog.DecodeSeed(f)
		if err != nil {
			return err
		}
		if err := postgres.NewCatalogRepository(conn).Import(ctx, seed); err != nil {
			return err
		}
		log.Info("catalog imported",
			logger.Int("courses", len(seed.Courses)),
			logger.Int("lessons", len(seed.Lessons)),
			logger.Int("exercises", len(seed.Exercises)),
		)

	default:
		return usage()
	}

	return nil
}
