package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ipede/authz-server/internal/infrastructure/config"
	"go.uber.org/zap"
)

func main() {
	up := flag.Bool("up", false, "Run migrations up")
	down := flag.Bool("down", false, "Run migrations down")
	steps := flag.Int("steps", 0, "Number of steps to migrate (positive for up, negative for down)")
	migrationDir := flag.String("dir", "migrations", "Migration directory path")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatal("Failed to get current working directory", zap.Error(err))
	}

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
	)

	m, err := migrate.New(
		fmt.Sprintf("file://%s/%s", cwd, *migrationDir),
		dbURL,
	)
	if err != nil {
		logger.Fatal("Failed to create migration instance", zap.Error(err))
	}
	defer m.Close()

	switch {
	case *up:
		logger.Info("Running migrations up")
		if err := m.Up(); err != nil {
			if err == migrate.ErrNoChange {
				logger.Info("No migrations to apply")
			} else {
				logger.Fatal("Failed to run migrations up", zap.Error(err))
			}
		}
		logger.Info("Migrations up completed successfully")
	case *down:
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			logger.Fatal("Failed to run migrations down", zap.Error(err))
		}
		logger.Info("Migrations down completed successfully")
	case *steps != 0:
		if err := m.Steps(*steps); err != nil && err != migrate.ErrNoChange {
			logger.Fatal("Failed to run migrations steps", zap.Error(err))
		}
		logger.Info("Migrations steps completed successfully", zap.Int("steps", *steps))
	default:
		version, dirty, err := m.Version()
		if err != nil && err != migrate.ErrNilVersion {
			logger.Fatal("Failed to get migration version", zap.Error(err))
		}
		logger.Info("Current migration version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
	}
}
