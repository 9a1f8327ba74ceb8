package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/clearcase/worker/internal/config"
	"github.com/clearcase/worker/internal/infrastructure"
	"github.com/clearcase/worker/pkg/database"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	var (
		dsn     = flag.String("dsn", "", "Database URL (defaults to the CLEARCASE_DB_* settings)")
		up      = flag.Bool("up", false, "Apply all pending migrations")
		down    = flag.Bool("down", false, "Revert all migrations")
		steps   = flag.Int("steps", 0, "Apply N migrations (negative reverts)")
		version = flag.Bool("version", false, "Print the schema version")
		force   = flag.Int("force", -1, "Mark the schema as version N without running it")
	)
	flag.Parse()

	logger := infrastructure.NewLogger(os.Stderr, slog.LevelInfo).With("cmd", "migrate")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("ignoring .env", "error", err)
	}

	dbURL, err := resolveDSN(*dsn)
	if err != nil {
		logger.Error("database settings", "error", err)
		os.Exit(1)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		logger.Error("open migration source", "error", err)
		os.Exit(1)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		logger.Error("create migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	forced := false
	flag.Visit(func(f *flag.Flag) { forced = forced || f.Name == "force" })

	if err := run(m, *version, forced, *force, *up, *down, *steps, logger); err != nil {
		logger.Error("migration failed", "error", err)
		m.Close()
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, version, forced bool, force int, up, down bool, steps int, logger *slog.Logger) error {
	switch {
	case version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forced:
		if err := m.Force(force); err != nil {
			return err
		}
		logger.Info("schema version forced", "version", force)
	case up:
		if err := ignoreNoChange(m.Up()); err != nil {
			return err
		}
		logger.Info("migrations applied")
	case down:
		if err := ignoreNoChange(m.Down()); err != nil {
			return err
		}
		logger.Info("migrations reverted")
	case steps != 0:
		if err := ignoreNoChange(m.Steps(steps)); err != nil {
			return err
		}
		logger.Info("migration steps applied", "steps", steps)
	default:
		fmt.Fprintln(os.Stderr, "usage: migrate [-dsn URL] -up|-down|-steps N|-version|-force N")
		flag.PrintDefaults()
	}
	return nil
}

func resolveDSN(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	var cfg database.Config
	if err := cfg.Finalize(config.DatabaseEnv); err != nil {
		return "", err
	}
	return cfg.Dsn(), nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
