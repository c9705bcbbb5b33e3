package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"payment-reconciler/config"
	"payment-reconciler/migrations"
	"payment-reconciler/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty, "payment-reconciler-migrate")

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.Database.MigrationURL())
	if err != nil {
		log.Fatal().Err(err).Str("host", cfg.Database.Host).Msg("failed to initialise migrations")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("closing migrations")
		}
	}()

	switch os.Args[1] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "goto":
		if len(os.Args) < 3 {
			log.Fatal().Msg("goto requires a version number")
		}
		var version uint64
		version, err = strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid version number")
		}
		err = m.Migrate(uint(version))
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			log.Info().Msg("no migrations applied yet")
			return
		}
		if verr != nil {
			log.Fatal().Err(verr).Msg("failed to read migration version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration version")
		return
	default:
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Str("command", os.Args[1]).Msg("database already up to date")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("migration failed")
	}
	log.Info().Str("command", os.Args[1]).Msg("migration applied")
}

func printUsage() {
	fmt.Println("usage: migrate <command>")
	fmt.Println("  up       apply all pending migrations")
	fmt.Println("  down     roll back the last migration")
	fmt.Println("  goto N   migrate to version N")
	fmt.Println("  version  print the current version")
}
