package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/agency-ledger/internal/config"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/dvloznov/agency-ledger/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	dbPath := flag.String("db", cfg.SQLitePath, "Path to the SQLite database")
	status := flag.Bool("status", false, "Print the applied schema version and exit")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal().Msg("Error: -db is required")
	}

	if *status {
		printVersion(*dbPath)
		return
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	log.Info().Str("db", *dbPath).Msg("Applying migrations")

	if err := sqlite.RunMigrations(*dbPath); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	printVersion(*dbPath)
}

func printVersion(dbPath string) {
	v, dirty, err := sqlite.MigrationVersion(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read schema version: %v\n", err)
		os.Exit(1)
	}
	if v == 0 {
		fmt.Println("No migrations applied.")
		return
	}
	if dirty {
		fmt.Printf("Schema version %d (dirty: a previous migration failed partway)\n", v)
		return
	}
	fmt.Printf("Schema version %d. Database is up to date.\n", v)
}
