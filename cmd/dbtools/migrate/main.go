// cmd/dbtools/migrate/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/api/auth"
	"github.com/codr1/Padelicious/internal/booking"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

func main() {
	var (
		dbPath         = flag.String("db", "", "Path to SQLite database")
		migrationsPath = flag.String("migrations", "", "Migrations directory (default: embedded migrations)")
		command        = flag.String("command", "", "Command to run (up, down, version, force, create-admin)")
		forceVersion   = flag.String("version", "", "Version for the force command")
		adminRUT       = flag.String("rut", "", "National ID for create-admin")
		adminName      = flag.String("name", "", "Display name for create-admin")
		adminEmail     = flag.String("email", "", "Email for create-admin")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *dbPath == "" || *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	absDB, err := filepath.Abs(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database path")
	}
	if err := os.MkdirAll(filepath.Dir(absDB), 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	if *command == "create-admin" {
		// ADMIN_PASSWORD keeps the secret out of shell history.
		password := os.Getenv("ADMIN_PASSWORD")
		if err := createAdmin(absDB, *adminRUT, *adminName, *adminEmail, password); err != nil {
			log.Fatal().Err(err).Msg("Create admin failed")
		}
		return
	}

	m, err := newMigrator(absDB, *migrationsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration init failed")
	}
	defer m.Close()

	switch *command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("Migration up failed")
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("Migration down failed")
		}
	case "force":
		v, err := strconv.Atoi(*forceVersion)
		if err != nil {
			log.Fatal().Str("version", *forceVersion).Msg("force requires -version")
		}
		if err := m.Force(v); err != nil {
			log.Fatal().Err(err).Msg("Migration force failed")
		}
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal().Err(err).Msg("Get version failed")
		}
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)
		return
	default:
		log.Fatal().Str("command", *command).Msg("Unknown command")
	}
	log.Info().Str("command", *command).Msg("Migration finished")
}

func newMigrator(dbPath, migrationsPath string) (*migrate.Migrate, error) {
	if migrationsPath != "" {
		if _, err := os.Stat(migrationsPath); err != nil {
			return nil, fmt.Errorf("migrations directory: %w", err)
		}
		return migrate.New("file://"+migrationsPath, "sqlite3://"+dbPath)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_fk=1")
	if err != nil {
		return nil, err
	}
	return db.NewMigrator(conn)
}

// createAdmin bootstraps an administrator account; registration over HTTP
// only ever creates members.
func createAdmin(dbPath, rut, name, email, password string) error {
	if !booking.ValidRUT(rut) {
		return fmt.Errorf("invalid -rut %q", rut)
	}
	nationalID := booking.FormatRUT(rut)
	if name == "" || email == "" {
		return fmt.Errorf("-name and -email are required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("ADMIN_PASSWORD: %w", err)
	}

	database, err := db.New(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	user, err := database.Queries.CreateUser(context.Background(), queries.CreateUserParams{
		NationalID:   nationalID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Balance:      decimal.Zero,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("user %s already exists", nationalID)
		}
		return err
	}
	log.Info().Str("national_id", user.NationalID).Msg("Admin created")
	return nil
}
