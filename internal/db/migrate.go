package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/edvin/sendline/migrations"
)

// RunMigrations opens a connection to the database and runs all pending
// embedded core migrations.
func RunMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return Migrate(db)
}

// Migrate applies the embedded core migrations to an already open database.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.Core)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, migrations.CoreDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
