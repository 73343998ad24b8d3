package conf

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/lib/pq"
)

// Migrate creates the database named in connStr when it is missing and
// applies scripts/schema.sql to it.
func Migrate(ctx context.Context, connStr string) error {
	log.Println("Migrate | Running database migrations...")

	adminConn, dbName, err := adminConnStr(connStr)
	if err != nil {
		return err
	}

	adminDB, err := sql.Open("postgres", adminConn)
	if err != nil {
		return fmt.Errorf("Migrate | connect to postgres: %w", err)
	}
	defer adminDB.Close()

	var exists bool
	err = adminDB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("Migrate | check database: %w", err)
	}
	if !exists {
		log.Printf("Migrate | Creating database %s...", dbName)
		if _, err := adminDB.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
			return fmt.Errorf("Migrate | create database: %w", err)
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("Migrate | connect to %s: %w", dbName, err)
	}
	defer db.Close()

	path, err := FindSchema()
	if err != nil {
		return err
	}
	schema, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Migrate | read schema: %w", err)
	}
	if err := applySchema(ctx, db, string(schema)); err != nil {
		return err
	}

	log.Println("Migrate | Database migrations completed successfully")
	return nil
}

// adminConnStr points connStr at the maintenance database "postgres" and
// returns the original database name.
func adminConnStr(connStr string) (string, string, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return "", "", fmt.Errorf("adminConnStr | parse connection string: %w", err)
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", "", fmt.Errorf("adminConnStr | database name not found in connection string")
	}
	admin := *u
	admin.Path = "/postgres"
	return admin.String(), dbName, nil
}

// applySchema runs every schema statement, skipping the hypertable call when
// TimescaleDB cannot be enabled.
func applySchema(ctx context.Context, db *sql.DB, schema string) error {
	timescale := enableTimescale(ctx, db)
	for _, stmt := range SchemaStatements(schema, timescale) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applySchema | %s: %w", stmt, err)
		}
	}
	return nil
}

func enableTimescale(ctx context.Context, db *sql.DB) bool {
	var available bool
	if err := db.QueryRowContext(ctx, "SELECT true FROM pg_available_extensions WHERE name = 'timescaledb'").Scan(&available); err != nil {
		log.Println("enableTimescale | TimescaleDB extension is not available, continuing without it")
		return false
	}
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE"); err != nil {
		log.Printf("enableTimescale | Failed to create TimescaleDB extension: %v", err)
		return false
	}
	return true
}
