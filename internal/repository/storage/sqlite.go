package storage

import (
	"context"
	"database/sql"
	"fmt"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/mattn/go-sqlite3"
)

// NewSQLite opens the database at path and creates the games schema.
func NewSQLite(ctx context.Context, path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	if err = initSchema(ctx, conn); err != nil {
		return nil, err
	}

	return conn, nil
}

func initSchema(ctx context.Context, conn *sql.DB) error {
	query := `CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		room_code TEXT NOT NULL,
		player1_id TEXT NOT NULL,
		player1_name TEXT NOT NULL,
		player2_id TEXT NOT NULL,
		player2_name TEXT NOT NULL,
		status TEXT NOT NULL,
		winner_id TEXT,
		winner_seat INTEGER,
		total_moves INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP
	)`

	if _, err := conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("can't create games table: %w", err)
	}

	return nil
}
