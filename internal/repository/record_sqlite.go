package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type sqliteRecordRepository struct {
	conn *sql.DB
}

func NewSQLiteRecordRepository(conn *sql.DB) GameRecordRepository {
	return &sqliteRecordRepository{
		conn: conn,
	}
}

func (that *sqliteRecordRepository) Create(ctx context.Context, record *GameRecord) (string, error) {
	query := `INSERT INTO games
		(id, room_code, player1_id, player1_name, player2_id, player2_name, status, total_moves, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id := uuid.NewString()

	_, err := that.conn.ExecContext(ctx, query,
		id, record.RoomCode,
		record.Player1ID, record.Player1Name,
		record.Player2ID, record.Player2Name,
		StatusInProgress, 0, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("can't save game record: %w", err)
	}

	return id, nil
}

func (that *sqliteRecordRepository) Finish(ctx context.Context, id string, winnerID *string, winnerSeat *int, totalMoves int) error {
	query := `UPDATE games
		SET status = ?, winner_id = ?, winner_seat = ?, total_moves = ?, ended_at = ?
		WHERE id = ?`

	result, err := that.conn.ExecContext(ctx, query,
		StatusCompleted, winnerID, winnerSeat, totalMoves, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("can't finish game record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	return nil
}

func (that *sqliteRecordRepository) GetByID(ctx context.Context, id string) (*GameRecord, error) {
	query := `SELECT id, room_code, player1_id, player1_name, player2_id, player2_name,
		status, winner_id, winner_seat, total_moves, started_at, ended_at
		FROM games WHERE id = ?`

	var record GameRecord

	err := that.conn.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.RoomCode,
		&record.Player1ID, &record.Player1Name,
		&record.Player2ID, &record.Player2Name,
		&record.Status, &record.WinnerID, &record.WinnerSeat,
		&record.TotalMoves, &record.StartedAt, &record.EndedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("can't find game record: %w", err)
	}

	return &record, nil
}
