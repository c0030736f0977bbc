package repository

import (
	"context"
	"errors"
	"time"
)

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

var ErrRecordNotFound = errors.New("game record not found")

// GameRecord is the durable trace of one game: who played in which room,
// when it ran and how it ended. Winner fields stay nil for a draw.
type GameRecord struct {
	ID          string     `json:"id"`
	RoomCode    string     `json:"room_code"`
	Player1ID   string     `json:"player1_id"`
	Player1Name string     `json:"player1_name"`
	Player2ID   string     `json:"player2_id"`
	Player2Name string     `json:"player2_name"`
	Status      string     `json:"status"`
	WinnerID    *string    `json:"winner_id,omitempty"`
	WinnerSeat  *int       `json:"winner_seat,omitempty"`
	TotalMoves  int        `json:"total_moves"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// GameRecordRepository is the persistence bridge the coordinator writes
// game records through. Failures are non-fatal to the rooms that caused
// them; callers log and continue in memory.
type GameRecordRepository interface {
	// Create stores a new in-progress record and returns its generated id.
	Create(ctx context.Context, record *GameRecord) (string, error)

	// Finish marks the record completed with the outcome of the game.
	Finish(ctx context.Context, id string, winnerID *string, winnerSeat *int, totalMoves int) error

	GetByID(ctx context.Context, id string) (*GameRecord, error)
}
