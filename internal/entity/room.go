package entity

import (
	"sync"
	"time"

	"github.com/gameroomlab/connect4-backend/internal/apperror"
)

// MaxSeats is the number of players a room can hold.
const MaxSeats = 2

// Room is a single live game session: up to two seats and the board they
// share. All mutating operations on a room must run under its lock so that
// events for one room are strictly FIFO while distinct rooms interleave.
type Room struct {
	Code      string
	Players   []*Player
	Board     *Board
	MoveCount int
	CreatedAt time.Time

	// RecordID is the persisted game record backing the current game, empty
	// until the store confirms creation or when the store is unavailable.
	RecordID string

	// Generation counts started games in this room (second seat filling,
	// resets). A record-create confirmation for an older generation must not
	// attach its id to the current game.
	Generation int

	mu sync.Mutex
}

func NewRoom(code string) *Room {
	return &Room{
		Code:      code,
		Board:     NewBoard(),
		CreatedAt: time.Now(),
	}
}

func (that *Room) Lock()   { that.mu.Lock() }
func (that *Room) Unlock() { that.mu.Unlock() }

// AddPlayer seats the player at the lowest free seat, first-come-first-served.
func (that *Room) AddPlayer(connID, userID, name string) (*Player, error) {
	if len(that.Players) >= MaxSeats {
		return nil, apperror.ErrRoomFull
	}

	seat := 1
	for that.PlayerBySeat(seat) != nil {
		seat++
	}

	player := &Player{
		ConnID: connID,
		UserID: userID,
		Seat:   seat,
		Name:   name,
	}
	that.Players = append(that.Players, player)

	return player, nil
}

// RemovePlayer vacates the seat held by the given connection and reports
// whether a seat was actually removed.
func (that *Room) RemovePlayer(connID string) bool {
	for i, player := range that.Players {
		if player.ConnID != connID {
			continue
		}

		that.Players = append(that.Players[:i], that.Players[i+1:]...)
		return true
	}

	return false
}

func (that *Room) PlayerByConn(connID string) *Player {
	for _, player := range that.Players {
		if player.ConnID == connID {
			return player
		}
	}
	return nil
}

func (that *Room) PlayerBySeat(seat int) *Player {
	for _, player := range that.Players {
		if player.Seat == seat {
			return player
		}
	}
	return nil
}

func (that *Room) IsFull() bool {
	return len(that.Players) == MaxSeats
}

func (that *Room) IsEmpty() bool {
	return len(that.Players) == 0
}

// Seats returns the occupancy view for broadcasting.
func (that *Room) Seats() []SeatInfo {
	seats := make([]SeatInfo, 0, len(that.Players))
	for _, player := range that.Players {
		seats = append(seats, SeatInfo{Seat: player.Seat, Name: player.Name})
	}
	return seats
}

// ConnIDs lists the connections currently seated in the room.
func (that *Room) ConnIDs() []string {
	ids := make([]string, 0, len(that.Players))
	for _, player := range that.Players {
		ids = append(ids, player.ConnID)
	}
	return ids
}
