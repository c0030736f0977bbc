// Package coordinator bridges connection events to the room registry and
// board engine, fans resulting state out to room occupants and reconciles
// in-memory games with the persistent record store.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gameroomlab/connect4-backend/internal/apperror"
	"github.com/gameroomlab/connect4-backend/internal/entity"
	"github.com/gameroomlab/connect4-backend/internal/registry"
	"github.com/gameroomlab/connect4-backend/internal/repository"
)

// Events pushed to room occupants. Direct responses and rejections go back
// to the originating caller through the transport, never as broadcasts.
const (
	EventRoomUpdate = "room:update"
	EventGameStart  = "game:start"
	EventGameState  = "game:state"
	EventGameOver   = "game:over"
	EventGameReset  = "game:reset"
	EventPlayerLeft = "room:left"
)

// persistTimeout bounds each record-store write. Writes run detached from
// move processing; a slow store never stalls a room.
const persistTimeout = 5 * time.Second

// Broadcaster delivers an event to a set of connections. Implemented by the
// websocket hub.
type Broadcaster interface {
	Broadcast(connIDs []string, event string, payload any)
}

type RoomUpdatePayload struct {
	Seats []entity.SeatInfo `json:"players"`
	Board *entity.Board     `json:"board,omitempty"`
}

type GameStartPayload struct {
	Message string `json:"message"`
}

type GameOverPayload struct {
	Winner       int              `json:"winner"`
	WinnerName   string           `json:"winner_name,omitempty"`
	WinningCells []entity.CellRef `json:"winning_cells,omitempty"`
}

type PlayerLeftPayload struct {
	Message string            `json:"message"`
	Seats   []entity.SeatInfo `json:"players"`
}

type CreateRoomResult struct {
	RoomCode string `json:"room_code"`
	Seat     int    `json:"seat"`
}

type JoinRoomResult struct {
	RoomCode string `json:"room_code"`
	Seat     int    `json:"seat"`
}

type Coordinator struct {
	logger      *slog.Logger
	registry    *registry.Registry
	records     repository.GameRecordRepository
	broadcaster Broadcaster

	// writes tracks in-flight record-store goroutines so shutdown and tests
	// can flush them.
	writes sync.WaitGroup
}

func New(logger *slog.Logger, reg *registry.Registry, records repository.GameRecordRepository, broadcaster Broadcaster) *Coordinator {
	return &Coordinator{
		logger:      logger.With("component", "coordinator"),
		registry:    reg,
		records:     records,
		broadcaster: broadcaster,
	}
}

// CreateRoom opens a fresh room owned by the caller and sends the initial
// room state to the creator only.
func (that *Coordinator) CreateRoom(connID, userID, name string) (*CreateRoomResult, error) {
	room, player, err := that.registry.CreateRoom(connID, userID, name)
	if err != nil {
		return nil, err
	}

	room.Lock()
	update := roomUpdate(room)
	room.Unlock()

	that.broadcaster.Broadcast([]string{connID}, EventRoomUpdate, update)

	return &CreateRoomResult{RoomCode: room.Code, Seat: player.Seat}, nil
}

// JoinRoom seats the caller in an existing room. Filling the second seat
// starts the game: a persisted record is opened and game-start plus the
// initial board state go out to both seats.
func (that *Coordinator) JoinRoom(connID, userID, name, code string) (*JoinRoomResult, error) {
	room, player, err := that.registry.JoinRoom(code, connID, userID, name)
	if err != nil {
		return nil, err
	}

	room.Lock()
	conns := room.ConnIDs()
	update := roomUpdate(room)
	started := room.IsFull()

	var record *repository.GameRecord
	var generation int
	var state entity.Board
	if started {
		room.Generation++
		generation = room.Generation
		record = recordFor(room)
		state = room.Board.Snapshot()
	}
	room.Unlock()

	that.broadcaster.Broadcast(conns, EventRoomUpdate, update)

	if started {
		that.openRecord(room, record, generation)

		that.broadcaster.Broadcast(conns, EventGameStart, GameStartPayload{Message: "the game begins"})
		that.broadcaster.Broadcast(conns, EventGameState, state)
	}

	return &JoinRoomResult{RoomCode: room.Code, Seat: player.Seat}, nil
}

// MakeMove validates the caller's seat and turn, applies the move and fans
// the new state out. A terminal move additionally broadcasts game-over and
// issues the record-completion write.
func (that *Coordinator) MakeMove(connID, code string, column int) error {
	room, err := that.registry.Get(code)
	if err != nil {
		return err
	}

	room.Lock()

	player := room.PlayerByConn(connID)
	if player == nil {
		room.Unlock()
		return apperror.ErrNotInRoom
	}

	if !room.IsFull() {
		room.Unlock()
		return apperror.ErrGameNotStarted
	}

	if !room.Board.IsFinished() && room.Board.Turn != player.Seat {
		room.Unlock()
		return apperror.ErrNotYourTurn
	}

	if _, err = room.Board.ApplyMove(column); err != nil {
		room.Unlock()
		return err
	}

	room.MoveCount++

	conns := room.ConnIDs()
	state := room.Board.Snapshot()
	terminal := room.Board.IsFinished()

	var over GameOverPayload
	var recordID string
	var winnerID *string
	var winnerSeat *int
	moves := room.MoveCount

	if terminal {
		over = gameOver(room)

		// Capture everything the completion write needs by value while the
		// room is locked, so a later reset cannot swap the record id from
		// under the pending write.
		recordID = room.RecordID
		if !room.Board.IsDraw() {
			if winner := room.PlayerBySeat(room.Board.Winner); winner != nil {
				id := winner.UserID
				seat := winner.Seat
				winnerID = &id
				winnerSeat = &seat
			}
		}
	}
	room.Unlock()

	that.broadcaster.Broadcast(conns, EventGameState, state)

	if terminal {
		that.broadcaster.Broadcast(conns, EventGameOver, over)
		that.closeRecord(code, recordID, winnerID, winnerSeat, moves)
	}

	return nil
}

// Reset clears the board of a room with both seats taken and, mirroring
// room-creation behavior, opens a new persisted record for the same pair.
// The previous record stays closed.
func (that *Coordinator) Reset(connID, code string) error {
	room, err := that.registry.Get(code)
	if err != nil {
		return err
	}

	room.Lock()

	if room.PlayerByConn(connID) == nil {
		room.Unlock()
		return apperror.ErrNotInRoom
	}

	if !room.IsFull() {
		room.Unlock()
		return apperror.ErrGameNotStarted
	}

	room.Board.Reset()
	room.MoveCount = 0
	room.RecordID = ""
	room.Generation++

	generation := room.Generation
	record := recordFor(room)
	conns := room.ConnIDs()
	state := room.Board.Snapshot()
	room.Unlock()

	that.openRecord(room, record, generation)

	that.broadcaster.Broadcast(conns, EventGameState, state)
	that.broadcaster.Broadcast(conns, EventGameReset, GameStartPayload{Message: "the board was reset"})

	return nil
}

// Leave vacates the caller's seat and updates the remaining occupant. A
// destroyed room has no broadcast target left.
func (that *Coordinator) Leave(connID, code string) error {
	room, destroyed, err := that.registry.Leave(code, connID)
	if err != nil {
		return err
	}

	if destroyed {
		return nil
	}

	that.notifyRemaining(room, "")

	return nil
}

// Disconnect handles a closed connection as a normal leave. The game is not
// auto-forfeited: remaining occupants are notified, nothing is recorded.
func (that *Coordinator) Disconnect(connID string) {
	room, destroyed, found := that.registry.HandleDisconnect(connID)
	if !found || destroyed {
		return
	}

	that.notifyRemaining(room, "a player left the game")
}

// Flush waits for in-flight record-store writes to finish.
func (that *Coordinator) Flush() {
	that.writes.Wait()
}

func (that *Coordinator) notifyRemaining(room *entity.Room, message string) {
	room.Lock()
	conns := room.ConnIDs()
	seats := room.Seats()
	room.Unlock()

	if message != "" {
		that.broadcaster.Broadcast(conns, EventPlayerLeft, PlayerLeftPayload{Message: message, Seats: seats})
		return
	}

	that.broadcaster.Broadcast(conns, EventRoomUpdate, RoomUpdatePayload{Seats: seats})
}

// openRecord persists a new in-progress record without blocking the room.
// The id attaches to the room only while its generation still matches.
func (that *Coordinator) openRecord(room *entity.Room, record *repository.GameRecord, generation int) {
	log := that.logger.With("method", "openRecord", "code", record.RoomCode)

	that.writes.Add(1)
	go func() {
		defer that.writes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		id, err := that.records.Create(ctx, record)
		if err != nil {
			log.Error("failed to persist game start, room continues in memory only", "error", err)
			return
		}

		room.Lock()
		if room.Generation == generation {
			room.RecordID = id
		}
		room.Unlock()

		log.Info("game record created", "recordID", id)
	}()
}

// closeRecord marks the backing record completed. Values were captured under
// the room lock; failures are logged and never touch game state.
func (that *Coordinator) closeRecord(code, recordID string, winnerID *string, winnerSeat *int, moves int) {
	log := that.logger.With("method", "closeRecord", "code", code)

	if recordID == "" {
		log.Warn("no game record to complete")
		return
	}

	that.writes.Add(1)
	go func() {
		defer that.writes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := that.records.Finish(ctx, recordID, winnerID, winnerSeat, moves); err != nil {
			log.Error("failed to persist game result", "recordID", recordID, "error", err)
			return
		}

		log.Info("game record completed", "recordID", recordID, "moves", moves)
	}()
}

// roomUpdate builds the occupancy broadcast. Callers hold the room lock.
func roomUpdate(room *entity.Room) RoomUpdatePayload {
	state := room.Board.Snapshot()

	return RoomUpdatePayload{
		Seats: room.Seats(),
		Board: &state,
	}
}

// gameOver builds the terminal notice. Callers hold the room lock.
func gameOver(room *entity.Room) GameOverPayload {
	over := GameOverPayload{Winner: room.Board.Winner}

	if room.Board.IsDraw() {
		return over
	}

	over.WinningCells = append([]entity.CellRef(nil), room.Board.WinningCells...)
	if winner := room.PlayerBySeat(room.Board.Winner); winner != nil {
		over.WinnerName = winner.Name
	}

	return over
}

// recordFor captures the seated pair by value for the record store. Callers
// hold the room lock; seat 1 and 2 are both present.
func recordFor(room *entity.Room) *repository.GameRecord {
	record := &repository.GameRecord{RoomCode: room.Code}

	if p1 := room.PlayerBySeat(1); p1 != nil {
		record.Player1ID = p1.UserID
		record.Player1Name = p1.Name
	}

	if p2 := room.PlayerBySeat(2); p2 != nil {
		record.Player2ID = p2.UserID
		record.Player2Name = p2.Name
	}

	return record
}
