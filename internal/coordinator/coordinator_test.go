package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameroomlab/connect4-backend/internal/apperror"
	"github.com/gameroomlab/connect4-backend/internal/entity"
	"github.com/gameroomlab/connect4-backend/internal/registry"
	"github.com/gameroomlab/connect4-backend/internal/repository"
)

type broadcastEvent struct {
	Conns   []string
	Event   string
	Payload any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (that *fakeBroadcaster) Broadcast(connIDs []string, event string, payload any) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.events = append(that.events, broadcastEvent{Conns: connIDs, Event: event, Payload: payload})
}

func (that *fakeBroadcaster) named(event string) []broadcastEvent {
	that.mu.Lock()
	defer that.mu.Unlock()

	var matched []broadcastEvent
	for _, e := range that.events {
		if e.Event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

type finishCall struct {
	ID         string
	WinnerID   *string
	WinnerSeat *int
	Moves      int
}

type fakeRecords struct {
	mu        sync.Mutex
	createErr error
	finishErr error
	created   []*repository.GameRecord
	finished  []finishCall
}

func (that *fakeRecords) Create(_ context.Context, record *repository.GameRecord) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.createErr != nil {
		return "", that.createErr
	}

	stored := *record
	stored.ID = fmt.Sprintf("rec-%d", len(that.created)+1)
	that.created = append(that.created, &stored)

	return stored.ID, nil
}

func (that *fakeRecords) Finish(_ context.Context, id string, winnerID *string, winnerSeat *int, moves int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.finishErr != nil {
		return that.finishErr
	}

	that.finished = append(that.finished, finishCall{ID: id, WinnerID: winnerID, WinnerSeat: winnerSeat, Moves: moves})

	return nil
}

func (that *fakeRecords) GetByID(_ context.Context, id string) (*repository.GameRecord, error) {
	return nil, fmt.Errorf("%w: %s", repository.ErrRecordNotFound, id)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *registry.Registry, *fakeBroadcaster, *fakeRecords) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(logger)
	broadcaster := &fakeBroadcaster{}
	records := &fakeRecords{}

	return New(logger, reg, records, broadcaster), reg, broadcaster, records
}

// fillRoom creates a room for Alice and joins Bob, flushing the record write.
func fillRoom(t *testing.T, coord *Coordinator) string {
	t.Helper()

	created, err := coord.CreateRoom("conn-alice", "user-alice", "Alice")
	require.NoError(t, err)

	joined, err := coord.JoinRoom("conn-bob", "user-bob", "Bob", created.RoomCode)
	require.NoError(t, err)
	require.Equal(t, 2, joined.Seat)

	coord.Flush()

	return created.RoomCode
}

func TestCoordinator_CreateRoom(t *testing.T) {
	// Given: a coordinator
	coord, _, broadcaster, records := newTestCoordinator(t)

	// When: Alice creates a room
	result, err := coord.CreateRoom("conn-alice", "user-alice", "Alice")

	// Then: she holds seat 1 and only she receives the room state
	require.NoError(t, err)
	assert.Equal(t, 1, result.Seat)
	assert.Len(t, result.RoomCode, 6)

	updates := broadcaster.named(EventRoomUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, []string{"conn-alice"}, updates[0].Conns)

	// Then: no game record exists while the room waits for a second seat
	coord.Flush()
	assert.Empty(t, records.created)
}

func TestCoordinator_JoinRoom_StartsGame(t *testing.T) {
	// Given: Alice waiting in a room
	coord, _, broadcaster, records := newTestCoordinator(t)
	created, err := coord.CreateRoom("conn-alice", "user-alice", "Alice")
	require.NoError(t, err)

	// When: Bob fills the second seat
	joined, err := coord.JoinRoom("conn-bob", "user-bob", "Bob", created.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, 2, joined.Seat)

	// Then: everyone hears game start and the initial board state
	both := []string{"conn-alice", "conn-bob"}

	starts := broadcaster.named(EventGameStart)
	require.Len(t, starts, 1)
	assert.Equal(t, both, starts[0].Conns)

	states := broadcaster.named(EventGameState)
	require.Len(t, states, 1)
	assert.Equal(t, both, states[0].Conns)

	// Then: a persisted record opens for the pair
	coord.Flush()
	require.Len(t, records.created, 1)
	record := records.created[0]
	assert.Equal(t, created.RoomCode, record.RoomCode)
	assert.Equal(t, "user-alice", record.Player1ID)
	assert.Equal(t, "Alice", record.Player1Name)
	assert.Equal(t, "user-bob", record.Player2ID)
	assert.Equal(t, "Bob", record.Player2Name)
}

func TestCoordinator_MakeMove_Scenario(t *testing.T) {
	// Given: Alice and Bob in a playable room
	coord, reg, broadcaster, _ := newTestCoordinator(t)
	code := fillRoom(t, coord)

	room, err := reg.Get(code)
	require.NoError(t, err)

	// When: Alice (seat 1) plays column 3
	require.NoError(t, coord.MakeMove("conn-alice", code, 3))

	// Then: her token lands bottom-center and the turn passes to Bob
	assert.Equal(t, entity.PlayerOne, room.Board.Grid[5][3])
	assert.Equal(t, entity.PlayerTwo, room.Board.Turn)
	assert.Equal(t, 1, room.MoveCount)

	// When: Bob answers in the same column
	require.NoError(t, coord.MakeMove("conn-bob", code, 3))

	// Then: his token stacks on top and the turn returns to Alice
	assert.Equal(t, entity.PlayerTwo, room.Board.Grid[4][3])
	assert.Equal(t, entity.PlayerOne, room.Board.Turn)
	assert.Equal(t, 2, room.MoveCount)

	// Then: each move was broadcast to both seats
	states := broadcaster.named(EventGameState)
	require.Len(t, states, 3) // initial state plus two moves
	for _, state := range states {
		assert.Equal(t, []string{"conn-alice", "conn-bob"}, state.Conns)
	}
}

func TestCoordinator_MakeMove_Rejections(t *testing.T) {
	t.Run("Out-of-turn move is rejected without mutating the board", func(t *testing.T) {
		// Given: a playable room with Alice to move
		coord, reg, broadcaster, _ := newTestCoordinator(t)
		code := fillRoom(t, coord)

		stateEvents := len(broadcaster.named(EventGameState))

		// When: Bob tries to move first
		err := coord.MakeMove("conn-bob", code, 0)

		// Then: the rejection reaches only the caller's path, nothing changes
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)

		room, getErr := reg.Get(code)
		require.NoError(t, getErr)
		assert.Zero(t, room.MoveCount)
		assert.Equal(t, entity.PlayerNone, room.Board.Grid[5][0])
		assert.Len(t, broadcaster.named(EventGameState), stateEvents)
	})

	t.Run("A connection without a seat cannot move", func(t *testing.T) {
		coord, _, _, _ := newTestCoordinator(t)
		code := fillRoom(t, coord)

		err := coord.MakeMove("conn-stranger", code, 0)
		require.ErrorIs(t, err, apperror.ErrNotInRoom)
	})

	t.Run("Moves before the second seat fills are rejected", func(t *testing.T) {
		coord, _, _, _ := newTestCoordinator(t)
		created, err := coord.CreateRoom("conn-alice", "user-alice", "Alice")
		require.NoError(t, err)

		err = coord.MakeMove("conn-alice", created.RoomCode, 0)
		require.ErrorIs(t, err, apperror.ErrGameNotStarted)
	})

	t.Run("Unknown room is rejected", func(t *testing.T) {
		coord, _, _, _ := newTestCoordinator(t)

		err := coord.MakeMove("conn-alice", "NOSUCH", 0)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestCoordinator_Win(t *testing.T) {
	// Given: a playable room
	coord, _, broadcaster, records := newTestCoordinator(t)
	code := fillRoom(t, coord)

	// When: Alice builds a bottom-row four while Bob stacks on top
	moves := []struct {
		conn   string
		column int
	}{
		{"conn-alice", 0}, {"conn-bob", 0},
		{"conn-alice", 1}, {"conn-bob", 1},
		{"conn-alice", 2}, {"conn-bob", 2},
		{"conn-alice", 3},
	}
	for _, move := range moves {
		require.NoError(t, coord.MakeMove(move.conn, code, move.column))
	}

	// Then: the terminal notice names Alice and the winning run
	overs := broadcaster.named(EventGameOver)
	require.Len(t, overs, 1)

	over, ok := overs[0].Payload.(GameOverPayload)
	require.True(t, ok)
	assert.Equal(t, entity.PlayerOne, over.Winner)
	assert.Equal(t, "Alice", over.WinnerName)
	assert.ElementsMatch(t, []entity.CellRef{
		{Row: 5, Col: 0}, {Row: 5, Col: 1}, {Row: 5, Col: 2}, {Row: 5, Col: 3},
	}, over.WinningCells)

	// Then: the record closes with Alice as the winner and the move total
	coord.Flush()
	require.Len(t, records.finished, 1)
	finished := records.finished[0]
	assert.Equal(t, "rec-1", finished.ID)
	require.NotNil(t, finished.WinnerID)
	assert.Equal(t, "user-alice", *finished.WinnerID)
	require.NotNil(t, finished.WinnerSeat)
	assert.Equal(t, 1, *finished.WinnerSeat)
	assert.Equal(t, 7, finished.Moves)

	// Then: moves after the end are rejected
	err := coord.MakeMove("conn-bob", code, 6)
	require.ErrorIs(t, err, apperror.ErrGameFinished)
}

func TestCoordinator_Draw(t *testing.T) {
	// Given: a playable room one move away from a full, runless board
	coord, reg, broadcaster, records := newTestCoordinator(t)
	code := fillRoom(t, coord)

	room, err := reg.Get(code)
	require.NoError(t, err)

	room.Lock()
	for row := 0; row < entity.Rows; row++ {
		for col := 0; col < entity.Cols; col++ {
			owner := entity.PlayerOne
			if col%2 == 1 {
				owner = entity.PlayerTwo
			}
			if row == 2 || row == 3 {
				if owner == entity.PlayerOne {
					owner = entity.PlayerTwo
				} else {
					owner = entity.PlayerOne
				}
			}
			room.Board.Grid[row][col] = owner
		}
	}
	room.Board.Grid[0][0] = entity.PlayerNone
	room.Board.Turn = entity.PlayerOne
	room.MoveCount = 41
	room.Unlock()

	// When: the final cell fills without a run
	require.NoError(t, coord.MakeMove("conn-alice", code, 0))

	// Then: the terminal notice reports a draw with no winner
	overs := broadcaster.named(EventGameOver)
	require.Len(t, overs, 1)

	over, ok := overs[0].Payload.(GameOverPayload)
	require.True(t, ok)
	assert.Equal(t, entity.PlayerDraw, over.Winner)
	assert.Empty(t, over.WinnerName)
	assert.Empty(t, over.WinningCells)

	// Then: the record closes with null winner fields
	coord.Flush()
	require.Len(t, records.finished, 1)
	assert.Nil(t, records.finished[0].WinnerID)
	assert.Nil(t, records.finished[0].WinnerSeat)
	assert.Equal(t, 42, records.finished[0].Moves)
}

func TestCoordinator_Reset(t *testing.T) {
	// Given: a finished game
	coord, reg, broadcaster, records := newTestCoordinator(t)
	code := fillRoom(t, coord)

	for _, move := range []struct {
		conn   string
		column int
	}{
		{"conn-alice", 0}, {"conn-bob", 0},
		{"conn-alice", 1}, {"conn-bob", 1},
		{"conn-alice", 2}, {"conn-bob", 2},
		{"conn-alice", 3},
	} {
		require.NoError(t, coord.MakeMove(move.conn, code, move.column))
	}
	coord.Flush()

	// When: Bob requests a reset
	require.NoError(t, coord.Reset("conn-bob", code))
	coord.Flush()

	// Then: the board and move counter are fresh
	room, err := reg.Get(code)
	require.NoError(t, err)
	assert.Equal(t, entity.NewBoard(), room.Board)
	assert.Zero(t, room.MoveCount)

	// Then: a reset notice went out and a second record opened for the pair
	require.Len(t, broadcaster.named(EventGameReset), 1)
	require.Len(t, records.created, 2)
	assert.Equal(t, "rec-2", room.RecordID)
	assert.Equal(t, records.created[0].Player1ID, records.created[1].Player1ID)

	// Then: the first record stays closed exactly once
	require.Len(t, records.finished, 1)
	assert.Equal(t, "rec-1", records.finished[0].ID)
}

func TestCoordinator_Reset_Rejections(t *testing.T) {
	t.Run("Reset needs a seat in the room", func(t *testing.T) {
		coord, _, _, _ := newTestCoordinator(t)
		code := fillRoom(t, coord)

		err := coord.Reset("conn-stranger", code)
		require.ErrorIs(t, err, apperror.ErrNotInRoom)
	})

	t.Run("Reset needs both seats filled", func(t *testing.T) {
		coord, _, _, _ := newTestCoordinator(t)
		created, err := coord.CreateRoom("conn-alice", "user-alice", "Alice")
		require.NoError(t, err)

		err = coord.Reset("conn-alice", created.RoomCode)
		require.ErrorIs(t, err, apperror.ErrGameNotStarted)
	})
}

func TestCoordinator_PersistenceFailuresAreNonFatal(t *testing.T) {
	t.Run("Game proceeds when the record store rejects the start write", func(t *testing.T) {
		// Given: a record store that is down
		coord, reg, _, records := newTestCoordinator(t)
		records.createErr = errors.New("store unavailable")

		// When: a room fills and a game completes anyway
		code := fillRoom(t, coord)

		room, err := reg.Get(code)
		require.NoError(t, err)
		assert.Empty(t, room.RecordID)

		for _, move := range []struct {
			conn   string
			column int
		}{
			{"conn-alice", 0}, {"conn-bob", 0},
			{"conn-alice", 1}, {"conn-bob", 1},
			{"conn-alice", 2}, {"conn-bob", 2},
			{"conn-alice", 3},
		} {
			require.NoError(t, coord.MakeMove(move.conn, code, move.column))
		}

		// Then: the in-memory game finished normally with nothing persisted
		coord.Flush()
		assert.Equal(t, entity.PlayerOne, room.Board.Winner)
		assert.Empty(t, records.finished)
	})

	t.Run("A failed completion write leaves the finished game intact", func(t *testing.T) {
		coord, reg, _, records := newTestCoordinator(t)
		records.finishErr = errors.New("write rejected")

		code := fillRoom(t, coord)
		for _, move := range []struct {
			conn   string
			column int
		}{
			{"conn-alice", 0}, {"conn-bob", 0},
			{"conn-alice", 1}, {"conn-bob", 1},
			{"conn-alice", 2}, {"conn-bob", 2},
			{"conn-alice", 3},
		} {
			require.NoError(t, coord.MakeMove(move.conn, code, move.column))
		}

		coord.Flush()

		room, err := reg.Get(code)
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerOne, room.Board.Winner)
	})
}

func TestCoordinator_LeaveAndDisconnect(t *testing.T) {
	t.Run("Leaving broadcasts the updated seat list to the remaining seat", func(t *testing.T) {
		// Given: a full room
		coord, _, broadcaster, _ := newTestCoordinator(t)
		code := fillRoom(t, coord)

		// When: Alice leaves
		require.NoError(t, coord.Leave("conn-alice", code))

		// Then: Bob receives the updated occupancy
		updates := broadcaster.named(EventRoomUpdate)
		last := updates[len(updates)-1]
		assert.Equal(t, []string{"conn-bob"}, last.Conns)

		payload, ok := last.Payload.(RoomUpdatePayload)
		require.True(t, ok)
		require.Len(t, payload.Seats, 1)
		assert.Equal(t, "Bob", payload.Seats[0].Name)
	})

	t.Run("Disconnect mid-game notifies the opponent without forfeiting", func(t *testing.T) {
		// Given: a full room with a move played
		coord, reg, broadcaster, records := newTestCoordinator(t)
		code := fillRoom(t, coord)
		require.NoError(t, coord.MakeMove("conn-alice", code, 3))

		// When: Alice's connection drops
		coord.Disconnect("conn-alice")

		// Then: Bob hears a player-left notice
		lefts := broadcaster.named(EventPlayerLeft)
		require.Len(t, lefts, 1)
		assert.Equal(t, []string{"conn-bob"}, lefts[0].Conns)

		// Then: no win is recorded for the remaining player
		coord.Flush()
		assert.Empty(t, records.finished)

		room, err := reg.Get(code)
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerNone, room.Board.Winner)
	})

	t.Run("Vacating the last seat destroys the room silently", func(t *testing.T) {
		coord, reg, broadcaster, _ := newTestCoordinator(t)
		created, err := coord.CreateRoom("conn-alice", "user-alice", "Alice")
		require.NoError(t, err)

		events := len(broadcaster.events)

		coord.Disconnect("conn-alice")

		// Then: the room is gone and nothing was broadcast to it
		_, err = reg.Get(created.RoomCode)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.Len(t, broadcaster.events, events)
	})

	t.Run("Disconnect of an unseated connection is a no-op", func(t *testing.T) {
		coord, _, broadcaster, _ := newTestCoordinator(t)

		coord.Disconnect("conn-ghost")
		assert.Empty(t, broadcaster.events)
	})
}
