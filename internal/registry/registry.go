// Package registry owns the table of live rooms. It is the sole authority
// for room lifecycle and seat assignment; nothing else creates, fills or
// destroys rooms.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gameroomlab/connect4-backend/internal/apperror"
	"github.com/gameroomlab/connect4-backend/internal/entity"
	"github.com/gameroomlab/connect4-backend/internal/roomcode"
)

// maxCodeAttempts bounds collision retries during code generation. The code
// space (32^6) dwarfs any realistic live-room count, so hitting the cap
// means the random source is broken rather than the space exhausted.
const maxCodeAttempts = 100

type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	rooms     map[string]*entity.Room
	connRooms map[string]string // connection id -> room code

	// generate is swappable in tests to force collisions and exhaustion.
	generate func() (string, error)
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("component", "registry"),
		rooms:     make(map[string]*entity.Room),
		connRooms: make(map[string]string),
		generate:  roomcode.Generate,
	}
}

// CreateRoom allocates a fresh room with a unique code and seats the owner
// at seat 1. A connection already seated somewhere cannot open another room.
func (that *Registry) CreateRoom(connID, userID, name string) (*entity.Room, *entity.Player, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if code, ok := that.connRooms[connID]; ok {
		return nil, nil, fmt.Errorf("%w: room %s", apperror.ErrAlreadyInRoom, code)
	}

	code, err := that.freeCode()
	if err != nil {
		return nil, nil, err
	}

	room := entity.NewRoom(code)

	room.Lock()
	player, err := room.AddPlayer(connID, userID, name)
	room.Unlock()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to seat owner: %w", err)
	}

	that.rooms[code] = room
	that.connRooms[connID] = code

	that.logger.Info("room created", "code", code, "owner", name)

	return room, player, nil
}

// freeCode generates a code not held by any live room. Callers hold the
// registry write lock.
func (that *Registry) freeCode() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := that.generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}

		if _, taken := that.rooms[code]; !taken {
			return code, nil
		}
	}

	return "", apperror.ErrCodeSpaceExhausted
}

// JoinRoom seats the joiner at seat 2 of an existing room.
func (that *Registry) JoinRoom(code, connID, userID, name string) (*entity.Room, *entity.Player, error) {
	code = roomcode.Normalize(code)

	that.mu.Lock()
	defer that.mu.Unlock()

	if existing, ok := that.connRooms[connID]; ok {
		return nil, nil, fmt.Errorf("%w: room %s", apperror.ErrAlreadyInRoom, existing)
	}

	room, ok := that.rooms[code]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, code)
	}

	room.Lock()
	player, err := room.AddPlayer(connID, userID, name)
	room.Unlock()
	if err != nil {
		return nil, nil, fmt.Errorf("room %s: %w", code, err)
	}

	that.connRooms[connID] = code

	that.logger.Info("player joined room", "code", code, "seat", player.Seat, "name", name)

	return room, player, nil
}

// Get looks up a live room by code.
func (that *Registry) Get(code string) (*entity.Room, error) {
	code = roomcode.Normalize(code)

	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, code)
	}

	return room, nil
}

// Leave vacates the seat held by the connection. When the last seat empties
// the room is destroyed and its code becomes reusable; the second return
// reports that teardown.
func (that *Registry) Leave(code, connID string) (*entity.Room, bool, error) {
	code = roomcode.Normalize(code)

	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[code]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, code)
	}

	return that.vacate(room, connID)
}

// HandleDisconnect vacates whatever seat the connection held, applying the
// same teardown rule as Leave. The last return is false when the connection
// was not seated anywhere.
func (that *Registry) HandleDisconnect(connID string) (*entity.Room, bool, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	code, ok := that.connRooms[connID]
	if !ok {
		return nil, false, false
	}

	room, exists := that.rooms[code]
	if !exists {
		// Index out of sync with the room table; drop the stale entry.
		delete(that.connRooms, connID)
		return nil, false, false
	}

	freed, destroyed, err := that.vacate(room, connID)
	if err != nil {
		return nil, false, false
	}

	return freed, destroyed, true
}

// vacate removes the connection's seat and tears the room down if it is now
// empty. Callers hold the registry write lock.
func (that *Registry) vacate(room *entity.Room, connID string) (*entity.Room, bool, error) {
	room.Lock()
	removed := room.RemovePlayer(connID)
	empty := room.IsEmpty()
	room.Unlock()

	if !removed {
		return nil, false, fmt.Errorf("%w: %s", apperror.ErrNotInRoom, room.Code)
	}

	delete(that.connRooms, connID)

	if !empty {
		return room, false, nil
	}

	delete(that.rooms, room.Code)
	that.logger.Info("room destroyed", "code", room.Code)

	return room, true, nil
}

// Count reports the number of live rooms.
func (that *Registry) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}

// Shutdown drops every live room. Room state is in-memory only and never
// survives a restart.
func (that *Registry) Shutdown() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.rooms = make(map[string]*entity.Room)
	that.connRooms = make(map[string]string)
}
