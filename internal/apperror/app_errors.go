package apperror

import "errors"

var (
	ErrGameFinished   = errors.New("game is already finished")
	ErrGameNotStarted = errors.New("game is not started")
	ErrNotYourTurn    = errors.New("it's not your turn")
	ErrInvalidColumn  = errors.New("invalid column index")
	ErrColumnFull     = errors.New("column is full")

	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrNotInRoom          = errors.New("player has no seat in this room")
	ErrAlreadyInRoom      = errors.New("player is already in a room")
	ErrCodeSpaceExhausted = errors.New("could not generate a free room code")
)
