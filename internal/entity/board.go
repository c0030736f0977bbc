package entity

import (
	"fmt"

	"github.com/gameroomlab/connect4-backend/internal/apperror"
)

const (
	Rows = 6
	Cols = 7

	// WinLength is the contiguous run required to win.
	WinLength = 4
)

const (
	PlayerNone = 0
	PlayerOne  = 1
	PlayerTwo  = 2

	// PlayerDraw marks a finished game without a winner.
	PlayerDraw = -1
)

// lineDirections are the four scan lines through a placed token, each as a
// pair of opposite senses.
var lineDirections = [4][2][2]int{
	{{0, 1}, {0, -1}},
	{{1, 0}, {-1, 0}},
	{{1, 1}, {-1, -1}},
	{{1, -1}, {-1, 1}},
}

// CellRef addresses a single grid cell; row 0 is the top row.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Board holds the full Connect-4 game state. Tokens fill columns bottom-up;
// all mutation goes through ApplyMove and Reset.
type Board struct {
	Grid         [Rows][Cols]int `json:"grid"`
	Turn         int             `json:"turn"`
	Winner       int             `json:"winner"`
	WinningCells []CellRef       `json:"winning_cells,omitempty"`
}

func NewBoard() *Board {
	return &Board{Turn: PlayerOne}
}

// ApplyMove drops the current player's token into the given column and
// returns the row it landed in. The turn flips only if the move did not end
// the game; the marker freezes on the terminal move.
func (that *Board) ApplyMove(column int) (int, error) {
	if that.IsFinished() {
		return 0, apperror.ErrGameFinished
	}

	if column < 0 || column >= Cols {
		return 0, fmt.Errorf("%w: %d", apperror.ErrInvalidColumn, column)
	}

	for row := Rows - 1; row >= 0; row-- {
		if that.Grid[row][column] != PlayerNone {
			continue
		}

		that.Grid[row][column] = that.Turn
		that.evaluate(row, column)

		if !that.IsFinished() {
			that.flipTurn()
		}

		return row, nil
	}

	return 0, fmt.Errorf("%w: %d", apperror.ErrColumnFull, column)
}

// evaluate updates Winner and WinningCells after a placement at (row, column).
// Each scan line walks outward in both senses from the placed cell; the whole
// contiguous run is recorded when it reaches WinLength, not just four cells.
func (that *Board) evaluate(row, column int) {
	player := that.Grid[row][column]

	for _, senses := range lineDirections {
		cells := []CellRef{{Row: row, Col: column}}

		for _, dir := range senses {
			r, c := row+dir[0], column+dir[1]
			for r >= 0 && r < Rows && c >= 0 && c < Cols && that.Grid[r][c] == player {
				cells = append(cells, CellRef{Row: r, Col: c})
				r += dir[0]
				c += dir[1]
			}
		}

		if len(cells) >= WinLength {
			that.Winner = player
			that.WinningCells = cells
			return
		}
	}

	if that.isFull() {
		that.Winner = PlayerDraw
	}
}

func (that *Board) flipTurn() {
	if that.Turn == PlayerOne {
		that.Turn = PlayerTwo
	} else {
		that.Turn = PlayerOne
	}
}

func (that *Board) isFull() bool {
	for col := 0; col < Cols; col++ {
		if that.Grid[0][col] == PlayerNone {
			return false
		}
	}
	return true
}

func (that *Board) IsFinished() bool {
	return that.Winner != PlayerNone
}

func (that *Board) IsDraw() bool {
	return that.Winner == PlayerDraw
}

// Reset returns the board to its initial empty state with player one to move.
func (that *Board) Reset() {
	*that = Board{Turn: PlayerOne}
}

// Snapshot returns a copy safe for transmission: the grid array copies by
// value and the winning cells are duplicated so callers never alias the
// board's internal storage.
func (that *Board) Snapshot() Board {
	snapshot := *that
	snapshot.WinningCells = append([]CellRef(nil), that.WinningCells...)

	return snapshot
}
