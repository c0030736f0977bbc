package entity

// Player is a seated occupant of a room. ConnID binds the seat to a live
// connection; UserID is the verified upstream identity used for persisted
// game records.
type Player struct {
	ConnID string `json:"-"`
	UserID string `json:"-"`
	Seat   int    `json:"seat"`
	Name   string `json:"name"`
}

// SeatInfo is the occupancy view broadcast to room members.
type SeatInfo struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
}
