package websocket

import "encoding/json"

// Message is the envelope for everything crossing the socket, both
// directions: an action name and an action-specific payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type ConnectPayload struct {
	User struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

type ConnectedPayload struct {
	ConnID string `json:"conn_id"`
	Name   string `json:"name"`
}

type JoinPayload struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name,omitempty"`
}

type RoomPayload struct {
	RoomCode string `json:"room_code"`
}

type MovePayload struct {
	RoomCode string `json:"room_code"`
	Column   *int   `json:"column"`
}
