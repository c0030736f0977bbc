package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gameroomlab/connect4-backend/internal/coordinator"
)

var ErrConnNotFound = errors.New("connection not found")

// gameCoordinator is the room/session surface the transport forwards client
// actions to.
type gameCoordinator interface {
	CreateRoom(connID, userID, name string) (*coordinator.CreateRoomResult, error)
	JoinRoom(connID, userID, name, code string) (*coordinator.JoinRoomResult, error)
	MakeMove(connID, code string, column int) error
	Reset(connID, code string) error
	Leave(connID, code string) error
	Disconnect(connID string)
}

// session is the per-connection state. Identity arrives with the connect
// action; authentication itself happens upstream.
type session struct {
	connID string
	userID string
	name   string
}

type Server struct {
	logger      *slog.Logger
	coordinator gameCoordinator
	hub         *Hub
	upgrader    websocket.Upgrader

	handlers map[string]func(sess *session, msg *Message) error
}

func New(logger *slog.Logger, gameCoord gameCoordinator, hub *Hub) *Server {
	server := &Server{
		logger:      logger.With("component", "websocket"),
		coordinator: gameCoord,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		handlers: make(map[string]func(*session, *Message) error),
	}

	server.handlers["connect"] = server.handleConnect
	server.handlers["room:create"] = server.handleCreateRoom
	server.handlers["room:join"] = server.handleJoinRoom
	server.handlers["room:leave"] = server.handleLeaveRoom
	server.handlers["game:move"] = server.handleMove
	server.handlers["game:reset"] = server.handleReset

	return server
}

// Start - starts the WebSocket server and blocks until it stops.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 0, // connections are long-lived
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveConnection upgrades the request and runs the connection's read loop.
func (that *Server) serveConnection(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	socket, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	sess := &session{connID: uuid.NewString()}
	that.hub.register(sess.connID, socket)

	log.Info("connection established", "connID", sess.connID)

	defer func() {
		that.hub.unregister(sess.connID)
		that.coordinator.Disconnect(sess.connID)
		_ = socket.Close()

		log.Info("connection closed", "connID", sess.connID)
	}()

	that.readLoop(sess, socket)
}

func (that *Server) readLoop(sess *session, socket *websocket.Conn) {
	log := that.logger.With("method", "readLoop", "connID", sess.connID)

	for {
		_, raw, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("unexpected close", "error", err)
			}
			return
		}

		var msg Message
		if err = json.Unmarshal(raw, &msg); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			that.sendError(sess.connID, "", "malformed message")
			continue
		}

		handler, ok := that.handlers[msg.Action]
		if !ok {
			log.Error("unknown action", "action", msg.Action)
			that.sendError(sess.connID, msg.Action, "unknown action")
			continue
		}

		if err = handler(sess, &msg); err != nil {
			log.Error("error processing action", "action", msg.Action, "error", err)
		}
	}
}

// sendError reports a validation or protocol failure to the originating
// caller only; rejections are never broadcast.
func (that *Server) sendError(connID, action string, errorMsg string) {
	if action == "" {
		action = "error"
	}

	if err := that.hub.Send(connID, action, ErrorPayload{Error: errorMsg}); err != nil {
		that.logger.Error("failed to send error response", "connID", connID, "error", err)
	}
}
