package websocket

import (
	"encoding/json"
	"fmt"
)

func (that *Server) handleConnect(sess *session, msg *Message) error {
	log := that.logger.With("method", "handleConnect", "connID", sess.connID)

	var payload ConnectPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		that.sendError(sess.connID, msg.Action, "malformed payload")
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.User.ID == "" {
		log.Error("user identity is missing in payload")
		that.sendError(sess.connID, msg.Action, "user identity is required")
		return nil
	}

	sess.userID = payload.User.ID
	sess.name = payload.User.Name
	if sess.name == "" {
		sess.name = "player"
	}

	if err := that.hub.Send(sess.connID, msg.Action, ConnectedPayload{ConnID: sess.connID, Name: sess.name}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("player connected", "userID", sess.userID, "name", sess.name)

	return nil
}

func (that *Server) handleCreateRoom(sess *session, msg *Message) error {
	log := that.logger.With("method", "handleCreateRoom", "connID", sess.connID)

	if sess.userID == "" {
		that.sendError(sess.connID, msg.Action, "connect first")
		return nil
	}

	result, err := that.coordinator.CreateRoom(sess.connID, sess.userID, sess.name)
	if err != nil {
		log.Error("failed to create room", "error", err)
		that.sendError(sess.connID, msg.Action, err.Error())
		return nil
	}

	if err = that.hub.Send(sess.connID, msg.Action, result); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("room created", "code", result.RoomCode)

	return nil
}

func (that *Server) handleJoinRoom(sess *session, msg *Message) error {
	log := that.logger.With("method", "handleJoinRoom", "connID", sess.connID)

	if sess.userID == "" {
		that.sendError(sess.connID, msg.Action, "connect first")
		return nil
	}

	var payload JoinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		that.sendError(sess.connID, msg.Action, "malformed payload")
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	name := payload.PlayerName
	if name == "" {
		name = sess.name
	}

	result, err := that.coordinator.JoinRoom(sess.connID, sess.userID, name, payload.RoomCode)
	if err != nil {
		log.Error("failed to join room", "code", payload.RoomCode, "error", err)
		that.sendError(sess.connID, msg.Action, err.Error())
		return nil
	}

	if err = that.hub.Send(sess.connID, msg.Action, result); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("player joined", "code", result.RoomCode, "seat", result.Seat)

	return nil
}

func (that *Server) handleMove(sess *session, msg *Message) error {
	log := that.logger.With("method", "handleMove", "connID", sess.connID)

	var payload MovePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		that.sendError(sess.connID, msg.Action, "malformed payload")
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.Column == nil {
		log.Error("column is missing in payload")
		that.sendError(sess.connID, msg.Action, "column is required")
		return nil
	}

	if err := that.coordinator.MakeMove(sess.connID, payload.RoomCode, *payload.Column); err != nil {
		log.Error("move rejected", "code", payload.RoomCode, "column", *payload.Column, "error", err)
		that.sendError(sess.connID, msg.Action, err.Error())
	}

	return nil
}

func (that *Server) handleReset(sess *session, msg *Message) error {
	log := that.logger.With("method", "handleReset", "connID", sess.connID)

	var payload RoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		that.sendError(sess.connID, msg.Action, "malformed payload")
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := that.coordinator.Reset(sess.connID, payload.RoomCode); err != nil {
		log.Error("reset rejected", "code", payload.RoomCode, "error", err)
		that.sendError(sess.connID, msg.Action, err.Error())
	}

	return nil
}

func (that *Server) handleLeaveRoom(sess *session, msg *Message) error {
	log := that.logger.With("method", "handleLeaveRoom", "connID", sess.connID)

	var payload RoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		that.sendError(sess.connID, msg.Action, "malformed payload")
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := that.coordinator.Leave(sess.connID, payload.RoomCode); err != nil {
		log.Error("leave rejected", "code", payload.RoomCode, "error", err)
		that.sendError(sess.connID, msg.Action, err.Error())
		return nil
	}

	log.Info("player left room", "code", payload.RoomCode)

	return nil
}
