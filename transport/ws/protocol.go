// Package ws is the WebSocket transport: it upgrades HTTP connections,
// frames events as JSON envelopes, and binds each connection to the
// session core as a command source and an event sink.
package ws

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"roomcast/domain"
	"roomcast/domain/event"
)

// Inbound wire event names.
const (
	setUsernameName = "set username"
	createRoomName  = "create room"
	joinRoomName    = "join room"
	roomMessageName = "room message"
	leaveRoomName   = "leave room"
)

// Envelope is the framing shared by both directions: an event name and
// its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type setUsernamePayload struct {
	Username string `json:"username" validate:"required"`
}

type createRoomPayload struct {
	RoomName string `json:"roomName" validate:"required"`
	Password string `json:"password"`
}

type joinRoomPayload struct {
	RoomName string `json:"roomName" validate:"required"`
	Username string `json:"username"`
}

type roomMessagePayload struct {
	RoomName string `json:"roomName" validate:"required"`
	Message  string `json:"message" validate:"required"`
}

// Codec translates between wire frames and domain commands and events.
type Codec struct {
	validate *validator.Validate
}

func NewCodec() *Codec {
	return &Codec{validate: validator.New()}
}

// DecodeCommand parses one inbound frame from conn. Unknown events and
// payloads failing validation come back as errors; the caller drops the
// frame without affecting other sessions.
func (c *Codec) DecodeCommand(conn domain.ConnID, frame []byte) (domain.Command, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch env.Event {
	case setUsernameName:
		var p setUsernamePayload
		if err := c.decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		return domain.SetUsernameCommand{Conn: conn, Username: p.Username}, nil

	case createRoomName:
		var p createRoomPayload
		if err := c.decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		return domain.CreateRoomCommand{Conn: conn, RoomName: p.RoomName, Password: p.Password}, nil

	case joinRoomName:
		var p joinRoomPayload
		if err := c.decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		return domain.JoinRoomCommand{Conn: conn, RoomName: p.RoomName, Username: p.Username}, nil

	case roomMessageName:
		var p roomMessagePayload
		if err := c.decodePayload(env.Data, &p); err != nil {
			return nil, err
		}
		return domain.RoomMessageCommand{Conn: conn, RoomName: p.RoomName, Message: p.Message}, nil

	case leaveRoomName:
		return domain.LeaveRoomCommand{Conn: conn}, nil

	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}

func (c *Codec) decodePayload(data json.RawMessage, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// EncodeEvent wraps an outbound event into its wire envelope.
func EncodeEvent(e event.OutboundEvent) ([]byte, error) {
	data, err := json.Marshal(e.WirePayload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.EventName(), Data: data})
}
