// Package event defines the outbound wire events of the signaling protocol.
// Event names and payload field names are a compatibility contract shared
// with deployed clients and must not be renamed.
package event

// Wire event names.
const (
	RoomCreatedName    = "room created"
	RoomErrorName      = "room error"
	RoomJoinedName     = "room joined"
	UserJoinedRoomName = "user joined room"
	RoomMessageName    = "room message"
	UserLeftRoomName   = "user left room"
)

// OutboundEvent is one named event ready for transport encoding.
type OutboundEvent interface {
	EventName() string
	// WirePayload returns the JSON-marshalable payload. "user joined room"
	// and "user left room" carry a bare string; the rest carry objects.
	WirePayload() any
}

// RoomCreated is unicast to the creator after a successful "create room".
type RoomCreated struct {
	RoomName    string `json:"roomName"`
	CreatorName string `json:"creatorName"`
}

func (e RoomCreated) EventName() string { return RoomCreatedName }
func (e RoomCreated) WirePayload() any  { return e }

// RoomError is unicast to the connection whose command failed. Kind lets
// clients branch without matching on the message string.
type RoomError struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

func (e RoomError) EventName() string { return RoomErrorName }
func (e RoomError) WirePayload() any  { return e }

// RoomJoined is unicast to the joiner after a successful "join room".
type RoomJoined struct {
	RoomName string `json:"roomName"`
}

func (e RoomJoined) EventName() string { return RoomJoinedName }
func (e RoomJoined) WirePayload() any  { return e }

// UserJoinedRoom is broadcast to the joined room, joiner included.
type UserJoinedRoom struct {
	Username string
}

func (e UserJoinedRoom) EventName() string { return UserJoinedRoomName }
func (e UserJoinedRoom) WirePayload() any  { return e.Username }

// RoomMessage is broadcast to the sender's current room, sender included.
type RoomMessage struct {
	RoomName string `json:"roomName"`
	UserName string `json:"userName"`
	Message  string `json:"message"`
}

func (e RoomMessage) EventName() string { return RoomMessageName }
func (e RoomMessage) WirePayload() any  { return e }

// UserLeftRoom is broadcast to the left room. On an explicit leave the
// leaver is still a member at broadcast time and receives it too; on a
// disconnect only the remaining members do.
type UserLeftRoom struct {
	Username string
}

func (e UserLeftRoom) EventName() string { return UserLeftRoomName }
func (e UserLeftRoom) WirePayload() any  { return e.Username }
