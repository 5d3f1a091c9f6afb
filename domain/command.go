package domain

// Command is one inbound transition request tagged with its originating
// connection. Commands are applied one at a time by the coordinator.
type Command interface {
	Origin() ConnID
}

type SetUsernameCommand struct {
	Conn     ConnID
	Username string
}

func (c SetUsernameCommand) Origin() ConnID { return c.Conn }

type CreateRoomCommand struct {
	Conn     ConnID
	RoomName string
	Password string
}

func (c CreateRoomCommand) Origin() ConnID { return c.Conn }

// JoinRoomCommand carries the username from the wire for logging; the
// identity registry stays authoritative for the actual display name.
type JoinRoomCommand struct {
	Conn     ConnID
	RoomName string
	Username string
}

func (c JoinRoomCommand) Origin() ConnID { return c.Conn }

type RoomMessageCommand struct {
	Conn     ConnID
	RoomName string
	Message  string
}

func (c RoomMessageCommand) Origin() ConnID { return c.Conn }

type LeaveRoomCommand struct {
	Conn ConnID
}

func (c LeaveRoomCommand) Origin() ConnID { return c.Conn }

type DisconnectCommand struct {
	Conn ConnID
}

func (c DisconnectCommand) Origin() ConnID { return c.Conn }
