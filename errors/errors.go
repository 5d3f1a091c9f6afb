package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is the closed set of room error codes surfaced to clients.
// Clients branch on Kind; the message string is for humans only.
type Kind string

const (
	RoomExists  Kind = "ROOM_EXISTS"
	RoomMissing Kind = "ROOM_MISSING"
)

// RoomError is delivered to the triggering connection alone as a
// "room error" event. The message strings below are part of the wire
// contract shared with existing clients and must not be reworded.
type RoomError struct {
	Kind    Kind
	Message string
}

func (e *RoomError) Error() string { return e.Message }

var (
	ErrRoomExists  = &RoomError{Kind: RoomExists, Message: "Room already exists"}
	ErrRoomMissing = &RoomError{Kind: RoomMissing, Message: "Room does not exist"}

	ErrWorkerPanic = fmt.Errorf("worker panic")
)

// AsRoom unwraps err into a RoomError when possible.
func AsRoom(err error) (*RoomError, bool) {
	var re *RoomError
	if stderrors.As(err, &re) {
		return re, true
	}
	return nil, false
}
