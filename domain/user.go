// Package domain contains core concepts of the signaling system.
// No runtime, network, or UI logic should be added here.
package domain

// ConnID is the opaque handle of one live transport session. It is minted
// by the transport on connection open and referenced, never owned, by the
// session core.
type ConnID string

// User is the identity claimed by a connection. A record exists iff the
// connection is live and has set a username at least once.
type User struct {
	Name string
	// Room is the name of the user's current room, empty when not in any.
	Room string
}

func (u User) InRoom() bool { return u.Room != "" }
