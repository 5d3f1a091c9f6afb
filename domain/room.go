package domain

// Room is a named broadcast scope. Membership is symmetric with each
// member's recorded current room.
type Room struct {
	Name string
	// PasswordHash is stored at rest but never checked on join.
	PasswordHash string
	Members      map[ConnID]struct{}
}

func NewRoom(name, passwordHash string, creator ConnID) *Room {
	return &Room{
		Name:         name,
		PasswordHash: passwordHash,
		Members:      map[ConnID]struct{}{creator: {}},
	}
}

func (r *Room) Has(conn ConnID) bool {
	_, ok := r.Members[conn]
	return ok
}
