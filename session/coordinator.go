package session

import (
	"context"
	"fmt"
	"log/slog"

	"roomcast/auth"
	"roomcast/contract"
	"roomcast/domain"
	"roomcast/domain/event"
	"roomcast/errors"
	"roomcast/moderation"
	"roomcast/observability"
)

var (
	_ contract.Worker       = (*Coordinator)(nil)
	_ contract.ICoordinator = (*Coordinator)(nil)
)

// Coordinator serializes every state transition. Commands from all
// connections are consumed from one channel by one goroutine, which is
// the only writer of the identity registry and the room directory. That
// makes each transition atomic with respect to all others and keeps the
// core invariant: a connection's recorded current room and the room's
// member set never disagree.
type Coordinator struct {
	log        *slog.Logger
	identities *IdentityRegistry
	rooms      *RoomDirectory
	router     contract.IRouter
	moderator  *moderation.Moderator // optional, censors room messages
	monitor    *observability.Monitor
	commands   chan domain.Command
}

func NewCoordinator(log *slog.Logger, identities *IdentityRegistry,
	rooms *RoomDirectory, router contract.IRouter,
	moderator *moderation.Moderator, monitor *observability.Monitor,
	bufferSize int) *Coordinator {
	return &Coordinator{
		log:        log,
		identities: identities,
		rooms:      rooms,
		router:     router,
		moderator:  moderator,
		monitor:    monitor,
		commands:   make(chan domain.Command, bufferSize),
	}
}

// Dispatch queues cmd for processing, blocking when the buffer is full.
// Transitions cannot be dropped on backpressure: a lost disconnect would
// leak the identity and desync room membership for good.
func (c *Coordinator) Dispatch(ctx context.Context, cmd domain.Command) error {
	select {
	case c.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Stopping coordinator")
			return ctx.Err()
		case cmd, ok := <-c.commands:
			if !ok {
				c.log.Debug("Command channel closed")
				return nil
			}
			c.apply(ctx, cmd)
		}
	}
}

func (c *Coordinator) apply(ctx context.Context, cmd domain.Command) {
	c.monitor.IncrCommandsProcessed()
	switch cmd := cmd.(type) {
	case domain.SetUsernameCommand:
		c.setUsername(cmd)
	case domain.CreateRoomCommand:
		c.createRoom(ctx, cmd)
	case domain.JoinRoomCommand:
		c.joinRoom(ctx, cmd)
	case domain.RoomMessageCommand:
		c.roomMessage(ctx, cmd)
	case domain.LeaveRoomCommand:
		c.leaveRoom(ctx, cmd)
	case domain.DisconnectCommand:
		c.disconnect(ctx, cmd)
	default:
		c.log.Warn("Unknown command", "type", fmt.Sprintf("%T", cmd))
	}
}

// setUsername creates or overwrites the identity. Re-setting keeps the
// current room.
func (c *Coordinator) setUsername(cmd domain.SetUsernameCommand) {
	c.identities.SetIdentity(cmd.Conn, cmd.Username)
	c.log.Info("Username set", "conn", cmd.Conn, "username", cmd.Username)
}

func (c *Coordinator) createRoom(ctx context.Context, cmd domain.CreateRoomCommand) {
	user, ok := c.identities.Get(cmd.Conn)
	if !ok {
		// No claimed identity yet. Dropping before the insert keeps the
		// directory free of rooms whose creator is untracked, which would
		// break membership symmetry.
		c.log.Debug("Create room before identity, dropping", "conn", cmd.Conn, "room", cmd.RoomName)
		return
	}

	hash := ""
	if cmd.Password != "" {
		h, err := auth.HashPassword(cmd.Password)
		if err != nil {
			c.log.Error("Password hashing failed", "room", cmd.RoomName, "error", err)
			return
		}
		hash = h
	}

	if err := c.rooms.Create(cmd.RoomName, hash, cmd.Conn); err != nil {
		c.emitError(ctx, cmd.Conn, err)
		return
	}

	if user.InRoom() {
		c.announceLeave(ctx, cmd.Conn, user)
	}
	c.identities.SetRoom(cmd.Conn, cmd.RoomName)

	c.router.Unicast(ctx, cmd.Conn, event.RoomCreated{RoomName: cmd.RoomName, CreatorName: user.Name})
	c.router.Broadcast(ctx, cmd.RoomName, event.UserJoinedRoom{Username: user.Name})
	c.log.Info("Room created", "room", cmd.RoomName, "creator", user.Name)
}

func (c *Coordinator) joinRoom(ctx context.Context, cmd domain.JoinRoomCommand) {
	user, ok := c.identities.Get(cmd.Conn)
	if !ok {
		// Silently dropped: no error event for identity-less joins.
		c.log.Debug("Join before identity, dropping", "conn", cmd.Conn, "room", cmd.RoomName)
		return
	}
	if _, ok := c.rooms.Get(cmd.RoomName); !ok {
		c.emitError(ctx, cmd.Conn, errors.ErrRoomMissing)
		return
	}

	// At most one room per connection: switching rooms leaves the old one
	// first. A re-join of the current room skips this and stays idempotent
	// on membership.
	if user.InRoom() && user.Room != cmd.RoomName {
		c.announceLeave(ctx, cmd.Conn, user)
	}
	_ = c.rooms.AddMember(cmd.RoomName, cmd.Conn)
	c.identities.SetRoom(cmd.Conn, cmd.RoomName)

	c.router.Unicast(ctx, cmd.Conn, event.RoomJoined{RoomName: cmd.RoomName})
	c.router.Broadcast(ctx, cmd.RoomName, event.UserJoinedRoom{Username: user.Name})
	c.log.Info("User joined room", "room", cmd.RoomName, "username", cmd.Username)
}

// roomMessage is stateless: it only fans out, and only when the sender is
// currently in exactly the room the message is tagged for.
func (c *Coordinator) roomMessage(ctx context.Context, cmd domain.RoomMessageCommand) {
	user, ok := c.identities.Get(cmd.Conn)
	if !ok || user.Room != cmd.RoomName {
		c.log.Debug("Message outside current room, dropping", "conn", cmd.Conn, "room", cmd.RoomName)
		return
	}

	content := cmd.Message
	if c.moderator != nil {
		censored, words := c.moderator.Censor(content)
		if len(words) > 0 {
			content = censored
			c.monitor.IncrMessagesCensored()
		}
	}

	c.router.Broadcast(ctx, cmd.RoomName, event.RoomMessage{
		RoomName: cmd.RoomName,
		UserName: user.Name,
		Message:  content,
	})
	c.log.Info("Message sent in room", "room", cmd.RoomName, "sender", user.Name)
}

func (c *Coordinator) leaveRoom(ctx context.Context, cmd domain.LeaveRoomCommand) {
	user, ok := c.identities.Get(cmd.Conn)
	if !ok || !user.InRoom() {
		// A second leave is a no-op, no broadcast and no error.
		return
	}
	c.announceLeave(ctx, cmd.Conn, user)
	c.identities.SetRoom(cmd.Conn, "")
	c.log.Info("User left room", "room", user.Room, "username", user.Name)
}

func (c *Coordinator) disconnect(ctx context.Context, cmd domain.DisconnectCommand) {
	user, ok := c.identities.Remove(cmd.Conn)
	if !ok {
		return
	}
	if user.InRoom() {
		// Membership drops first: the leaver's sink is already gone, only
		// the remaining members hear about it.
		c.rooms.RemoveMember(user.Room, cmd.Conn)
		c.router.Broadcast(ctx, user.Room, event.UserLeftRoom{Username: user.Name})
	}
	c.log.Info("User disconnected", "conn", cmd.Conn, "username", user.Name)
}

// announceLeave tells the room, the leaver included since it is still a
// member at broadcast time, then drops the membership.
func (c *Coordinator) announceLeave(ctx context.Context, conn domain.ConnID, user domain.User) {
	c.router.Broadcast(ctx, user.Room, event.UserLeftRoom{Username: user.Name})
	c.rooms.RemoveMember(user.Room, conn)
}

func (c *Coordinator) emitError(ctx context.Context, conn domain.ConnID, err error) {
	re, ok := errors.AsRoom(err)
	if !ok {
		re = &errors.RoomError{Message: err.Error()}
	}
	c.router.Unicast(ctx, conn, event.RoomError{Message: re.Message, Kind: string(re.Kind)})
}
