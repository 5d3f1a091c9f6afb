package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"roomcast/domain"
	"roomcast/domain/event"
	"roomcast/moderation"
	"roomcast/observability"
)

type coordinatorFixture struct {
	coordinator *Coordinator
	identities  *IdentityRegistry
	rooms       *RoomDirectory
	router      *Router
	monitor     *observability.Monitor
	sinks       map[domain.ConnID]*captureSink
}

func newCoordinatorFixture() *coordinatorFixture {
	return buildCoordinatorFixture(nil)
}

// newModeratedCoordinatorFixture wires a coordinator with a censor built
// from the given dictionary, masking with '*'.
func newModeratedCoordinatorFixture(t *testing.T, dictionary []string) *coordinatorFixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	m, err := moderation.NewModerator(dictionary, '*', log)
	require.NoError(t, err)
	return buildCoordinatorFixture(&m)
}

func buildCoordinatorFixture(moderator *moderation.Moderator) *coordinatorFixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitor := observability.NewMonitor(log)
	identities := NewIdentityRegistry()
	rooms := NewRoomDirectory()
	router := NewRouter(log, rooms, monitor, testSinkTimeout)
	return &coordinatorFixture{
		coordinator: NewCoordinator(log, identities, rooms, router, moderator, monitor, 16),
		identities:  identities,
		rooms:       rooms,
		router:      router,
		monitor:     monitor,
		sinks:       make(map[domain.ConnID]*captureSink),
	}
}

// connect mints a connection handle with an attached capture sink,
// mimicking what the transport does on connection open.
func (f *coordinatorFixture) connect() domain.ConnID {
	conn := domain.ConnID(uuid.NewString())
	sink := &captureSink{}
	f.sinks[conn] = sink
	f.router.Attach(conn, sink)
	return conn
}

// apply feeds one command straight through the transition switch, which
// is exactly what the coordinator goroutine does per command.
func (f *coordinatorFixture) apply(cmd domain.Command) {
	f.coordinator.apply(context.Background(), cmd)
}

// requireConsistent asserts the core invariant: a connection's recorded
// current room and the room member sets agree, in both directions.
func (f *coordinatorFixture) requireConsistent(req *require.Assertions) {
	for conn := range f.sinks {
		user, ok := f.identities.Get(conn)
		if ok && user.InRoom() {
			room, found := f.rooms.Get(user.Room)
			req.True(found, "current room %q must exist", user.Room)
			req.True(room.Has(conn), "conn must be a member of its current room")
		}
		for _, name := range f.rooms.Names() {
			room, _ := f.rooms.Get(name)
			if room.Has(conn) {
				req.True(ok, "room member must have an identity")
				req.Equal(name, user.Room, "membership must match the recorded current room")
			}
		}
	}
}

func TestCoordinator_CreateRoom(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "lobby", Password: ""})

	// The caller gets "room created" then hears its own join broadcast.
	req.Equal([]string{event.RoomCreatedName, event.UserJoinedRoomName}, f.sinks[alice].names())
	created := f.sinks[alice].all()[0].(event.RoomCreated)
	req.Equal("lobby", created.RoomName)
	req.Equal("alice", created.CreatorName)

	user, ok := f.identities.Get(alice)
	req.True(ok)
	req.Equal("lobby", user.Room)
	f.requireConsistent(req)
}

func TestCoordinator_CreateRoomWithPasswordStoresHashOnly(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "vault", Password: "hunter2"})

	room, ok := f.rooms.Get("vault")
	req.True(ok)
	req.NotEmpty(room.PasswordHash)
	req.NotContains(room.PasswordHash, "hunter2")
}

func TestCoordinator_CreateDuplicateRoomFails(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()
	bob := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "lobby", Password: ""})
	f.apply(domain.SetUsernameCommand{Conn: bob, Username: "bob"})
	f.apply(domain.CreateRoomCommand{Conn: bob, RoomName: "lobby", Password: ""})

	// Only the caller hears the error, state is unchanged.
	req.Equal([]string{event.RoomErrorName}, f.sinks[bob].names())
	roomErr := f.sinks[bob].all()[0].(event.RoomError)
	req.Equal("Room already exists", roomErr.Message)
	req.Equal("ROOM_EXISTS", roomErr.Kind)

	user, ok := f.identities.Get(bob)
	req.True(ok)
	req.False(user.InRoom())
	room, _ := f.rooms.Get("lobby")
	req.Len(room.Members, 1)
	f.requireConsistent(req)
}

func TestCoordinator_CreateRoomWithoutIdentityIsDropped(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	anon := f.connect()

	f.apply(domain.CreateRoomCommand{Conn: anon, RoomName: "ghost", Password: ""})

	// No room, no events: an untracked creator would break membership symmetry.
	_, ok := f.rooms.Get("ghost")
	req.False(ok)
	req.Empty(f.sinks[anon].all())
}

func TestCoordinator_JoinRoom(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()
	bob := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "lobby", Password: ""})
	f.apply(domain.SetUsernameCommand{Conn: bob, Username: "bob"})
	f.apply(domain.JoinRoomCommand{Conn: bob, RoomName: "lobby", Username: "bob"})

	// Both members hear bob's join; bob got "room joined" first.
	req.Equal([]string{event.RoomJoinedName, event.UserJoinedRoomName}, f.sinks[bob].names())
	req.Equal(event.UserJoinedRoom{Username: "bob"}, f.sinks[alice].all()[2])

	user, ok := f.identities.Get(bob)
	req.True(ok)
	req.Equal("lobby", user.Room)
	f.requireConsistent(req)
}

func TestCoordinator_JoinMissingRoomFailsWithoutStateChange(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	bob := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: bob, Username: "bob"})
	f.apply(domain.JoinRoomCommand{Conn: bob, RoomName: "nowhere", Username: "bob"})

	req.Equal([]string{event.RoomErrorName}, f.sinks[bob].names())
	roomErr := f.sinks[bob].all()[0].(event.RoomError)
	req.Equal("Room does not exist", roomErr.Message)
	req.Equal("ROOM_MISSING", roomErr.Kind)

	user, ok := f.identities.Get(bob)
	req.True(ok)
	req.False(user.InRoom())
}

func TestCoordinator_JoinWithoutIdentityIsSilentlyDropped(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()
	anon := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "lobby", Password: ""})
	f.apply(domain.JoinRoomCommand{Conn: anon, RoomName: "lobby", Username: "ghost"})

	// No error event, no membership.
	req.Empty(f.sinks[anon].all())
	room, _ := f.rooms.Get("lobby")
	req.Len(room.Members, 1)
	f.requireConsistent(req)
}

func TestCoordinator_JoinSwitchesRoomsWithImplicitLeave(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()
	bob := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "attic", Password: ""})
	f.apply(domain.SetUsernameCommand{Conn: bob, Username: "bob"})
	f.apply(domain.CreateRoomCommand{Conn: bob, RoomName: "cellar", Password: ""})

	// Bob switches to attic: cellar hears the leave, attic hears the join.
	f.apply(domain.JoinRoomCommand{Conn: bob, RoomName: "attic", Username: "bob"})

	attic, _ := f.rooms.Get("attic")
	cellar, _ := f.rooms.Get("cellar")
	req.True(attic.Has(bob))
	req.False(cellar.Has(bob))

	user, _ := f.identities.Get(bob)
	req.Equal("attic", user.Room)
	req.Contains(f.sinks[bob].names(), event.UserLeftRoomName)
	f.requireConsistent(req)
}

func TestCoordinator_CreateRoomWhileInRoomImplicitlyLeaves(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()
	bob := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "attic", Password: ""})
	f.apply(domain.SetUsernameCommand{Conn: bob, Username: "bob"})
	f.apply(domain.JoinRoomCommand{Conn: bob, RoomName: "attic", Username: "bob"})

	// Bob creates cellar while still in attic: attic hears the leave.
	f.apply(domain.CreateRoomCommand{Conn: bob, RoomName: "cellar", Password: ""})

	attic, _ := f.rooms.Get("attic")
	cellar, _ := f.rooms.Get("cellar")
	req.False(attic.Has(bob))
	req.True(cellar.Has(bob))

	user, _ := f.identities.Get(bob)
	req.Equal("cellar", user.Room)

	aliceEvents := f.sinks[alice].all()
	req.Equal(event.UserLeftRoom{Username: "bob"}, aliceEvents[len(aliceEvents)-1])
	req.Contains(f.sinks[bob].names(), event.UserLeftRoomName)
	f.requireConsistent(req)
}

func TestCoordinator_RoomMessageFansOutToMembers(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()
	bob := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "lobby", Password: ""})
	f.apply(domain.SetUsernameCommand{Conn: bob, Username: "bob"})
	f.apply(domain.JoinRoomCommand{Conn: bob, RoomName: "lobby", Username: "bob"})
	f.apply(domain.RoomMessageCommand{Conn: bob, RoomName: "lobby", Message: "hi"})

	want := event.RoomMessage{RoomName: "lobby", UserName: "bob", Message: "hi"}
	aliceEvents := f.sinks[alice].all()
	bobEvents := f.sinks[bob].all()
	req.Equal(want, aliceEvents[len(aliceEvents)-1])
	req.Equal(want, bobEvents[len(bobEvents)-1])
}

func TestCoordinator_RoomMessageIsCensoredBeforeFanout(t *testing.T) {
	req := require.New(t)
	f := newModeratedCoordinatorFixture(t, []string{"badger"})
	alice := f.connect()
	bob := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "lobby", Password: ""})
	f.apply(domain.SetUsernameCommand{Conn: bob, Username: "bob"})
	f.apply(domain.JoinRoomCommand{Conn: bob, RoomName: "lobby", Username: "bob"})

	f.apply(domain.RoomMessageCommand{Conn: bob, RoomName: "lobby", Message: "the badger bites"})

	// Every member receives the masked form, never the original.
	want := event.RoomMessage{RoomName: "lobby", UserName: "bob", Message: "the ****** bites"}
	aliceEvents := f.sinks[alice].all()
	bobEvents := f.sinks[bob].all()
	req.Equal(want, aliceEvents[len(aliceEvents)-1])
	req.Equal(want, bobEvents[len(bobEvents)-1])
	req.Equal(uint64(1), f.monitor.Snapshot().MessagesCensored)

	// Clean messages pass through untouched and uncounted.
	f.apply(domain.RoomMessageCommand{Conn: bob, RoomName: "lobby", Message: "hello"})
	aliceEvents = f.sinks[alice].all()
	req.Equal("hello", aliceEvents[len(aliceEvents)-1].(event.RoomMessage).Message)
	req.Equal(uint64(1), f.monitor.Snapshot().MessagesCensored)
}

func TestCoordinator_RoomMessageOutsideCurrentRoomIsDropped(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()
	erin := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "attic", Password: ""})
	f.apply(domain.SetUsernameCommand{Conn: erin, Username: "erin"})

	before := len(f.sinks[alice].all())

	// Erin is not in attic: zero broadcasts.
	f.apply(domain.RoomMessageCommand{Conn: erin, RoomName: "attic", Message: "stray"})

	req.Len(f.sinks[alice].all(), before)
	req.Empty(f.sinks[erin].all())
}

func TestCoordinator_LeaveRoom(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()
	bob := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "lobby", Password: ""})
	f.apply(domain.SetUsernameCommand{Conn: bob, Username: "bob"})
	f.apply(domain.JoinRoomCommand{Conn: bob, RoomName: "lobby", Username: "bob"})

	f.apply(domain.LeaveRoomCommand{Conn: alice})

	// The leaver is still a member at broadcast time: both hear it.
	aliceEvents := f.sinks[alice].all()
	bobEvents := f.sinks[bob].all()
	req.Equal(event.UserLeftRoom{Username: "alice"}, aliceEvents[len(aliceEvents)-1])
	req.Equal(event.UserLeftRoom{Username: "alice"}, bobEvents[len(bobEvents)-1])

	user, _ := f.identities.Get(alice)
	req.False(user.InRoom())
	room, _ := f.rooms.Get("lobby")
	req.False(room.Has(alice))
	f.requireConsistent(req)

	// A second leave is a no-op: no broadcast, no error.
	before := len(f.sinks[bob].all())
	f.apply(domain.LeaveRoomCommand{Conn: alice})
	req.Len(f.sinks[bob].all(), before)
	req.Empty(f.sinks[alice].all()[len(aliceEvents):])
}

func TestCoordinator_DisconnectCleansUpAndKeepsRoom(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()
	bob := f.connect()

	f.apply(domain.SetUsernameCommand{Conn: alice, Username: "alice"})
	f.apply(domain.CreateRoomCommand{Conn: alice, RoomName: "lobby", Password: ""})
	f.apply(domain.SetUsernameCommand{Conn: bob, Username: "bob"})
	f.apply(domain.JoinRoomCommand{Conn: bob, RoomName: "lobby", Username: "bob"})

	// The transport detaches the sink before the disconnect transition runs.
	f.router.Detach(bob)
	beforeAlice := len(f.sinks[alice].all())
	f.apply(domain.DisconnectCommand{Conn: bob})

	// Exactly one "user left room" reaches the remaining member.
	aliceEvents := f.sinks[alice].all()
	req.Len(aliceEvents, beforeAlice+1)
	req.Equal(event.UserLeftRoom{Username: "bob"}, aliceEvents[len(aliceEvents)-1])

	_, ok := f.identities.Get(bob)
	req.False(ok)
	room, ok := f.rooms.Get("lobby")
	req.True(ok, "the room survives its members")
	req.False(room.Has(bob))
	f.requireConsistent(req)
}

func TestCoordinator_DisconnectWithoutIdentityIsNoop(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	anon := f.connect()

	f.apply(domain.DisconnectCommand{Conn: anon})

	req.Empty(f.sinks[anon].all())
	req.Equal(0, f.identities.Len())
}

func TestCoordinator_DispatchAndRun(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	alice := f.connect()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = f.coordinator.Run(ctx)
		close(done)
	}()

	req.NoError(f.coordinator.Dispatch(ctx, domain.SetUsernameCommand{Conn: alice, Username: "alice"}))
	req.NoError(f.coordinator.Dispatch(ctx, domain.CreateRoomCommand{Conn: alice, RoomName: "lobby", Password: ""}))

	req.Eventually(func() bool {
		user, ok := f.identities.Get(alice)
		return ok && user.Room == "lobby"
	}, testSinkTimeout, 10*time.Millisecond)

	cancel()
	<-done
}
