package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"roomcast/contract"
	"roomcast/domain"
	"roomcast/observability"
)

// disconnectGrace bounds how long a closing connection may wait for the
// coordinator to accept its disconnect command.
const disconnectGrace = 5 * time.Second

// Options are the per-connection transport knobs, filled from config.
type Options struct {
	SendBuffer int
	ReadLimit  int64
	WriteWait  time.Duration
	PongWait   time.Duration
}

// Server upgrades HTTP requests and binds each connection to the session
// core for its whole lifetime.
type Server struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	codec    *Codec
	coord    contract.ICoordinator
	router   contract.IRouter
	monitor  *observability.Monitor
	opts     Options
}

func NewServer(log *slog.Logger, coord contract.ICoordinator,
	router contract.IRouter, monitor *observability.Monitor, opts Options) *Server {
	return &Server{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin may connect, matching the open CORS policy of
			// the protocol.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		codec:   NewCodec(),
		coord:   coord,
		router:  router,
		monitor: monitor,
		opts:    opts,
	}
}

// ServeHTTP handles one connection from upgrade to cleanup. The handle is
// minted here; it exists from connection open to connection close and the
// session core only ever references it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(domain.ConnID(uuid.NewString()), conn, s.log, s.monitor, s.opts.SendBuffer, s.opts)
	s.monitor.IncrConnectionsOpened()
	s.router.Attach(client.id, client)
	s.log.Info("Connection opened", "conn", client.id, "remote", r.RemoteAddr)

	// The request context dies with the HTTP handler once the connection
	// is hijacked, so the pumps run under their own.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		client.writePump(ctx)
		_ = conn.Close()
	}()

	client.readPump(ctx, s.codec, s.coord)

	// Reader is gone. The disconnect transition must still run so the
	// registries release this connection.
	dispatchCtx, dispatchCancel := context.WithTimeout(context.Background(), disconnectGrace)
	if err := s.coord.Dispatch(dispatchCtx, domain.DisconnectCommand{Conn: client.id}); err != nil {
		s.log.Error("Disconnect dispatch failed", "conn", client.id, "error", err)
	}
	dispatchCancel()

	s.router.Detach(client.id)
	cancel()
	_ = conn.Close()
	s.monitor.IncrConnectionsClosed()
	s.log.Info("Connection closed", "conn", client.id)
}
