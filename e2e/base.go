// Package e2e runs full-stack scenarios over real WebSocket connections,
// either against an in-process server or one reachable via SERVER_ADDR.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"

	"roomcast/internal"
	"roomcast/observability"
	"roomcast/session"
	"roomcast/transport/ws"
)

// StartServer assembles the whole stack in-process and returns the ws://
// URL of its /ws endpoint plus a shutdown func. Moderation is left off so
// scenarios assert on verbatim message content.
func StartServer() (string, func()) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitor := observability.NewMonitor(log)

	identities := session.NewIdentityRegistry()
	rooms := session.NewRoomDirectory()
	monitor.SetGauges(func() (int, int, int) {
		return identities.Len(), rooms.Count(), rooms.EmptyCount()
	})
	router := session.NewRouter(log, rooms, monitor, 2*time.Second)
	coordinator := session.NewCoordinator(log, identities, rooms, router, nil, monitor, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = coordinator.Run(ctx)
		close(done)
	}()

	wsServer := ws.NewServer(log, coordinator, router, monitor, ws.Options{
		SendBuffer: 64,
		ReadLimit:  4096,
		WriteWait:  5 * time.Second,
		PongWait:   30 * time.Second,
	})
	httpServer := httptest.NewServer(internal.NewRouter(wsServer, monitor.Snapshot))

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	return url, func() {
		httpServer.Close()
		cancel()
		<-done
	}
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// client is a minimal scripted peer for scenarios.
type client struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func dial(url string, timeout time.Duration) (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &client{conn: conn, timeout: timeout}, nil
}

func (c *client) close() {
	_ = c.conn.Close()
}

func (c *client) send(eventName string, payload any) error {
	env := envelope{Event: eventName}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Data = data
	}
	return c.conn.WriteJSON(env)
}

// expect reads frames until one matches eventName, failing on timeout.
// Skipping unrelated frames keeps scenarios robust to interleaved
// broadcasts from other participants.
func (c *client) expect(eventName string) (json.RawMessage, error) {
	deadline := time.Now().Add(c.timeout)
	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return nil, fmt.Errorf("waiting for %q: %w", eventName, err)
		}
		if env.Event == eventName {
			return env.Data, nil
		}
	}
}
