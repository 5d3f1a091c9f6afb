package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"roomcast/contract"
	"roomcast/domain"
	"roomcast/domain/event"
	"roomcast/observability"
)

var _ contract.EventSink = (*Client)(nil)

// Client is one live WebSocket session. The reader goroutine turns frames
// into commands, the writer goroutine drains the send queue, and Consume,
// called by the broadcast router, feeds that queue.
type Client struct {
	id      domain.ConnID
	conn    *websocket.Conn
	send    chan []byte
	log     *slog.Logger
	monitor *observability.Monitor

	readLimit int64
	writeWait time.Duration
	pongWait  time.Duration
}

func newClient(id domain.ConnID, conn *websocket.Conn, log *slog.Logger,
	monitor *observability.Monitor, sendBuffer int, opts Options) *Client {
	return &Client{
		id:        id,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		log:       log,
		monitor:   monitor,
		readLimit: opts.ReadLimit,
		writeWait: opts.WriteWait,
		pongWait:  opts.PongWait,
	}
}

// Consume encodes the event and queues it for the writer goroutine.
// When the queue stays full past the router's delivery timeout, the
// event is dropped for this connection only.
func (c *Client) Consume(ctx context.Context, e event.OutboundEvent) error {
	frame, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readPump consumes frames until the connection dies, dispatching each
// decoded command to the coordinator. It returns when the peer closes,
// the read deadline lapses without a pong, or ctx is canceled.
func (c *Client) readPump(ctx context.Context, codec *Codec, coord contract.ICoordinator) {
	c.conn.SetReadLimit(c.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway) {
				c.log.Warn("Read error", "conn", c.id, "error", err)
			}
			return
		}

		cmd, err := codec.DecodeCommand(c.id, frame)
		if err != nil {
			c.monitor.IncrFramesRejected()
			c.log.Debug("Dropping frame", "conn", c.id, "error", err)
			continue
		}

		if err := coord.Dispatch(ctx, cmd); err != nil {
			return
		}
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. It owns all writes to the underlying connection.
func (c *Client) writePump(ctx context.Context) {
	pingPeriod := c.pongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
