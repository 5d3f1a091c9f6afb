package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"roomcast/contract"
	"roomcast/domain"
	"roomcast/domain/event"
	"roomcast/observability"
)

var _ contract.IRouter = (*Router)(nil)

// Router is the broadcast fanout. It resolves a room's member set into
// attached sinks and delivers one event to each of them, sender included.
// Delivery is fire and forget: a sink that is slow past the timeout or
// already detached is skipped, never retried.
type Router struct {
	log     *slog.Logger
	rooms   *RoomDirectory
	monitor *observability.Monitor
	timeout time.Duration

	mu    sync.RWMutex
	sinks map[domain.ConnID]contract.EventSink
}

func NewRouter(log *slog.Logger, rooms *RoomDirectory,
	monitor *observability.Monitor, timeout time.Duration) *Router {
	return &Router{
		log:     log,
		rooms:   rooms,
		monitor: monitor,
		timeout: timeout,
		sinks:   make(map[domain.ConnID]contract.EventSink),
	}
}

// Attach registers the sink delivering to conn. Called by the transport
// on connection open, before any command from that connection.
func (r *Router) Attach(conn domain.ConnID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[conn] = sink
}

// Detach forgets the sink. Events routed to conn afterwards are dropped.
func (r *Router) Detach(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, conn)
}

// Unicast delivers e to a single connection.
func (r *Router) Unicast(ctx context.Context, conn domain.ConnID, e event.OutboundEvent) {
	r.deliver(ctx, conn, e)
}

// Broadcast delivers e to every member of the room at the moment of the
// call. A broadcast to an absent room is a no-op.
func (r *Router) Broadcast(ctx context.Context, roomName string, e event.OutboundEvent) {
	for _, conn := range r.rooms.Members(roomName) {
		r.deliver(ctx, conn, e)
	}
}

func (r *Router) deliver(ctx context.Context, conn domain.ConnID, e event.OutboundEvent) {
	r.mu.RLock()
	sink, ok := r.sinks[conn]
	r.mu.RUnlock()
	if !ok {
		// Member without a sink: the connection is already gone, its
		// disconnect transition just hasn't been applied yet.
		r.monitor.IncrDeliveriesDropped()
		return
	}

	deliverCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := sink.Consume(deliverCtx, e); err != nil {
		r.monitor.IncrDeliveriesDropped()
		r.log.Warn("Dropped event delivery",
			"conn", conn,
			"event", e.EventName(),
			"error", err)
		return
	}
	r.monitor.IncrEventsDelivered()
}
