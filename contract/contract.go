//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"roomcast/domain"
	"roomcast/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one connection's outbound delivery channel.
// Consume must not block past the context deadline.
type EventSink interface {
	Consume(ctx context.Context, e event.OutboundEvent) error
}

// IRouter delivers outbound events to attached connections. A room
// broadcast resolves the room's member set at call time, sender included.
type IRouter interface {
	Attach(conn domain.ConnID, sink EventSink)
	Detach(conn domain.ConnID)
	Unicast(ctx context.Context, conn domain.ConnID, e event.OutboundEvent)
	Broadcast(ctx context.Context, roomName string, e event.OutboundEvent)
}

// ICoordinator accepts inbound commands for serialized processing.
type ICoordinator interface {
	Dispatch(ctx context.Context, cmd domain.Command) error
}
