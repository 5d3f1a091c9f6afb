package observability

import (
	"context"
	"log/slog"
	"time"

	"roomcast/contract"
)

var _ contract.Worker = (*Reporter)(nil)

// Reporter periodically logs a monitoring snapshot. It runs under the
// supervisor like any other worker.
type Reporter struct {
	log      *slog.Logger
	monitor  *Monitor
	interval time.Duration
}

func NewReporter(log *slog.Logger, monitor *Monitor, interval time.Duration) *Reporter {
	return &Reporter{log: log, monitor: monitor, interval: interval}
}

func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Stopping reporter")
			return ctx.Err()
		case <-ticker.C:
			stats := r.monitor.Snapshot()
			r.log.Info("Monitoring snapshot",
				"connections_open", stats.ConnectionsOpen,
				"identities", stats.Identities,
				"rooms", stats.Rooms,
				"empty_rooms", stats.EmptyRooms,
				"commands", stats.CommandsProcessed,
				"events_delivered", stats.EventsDelivered,
				"deliveries_dropped", stats.DeliveriesDropped,
				"frames_rejected", stats.FramesRejected,
				"censored", stats.MessagesCensored,
				"alloc_mb", stats.AllocMemMb,
				"cpu_percent", stats.ProcessCPUPercent,
			)
		}
	}
}
