// Package observability aggregates runtime counters for logs and the
// debug endpoint. Counters are atomic; sampling them is best effort and
// never blocks the session core.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/process"
)

// Stats is one point-in-time snapshot served by /debug/stats.
type Stats struct {
	ConnectionsOpen   int64  `json:"connections_open"`
	ConnectionsOpened uint64 `json:"connections_opened"`
	ConnectionsClosed uint64 `json:"connections_closed"`
	CommandsProcessed uint64 `json:"commands_processed"`
	EventsDelivered   uint64 `json:"events_delivered"`
	DeliveriesDropped uint64 `json:"deliveries_dropped"`
	FramesRejected    uint64 `json:"frames_rejected"`
	MessagesCensored  uint64 `json:"messages_censored"`

	Identities int `json:"identities"`
	Rooms      int `json:"rooms"`
	// Rooms are never evicted; EmptyRooms tracks the accumulation.
	EmptyRooms int `json:"empty_rooms"`

	AllocMemMb        uint64  `json:"alloc_mem_mb"`
	NumGC             uint32  `json:"num_gc"`
	ProcessCPUPercent float64 `json:"process_cpu_percent"`
	ProcessRSSMb      uint64  `json:"process_rss_mb"`
}

// GaugeProvider reports current registry sizes for snapshots.
type GaugeProvider func() (identities, rooms, emptyRooms int)

type Monitor struct {
	log  *slog.Logger
	proc *process.Process // nil when process introspection is unavailable

	mu     sync.RWMutex
	gauges GaugeProvider

	connectionsOpened uint64
	connectionsClosed uint64
	commandsProcessed uint64
	eventsDelivered   uint64
	deliveriesDropped uint64
	framesRejected    uint64
	messagesCensored  uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process introspection unavailable", "error", err)
		proc = nil
	}
	return &Monitor{log: log, proc: proc}
}

// SetGauges installs the callback reporting registry sizes.
func (m *Monitor) SetGauges(p GaugeProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges = p
}

func (m *Monitor) IncrConnectionsOpened() { atomic.AddUint64(&m.connectionsOpened, 1) }
func (m *Monitor) IncrConnectionsClosed() { atomic.AddUint64(&m.connectionsClosed, 1) }
func (m *Monitor) IncrCommandsProcessed() { atomic.AddUint64(&m.commandsProcessed, 1) }
func (m *Monitor) IncrEventsDelivered()   { atomic.AddUint64(&m.eventsDelivered, 1) }
func (m *Monitor) IncrDeliveriesDropped() { atomic.AddUint64(&m.deliveriesDropped, 1) }
func (m *Monitor) IncrFramesRejected()    { atomic.AddUint64(&m.framesRejected, 1) }
func (m *Monitor) IncrMessagesCensored()  { atomic.AddUint64(&m.messagesCensored, 1) }

// Snapshot assembles the current stats. Safe for concurrent use.
func (m *Monitor) Snapshot() Stats {
	opened := atomic.LoadUint64(&m.connectionsOpened)
	closed := atomic.LoadUint64(&m.connectionsClosed)

	stats := Stats{
		ConnectionsOpen:   int64(opened) - int64(closed),
		ConnectionsOpened: opened,
		ConnectionsClosed: closed,
		CommandsProcessed: atomic.LoadUint64(&m.commandsProcessed),
		EventsDelivered:   atomic.LoadUint64(&m.eventsDelivered),
		DeliveriesDropped: atomic.LoadUint64(&m.deliveriesDropped),
		FramesRejected:    atomic.LoadUint64(&m.framesRejected),
		MessagesCensored:  atomic.LoadUint64(&m.messagesCensored),
	}

	m.mu.RLock()
	gauges := m.gauges
	m.mu.RUnlock()
	if gauges != nil {
		stats.Identities, stats.Rooms, stats.EmptyRooms = gauges()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.AllocMemMb = mem.Alloc / 1024 / 1024
	stats.NumGC = mem.NumGC

	if m.proc != nil {
		if cpu, err := m.proc.CPUPercent(); err == nil {
			stats.ProcessCPUPercent = cpu
		}
		if info, err := m.proc.MemoryInfo(); err == nil {
			stats.ProcessRSSMb = info.RSS / 1024 / 1024
		}
	}

	return stats
}
