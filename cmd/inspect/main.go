// Command inspect fetches a running server's /debug/stats snapshot and
// renders it as a table.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"roomcast/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "http://localhost:6969", "server base URL")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/debug/stats")
	if err != nil {
		return fmt.Errorf("fetching stats: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var stats observability.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return fmt.Errorf("decoding stats: %w", err)
	}

	color.Bold.Printf("roomcast stats: %s\n", *addr)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	rows := [][]string{
		{"connections open", strconv.FormatInt(stats.ConnectionsOpen, 10)},
		{"connections opened", strconv.FormatUint(stats.ConnectionsOpened, 10)},
		{"connections closed", strconv.FormatUint(stats.ConnectionsClosed, 10)},
		{"identities", strconv.Itoa(stats.Identities)},
		{"rooms", strconv.Itoa(stats.Rooms)},
		{"empty rooms", strconv.Itoa(stats.EmptyRooms)},
		{"commands processed", strconv.FormatUint(stats.CommandsProcessed, 10)},
		{"events delivered", strconv.FormatUint(stats.EventsDelivered, 10)},
		{"deliveries dropped", strconv.FormatUint(stats.DeliveriesDropped, 10)},
		{"frames rejected", strconv.FormatUint(stats.FramesRejected, 10)},
		{"messages censored", strconv.FormatUint(stats.MessagesCensored, 10)},
		{"alloc mem (MB)", strconv.FormatUint(stats.AllocMemMb, 10)},
		{"num GC", strconv.FormatUint(uint64(stats.NumGC), 10)},
		{"process CPU (%)", strconv.FormatFloat(stats.ProcessCPUPercent, 'f', 1, 64)},
		{"process RSS (MB)", strconv.FormatUint(stats.ProcessRSSMb, 10)},
	}
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()

	return nil
}
