package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"roomcast/internal"
	"roomcast/moderation"
	"roomcast/observability"
	"roomcast/runtime/workers"
	"roomcast/session"
	"roomcast/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so that every defer executes before the
// process exits and graceful shutdown stays in one place.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Monitoring
	monitor := observability.NewMonitor(log)

	// 3. Session core
	identities := session.NewIdentityRegistry()
	rooms := session.NewRoomDirectory()
	monitor.SetGauges(func() (int, int, int) {
		return identities.Len(), rooms.Count(), rooms.EmptyCount()
	})
	router := session.NewRouter(log, rooms, monitor, config.SinkTimeout)

	var moderator *moderation.Moderator
	if config.EnableModeration {
		replacement, err := config.ReplacementRune()
		if err != nil {
			return err
		}
		words, err := moderation.DefaultWords()
		if err != nil {
			return fmt.Errorf("loading moderation wordlist: %w", err)
		}
		m, err := moderation.NewModerator(words, replacement, log)
		if err != nil {
			return fmt.Errorf("building moderator: %w", err)
		}
		moderator = &m
		log.Info(fmt.Sprintf("%d censored words loaded", len(words)))
	}

	coordinator := session.NewCoordinator(log, identities, rooms, router,
		moderator, monitor, config.BufferSize)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(coordinator)
	sup.Add(observability.NewReporter(log, monitor, config.MetricInterval))

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 6. HTTP & WebSocket server
	wsServer := ws.NewServer(log, coordinator, router, monitor, ws.Options{
		SendBuffer: config.ConnectionBufferSize,
		ReadLimit:  config.ReadLimitBytes,
		WriteWait:  config.WriteTimeout,
		PongWait:   config.PongWait,
	})
	httpServer := &http.Server{
		Addr:    config.Addr(),
		Handler: internal.NewRouter(wsServer, monitor.Snapshot),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Listening", "address", config.Addr(), "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
