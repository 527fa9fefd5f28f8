/*
main.go - Shift billing HTTP server

PURPOSE:
  Serves the consolidation API: opens the tariff store, seeds the registry
  with the built-in presets plus whatever tariffs the store holds, and
  listens until interrupted. Batch runs from the command line live in
  cmd/consolidate instead.

FLAGS:
  -port    Listen port (default 8080)
  -db      Path of the SQLite tariff database (default tariffs.db).
           ":memory:" gives a throwaway store for local experiments:

             ./server -db=":memory:" -port=3000

SHUTDOWN:
  SIGINT/SIGTERM stops accepting connections; in-flight requests get
  30 seconds to finish before the store is closed. A registry that fails
  to load stored tariffs logs a warning and keeps the presets.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groundside/shift-engine/api"
	"github.com/groundside/shift-engine/store/sqlite"
	"github.com/groundside/shift-engine/tariff"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "tariffs.db", "SQLite tariff database path")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open tariff store: %v", err)
	}
	defer store.Close()

	// Presets first, stored tariffs layered on top
	registry := tariff.DefaultRegistry()
	if err := store.LoadRegistry(context.Background(), registry.Register); err != nil {
		log.Printf("Warning: stored tariffs not loaded: %v", err)
	}

	router := api.NewRouter(api.NewHandler(registry, store))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Listening on http://localhost:%d/api (tariffs: %s)", *port, *dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Println("Stopped")
}
