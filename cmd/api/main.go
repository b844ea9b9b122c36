// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bookstack/internal/catalog"
	"bookstack/internal/circulation"
	"bookstack/internal/eventlog"
	"bookstack/internal/membership"
	"bookstack/internal/postgres"
	"bookstack/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, "bookstack")
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdownTelemetry(context.Background())

	db, err := postgres.Open()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	events := eventlog.New(db)
	membershipSvc := membership.NewService(db, events)
	catalogSvc := catalog.NewService(db, events)
	circulationSvc := circulation.NewService(db, events)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(membership.Identify)

	router.Group(membership.NewHandler(membershipSvc).Routes)
	router.Group(catalog.NewHandler(catalogSvc).Routes)
	router.Group(circulation.NewHandler(circulationSvc).Routes)

	go runSweeper(ctx, circulationSvc)

	port := getEnv("PORT", "8080")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("bookstack API listening on port %s", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}

// runSweeper reclassifies lapsed loans on a fixed interval. The sweep is
// also reachable on demand through POST /lending-records/sweep.
func runSweeper(ctx context.Context, svc circulation.Service) {
	interval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "1h"))
	if err != nil || interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := svc.SweepOverdue(ctx)
			if err != nil {
				log.Printf("Overdue sweep failed: %v", err)
				continue
			}
			if len(swept) > 0 {
				log.Printf("Overdue sweep reclassified %d records", len(swept))
			}
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
