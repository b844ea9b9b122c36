// cmd/audit/main.go
package main

import (
	"context"
	"log"
	"os"

	"bookstack/internal/audit"
	"bookstack/internal/postgres"
)

// Runs the consistency audits against the configured database and exits
// non-zero when any invariant is violated.
func main() {
	ctx := context.Background()

	db, err := postgres.Open()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	findings, err := audit.New(db).Run(ctx)
	if err != nil {
		log.Fatalf("Audit failed to run: %v", err)
	}

	if len(findings) == 0 {
		log.Println("Audit passed: no invariant violations found")
		return
	}

	for _, f := range findings {
		log.Printf("VIOLATION [%s] item=%s copy=%s: %s", f.Check, f.ItemID, f.CopyID, f.Message)
	}
	os.Exit(1)
}
