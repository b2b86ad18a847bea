// seed inserts development sample data for local testing: a few days of error
// events across two products, a deployment, and one resolved group.
// Idempotent: skips inserts if any seed event (product web-app) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"watchpost/internal/config"
	"watchpost/internal/db"
	deploydomain "watchpost/internal/deploy/domain"
	deployrepo "watchpost/internal/deploy/repository"
	eventdomain "watchpost/internal/event/domain"
	eventrepo "watchpost/internal/event/repository"
	"watchpost/internal/fingerprint"
	"watchpost/internal/status"
	statusrepo "watchpost/internal/status/repository"
)

const (
	seedProductWeb = "web-app"
	seedProductAPI = "api-gateway"
	seedUserID     = "5e3c9a1e-9f49-4a8e-b0d7-1c2d3e4f5a6b"
	seedUser2ID    = "7b1d2c3e-4f5a-6b7c-8d9e-0f1a2b3c4d5e"
)

type sample struct {
	product   string
	message   string
	stack     string
	errorType eventdomain.ErrorType
	source    eventdomain.Source
	userID    string
}

var samples = []sample{
	{
		product:   seedProductWeb,
		message:   "TypeError: Cannot read properties of undefined (reading 'map')",
		stack:     "TypeError: Cannot read properties of undefined (reading 'map')\n    at renderList (src/components/List.tsx:42:18)\n    at processChild (node_modules/react-dom/cjs/react-dom.development.js:7350:14)",
		errorType: eventdomain.ErrorTypeUnhandledException,
		source:    eventdomain.SourceClient,
		userID:    seedUserID,
	},
	{
		product:   seedProductWeb,
		message:   "NetworkError when attempting to fetch resource",
		stack:     "NetworkError when attempting to fetch resource\n    at fetchJSON (src/lib/http.ts:17:9)",
		errorType: eventdomain.ErrorTypeAPIError,
		source:    eventdomain.SourceClient,
		userID:    seedUser2ID,
	},
	{
		product:   seedProductAPI,
		message:   "pq: duplicate key value violates unique constraint \"orders_pkey\"",
		stack:     "Error: pq: duplicate key value violates unique constraint \"orders_pkey\"\n    at insertOrder (src/orders/store.ts:88:11)",
		errorType: eventdomain.ErrorTypeAPIError,
		source:    eventdomain.SourceServer,
		userID:    "",
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	events := eventrepo.NewPostgresRepository(conn)

	now := time.Now().UTC()
	existing, err := events.CountBetween(ctx, seedProductWeb, now.AddDate(0, 0, -30), now)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing > 0 {
		log.Println("Seed already applied (web-app events exist). Skipping.")
		os.Exit(0)
	}

	// Spread each sample over the last three days so the 24h/7d windows and
	// the spike baseline have history to work with.
	inserted := 0
	for _, s := range samples {
		fp := fingerprint.Compute(s.message, s.stack)
		for day := 0; day < 3; day++ {
			for i := 0; i < 4+day; i++ {
				occurred := now.AddDate(0, 0, -day).Add(-time.Duration(i) * 37 * time.Minute)
				e := &eventdomain.ErrorEvent{
					ID:          uuid.NewString(),
					Product:     s.product,
					Message:     s.message,
					StackTrace:  s.stack,
					ErrorType:   s.errorType,
					Source:      s.source,
					Fingerprint: fp,
					OccurredAt:  occurred,
					UserID:      s.userID,
					Environment: eventdomain.EnvironmentProduction,
					Metadata:    []byte(`{"seed":true}`),
					CreatedAt:   now,
				}
				if err := events.Insert(ctx, e); err != nil {
					log.Fatalf("insert event: %v", err)
				}
				inserted++
			}
		}
	}

	deploys := deployrepo.NewPostgresRepository(conn)
	if err := deploys.Create(ctx, &deploydomain.Deployment{
		ID:            uuid.NewString(),
		Product:       seedProductWeb,
		DeployedAt:    now.Add(-2 * time.Hour),
		CommitSHA:     "9f3b2a1c",
		CommitMessage: "Fix list rendering on empty state",
		CommitAuthor:  "dev@example.com",
		CreatedAt:     now,
	}); err != nil {
		log.Fatalf("create deployment: %v", err)
	}

	// Mark the network-error group resolved so the overlay has something to show.
	ledger := status.NewLedger(statusrepo.NewPostgresRepository(conn))
	resolvedFP := fingerprint.Compute(samples[1].message, samples[1].stack)
	if err := ledger.Set(ctx, resolvedFP, seedProductWeb, "resolved", "fixed by retry in http client"); err != nil {
		log.Fatalf("set status: %v", err)
	}

	log.Printf("Seed completed successfully: %d events, 1 deployment, 1 resolved group.", inserted)
}
