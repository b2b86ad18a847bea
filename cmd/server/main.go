package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchpost/internal/alert/producer"
	"watchpost/internal/config"
	"watchpost/internal/db"
	"watchpost/internal/deploy"
	deployhandler "watchpost/internal/deploy/handler"
	deployrepo "watchpost/internal/deploy/repository"
	eventrepo "watchpost/internal/event/repository"
	"watchpost/internal/group"
	grouphandler "watchpost/internal/group/handler"
	healthhandler "watchpost/internal/health/handler"
	"watchpost/internal/ingest"
	ingesthandler "watchpost/internal/ingest/handler"
	"watchpost/internal/server"
	"watchpost/internal/spike"
	spikehandler "watchpost/internal/spike/handler"
	spikerepo "watchpost/internal/spike/repository"
	"watchpost/internal/status"
	statushandler "watchpost/internal/status/handler"
	statusrepo "watchpost/internal/status/repository"
	"watchpost/internal/telemetry/otel"
)

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
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "watchpost-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	events := eventrepo.NewPostgresRepository(conn)
	statuses := statusrepo.NewPostgresRepository(conn)
	alerts := spikerepo.NewPostgresRepository(conn)
	deploys := deployrepo.NewPostgresRepository(conn)

	var pub *producer.KafkaProducer
	if brokers := cfg.AlertKafkaBrokersList(); len(brokers) > 0 {
		pub, err = producer.NewKafkaProducer(brokers, cfg.AlertKafkaTopic)
		if err != nil {
			log.Fatalf("alert producer: %v", err)
		}
		defer pub.Close()
		log.Printf("alert pipeline enabled: topic %s", cfg.AlertKafkaTopic)
	}

	gate := ingest.NewGate(events, ingest.NewWindowLimiter(cfg.RateWindow(), cfg.RateLimitMax))
	aggregator := group.NewAggregator(events)
	ledger := status.NewLedger(statuses)
	detector := spike.NewDetector(events, alerts, publisherOrNil(pub),
		cfg.SpikeThreshold, cfg.SpikeCooldownDuration(), int64(cfg.SpikeMinCount))
	correlator := deploy.NewCorrelator(events, deploys)

	router := server.New(cfg.Env, server.Deps{
		Ingest:  ingesthandler.NewHandler(gate),
		Groups:  grouphandler.NewHandler(aggregator, ledger),
		Status:  statushandler.NewHandler(ledger),
		Spikes:  spikehandler.NewHandler(detector),
		Deploys: deployhandler.NewHandler(deploys, correlator),
		Health:  healthhandler.NewHandler(conn),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// publisherOrNil avoids handing the detector a non-nil interface wrapping a nil producer.
func publisherOrNil(p *producer.KafkaProducer) spike.Publisher {
	if p == nil {
		return nil
	}
	return p
}
