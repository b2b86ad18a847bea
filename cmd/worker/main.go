// Worker runs the spike detector on a schedule and, when Kafka is configured,
// consumes spike alerts and delivers them to the operator webhook.
// Set DATABASE_URL; KAFKA_BROKERS, ALERT_KAFKA_TOPIC, KAFKA_GROUP_ID, and
// ALERT_WEBHOOK_URL enable the delivery side.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"watchpost/internal/alert/notifier"
	"watchpost/internal/alert/producer"
	"watchpost/internal/config"
	"watchpost/internal/db"
	eventrepo "watchpost/internal/event/repository"
	"watchpost/internal/spike"
	spikerepo "watchpost/internal/spike/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	brokers := cfg.AlertKafkaBrokersList()

	var pub spike.Publisher
	if len(brokers) > 0 {
		kp, err := producer.NewKafkaProducer(brokers, cfg.AlertKafkaTopic)
		if err != nil {
			log.Fatalf("worker: alert producer: %v", err)
		}
		defer kp.Close()
		pub = kp
	}

	detector := spike.NewDetector(
		eventrepo.NewPostgresRepository(conn),
		spikerepo.NewPostgresRepository(conn),
		pub,
		cfg.SpikeThreshold, cfg.SpikeCooldownDuration(), int64(cfg.SpikeMinCount),
	)

	go runScanLoop(ctx, detector, cfg.ScanInterval())

	if len(brokers) > 0 && cfg.AlertWebhookURL != "" {
		consumeAlerts(ctx, cfg, brokers)
		return
	}

	log.Printf("worker: scanning every %s (alert delivery disabled)", cfg.ScanInterval())
	<-ctx.Done()
	log.Println("worker: stopped")
}

// runScanLoop runs one detection pass immediately, then on every tick.
func runScanLoop(ctx context.Context, detector *spike.Detector, interval time.Duration) {
	scan := func() {
		scanCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		created, err := detector.Scan(scanCtx)
		if err != nil {
			log.Printf("worker: scan failed: %v", err)
			return
		}
		if len(created) > 0 {
			log.Printf("worker: scan created %d alert(s)", len(created))
		}
	}

	scan()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scan()
		}
	}
}

// consumeAlerts reads spike alerts from Kafka and delivers each to the webhook.
func consumeAlerts(ctx context.Context, cfg *config.Config, brokers []string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.AlertKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	log.Printf("worker: consuming from %s (group %s), delivering to %s",
		cfg.AlertKafkaTopic, cfg.KafkaGroupID, cfg.AlertWebhookURL)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := notifier.PushAlertJSON(pushCtx, cfg.AlertWebhookURL, msg.Value); err != nil {
			log.Printf("worker: webhook delivery failed: %v", err)
		}
		pushCancel()
	}
}
