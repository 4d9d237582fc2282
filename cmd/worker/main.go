// Package main is the entry point for the gestock background worker.
// It drains the transactional outbox and prunes expired idempotency keys.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gestock/internal/domain/ledger"
	"gestock/internal/infrastructure/storage/postgres"
	"gestock/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting gestock worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	worker := NewWorker(pool, txManager, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker drains the outbox and runs periodic maintenance.
type Worker struct {
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	log         *logger.Logger
}

func NewWorker(pool *postgres.Pool, txManager *postgres.TxManager, log *logger.Logger) *Worker {
	handler := &reorderAlertHandler{log: log.WithComponent("reorder-alerts")}
	return &Worker{
		relay:       postgres.NewOutboxRelay(pool.Unwrap(), 100, handler),
		idempotency: postgres.NewIdempotencyStore(txManager, 24*time.Hour),
		log:         log.WithComponent("worker"),
	}
}

// Run polls the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := w.relay.ProcessBatch(ctx)
			if err != nil {
				w.log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				w.log.Debugw("processed outbox batch", "count", processed)
			}
		case <-cleanupTicker.C:
			w.cleanupIdempotency(ctx)
		}
	}
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	removed, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}

// reorderAlertHandler delivers reorder alerts. Today delivery means
// structured logging; a message broker can replace this handler without
// touching the relay.
type reorderAlertHandler struct {
	log *logger.Logger
}

func (h *reorderAlertHandler) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	if msg.EventType != postgres.EventReorderPointReached {
		h.log.Warnw("skipping unknown event type", "event_type", msg.EventType, "message_id", msg.ID)
		return nil
	}

	var alert ledger.ReorderAlert
	if err := json.Unmarshal(msg.Payload, &alert); err != nil {
		return fmt.Errorf("decode reorder alert: %w", err)
	}

	h.log.Infow("reorder point reached",
		"ledger_id", alert.LedgerID,
		"product_id", alert.ProductID,
		"physical", alert.Physical,
		"threshold", alert.Threshold,
		"occurred_at", alert.OccurredAt,
	)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
