package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"qrattend/internal/audit"
	"qrattend/internal/config"
	"qrattend/internal/metrics"
	"qrattend/internal/queue"
	"qrattend/internal/store"
)

// Worker drains queued validation-log entries into Postgres. The submission
// path only enqueues, so a slow or unavailable audit store never slows down
// students checking in.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// Memory mode keeps the queue inside the API process; a separate
		// worker has nothing to consume.
		log.Println("QUEUE_BACKEND=memory: the api process drains its own queue, exiting")
		return
	}
	q = queue.NewRedisQueue(redisClient.Client, cfg.AuditQueueKey)

	logger := audit.NewPostgresLogger(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for validation logs...")
	for msg := range messages {
		if msg.Type != audit.MessageType {
			continue
		}

		entry, err := audit.Decode(msg.Body)
		if err != nil {
			log.Printf("decode failed: %v", err)
			metrics.AuditWritesTotal.WithLabelValues("decode_error").Inc()
			continue
		}

		if err := logger.Record(ctx, entry); err != nil {
			log.Printf("audit write failed for lesson %s: %v", entry.LessonID, err)
			metrics.AuditWritesTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.AuditWritesTotal.WithLabelValues("ok").Inc()
	}

	log.Println("worker exited")
}
