// The notifier delivers game summary notifications. With Kafka enabled it
// consumes the notification topic fed by the api's outbox poller; without
// Kafka it drains the outbox table directly.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/infra"
	"github.com/pokernight/platform/internal/notify"
	"github.com/pokernight/platform/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("notifier failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.KafkaEnabled {
		return consumeKafka(ctx, cfg, logger)
	}
	return drainOutbox(ctx, cfg, logger)
}

func consumeKafka(ctx context.Context, cfg *infra.Config, logger *slog.Logger) error {
	consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, "pokernight.notification", "notifier", cfg.KafkaEnabled, logger)
	defer consumer.Close()
	logger.Info("notifier consuming", "brokers", cfg.KafkaBrokers)

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("notifier shutting down")
				return nil
			}
			logger.Error("read message", "error", err)
			continue
		}

		var event struct {
			EventID   string          `json:"event_id"`
			EventType string          `json:"event_type"`
			Headers   json.RawMessage `json:"headers"`
			Payload   json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("decode event", "error", err)
			continue
		}
		if domain.EventType(event.EventType) != domain.EventGameSummary {
			continue
		}
		deliver(logger, event.EventID, event.Headers, event.Payload)
	}
}

func drainOutbox(ctx context.Context, cfg *infra.Config, logger *slog.Logger) error {
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("notifier draining outbox directly")

	pollInterval := 2 * time.Second
	if s := os.Getenv("OUTBOX_POLL_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			pollInterval = d
		}
	}
	batchSize := 100
	if s := os.Getenv("OUTBOX_BATCH_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			batchSize = n
		}
	}

	repo := repository.NewOutboxRepository()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("notifier shutting down")
			return nil
		case <-ticker.C:
			if err := poll(ctx, pool, repo, logger, batchSize); err != nil {
				logger.Error("poll error", "error", err)
			}
		}
	}
}

func poll(ctx context.Context, pool *pgxpool.Pool, repo repository.OutboxRepository, logger *slog.Logger, limit int) error {
	rows, err := repo.FetchUnpublished(ctx, pool, limit)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if row.Draft.EventType == domain.EventGameSummary {
			deliver(logger, row.Draft.EventID.String(), row.Draft.Headers, row.Draft.Payload)
		}
		ids = append(ids, row.SeqID)
	}

	if err := repo.MarkPublished(ctx, pool, ids); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	logger.Info("processed outbox batch", "count", len(ids))
	return nil
}

// deliver logs the summary in place of a mail transport. The recipient
// travels in the event headers.
func deliver(logger *slog.Logger, eventID string, headers, payload json.RawMessage) {
	var hdr struct {
		Recipient string `json:"recipient"`
	}
	_ = json.Unmarshal(headers, &hdr)

	var summary notify.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		logger.Error("decode summary", "event_id", eventID, "error", err)
		return
	}

	logger.Info("game summary delivered",
		"event_id", eventID,
		"recipient", hdr.Recipient,
		"game_date", summary.GameDate,
		"profit", summary.Profit,
		"transactions", len(summary.Transactions),
	)
}
