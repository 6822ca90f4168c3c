package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Handle(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "tournament event",
		"type", e.Kind,
		"tournament_id", e.TournamentID,
		"payload", e.Payload,
	)
	return nil
}

// RedisSink publishes events as JSON so that notifiers outside this process
// can subscribe per tournament.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(ctx context.Context, addr, password string, db int) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}
	return &RedisSink{client: rdb}, nil
}

// Channel is the pub/sub channel carrying a tournament's events.
func Channel(tournamentID uuid.UUID) string {
	return "tournament:" + tournamentID.String() + ":events"
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Handle(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return s.client.Publish(ctx, Channel(e.TournamentID), body).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
