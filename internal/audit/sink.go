package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Sink persists queued decisions into a capped Redis list.
type Sink struct {
	client *redis.Client
	max    int64
	logger *slog.Logger
}

// NewSink constructs a Sink keeping at most max decisions.
func NewSink(client *redis.Client, max int64, logger *slog.Logger) *Sink {
	if max <= 0 {
		max = 10000
	}
	return &Sink{client: client, max: max, logger: logger}
}

// HandleRecordTask processes TaskTypeRecord tasks.
func (s *Sink) HandleRecordTask(ctx context.Context, t *asynq.Task) error {
	if s == nil {
		return errors.New("audit: sink not configured")
	}
	var d Decision
	if err := json.Unmarshal(t.Payload(), &d); err != nil {
		return asynq.SkipRetry
	}
	if err := s.Append(ctx, d); err != nil {
		if s.logger != nil {
			s.logger.Error("audit append decision", slog.Any("error", err))
		}
		return err
	}
	return nil
}

// Append writes one decision to the list and trims it to the cap.
func (s *Sink) Append(ctx context.Context, d Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, ListKey, data)
	pipe.LTrim(ctx, ListKey, 0, s.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// Recent returns up to n decisions, newest first.
func (s *Sink) Recent(ctx context.Context, n int64) ([]Decision, error) {
	if n <= 0 {
		n = 100
	}
	rows, err := s.client.LRange(ctx, ListKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	decisions := make([]Decision, 0, len(rows))
	for _, row := range rows {
		var d Decision
		if err := json.Unmarshal([]byte(row), &d); err != nil {
			continue
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}
