package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Recorder ships decisions to the audit trail.
type Recorder interface {
	Record(ctx context.Context, d Decision)
}

// QueueRecorder enqueues decisions for the background worker. Enqueue
// failures are logged and dropped; auditing must not fail a request.
type QueueRecorder struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewQueueRecorder constructs a QueueRecorder.
func NewQueueRecorder(client *asynq.Client, logger *slog.Logger) *QueueRecorder {
	return &QueueRecorder{client: client, logger: logger}
}

// Record enqueues the decision.
func (r *QueueRecorder) Record(ctx context.Context, d Decision) {
	if d.At.IsZero() {
		d.At = time.Now().UTC()
	}
	task, err := NewRecordTask(d)
	if err != nil {
		r.log("audit encode decision", err)
		return
	}
	if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		r.log("audit enqueue decision", err)
	}
}

func (r *QueueRecorder) log(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, slog.Any("error", err))
	}
}

// NopRecorder drops every decision. Used in tests and when auditing is
// disabled.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(ctx context.Context, d Decision) {}

var (
	_ Recorder = (*QueueRecorder)(nil)
	_ Recorder = NopRecorder{}
)
