package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/audit"
)

func newSink(t *testing.T, max int64) (*audit.Sink, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return audit.NewSink(client, max, nil), client
}

func TestRecordTaskRoundTrip(t *testing.T) {
	decision := audit.Decision{
		At:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Identity:   "viewer",
		Op:         audit.OpCapability,
		Capability: "update",
		Outcome:    audit.OutcomeDenied,
		RemoteAddr: "10.0.0.1:55555",
	}

	task, err := audit.NewRecordTask(decision)
	require.NoError(t, err)
	assert.Equal(t, audit.TaskTypeRecord, task.Type())

	var decoded audit.Decision
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, decision, decoded)
}

func TestSinkHandleRecordTask(t *testing.T) {
	sink, _ := newSink(t, 100)
	ctx := context.Background()

	task, err := audit.NewRecordTask(audit.Decision{
		At:       time.Now().UTC().Truncate(time.Second),
		Identity: "admin",
		Op:       audit.OpAuthenticate,
		Outcome:  audit.OutcomeGranted,
	})
	require.NoError(t, err)

	require.NoError(t, sink.HandleRecordTask(ctx, task))

	recent, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "admin", recent[0].Identity)
	assert.Equal(t, audit.OutcomeGranted, recent[0].Outcome)
}

func TestSinkRejectsMalformedPayload(t *testing.T) {
	sink, _ := newSink(t, 100)

	err := sink.HandleRecordTask(context.Background(), asynq.NewTask(audit.TaskTypeRecord, []byte("not json")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "malformed payloads must not be retried")
}

func TestSinkTrimsToCap(t *testing.T) {
	sink, client := newSink(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Append(ctx, audit.Decision{
			At:       time.Now().UTC(),
			Identity: "viewer",
			Op:       audit.OpCapability,
			Outcome:  audit.OutcomeDenied,
		}))
	}

	length, err := client.LLen(ctx, audit.ListKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)
}

func TestSinkRecentNewestFirst(t *testing.T) {
	sink, _ := newSink(t, 10)
	ctx := context.Background()

	for _, identity := range []string{"first", "second", "third"} {
		require.NoError(t, sink.Append(ctx, audit.Decision{
			At:       time.Now().UTC(),
			Identity: identity,
			Op:       audit.OpAuthenticate,
			Outcome:  audit.OutcomeGranted,
		}))
	}

	recent, err := sink.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Identity)
	assert.Equal(t, "second", recent[1].Identity)
}
