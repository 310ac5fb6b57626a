// Package audit records authentication and authorization decisions.
// Producers enqueue decisions as background tasks so the request path never
// blocks on the audit trail; a worker drains the queue into Redis.
package audit

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue name used for audit tasks.
	QueueDefault = "default"
	// TaskTypeRecord is the task type for persisting a decision.
	TaskTypeRecord = "audit:record"
	// ListKey is the Redis list the worker appends decisions to.
	ListKey = "audit:decisions"
)

// Operations recorded in the audit trail.
const (
	OpAuthenticate = "authenticate"
	OpCapability   = "capability"
)

// Outcomes recorded in the audit trail.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
)

// Decision is one audit record.
type Decision struct {
	At         time.Time `json:"at"`
	Identity   string    `json:"identity"`
	Op         string    `json:"op"`
	Capability string    `json:"capability,omitempty"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
}

// NewRecordTask constructs an Asynq task carrying the decision.
func NewRecordTask(d Decision) (*asynq.Task, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecord, data), nil
}
