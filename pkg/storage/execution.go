package storage

import (
	"encoding/json"

	"github.com/rhuss/llmhub/pkg/api"
)

// Status is the final state of an execution.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ObjectExecution is the object tag of stored execution records.
const ObjectExecution = "execution"

// Execution is the record of one finished batch execution.
type Execution struct {
	ID          string `json:"id"`
	Object      string `json:"object"`
	Status      Status `json:"status"`
	Credentials string `json:"credentials"`
	Items       int    `json:"items"`

	// Outputs is the encoded output branch list of a completed execution,
	// kept as raw JSON so hub payloads are returned unchanged.
	Outputs json.RawMessage `json:"outputs,omitempty"`

	// Error is set for failed and cancelled executions.
	Error *api.APIError `json:"error,omitempty"`

	CreatedAt  int64 `json:"created_at"`
	DurationMS int64 `json:"duration_ms"`
}
