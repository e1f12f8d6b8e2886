package transport

import (
	"context"

	"github.com/rhuss/llmhub/pkg/completion"
	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/models"
	"github.com/rhuss/llmhub/pkg/node"
	"github.com/rhuss/llmhub/pkg/storage"
)

// NodeHandler is the contract between the HTTP adapter and the node.
// *node.Node implements it.
type NodeHandler interface {
	// Description returns the static node metadata.
	Description() node.Description

	// LoadOptions runs an option-loading method such as getModels.
	LoadOptions(ctx context.Context, method string, host credentials.Source) ([]models.Option, error)

	// Execute runs one batch and returns the single output branch.
	Execute(ctx context.Context, host node.ExecuteHost) ([][]completion.Output, error)
}

var _ NodeHandler = (*node.Node)(nil)

// ExecuteRequest is the body of POST /v1/execute.
type ExecuteRequest struct {
	// Credentials names the credential set. Empty selects the server default.
	Credentials string `json:"credentials,omitempty"`

	// Parameters are static values applied to every item.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Items is the input batch.
	Items []node.Item `json:"items"`
}

// ExecuteResponse is the body of a successful POST /v1/execute.
type ExecuteResponse struct {
	Outputs [][]completion.Output `json:"outputs"`
}

// OptionsResponse is the body of GET /v1/options/{method}.
type OptionsResponse struct {
	Options []models.Option `json:"options"`
}

// ListOptions controls pagination, filtering, and ordering for list operations.
type ListOptions struct {
	After  string         // Cursor: return records after this ID.
	Limit  int            // Maximum number of records to return (default 20, max 100).
	Status storage.Status // Filter by final status.
	Order  string         // Sort order: "asc" or "desc" (default "desc").
}

// Limits applied by ExecutionStore implementations.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// EffectiveLimit clamps Limit to [1, MaxListLimit], using DefaultListLimit
// when unset.
func (o ListOptions) EffectiveLimit() int {
	switch {
	case o.Limit <= 0:
		return DefaultListLimit
	case o.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return o.Limit
	}
}

// ExecutionList holds a paginated list of execution records.
type ExecutionList struct {
	Object  string               `json:"object"`
	Data    []*storage.Execution `json:"data"`
	HasMore bool                 `json:"has_more"`
	FirstID string               `json:"first_id"`
	LastID  string               `json:"last_id"`
}

// ExecutionStore keeps the records of finished executions. It is optional:
// without one, results are only returned to the caller that ran the batch.
type ExecutionStore interface {
	// SaveExecution persists a finished execution. Returns storage.ErrConflict
	// if a record with the same ID exists.
	SaveExecution(ctx context.Context, exec *storage.Execution) error

	// GetExecution retrieves a record by ID. Returns storage.ErrNotFound if
	// the record does not exist or belongs to another owner.
	GetExecution(ctx context.Context, id string) (*storage.Execution, error)

	// DeleteExecution removes a record by ID.
	DeleteExecution(ctx context.Context, id string) error

	// ListExecutions returns a paginated list of records, filtered by owner
	// (when present in context) and optionally by status.
	ListExecutions(ctx context.Context, opts ListOptions) (*ExecutionList, error)

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases database connections and resources.
	Close() error
}
