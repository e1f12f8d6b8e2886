package completion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/debug"
	"github.com/rhuss/llmhub/pkg/hub"
	"github.com/rhuss/llmhub/pkg/observability"
)

// Output pairs a hub response with the index of the record that produced it.
type Output struct {
	// Payload is the decoded response body, unmodified.
	Payload any `json:"json"`

	// SourceIndex is the position of the originating input record.
	SourceIndex int `json:"pairedItem"`
}

// ParameterSource yields the parameters for the record at index.
type ParameterSource interface {
	Parameters(index int) (Parameters, error)
}

// ParameterFunc adapts a function to the ParameterSource interface.
type ParameterFunc func(index int) (Parameters, error)

// Parameters calls f(index).
func (f ParameterFunc) Parameters(index int) (Parameters, error) {
	return f(index)
}

// Executor issues chat-completion calls for a batch of records.
//
// Executor holds no per-batch state and is safe for concurrent use by
// independent invocations.
type Executor struct {
	client hub.AuthenticatedClient
	logger *slog.Logger
}

// NewExecutor creates an Executor calling the hub through client.
func NewExecutor(client hub.AuthenticatedClient, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{client: client, logger: logger}
}

// Execute runs count records in order and returns one Output per record.
// Any error aborts the batch and Execute returns nil outputs.
func (e *Executor) Execute(ctx context.Context, creds *credentials.Credentials, count int, params ParameterSource) ([]Output, error) {
	baseURL := creds.BaseURLOrDefault()
	outputs := make([]Output, 0, count)

	for i := 0; i < count; i++ {
		p, err := params.Parameters(i)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		req := NewRequest(p)
		debug.Log("executor", "sending completion", "item", i, "model", req.Model)

		start := time.Now()
		payload, err := e.client.Do(ctx, creds, hub.Request{
			Method:  http.MethodPost,
			URL:     "/chat/completions",
			BaseURL: baseURL,
			Body:    req,
		})
		if err != nil {
			e.logger.Error("completion failed", "item", i, "model", req.Model, "error", err)
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		debug.Log("executor", "completion received", "item", i, "duration", time.Since(start))

		outputs = append(outputs, Output{Payload: payload, SourceIndex: i})
	}

	observability.ExecutionItemsTotal.Add(float64(len(outputs)))
	return outputs, nil
}
