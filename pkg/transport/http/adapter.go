package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/llmhub/pkg/api"
	"github.com/rhuss/llmhub/pkg/auth"
	"github.com/rhuss/llmhub/pkg/completion"
	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/debug"
	"github.com/rhuss/llmhub/pkg/node"
	"github.com/rhuss/llmhub/pkg/storage"
	"github.com/rhuss/llmhub/pkg/transport"
)

// ExecutionIDHeader carries the id a running execution can be cancelled by.
const ExecutionIDHeader = "X-Execution-ID"

// Adapter serves the node host API over HTTP.
// It routes requests to the node and serializes results.
type Adapter struct {
	node     transport.NodeHandler
	source   credentials.Source
	store    transport.ExecutionStore // nil when records are not kept
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// MaxBodySize limits POST bodies.
	MaxBodySize int64

	// DefaultCredentials names the credential set used when a request
	// does not name one.
	DefaultCredentials string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:        10 << 20, // 10 MB
		DefaultCredentials: credentials.DefaultName,
	}
}

// NewAdapter creates an HTTP adapter for h. Credential names in requests
// are resolved through source. store may be nil, which disables the
// execution record endpoints.
func NewAdapter(h transport.NodeHandler, source credentials.Source, store transport.ExecutionStore, cfg Config) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	if cfg.DefaultCredentials == "" {
		cfg.DefaultCredentials = credentials.DefaultName
	}

	a := &Adapter{
		node:     h,
		source:   source,
		store:    store,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("GET /v1/node", a.handleDescribe)
	a.mux.HandleFunc("GET /v1/options/{method}", a.handleLoadOptions)
	a.mux.HandleFunc("POST /v1/execute", a.handleExecute)
	a.mux.HandleFunc("GET /v1/executions", a.handleListExecutions)
	a.mux.HandleFunc("GET /v1/executions/{id}", a.handleGetExecution)
	a.mux.HandleFunc("DELETE /v1/executions/{id}", a.handleDeleteExecution)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// handleDescribe handles GET /v1/node.
func (a *Adapter) handleDescribe(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, a.node.Description())
}

// handleLoadOptions handles GET /v1/options/{method}?credentials=name.
func (a *Adapter) handleLoadOptions(w http.ResponseWriter, r *http.Request) {
	method := r.PathValue("method")
	host := &node.Batch{
		CredentialsName: a.credentialsName(r.URL.Query().Get("credentials")),
		Source:          a.source,
	}

	opts, err := a.node.LoadOptions(r.Context(), method, host)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, transport.OptionsResponse{Options: opts})
}

// handleExecute handles POST /v1/execute.
func (a *Adapter) handleExecute(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req transport.ExecuteRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	// The request id is only logged; execution ids are always minted here.
	execID := uuid.NewString()
	owner := auth.Subject(r.Context())

	ctx := node.ContextWithExecutionID(ownerContext(r), execID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !a.inflight.Register(execID, owner, cancel) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", fmt.Sprintf("execution %q is already running", execID)),
			http.StatusConflict,
		)
		return
	}
	defer a.inflight.Remove(execID)

	w.Header().Set(ExecutionIDHeader, execID)

	host := &node.Batch{
		CredentialsName: a.credentialsName(req.Credentials),
		Source:          a.source,
		Parameters:      req.Parameters,
		Items:           req.Items,
	}
	debug.Log("transport", "execute request", "execution_id", execID,
		"request_id", transport.RequestIDFromContext(r.Context()),
		"items", len(req.Items), "credentials", host.CredentialsName)

	start := time.Now()
	outputs, err := a.node.Execute(ctx, host)
	a.record(ctx, execID, host, outputs, err, start)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, transport.ExecuteResponse{Outputs: outputs})
}

// record stores the result of a finished execution. Store failures are
// logged and do not change the response.
func (a *Adapter) record(ctx context.Context, id string, host *node.Batch, outputs [][]completion.Output, execErr error, start time.Time) {
	if a.store == nil {
		return
	}

	rec := &storage.Execution{
		ID:          id,
		Object:      storage.ObjectExecution,
		Status:      storage.StatusCompleted,
		Credentials: host.CredentialsName,
		Items:       len(host.Items),
		CreatedAt:   start.Unix(),
		DurationMS:  time.Since(start).Milliseconds(),
	}
	switch {
	case execErr != nil && ctx.Err() != nil:
		rec.Status = storage.StatusCancelled
		rec.Error = api.NewServerError("execution cancelled")
	case execErr != nil:
		rec.Status = storage.StatusFailed
		rec.Error = transport.AsAPIError(execErr)
	default:
		data, err := json.Marshal(outputs)
		if err != nil {
			slog.Error("encoding execution outputs", "execution_id", id, "error", err)
			return
		}
		rec.Outputs = data
	}

	if err := a.store.SaveExecution(context.WithoutCancel(ctx), rec); err != nil {
		slog.Error("saving execution record", "execution_id", id, "error", err)
		return
	}
	debug.Log("transport", "execution recorded", "execution_id", id, "status", rec.Status)
}

// handleGetExecution handles GET /v1/executions/{id}.
func (a *Adapter) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}

	rec, err := a.store.GetExecution(ownerContext(r), r.PathValue("id"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, rec)
}

// handleListExecutions handles GET /v1/executions?limit=&after=&order=&status=.
func (a *Adapter) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}

	q := r.URL.Query()
	opts := transport.ListOptions{
		After:  q.Get("after"),
		Order:  q.Get("order"),
		Status: storage.Status(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			transport.WriteAPIError(w, api.NewInvalidRequestError("limit", "limit must be a positive integer"))
			return
		}
		opts.Limit = n
	}
	if opts.Order != "" && opts.Order != "asc" && opts.Order != "desc" {
		transport.WriteAPIError(w, api.NewInvalidRequestError("order", `order must be "asc" or "desc"`))
		return
	}
	switch opts.Status {
	case "", storage.StatusCompleted, storage.StatusFailed, storage.StatusCancelled:
	default:
		transport.WriteAPIError(w, api.NewInvalidRequestError("status", fmt.Sprintf("unknown status %q", opts.Status)))
		return
	}

	list, err := a.store.ListExecutions(ownerContext(r), opts)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, list)
}

// handleDeleteExecution handles DELETE /v1/executions/{id}. A running
// execution of the caller is cancelled; otherwise the caller's stored
// record is removed.
func (a *Adapter) handleDeleteExecution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if a.inflight.Cancel(id, auth.Subject(r.Context())) {
		debug.Log("transport", "execution cancelled", "execution_id", id)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if a.store != nil {
		if err := a.store.DeleteExecution(ownerContext(r), id); err == nil {
			debug.Log("transport", "execution record deleted", "execution_id", id)
			w.WriteHeader(http.StatusNoContent)
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			transport.WriteError(w, err)
			return
		}
	}

	transport.WriteAPIError(w, api.NewNotFoundError(fmt.Sprintf("execution %q not found", id)))
}

func (a *Adapter) requireStore(w http.ResponseWriter) bool {
	if a.store == nil {
		transport.WriteAPIError(w, api.NewNotFoundError("execution records are not enabled"))
		return false
	}
	return true
}

// ownerContext scopes execution records to the authenticated subject.
func ownerContext(r *http.Request) context.Context {
	if subject := auth.Subject(r.Context()); subject != "" {
		return storage.WithOwner(r.Context(), subject)
	}
	return r.Context()
}

func (a *Adapter) credentialsName(name string) string {
	if name == "" {
		return a.config.DefaultCredentials
	}
	return name
}
