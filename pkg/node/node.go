package node

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/llmhub/pkg/api"
	"github.com/rhuss/llmhub/pkg/completion"
	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/debug"
	"github.com/rhuss/llmhub/pkg/hub"
	"github.com/rhuss/llmhub/pkg/models"
	"github.com/rhuss/llmhub/pkg/observability"
)

// CredentialType is the credential set the node requests from its host.
const CredentialType = credentials.DefaultName

type executionIDKey struct{}

// ContextWithExecutionID returns a context carrying the id Execute logs the
// batch under.
func ContextWithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executionIDKey{}, id)
}

// ExecutionIDFromContext returns the execution id set on ctx, or "".
func ExecutionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(executionIDKey{}).(string)
	return id
}

// Item is one input record. Its position in the batch is its index.
type Item struct {
	// JSON is the upstream record. The node does not read it.
	JSON map[string]any `json:"json"`

	// Parameters holds per-item parameter values, keyed by property name.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ExecuteHost is what the host provides for one batch execution.
type ExecuteHost interface {
	credentials.Source
	ParameterReader

	// InputData returns the batch in input order.
	InputData() []Item
}

// Node is the chat-completion node. It is safe for concurrent use.
type Node struct {
	resolver *models.Resolver
	executor *completion.Executor
	logger   *slog.Logger
}

// Option configures a Node.
type Option func(*nodeOptions)

type nodeOptions struct {
	logger          *slog.Logger
	resolverOptions []models.ResolverOption
}

// WithLogger sets the logger used by the node and its components.
func WithLogger(l *slog.Logger) Option {
	return func(o *nodeOptions) { o.logger = l }
}

// WithResolverOptions passes options through to the model resolver.
func WithResolverOptions(opts ...models.ResolverOption) Option {
	return func(o *nodeOptions) { o.resolverOptions = append(o.resolverOptions, opts...) }
}

// New creates a Node calling the hub through client.
func New(client hub.AuthenticatedClient, opts ...Option) *Node {
	o := nodeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	resolverOpts := append([]models.ResolverOption{models.WithLogger(o.logger)}, o.resolverOptions...)
	return &Node{
		resolver: models.NewResolver(client, resolverOpts...),
		executor: completion.NewExecutor(client, o.logger),
		logger:   o.logger,
	}
}

// Description returns the node description.
func (n *Node) Description() Description {
	return Describe()
}

// LoadOptions runs the named option-loading method. The only method is
// getModels, which never fails.
func (n *Node) LoadOptions(ctx context.Context, method string, host credentials.Source) ([]models.Option, error) {
	switch method {
	case MethodGetModels:
		return n.resolver.ResolveWith(ctx, host, CredentialType), nil
	default:
		return nil, api.NewNotFoundError(fmt.Sprintf("unknown option method %q", method))
	}
}

// Execute runs the host's batch and returns a single output branch. On
// failure no outputs are returned.
func (n *Node) Execute(ctx context.Context, host ExecuteHost) ([][]completion.Output, error) {
	execID := ExecutionIDFromContext(ctx)
	if execID == "" {
		execID = uuid.NewString()
	}
	start := time.Now()

	observability.ExecutionsInFlight.Inc()
	defer observability.ExecutionsInFlight.Dec()

	outputs, err := n.execute(ctx, host, execID)
	if err != nil {
		observability.ExecutionsTotal.WithLabelValues("failed").Inc()
		n.logger.Error("execution failed",
			"execution_id", execID,
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}

	observability.ExecutionsTotal.WithLabelValues("completed").Inc()
	n.logger.Info("execution completed",
		"execution_id", execID,
		"items", len(outputs),
		"duration", time.Since(start),
	)
	return [][]completion.Output{outputs}, nil
}

func (n *Node) execute(ctx context.Context, host ExecuteHost, execID string) ([]completion.Output, error) {
	creds, err := host.Credentials(ctx, CredentialType)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials: %w", err)
	}

	items := host.InputData()
	debug.Log("node", "execution started", "execution_id", execID, "items", len(items))

	params := completion.ParameterFunc(func(i int) (completion.Parameters, error) {
		return ResolveParameters(host, i)
	})
	return n.executor.Execute(ctx, creds, len(items), params)
}
