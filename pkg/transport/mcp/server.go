// Package mcp exposes the node as Model Context Protocol tools.
//
// Two tools are registered: list_models runs the getModels option loader
// and chat_completion executes a single-item batch. Both are served over
// the streamable HTTP transport, next to the host API.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/llmhub/pkg/completion"
	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/debug"
	"github.com/rhuss/llmhub/pkg/models"
	"github.com/rhuss/llmhub/pkg/node"
	"github.com/rhuss/llmhub/pkg/transport"
)

// Tool names.
const (
	ToolListModels     = "list_models"
	ToolChatCompletion = "chat_completion"
)

// ListModelsInput are the arguments of list_models.
type ListModelsInput struct {
	Credentials string `json:"credentials,omitempty" jsonschema:"name of the credential set, defaults to the server default"`
}

// ListModelsOutput is the structured result of list_models.
type ListModelsOutput struct {
	Models []models.Option `json:"models"`
}

// ChatCompletionInput are the arguments of chat_completion. Unset optional
// fields take the node defaults.
type ChatCompletionInput struct {
	UserMessage   string   `json:"userMessage" jsonschema:"the user message sent to the model"`
	Model         string   `json:"model,omitempty" jsonschema:"model id as returned by list_models"`
	SystemMessage *string  `json:"systemMessage,omitempty" jsonschema:"system prompt; an empty string sends an empty system message"`
	Temperature   *float64 `json:"temperature,omitempty" jsonschema:"sampling temperature between 0 and 2"`
	MaxTokens     *int     `json:"maxTokens,omitempty" jsonschema:"upper bound on generated tokens"`
	Credentials   string   `json:"credentials,omitempty" jsonschema:"name of the credential set, defaults to the server default"`
}

// ChatCompletionOutput is the structured result of chat_completion: the
// single output record of the batch.
type ChatCompletionOutput struct {
	Output completion.Output `json:"output"`
}

// Server serves the node as MCP tools.
type Server struct {
	node               transport.NodeHandler
	source             credentials.Source
	defaultCredentials string
	server             *mcp.Server
}

// NewServer registers the node tools. Credential names are resolved
// through source; defaultCredentials is used when a call names none.
func NewServer(h transport.NodeHandler, source credentials.Source, defaultCredentials string) *Server {
	if defaultCredentials == "" {
		defaultCredentials = credentials.DefaultName
	}

	desc := h.Description()
	s := &Server{
		node:               h,
		source:             source,
		defaultCredentials: defaultCredentials,
		server: mcp.NewServer(
			&mcp.Implementation{Name: desc.Name, Version: fmt.Sprintf("v%d", desc.Version)},
			nil,
		),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolListModels,
		Description: "Lists the chat models offered by the LLM Hub, sorted by name.",
	}, s.listModels)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolChatCompletion,
		Description: desc.Description,
	}, s.chatCompletion)

	return s
}

// MCPServer returns the underlying protocol server, for use with other
// transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Handler returns the streamable HTTP handler for the tools.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) listModels(ctx context.Context, _ *mcp.CallToolRequest, in ListModelsInput) (*mcp.CallToolResult, ListModelsOutput, error) {
	host := &node.Batch{
		CredentialsName: s.credentialsName(in.Credentials),
		Source:          s.source,
	}

	opts, err := s.node.LoadOptions(ctx, node.MethodGetModels, host)
	if err != nil {
		return nil, ListModelsOutput{}, transport.AsAPIError(err)
	}

	out := ListModelsOutput{Models: opts}
	return textResult(out), out, nil
}

func (s *Server) chatCompletion(ctx context.Context, _ *mcp.CallToolRequest, in ChatCompletionInput) (*mcp.CallToolResult, ChatCompletionOutput, error) {
	params := map[string]any{"userMessage": in.UserMessage}
	if in.Model != "" {
		params["model"] = in.Model
	}
	if in.SystemMessage != nil {
		params["systemMessage"] = *in.SystemMessage
	}
	if in.Temperature != nil {
		params["temperature"] = *in.Temperature
	}
	if in.MaxTokens != nil {
		params["maxTokens"] = *in.MaxTokens
	}

	host := &node.Batch{
		CredentialsName: s.credentialsName(in.Credentials),
		Source:          s.source,
		Items:           []node.Item{{JSON: map[string]any{}, Parameters: params}},
	}

	execID := uuid.NewString()
	debug.Log("mcp", "chat completion", "execution_id", execID, "credentials", host.CredentialsName)

	branches, err := s.node.Execute(node.ContextWithExecutionID(ctx, execID), host)
	if err != nil {
		return nil, ChatCompletionOutput{}, transport.AsAPIError(err)
	}
	if len(branches) != 1 || len(branches[0]) != 1 {
		return nil, ChatCompletionOutput{}, fmt.Errorf("execution %s produced no output", execID)
	}

	out := ChatCompletionOutput{Output: branches[0][0]}
	return textResult(out.Output.Payload), out, nil
}

func (s *Server) credentialsName(name string) string {
	if name == "" {
		return s.defaultCredentials
	}
	return name
}

// textResult renders v as the JSON text content of a tool result.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
