package node

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/rhuss/llmhub/pkg/api"
	"github.com/rhuss/llmhub/pkg/completion"
	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/hub"
	"github.com/rhuss/llmhub/pkg/models"
)

type fakeClient struct {
	requests []hub.Request
	respond  func(req hub.Request) (any, error)
}

func (c *fakeClient) Do(_ context.Context, _ *credentials.Credentials, req hub.Request) (any, error) {
	c.requests = append(c.requests, req)
	return c.respond(req)
}

func newStore() *credentials.Store {
	return credentials.NewStore(map[string]credentials.Credentials{
		credentials.DefaultName: {BaseURL: "http://hub.test/v2", APIKey: "secret"},
	})
}

func TestLoadOptions_GetModels(t *testing.T) {
	c := &fakeClient{respond: func(hub.Request) (any, error) {
		return map[string]any{"data": []any{
			map[string]any{"id": "mistral"},
			map[string]any{"id": "gemma"},
		}}, nil
	}}
	n := New(c)

	opts, err := n.LoadOptions(context.Background(), MethodGetModels, newStore())
	if err != nil {
		t.Fatalf("LoadOptions error: %v", err)
	}

	want := []models.Option{{Name: "gemma", Value: "gemma"}, {Name: "mistral", Value: "mistral"}}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("options = %v, want %v", opts, want)
	}
	if len(c.requests) != 1 || c.requests[0].Method != http.MethodGet || c.requests[0].URL != "/models" {
		t.Errorf("requests = %+v, want one GET /models", c.requests)
	}
	if c.requests[0].BaseURL != "http://hub.test/v2" {
		t.Errorf("BaseURL = %q, want %q", c.requests[0].BaseURL, "http://hub.test/v2")
	}
}

func TestLoadOptions_MissingCredentialsFallsBack(t *testing.T) {
	c := &fakeClient{respond: func(hub.Request) (any, error) {
		t.Error("hub must not be called without credentials")
		return nil, nil
	}}
	n := New(c)

	opts, err := n.LoadOptions(context.Background(), MethodGetModels, credentials.NewStore(nil))
	if err != nil {
		t.Fatalf("LoadOptions error: %v", err)
	}
	if !reflect.DeepEqual(opts, models.Fallback()) {
		t.Errorf("options = %v, want fallback", opts)
	}
}

func TestLoadOptions_UnknownMethod(t *testing.T) {
	n := New(&fakeClient{})

	_, err := n.LoadOptions(context.Background(), "getVoices", newStore())
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeNotFound {
		t.Errorf("error = %v, want not_found", err)
	}
}

func TestExecute_ExampleScenario(t *testing.T) {
	mocked := map[string]any{"id": "chatcmpl-42"}
	c := &fakeClient{respond: func(hub.Request) (any, error) { return mocked, nil }}
	n := New(c)

	host := &Batch{
		Source: newStore(),
		Items: []Item{{
			JSON: map[string]any{"ticket": 1},
			Parameters: map[string]any{
				"model":         "llama-3.3-70B-Instruct",
				"userMessage":   "Hi",
				"systemMessage": "Be terse.",
				"temperature":   0.2,
				"maxTokens":     json.Number("50"),
			},
		}},
	}

	out, err := n.Execute(context.Background(), host)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if len(c.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(c.requests))
	}
	body, err := json.Marshal(c.requests[0].Body)
	if err != nil {
		t.Fatalf("Marshal body: %v", err)
	}
	wantBody := `{"model":"llama-3.3-70B-Instruct","messages":[{"role":"system","content":"Be terse."},{"role":"user","content":"Hi"}],"temperature":0.2,"max_tokens":50}`
	if string(body) != wantBody {
		t.Errorf("body = %s\nwant   %s", body, wantBody)
	}

	want := [][]completion.Output{{{Payload: mocked, SourceIndex: 0}}}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("outputs = %+v, want %+v", out, want)
	}
}

func TestExecute_StaticParametersAndDefaults(t *testing.T) {
	c := &fakeClient{respond: func(hub.Request) (any, error) { return map[string]any{}, nil }}
	n := New(c)

	host := &Batch{
		Source:     newStore(),
		Parameters: map[string]any{"userMessage": "shared", "model": "gemma"},
		Items: []Item{
			{},
			{Parameters: map[string]any{"userMessage": "own"}},
		},
	}

	out, err := n.Execute(context.Background(), host)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(out) != 1 || len(out[0]) != 2 {
		t.Fatalf("outputs = %+v, want one branch of 2", out)
	}

	first := c.requests[0].Body.(completion.Request)
	if first.Model != "gemma" || first.Messages[1].Content != "shared" {
		t.Errorf("first request = %+v, want static values", first)
	}
	if first.Temperature != 0.7 || first.MaxTokens != 256 || first.Messages[0].Content != "You are a helpful assistant." {
		t.Errorf("first request = %+v, want defaults", first)
	}

	second := c.requests[1].Body.(completion.Request)
	if second.Messages[1].Content != "own" {
		t.Errorf("second user message = %q, want %q", second.Messages[1].Content, "own")
	}
}

func TestExecute_InvalidItemAbortsBatch(t *testing.T) {
	c := &fakeClient{respond: func(hub.Request) (any, error) { return map[string]any{}, nil }}
	n := New(c)

	host := &Batch{
		Source: newStore(),
		Items: []Item{
			{Parameters: map[string]any{"userMessage": "ok"}},
			{Parameters: map[string]any{"userMessage": "hot", "temperature": 2.5}},
			{Parameters: map[string]any{"userMessage": "never"}},
		},
	}

	out, err := n.Execute(context.Background(), host)
	if err == nil {
		t.Fatal("expected error")
	}
	if out != nil {
		t.Errorf("outputs = %v, want nil", out)
	}
	if !strings.Contains(err.Error(), "item 1") {
		t.Errorf("error = %q, want item index", err)
	}

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Param != ParamTemperature {
		t.Errorf("error = %v, want invalid temperature", err)
	}
	if len(c.requests) != 1 {
		t.Errorf("requests = %d, want 1", len(c.requests))
	}
}

func TestExecute_CredentialFailure(t *testing.T) {
	c := &fakeClient{respond: func(hub.Request) (any, error) {
		t.Error("hub must not be called")
		return nil, nil
	}}
	n := New(c)

	host := &Batch{
		CredentialsName: "missing",
		Source:          newStore(),
		Items:           []Item{{Parameters: map[string]any{"userMessage": "x"}}},
	}

	_, err := n.Execute(context.Background(), host)
	if !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDescribe(t *testing.T) {
	d := Describe()

	if d.Name != "telekomLlmChatModel" || d.DisplayName != "Telekom LLM" {
		t.Errorf("name = %q/%q", d.Name, d.DisplayName)
	}
	if len(d.Credentials) != 1 || d.Credentials[0].Name != "telekomLlmApi" || !d.Credentials[0].Required {
		t.Errorf("credentials = %+v", d.Credentials)
	}

	names := make([]string, len(d.Properties))
	for i, p := range d.Properties {
		names[i] = p.Name
	}
	wantNames := []string{"model", "systemMessage", "userMessage", "temperature", "maxTokens"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Errorf("properties = %v, want %v", names, wantNames)
	}

	model := d.Properties[0]
	if model.TypeOptions == nil || model.TypeOptions.LoadOptionsMethod != MethodGetModels {
		t.Errorf("model typeOptions = %+v", model.TypeOptions)
	}

	temp := d.Properties[3]
	if temp.TypeOptions == nil || *temp.TypeOptions.MinValue != 0 || *temp.TypeOptions.MaxValue != 2 {
		t.Errorf("temperature typeOptions = %+v", temp.TypeOptions)
	}
}
