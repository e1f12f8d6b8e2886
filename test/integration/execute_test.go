package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/llmhub/pkg/transport"
)

type executeResponse struct {
	Outputs [][]struct {
		JSON       map[string]any `json:"json"`
		PairedItem int            `json:"pairedItem"`
	} `json:"outputs"`
}

func TestNodeDescription(t *testing.T) {
	var desc struct {
		Name        string `json:"name"`
		Credentials []struct {
			Name     string `json:"name"`
			Required bool   `json:"required"`
		} `json:"credentials"`
		Properties []struct {
			Name    string `json:"name"`
			Default any    `json:"default"`
		} `json:"properties"`
	}
	resp := getURL(t, testEnv.BaseURL()+"/v1/node")
	decodeJSON(t, resp, &desc)

	if desc.Name != "telekomLlmChatModel" {
		t.Errorf("name = %q, want telekomLlmChatModel", desc.Name)
	}
	if len(desc.Credentials) != 1 || desc.Credentials[0].Name != "telekomLlmApi" || !desc.Credentials[0].Required {
		t.Errorf("credentials = %+v", desc.Credentials)
	}

	wantOrder := []string{"model", "systemMessage", "userMessage", "temperature", "maxTokens"}
	if len(desc.Properties) != len(wantOrder) {
		t.Fatalf("properties = %d, want %d", len(desc.Properties), len(wantOrder))
	}
	for i, name := range wantOrder {
		if desc.Properties[i].Name != name {
			t.Errorf("properties[%d] = %q, want %q", i, desc.Properties[i].Name, name)
		}
	}
}

func TestLoadModelOptions(t *testing.T) {
	var resp transport.OptionsResponse
	decodeJSON(t, getURL(t, testEnv.BaseURL()+"/v1/options/getModels"), &resp)

	want := []string{"gpt-4.1", "llama-3.3-70B-Instruct", "Qwen2.5-Coder-32B"}
	if len(resp.Options) != len(want) {
		t.Fatalf("options = %+v, want %v", resp.Options, want)
	}
	for i, id := range want {
		if resp.Options[i].Value != id || resp.Options[i].Name != id {
			t.Errorf("options[%d] = %+v, want %q", i, resp.Options[i], id)
		}
	}
}

func TestLoadModelOptionsFallback(t *testing.T) {
	// The hub rejects this key; discovery falls back silently.
	var resp transport.OptionsResponse
	decodeJSON(t, getURL(t, testEnv.BaseURL()+"/v1/options/getModels?credentials=wrong-key"), &resp)

	want := []string{
		"llama-3.3-70B-Instruct (Fallback)",
		"claude-3-5-sonnet (Fallback)",
		"gemini-2.5-flash (Fallback)",
	}
	if len(resp.Options) != len(want) {
		t.Fatalf("options = %+v, want fallback list", resp.Options)
	}
	for i, name := range want {
		if resp.Options[i].Name != name {
			t.Errorf("options[%d].name = %q, want %q", i, resp.Options[i].Name, name)
		}
	}
}

func TestExecuteBatch(t *testing.T) {
	reqBody := map[string]any{
		"parameters": map[string]any{
			"systemMessage": "Answer briefly.",
			"maxTokens":     16,
		},
		"items": []map[string]any{
			{"json": map[string]any{"q": 1}, "parameters": map[string]any{"userMessage": "hello"}},
			{"json": map[string]any{"q": 2}, "parameters": map[string]any{"userMessage": "world", "temperature": 1.5}},
			{"json": map[string]any{"q": 3}, "parameters": map[string]any{"userMessage": "again"}},
		},
	}

	resp := postJSON(t, testEnv.BaseURL()+"/v1/execute", reqBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	if resp.Header.Get("X-Execution-ID") == "" {
		t.Error("missing X-Execution-ID header")
	}

	var out executeResponse
	decodeJSON(t, resp, &out)

	if len(out.Outputs) != 1 {
		t.Fatalf("branches = %d, want 1", len(out.Outputs))
	}
	items := out.Outputs[0]
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	for i, user := range []string{"hello", "world", "again"} {
		if items[i].PairedItem != i {
			t.Errorf("items[%d].pairedItem = %d", i, items[i].PairedItem)
		}
		if items[i].JSON["id"] != "chatcmpl-"+user {
			t.Errorf("items[%d].json.id = %v, want chatcmpl-%s", i, items[i].JSON["id"], user)
		}
	}

	choice := items[0].JSON["choices"].([]any)[0].(map[string]any)
	content := choice["message"].(map[string]any)["content"]
	if content != "Answer briefly. / hello" {
		t.Errorf("content = %v, want system and user message echoed", content)
	}
}

func TestExecutePreservesLargeNumbers(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/execute", map[string]any{
		"items": []map[string]any{{"parameters": map[string]any{"userMessage": "n"}}},
	})
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(body, `"created":1712345678901234567`) {
		t.Errorf("body = %s, want created timestamp unchanged", body)
	}
}

func TestExecuteFailureReturnsNoOutputs(t *testing.T) {
	before := testEnv.completions.Load()

	resp := postJSON(t, testEnv.BaseURL()+"/v1/execute", map[string]any{
		"items": []map[string]any{
			{"parameters": map[string]any{"userMessage": "first"}},
			{"parameters": map[string]any{"userMessage": "[fail]"}},
			{"parameters": map[string]any{"userMessage": "never sent"}},
		},
	})
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", resp.StatusCode, body)
	}
	if strings.Contains(body, "outputs") {
		t.Errorf("body = %s, want no outputs", body)
	}
	if !strings.Contains(body, "internal model error") || !strings.Contains(body, "item 1") {
		t.Errorf("body = %s, want hub message with item index", body)
	}
	if got := testEnv.completions.Load() - before; got != 1 {
		t.Errorf("successful hub calls = %d, want 1", got)
	}
}
