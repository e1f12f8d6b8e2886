package hub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rhuss/llmhub/pkg/api"
	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/observability"
)

func TestClient_Do_GetModels(t *testing.T) {
	var gotPath, gotAuth, gotAccept, gotTenant string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotTenant = r.Header.Get("X-Tenant")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"m-1","created":1712345678}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{})
	defer c.Close()

	creds := &credentials.Credentials{
		BaseURL: srv.URL + "/v2",
		APIKey:  "sk-hub",
		Headers: map[string]string{"X-Tenant": "t1"},
	}

	payload, err := c.Do(context.Background(), creds, Request{Method: http.MethodGet, URL: "/models"})
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}

	if gotPath != "/v2/models" {
		t.Errorf("path = %q, want %q", gotPath, "/v2/models")
	}
	if gotAuth != "Bearer sk-hub" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer sk-hub")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want %q", gotAccept, "application/json")
	}
	if gotTenant != "t1" {
		t.Errorf("X-Tenant = %q, want %q", gotTenant, "t1")
	}

	want := map[string]any{
		"object": "list",
		"data": []any{
			map[string]any{"id": "m-1", "created": json.Number("1712345678")},
		},
	}
	if !reflect.DeepEqual(payload, want) {
		t.Errorf("payload = %#v, want %#v", payload, want)
	}
}

func TestClient_Do_PostJSONBody(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"chatcmpl-1"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{})
	_, err := c.Do(context.Background(), &credentials.Credentials{BaseURL: srv.URL}, Request{
		Method: http.MethodPost,
		URL:    "/chat/completions",
		Body:   map[string]any{"model": "m"},
	})
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", gotContentType, "application/json")
	}
	if gotBody["model"] != "m" {
		t.Errorf("body model = %v, want %q", gotBody["model"], "m")
	}
}

func TestClient_Do_NoAPIKeyNoAuthHeader(t *testing.T) {
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{})
	if _, err := c.Do(context.Background(), &credentials.Credentials{BaseURL: srv.URL}, Request{Method: http.MethodGet, URL: "/models"}); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if hasAuth {
		t.Error("expected no Authorization header without an API key")
	}
}

func TestClient_Do_BaseURLOverride(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{})
	creds := &credentials.Credentials{BaseURL: "http://unused.invalid"}
	if _, err := c.Do(context.Background(), creds, Request{Method: http.MethodGet, URL: "models", BaseURL: srv.URL + "/api/"}); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if gotPath != "/api/models" {
		t.Errorf("path = %q, want %q", gotPath, "/api/models")
	}
}

func TestClient_Do_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{})
	_, err := c.Do(context.Background(), &credentials.Credentials{BaseURL: srv.URL}, Request{Method: http.MethodGet, URL: "/models"})

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *api.APIError", err)
	}
	if apiErr.Type != api.ErrorTypeAuthentication {
		t.Errorf("Type = %q, want %q", apiErr.Type, api.ErrorTypeAuthentication)
	}
	if apiErr.Message != "invalid api key" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "invalid api key")
	}
}

func TestClient_Do_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	before := counterValue(t, observability.HubRequestsTotal, "list_models", "network_error")

	c := NewClient(Config{})
	_, err := c.Do(context.Background(), &credentials.Credentials{BaseURL: url}, Request{Method: http.MethodGet, URL: "/models"})

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *api.APIError", err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("Type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}

	after := counterValue(t, observability.HubRequestsTotal, "list_models", "network_error")
	if after-before != 1 {
		t.Errorf("network_error count delta = %f, want 1", after-before)
	}
}

func TestClient_Do_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not json", "<html>gateway</html>"},
		{"trailing data", `{"a":1} {"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(Config{})
			_, err := c.Do(context.Background(), &credentials.Credentials{BaseURL: srv.URL}, Request{Method: http.MethodPost, URL: "/chat/completions", Body: map[string]any{}})
			if err == nil {
				t.Fatal("expected error for malformed body")
			}
		})
	}
}

func TestClient_Do_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Config{})
	if _, err := c.Do(ctx, &credentials.Credentials{BaseURL: srv.URL}, Request{Method: http.MethodGet, URL: "/models"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base string
		path string
		want string
	}{
		{"https://hub/v2", "/models", "https://hub/v2/models"},
		{"https://hub/v2/", "/models", "https://hub/v2/models"},
		{"https://hub/v2", "chat/completions", "https://hub/v2/chat/completions"},
		{"https://hub/v2", "", "https://hub/v2"},
		{"https://hub/v2", "http://other/models", "http://other/models"},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.path); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestOperationLabel(t *testing.T) {
	tests := map[string]string{
		"/models":           "list_models",
		"models":            "list_models",
		"/chat/completions": "chat_completion",
		"/embeddings":       "other",
	}
	for path, want := range tests {
		if got := OperationLabel(path); got != want {
			t.Errorf("OperationLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
