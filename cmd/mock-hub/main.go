// Command mock-hub runs a deterministic LLM Hub for local runs and
// end-to-end checks of the node. It serves the OpenAI-compatible model
// listing and chat-completion endpoints under /v2.
//
// Configuration:
//
//	MOCK_PORT    - Listen port (default: 9090)
//	MOCK_API_KEY - When set, requests must carry "Authorization: Bearer <key>"
//	MOCK_MODELS  - Comma-separated model ids (default: a small fixed set)
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

var defaultModels = []string{
	"llama-3.3-70B-Instruct",
	"Mistral-Small-24B-Instruct-2501",
	"claude-3-5-sonnet",
	"gemini-2.5-flash",
	"gpt-4.1",
}

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	h := &hub{apiKey: os.Getenv("MOCK_API_KEY"), models: defaultModels}
	if v := os.Getenv("MOCK_MODELS"); v != "" {
		h.models = strings.Split(v, ",")
	}

	srv := &http.Server{Addr: ":" + port, Handler: h.routes()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock hub starting", "port", port, "models", len(h.models))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock hub failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock hub shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type hub struct {
	apiKey string
	models []string
	seq    atomic.Int64
}

func (h *hub) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/models", h.authorized(h.handleModels))
	mux.HandleFunc("POST /v2/chat/completions", h.authorized(h.handleChatCompletions))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

func (h *hub) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+h.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key", "authentication_error")
			return
		}
		next(w, r)
	}
}

// --- Request types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handlers ---

func (h *hub) handleModels(w http.ResponseWriter, r *http.Request) {
	data := make([]map[string]any, 0, len(h.models))
	for _, id := range h.models {
		data = append(data, map[string]any{"id": id, "object": "model", "owned_by": "mock-hub"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

func (h *hub) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "invalid_request_error")
		return
	}
	if req.Model == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "model and messages are required", "invalid_request_error")
		return
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		writeError(w, http.StatusBadRequest, "temperature must be between 0 and 2", "invalid_request_error")
		return
	}

	user := lastUserMessage(req.Messages)
	switch {
	case strings.Contains(user, "[overload]"):
		writeError(w, http.StatusServiceUnavailable, "model is overloaded", "server_error")
		return
	case strings.Contains(user, "[ratelimit]"):
		writeError(w, http.StatusTooManyRequests, "rate limit reached", "rate_limit_error")
		return
	}

	text := "You said: " + user
	completionTokens := len(strings.Fields(text))
	finish := "stop"
	if req.MaxTokens > 0 && completionTokens > req.MaxTokens {
		words := strings.Fields(text)[:req.MaxTokens]
		text = strings.Join(words, " ")
		completionTokens = req.MaxTokens
		finish = "length"
	}
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(strings.Fields(m.Content))
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ID:      "chatcmpl-mock-" + strconv.FormatInt(h.seq.Add(1), 10),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Index:        0,
			Message:      chatMessage{Role: "assistant", Content: text},
			FinishReason: finish,
		}},
		Usage: chatUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}

// --- Helpers ---

func lastUserMessage(msgs []chatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, typ string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": message, "type": typ},
	})
}
