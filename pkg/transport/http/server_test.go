package http

import (
	"context"
	"errors"
	"io"
	"net"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/llmhub/pkg/completion"
	"github.com/rhuss/llmhub/pkg/credentials"
	"github.com/rhuss/llmhub/pkg/models"
	"github.com/rhuss/llmhub/pkg/node"
	"github.com/rhuss/llmhub/pkg/storage/memory"
	"github.com/rhuss/llmhub/pkg/transport"
)

// slowNode answers Execute after delay with a single empty branch.
type slowNode struct {
	delay time.Duration
}

func (s *slowNode) Description() node.Description { return node.Describe() }

func (s *slowNode) LoadOptions(context.Context, string, credentials.Source) ([]models.Option, error) {
	return models.Fallback(), nil
}

func (s *slowNode) Execute(ctx context.Context, _ node.ExecuteHost) ([][]completion.Output, error) {
	select {
	case <-time.After(s.delay):
		return [][]completion.Output{{}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func startServer(t *testing.T, srv *Server) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeOn(ctx, ln) }()

	return "http://" + ln.Addr().String(), cancel, errCh
}

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	srv := NewServer(&slowNode{}, credentials.NewStore(nil))
	base, stop, errCh := startServer(t, srv)
	defer func() {
		stop()
		<-errCh
	}()

	resp, err := gohttp.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != gohttp.StatusOK || string(body) != "ok\n" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, err = gohttp.Get(base + "/v1/node")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}
	if resp.Header.Get(transport.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	srv := NewServer(&slowNode{delay: 200 * time.Millisecond}, credentials.NewStore(nil),
		WithShutdownTimeout(5*time.Second),
	)
	base, stop, errCh := startServer(t, srv)

	// Wait until the server answers.
	for i := 0; i < 50; i++ {
		if resp, err := gohttp.Get(base + "/healthz"); err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	responseCh := make(chan int, 1)
	go func() {
		resp, err := gohttp.Post(base+"/v1/execute", "application/json", strings.NewReader(`{"items":[]}`))
		if err != nil {
			responseCh <- 0
			return
		}
		defer resp.Body.Close()
		responseCh <- resp.StatusCode
	}()

	time.Sleep(50 * time.Millisecond)
	stop()

	if status := <-responseCh; status != gohttp.StatusOK {
		t.Errorf("slow request status = %d, want %d", status, gohttp.StatusOK)
	}
	if err := <-errCh; err != nil {
		t.Errorf("ServeOn returned %v", err)
	}
}

func TestServerMiddlewareAndRoutes(t *testing.T) {
	var order []string
	mw := func(name string) transport.Middleware {
		return func(next gohttp.Handler) gohttp.Handler {
			return gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
				if transport.RequestIDFromContext(r.Context()) == "" {
					t.Error("custom middleware must run inside RequestID")
				}
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	srv := NewServer(&slowNode{}, credentials.NewStore(nil),
		WithMiddleware(mw("metrics"), mw("auth")),
		WithRoute("GET /metrics", gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
			io.WriteString(w, "# metrics\n")
		})),
	)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Body.String() != "# metrics\n" {
		t.Errorf("body = %q, want metrics output", rec.Body.String())
	}
	if len(order) != 2 || order[0] != "metrics" || order[1] != "auth" {
		t.Errorf("middleware order = %v, want [metrics auth]", order)
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	srv := NewServer(&slowNode{}, credentials.NewStore(nil),
		WithAddr(":9999"),
		WithMaxBodySize(1024),
		WithTimeouts(5*time.Second, 60*time.Second),
		WithShutdownTimeout(10*time.Second),
		WithDefaultCredentials("staging"),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.config.MaxBodySize != 1024 {
		t.Errorf("max body size = %d, want %d", srv.config.MaxBodySize, 1024)
	}
	if srv.httpServer.ReadTimeout != 5*time.Second || srv.httpServer.WriteTimeout != 60*time.Second {
		t.Errorf("timeouts = %v/%v", srv.httpServer.ReadTimeout, srv.httpServer.WriteTimeout)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
	if srv.adapter.config.DefaultCredentials != "staging" {
		t.Errorf("default credentials = %q, want staging", srv.adapter.config.DefaultCredentials)
	}
}

// downStore is an execution store whose backend is unreachable.
type downStore struct {
	*memory.Store
}

func (downStore) HealthCheck(context.Context) error { return errors.New("connection refused") }

func TestServerHealthzReportsStore(t *testing.T) {
	tests := []struct {
		name  string
		store transport.ExecutionStore
		want  int
	}{
		{"healthy", memory.New(0), gohttp.StatusOK},
		{"unreachable", downStore{memory.New(0)}, gohttp.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&slowNode{}, credentials.NewStore(nil), WithStore(tt.store))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
			if rec.Code != tt.want {
				t.Errorf("healthz = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
