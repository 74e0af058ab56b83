package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zhouzirui/haven/backend/internal/observability/metrics"
	"github.com/zhouzirui/haven/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/haven/backend/internal/service/chat"
	"github.com/zhouzirui/haven/backend/internal/store"
	"github.com/zhouzirui/haven/backend/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterWithOrigins(t, []string{"*"})
}

func newTestRouterWithOrigins(t *testing.T, origins []string) http.Handler {
	t.Helper()

	registry := prometheus.NewRegistry()
	svc, err := chatservice.NewService(chatservice.Deps{
		Store:     store.NewMemoryStore(),
		Generator: ai.NewService(&ai.StaticProvider{Reply: "I'm here for you."}),
		Metrics:   metrics.NewChatMetrics(registry),
		Logger:    logging.Discard(),
	}, chatservice.Options{})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	return NewRouter(RouterConfig{
		Chat:           svc,
		Logger:         logging.Discard(),
		AllowedOrigins: origins,
		Gatherer:       registry,
	})
}

func TestRouterServesChatOnBothPaths(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/chat", "/api/chat"} {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"session_id":"abc","message":"hello"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), `"reply":"I'm here for you."`) {
			t.Fatalf("%s: unexpected body %s", path, resp.Body.String())
		}
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", resp.Code)
	}

	chat := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"session_id":"abc","message":"I feel sad"}`))
	r.ServeHTTP(httptest.NewRecorder(), chat)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `haven_chat_turns_total{emotion="sadness",outcome="generated"} 1`) {
		t.Fatalf("expected turn counter in metrics output:\n%s", resp.Body.String())
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://haven.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestRouterStreamHonoursOriginAllowlist(t *testing.T) {
	r := newTestRouterWithOrigins(t, []string{"https://haven.example"})

	cases := map[string]string{
		"https://evil.example":  "",
		"https://haven.example": "https://haven.example",
	}
	for origin, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/stream?session_id=abc&message=hello", nil)
		req.Header.Set("Origin", origin)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
			t.Fatalf("%s: unexpected content type %q", origin, ct)
		}
		if got := resp.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Fatalf("%s: expected allow origin %q, got %q", origin, want, got)
		}
	}
}

func TestRouterWebSocketRejectsUnlistedOrigin(t *testing.T) {
	server := httptest.NewServer(newTestRouterWithOrigins(t, []string{"https://haven.example"}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws/abc"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	if err == nil {
		conn.Close()
		t.Fatal("expected upgrade to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}
