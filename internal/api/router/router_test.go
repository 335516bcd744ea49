package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/photka-support-ai/internal/completion"
	"github.com/wolfman30/photka-support-ai/internal/conversation"
	"github.com/wolfman30/photka-support-ai/internal/events"
	"github.com/wolfman30/photka-support-ai/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/photka-support-ai/internal/http/middleware"
	"github.com/wolfman30/photka-support-ai/internal/observability/metrics"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

const testSecret = "router-secret"

type echoClient struct{}

func (echoClient) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	return completion.Response{Text: "Happy to help with that."}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()
	reg := prometheus.NewRegistry()
	bus := events.NewMemoryBus(16, logger)
	manager := conversation.NewManager(conversation.ManagerConfig{
		Client:  echoClient{},
		Bus:     bus,
		Metrics: metrics.NewChatMetrics(reg),
		Logger:  logger,
	})

	cfg := &Config{
		Logger:         logger,
		SupportChat:    conversation.NewHandler(manager, nil, bus, logger),
		Unread:         handlers.NewUnreadHandler(events.NewUnreadCounter(bus, logger), bus, logger),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AuthJWTSecret:  testSecret,
	}

	return New(cfg)
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	claims := httpmiddleware.UserClaims{
		Name: "Ana Reyes",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterSupportRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/support/chat", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterSupportChatFlow(t *testing.T) {
	router := newTestRouter(t)
	auth := bearer(t, "user-42")

	req := httptest.NewRequest(http.MethodPost, "/support/chat", nil)
	req.Header.Set("Authorization", auth)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/support/chat/messages", strings.NewReader(`{"text":"what is photka pro?"}`))
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var turn conversation.Turn
	if err := json.NewDecoder(rr.Body).Decode(&turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if turn.Reply.Text != "Happy to help with that." {
		t.Fatalf("unexpected reply %q", turn.Reply.Text)
	}
}

func TestRouterUnreadEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/me/unread", nil)
	req.Header.Set("Authorization", bearer(t, "user-42"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var counts events.UnreadCounts
	if err := json.NewDecoder(rr.Body).Decode(&counts); err != nil {
		t.Fatalf("decode counts: %v", err)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}
