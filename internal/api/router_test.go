package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	extratelimit "github.com/vnmchuo/ratelimiter"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vnmchuo/pricing-service/internal/catalog"
	"github.com/vnmchuo/pricing-service/internal/metrics"
	"github.com/vnmchuo/pricing-service/internal/pricing"
	"github.com/vnmchuo/pricing-service/internal/quote"
	"github.com/vnmchuo/pricing-service/pkg/ratelimit"
)

// Mock Limiter Store
type mockLimiterStore struct {
	allowed bool
	err     error
}

func (m *mockLimiterStore) AllowN(ctx context.Context, key string, n int) (*extratelimit.Result, error) {
	return &extratelimit.Result{Allowed: m.allowed}, m.err
}

func (m *mockLimiterStore) Allow(ctx context.Context, key string) (*extratelimit.Result, error) {
	return &extratelimit.Result{Allowed: m.allowed}, m.err
}

func (m *mockLimiterStore) Status(ctx context.Context, key string) (*extratelimit.Result, error) {
	return &extratelimit.Result{Allowed: m.allowed}, m.err
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	h, _ := setupTest(nil)
	m := metrics.New()
	srv := httptest.NewServer(NewRouter(RouterConfig{
		Handler: h,
		Metrics: m,
		Logger:  zap.NewNop(),
		Limiter: limiter,
	}))
	t.Cleanup(srv.Close)
	return srv, m
}

func TestRouter_RequestID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected generated X-Request-ID")
	}

	req, _ := http.NewRequest("GET", srv.URL+"/tiers", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") != "abc-123" {
		t.Errorf("Expected echoed X-Request-ID, got %q", resp.Header.Get("X-Request-ID"))
	}
}

func TestRouter_CalculateAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/calculate", "application/json", strings.NewReader(`{"tier":"starter","assets":15}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `pricing_http_requests_total{method="POST",route="/calculate",status="200"} 1`) {
		t.Errorf("Expected request counter in exposition, got:\n%s", body)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestRouter_RateLimited(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.NewTestLimiter(&mockLimiterStore{allowed: false}, 10))

	resp, err := http.Post(srv.URL+"/calculate", "application/json", strings.NewReader(`{"tier":"starter","assets":1}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "60" {
		t.Errorf("Expected Retry-After: 60 header, got %s", resp.Header.Get("Retry-After"))
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "rate limit exceeded" {
		t.Errorf("Expected rate limit exceeded error, got %v", body["error"])
	}

	// Probes are never limited.
	health, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", health.StatusCode)
	}
}

func TestRouter_RateLimiterDownFailsOpen(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.NewTestLimiter(&mockLimiterStore{err: errors.New("redis down")}, 10))

	resp, err := http.Post(srv.URL+"/roi", "application/json", strings.NewReader(`{"patents":1}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 when limiter is down, got %d", resp.StatusCode)
	}
}

// blockingStore holds every cache call until the request context ends.
type blockingStore struct{}

func (blockingStore) Get(ctx context.Context, key string) (*pricing.Quote, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStore) Set(ctx context.Context, key string, q *pricing.Quote, ttl time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingStore) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRouter_RequestTimeoutIs504(t *testing.T) {
	// The cache timeout outlives the request timeout, so the deadline hits first.
	svc := quote.NewService(catalog.Default(), blockingStore{}, metrics.New(), zap.NewNop(), quote.Options{CacheTimeout: time.Second})
	h := NewHandler(svc, nil, noop.NewTracerProvider().Tracer("test"), zap.NewNop())
	srv := httptest.NewServer(NewRouter(RouterConfig{
		Handler:        h,
		Metrics:        metrics.New(),
		Logger:         zap.NewNop(),
		RequestTimeout: 30 * time.Millisecond,
	}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/calculate", "application/json", strings.NewReader(`{"tier":"starter","assets":1}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("Expected 504, got %d", resp.StatusCode)
	}
	if strings.Contains(string(body), "Internal server error") {
		t.Errorf("Expected no 500 body on timeout, got %s", body)
	}
}

func TestWriteError_DeadlineWritesNothing(t *testing.T) {
	h, _ := setupTest(nil)
	w := httptest.NewRecorder()

	h.writeError(w, httptest.NewRequest("POST", "/calculate", nil), context.DeadlineExceeded, "starter")

	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %s", w.Body.String())
	}
}

func TestRecoverer(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := Recoverer(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "Internal server error" {
		t.Errorf("Expected generic error body, got %v", resp)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("Panic value leaked into response")
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("Expected panic to be logged")
	}
}

func TestAccessLog_SlowRequestWarns(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	slow := AccessLog(zap.New(core), metrics.New())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(slowRequestThreshold + 50*time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}))

	slow.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/slow", nil))

	entries := logs.FilterMessage("slow request").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one slow request warning, got %d", len(entries))
	}
	if entries[0].ContextMap()["status"] != int64(http.StatusNoContent) {
		t.Errorf("Expected status 204 in log, got %v", entries[0].ContextMap()["status"])
	}
}
