package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Datta-sai-vvn/StormAlert/internal/config"
	"github.com/Datta-sai-vvn/StormAlert/internal/cooldown"
	"github.com/Datta-sai-vvn/StormAlert/internal/engine"
	"github.com/Datta-sai-vvn/StormAlert/internal/history"
	"github.com/Datta-sai-vvn/StormAlert/internal/market"
	"github.com/Datta-sai-vvn/StormAlert/internal/pricecache"
	"github.com/Datta-sai-vvn/StormAlert/internal/registry"
)

type serverRig struct {
	server *Server
	engine *engine.Engine
	hist   *history.Store
	cache  *pricecache.Memory
}

func newTestServer(t *testing.T) *serverRig {
	t.Helper()

	hist := history.NewStore(100)
	cache := pricecache.NewMemory(time.Hour)
	sink := engine.NewSink(nil, nil, time.Second, zerolog.Nop())
	eng := engine.New(engine.Options{QueueSize: 16, DispatchWorkers: 1, CooldownTTL: 5 * time.Minute},
		hist, cache, registry.NewMemory(), cooldown.NewMemory(), sink, zerolog.Nop())
	t.Cleanup(eng.Close)

	cfg := config.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}
	srv := New(cfg, eng, hist, cache, nil, zerolog.Nop())
	return &serverRig{server: srv, engine: eng, hist: hist, cache: cache}
}

func (rig *serverRig) do(method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	rig.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookAcceptsValidTick(t *testing.T) {
	rig := newTestServer(t)

	payload := `{"instrument_token":"RELIANCE","last_price":"2540.5","timestamp":"2024-03-01T10:00:00Z"}`
	rec := rig.do(http.MethodPost, "/api/webhooks/ticker", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response decode failed: %v", err)
	}
	if !body["success"] {
		t.Fatal("expected success=true")
	}

	// Ingestion is synchronous up to history recording after Close drains.
	rig.engine.Close()
	if rig.hist.Len("RELIANCE") != 1 {
		t.Fatalf("expected one history point, got %d", rig.hist.Len("RELIANCE"))
	}
}

func TestWebhookRejectsMalformedTick(t *testing.T) {
	rig := newTestServer(t)

	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{{`},
		{"zero price", `{"instrument_token":"RELIANCE","last_price":"0"}`},
		{"negative price", `{"instrument_token":"RELIANCE","last_price":"-3"}`},
		{"missing instrument", `{"last_price":"100"}`},
	}

	for _, tc := range cases {
		rec := rig.do(http.MethodPost, "/api/webhooks/ticker", tc.payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}

	rig.engine.Close()
	if rig.hist.Len("RELIANCE") != 0 {
		t.Fatal("rejected ticks must not reach history")
	}
}

func TestWebhookAfterShutdown(t *testing.T) {
	rig := newTestServer(t)
	rig.engine.Close()

	payload := `{"instrument_token":"TCS","last_price":"100"}`
	rec := rig.do(http.MethodPost, "/api/webhooks/ticker", payload)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown, got %d", rec.Code)
	}
}

func TestPricesEndpoint(t *testing.T) {
	rig := newTestServer(t)

	for _, payload := range []string{
		`{"instrument_token":"RELIANCE","last_price":"2540.5","timestamp":"2024-03-01T10:00:00Z"}`,
		`{"instrument_token":"TCS","last_price":"3500","timestamp":"2024-03-01T10:00:01Z"}`,
	} {
		if rec := rig.do(http.MethodPost, "/api/webhooks/ticker", payload); rec.Code != http.StatusOK {
			t.Fatalf("seed tick failed: %d", rec.Code)
		}
	}
	rig.engine.Close()

	rec := rig.do(http.MethodGet, "/api/stocks/prices?i=RELIANCE,TCS,UNKNOWN", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var entries map[string]pricecache.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("response decode failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if _, ok := entries["UNKNOWN"]; ok {
		t.Fatal("unknown instrument must be omitted, not zero-valued")
	}
	if got := entries["RELIANCE"].Price.String(); got != "2540.5" {
		t.Fatalf("unexpected RELIANCE price %s", got)
	}
}

func TestPricesEndpointEmptyQuery(t *testing.T) {
	rig := newTestServer(t)

	rec := rig.do(http.MethodGet, "/api/stocks/prices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Fatalf("expected empty object, got %s", rec.Body.String())
	}
}

func TestHistoryEndpoint(t *testing.T) {
	rig := newTestServer(t)

	for _, payload := range []string{
		`{"instrument_token":"INFY","last_price":"1500","timestamp":"2024-03-01T10:00:00Z"}`,
		`{"instrument_token":"INFY","last_price":"1501","timestamp":"2024-03-01T10:00:01Z"}`,
		`{"instrument_token":"INFY","last_price":"1502","timestamp":"2024-03-01T10:00:02Z"}`,
	} {
		if rec := rig.do(http.MethodPost, "/api/webhooks/ticker", payload); rec.Code != http.StatusOK {
			t.Fatalf("seed tick failed: %d", rec.Code)
		}
	}
	rig.engine.Close()

	rec := rig.do(http.MethodGet, "/api/stocks/INFY/history?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var points []market.PricePoint
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("response decode failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points with limit=2, got %d", len(points))
	}
	// Oldest first even when truncated.
	if points[0].Price.String() != "1501" || points[1].Price.String() != "1502" {
		t.Fatalf("unexpected window: %s, %s", points[0].Price, points[1].Price)
	}
}

func TestAlertsEndpointWithoutStore(t *testing.T) {
	rig := newTestServer(t)

	rec := rig.do(http.MethodGet, "/api/alerts", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without audit store, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	rig := newTestServer(t)

	rig.do(http.MethodPost, "/api/webhooks/ticker", `{"last_price":"1"}`)

	rec := rig.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response decode failed: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected status %v", body["status"])
	}
	if body["rejected_ticks"].(float64) != 1 {
		t.Fatalf("expected 1 rejected tick, got %v", body["rejected_ticks"])
	}
}
