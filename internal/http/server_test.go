package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budgetdash/internal/core"
	"budgetdash/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestLedger(t)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ready" || body.Checks["ledger"] != "ok" {
		t.Fatalf("unexpected readiness %+v", body)
	}
}

func TestReadyReportsBackendFailure(t *testing.T) {
	srv := NewLedgerServer(":0", failingLedger{err: core.ErrStoreUnavailable}, WithLogger(quietLogger()))
	defer srv.Shutdown(context.Background())

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "not_ready") {
		t.Fatalf("body %s", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	srv := NewLedgerServer(":0", failingLedger{}, WithLogger(quietLogger()), WithMetrics(m))
	defer srv.Shutdown(context.Background())

	serve(srv, httptest.NewRequest(http.MethodGet, "/exec?action=getBudget", nil))

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `budgetdash_http_requests_total{code="200",route="exec"} 1`) {
		t.Fatalf("request not counted:\n%s", rr.Body.String())
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv, _ := newTestLedger(t)
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/exec?action=getBudget", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("X-Request-ID = %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	srv := NewLedgerServer(":0", failingLedger{}, WithLogger(quietLogger()), WithRateLimit(2))
	defer srv.Shutdown(context.Background())

	write := func() int {
		req := httptest.NewRequest(http.MethodGet, "/exec?action=addExpense&category=Entertainment&amount=1", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		return serve(srv, req).Code
	}
	read := func() int {
		req := httptest.NewRequest(http.MethodGet, "/exec?action=getBudget", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		return serve(srv, req).Code
	}

	for i := 0; i < 2; i++ {
		if code := write(); code != http.StatusOK {
			t.Fatalf("write %d status=%d", i, code)
		}
	}
	if code := write(); code != http.StatusTooManyRequests {
		t.Fatalf("third write status=%d, want 429", code)
	}
	if code := read(); code != http.StatusOK {
		t.Fatalf("reads are not rate limited, got %d", code)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.7:1234", "", "", "203.0.113.7"},
		{"untrusted peer ignores forwarding", "203.0.113.7:1234", "198.51.100.1", "", "203.0.113.7"},
		{"trusted proxy forwarded for", "10.0.0.2:1234", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:1234", "", "198.51.100.9", "198.51.100.9"},
		{"trusted proxy garbage header", "127.0.0.1:1234", "not-an-ip", "", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Fatalf("extractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"plain read", http.MethodGet, "/exec?action=getBudget", "Go-http-client/1.1", false},
		{"path traversal", http.MethodGet, "/static/../../etc/passwd", "", true},
		{"dotenv lookup", http.MethodGet, "/.env", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.agent)
			if got := detectSuspiciousRequest(req, nil); got != tt.want {
				t.Fatalf("detectSuspiciousRequest = %v, want %v", got, tt.want)
			}
		})
	}
}
