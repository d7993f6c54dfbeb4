package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prepdeck/authbridge/internal/audit"
	"github.com/prepdeck/authbridge/internal/ids"
)

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = audit.RequestIDFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	rid := rr.Header().Get("X-Request-ID")
	if !ids.IsValid(rid) {
		t.Fatalf("expected a valid generated id, got %q", rid)
	}
	if seen != rid {
		t.Fatalf("context id %q does not match header %q", seen, rid)
	}
}

func TestRequestIDEchoesValidInbound(t *testing.T) {
	t.Parallel()

	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	inbound := ids.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", inbound)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != inbound {
		t.Fatalf("valid inbound id must be echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "../../etc/passwd")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got == "../../etc/passwd" || !ids.IsValid(got) {
		t.Fatalf("invalid inbound id must be replaced, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestCORSAllowsListedOriginWithCredentials(t *testing.T) {
	t.Parallel()

	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("credentialed CORS must be explicit")
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	t.Parallel()

	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be allowed, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the handler")
	}), []string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodOptions, "/v1/session", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("listed origin should be allowed, got %q", got)
	}
}

func TestCORSRequiresLocalhostToBeListed(t *testing.T) {
	t.Parallel()

	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), []string{"https://app.example.com"})

	for _, origin := range []string{"http://localhost:3000", "http://127.0.0.1:5173"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		req.Header.Set("Origin", origin)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("%s: unlisted origin must not be allowed, got %q", origin, got)
		}
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	if got := clientIP(req); got != "10.1.2.3" {
		t.Fatalf("clientIP = %q, want 10.1.2.3", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("clientIP = %q, want first forwarded entry", got)
	}
}

func TestSigninLimiterIsPerIP(t *testing.T) {
	t.Parallel()

	limiter := newSigninLimiter(1, 1)

	a := httptest.NewRequest(http.MethodPost, "/v1/session", nil)
	a.RemoteAddr = "10.0.0.1:1000"
	b := httptest.NewRequest(http.MethodPost, "/v1/session", nil)
	b.RemoteAddr = "10.0.0.2:1000"

	if !limiter.allow(a) {
		t.Fatal("first request from a must pass")
	}
	if limiter.allow(a) {
		t.Fatal("second immediate request from a must be limited")
	}
	if !limiter.allow(b) {
		t.Fatal("a's bucket must not affect b")
	}
}
