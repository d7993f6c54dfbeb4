package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prepdeck/authbridge/internal/identity"
)

var (
	testHashKey  = []byte(strings.Repeat("h", 32))
	testBlockKey = []byte(strings.Repeat("b", 32))
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testHashKey, testBlockKey, time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestNewCodecKeyValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewCodec([]byte("short"), testBlockKey, time.Hour); err == nil {
		t.Fatal("expected error for short hash key")
	}
	if _, err := NewCodec(testHashKey, []byte("short"), time.Hour); err == nil {
		t.Fatal("expected error for invalid block key size")
	}
}

func TestCookieRoundTrip(t *testing.T) {
	t.Parallel()

	codec := testCodec(t)

	rr := httptest.NewRecorder()
	if err := codec.Set(rr, "signed-token", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName {
		t.Fatalf("unexpected cookie name: %s", c.Name)
	}
	if !c.HttpOnly || !c.Secure || c.Path != "/" {
		t.Fatalf("cookie attributes not hardened: %+v", c)
	}
	if strings.Contains(c.Value, "signed-token") {
		t.Fatal("cookie value must not expose the signed token")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	req.AddCookie(c)
	signed, err := codec.Read(req)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if signed != "signed-token" {
		t.Fatalf("round trip mismatch: %q", signed)
	}
}

func TestReadMissingCookie(t *testing.T) {
	t.Parallel()

	codec := testCodec(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	if _, err := codec.Read(req); !errors.Is(err, identity.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestReadRejectsForeignKeys(t *testing.T) {
	t.Parallel()

	codec := testCodec(t)
	foreign, err := NewCodec([]byte(strings.Repeat("x", 32)), []byte(strings.Repeat("y", 32)), time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	rr := httptest.NewRecorder()
	if err := codec.Set(rr, "signed-token", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	req.AddCookie(rr.Result().Cookies()[0])

	if _, err := foreign.Read(req); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestClearExpiresCookie(t *testing.T) {
	t.Parallel()

	codec := testCodec(t)
	rr := httptest.NewRecorder()
	codec.Clear(rr)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 || cookies[0].Value != "" {
		t.Fatalf("expected expired empty cookie, got %+v", cookies[0])
	}
}
