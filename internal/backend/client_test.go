package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prepdeck/authbridge/internal/identity"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != loginPath || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["email"] != "a@b.com" {
			t.Errorf("expected normalized email, got %q", body["email"])
		}
		writeAuthResponse(w)
	}))

	verified, err := client.Login(context.Background(), identity.PasswordAssertion{
		Email:    " A@B.com ",
		Password: "correct",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if verified.UserID != "u1" {
		t.Fatalf("user id must be the backend's id, got %q", verified.UserID)
	}
	if verified.BackendToken != "tok1" {
		t.Fatalf("unexpected token: %q", verified.BackendToken)
	}
	if verified.Role != identity.RoleUser {
		t.Fatalf("unexpected role: %q", verified.Role)
	}
}

func TestLoginRejectsEmptyInputBeforeNetwork(t *testing.T) {
	t.Parallel()

	var called atomic.Bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))

	_, err := client.Login(context.Background(), identity.PasswordAssertion{Email: "a@b.com"})
	if !errors.Is(err, identity.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if called.Load() {
		t.Fatal("invalid input must fail before any network call")
	}
}

func TestLoginBackendRejectionSurfacesMessageVerbatim(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid email or password."})
	}))

	_, err := client.Login(context.Background(), identity.PasswordAssertion{
		Email:    "a@b.com",
		Password: "wrong",
	})
	if !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err.Error() != "Invalid email or password." {
		t.Fatalf("expected verbatim backend message, got %q", err.Error())
	}
}

func TestLoginTimeoutMapsToServiceUnavailable(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), WithTimeout(50*time.Millisecond))
	t.Cleanup(func() { close(release) })

	_, err := client.Login(context.Background(), identity.PasswordAssertion{
		Email:    "a@b.com",
		Password: "correct",
	})
	if !errors.Is(err, identity.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestLoginMalformedBodyMapsToServiceUnavailable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		fn   http.HandlerFunc
	}{
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		}},
		{"missing token", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]string{"id": "u1"}})
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"rejection without message", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, tc.fn)
			_, err := client.Login(context.Background(), identity.PasswordAssertion{
				Email:    "a@b.com",
				Password: "correct",
			})
			if !errors.Is(err, identity.ErrServiceUnavailable) {
				t.Fatalf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	}
}

func TestSyncProfileSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != syncPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["providerSubjectId"] != "sub-9" {
			t.Errorf("expected provider subject id, got %q", body["providerSubjectId"])
		}
		writeAuthResponse(w)
	}))

	verified, err := client.SyncProfile(context.Background(), identity.ExternalProfileAssertion{
		Subject: "sub-9",
		Email:   "a@b.com",
		Name:    "A",
	})
	if err != nil {
		t.Fatalf("SyncProfile: %v", err)
	}
	if verified.UserID != "u1" {
		t.Fatalf("user id must come from the backend, never the provider subject: %q", verified.UserID)
	}
}

func TestHealthRetriesIdempotentGet(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestHealthGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	if err := client.Health(context.Background()); !errors.Is(err, identity.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func writeAuthResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user": map[string]string{
			"id":    "u1",
			"name":  "A",
			"email": "a@b.com",
			"role":  "user",
		},
		"token": "tok1",
	})
}
