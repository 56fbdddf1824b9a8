package ajarin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestLoginStoresTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decoding login body: %v", err)
		}
		if creds["email"] != "siswa@example.com" {
			t.Errorf("email = %q", creds["email"])
		}
		w.Write([]byte(`{"success":true,"data":{"access_token":"access-1","refresh_token":"refresh-1"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Login(context.Background(), "siswa@example.com", "rahasia"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got := client.Credentials().AccessToken(); got != "access-1" {
		t.Errorf("AccessToken() = %q, want access-1", got)
	}
	if got := client.Credentials().RefreshToken(); got != "refresh-1" {
		t.Errorf("RefreshToken() = %q, want refresh-1", got)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error_code":"BAD_CREDENTIALS","message":"wrong email or password"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Login(context.Background(), "siswa@example.com", "salah")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Class != ErrorClassAuth {
		t.Fatalf("error = %v, want Auth-class APIError", err)
	}
	if got := client.Credentials().AccessToken(); got != "" {
		t.Errorf("AccessToken() = %q, want empty after failed login", got)
	}
}

func TestLoginRejectsTokenlessResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Login(context.Background(), "siswa@example.com", "rahasia")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Class != ErrorClassServer {
		t.Fatalf("error = %v, want Server-class APIError", err)
	}
}

func TestLogoutClearsCredentials(t *testing.T) {
	var logoutHits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/logout" {
			logoutHits.Add(1)
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.Credentials().SetTokens("access-1", "refresh-1")

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if logoutHits.Load() != 1 {
		t.Errorf("logout endpoint called %d times, want 1", logoutHits.Load())
	}
	if got := client.Credentials().AccessToken(); got != "" {
		t.Errorf("AccessToken() = %q, want cleared", got)
	}
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	client := newTestClient(t, unreachableURL(t), WithMaxRetries(0), WithWriteMaxRetries(0))
	client.Credentials().SetTokens("access-1", "refresh-1")

	err := client.Logout(context.Background())
	if err == nil {
		t.Fatal("expected the server failure to surface")
	}
	if got := client.Credentials().AccessToken(); got != "" {
		t.Errorf("AccessToken() = %q, want cleared despite the server failure", got)
	}
}
