package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/upmenu/menu-api/internal/auth"
)

func TestNewLogNotifierSatisfiesNotifier(t *testing.T) {
	var n auth.Notifier = NewLogNotifier()
	if err := n.SendPasswordReset(context.Background(), "u@x.com", "tok"); err != nil {
		t.Fatal(err)
	}
}

func TestMailerSendsResetLink(t *testing.T) {
	var got struct {
		Subject string `json:"subject"`
		Text    string `json:"text"`
	}
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMailer(srv.URL, "api-key", "noreply@x.com", "https://x.com/reset")
	if err := m.SendPasswordReset(context.Background(), "u@x.com", "tok123"); err != nil {
		t.Fatal(err)
	}
	if authHeader != "Bearer api-key" {
		t.Fatalf("auth header = %q", authHeader)
	}
	if !strings.Contains(got.Text, "https://x.com/reset?token=tok123") {
		t.Fatalf("reset link missing from body: %q", got.Text)
	}
}

func TestMailerSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMailer(srv.URL, "wrong", "noreply@x.com", "https://x.com/reset")
	if err := m.SendPasswordReset(context.Background(), "u@x.com", "tok"); err == nil {
		t.Fatal("mail API failure swallowed")
	}
}
