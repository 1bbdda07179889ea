// Package notify delivers password-reset tokens to users.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upmenu/menu-api/internal/obs"
)

// LogNotifier writes the reset token to the structured log. Development
// default; production wires a real channel.
type LogNotifier struct{}

// NewLogNotifier builds the log-backed notifier.
func NewLogNotifier() LogNotifier { return LogNotifier{} }

func (LogNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	obs.Info("password_reset_token_issued", map[string]any{
		"email": email,
		"token": token,
	})
	return nil
}

// Mailer posts reset emails to a transactional-mail HTTP API.
type Mailer struct {
	apiURL    string
	apiKey    string
	fromEmail string
	resetURL  string
	client    *http.Client
}

// NewMailer builds a Mailer. resetURL is the public page the token link
// points at, e.g. https://menu.example.com/admin/reset-password.
func NewMailer(apiURL, apiKey, fromEmail, resetURL string) *Mailer {
	return &Mailer{
		apiURL:    apiURL,
		apiKey:    apiKey,
		fromEmail: fromEmail,
		resetURL:  resetURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string) error {
	body := map[string]any{
		"from":    map[string]string{"email": m.fromEmail},
		"to":      []map[string]string{{"email": email}},
		"subject": "Reset your password",
		"text": fmt.Sprintf("Use the link below to reset your password. It expires in one hour.\n\n%s?token=%s\n",
			m.resetURL, token),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
