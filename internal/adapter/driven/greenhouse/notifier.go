// Package greenhouse is the driven adapter for the Greenhouse assessment
// partner API. Its one outbound call marks a take-home test as completed,
// which prompts Greenhouse to fetch the test status back from us.
package greenhouse

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CompletionNotifier = (*Notifier)(nil)

// Notifier marks Greenhouse take-home tests as completed by issuing an
// authenticated PATCH to the tracking URL Greenhouse handed us when the test
// was sent.
type Notifier struct {
	client   *http.Client
	username string
	password string
}

// NewNotifier creates a Notifier authenticating with the given basic auth
// credentials. A nil client gets a default with a 30 second timeout.
func NewNotifier(client *http.Client, username, password string) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Notifier{client: client, username: username, password: password}
}

// NotifyCompleted signals Greenhouse that the test behind the tracking URL is
// complete. Greenhouse responds by querying our test status endpoint.
func (n *Notifier) NotifyCompleted(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, nil)
	if err != nil {
		return fmt.Errorf("building completion request: %w", err)
	}
	req.SetBasicAuth(n.username, n.password)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifying greenhouse: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notifying greenhouse: unexpected status %d", resp.StatusCode)
	}

	slog.Debug("notified greenhouse of completion", "url", url, "status", resp.StatusCode)
	return nil
}
