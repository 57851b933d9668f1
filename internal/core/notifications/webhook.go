package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

const (
	SignatureHeader = "X-Signature"
	EventIDHeader   = "X-Event-ID"
	EventTypeHeader = "X-Event-Type"
	userAgent       = "PayLedger-Webhook/1.0"
)

// Webhook posts event payloads to a subscriber URL.
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhook builds the sink. With an empty secret requests go out unsigned.
func NewWebhook(url, secret string) *Webhook {
	// Slow subscribers must not stall the relay.
	return &Webhook{url: url, secret: secret, client: &http.Client{Timeout: 5 * time.Second}}
}

func (w *Webhook) Name() string { return "webhook" }

// Deliver succeeds only on a 2xx response.
func (w *Webhook) Deliver(ctx context.Context, event domain.PaymentEvent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(event.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(EventIDHeader, event.ID.String())
	req.Header.Set(EventTypeHeader, event.Type)
	if w.secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.secret, event.Payload))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("subscriber returned status %d", resp.StatusCode)
}

// Sign returns the hex HMAC-SHA256 of body keyed with secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
