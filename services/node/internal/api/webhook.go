package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/httpx"
)

const (
	webhookSignatureHeader = "X-Signature"
	webhookEventIDHeader   = "X-Event-Id"
	webhookEventTypeHeader = "X-Event-Type"
)

// WebhookSink delivers committed events to an HTTP endpoint, signed with
// HMAC-SHA256 over the raw body so the receiver can verify origin.
// Delivery is asynchronous and lossy under backpressure, same contract as
// the websocket hub: events are observational, never load-bearing.
type WebhookSink struct {
	url    string
	secret []byte
	client *http.Client
	queue  chan envelope
}

func NewWebhookSink(url, secret string) *WebhookSink {
	s := &WebhookSink{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{Timeout: 10 * time.Second},
		queue:  make(chan envelope, 256),
	}
	go s.deliver()
	return s
}

func (s *WebhookSink) Publish(ev events.Event) {
	select {
	case s.queue <- envelope{Event: ev.EventName(), Data: ev}:
	default:
		log.Printf("webhook queue full, dropping %s", ev.EventName())
	}
}

func (s *WebhookSink) deliver() {
	for env := range s.queue {
		body, err := json.Marshal(env)
		if err != nil {
			log.Printf("webhook marshal %s: %v", env.Event, err)
			continue
		}
		req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			log.Printf("webhook request %s: %v", env.Event, err)
			continue
		}
		req.Header.Set("content-type", "application/json")
		req.Header.Set(webhookEventIDHeader, httpx.NewRequestID())
		req.Header.Set(webhookEventTypeHeader, env.Event)
		req.Header.Set(webhookSignatureHeader, s.sign(body))

		resp, err := s.client.Do(req)
		if err != nil {
			log.Printf("webhook deliver %s: %v", env.Event, err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("webhook deliver %s: status %d", env.Event, resp.StatusCode)
		}
	}
}

func (s *WebhookSink) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature is the receiver-side check: hex HMAC-SHA256 of
// the raw body under the shared secret, compared in constant time.
func VerifyWebhookSignature(secret string, rawBody []byte, signatureHex string) bool {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), sig)
}
