package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

type delivered struct {
	body      []byte
	signature string
	eventType string
	eventID   string
}

func TestWebhookSinkDeliversSignedEvent(t *testing.T) {
	got := make(chan delivered, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got <- delivered{
			body:      body,
			signature: r.Header.Get(webhookSignatureHeader),
			eventType: r.Header.Get(webhookEventTypeHeader),
			eventID:   r.Header.Get(webhookEventIDHeader),
		}
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "topsecret")
	var agent keys.Pubkey
	agent[0] = 7
	sink.Publish(events.AgentRegistered{Agent: agent, Owner: agent, Name: "relay", At: 1000})

	var d delivered
	select {
	case d = <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook never delivered")
	}

	require.Equal(t, "agent_registered", d.eventType)
	require.NotEmpty(t, d.eventID)
	require.True(t, VerifyWebhookSignature("topsecret", d.body, d.signature))
	require.False(t, VerifyWebhookSignature("wrongsecret", d.body, d.signature))
	require.False(t, VerifyWebhookSignature("topsecret", d.body, "zz-not-hex"))

	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(d.body, &env))
	require.Equal(t, "agent_registered", env.Event)

	var data events.AgentRegistered
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, agent, data.Agent)
	require.Equal(t, "relay", data.Name)
}
