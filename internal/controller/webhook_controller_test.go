package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmforge/outreach-backend/internal/queue"
)

func postEngagement(t *testing.T, c *WebhookController, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/engagement", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c.Engagement(rec, req)
	return rec
}

func TestEngagementWebhookQueuesEvent(t *testing.T) {
	q := queue.NewInMemoryPublisher()
	var got []queue.EngagementEvent
	q.Subscribe(func(ev queue.EngagementEvent) error {
		got = append(got, ev)
		return nil
	})
	c := &WebhookController{Publisher: q}

	rec := postEngagement(t, c, `{"provider_ref":"sms-1","event":"delivered"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, got, 1)
	assert.Equal(t, "sms-1", got[0].ProviderRef)
	assert.Equal(t, "delivered", got[0].Event)
	assert.False(t, got[0].OccurredAt.IsZero())
}

func TestEngagementWebhookRejectsBadPayloads(t *testing.T) {
	c := &WebhookController{Publisher: queue.NewInMemoryPublisher()}

	assert.Equal(t, http.StatusBadRequest, postEngagement(t, c, `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, postEngagement(t, c, `{"event":"delivered"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postEngagement(t, c, `{"provider_ref":"x","event":"bounced"}`).Code)
}
