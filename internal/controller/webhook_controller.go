package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/crmforge/outreach-backend/internal/log"
	"github.com/crmforge/outreach-backend/internal/queue"
)

// WebhookController receives provider delivery/engagement callbacks and
// hands them to the event queue. The worker applies them to dispatch
// records asynchronously, keeping webhook latency independent of database
// write load.
type WebhookController struct {
	Publisher queue.Publisher
}

func (c *WebhookController) Engagement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProviderRef string     `json:"provider_ref"`
		Event       string     `json:"event"`
		OccurredAt  *time.Time `json:"occurred_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.ProviderRef == "" || !queue.KnownEvent(body.Event) {
		http.Error(w, "provider_ref and a known event are required", http.StatusBadRequest)
		return
	}

	occurredAt := time.Now()
	if body.OccurredAt != nil {
		occurredAt = *body.OccurredAt
	}

	ev := queue.EngagementEvent{
		ProviderRef: body.ProviderRef,
		Event:       body.Event,
		OccurredAt:  occurredAt,
	}
	if err := c.Publisher.Publish(ev); err != nil {
		log.GetLogger().Errorf("webhook: failed to publish %s/%s: %v", ev.ProviderRef, ev.Event, err)
		http.Error(w, "failed to queue event", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
