package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crmforge/outreach-backend/internal/analytics"
)

type AnalyticsController struct {
	Aggregator *analytics.Aggregator
}

func (c *AnalyticsController) CampaignSummary(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	summary, err := c.Aggregator.CampaignSummary(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (c *AnalyticsController) WorkflowSummary(w http.ResponseWriter, r *http.Request) {
	templateID, _ := strconv.Atoi(r.URL.Query().Get("template_id"))

	summary, err := c.Aggregator.WorkflowSummary(tenantID(r), templateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
