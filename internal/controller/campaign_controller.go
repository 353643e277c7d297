package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/crmforge/outreach-backend/internal/errors"
	"github.com/crmforge/outreach-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

// tenantID resolves the tenant scope for the request. Authentication is
// handled upstream; here the header is the source of truth, defaulting to
// the single-tenant id for local runs.
func tenantID(r *http.Request) string {
	if id := r.Header.Get("X-Tenant-ID"); id != "" {
		return id
	}
	return "default"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *appErrors.ErrCampaignNotFound, *appErrors.ErrInstanceNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(tenantID(r), body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	channel := r.URL.Query().Get("channel")
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(tenantID(r), page, pageSize, channel, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	details, err := c.CampaignService.GetCampaignDetails(tenantID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (c *CampaignController) StartCampaign(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	if err := c.CampaignService.Start(tenantID(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "running"})
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	if err := c.CampaignService.Pause(tenantID(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "paused"})
}

func (c *CampaignController) EnrollContacts(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var body struct {
		ContactIDs []int `json:"contact_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := c.CampaignService.EnrollContacts(tenantID(r), id, body.ContactIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var body struct {
		ContactID        int     `json:"contact_id"`
		OverrideTemplate *string `json:"override_template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rendered, err := c.CampaignService.RenderPreview(tenantID(r), id, body.ContactID, body.OverrideTemplate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rendered_message": rendered,
		"contact_id":       body.ContactID,
	})
}
