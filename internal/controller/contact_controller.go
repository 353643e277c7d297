package controller

import (
	"encoding/json"
	"net/http"

	"github.com/crmforge/outreach-backend/internal/model"
	"github.com/crmforge/outreach-backend/internal/repository"
)

type ContactController struct {
	Repo repository.ContactRepositoryInterface
}

func (c *ContactController) CreateContact(w http.ResponseWriter, r *http.Request) {
	var body model.Contact
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	body.TenantID = tenantID(r)

	if err := c.Repo.Create(&body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, body)
}

func (c *ContactController) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := c.Repo.ListAll(tenantID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": contacts})
}
