package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/crmforge/outreach-backend/internal/errors"
	"github.com/crmforge/outreach-backend/internal/model"
	"github.com/crmforge/outreach-backend/internal/repository"
	"github.com/crmforge/outreach-backend/internal/workflow"
)

type WorkflowController struct {
	Repo     repository.WorkflowRepositoryInterface
	Executor *workflow.Executor
}

type taskInput struct {
	Name         string            `json:"name"`
	Position     int               `json:"position"`
	ParentTaskID *int              `json:"parent_task_id,omitempty"`
	AgentRef     string            `json:"agent_ref"`
	DelayValue   int               `json:"delay_value"`
	DelayUnit    string            `json:"delay_unit"`
	IsHITL       bool              `json:"is_hitl"`
	Branch       *model.BranchRule `json:"branch,omitempty"`
	Actions      json.RawMessage   `json:"actions"`
}

func (c *WorkflowController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string      `json:"name"`
		Tasks []taskInput `json:"tasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		http.Error(w, "template name is required", http.StatusBadRequest)
		return
	}

	tmpl := &model.WorkflowTemplate{TenantID: tenantID(r), Name: body.Name}
	for _, t := range body.Tasks {
		// Action configs are validated up front so a bad template is
		// rejected at creation, not discovered mid-run.
		if _, err := workflow.DecodeActions(t.Actions); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		task := model.WorkflowTask{
			Name:         t.Name,
			Position:     t.Position,
			ParentTaskID: t.ParentTaskID,
			AgentRef:     t.AgentRef,
			DelayValue:   t.DelayValue,
			DelayUnit:    model.DelayUnit(t.DelayUnit),
			IsHITL:       t.IsHITL,
			Actions:      t.Actions,
		}
		if t.Branch != nil {
			raw, err := json.Marshal(t.Branch)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			task.BranchJSON = raw
		}
		tmpl.Tasks = append(tmpl.Tasks, task)
	}

	if err := c.Repo.CreateTemplate(tmpl); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

func (c *WorkflowController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := c.Repo.ListTemplates(tenantID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": templates})
}

func (c *WorkflowController) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	tmpl, err := c.Repo.GetTemplate(tenantID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if tmpl == nil {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (c *WorkflowController) EnrollInstance(w http.ResponseWriter, r *http.Request) {
	templateID, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var body struct {
		ContactID int               `json:"contact_id"`
		Metadata  map[string]string `json:"metadata,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	tmpl, err := c.Repo.GetTemplate(tenantID(r), templateID)
	if err != nil {
		writeError(w, err)
		return
	}
	if tmpl == nil {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}

	inst := &model.WorkflowInstance{
		TenantID:   tenantID(r),
		TemplateID: templateID,
		ContactID:  body.ContactID,
		Metadata:   model.Metadata(body.Metadata),
	}
	created, isNew, err := c.Repo.EnrollInstance(inst)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, created)
}

func (c *WorkflowController) GetInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instanceID")

	inst, err := c.Repo.GetInstance(tenantID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if inst == nil {
		http.Error(w, "instance not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// Approve records a human approval for a HITL gate; the instance resumes at
// the next task.
func (c *WorkflowController) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instanceID")

	var body struct {
		TaskID     int    `json:"task_id"`
		ApprovedBy string `json:"approved_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.ApprovedBy == "" {
		http.Error(w, "approved_by is required", http.StatusBadRequest)
		return
	}

	result, err := c.Executor.Approve(r.Context(), tenantID(r), id, body.TaskID, body.ApprovedBy)
	if err != nil {
		if _, ok := err.(*appErrors.ErrInstanceNotPaused); ok {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
