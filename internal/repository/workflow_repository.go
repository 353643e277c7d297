package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/crmforge/outreach-backend/internal/model"
)

// WorkflowRepository stores templates, their ordered tasks, and live
// instances. Backed by sqlx for the struct scanning the JSONB-heavy workflow
// tables need.
type WorkflowRepository struct {
	DB *sqlx.DB
}

type WorkflowRepositoryInterface interface {
	CreateTemplate(t *model.WorkflowTemplate) error
	GetTemplate(tenantID string, id int) (*model.WorkflowTemplate, error)
	ListTemplates(tenantID string) ([]model.WorkflowTemplate, error)

	EnrollInstance(inst *model.WorkflowInstance) (*model.WorkflowInstance, bool, error)
	GetInstance(tenantID, id string) (*model.WorkflowInstance, error)
	ListActiveInstances(tenantID string) ([]model.WorkflowInstance, error)
	UpdateInstance(inst *model.WorkflowInstance) error
	InstanceStats(tenantID string, templateID int) (map[string]int, error)
}

func (r *WorkflowRepository) CreateTemplate(t *model.WorkflowTemplate) error {
	t.CreatedAt = time.Now()
	err := r.DB.QueryRowx(
		`INSERT INTO workflow_templates (tenant_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
		t.TenantID, t.Name, t.CreatedAt).Scan(&t.ID)
	if err != nil {
		return errors.Wrap(err, "create template")
	}
	for i := range t.Tasks {
		task := &t.Tasks[i]
		task.TemplateID = t.ID
		err := r.DB.QueryRowx(
			`INSERT INTO workflow_tasks
                (template_id, name, position, parent_task_id, agent_ref, delay_value, delay_unit, is_hitl, branch_rule, actions)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
			task.TemplateID, task.Name, task.Position, task.ParentTaskID, task.AgentRef,
			task.DelayValue, task.DelayUnit, task.IsHITL, nullableJSON(task.BranchJSON),
			[]byte(task.Actions)).Scan(&task.ID)
		if err != nil {
			return errors.Wrapf(err, "create task %q", task.Name)
		}
	}
	return nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func (r *WorkflowRepository) GetTemplate(tenantID string, id int) (*model.WorkflowTemplate, error) {
	var t model.WorkflowTemplate
	err := r.DB.Get(&t,
		`SELECT id, tenant_id, name, created_at FROM workflow_templates WHERE tenant_id=$1 AND id=$2`,
		tenantID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	err = r.DB.Select(&t.Tasks,
		`SELECT id, template_id, name, position, parent_task_id, agent_ref, delay_value, delay_unit,
                is_hitl, COALESCE(branch_rule, '') AS branch_rule, actions
         FROM workflow_tasks WHERE template_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, errors.Wrap(err, "load tasks")
	}
	return &t, nil
}

func (r *WorkflowRepository) ListTemplates(tenantID string) ([]model.WorkflowTemplate, error) {
	templates := []model.WorkflowTemplate{}
	err := r.DB.Select(&templates,
		`SELECT id, tenant_id, name, created_at FROM workflow_templates WHERE tenant_id=$1 ORDER BY id`,
		tenantID)
	return templates, err
}

// EnrollInstance is an upsert-by-composite-key: one live instance per
// (template, contact). The unique index backs the dedup; a conflicting
// enrollment returns the existing instance and created=false.
func (r *WorkflowRepository) EnrollInstance(inst *model.WorkflowInstance) (*model.WorkflowInstance, bool, error) {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	now := time.Now()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	if inst.CurrentSince.IsZero() {
		inst.CurrentSince = now
	}
	if inst.Status == "" {
		inst.Status = model.InstanceActive
	}
	if inst.Metadata == nil {
		inst.Metadata = model.Metadata{}
	}

	res, err := r.DB.Exec(
		`INSERT INTO workflow_instances
            (id, tenant_id, template_id, contact_id, current_task, current_since, status, metadata, last_error, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '', $9, $10)
         ON CONFLICT (template_id, contact_id) DO NOTHING`,
		inst.ID, inst.TenantID, inst.TemplateID, inst.ContactID, inst.CurrentTask,
		inst.CurrentSince, inst.Status, inst.Metadata, inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		return nil, false, errors.Wrap(err, "enroll instance")
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return inst, true, nil
	}

	var existing model.WorkflowInstance
	err = r.DB.Get(&existing,
		`SELECT * FROM workflow_instances WHERE template_id=$1 AND contact_id=$2`,
		inst.TemplateID, inst.ContactID)
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *WorkflowRepository) GetInstance(tenantID, id string) (*model.WorkflowInstance, error) {
	var inst model.WorkflowInstance
	err := r.DB.Get(&inst,
		`SELECT * FROM workflow_instances WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *WorkflowRepository) ListActiveInstances(tenantID string) ([]model.WorkflowInstance, error) {
	instances := []model.WorkflowInstance{}
	query := `SELECT * FROM workflow_instances WHERE status='active'`
	args := []any{}
	if tenantID != "" {
		query += ` AND tenant_id=$1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at`
	err := r.DB.Select(&instances, query, args...)
	return instances, err
}

func (r *WorkflowRepository) UpdateInstance(inst *model.WorkflowInstance) error {
	inst.UpdatedAt = time.Now()
	_, err := r.DB.Exec(
		`UPDATE workflow_instances
         SET current_task=$1, current_since=$2, status=$3, metadata=$4, last_error=$5, updated_at=$6
         WHERE id=$7`,
		inst.CurrentTask, inst.CurrentSince, inst.Status, inst.Metadata, inst.LastError,
		inst.UpdatedAt, inst.ID)
	return errors.Wrap(err, "update instance")
}

func (r *WorkflowRepository) InstanceStats(tenantID string, templateID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM workflow_instances WHERE tenant_id=$1`
	args := []any{tenantID}
	if templateID > 0 {
		query += ` AND template_id=$2`
		args = append(args, templateID)
	}
	query += ` GROUP BY status`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"active": 0, "paused_for_hitl": 0, "completed": 0, "failed": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ WorkflowRepositoryInterface = (*WorkflowRepository)(nil)
