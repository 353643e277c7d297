package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type InstanceStatus string

const (
	InstanceActive        InstanceStatus = "active"
	InstancePausedForHITL InstanceStatus = "paused_for_hitl"
	InstanceCompleted     InstanceStatus = "completed"
	InstanceFailed        InstanceStatus = "failed"
)

type DelayUnit string

const (
	DelayMinutes DelayUnit = "minutes"
	DelayHours   DelayUnit = "hours"
	DelayDays    DelayUnit = "days"
)

// WorkflowTemplate is a reusable multi-step process definition. Task order is
// the strict display order used for execution sequencing.
type WorkflowTemplate struct {
	ID        int            `db:"id" json:"id"`
	TenantID  string         `db:"tenant_id" json:"tenant_id"`
	Name      string         `db:"name" json:"name"`
	Tasks     []WorkflowTask `json:"tasks,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// WorkflowTask is one step definition within a template. Actions holds the
// raw configured action set, decoded into typed actions at load time.
// ParentTaskID marks branch sub-trees; a task with a parent only runs when a
// branch condition targets it.
type WorkflowTask struct {
	ID           int             `db:"id" json:"id"`
	TemplateID   int             `db:"template_id" json:"template_id"`
	Name         string          `db:"name" json:"name"`
	Position     int             `db:"position" json:"position"`
	ParentTaskID *int            `db:"parent_task_id" json:"parent_task_id,omitempty"`
	AgentRef     string          `db:"agent_ref" json:"agent_ref"`
	DelayValue   int             `db:"delay_value" json:"delay_value"`
	DelayUnit    DelayUnit       `db:"delay_unit" json:"delay_unit"`
	IsHITL       bool            `db:"is_hitl" json:"is_hitl"`
	Branch       *BranchRule     `db:"-" json:"branch,omitempty"`
	BranchJSON   []byte          `db:"branch_rule" json:"-"`
	Actions      json.RawMessage `db:"actions" json:"actions"`
}

// Delay converts the configured delay into a duration.
func (t WorkflowTask) Delay() time.Duration {
	switch t.DelayUnit {
	case DelayHours:
		return time.Duration(t.DelayValue) * time.Hour
	case DelayDays:
		return time.Duration(t.DelayValue) * 24 * time.Hour
	default:
		return time.Duration(t.DelayValue) * time.Minute
	}
}

// BranchRule routes an instance to TargetTaskID when the metadata value
// stored under Key by a prior task equals Equals. No rule, or no match,
// means the instance advances to the next task in position order.
type BranchRule struct {
	Key          string `json:"key"`
	Equals       string `json:"equals"`
	TargetTaskID int    `json:"target_task_id"`
}

// WorkflowInstance is one contact's live progress through a template. The
// cursor only moves forward in position order or to a declared branch target.
type WorkflowInstance struct {
	ID           string         `db:"id" json:"id"`
	TenantID     string         `db:"tenant_id" json:"tenant_id"`
	TemplateID   int            `db:"template_id" json:"template_id"`
	ContactID    int            `db:"contact_id" json:"contact_id"`
	CurrentTask  int            `db:"current_task" json:"current_task"`
	CurrentSince time.Time      `db:"current_since" json:"current_since"`
	Status       InstanceStatus `db:"status" json:"status"`
	Metadata     Metadata       `db:"metadata" json:"metadata"`
	LastError    string         `db:"last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Metadata accumulates step outputs keyed by task ID, plus any enrollment
// context. Stored as JSONB.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("unsupported metadata type %T", src)
}
