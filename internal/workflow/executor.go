// Package workflow executes multi-step sequences: one contact's progress
// through a named template of tasks with delays, branch rules and
// human-in-the-loop gates. Structurally it is the campaign run loop
// generalized to arbitrary step types.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crmforge/outreach-backend/internal/clock"
	appErrors "github.com/crmforge/outreach-backend/internal/errors"
	"github.com/crmforge/outreach-backend/internal/model"
	"github.com/crmforge/outreach-backend/internal/provider"
	"github.com/crmforge/outreach-backend/internal/service"
)

type Store interface {
	GetTemplate(tenantID string, id int) (*model.WorkflowTemplate, error)
	ListActiveInstances(tenantID string) ([]model.WorkflowInstance, error)
	GetInstance(tenantID, id string) (*model.WorkflowInstance, error)
	UpdateInstance(inst *model.WorkflowInstance) error
}

type ContactLoader interface {
	GetByID(tenantID string, id int) (*model.Contact, error)
}

type StepState string

const (
	StepNotDue    StepState = "not_due"
	StepPaused    StepState = "paused_for_hitl"
	StepAdvanced  StepState = "advanced"
	StepCompleted StepState = "completed"
	StepFailed    StepState = "failed"
)

// ActionResult records one action's outcome inside a step. Multi-action
// steps are not atomic; every action's individual result is surfaced so an
// operator can see exactly which sends happened before a failure.
type ActionResult struct {
	Kind    ActionKind `json:"kind"`
	Success bool       `json:"success"`
	Output  string     `json:"output,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type StepResult struct {
	InstanceID string         `json:"instance_id"`
	TaskID     int            `json:"task_id,omitempty"`
	State      StepState      `json:"state"`
	Actions    []ActionResult `json:"actions,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// BatchSummary aggregates one executor pass over all due instances.
type BatchSummary struct {
	Instances int          `json:"instances"`
	Advanced  int          `json:"advanced"`
	Completed int          `json:"completed"`
	Paused    int          `json:"paused"`
	Failed    int          `json:"failed"`
	NotDue    int          `json:"not_due"`
	Results   []StepResult `json:"results"`
}

type Executor struct {
	Store     Store
	Contacts  ContactLoader
	Voice     provider.VoiceCaller
	SMS       provider.SMSSender
	Email     provider.EmailSender
	Calendar  provider.CalendarScheduler
	Generator provider.DocumentGenerator
	Clock     clock.Clock
	Timeout   time.Duration
	Log       *logrus.Logger
}

// ProcessDueInstances runs one pass over every active instance, executing
// each instance's current task if its delay has elapsed. Per-instance
// failures are recorded on the instance and in the summary; they never abort
// the batch.
func (e *Executor) ProcessDueInstances(ctx context.Context, tenantID string) (BatchSummary, error) {
	summary := BatchSummary{Results: []StepResult{}}

	instances, err := e.Store.ListActiveInstances(tenantID)
	if err != nil {
		return summary, err
	}
	summary.Instances = len(instances)

	for i := range instances {
		result := e.ExecuteCurrent(ctx, &instances[i])
		switch result.State {
		case StepAdvanced:
			summary.Advanced++
		case StepCompleted:
			summary.Completed++
		case StepPaused:
			summary.Paused++
		case StepFailed:
			summary.Failed++
		case StepNotDue:
			summary.NotDue++
		}
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}

// ExecuteCurrent runs the instance's current task. The cursor only ever
// moves forward in position order or to a declared branch target.
func (e *Executor) ExecuteCurrent(ctx context.Context, inst *model.WorkflowInstance) StepResult {
	result := StepResult{InstanceID: inst.ID}
	if inst.Status != model.InstanceActive {
		result.State = StepState(inst.Status)
		return result
	}

	tmpl, err := e.Store.GetTemplate(inst.TenantID, inst.TemplateID)
	if err != nil || tmpl == nil {
		return e.fail(inst, result, fmt.Errorf("template %d could not be loaded: %v", inst.TemplateID, err))
	}

	task := currentTask(tmpl, inst)
	if task == nil {
		return e.fail(inst, result, fmt.Errorf("cursor %d does not name a task in template %d", inst.CurrentTask, tmpl.ID))
	}
	result.TaskID = task.ID
	if inst.CurrentTask != task.ID {
		// First pass after enrollment: pin the cursor to the opening task.
		inst.CurrentTask = task.ID
	}

	if task.IsHITL {
		inst.Status = model.InstancePausedForHITL
		if err := e.Store.UpdateInstance(inst); err != nil {
			return e.fail(inst, result, err)
		}
		e.Log.Infof("instance %s: paused at HITL gate %q", inst.ID, task.Name)
		result.State = StepPaused
		return result
	}

	now := e.Clock.Now()
	if now.Before(inst.CurrentSince.Add(task.Delay())) {
		result.State = StepNotDue
		return result
	}

	actions, err := DecodeActions(task.Actions)
	if err != nil {
		return e.fail(inst, result, errors.Wrapf(err, "task %q has invalid action config", task.Name))
	}

	contact, err := e.Contacts.GetByID(inst.TenantID, inst.ContactID)
	if err != nil || contact == nil {
		return e.fail(inst, result, fmt.Errorf("contact %d could not be loaded: %v", inst.ContactID, err))
	}

	allOK := true
	for _, action := range actions {
		ar := e.runAction(ctx, task, action, contact)
		if ar.Success {
			inst.Metadata[metadataKey(task.ID, ar.Kind)] = ar.Output
		} else {
			allOK = false
		}
		result.Actions = append(result.Actions, ar)
	}

	if !allOK {
		return e.fail(inst, result, fmt.Errorf("task %q: %s", task.Name, firstActionError(result.Actions)))
	}

	return e.advance(inst, tmpl, task, result)
}

// Approve records a human approval for the instance's current HITL gate and
// resumes it at the next task. The gate's delay does not re-apply; the next
// task's own delay runs from the approval time.
func (e *Executor) Approve(ctx context.Context, tenantID, instanceID string, taskID int, approvedBy string) (StepResult, error) {
	result := StepResult{InstanceID: instanceID}

	inst, err := e.Store.GetInstance(tenantID, instanceID)
	if err != nil {
		return result, err
	}
	if inst == nil {
		return result, appErrors.NewInstanceNotFound(instanceID)
	}
	if inst.Status != model.InstancePausedForHITL {
		return result, appErrors.NewInstanceNotPaused(instanceID, string(inst.Status))
	}
	if inst.CurrentTask != taskID {
		return result, fmt.Errorf("approval targets task %d but instance is paused at task %d", taskID, inst.CurrentTask)
	}

	tmpl, err := e.Store.GetTemplate(tenantID, inst.TemplateID)
	if err != nil || tmpl == nil {
		return result, fmt.Errorf("template %d could not be loaded: %v", inst.TemplateID, err)
	}
	task := findTask(tmpl, taskID)
	if task == nil {
		return result, fmt.Errorf("task %d not found in template %d", taskID, tmpl.ID)
	}
	result.TaskID = taskID

	inst.Metadata[metadataKey(taskID, "approved_by")] = approvedBy
	inst.Status = model.InstanceActive
	e.Log.Infof("instance %s: task %q approved by %s", inst.ID, task.Name, approvedBy)
	return e.advance(inst, tmpl, task, result), nil
}

func (e *Executor) advance(inst *model.WorkflowInstance, tmpl *model.WorkflowTemplate, task *model.WorkflowTask, result StepResult) StepResult {
	next, err := nextTask(tmpl, task, inst.Metadata)
	if err != nil {
		return e.fail(inst, result, err)
	}

	if next == nil {
		inst.Status = model.InstanceCompleted
		if err := e.Store.UpdateInstance(inst); err != nil {
			return e.fail(inst, result, err)
		}
		e.Log.Infof("instance %s: completed", inst.ID)
		result.State = StepCompleted
		return result
	}

	inst.CurrentTask = next.ID
	inst.CurrentSince = e.Clock.Now()
	inst.Status = model.InstanceActive
	inst.LastError = ""
	if err := e.Store.UpdateInstance(inst); err != nil {
		return e.fail(inst, result, err)
	}
	e.Log.Infof("instance %s: advanced to task %q", inst.ID, next.Name)
	result.State = StepAdvanced
	return result
}

func (e *Executor) fail(inst *model.WorkflowInstance, result StepResult, cause error) StepResult {
	inst.Status = model.InstanceFailed
	inst.LastError = cause.Error()
	if err := e.Store.UpdateInstance(inst); err != nil {
		e.Log.Errorf("instance %s: persisting failure state failed: %v", inst.ID, err)
	}
	e.Log.Warnf("instance %s: failed: %v", inst.ID, cause)
	result.State = StepFailed
	result.Error = cause.Error()
	return result
}

func (e *Executor) runAction(ctx context.Context, task *model.WorkflowTask, action Action, contact *model.Contact) ActionResult {
	ar := ActionResult{Kind: action.Kind}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	data := map[string]string{
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"city":       contact.City,
	}

	var output string
	var err error
	switch action.Kind {
	case ActionVoiceCall:
		if contact.Phone == "" {
			err = appErrors.NewMissingAddress(contact.ID, string(model.ChannelVoice))
			break
		}
		var res provider.CallResult
		res, err = e.Voice.PlaceCall(callCtx, task.AgentRef, contact.Phone, map[string]string{
			"task":   task.Name,
			"script": service.RenderTemplate(action.Voice.Script, data),
		})
		output = res.ProviderCallID
	case ActionSMS:
		if contact.Phone == "" {
			err = appErrors.NewMissingAddress(contact.ID, string(model.ChannelSMS))
			break
		}
		var res provider.SMSResult
		res, err = e.SMS.SendSMS(callCtx, contact.Phone, service.RenderTemplate(action.SMS.Body, data))
		output = res.SID
	case ActionEmail:
		if contact.Email == "" {
			err = appErrors.NewMissingAddress(contact.ID, string(model.ChannelEmail))
			break
		}
		var res provider.EmailResult
		res, err = e.Email.SendEmail(callCtx, contact.Email,
			service.RenderTemplate(action.Email.Subject, data),
			service.RenderTemplate(action.Email.Body, data))
		output = res.MessageID
	case ActionCalendar:
		var res provider.Appointment
		res, err = e.Calendar.CreateAppointment(callCtx, provider.AppointmentDetails{
			Title:     action.Calendar.Title,
			ContactID: contact.ID,
			Start:     e.Clock.Now().Add(time.Duration(action.Calendar.OffsetHours) * time.Hour),
			Duration:  time.Duration(action.Calendar.DurationMinutes) * time.Minute,
		})
		output = res.ID
	case ActionGenerate:
		var res provider.Document
		res, err = e.Generator.Generate(callCtx, action.Generate.Kind, action.Generate.Params)
		output = res.ID
	}

	if err != nil {
		ar.Error = err.Error()
		return ar
	}
	ar.Success = true
	ar.Output = output
	return ar
}

func (e *Executor) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return 30 * time.Second
}

// currentTask resolves the instance cursor. A zero cursor (fresh enrollment)
// resolves to the template's opening task.
func currentTask(tmpl *model.WorkflowTemplate, inst *model.WorkflowInstance) *model.WorkflowTask {
	if inst.CurrentTask == 0 {
		if len(tmpl.Tasks) == 0 {
			return nil
		}
		return &tmpl.Tasks[0]
	}
	return findTask(tmpl, inst.CurrentTask)
}

func findTask(tmpl *model.WorkflowTemplate, id int) *model.WorkflowTask {
	for i := range tmpl.Tasks {
		if tmpl.Tasks[i].ID == id {
			return &tmpl.Tasks[i]
		}
	}
	return nil
}

// nextTask picks the successor: the branch target when the task's rule
// matches the accumulated metadata, otherwise the next task in position
// order. A key no task ever set does not match, even against an empty
// Equals. A branch target must sit later in the order; the cursor never
// moves backwards.
func nextTask(tmpl *model.WorkflowTemplate, task *model.WorkflowTask, meta model.Metadata) (*model.WorkflowTask, error) {
	if rule := branchRule(task); rule != nil && branchMatches(rule, meta) {
		target := findTask(tmpl, rule.TargetTaskID)
		if target == nil {
			return nil, fmt.Errorf("task %q: branch target %d not in template", task.Name, rule.TargetTaskID)
		}
		if target.Position <= task.Position {
			return nil, fmt.Errorf("task %q: branch target %q would move the cursor backwards", task.Name, target.Name)
		}
		return target, nil
	}

	// Mainline advance: branch sub-tree tasks (those with a parent) only
	// run when a rule targets them, or as successors inside the same
	// sub-tree.
	for i := range tmpl.Tasks {
		next := &tmpl.Tasks[i]
		if next.Position <= task.Position {
			continue
		}
		if next.ParentTaskID == nil || sameSubtree(task, next) {
			return next, nil
		}
	}
	return nil, nil
}

func branchMatches(rule *model.BranchRule, meta model.Metadata) bool {
	v, ok := meta[rule.Key]
	return ok && v == rule.Equals
}

func sameSubtree(current, next *model.WorkflowTask) bool {
	return current.ParentTaskID != nil && next.ParentTaskID != nil &&
		*current.ParentTaskID == *next.ParentTaskID
}

func branchRule(task *model.WorkflowTask) *model.BranchRule {
	if task.Branch != nil {
		return task.Branch
	}
	if len(task.BranchJSON) == 0 {
		return nil
	}
	var rule model.BranchRule
	if err := json.Unmarshal(task.BranchJSON, &rule); err != nil {
		return nil
	}
	return &rule
}

func metadataKey(taskID int, suffix any) string {
	return fmt.Sprintf("task_%d_%v", taskID, suffix)
}

func firstActionError(actions []ActionResult) string {
	for _, a := range actions {
		if !a.Success {
			return a.Error
		}
	}
	return "action failed"
}
