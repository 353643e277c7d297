package workflow

import (
	"encoding/json"

	"github.com/pkg/errors"

	appErrors "github.com/crmforge/outreach-backend/internal/errors"
)

type ActionKind string

const (
	ActionVoiceCall ActionKind = "voice_call"
	ActionSMS       ActionKind = "sms"
	ActionEmail     ActionKind = "email"
	ActionCalendar  ActionKind = "calendar"
	ActionGenerate  ActionKind = "generate"
)

// Action is the decoded form of one configured task action. Exactly one of
// the parameter fields is set, matching Kind. Configs are decoded up front so
// a typo'd kind fails the task at load time instead of being silently
// skipped mid-run.
type Action struct {
	Kind     ActionKind      `json:"kind"`
	Voice    *VoiceParams    `json:"voice,omitempty"`
	SMS      *SMSParams      `json:"sms,omitempty"`
	Email    *EmailParams    `json:"email,omitempty"`
	Calendar *CalendarParams `json:"calendar,omitempty"`
	Generate *GenerateParams `json:"generate,omitempty"`
}

type VoiceParams struct {
	Script string `json:"script"`
}

type SMSParams struct {
	Body string `json:"body"`
}

type EmailParams struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type CalendarParams struct {
	Title           string `json:"title"`
	OffsetHours     int    `json:"offset_hours"`
	DurationMinutes int    `json:"duration_minutes"`
}

type GenerateParams struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

// DecodeActions parses a task's raw action config into typed actions. An
// unknown kind or a kind without its parameter block is rejected outright.
func DecodeActions(raw json.RawMessage) ([]Action, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var actions []Action
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, errors.Wrap(err, "decode actions")
	}
	for i, a := range actions {
		if err := a.validate(); err != nil {
			return nil, errors.Wrapf(err, "action %d", i)
		}
	}
	return actions, nil
}

func (a Action) validate() error {
	switch a.Kind {
	case ActionVoiceCall:
		if a.Voice == nil {
			return errors.New("voice_call action missing voice params")
		}
	case ActionSMS:
		if a.SMS == nil {
			return errors.New("sms action missing sms params")
		}
	case ActionEmail:
		if a.Email == nil {
			return errors.New("email action missing email params")
		}
	case ActionCalendar:
		if a.Calendar == nil {
			return errors.New("calendar action missing calendar params")
		}
	case ActionGenerate:
		if a.Generate == nil {
			return errors.New("generate action missing generate params")
		}
	default:
		return appErrors.NewUnknownActionKind(string(a.Kind))
	}
	return nil
}
