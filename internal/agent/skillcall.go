package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Skill names understood by the dispatcher.
const (
	SkillPersonLookup   = "person_lookup"
	SkillOrgLookup      = "org_lookup"
	SkillCalendarList   = "calendar_list"
	SkillCalendarCreate = "calendar_create"
	SkillEmailSearch    = "email_search"
	SkillEmailDraft     = "email_draft"
	SkillReminderList   = "reminder_list"
	SkillReminderAdd    = "reminder_add"
	SkillSlackDM        = "slack_dm"
	SkillWeather        = "weather"
	SkillWebSearch      = "web_search"
	SkillWebFetch       = "web_fetch"
	SkillRespond        = "respond"
)

// SkillCall is one resolved skill invocation. The set of implementations
// is closed; anything else decodes to UnknownSkill.
type SkillCall interface {
	SkillName() string
}

type PersonLookup struct {
	Name string `json:"name"`
}

type OrgLookup struct {
	Org string `json:"org"`
}

// CalendarList lists events in a window: today, tomorrow, this week or next week.
type CalendarList struct {
	When string `json:"when,omitempty"`
}

// CalendarCreate quick-adds an event from free text ("lunch with Ken friday 1pm").
type CalendarCreate struct {
	Text string `json:"text"`
}

type EmailSearch struct {
	Query string `json:"query"`
}

type EmailDraft struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

type ReminderList struct{}

type ReminderAdd struct {
	Text  string `json:"text"`
	Owner string `json:"owner,omitempty"`
}

type SlackDM struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type Weather struct {
	Location string `json:"location,omitempty"`
}

type WebSearch struct {
	Query string `json:"query"`
}

type WebFetch struct {
	URL string `json:"url"`
}

// Respond is a plain reply with no side effect.
type Respond struct {
	Message string `json:"message"`
}

// UnknownSkill is a tag the dispatcher has no handler for.
type UnknownSkill struct {
	Name string
	Raw  json.RawMessage
}

func (PersonLookup) SkillName() string   { return SkillPersonLookup }
func (OrgLookup) SkillName() string      { return SkillOrgLookup }
func (CalendarList) SkillName() string   { return SkillCalendarList }
func (CalendarCreate) SkillName() string { return SkillCalendarCreate }
func (EmailSearch) SkillName() string    { return SkillEmailSearch }
func (EmailDraft) SkillName() string     { return SkillEmailDraft }
func (ReminderList) SkillName() string   { return SkillReminderList }
func (ReminderAdd) SkillName() string    { return SkillReminderAdd }
func (SlackDM) SkillName() string        { return SkillSlackDM }
func (Weather) SkillName() string        { return SkillWeather }
func (WebSearch) SkillName() string      { return SkillWebSearch }
func (WebFetch) SkillName() string       { return SkillWebFetch }
func (Respond) SkillName() string        { return SkillRespond }
func (u UnknownSkill) SkillName() string { return u.Name }

// DecodeSkill decodes {"skill": name, ...params}. Parameters may also be
// nested under "params". A known skill with a missing required field is
// an error; an unrecognized name yields UnknownSkill.
func DecodeSkill(raw json.RawMessage) (SkillCall, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("skill entry is not an object: %w", err)
	}
	var name string
	if err := json.Unmarshal(fields["skill"], &name); err != nil || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("skill entry has no name")
	}
	name = strings.ToLower(strings.TrimSpace(name))

	params := raw
	if nested, ok := fields["params"]; ok && len(nested) > 0 && nested[0] == '{' {
		params = nested
	}

	var (
		call     SkillCall
		required []string
	)
	switch name {
	case SkillPersonLookup:
		var v PersonLookup
		call, required = &v, []string{"name"}
	case SkillOrgLookup:
		var v OrgLookup
		call, required = &v, []string{"org"}
	case SkillCalendarList:
		call = &CalendarList{}
	case SkillCalendarCreate:
		var v CalendarCreate
		call, required = &v, []string{"text"}
	case SkillEmailSearch:
		var v EmailSearch
		call, required = &v, []string{"query"}
	case SkillEmailDraft:
		var v EmailDraft
		call, required = &v, []string{"to", "body"}
	case SkillReminderList:
		return ReminderList{}, nil
	case SkillReminderAdd:
		var v ReminderAdd
		call, required = &v, []string{"text"}
	case SkillSlackDM:
		var v SlackDM
		call, required = &v, []string{"recipient", "message"}
	case SkillWeather:
		call = &Weather{}
	case SkillWebSearch:
		var v WebSearch
		call, required = &v, []string{"query"}
	case SkillWebFetch:
		var v WebFetch
		call, required = &v, []string{"url"}
	case SkillRespond:
		var v Respond
		call, required = &v, []string{"message"}
	default:
		return UnknownSkill{Name: name, Raw: raw}, nil
	}

	if err := json.Unmarshal(params, call); err != nil {
		return nil, fmt.Errorf("skill %s: %w", name, err)
	}
	if err := checkRequired(name, params, required); err != nil {
		return nil, err
	}
	return deref(call), nil
}

func checkRequired(name string, params json.RawMessage, required []string) error {
	if len(required) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(params, &m); err != nil {
		return fmt.Errorf("skill %s: %w", name, err)
	}
	for _, key := range required {
		s, ok := m[key].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return fmt.Errorf("skill %s: missing %q", name, key)
		}
	}
	return nil
}

// deref returns variants by value so callers can type-switch on them.
func deref(c SkillCall) SkillCall {
	switch v := c.(type) {
	case *PersonLookup:
		return *v
	case *OrgLookup:
		return *v
	case *CalendarList:
		return *v
	case *CalendarCreate:
		return *v
	case *EmailSearch:
		return *v
	case *EmailDraft:
		return *v
	case *ReminderAdd:
		return *v
	case *SlackDM:
		return *v
	case *Weather:
		return *v
	case *WebSearch:
		return *v
	case *WebFetch:
		return *v
	case *Respond:
		return *v
	}
	return c
}
