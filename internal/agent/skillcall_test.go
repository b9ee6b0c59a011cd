package agent

import (
	"encoding/json"
	"testing"
)

func TestDecodeSkillNestedParams(t *testing.T) {
	call, err := DecodeSkill(json.RawMessage(`{"skill":"slack_dm","params":{"recipient":"bob","message":"hi"}}`))
	if err != nil {
		t.Fatalf("DecodeSkill: %v", err)
	}
	dm, ok := call.(SlackDM)
	if !ok || dm.Recipient != "bob" || dm.Message != "hi" {
		t.Errorf("got %#v", call)
	}
}

func TestDecodeSkillRequiredFields(t *testing.T) {
	bad := []string{
		`{"skill":"email_draft","to":"a@b.c"}`,
		`{"skill":"person_lookup","name":"  "}`,
		`{"skill":""}`,
		`["not","an","object"]`,
	}
	for _, in := range bad {
		if _, err := DecodeSkill(json.RawMessage(in)); err == nil {
			t.Errorf("%s: expected error", in)
		}
	}
}

func TestCheckRequiredRejectsNonObjectParams(t *testing.T) {
	if err := checkRequired("web_fetch", json.RawMessage(`["https://example.com"]`), []string{"url"}); err == nil {
		t.Error("array params should be rejected")
	}
	if err := checkRequired("web_fetch", json.RawMessage(`{"url":"https://example.com"}`), []string{"url"}); err != nil {
		t.Errorf("valid params: %v", err)
	}
}

func TestDecodeSkillOptionalFields(t *testing.T) {
	for _, in := range []string{`{"skill":"reminder_list"}`, `{"skill":"weather"}`, `{"skill":"Calendar_List"}`} {
		call, err := DecodeSkill(json.RawMessage(in))
		if err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if _, unknown := call.(UnknownSkill); unknown {
			t.Errorf("%s decoded as unknown", in)
		}
	}
}
