package mcp

import (
	"context"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/jibot/internal/skills"
	"github.com/nextlevelbuilder/jibot/internal/store"
	"github.com/nextlevelbuilder/jibot/internal/store/file"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	stores, err := file.NewFileStores(store.StoreConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	_, s := New("jibot", "test", Deps{
		Facts:     skills.NewFacts(stores.Facts, stores.Links),
		Explainer: skills.NewExplainer(nil),
		Reminders: skills.NewReminders(stores.Reminders),
		Workspace: "T1",
	})
	return s
}

func call(args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText concatenates the text content of a tool result.
func resultText(t *testing.T, r *mcpgo.CallToolResult) string {
	t.Helper()
	if r == nil {
		t.Fatal("nil result")
	}
	var parts []string
	for _, c := range r.Content {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestLearnThenWhoIs(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	r, err := s.learn(ctx, call(map[string]any{"subject": "Joi", "fact": "a researcher"}))
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, r); got != "OK, Joi is a researcher." {
		t.Errorf("learn = %q", got)
	}

	r, _ = s.whoIs(ctx, call(map[string]any{"subject": "@joi"}))
	if got := resultText(t, r); got != "Joi is a researcher." {
		t.Errorf("who_is = %q", got)
	}

	r, _ = s.whoIs(ctx, call(map[string]any{"subject": "nobody"}))
	if got := resultText(t, r); !strings.Contains(got, "don't know anything") {
		t.Errorf("unknown who_is = %q", got)
	}
}

func TestMissingArguments(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	for name, h := range map[string]func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error){
		"who_is":  s.whoIs,
		"learn":   s.learn,
		"explain": s.explain,
		"remind":  s.remind,
	} {
		r, err := h(ctx, call(map[string]any{}))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !r.IsError {
			t.Errorf("%s: expected tool error, got %q", name, resultText(t, r))
		}
	}
}

func TestRemindAndList(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	r, _ := s.remindersList(ctx, call(nil))
	if got := resultText(t, r); got != "The inbox is empty." {
		t.Errorf("empty list = %q", got)
	}

	r, _ = s.remind(ctx, call(map[string]any{"text": "call the printer"}))
	if got := resultText(t, r); got != "Reminder added: call the printer" {
		t.Errorf("remind = %q", got)
	}

	r, _ = s.remindersList(ctx, call(nil))
	got := resultText(t, r)
	if !strings.Contains(got, "1. call the printer (from <@mcp>)") {
		t.Errorf("list = %q", got)
	}
}

func TestExplainWithoutKnowledgeBase(t *testing.T) {
	s := newTestServer(t)
	r, _ := s.explain(context.Background(), call(map[string]any{"topic": "MIT"}))
	if got := resultText(t, r); !strings.Contains(got, "not configured") {
		t.Errorf("explain = %q", got)
	}
}

func TestAskToolOnlyWithBot(t *testing.T) {
	s := newTestServer(t)
	for _, tl := range s.tools() {
		if tl.def.Name == "ask" {
			t.Fatal("ask registered without a bot")
		}
	}
	if n := len(s.tools()); n != 5 {
		t.Errorf("tools = %d, want 5", n)
	}
}
