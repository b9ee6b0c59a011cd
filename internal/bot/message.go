// Package bot is the single entry point every platform adapter calls:
// it runs the classification pipeline for a message and always produces
// a reply.
package bot

import (
	"context"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

// Platform names carried on messages.
const (
	PlatformSlack   = "slack"
	PlatformDiscord = "discord"
	PlatformMUD     = "mud"
	PlatformCLI     = "cli"
)

// Message is one inbound chat message, already translated by an adapter.
type Message struct {
	Text      string
	UserID    string
	UserName  string
	Workspace string
	Channel   string
	IsDM      bool
	Platform  string
}

// Identity returns the sender as a linked identity for permission checks.
func (m Message) Identity() store.LinkedIdentity {
	return store.LinkedIdentity{ID: m.UserID, Workspace: m.Workspace, DisplayName: m.UserName}
}

// context attaches the sender's identity to ctx for stores and skills.
func (m Message) context(ctx context.Context) context.Context {
	ctx = store.WithUserID(ctx, m.UserID)
	ctx = store.WithWorkspace(ctx, m.Workspace)
	if m.UserName != "" {
		ctx = store.WithUserName(ctx, m.UserName)
	}
	if m.Channel != "" {
		ctx = store.WithChannel(ctx, m.Channel)
	}
	return ctx
}

// Reply is the outcome of handling a message. Silent replies send nothing.
type Reply struct {
	Text   string
	Silent bool
	// Stage names the pipeline stage that produced the reply (pattern, rule, llm, command, help).
	Stage string
}

func silent() Reply { return Reply{Silent: true, Stage: "ignored"} }
