package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/nextlevelbuilder/jibot/internal/classify"
	"github.com/nextlevelbuilder/jibot/internal/permissions"
	"github.com/nextlevelbuilder/jibot/internal/skills"
	"github.com/nextlevelbuilder/jibot/internal/store"
)

// Command runs one admin command line, e.g. "inbox clear 2" or
// "link <@U123> T999 U777". Arguments follow shell quoting rules.
func (b *Bot) Command(ctx context.Context, msg Message, line string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bot: panic in command", "panic", r, "line", line)
			reply = Reply{Text: genericErrorMessage, Stage: "error"}
		}
	}()
	ctx, span := tracer.Start(ctx, "bot.command")
	defer span.End()

	args, err := splitArgs(line)
	if err != nil {
		return commandReply(fmt.Sprintf("I couldn't parse that: %v.", err))
	}
	settings, _ := b.snapshot()
	if len(args) == 0 {
		return commandReply(HelpText(settings.Trigger))
	}
	ctx = msg.context(ctx)
	name, rest := strings.ToLower(args[0]), args[1:]

	switch name {
	case "help":
		return commandReply(HelpText(settings.Trigger))
	case "docs":
		return commandReply(DocsText(b.commandName))
	case "whoami":
		return commandReply(b.whoami(msg))
	case "explain", "whatis":
		topic := strings.TrimSpace(strings.Join(rest, " "))
		if topic == "" {
			return commandReply(fmt.Sprintf("Usage: `%s %s <topic>`", b.commandName, name))
		}
		if b.explainer == nil {
			return commandReply(skills.FailureLine("look that up", "not configured"))
		}
		return commandReply(b.explainer.Explain(ctx, topic))
	case "remind":
		text := strings.TrimSpace(strings.Join(rest, " "))
		if text == "" {
			return commandReply(fmt.Sprintf("Usage: `%s remind <text>`", b.commandName))
		}
		out, err := b.reminders.Add(ctx, text, "")
		if err != nil {
			return commandReply(skills.FailureLine("add the reminder", skills.ShortReason(err)))
		}
		return commandReply(out)
	case "inbox":
		return commandReply(b.inbox(ctx, msg, rest))
	case "admins":
		return commandReply(b.admins())
	case "claim":
		return commandReply(b.claim(msg))
	case "promote", "demote":
		return commandReply(b.changeRole(msg, name, rest))
	case "link":
		return commandReply(b.link(msg, rest))
	}
	return commandReply(fmt.Sprintf("Unknown command `%s`. Try `%s docs`.", name, b.commandName))
}

// shellMeta are the characters shellwords treats as operators. Slack
// mentions (<@U1|bob>) and inline code use them, so they are escaped
// outside single quotes before parsing.
const shellMeta = "<>|&;()`$"

// splitArgs splits a command line with shell quoting rules.
func splitArgs(line string) ([]string, error) {
	var b strings.Builder
	var single, double, escaped bool
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && !single:
			escaped = true
		case r == '\'' && !double:
			single = !single
		case r == '"' && !single:
			double = !double
		case !single && strings.ContainsRune(shellMeta, r):
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return shellwords.Parse(b.String())
}

func commandReply(text string) Reply {
	return Reply{Text: text, Stage: "command"}
}

func (b *Bot) whoami(msg Message) string {
	if b.gate == nil {
		return fmt.Sprintf("You are %s in workspace %s.", userRef(msg), msg.Workspace)
	}
	id := msg.Identity()
	role := b.gate.ResolveRole(id)
	out := fmt.Sprintf("You are %s in workspace %s, role: %s.", userRef(msg), msg.Workspace, role)
	if c := b.gate.CanonicalID(id); c != msg.UserID {
		out += fmt.Sprintf(" Linked to %s.", c)
	}
	return out
}

func userRef(msg Message) string {
	if msg.Platform == PlatformSlack {
		return "<@" + msg.UserID + ">"
	}
	if msg.UserName != "" {
		return msg.UserName
	}
	return msg.UserID
}

func (b *Bot) requireAdmin(msg Message, command string) (string, bool) {
	if b.gate == nil {
		return skills.FailureLine("check permissions", "not configured"), false
	}
	if !b.gate.RequireAtLeast(msg.Identity(), permissions.RoleAdmin) {
		slog.Warn("security.command_denied", "command", command, "user", msg.UserID, "workspace", msg.Workspace)
		return fmt.Sprintf("Only admins can use `%s`.", command), false
	}
	return "", true
}

func (b *Bot) inbox(ctx context.Context, msg Message, args []string) string {
	if refusal, ok := b.requireAdmin(msg, "inbox"); !ok {
		return refusal
	}
	sub := "list"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	var (
		out string
		err error
	)
	switch sub {
	case "list":
		out, err = b.reminders.List(ctx)
	case "clear":
		if len(args) < 2 {
			return fmt.Sprintf("Usage: `%s inbox clear <n|all>`", b.commandName)
		}
		index := 0
		if !strings.EqualFold(args[1], "all") {
			index, err = strconv.Atoi(strings.TrimPrefix(args[1], "#"))
			if err != nil || index < 1 {
				return fmt.Sprintf("%q is not a reminder number.", args[1])
			}
		}
		out, err = b.reminders.Clear(ctx, index)
	default:
		return fmt.Sprintf("Usage: `%s inbox [list|clear <n>|clear all]`", b.commandName)
	}
	if err != nil {
		return skills.FailureLine("read the reminders", skills.ShortReason(err))
	}
	return out
}

func (b *Bot) admins() string {
	if b.gate == nil {
		return skills.FailureLine("list the admins", "not configured")
	}
	var sb strings.Builder
	if owner := b.gate.Owner(); owner != "" {
		fmt.Fprintf(&sb, "Owner: %s", owner)
	} else {
		sb.WriteString("No owner yet. The first `claim` takes it.")
	}
	admins := b.gate.Admins()
	if len(admins) == 0 {
		sb.WriteString("\nNo admins.")
		return sb.String()
	}
	sb.WriteString("\nAdmins:")
	for _, a := range admins {
		fmt.Fprintf(&sb, "\n• %s", a.ID)
		if len(a.LinkedIDs) > 0 {
			fmt.Fprintf(&sb, " (also %s)", strings.Join(a.LinkedIDs, ", "))
		}
	}
	return sb.String()
}

func (b *Bot) claim(msg Message) string {
	if b.gate == nil {
		return skills.FailureLine("claim ownership", "not configured")
	}
	err := b.gate.ClaimOwner(msg.Identity())
	switch {
	case errors.Is(err, store.ErrOwnerExists):
		return "An owner is already set."
	case err != nil:
		return skills.FailureLine("claim ownership", skills.ShortReason(err))
	}
	slog.Info("owner claimed", "user", msg.UserID, "workspace", msg.Workspace)
	return "You are now the owner."
}

// target parses a user argument into an identity in the caller's workspace.
func target(msg Message, arg string) (store.LinkedIdentity, string, bool) {
	m, ok := classify.ParseMention(arg)
	if !ok {
		return store.LinkedIdentity{}, "", false
	}
	label := m.Name
	if m.PlatformID {
		label = "<@" + m.ID + ">"
	}
	return store.LinkedIdentity{ID: m.ID, Workspace: msg.Workspace, DisplayName: m.Name}, label, true
}

func (b *Bot) changeRole(msg Message, command string, args []string) string {
	if refusal, ok := b.requireAdmin(msg, command); !ok {
		return refusal
	}
	if len(args) != 1 {
		return fmt.Sprintf("Usage: `%s %s <@user>`", b.commandName, command)
	}
	who, label, ok := target(msg, args[0])
	if !ok {
		return fmt.Sprintf("Usage: `%s %s <@user>`", b.commandName, command)
	}

	var changed bool
	var err error
	if command == "promote" {
		changed, err = b.gate.Promote(msg.Identity(), who)
	} else {
		changed, err = b.gate.Demote(msg.Identity(), who)
	}
	if err != nil {
		return refusalText(command, err)
	}

	switch {
	case command == "promote" && changed:
		slog.Info("admin promoted", "target", who.ID, "by", msg.UserID)
		return fmt.Sprintf("%s is now an admin.", label)
	case command == "promote":
		return fmt.Sprintf("%s is already an admin.", label)
	case changed:
		slog.Info("admin demoted", "target", who.ID, "by", msg.UserID)
		return fmt.Sprintf("%s is no longer an admin.", label)
	default:
		return fmt.Sprintf("%s is not an admin.", label)
	}
}

func (b *Bot) link(msg Message, args []string) string {
	if refusal, ok := b.requireAdmin(msg, "link"); !ok {
		return refusal
	}
	if len(args) != 3 {
		return fmt.Sprintf("Usage: `%s link <@user> <workspace> <id>`", b.commandName)
	}
	who, label, ok := target(msg, args[0])
	if !ok {
		return fmt.Sprintf("Usage: `%s link <@user> <workspace> <id>`", b.commandName)
	}
	if err := store.ValidateUserID(args[2]); err != nil {
		return fmt.Sprintf("%q is not a valid user id: %v.", args[2], err)
	}
	other := store.LinkedIdentity{ID: args[2], Workspace: args[1]}

	group, err := b.gate.Link(msg.Identity(), who, other)
	if err != nil {
		return refusalText("link", err)
	}
	slog.Info("identity linked", "canonical", group.Canonical().Key(), "other", other.Key(), "by", msg.UserID)
	return fmt.Sprintf("Linked %s to %s. The group now has %d linked %s.",
		other.Key(), label, len(group.Linked), plural(len(group.Linked), "identity", "identities"))
}

func refusalText(command string, err error) string {
	switch {
	case errors.Is(err, store.ErrPermission):
		return fmt.Sprintf("Not allowed: %s.", strings.TrimPrefix(err.Error(), store.ErrPermission.Error()+": "))
	case errors.Is(err, store.ErrLinkConflict):
		return "Those identities already belong to different link groups."
	}
	return skills.FailureLine(command, skills.ShortReason(err))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
