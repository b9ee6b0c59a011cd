// Package mcp exposes the bot's facts, knowledge base and reminders as
// Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/jibot/internal/bot"
	"github.com/nextlevelbuilder/jibot/internal/classify"
	"github.com/nextlevelbuilder/jibot/internal/skills"
	"github.com/nextlevelbuilder/jibot/internal/store"
)

// DefaultUser is the identity tool calls act as when none is given.
const DefaultUser = "mcp"

// Deps are the components the tools call into. Bot may be nil, which
// leaves out the ask tool.
type Deps struct {
	Facts     *skills.Facts
	Explainer *skills.Explainer
	Reminders *skills.Reminders
	Bot       *bot.Bot
	Workspace string
}

// Server holds the tool handlers.
type Server struct {
	deps Deps
}

// New builds an MCP server with every available tool registered.
func New(name, version string, deps Deps) (*server.MCPServer, *Server) {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Tools for a team chat bot: look people up, teach it facts, explain topics and manage the owner's reminder inbox."),
	)
	h := &Server{deps: deps}
	for _, t := range h.tools() {
		s.AddTool(t.def, t.handle)
	}
	return s, h
}

// ServeStdio runs the server until stdin closes.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

type tool struct {
	def    mcpgo.Tool
	handle server.ToolHandlerFunc
}

func (s *Server) tools() []tool {
	out := []tool{
		{
			def: mcpgo.NewTool("who_is",
				mcpgo.WithDescription("Everything the bot has been taught about a person, as one sentence."),
				mcpgo.WithString("subject", mcpgo.Required(), mcpgo.Description("Name, @handle or <@USERID> reference")),
			),
			handle: s.whoIs,
		},
		{
			def: mcpgo.NewTool("learn",
				mcpgo.WithDescription("Teach the bot a fact about a person (\"<subject> is <fact>\")."),
				mcpgo.WithString("subject", mcpgo.Required(), mcpgo.Description("Name, @handle or <@USERID> reference")),
				mcpgo.WithString("fact", mcpgo.Required(), mcpgo.Description("The fact, without the leading \"is\"")),
			),
			handle: s.learn,
		},
		{
			def: mcpgo.NewTool("explain",
				mcpgo.WithDescription("Explain a term, organization or document from the knowledge base."),
				mcpgo.WithString("topic", mcpgo.Required(), mcpgo.Description("Topic name or alias")),
			),
			handle: s.explain,
		},
		{
			def: mcpgo.NewTool("reminders_list",
				mcpgo.WithDescription("List the owner's pending reminders."),
			),
			handle: s.remindersList,
		},
		{
			def: mcpgo.NewTool("remind",
				mcpgo.WithDescription("Add a reminder to the owner's inbox."),
				mcpgo.WithString("text", mcpgo.Required(), mcpgo.Description("What to remember")),
			),
			handle: s.remind,
		},
	}
	if s.deps.Bot != nil {
		out = append(out, tool{
			def: mcpgo.NewTool("ask",
				mcpgo.WithDescription("Send a message to the bot as a direct message and return its reply."),
				mcpgo.WithString("message", mcpgo.Required(), mcpgo.Description("The message text")),
				mcpgo.WithString("user", mcpgo.Description("Sender id (default: mcp)")),
			),
			handle: s.ask,
		})
	}
	return out
}

// withIdentity attaches the acting identity the way chat adapters do.
func (s *Server) withIdentity(ctx context.Context) context.Context {
	ctx = store.WithUserID(ctx, DefaultUser)
	return store.WithWorkspace(ctx, s.deps.Workspace)
}

func subject(req mcpgo.CallToolRequest) (classify.Mention, *mcpgo.CallToolResult) {
	m, ok := classify.ParseMention(req.GetString("subject", ""))
	if !ok {
		return m, mcpgo.NewToolResultError("'subject' is required")
	}
	return m, nil
}

func (s *Server) whoIs(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	m, bad := subject(req)
	if bad != nil {
		return bad, nil
	}
	return mcpgo.NewToolResultText(s.deps.Facts.Recall(s.withIdentity(ctx), m)), nil
}

func (s *Server) learn(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	m, bad := subject(req)
	if bad != nil {
		return bad, nil
	}
	fact := strings.TrimSpace(req.GetString("fact", ""))
	if fact == "" {
		return mcpgo.NewToolResultError("'fact' is required"), nil
	}
	return mcpgo.NewToolResultText(s.deps.Facts.Learn(s.withIdentity(ctx), m, fact)), nil
}

func (s *Server) explain(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	topic := strings.TrimSpace(req.GetString("topic", ""))
	if topic == "" {
		return mcpgo.NewToolResultError("'topic' is required"), nil
	}
	return mcpgo.NewToolResultText(s.deps.Explainer.Explain(ctx, topic)), nil
}

func (s *Server) remindersList(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	text, err := s.deps.Reminders.List(ctx)
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("list reminders: %v", err)), nil
	}
	return mcpgo.NewToolResultText(text), nil
}

func (s *Server) remind(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	text := strings.TrimSpace(req.GetString("text", ""))
	if text == "" {
		return mcpgo.NewToolResultError("'text' is required"), nil
	}
	out, err := s.deps.Reminders.Add(s.withIdentity(ctx), text, "")
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("add reminder: %v", err)), nil
	}
	return mcpgo.NewToolResultText(out), nil
}

func (s *Server) ask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	text := strings.TrimSpace(req.GetString("message", ""))
	if text == "" {
		return mcpgo.NewToolResultError("'message' is required"), nil
	}
	user := req.GetString("user", DefaultUser)
	reply := s.deps.Bot.Handle(ctx, bot.Message{
		Text:      text,
		UserID:    user,
		Workspace: s.deps.Workspace,
		Channel:   "mcp",
		IsDM:      true,
		Platform:  bot.PlatformCLI,
	})
	if reply.Silent || reply.Text == "" {
		return mcpgo.NewToolResultText("(no reply)"), nil
	}
	return mcpgo.NewToolResultText(reply.Text), nil
}
