// Package slack connects the bot to a Slack workspace over Socket Mode.
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/nextlevelbuilder/jibot/internal/bot"
	"github.com/nextlevelbuilder/jibot/internal/channels"
	"github.com/nextlevelbuilder/jibot/internal/classify"
	"github.com/nextlevelbuilder/jibot/internal/config"
)

// maxMessageRunes keeps replies well under Slack's per-message limit.
const maxMessageRunes = 3500

// api is the part of *slack.Client the adapter uses.
type api interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
	OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error)
}

// Channel is the Slack adapter. It also serves as the bot's messenger for
// slack_dm and as the relay target for the MUD bridge.
type Channel struct {
	cfg    config.SlackConfig
	bot    *bot.Bot
	client *slack.Client
	api    api

	dedupe *channels.Dedupe
	names  *expirable.LRU[string, string]

	mu        sync.RWMutex
	botUserID string
	teamID    string
}

// New creates the adapter. It does not connect until Run.
func New(cfg config.SlackConfig, b *bot.Bot) (*Channel, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack bot token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack app token is required for socket mode")
	}
	client := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	return newChannel(cfg, b, client), nil
}

func newChannel(cfg config.SlackConfig, b *bot.Bot, a api) *Channel {
	c := &Channel{
		cfg:    cfg,
		bot:    b,
		api:    a,
		dedupe: channels.NewDedupe(10*time.Minute, 5000),
		names:  expirable.NewLRU[string, string](2000, nil, time.Hour),
	}
	if client, ok := a.(*slack.Client); ok {
		c.client = client
	}
	return c
}

func (c *Channel) Name() string { return bot.PlatformSlack }

// BotUserID returns the bot's own user id once connected.
func (c *Channel) BotUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.botUserID
}

// Connect identifies the bot user and workspace. Run calls it; tests and
// one-shot commands can call it alone.
func (c *Channel) Connect(ctx context.Context) error {
	auth, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	c.mu.Lock()
	c.botUserID, c.teamID = auth.UserID, auth.TeamID
	c.mu.Unlock()

	s := c.bot.Settings()
	if s.BotUserID != auth.UserID {
		s.BotUserID = auth.UserID
		c.bot.Apply(s)
	}
	slog.Info("slack connected", "team", auth.Team, "bot_user", auth.UserID)
	return nil
}

// Run connects over Socket Mode and handles events until ctx is cancelled.
func (c *Channel) Run(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("slack client not initialized")
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	socket := socketmode.New(c.client)

	errCh := make(chan error, 1)
	go func() { errCh <- socket.RunContext(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("slack socket mode: %w", err)
		case evt, ok := <-socket.Events:
			if !ok {
				return nil
			}
			c.handleSocketEvent(ctx, socket, evt)
		}
	}
}

func (c *Channel) handleSocketEvent(ctx context.Context, socket *socketmode.Client, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		ev, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		socket.Ack(*evt.Request)
		go c.HandleEvent(ctx, ev)

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		reply := c.HandleSlashCommand(ctx, cmd)
		socket.Ack(*evt.Request, map[string]any{"text": reply.Text})

	case socketmode.EventTypeConnecting:
		slog.Debug("slack connecting")
	case socketmode.EventTypeConnected:
		slog.Info("slack socket connected")
	case socketmode.EventTypeConnectionError:
		slog.Warn("slack connection error")
	}
}

// HandleEvent processes one Events API callback.
func (c *Channel) HandleEvent(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	team := c.workspace(event.TeamID)

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if ev.BotID != "" || ev.SubType != "" || ev.User == "" || ev.User == c.BotUserID() {
			return
		}
		c.handleMessage(ctx, team, ev.User, ev.Channel, ev.Text, ev.TimeStamp, ev.ThreadTimeStamp, ev.ChannelType == "im")

	case *slackevents.AppMentionEvent:
		if ev.BotID != "" || ev.User == "" {
			return
		}
		c.handleMessage(ctx, team, ev.User, ev.Channel, ev.Text, ev.TimeStamp, ev.ThreadTimeStamp, false)

	case *slackevents.MemberJoinedChannelEvent:
		if ev.User == c.BotUserID() {
			return
		}
		// no UserName: the herald names the member with a mention
		reply := c.bot.Herald(ctx, bot.Message{
			UserID:    ev.User,
			Workspace: firstNonEmpty(ev.Team, team),
			Channel:   ev.Channel,
			Platform:  bot.PlatformSlack,
		})
		if !reply.Silent {
			c.post(ctx, ev.Channel, "", "Welcome <@"+ev.User+">! "+reply.Text)
		}
	}
}

func (c *Channel) handleMessage(ctx context.Context, team, user, channel, text, ts, threadTS string, isDM bool) {
	if c.dedupe.IsDuplicate(channel + ":" + ts) {
		return
	}
	reply := c.bot.Handle(ctx, bot.Message{
		Text:      text,
		UserID:    user,
		UserName:  c.displayName(ctx, user),
		Workspace: team,
		Channel:   channel,
		IsDM:      isDM,
		Platform:  bot.PlatformSlack,
	})
	if reply.Silent || reply.Text == "" {
		return
	}
	c.post(ctx, channel, threadTS, reply.Text)
}

// HandleSlashCommand runs the admin surface for one slash command.
func (c *Channel) HandleSlashCommand(ctx context.Context, cmd slack.SlashCommand) bot.Reply {
	return c.bot.Command(ctx, bot.Message{
		UserID:    cmd.UserID,
		UserName:  cmd.UserName,
		Workspace: cmd.TeamID,
		Channel:   cmd.ChannelID,
		IsDM:      strings.HasPrefix(cmd.ChannelID, "D"),
		Platform:  bot.PlatformSlack,
	}, cmd.Text)
}

func (c *Channel) post(ctx context.Context, channel, threadTS, text string) {
	for _, chunk := range channels.SplitMessage(text, maxMessageRunes) {
		opts := []slack.MsgOption{slack.MsgOptionText(chunk, false)}
		if threadTS != "" {
			opts = append(opts, slack.MsgOptionTS(threadTS))
		}
		if _, _, err := c.api.PostMessageContext(ctx, channel, opts...); err != nil {
			slog.Error("slack post failed", "channel", channel, "error", err)
			return
		}
	}
}

// Post sends text to a channel. The MUD bridge relays through it.
func (c *Channel) Post(ctx context.Context, channel, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post to %s: %w", channel, err)
	}
	return nil
}

// displayName returns the user's display name, cached for an hour.
func (c *Channel) displayName(ctx context.Context, userID string) string {
	if name, ok := c.names.Get(userID); ok {
		return name
	}
	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		slog.Debug("slack user lookup failed", "user", userID, "error", err)
		return ""
	}
	name := firstNonEmpty(u.Profile.DisplayName, u.RealName, u.Name)
	c.names.Add(userID, name)
	return name
}

// ResolveUser turns "<@U123>", "@handle" or a display name into a user id.
func (c *Channel) ResolveUser(ctx context.Context, ref string) (string, string, error) {
	m, ok := classify.ParseMention(ref)
	if !ok {
		return "", "", fmt.Errorf("empty recipient")
	}
	if m.PlatformID {
		return m.ID, firstNonEmpty(m.Name, c.displayName(ctx, m.ID), "<@"+m.ID+">"), nil
	}

	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("list slack users: %w", err)
	}
	want := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ref), "@"))
	for _, u := range users {
		if u.Deleted || u.IsBot {
			continue
		}
		for _, n := range []string{u.Name, u.Profile.DisplayName, u.RealName} {
			if n != "" && strings.ToLower(n) == want {
				return u.ID, firstNonEmpty(u.Profile.DisplayName, u.RealName, u.Name), nil
			}
		}
	}
	return "", "", fmt.Errorf("slack user %q: not found", ref)
}

// SendDM opens (or reuses) the direct conversation and posts text.
func (c *Channel) SendDM(ctx context.Context, userID, text string) error {
	ch, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{userID}})
	if err != nil {
		return fmt.Errorf("open dm with %s: %w", userID, err)
	}
	return c.Post(ctx, ch.ID, text)
}

// workspace falls back to the team the bot authenticated against.
func (c *Channel) workspace(team string) string {
	if team != "" {
		return team
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.teamID
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
