// Package discord connects the bot to Discord. Messages go through the
// same pipeline as Slack, and links posted in archive channels are saved
// to the link archive.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/jibot/internal/bot"
	"github.com/nextlevelbuilder/jibot/internal/channels"
	"github.com/nextlevelbuilder/jibot/internal/config"
	"github.com/nextlevelbuilder/jibot/internal/store/pg"
)

// Discord rejects messages over 2000 characters.
const maxMessageRunes = 1900

var (
	urlRe = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)
	// Discord sends nickname mentions as <@!id>.
	nickMentionRe = regexp.MustCompile(`<@!(\d+)>`)
)

// Archive stores links. *pg.LinkArchive implements it.
type Archive interface {
	Save(ctx context.Context, l pg.Link) (bool, error)
}

// TitleFetcher looks up a page title. *skills.WebFetch implements it.
type TitleFetcher interface {
	Title(ctx context.Context, rawURL string) string
}

type sender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Channel is the Discord adapter.
type Channel struct {
	cfg     config.DiscordConfig
	bot     *bot.Bot
	archive Archive
	titles  TitleFetcher

	session  *discordgo.Session
	send     sender
	dedupe   *channels.Dedupe
	archived map[string]bool
}

// New creates the adapter. archive and titles may be nil.
func New(cfg config.DiscordConfig, b *bot.Bot, archive Archive, titles TitleFetcher) (*Channel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	c := newChannel(cfg, b, archive, titles, session)
	c.session = session
	return c, nil
}

func newChannel(cfg config.DiscordConfig, b *bot.Bot, archive Archive, titles TitleFetcher, send sender) *Channel {
	archived := make(map[string]bool, len(cfg.ArchiveChannels))
	for _, id := range cfg.ArchiveChannels {
		archived[id] = true
	}
	return &Channel{
		cfg:      cfg,
		bot:      b,
		archive:  archive,
		titles:   titles,
		send:     send,
		dedupe:   channels.NewDedupe(10*time.Minute, 5000),
		archived: archived,
	}
}

func (c *Channel) Name() string { return bot.PlatformDiscord }

// Run opens the gateway connection and handles messages until ctx is cancelled.
func (c *Channel) Run(ctx context.Context) error {
	if c.session == nil {
		return fmt.Errorf("discord session not initialized")
	}
	remove := c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		c.HandleMessage(ctx, m.Message)
	})
	defer remove()

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	slog.Info("discord connected", "archive_channels", len(c.archived))

	<-ctx.Done()
	return c.session.Close()
}

// HandleMessage archives links and answers the message through the bot.
func (c *Channel) HandleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if c.dedupe.IsDuplicate(m.ChannelID + ":" + m.ID) {
		return
	}

	if c.archive != nil && (len(c.archived) == 0 || c.archived[m.ChannelID]) {
		c.archiveLinks(ctx, m)
	}

	workspace := m.GuildID
	if workspace == "" {
		workspace = "dm"
	}
	reply := c.bot.Handle(ctx, bot.Message{
		Text:      nickMentionRe.ReplaceAllString(m.Content, "<@$1>"),
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Workspace: workspace,
		Channel:   m.ChannelID,
		IsDM:      m.GuildID == "",
		Platform:  bot.PlatformDiscord,
	})
	if reply.Silent || reply.Text == "" {
		return
	}
	for _, chunk := range channels.SplitMessage(reply.Text, maxMessageRunes) {
		if _, err := c.send.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			slog.Error("discord send failed", "channel", m.ChannelID, "error", err)
			return
		}
	}
}

func (c *Channel) archiveLinks(ctx context.Context, m *discordgo.Message) {
	urls := ExtractURLs(m.Content)
	if len(urls) == 0 {
		return
	}
	posted := m.Timestamp
	if posted.IsZero() {
		posted = time.Now()
	}

	saved := 0
	for _, u := range urls {
		link := pg.Link{
			URL:        u,
			AuthorID:   m.Author.ID,
			AuthorName: m.Author.Username,
			GuildID:    m.GuildID,
			ChannelID:  m.ChannelID,
			MessageID:  m.ID,
			PostedAt:   posted,
		}
		if c.titles != nil {
			link.Title = c.titles.Title(ctx, u)
		}
		inserted, err := c.archive.Save(ctx, link)
		if err != nil {
			slog.Error("archive link failed", "url", u, "error", err)
			continue
		}
		if inserted {
			saved++
		}
	}
	slog.Debug("discord links archived", "channel", m.ChannelID, "found", len(urls), "saved", saved)
}

// ExtractURLs returns the distinct http(s) URLs in text, in order, with
// trailing punctuation removed.
func ExtractURLs(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?)]}")
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
