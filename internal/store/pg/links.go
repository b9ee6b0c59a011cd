package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

// Link is one URL posted in a watched channel.
type Link struct {
	ID         uuid.UUID `db:"id" json:"id"`
	URL        string    `db:"url" json:"url"`
	Title      string    `db:"title" json:"title,omitempty"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name,omitempty"`
	GuildID    string    `db:"guild_id" json:"guild_id,omitempty"`
	ChannelID  string    `db:"channel_id" json:"channel_id"`
	MessageID  string    `db:"message_id" json:"message_id"`
	PostedAt   time.Time `db:"posted_at" json:"posted_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// LinkArchive stores scraped links in Postgres.
type LinkArchive struct {
	db *sqlx.DB
}

func NewLinkArchive(db *sqlx.DB) *LinkArchive {
	return &LinkArchive{db: db}
}

// Save inserts a link. Re-posting the same URL in the same message is a no-op.
// Returns true when a row was inserted.
func (a *LinkArchive) Save(ctx context.Context, l Link) (bool, error) {
	if l.URL == "" {
		return false, fmt.Errorf("url is required")
	}
	if err := store.ValidateUserID(l.AuthorID); err != nil {
		return false, err
	}
	if l.ID == uuid.Nil {
		l.ID = store.GenNewID()
	}
	if l.PostedAt.IsZero() {
		l.PostedAt = time.Now().UTC()
	}

	res, err := a.db.NamedExecContext(ctx, `
		INSERT INTO links (id, url, title, author_id, author_name, guild_id, channel_id, message_id, posted_at)
		VALUES (:id, :url, :title, :author_id, :author_name, :guild_id, :channel_id, :message_id, :posted_at)
		ON CONFLICT (message_id, url) DO NOTHING`, l)
	if err != nil {
		return false, fmt.Errorf("insert link: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Recent returns the newest links, optionally limited to one channel.
func (a *LinkArchive) Recent(ctx context.Context, channelID string, limit int) ([]Link, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var links []Link
	var err error
	if channelID != "" {
		err = a.db.SelectContext(ctx, &links,
			`SELECT * FROM links WHERE channel_id = $1 ORDER BY posted_at DESC LIMIT $2`, channelID, limit)
	} else {
		err = a.db.SelectContext(ctx, &links,
			`SELECT * FROM links ORDER BY posted_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("select links: %w", err)
	}
	return links, nil
}

// Search matches the query against url and title.
func (a *LinkArchive) Search(ctx context.Context, query string, limit int) ([]Link, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var links []Link
	pattern := "%" + query + "%"
	err := a.db.SelectContext(ctx, &links,
		`SELECT * FROM links WHERE url ILIKE $1 OR title ILIKE $1 ORDER BY posted_at DESC LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search links: %w", err)
	}
	return links, nil
}
