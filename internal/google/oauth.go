// Package google holds the OAuth token handling shared by the calendar
// and mail backends.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
)

// Scopes requested by `jibot google auth`. Mail is read and draft only; the bot never sends mail.
var Scopes = []string{
	calendar.CalendarEventsScope,
	gmail.GmailReadonlyScope,
	gmail.GmailComposeScope,
}

// Config loads the OAuth client from a Google "installed app" credentials file.
func Config(credentialsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	cfg, err := googleoauth.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	return cfg, nil
}

// TokenStore persists the OAuth token as JSON (google-token.json).
type TokenStore struct {
	path string
	mu   sync.Mutex
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

func (s *TokenStore) Path() string { return s.path }

// Load reads the saved token.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("no google token (run `jibot google auth`): %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode google token: %w", err)
	}
	return &tok, nil
}

// Save writes the token with owner-only permissions.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// TokenSource returns a refreshing token source that writes rotated tokens back to disk.
func TokenSource(ctx context.Context, cfg *oauth2.Config, store *TokenStore) (oauth2.TokenSource, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &savingSource{
		base:  cfg.TokenSource(ctx, tok),
		store: store,
		last:  tok.AccessToken,
	}, nil
}

type savingSource struct {
	base  oauth2.TokenSource
	store *TokenStore
	mu    sync.Mutex
	last  string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(tok); err != nil {
			slog.Warn("google: failed to persist refreshed token", "error", err)
		}
	}
	return tok, nil
}
