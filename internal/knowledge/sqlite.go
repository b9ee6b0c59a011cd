package knowledge

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	_ "modernc.org/sqlite"
)

// Store keeps entries in SQLite with an FTS5 index over topic, aliases
// and summary.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the knowledge base at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("knowledge base opened", "path", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT 'term',
			aliases TEXT NOT NULL DEFAULT '[]',
			summary TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			hash TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind)`,
		`CREATE TABLE IF NOT EXISTS aliases (
			alias TEXT PRIMARY KEY,
			key TEXT NOT NULL
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			topic,
			aliases,
			summary,
			key UNINDEXED,
			kind UNINDEXED,
			tokenize='porter unicode61'
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

// Upsert inserts or replaces an entry. Returns false when the stored entry
// already has identical content.
func (s *Store) Upsert(e Entry) (bool, error) {
	key := Key(e.Topic)
	if key == "" {
		return false, fmt.Errorf("topic is required")
	}
	if strings.TrimSpace(e.Summary) == "" {
		return false, fmt.Errorf("%s: summary is required", e.Topic)
	}
	if e.Kind == "" {
		e.Kind = KindTerm
	}

	aliasJSON, err := json.Marshal(e.Aliases)
	if err != nil {
		return false, fmt.Errorf("marshal aliases: %w", err)
	}
	hash := ContentHash(e.Topic + "\x00" + e.Kind + "\x00" + string(aliasJSON) + "\x00" + e.Summary + "\x00" + e.URL)

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	if err := s.db.QueryRow("SELECT hash FROM entries WHERE key = ?", key).Scan(&existing); err == nil && existing == hash {
		return false, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	tx.Exec("DELETE FROM entries_fts WHERE key = ?", key)
	tx.Exec("DELETE FROM aliases WHERE key = ?", key)

	_, err = tx.Exec(`INSERT OR REPLACE INTO entries (key, topic, kind, aliases, summary, url, source, hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))`,
		key, e.Topic, e.Kind, string(aliasJSON), e.Summary, e.URL, e.Source, hash)
	if err != nil {
		return false, fmt.Errorf("upsert entry: %w", err)
	}

	for _, a := range e.Aliases {
		if ak := Key(a); ak != "" && ak != key {
			if _, err := tx.Exec(`INSERT OR REPLACE INTO aliases (alias, key) VALUES (?, ?)`, ak, key); err != nil {
				return false, fmt.Errorf("insert alias: %w", err)
			}
		}
	}

	_, err = tx.Exec(`INSERT INTO entries_fts (topic, aliases, summary, key, kind) VALUES (?, ?, ?, ?, ?)`,
		e.Topic, strings.Join(e.Aliases, " "), e.Summary, key, e.Kind)
	if err != nil {
		return false, fmt.Errorf("insert fts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Lookup finds an entry by exact topic or alias (case-insensitive).
func (s *Store) Lookup(topic string) (Entry, bool) {
	key := Key(topic)
	if key == "" {
		return Entry{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var target string
	err := s.db.QueryRow(`SELECT key FROM entries WHERE key = ?
		UNION SELECT key FROM aliases WHERE alias = ? LIMIT 1`, key, key).Scan(&target)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("knowledge lookup failed", "topic", topic, "error", err)
		}
		return Entry{}, false
	}
	e, err := s.get(target)
	if err != nil {
		slog.Warn("knowledge lookup failed", "topic", topic, "error", err)
		return Entry{}, false
	}
	return e, true
}

func (s *Store) get(key string) (Entry, error) {
	var (
		e         Entry
		aliasJSON string
		updated   int64
	)
	err := s.db.QueryRow(`SELECT topic, kind, aliases, summary, url, source, updated_at FROM entries WHERE key = ?`, key).
		Scan(&e.Topic, &e.Kind, &aliasJSON, &e.Summary, &e.URL, &e.Source, &updated)
	if err != nil {
		return Entry{}, err
	}
	json.Unmarshal([]byte(aliasJSON), &e.Aliases)
	e.UpdatedAt = time.Unix(updated, 0).UTC()
	return e, nil
}

// Search runs a BM25-ranked full-text query. Results are sorted by
// relevance (highest first).
func (s *Store) Search(query string, opts SearchOptions) ([]SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	where := ""
	args := []interface{}{match}
	if opts.Kind != "" {
		where = " AND kind = ?"
		args = append(args, opts.Kind)
	}
	args = append(args, maxResults)

	// BM25 rank normalized to a [0,1] score with 1/(1+abs(rank)).
	q := fmt.Sprintf(`SELECT key, summary, 1.0 / (1.0 + abs(rank)) AS score
		FROM entries_fts
		WHERE entries_fts MATCH ?%s
		ORDER BY rank
		LIMIT ?`, where)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	type hit struct {
		key, summary string
		score        float64
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.key, &h.summary, &h.score); err != nil {
			continue
		}
		hits = append(hits, h)
	}
	rows.Close()

	var results []SearchResult
	for _, h := range hits {
		if h.score < opts.MinScore {
			continue
		}
		e, err := s.get(h.key)
		if err != nil {
			continue
		}
		results = append(results, SearchResult{Entry: e, Score: h.score, Snippet: truncateSnippet(h.summary, 300)})
	}
	return results, nil
}

// ftsQuery turns free text into an FTS5 query of quoted terms so user
// input can never be parsed as FTS syntax.
func ftsQuery(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var terms []string
	for _, w := range words {
		if len(w) < 2 || stopWords[w] {
			continue
		}
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

var stopWords = map[string]bool{
	"the": true, "is": true, "what": true, "an": true, "of": true, "and": true,
	"to": true, "in": true, "on": true, "for": true, "about": true, "me": true,
	"tell": true, "explain": true, "who": true, "are": true,
}

// Delete removes an entry and its aliases.
func (s *Store) Delete(topic string) error {
	key := Key(topic)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tx.Exec("DELETE FROM entries_fts WHERE key = ?", key)
	tx.Exec("DELETE FROM aliases WHERE key = ?", key)
	res, err := tx.Exec("DELETE FROM entries WHERE key = ?", key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("topic %q not found", topic)
	}
	return tx.Commit()
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	return count
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ContentHash returns a short SHA256 hex digest of text.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:16])
}

func truncateSnippet(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
