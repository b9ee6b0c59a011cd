// Package redis implements the external reminder backend on a Redis list.
//
// When this backend is selected it is the ground truth: nothing is cached
// locally and every read goes back to Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

// DefaultKey is the list key used when none is configured.
const DefaultKey = "jibot:reminders"

// Config holds configuration for the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// ReminderList stores reminders as JSON values in one Redis list.
type ReminderList struct {
	rdb *redis.Client
	key string
}

// NewReminderList connects to Redis and validates the connection.
func NewReminderList(cfg Config) (*ReminderList, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	return &ReminderList{rdb: rdb, key: key}, nil
}

func (l *ReminderList) Name() string { return "redis" }

// Close releases the Redis connection.
func (l *ReminderList) Close() error {
	return l.rdb.Close()
}

// List reads the whole list from Redis.
func (l *ReminderList) List(ctx context.Context) ([]store.Reminder, error) {
	raw, err := l.rdb.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}
	out := make([]store.Reminder, 0, len(raw))
	for _, v := range raw {
		var r store.Reminder
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			slog.Warn("redis reminders: skipping malformed entry", "error", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Add appends a reminder with RPUSH.
func (l *ReminderList) Add(ctx context.Context, r store.Reminder) (store.Reminder, error) {
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return store.Reminder{}, fmt.Errorf("reminder text is required")
	}
	if r.ID == "" {
		r.ID = store.GenNewID().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return store.Reminder{}, fmt.Errorf("marshal reminder: %w", err)
	}
	if err := l.rdb.RPush(ctx, l.key, data).Err(); err != nil {
		return store.Reminder{}, fmt.Errorf("rpush failed: %w", err)
	}
	return r, nil
}

// Remove deletes the reminder at 1-based index. Entries carry unique ids,
// so LREM with count 1 removes exactly the element read by LINDEX.
func (l *ReminderList) Remove(ctx context.Context, index int) (store.Reminder, error) {
	n, err := l.rdb.LLen(ctx, l.key).Result()
	if err != nil {
		return store.Reminder{}, fmt.Errorf("llen failed: %w", err)
	}
	if index < 1 || int64(index) > n {
		return store.Reminder{}, fmt.Errorf("%w: only have %d", store.ErrOutOfRange, n)
	}
	raw, err := l.rdb.LIndex(ctx, l.key, int64(index-1)).Result()
	if err != nil {
		return store.Reminder{}, fmt.Errorf("lindex failed: %w", err)
	}
	if err := l.rdb.LRem(ctx, l.key, 1, raw).Err(); err != nil {
		return store.Reminder{}, fmt.Errorf("lrem failed: %w", err)
	}
	var r store.Reminder
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return store.Reminder{}, fmt.Errorf("decode reminder: %w", err)
	}
	return r, nil
}

// Clear deletes the list and returns how many reminders it held.
func (l *ReminderList) Clear(ctx context.Context) (int, error) {
	n, err := l.rdb.LLen(ctx, l.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	if err := l.rdb.Del(ctx, l.key).Err(); err != nil {
		return 0, fmt.Errorf("del failed: %w", err)
	}
	return int(n), nil
}
