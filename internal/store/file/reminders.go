package file

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

type reminderDocument struct {
	Reminders []store.Reminder `json:"reminders"`
}

// ReminderQueue is the local JSON reminder backend (reminders.json).
type ReminderQueue struct {
	path string
	mu   sync.Mutex
}

// NewReminderQueue creates a reminder queue stored under dataDir.
func NewReminderQueue(dataDir string) *ReminderQueue {
	return &ReminderQueue{path: filepath.Join(dataDir, "reminders.json")}
}

func (q *ReminderQueue) Name() string { return "file" }

func (q *ReminderQueue) load() *reminderDocument {
	doc := &reminderDocument{}
	loadDocument("reminders", q.path, doc)
	return doc
}

// List returns the queue in insertion order.
func (q *ReminderQueue) List(_ context.Context) ([]store.Reminder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load().Reminders, nil
}

// Add appends a reminder, assigning id and timestamp when missing.
func (q *ReminderQueue) Add(_ context.Context, r store.Reminder) (store.Reminder, error) {
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

	q.mu.Lock()
	defer q.mu.Unlock()

	doc := q.load()
	doc.Reminders = append(doc.Reminders, r)
	if err := saveDocument("reminders", q.path, doc); err != nil {
		return store.Reminder{}, err
	}

	slog.Info("reminder queued", "id", r.ID, "requester", r.RequesterID, "pending", len(doc.Reminders))
	return r, nil
}

// Remove deletes the reminder at 1-based index.
func (q *ReminderQueue) Remove(_ context.Context, index int) (store.Reminder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	doc := q.load()
	if index < 1 || index > len(doc.Reminders) {
		return store.Reminder{}, fmt.Errorf("%w: only have %d", store.ErrOutOfRange, len(doc.Reminders))
	}
	removed := doc.Reminders[index-1]
	doc.Reminders = append(doc.Reminders[:index-1], doc.Reminders[index:]...)
	if err := saveDocument("reminders", q.path, doc); err != nil {
		return store.Reminder{}, err
	}

	slog.Info("reminder cleared", "id", removed.ID, "index", index)
	return removed, nil
}

// Clear empties the queue and returns how many reminders were removed.
func (q *ReminderQueue) Clear(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	doc := q.load()
	n := len(doc.Reminders)
	if n == 0 {
		return 0, nil
	}
	doc.Reminders = nil
	if err := saveDocument("reminders", q.path, doc); err != nil {
		return 0, err
	}
	slog.Info("reminders cleared", "count", n)
	return n, nil
}
