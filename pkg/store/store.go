// Package store persists tasks and meetings.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by single-record lookups when no row matches.
var ErrNotFound = errors.New("record not found")

const (
	TaskTypeMeeting = "meeting"

	MeetingScheduled = "scheduled"
	MeetingCompleted = "completed"
)

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Completed   bool      `json:"completed"`
	Type        string    `json:"type,omitempty"`
	MeetingLink string    `json:"meeting_link,omitempty"`
	StartTime   string    `json:"start_time,omitempty"`
	Date        string    `json:"date,omitempty"`
	Time        string    `json:"time,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t Task) IsMeeting() bool { return t.Type == TaskTypeMeeting }

type Meeting struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Timezone     string   `json:"timezone"`
	Participants []string `json:"participants"`
	HostEmail    string   `json:"host_email"`
	Status       string   `json:"status"`
	Platform     string   `json:"platform,omitempty"`
	// Provider identifiers.
	ProviderID string `json:"meeting_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Password   string `json:"password,omitempty"`
	// StartsAt is the UTC start used by housekeeping. Zero when unknown.
	StartsAt  time.Time `json:"starts_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskStore is the task collection. Update and delete return the number of
// rows touched so callers can report unknown ids without treating them as
// failures.
type TaskStore interface {
	CreateTask(ctx context.Context, t Task) (string, error)
	ListTasks(ctx context.Context) ([]Task, error)
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTaskTitle(ctx context.Context, id, title string) (int64, error)
	SetTaskCompleted(ctx context.Context, id string, completed bool) (int64, error)
	DeleteTask(ctx context.Context, id string) (int64, error)
}

type MeetingStore interface {
	CreateMeeting(ctx context.Context, m Meeting) (string, error)
	ListMeetings(ctx context.Context) ([]Meeting, error)
	UpdateMeetingStatus(ctx context.Context, id, status string) (int64, error)
	DeleteMeeting(ctx context.Context, id string) (int64, error)
	// CompletePastMeetings marks scheduled meetings that started before now
	// as completed.
	CompletePastMeetings(ctx context.Context, now time.Time) (int64, error)
}

type Store interface {
	TaskStore
	MeetingStore
	Close() error
}
