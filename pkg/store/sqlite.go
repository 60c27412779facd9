package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	type TEXT NOT NULL DEFAULT '',
	meeting_link TEXT NOT NULL DEFAULT '',
	start_time TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL DEFAULT '',
	time TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS meetings (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	date TEXT NOT NULL DEFAULT '',
	time TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT '',
	participants TEXT NOT NULL DEFAULT '[]',
	host_email TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'scheduled',
	platform TEXT NOT NULL DEFAULT '',
	provider_id TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	password TEXT NOT NULL DEFAULT '',
	starts_at DATETIME,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_meetings_status ON meetings(status, starts_at);
`

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and creates if needed) the database at path. The special
// path ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateTask(ctx context.Context, t Task) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	t.CreatedAt = t.CreatedAt.Truncate(time.Second)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, completed, type, meeting_link, start_time, date, time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Completed, t.Type, t.MeetingLink, t.StartTime, t.Date, t.Time, t.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return t.ID, nil
}

const taskColumns = `id, title, completed, type, meeting_link, start_time, date, time, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (Task, error) {
	var t Task
	err := r.Scan(&t.ID, &t.Title, &t.Completed, &t.Type, &t.MeetingLink, &t.StartTime, &t.Date, &t.Time, &t.CreatedAt)
	return t, err
}

func (s *SQLiteStore) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) UpdateTaskTitle(ctx context.Context, id, title string) (int64, error) {
	return s.exec(ctx, "update task", `UPDATE tasks SET title = ? WHERE id = ?`, title, id)
}

func (s *SQLiteStore) SetTaskCompleted(ctx context.Context, id string, completed bool) (int64, error) {
	return s.exec(ctx, "update task", `UPDATE tasks SET completed = ? WHERE id = ?`, completed, id)
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) (int64, error) {
	return s.exec(ctx, "delete task", `DELETE FROM tasks WHERE id = ?`, id)
}

func (s *SQLiteStore) CreateMeeting(ctx context.Context, m Meeting) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	m.CreatedAt = m.CreatedAt.Truncate(time.Second)
	if m.Status == "" {
		m.Status = MeetingScheduled
	}
	participants, err := json.Marshal(nonNil(m.Participants))
	if err != nil {
		return "", fmt.Errorf("encode participants: %w", err)
	}
	var startsAt sql.NullTime
	if !m.StartsAt.IsZero() {
		startsAt = sql.NullTime{Time: m.StartsAt.UTC().Truncate(time.Second), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meetings (id, title, date, time, timezone, participants, host_email, status, platform,
		                       provider_id, url, password, starts_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Title, m.Date, m.Time, m.Timezone, string(participants), m.HostEmail, m.Status, m.Platform,
		m.ProviderID, m.URL, m.Password, startsAt, m.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert meeting: %w", err)
	}
	return m.ID, nil
}

func (s *SQLiteStore) ListMeetings(ctx context.Context) ([]Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, date, time, timezone, participants, host_email, status, platform,
		        provider_id, url, password, starts_at, created_at
		 FROM meetings ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []Meeting
	for rows.Next() {
		var (
			m            Meeting
			participants string
			startsAt     sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.Title, &m.Date, &m.Time, &m.Timezone, &participants, &m.HostEmail,
			&m.Status, &m.Platform, &m.ProviderID, &m.URL, &m.Password, &startsAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		if err := json.Unmarshal([]byte(participants), &m.Participants); err != nil {
			return nil, fmt.Errorf("decode participants for meeting %s: %w", m.ID, err)
		}
		if startsAt.Valid {
			m.StartsAt = startsAt.Time
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

func (s *SQLiteStore) UpdateMeetingStatus(ctx context.Context, id, status string) (int64, error) {
	return s.exec(ctx, "update meeting", `UPDATE meetings SET status = ? WHERE id = ?`, status, id)
}

func (s *SQLiteStore) DeleteMeeting(ctx context.Context, id string) (int64, error) {
	return s.exec(ctx, "delete meeting", `DELETE FROM meetings WHERE id = ?`, id)
}

func (s *SQLiteStore) CompletePastMeetings(ctx context.Context, now time.Time) (int64, error) {
	return s.exec(ctx, "complete meetings",
		`UPDATE meetings SET status = ? WHERE status = ? AND starts_at IS NOT NULL AND starts_at < ?`,
		MeetingCompleted, MeetingScheduled, now.UTC().Truncate(time.Second))
}

func (s *SQLiteStore) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
