package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	taskColumns    = `id, name, element, section, status, timestamp, click_data`
	captureColumns = `id, element_selector, element_text, page_url, timestamp, processed`
)

// Postgres persists records in PostgreSQL through lib/pq.
type Postgres struct {
	db *sqlx.DB
}

var _ Store = (*Postgres)(nil)

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: sqlx.NewDb(db, "postgres")}
}

func (p *Postgres) Close() error { return p.db.Close() }

// EnsureSchema creates the tables and the settings singleton if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id         SERIAL PRIMARY KEY,
			name       TEXT NOT NULL,
			element    TEXT NOT NULL,
			section    TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending',
			timestamp  TIMESTAMPTZ NOT NULL DEFAULT now(),
			click_data TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS click_captures (
			id               SERIAL PRIMARY KEY,
			element_selector TEXT NOT NULL,
			element_text     TEXT,
			page_url         TEXT NOT NULL,
			timestamp        TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed        BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS capture_settings (
			id                   INTEGER PRIMARY KEY,
			auto_task_generation BOOLEAN NOT NULL DEFAULT TRUE,
			real_time_sync       BOOLEAN NOT NULL DEFAULT TRUE,
			capture_active       BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`INSERT INTO capture_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
		`CREATE TABLE IF NOT EXISTS users (
			id       SERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id          SERIAL PRIMARY KEY,
			event_name  TEXT NOT NULL,
			event_time  TIMESTAMPTZ NOT NULL,
			user_id     INTEGER,
			request_id  TEXT,
			session_id  TEXT,
			platform    TEXT NOT NULL,
			app_version TEXT,
			properties  JSONB NOT NULL DEFAULT '{}'::jsonb
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ----- tasks -----

func (p *Postgres) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR element ILIKE $%d OR section ILIKE $%d)", n, n, n))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY timestamp DESC, id DESC`

	tasks := []Task{}
	if err := p.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (p *Postgres) GetTask(ctx context.Context, id int) (Task, error) {
	var t Task
	err := p.db.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err != nil {
		return Task{}, notFound(err, "get task")
	}
	return t, nil
}

func (p *Postgres) CreateTask(ctx context.Context, nt NewTask) (Task, error) {
	status := nt.Status
	if status == "" {
		status = StatusPending
	}

	var t Task
	err := p.db.GetContext(ctx, &t, `
		INSERT INTO tasks (name, element, section, status, click_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns,
		nt.Name, nt.Element, nt.Section, string(status), nt.ClickData,
	)
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (p *Postgres) UpdateTaskStatus(ctx context.Context, id int, status TaskStatus) (Task, error) {
	var t Task
	err := p.db.GetContext(ctx, &t, `
		UPDATE tasks SET status = $1
		WHERE id = $2
		RETURNING `+taskColumns,
		string(status), id,
	)
	if err != nil {
		return Task{}, notFound(err, "update task status")
	}
	return t, nil
}

func (p *Postgres) DeleteTask(ctx context.Context, id int) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return affected > 0, nil
}

// ----- captures -----

func (p *Postgres) ListCaptures(ctx context.Context, f CaptureFilter) ([]ClickCapture, error) {
	query := `SELECT ` + captureColumns + ` FROM click_captures`
	var args []any
	if f.Processed != nil {
		query += ` WHERE processed = $1`
		args = append(args, *f.Processed)
	}
	query += ` ORDER BY timestamp DESC, id DESC`

	captures := []ClickCapture{}
	if err := p.db.SelectContext(ctx, &captures, query, args...); err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	return captures, nil
}

func (p *Postgres) CreateCapture(ctx context.Context, nc NewCapture) (ClickCapture, error) {
	var c ClickCapture
	err := p.db.GetContext(ctx, &c, `
		INSERT INTO click_captures (element_selector, element_text, page_url)
		VALUES ($1, $2, $3)
		RETURNING `+captureColumns,
		nc.ElementSelector, nc.ElementText, nc.PageURL,
	)
	if err != nil {
		return ClickCapture{}, fmt.Errorf("create capture: %w", err)
	}
	return c, nil
}

func (p *Postgres) MarkCaptureProcessed(ctx context.Context, id int) (bool, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE click_captures SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("mark capture processed: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (p *Postgres) UnprocessedCaptures(ctx context.Context) ([]ClickCapture, error) {
	unprocessed := false
	return p.ListCaptures(ctx, CaptureFilter{Processed: &unprocessed})
}

// ----- settings -----

func (p *Postgres) GetSettings(ctx context.Context) (Settings, error) {
	var s Settings
	err := p.db.GetContext(ctx, &s, `
		SELECT id, auto_task_generation, real_time_sync, capture_active
		FROM capture_settings WHERE id = 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

func (p *Postgres) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	var s Settings
	err := p.db.GetContext(ctx, &s, `
		UPDATE capture_settings SET
			auto_task_generation = COALESCE($1, auto_task_generation),
			real_time_sync       = COALESCE($2, real_time_sync),
			capture_active       = COALESCE($3, capture_active)
		WHERE id = 1
		RETURNING id, auto_task_generation, real_time_sync, capture_active
	`, patch.AutoTaskGeneration, patch.RealTimeSync, patch.CaptureActive)
	if err != nil {
		return Settings{}, fmt.Errorf("update settings: %w", err)
	}
	return s, nil
}

// ----- statistics -----

func (p *Postgres) Statistics(ctx context.Context, now time.Time) (Statistics, error) {
	var row struct {
		Clicks    int `db:"clicks"`
		Tasks     int `db:"tasks"`
		Completed int `db:"completed"`
	}
	err := p.db.GetContext(ctx, &row, `
		SELECT
			(SELECT COUNT(*) FROM click_captures WHERE timestamp >= $1) AS clicks,
			(SELECT COUNT(*) FROM tasks WHERE timestamp >= $1) AS tasks,
			(SELECT COUNT(*) FROM tasks WHERE timestamp >= $1 AND status = 'completed') AS completed
	`, StartOfDay(now))
	if err != nil {
		return Statistics{}, fmt.Errorf("statistics: %w", err)
	}

	return Statistics{
		TodayClicks:    row.Clicks,
		TasksGenerated: row.Tasks,
		SuccessRate:    SuccessRate(row.Tasks, row.Completed),
	}, nil
}

func (p *Postgres) TasksBySection(ctx context.Context) ([]SectionCount, error) {
	out := []SectionCount{}
	err := p.db.SelectContext(ctx, &out, `
		SELECT section, COUNT(*) AS count
		FROM tasks
		GROUP BY section
		ORDER BY count DESC, section ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("tasks by section: %w", err)
	}
	return out, nil
}

// ----- users -----

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := p.db.GetContext(ctx, &u, `
		SELECT id, username, password FROM users WHERE lower(username) = lower($1)
	`, username)
	if err != nil {
		return User{}, notFound(err, "get user")
	}
	return u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	var u User
	err := p.db.GetContext(ctx, &u, `
		INSERT INTO users (username, password) VALUES ($1, $2)
		RETURNING id, username, password
	`, username, passwordHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// ----- events -----

func (p *Postgres) RecordEvent(ctx context.Context, e Event) error {
	props, err := json.Marshal(e.Properties)
	if err != nil || e.Properties == nil {
		props = []byte("{}")
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO analytics_events (
			event_name, event_time, user_id, request_id, session_id,
			platform, app_version, properties
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
	`, e.Name, e.Time, nullIfZero(e.UserID), nullIfEmpty(e.RequestID), nullIfEmpty(e.SessionID),
		e.Platform, nullIfEmpty(e.AppVersion), string(props),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullIfZero(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}
