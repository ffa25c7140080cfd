// Package storage holds the task, capture and settings records and the two
// backends that persist them: an in-process map store and PostgreSQL.
package storage

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// DefaultSuccessRate is reported when no task was created today.
const DefaultSuccessRate = 98.2

type TaskStore interface {
	ListTasks(ctx context.Context, f TaskFilter) ([]Task, error)
	GetTask(ctx context.Context, id int) (Task, error)
	CreateTask(ctx context.Context, t NewTask) (Task, error)
	UpdateTaskStatus(ctx context.Context, id int, status TaskStatus) (Task, error)
	DeleteTask(ctx context.Context, id int) (bool, error)
}

type CaptureStore interface {
	ListCaptures(ctx context.Context, f CaptureFilter) ([]ClickCapture, error)
	CreateCapture(ctx context.Context, c NewCapture) (ClickCapture, error)
	MarkCaptureProcessed(ctx context.Context, id int) (bool, error)
	UnprocessedCaptures(ctx context.Context) ([]ClickCapture, error)
}

type SettingsStore interface {
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, p SettingsPatch) (Settings, error)
}

type StatsStore interface {
	Statistics(ctx context.Context, now time.Time) (Statistics, error)
	TasksBySection(ctx context.Context) ([]SectionCount, error)
}

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
}

type EventRecorder interface {
	RecordEvent(ctx context.Context, e Event) error
}

// Store is everything the API layer needs from a backend.
type Store interface {
	TaskStore
	CaptureStore
	SettingsStore
	StatsStore
	UserStore
	EventRecorder
	Close() error
}

// StartOfDay returns local midnight of the day containing now.
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// SuccessRate is completed/total as a percentage rounded to one decimal.
func SuccessRate(total, completed int) float64 {
	if total == 0 {
		return DefaultSuccessRate
	}
	rate := float64(completed) / float64(total) * 100
	return math.Round(rate*10) / 10
}
