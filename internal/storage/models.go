package storage

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// ParseStatus normalizes a client supplied status string.
func ParseStatus(raw string) (TaskStatus, bool) {
	s := TaskStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

type Task struct {
	ID        int        `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Element   string     `json:"element" db:"element"`
	Section   string     `json:"section" db:"section"`
	Status    TaskStatus `json:"status" db:"status"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
	ClickData *string    `json:"clickData" db:"click_data"` // JSON of the capture that produced the task
}

type NewTask struct {
	Name      string
	Element   string
	Section   string
	Status    TaskStatus
	ClickData *string
}

type ClickCapture struct {
	ID              int       `json:"id" db:"id"`
	ElementSelector string    `json:"elementSelector" db:"element_selector"`
	ElementText     *string   `json:"elementText" db:"element_text"`
	PageURL         string    `json:"pageUrl" db:"page_url"`
	Timestamp       time.Time `json:"timestamp" db:"timestamp"`
	Processed       bool      `json:"processed" db:"processed"`
}

// Text returns the captured element text or "" when none was recorded.
func (c ClickCapture) Text() string {
	if c.ElementText == nil {
		return ""
	}
	return *c.ElementText
}

type NewCapture struct {
	ElementSelector string
	ElementText     *string
	PageURL         string
}

type Settings struct {
	ID                 int  `json:"id" db:"id"`
	AutoTaskGeneration bool `json:"autoTaskGeneration" db:"auto_task_generation"`
	RealTimeSync       bool `json:"realTimeSync" db:"real_time_sync"`
	CaptureActive      bool `json:"captureActive" db:"capture_active"`
}

// DefaultSettings is the singleton row every store starts with.
func DefaultSettings() Settings {
	return Settings{
		ID:                 1,
		AutoTaskGeneration: true,
		RealTimeSync:       true,
		CaptureActive:      false,
	}
}

// SettingsPatch is a partial update; nil fields keep their current value.
type SettingsPatch struct {
	AutoTaskGeneration *bool `json:"autoTaskGeneration"`
	RealTimeSync       *bool `json:"realTimeSync"`
	CaptureActive      *bool `json:"captureActive"`
}

func (s Settings) Apply(p SettingsPatch) Settings {
	if p.AutoTaskGeneration != nil {
		s.AutoTaskGeneration = *p.AutoTaskGeneration
	}
	if p.RealTimeSync != nil {
		s.RealTimeSync = *p.RealTimeSync
	}
	if p.CaptureActive != nil {
		s.CaptureActive = *p.CaptureActive
	}
	return s
}

type Statistics struct {
	TodayClicks    int     `json:"todayClicks"`
	TasksGenerated int     `json:"tasksGenerated"`
	SuccessRate    float64 `json:"successRate"`
}

type SectionCount struct {
	Section string `json:"section" db:"section"`
	Count   int    `json:"count" db:"count"`
}

type User struct {
	ID       int    `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Password string `json:"-" db:"password"`
}

// Event is one analytics record. Properties never carry raw captured text.
type Event struct {
	ID         int            `json:"id"`
	Name       string         `json:"name"`
	Time       time.Time      `json:"time"`
	UserID     int            `json:"userId,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	SessionID  string         `json:"sessionId,omitempty"`
	Platform   string         `json:"platform"`
	AppVersion string         `json:"appVersion,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

type TaskFilter struct {
	Statuses []TaskStatus
	Search   string
}

func (f TaskFilter) match(t Task) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Name), q) ||
		strings.Contains(strings.ToLower(t.Element), q) ||
		strings.Contains(strings.ToLower(t.Section), q)
}

type CaptureFilter struct {
	Processed *bool
}

func (f CaptureFilter) match(c ClickCapture) bool {
	return f.Processed == nil || c.Processed == *f.Processed
}
