package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory keeps everything in process. It is the default backend and the one
// the handler tests run against.
type Memory struct {
	users    *table[User]
	tasks    *table[Task]
	captures *table[ClickCapture]
	events   *table[Event]

	mu       sync.RWMutex
	settings Settings

	now func() time.Time
}

type MemoryOption func(*Memory)

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		users:    newTable[User](),
		tasks:    newTable[Task](),
		captures: newTable[ClickCapture](),
		events:   newTable[Event](),
		settings: DefaultSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ Store = (*Memory)(nil)

func (m *Memory) Close() error { return nil }

// ----- tasks -----

func (m *Memory) ListTasks(_ context.Context, f TaskFilter) ([]Task, error) {
	out := make([]Task, 0)
	for _, t := range m.tasks.values() {
		if f.match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) GetTask(_ context.Context, id int) (Task, error) {
	t, ok := m.tasks.get(id)
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) CreateTask(_ context.Context, nt NewTask) (Task, error) {
	status := nt.Status
	if status == "" {
		status = StatusPending
	}
	ts := m.now()
	return m.tasks.insert(func(id int) Task {
		return Task{
			ID:        id,
			Name:      nt.Name,
			Element:   nt.Element,
			Section:   nt.Section,
			Status:    status,
			Timestamp: ts,
			ClickData: nt.ClickData,
		}
	}), nil
}

func (m *Memory) UpdateTaskStatus(_ context.Context, id int, status TaskStatus) (Task, error) {
	t, ok := m.tasks.update(id, func(t Task) Task {
		t.Status = status
		return t
	})
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) DeleteTask(_ context.Context, id int) (bool, error) {
	return m.tasks.delete(id), nil
}

// ----- captures -----

func (m *Memory) ListCaptures(_ context.Context, f CaptureFilter) ([]ClickCapture, error) {
	out := make([]ClickCapture, 0)
	for _, c := range m.captures.values() {
		if f.match(c) {
			out = append(out, c)
		}
	}
	sortCaptures(out)
	return out, nil
}

func (m *Memory) CreateCapture(_ context.Context, nc NewCapture) (ClickCapture, error) {
	ts := m.now()
	return m.captures.insert(func(id int) ClickCapture {
		return ClickCapture{
			ID:              id,
			ElementSelector: nc.ElementSelector,
			ElementText:     nc.ElementText,
			PageURL:         nc.PageURL,
			Timestamp:       ts,
			Processed:       false,
		}
	}), nil
}

func (m *Memory) MarkCaptureProcessed(_ context.Context, id int) (bool, error) {
	_, ok := m.captures.update(id, func(c ClickCapture) ClickCapture {
		c.Processed = true
		return c
	})
	return ok, nil
}

func (m *Memory) UnprocessedCaptures(ctx context.Context) ([]ClickCapture, error) {
	unprocessed := false
	return m.ListCaptures(ctx, CaptureFilter{Processed: &unprocessed})
}

func sortCaptures(cs []ClickCapture) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].Timestamp.Equal(cs[j].Timestamp) {
			return cs[i].Timestamp.After(cs[j].Timestamp)
		}
		return cs[i].ID > cs[j].ID
	})
}

// ----- settings -----

func (m *Memory) GetSettings(_ context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *Memory) UpdateSettings(_ context.Context, p SettingsPatch) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = m.settings.Apply(p)
	return m.settings, nil
}

// ----- statistics -----

func (m *Memory) Statistics(_ context.Context, now time.Time) (Statistics, error) {
	since := StartOfDay(now)

	clicks := 0
	for _, c := range m.captures.values() {
		if !c.Timestamp.Before(since) {
			clicks++
		}
	}

	total, completed := 0, 0
	for _, t := range m.tasks.values() {
		if t.Timestamp.Before(since) {
			continue
		}
		total++
		if t.Status == StatusCompleted {
			completed++
		}
	}

	return Statistics{
		TodayClicks:    clicks,
		TasksGenerated: total,
		SuccessRate:    SuccessRate(total, completed),
	}, nil
}

func (m *Memory) TasksBySection(_ context.Context) ([]SectionCount, error) {
	counts := map[string]int{}
	for _, t := range m.tasks.values() {
		counts[t.Section]++
	}

	out := make([]SectionCount, 0, len(counts))
	for section, n := range counts {
		out = append(out, SectionCount{Section: section, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Section < out[j].Section
	})
	return out, nil
}

// ----- users -----

func (m *Memory) GetUserByUsername(_ context.Context, username string) (User, error) {
	for _, u := range m.users.values() {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	// serialize creation so two concurrent logins cannot seed the same name twice
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.GetUserByUsername(ctx, username); err == nil {
		return User{}, ErrDuplicate
	}
	return m.users.insert(func(id int) User {
		return User{ID: id, Username: username, Password: passwordHash}
	}), nil
}

// ----- events -----

func (m *Memory) RecordEvent(_ context.Context, e Event) error {
	if e.Time.IsZero() {
		e.Time = m.now()
	}
	m.events.insert(func(id int) Event {
		e.ID = id
		return e
	})
	return nil
}

// Events returns recorded analytics events oldest first.
func (m *Memory) Events() []Event {
	evs := m.events.values()
	sort.Slice(evs, func(i, j int) bool { return evs[i].ID < evs[j].ID })
	return evs
}
