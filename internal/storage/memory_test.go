package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// fakeClock hands out increasing timestamps so ordering is deterministic.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestMemory_TaskLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	created, err := s.CreateTask(ctx, NewTask{Name: "Click Save", Element: "Save", Section: "General"})
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, StatusPending, created.Status, "empty status defaults to pending")

	updated, err := s.UpdateTaskStatus(ctx, created.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	got, err := s.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	deleted, err := s.DeleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_DeleteMissingTask(t *testing.T) {
	s := NewMemory()

	deleted, err := s.DeleteTask(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMemory_UpdateMissingTask(t *testing.T) {
	s := NewMemory()

	_, err := s.UpdateTaskStatus(context.Background(), 7, StatusFailed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListTasks_NewestFirstAndFiltered(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemory(WithClock(clock.now))

	_, _ = s.CreateTask(ctx, NewTask{Name: "Click Save", Element: "Save", Section: "General", Status: StatusCompleted})
	_, _ = s.CreateTask(ctx, NewTask{Name: "Navigate to Learning", Element: "Learning", Section: "Learning Management"})
	_, _ = s.CreateTask(ctx, NewTask{Name: "Click Submit", Element: "Submit", Section: "General", Status: StatusFailed})

	all, err := s.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{all[0].ID, all[1].ID, all[2].ID})

	pending, err := s.ListTasks(ctx, TaskFilter{Statuses: []TaskStatus{StatusPending}})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Navigate to Learning", pending[0].Name)

	search, err := s.ListTasks(ctx, TaskFilter{Search: "learning"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, 2, search[0].ID)
}

func TestMemory_CaptureProcessedFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	first, err := s.CreateCapture(ctx, NewCapture{ElementSelector: "#save", ElementText: ptr("Save"), PageURL: "https://x.successfactors.com/home"})
	require.NoError(t, err)
	assert.False(t, first.Processed)
	_, err = s.CreateCapture(ctx, NewCapture{ElementSelector: "#cancel", PageURL: "https://x.successfactors.com/home"})
	require.NoError(t, err)

	ok, err := s.MarkCaptureProcessed(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkCaptureProcessed(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	processed, err := s.ListCaptures(ctx, CaptureFilter{Processed: ptr(true)})
	require.NoError(t, err)
	require.Len(t, processed, 1)
	for _, c := range processed {
		assert.True(t, c.Processed, "unprocessed capture leaked into processed=true listing")
	}

	unprocessed, err := s.UnprocessedCaptures(ctx)
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)
	assert.Equal(t, "#cancel", unprocessed[0].ElementSelector)
	assert.Equal(t, "", unprocessed[0].Text())
}

func TestMemory_Settings(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)

	got, err = s.UpdateSettings(ctx, SettingsPatch{CaptureActive: ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.CaptureActive)
	assert.True(t, got.AutoTaskGeneration, "untouched fields keep their value")
	assert.True(t, got.RealTimeSync)
}

func TestMemory_Statistics(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.Local)

	t.Run("no tasks today defaults success rate", func(t *testing.T) {
		s := NewMemory(WithClock(func() time.Time { return now }))

		stats, err := s.Statistics(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, Statistics{TodayClicks: 0, TasksGenerated: 0, SuccessRate: 98.2}, stats)
	})

	t.Run("counts only today", func(t *testing.T) {
		current := now.Add(-48 * time.Hour)
		s := NewMemory(WithClock(func() time.Time { return current }))

		// yesterday's records
		_, _ = s.CreateCapture(ctx, NewCapture{ElementSelector: "#old", PageURL: "u"})
		_, _ = s.CreateTask(ctx, NewTask{Name: "old", Element: "old", Section: "General", Status: StatusFailed})

		current = now
		_, _ = s.CreateCapture(ctx, NewCapture{ElementSelector: "#a", PageURL: "u"})
		_, _ = s.CreateCapture(ctx, NewCapture{ElementSelector: "#b", PageURL: "u"})
		_, _ = s.CreateTask(ctx, NewTask{Name: "a", Element: "a", Section: "General", Status: StatusCompleted})
		_, _ = s.CreateTask(ctx, NewTask{Name: "b", Element: "b", Section: "General", Status: StatusCompleted})
		_, _ = s.CreateTask(ctx, NewTask{Name: "c", Element: "c", Section: "General", Status: StatusPending})

		stats, err := s.Statistics(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TodayClicks)
		assert.Equal(t, 3, stats.TasksGenerated)
		assert.InDelta(t, 66.7, stats.SuccessRate, 0.0001)
	})
}

func TestMemory_TasksBySection(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	for _, section := range []string{"Time Off", "General", "Time Off", "Compensation", "General", "Time Off"} {
		_, err := s.CreateTask(ctx, NewTask{Name: "n", Element: "e", Section: section})
		require.NoError(t, err)
	}

	counts, err := s.TasksBySection(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SectionCount{
		{Section: "Time Off", Count: 3},
		{Section: "General", Count: 2},
		{Section: "Compensation", Count: 1},
	}, counts)
}

func TestMemory_Users(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	u, err := s.CreateUser(ctx, "admin", "hash")
	require.NoError(t, err)
	assert.Equal(t, 1, u.ID)

	_, err = s.CreateUser(ctx, "ADMIN", "other")
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetUserByUsername(ctx, "Admin")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.Password)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_RecordEvent(t *testing.T) {
	s := NewMemory()

	require.NoError(t, s.RecordEvent(context.Background(), Event{Name: "task_created", Platform: "web"}))
	require.NoError(t, s.RecordEvent(context.Background(), Event{Name: "task_deleted", Platform: "web"}))

	evs := s.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, "task_created", evs[0].Name)
	assert.False(t, evs[0].Time.IsZero())
}

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		total, completed int
		want             float64
	}{
		{0, 0, 98.2},
		{1, 1, 100},
		{3, 1, 33.3},
		{8, 7, 87.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, SuccessRate(tt.total, tt.completed), 0.0001)
	}
}
