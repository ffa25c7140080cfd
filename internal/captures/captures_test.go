package captures

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sf-clicktask-backend/internal/storage"
	"sf-clicktask-backend/internal/tasks"
)

func TestExtractSection(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://acme.successfactors.com/sf/learning?bplte_company=acme", "Learning Management"},
		{"https://acme.successfactors.com/sf/home", "Home Dashboard"},
		{"https://acme.successfactors.com/xi/ui/peopleprofile/pages/index", "Employee Profile"},
		{"https://acme.successfactors.com/sf/TIMEOFF", "Time Off"},
		{"https://acme.successfactors.com/sf/admin/tools", "Administration"},
		{"https://acme.successfactors.com/sf/goals", "Goal Management"},
		// home comes before admin in the table
		{"https://acme.successfactors.com/admin/home", "Home Dashboard"},
		{"https://acme.successfactors.com/sf/unknownpage", "General"},
		{"", "General"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSection(tt.url))
		})
	}
}

func newTestHandler() (*Handler, *storage.Memory) {
	store := storage.NewMemory()
	return NewHandler(store, tasks.New(store, time.Second)), store
}

func post(t *testing.T, hf http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	hf(rec, r)
	return rec
}

func TestCreate_AutoGeneratesTask(t *testing.T) {
	h, store := newTestHandler()
	ctx := context.Background()

	rec := post(t, h.Create, "/api/captures", `{"elementSelector":"button.save","elementText":"Save","pageUrl":"https://acme.successfactors.com/sf/learning"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var capture storage.ClickCapture
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &capture))
	assert.True(t, capture.Processed)

	list, err := store.ListTasks(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Click Save", list[0].Name)
	assert.Equal(t, "Learning Management", list[0].Section)
	assert.Equal(t, storage.StatusCompleted, list[0].Status)
	require.NotNil(t, list[0].ClickData)
	assert.Contains(t, *list[0].ClickData, `"elementSelector":"button.save"`)

	left, err := store.UnprocessedCaptures(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestCreate_GenerationDisabled(t *testing.T) {
	h, store := newTestHandler()
	ctx := context.Background()
	off := false
	_, err := store.UpdateSettings(ctx, storage.SettingsPatch{AutoTaskGeneration: &off})
	require.NoError(t, err)

	rec := post(t, h.Create, "/api/captures", `{"elementSelector":"div.tile","pageUrl":"https://x/home"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	list, err := store.ListTasks(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	left, err := store.UnprocessedCaptures(ctx)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestCreate_Invalid(t *testing.T) {
	h, _ := newTestHandler()

	rec := post(t, h.Create, "/api/captures", `{"elementText":"Save"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"elementSelector"`)
	assert.Contains(t, rec.Body.String(), `"field":"pageUrl"`)
	assert.Contains(t, rec.Body.String(), `"message":"Invalid capture data"`)
}

func TestList_ProcessedFilter(t *testing.T) {
	h, store := newTestHandler()
	ctx := context.Background()
	a, _ := store.CreateCapture(ctx, storage.NewCapture{ElementSelector: "a", PageURL: "https://x/a"})
	_, _ = store.CreateCapture(ctx, storage.NewCapture{ElementSelector: "b", PageURL: "https://x/b"})
	_, _ = store.MarkCaptureProcessed(ctx, a.ID)

	get := func(target string) []storage.ClickCapture {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var out []storage.ClickCapture
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	assert.Len(t, get("/api/captures"), 2)

	processed := get("/api/captures?processed=true")
	require.Len(t, processed, 1)
	assert.Equal(t, a.ID, processed[0].ID)

	for _, c := range get("/api/captures?processed=false") {
		assert.False(t, c.Processed)
	}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/captures?processed=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulateClick(t *testing.T) {
	h, store := newTestHandler()
	ctx := context.Background()

	rec := post(t, h.SimulateClick, "/api/simulate-click", `{"elementText":"Request Time Off","section":"timeoff"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                 `json:"success"`
		Capture storage.ClickCapture `json:"capture"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, `button:contains("Request Time Off")`, body.Capture.ElementSelector)
	assert.Equal(t, "https://successfactors.com/timeoff", body.Capture.PageURL)
	assert.True(t, body.Capture.Processed)

	list, err := store.ListTasks(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Click in Request Time Off", list[0].Name)
	assert.Equal(t, "timeoff", list[0].Section)
	assert.Equal(t, storage.StatusCompleted, list[0].Status)
}

func TestSimulateClick_KeepsGivenSelector(t *testing.T) {
	h, _ := newTestHandler()

	rec := post(t, h.SimulateClick, "/api/simulate-click", `{"elementText":"Save","elementSelector":"#save","section":"home"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"elementSelector":"#save"`)
}

func TestSimulateClick_RequiresText(t *testing.T) {
	h, _ := newTestHandler()
	rec := post(t, h.SimulateClick, "/api/simulate-click", `{"section":"home"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
