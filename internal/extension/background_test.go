package extension

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTab struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recordingTab) HandleMessage(_ context.Context, msg Message) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return Ack{Success: true}, nil
}

func (r *recordingTab) actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Action)
	}
	return out
}

func (r *recordingTab) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

func ptr[T any](v T) *T { return &v }

func TestMatchHost(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://acme.successfactors.com/sf/home", true},
		{"https://successfactors.com/", true},
		{"https://performancemanager5.successfactors.eu/sf/start?company=x", true},
		{"http://hcm.sapsf.sfsf.com", true},
		{"https://acme.hr.cloud.sap/ui", true},
		{"https://ACME.SAP.COM/x", true},
		{"https://evil-successfactors.com/", false},
		{"https://example.com/successfactors.com/", false},
		{"ftp://acme.sap.com/", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, matchHost(DefaultHostPatterns, tt.url))
		})
	}
}

func TestNewBackground_InstallsDefaults(t *testing.T) {
	store := &MemoryStorage{}
	bg, err := NewBackground(store)
	require.NoError(t, err)

	assert.Equal(t, DefaultSettings(), bg.Settings())
	saved, ok, err := store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, DefaultSettings(), saved)
}

func TestNewBackground_BadPattern(t *testing.T) {
	_, err := NewBackground(nil, "*://[unclosed/**")
	assert.Error(t, err)
}

func TestBackground_RegisterTabPushesState(t *testing.T) {
	bg, err := NewBackground(nil)
	require.NoError(t, err)
	ctx := context.Background()

	sf := &recordingTab{}
	other := &recordingTab{}
	bg.RegisterTab(ctx, Tab{ID: 1, URL: "https://acme.successfactors.com/sf/home", Handler: sf})
	bg.RegisterTab(ctx, Tab{ID: 2, URL: "https://news.example.com/", Handler: other})

	require.Equal(t, []Action{ActionToggleCapture, ActionUpdateServerURL}, sf.actions())
	assert.False(t, *sf.msgs[0].Enabled)
	assert.Equal(t, DefaultServerURL, sf.msgs[1].URL)
	assert.Empty(t, other.actions())
}

func TestBackground_SaveSettingsNotifiesCaptureTabs(t *testing.T) {
	bg, err := NewBackground(nil)
	require.NoError(t, err)
	ctx := context.Background()

	sf := &recordingTab{}
	other := &recordingTab{}
	bg.RegisterTab(ctx, Tab{ID: 1, URL: "https://acme.successfactors.com/sf/home", Handler: sf})
	bg.RegisterTab(ctx, Tab{ID: 2, URL: "https://news.example.com/", Handler: other})
	sf.reset()

	out, err := bg.Handle(ctx, Message{Action: ActionSaveSettings, Settings: &SettingsPatch{CaptureEnabled: ptr(true)}})
	require.NoError(t, err)
	assert.Equal(t, Ack{Success: true}, out)
	assert.True(t, bg.Settings().CaptureEnabled)
	assert.True(t, bg.Settings().AutoTaskGeneration)

	require.Equal(t, []Action{ActionToggleCapture}, sf.actions())
	assert.True(t, *sf.msgs[0].Enabled)
	assert.Empty(t, other.actions())

	sf.reset()
	_, err = bg.Handle(ctx, Message{Action: ActionSaveSettings, Settings: &SettingsPatch{ServerURL: ptr("http://10.0.0.5:5000")}})
	require.NoError(t, err)
	require.Equal(t, []Action{ActionToggleCapture, ActionUpdateServerURL}, sf.actions())
	assert.Equal(t, "http://10.0.0.5:5000", sf.msgs[1].URL)

	bg.RemoveTab(1)
	sf.reset()
	_, err = bg.Handle(ctx, Message{Action: ActionSaveSettings, Settings: &SettingsPatch{CaptureEnabled: ptr(false)}})
	require.NoError(t, err)
	assert.Empty(t, sf.actions())
}

func TestBackground_UpdateStats(t *testing.T) {
	bg, err := NewBackground(nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = bg.Handle(ctx, Message{Action: ActionUpdateStats, TaskGenerated: true})
	require.NoError(t, err)
	out, err := bg.Handle(ctx, Message{Action: ActionUpdateStats})
	require.NoError(t, err)

	assert.Equal(t, SessionStats{ClicksCount: 2, TasksCount: 1}, out)
}

func TestBackground_UnknownAction(t *testing.T) {
	bg, err := NewBackground(nil)
	require.NoError(t, err)

	_, err = bg.Handle(context.Background(), Message{Action: ActionToggleCapture})
	var unknown UnknownActionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, ActionToggleCapture, unknown.Action)
}

func TestFileStorage_PersistsAcrossRuns(t *testing.T) {
	fs := FileStorage{Path: filepath.Join(t.TempDir(), "ext", "settings.yaml")}

	bg, err := NewBackground(fs)
	require.NoError(t, err)
	_, err = bg.Handle(context.Background(), Message{Action: ActionSaveSettings, Settings: &SettingsPatch{
		CaptureEnabled:     ptr(true),
		AutoTaskGeneration: ptr(false),
	}})
	require.NoError(t, err)

	again, err := NewBackground(fs)
	require.NoError(t, err)
	assert.Equal(t, Settings{CaptureEnabled: true, ServerURL: DefaultServerURL, AutoTaskGeneration: false}, again.Settings())
}

func TestMessagesHandler(t *testing.T) {
	bg, err := NewBackground(nil)
	require.NoError(t, err)
	h := MessagesHandler(bg)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/extension/messages", strings.NewReader(`{"action":"getSettings"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"captureEnabled":false,"serverUrl":"http://127.0.0.1:5000","autoTaskGeneration":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/extension/messages", strings.NewReader(`{"action":"saveSettings","settings":{"captureEnabled":true}}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/extension/messages", strings.NewReader(`{"action":"dance"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/extension/messages", strings.NewReader(`nope`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
