package extension

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sf-clicktask-backend/internal/auth"
	"sf-clicktask-backend/internal/captures"
	"sf-clicktask-backend/internal/storage"
	"sf-clicktask-backend/internal/tasks"
)

var testSecret = []byte("extension-test")

func newAPI(t *testing.T) (*httptest.Server, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	_, err := auth.EnsureUser(context.Background(), store, "admin", "s3cret")
	require.NoError(t, err)

	ch := captures.NewHandler(store, tasks.New(store, time.Second))
	mw := auth.New(testSecret, false)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/captures", ch.Create)
	mux.HandleFunc("POST /api/auth/login", auth.LoginHandler(store, testSecret, time.Hour))
	mux.HandleFunc("GET /api/auth/status", mw.Require(auth.StatusHandler()))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func newClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(5*time.Second, "test")
	require.NoError(t, err)
	return c
}

func TestAgent_EndToEnd(t *testing.T) {
	srv, store := newAPI(t)
	ctx := context.Background()

	bg, err := NewBackground(nil)
	require.NoError(t, err)
	agent := NewAgent(newClient(t), bg)
	agent.Init(bg.Settings())

	page := mustPage(t, timeOffHTML, "https://acme.successfactors.com/sf/timeoff")
	bg.RegisterTab(ctx, Tab{ID: 7, URL: page.URL, Handler: agent})

	// capture is off after install
	_, captured, err := agent.HandleClick(ctx, page, "#save")
	require.NoError(t, err)
	assert.False(t, captured)

	_, err = bg.Handle(ctx, Message{Action: ActionSaveSettings, Settings: &SettingsPatch{
		CaptureEnabled: ptr(true),
		ServerURL:      ptr(srv.URL),
	}})
	require.NoError(t, err)
	require.True(t, agent.Enabled())
	require.Equal(t, srv.URL, agent.ServerURL())

	data, captured, err := agent.HandleClick(ctx, page, "#save")
	require.NoError(t, err)
	require.True(t, captured)
	assert.Equal(t, "Save", data.ElementText)

	list, err := store.ListTasks(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Click Save", list[0].Name)
	assert.Equal(t, "Time Off", list[0].Section)

	assert.Equal(t, SessionStats{ClicksCount: 1, TasksCount: 1}, bg.Stats())

	// non interactive and missing elements never reach the server
	_, captured, err = agent.HandleClick(ctx, page, "div.tile")
	require.NoError(t, err)
	assert.False(t, captured)
	_, captured, err = agent.HandleClick(ctx, page, "#nope")
	require.NoError(t, err)
	assert.False(t, captured)

	caps, err := store.ListCaptures(ctx, storage.CaptureFilter{})
	require.NoError(t, err)
	assert.Len(t, caps, 1)
}

func TestAgent_ServerDown(t *testing.T) {
	srv, _ := newAPI(t)
	url := srv.URL
	srv.Close()

	agent := NewAgent(newClient(t), nil)
	agent.Init(Settings{CaptureEnabled: true, ServerURL: url})

	page := mustPage(t, timeOffHTML, "https://acme.successfactors.com/sf/timeoff")
	_, captured, err := agent.HandleClick(context.Background(), page, "#save")
	assert.Error(t, err)
	assert.False(t, captured)
}

func TestAgent_Messages(t *testing.T) {
	agent := NewAgent(nil, nil)
	agent.Init(Settings{})
	assert.Equal(t, DefaultServerURL, agent.ServerURL())

	_, err := agent.HandleMessage(context.Background(), Message{Action: ActionToggleCapture, Enabled: ptr(true)})
	require.NoError(t, err)
	assert.True(t, agent.Enabled())

	_, err = agent.HandleMessage(context.Background(), Message{Action: ActionUpdateServerURL, URL: "http://h:1"})
	require.NoError(t, err)
	assert.Equal(t, "http://h:1", agent.ServerURL())

	_, err = agent.HandleMessage(context.Background(), Message{Action: ActionGetSettings})
	assert.ErrorAs(t, err, &UnknownActionError{})
}

func TestClient_LoginKeepsCookie(t *testing.T) {
	srv, _ := newAPI(t)
	ctx := context.Background()
	c := newClient(t)

	ok, err := c.AuthStatus(ctx, srv.URL)
	require.NoError(t, err)
	assert.False(t, ok)

	err = c.Login(ctx, srv.URL, "admin", "wrong")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "Invalid username or password", se.Message)

	require.NoError(t, c.Login(ctx, srv.URL, "admin", "s3cret"))

	ok, err = c.AuthStatus(ctx, srv.URL)
	require.NoError(t, err)
	assert.True(t, ok)
}
