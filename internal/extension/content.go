package extension

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sf-clicktask-backend/internal/logging"
)

// Dispatcher is the background side as seen from a tab.
type Dispatcher interface {
	Handle(ctx context.Context, msg Message) (any, error)
}

// Agent is the per-tab content script: it listens for capture toggles and
// turns relevant clicks into captures on the server.
type Agent struct {
	client     *Client
	background Dispatcher
	now        func() time.Time
	log        zerolog.Logger

	mu        sync.Mutex
	enabled   bool
	serverURL string
}

func NewAgent(client *Client, background Dispatcher) *Agent {
	return &Agent{
		client:     client,
		background: background,
		now:        time.Now,
		log:        logging.Component("content"),
		serverURL:  DefaultServerURL,
	}
}

// Init applies stored settings when the page loads.
func (a *Agent) Init(s Settings) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = s.CaptureEnabled
	a.serverURL = firstNonEmpty(s.ServerURL, DefaultServerURL)
}

func (a *Agent) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func (a *Agent) ServerURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serverURL
}

func (a *Agent) HandleMessage(_ context.Context, msg Message) (any, error) {
	switch msg.Action {
	case ActionToggleCapture:
		a.mu.Lock()
		a.enabled = msg.Enabled != nil && *msg.Enabled
		a.mu.Unlock()
		return Ack{Success: true}, nil
	case ActionUpdateServerURL:
		a.mu.Lock()
		a.serverURL = msg.URL
		a.mu.Unlock()
		return Ack{Success: true}, nil
	}
	return nil, UnknownActionError{Action: msg.Action}
}

// HandleClick processes a click on the element matched by selector. It
// returns false when capture is off, the element is gone or the click is
// not relevant.
func (a *Agent) HandleClick(ctx context.Context, p *Page, selector string) (ClickData, bool, error) {
	if !a.Enabled() {
		return ClickData{}, false, nil
	}
	el, ok := p.Query(selector)
	if !ok {
		return ClickData{}, false, nil
	}

	data := ExtractClick(p, el, a.now())
	if !IsRelevant(p, data) {
		return data, false, nil
	}

	capture, err := a.client.SendCapture(ctx, a.ServerURL(), CaptureRequest{
		ElementSelector: data.ElementSelector,
		ElementText:     data.ElementText,
		PageURL:         data.PageURL,
	})
	if err != nil {
		a.log.Warn().Err(err).Str("selector", data.ElementSelector).Msg("failed to capture click")
		return data, false, err
	}
	a.log.Debug().Int("capture_id", capture.ID).Str("section", data.Section).Msg("click captured")

	if a.background != nil {
		if _, err := a.background.Handle(ctx, Message{Action: ActionUpdateStats, TaskGenerated: capture.Processed}); err != nil {
			a.log.Warn().Err(err).Msg("stats update failed")
		}
	}
	return data, true, nil
}
