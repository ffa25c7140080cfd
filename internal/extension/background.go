package extension

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"sf-clicktask-backend/internal/logging"
)

var captureDomains = []string{
	"successfactors.com",
	"successfactors.eu",
	"sfsf.com",
	"sap.com",
	"hr.cloud.sap",
	"cloud.sap",
}

// DefaultHostPatterns match the SuccessFactors hosts and their subdomains.
// They are matched against scheme://host/path.
var DefaultHostPatterns = hostPatterns(captureDomains)

func hostPatterns(domains []string) []string {
	out := make([]string, 0, 2*len(domains))
	for _, d := range domains {
		out = append(out, "*://"+d+"/**", "*://*."+d+"/**")
	}
	return out
}

// MessageHandler receives messages sent to a tab.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message) (any, error)
}

type Tab struct {
	ID      int
	URL     string
	Handler MessageHandler
}

// Background owns the extension settings and session statistics and fans
// settings changes out to the registered tabs.
type Background struct {
	storage  SettingsStorage
	patterns []string
	log      zerolog.Logger

	mu       sync.Mutex
	settings Settings
	stats    SessionStats
	tabs     map[int]Tab
}

// NewBackground loads stored settings, writing the defaults on first run.
// With no patterns DefaultHostPatterns are used.
func NewBackground(storage SettingsStorage, patterns ...string) (*Background, error) {
	if len(patterns) == 0 {
		patterns = DefaultHostPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid host pattern %q", p)
		}
	}
	if storage == nil {
		storage = &MemoryStorage{}
	}

	s, ok, err := storage.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		s = DefaultSettings()
		if err := storage.Save(s); err != nil {
			return nil, fmt.Errorf("install default settings: %w", err)
		}
	}

	return &Background{
		storage:  storage,
		patterns: patterns,
		log:      logging.Component("extension"),
		settings: s,
		tabs:     map[int]Tab{},
	}, nil
}

func (b *Background) Settings() Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

func (b *Background) Stats() SessionStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// MatchesHost reports whether rawURL belongs to a capture target host.
func (b *Background) MatchesHost(rawURL string) bool {
	return matchHost(b.patterns, rawURL)
}

func matchHost(patterns []string, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	key := u.Scheme + "://" + strings.ToLower(u.Hostname()) + path

	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, key); ok {
			return true
		}
	}
	return false
}

// RegisterTab records a tab that finished loading. Tabs on a capture host
// immediately get the current capture state and server URL.
func (b *Background) RegisterTab(ctx context.Context, tab Tab) {
	b.mu.Lock()
	b.tabs[tab.ID] = tab
	s := b.settings
	b.mu.Unlock()

	if !b.MatchesHost(tab.URL) {
		return
	}
	b.push(ctx, []Tab{tab}, s.CaptureEnabled, s.ServerURL)
}

func (b *Background) RemoveTab(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tabs, id)
}

// Handle dispatches a popup or content script message.
func (b *Background) Handle(ctx context.Context, msg Message) (any, error) {
	switch msg.Action {
	case ActionGetSettings:
		return b.Settings(), nil

	case ActionSaveSettings:
		var patch SettingsPatch
		if msg.Settings != nil {
			patch = *msg.Settings
		}

		b.mu.Lock()
		next := b.settings.Apply(patch)
		if err := b.storage.Save(next); err != nil {
			b.mu.Unlock()
			return nil, fmt.Errorf("save settings: %w", err)
		}
		b.settings = next
		targets := b.captureTabs()
		b.mu.Unlock()

		serverURL := ""
		if patch.ServerURL != nil {
			serverURL = *patch.ServerURL
		}
		b.push(ctx, targets, next.CaptureEnabled, serverURL)
		return Ack{Success: true}, nil

	case ActionUpdateStats:
		b.mu.Lock()
		defer b.mu.Unlock()
		b.stats.ClicksCount++
		if msg.TaskGenerated {
			b.stats.TasksCount++
		}
		return b.stats, nil
	}
	return nil, UnknownActionError{Action: msg.Action}
}

// captureTabs must be called with b.mu held.
func (b *Background) captureTabs() []Tab {
	var out []Tab
	for _, t := range b.tabs {
		if matchHost(b.patterns, t.URL) {
			out = append(out, t)
		}
	}
	return out
}

func (b *Background) push(ctx context.Context, tabs []Tab, enabled bool, serverURL string) {
	for _, t := range tabs {
		if t.Handler == nil {
			continue
		}
		on := enabled
		if _, err := t.Handler.HandleMessage(ctx, Message{Action: ActionToggleCapture, Enabled: &on}); err != nil {
			b.log.Warn().Err(err).Int("tab", t.ID).Msg("toggleCapture not delivered")
		}
		if serverURL == "" {
			continue
		}
		if _, err := t.Handler.HandleMessage(ctx, Message{Action: ActionUpdateServerURL, URL: serverURL}); err != nil {
			b.log.Warn().Err(err).Int("tab", t.ID).Msg("updateServerUrl not delivered")
		}
	}
}
