// Package extension models the browser side of click capture: the DOM
// extraction and relevance filter the content script runs, the background
// dispatcher that owns extension settings, and the HTTP client that posts
// captures to the API.
package extension

import "fmt"

type Action string

const (
	ActionGetSettings     Action = "getSettings"
	ActionSaveSettings    Action = "saveSettings"
	ActionToggleCapture   Action = "toggleCapture"
	ActionUpdateServerURL Action = "updateServerUrl"
	ActionUpdateStats     Action = "updateStats"
)

// Message is the envelope exchanged between popup, background and content
// scripts. Only the fields of the given action are set.
type Message struct {
	Action        Action         `json:"action"`
	Settings      *SettingsPatch `json:"settings,omitempty"`
	Enabled       *bool          `json:"enabled,omitempty"`
	URL           string         `json:"url,omitempty"`
	TaskGenerated bool           `json:"taskGenerated,omitempty"`
}

type Settings struct {
	CaptureEnabled     bool   `json:"captureEnabled" yaml:"capture_enabled"`
	ServerURL          string `json:"serverUrl" yaml:"server_url"`
	AutoTaskGeneration bool   `json:"autoTaskGeneration" yaml:"auto_task_generation"`
}

const DefaultServerURL = "http://127.0.0.1:5000"

// DefaultSettings are written on install.
func DefaultSettings() Settings {
	return Settings{
		CaptureEnabled:     false,
		ServerURL:          DefaultServerURL,
		AutoTaskGeneration: true,
	}
}

type SettingsPatch struct {
	CaptureEnabled     *bool   `json:"captureEnabled,omitempty"`
	ServerURL          *string `json:"serverUrl,omitempty"`
	AutoTaskGeneration *bool   `json:"autoTaskGeneration,omitempty"`
}

func (s Settings) Apply(p SettingsPatch) Settings {
	if p.CaptureEnabled != nil {
		s.CaptureEnabled = *p.CaptureEnabled
	}
	if p.ServerURL != nil {
		s.ServerURL = *p.ServerURL
	}
	if p.AutoTaskGeneration != nil {
		s.AutoTaskGeneration = *p.AutoTaskGeneration
	}
	return s
}

type SessionStats struct {
	ClicksCount int `json:"clicksCount"`
	TasksCount  int `json:"tasksCount"`
}

type Ack struct {
	Success bool `json:"success"`
}

type UnknownActionError struct {
	Action Action
}

func (e UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", string(e.Action))
}
