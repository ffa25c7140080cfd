package extension

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// SettingsStorage persists extension settings between runs.
type SettingsStorage interface {
	Load() (Settings, bool, error)
	Save(Settings) error
}

// MemoryStorage keeps settings for the lifetime of the process.
type MemoryStorage struct {
	mu  sync.Mutex
	s   Settings
	set bool
}

func (m *MemoryStorage) Load() (Settings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, m.set, nil
}

func (m *MemoryStorage) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.set = s, true
	return nil
}

// FileStorage keeps settings in a YAML file.
type FileStorage struct {
	Path string
}

func (f FileStorage) Load() (Settings, bool, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, fmt.Errorf("read settings: %w", err)
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Settings{}, false, fmt.Errorf("parse settings %s: %w", f.Path, err)
	}
	return s, true, nil
}

func (f FileStorage) Save(s Settings) error {
	raw, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, f.Path)
}
