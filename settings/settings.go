// Package settings persists user preferences. Device references are
// validated against the live inventory on every write; stale ids are
// coerced to the empty string, which means system default.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

type Settings struct {
	VirtualAudioEnabled  bool   `json:"virtualAudioEnabled"`
	VirtualAudioDeviceID string `json:"virtualAudioDeviceId"`
	OutputDeviceID       string `json:"outputDeviceId"`
	InputDeviceID        string `json:"inputDeviceId"`
	MonitorDeviceID      string `json:"monitorDeviceId"`
	HotkeysEnabled       bool   `json:"hotkeysEnabled"`
	PlaybackLoopback     bool   `json:"playbackLoopback"`
	MicLoopback          bool   `json:"micLoopback"`
}

func Defaults() Settings {
	return Settings{
		HotkeysEnabled:   true,
		PlaybackLoopback: true,
	}
}

// Store guards the settings document. validate reports whether a device id
// exists in the current inventory; a nil validate accepts everything.
type Store struct {
	path     string
	validate func(id string) bool

	mu      sync.Mutex
	current Settings
}

// Open loads settings from path. A missing or unreadable file yields the
// defaults; the next save rewrites it.
func Open(path string, validate func(id string) bool) *Store {
	s := &Store{path: path, validate: validate, current: Defaults()}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	loaded := Defaults()
	if err := json.Unmarshal(data, &loaded); err != nil {
		return s
	}
	s.current = loaded
	return s
}

func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

func (s *Store) deviceID(id string) string {
	if id == "" || id == "default" {
		return ""
	}
	if s.validate != nil && !s.validate(id) {
		return ""
	}
	return id
}

var errBadValue = errors.New("invalid settings value")

// Update applies a partial document. Unknown keys are ignored, wrongly
// typed values are an error, unknown device ids degrade to "".
func (s *Store) Update(changes map[string]any) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	for key, value := range changes {
		switch key {
		case "virtualAudioEnabled", "hotkeysEnabled", "playbackLoopback", "micLoopback":
			b, ok := value.(bool)
			if !ok {
				return s.current, fmt.Errorf("%w: %s wants bool", errBadValue, key)
			}
			switch key {
			case "virtualAudioEnabled":
				next.VirtualAudioEnabled = b
			case "hotkeysEnabled":
				next.HotkeysEnabled = b
			case "playbackLoopback":
				next.PlaybackLoopback = b
			case "micLoopback":
				next.MicLoopback = b
			}
		case "virtualAudioDeviceId", "outputDeviceId", "inputDeviceId", "monitorDeviceId":
			str, ok := value.(string)
			if !ok {
				return s.current, fmt.Errorf("%w: %s wants string", errBadValue, key)
			}
			id := s.deviceID(str)
			switch key {
			case "virtualAudioDeviceId":
				next.VirtualAudioDeviceID = id
			case "outputDeviceId":
				next.OutputDeviceID = id
			case "inputDeviceId":
				next.InputDeviceID = id
			case "monitorDeviceId":
				next.MonitorDeviceID = id
			}
		}
	}

	s.current = next
	if err := s.persist(); err != nil {
		return s.current, err
	}
	return s.current, nil
}

// Set replaces the whole document, applying the same device validation.
func (s *Store) Set(next Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next.VirtualAudioDeviceID = s.deviceID(next.VirtualAudioDeviceID)
	next.OutputDeviceID = s.deviceID(next.OutputDeviceID)
	next.InputDeviceID = s.deviceID(next.InputDeviceID)
	next.MonitorDeviceID = s.deviceID(next.MonitorDeviceID)

	s.current = next
	if err := s.persist(); err != nil {
		return s.current, err
	}
	return s.current, nil
}
