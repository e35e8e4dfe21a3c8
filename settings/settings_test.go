package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func acceptAll(string) bool { return true }
func rejectAll(string) bool { return false }

func TestDefaults(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), acceptAll)
	got := s.Get()
	if !got.HotkeysEnabled {
		t.Error("hotkeys should default on")
	}
	if got.VirtualAudioEnabled {
		t.Error("virtual audio should default off")
	}
	if got.OutputDeviceID != "" {
		t.Errorf("output device defaults to %q, want empty", got.OutputDeviceID)
	}
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := Open(path, acceptAll)

	got, err := s.Update(map[string]any{
		"virtualAudioEnabled": true,
		"outputDeviceId":      "pulse-2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !got.VirtualAudioEnabled || got.OutputDeviceID != "pulse-2" {
		t.Errorf("updated = %+v", got)
	}

	reloaded := Open(path, acceptAll).Get()
	if !reloaded.VirtualAudioEnabled || reloaded.OutputDeviceID != "pulse-2" {
		t.Errorf("reloaded = %+v", reloaded)
	}
}

func TestUnknownDeviceCoercedToEmpty(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), rejectAll)
	got, err := s.Update(map[string]any{"outputDeviceId": "pulse-99"})
	if err != nil {
		t.Fatal(err)
	}
	if got.OutputDeviceID != "" {
		t.Errorf("stale id survived: %q", got.OutputDeviceID)
	}
}

func TestDefaultIDStaysEmpty(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), rejectAll)
	got, err := s.Update(map[string]any{"inputDeviceId": "default"})
	if err != nil {
		t.Fatal(err)
	}
	if got.InputDeviceID != "" {
		t.Errorf("default id stored as %q", got.InputDeviceID)
	}
}

func TestUpdateWrongType(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), acceptAll)
	if _, err := s.Update(map[string]any{"hotkeysEnabled": "yes"}); err == nil {
		t.Error("string for bool key accepted")
	}
	if s.Get().HotkeysEnabled != true {
		t.Error("failed update mutated settings")
	}
}

func TestUpdateIgnoresUnknownKeys(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), acceptAll)
	if _, err := s.Update(map[string]any{"volume": 11}); err != nil {
		t.Fatalf("unknown key rejected: %v", err)
	}
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("][ nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := Open(path, acceptAll).Get()
	if got != Defaults() {
		t.Errorf("corrupt file produced %+v", got)
	}
}

func TestSetValidatesAllDeviceIDs(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), func(id string) bool {
		return id == "pulse-1"
	})
	got, err := s.Set(Settings{
		OutputDeviceID:  "pulse-1",
		InputDeviceID:   "pulse-7",
		MonitorDeviceID: "gone",
		HotkeysEnabled:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.OutputDeviceID != "pulse-1" {
		t.Errorf("valid id dropped: %q", got.OutputDeviceID)
	}
	if got.InputDeviceID != "" || got.MonitorDeviceID != "" {
		t.Errorf("stale ids kept: %+v", got)
	}
}
