package clip

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "clips.json"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSaveAssignsID(t *testing.T) {
	s := tempStore(t)
	c, err := s.Save(Clip{Name: "Airhorn", Path: "/tmp/airhorn.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == "" {
		t.Error("Save left ID empty")
	}
	if c.CreatedAt.IsZero() {
		t.Error("Save left CreatedAt zero")
	}

	got, err := s.Get(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Airhorn" {
		t.Errorf("Name = %q", got.Name)
	}
}

func TestPersistAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clips.json")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	saved, err := s.Save(Clip{Name: "Drum", Path: "/tmp/drum.wav", Duration: 1.5})
	if err != nil {
		t.Fatal(err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.Get(saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Drum" || got.Duration != 1.5 {
		t.Errorf("reloaded clip = %+v", got)
	}
}

func TestAllSortedByCreation(t *testing.T) {
	s := tempStore(t)
	base := time.Now()
	s.Save(Clip{Name: "second", CreatedAt: base.Add(time.Minute)})
	s.Save(Clip{Name: "first", CreatedAt: base})
	s.Save(Clip{Name: "third", CreatedAt: base.Add(2 * time.Minute)})

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("got %d clips", len(all))
	}
	if all[0].Name != "first" || all[1].Name != "second" || all[2].Name != "third" {
		t.Errorf("order = %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}
}

func TestDeleteRemovesRecordAndFile(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := tempStore(t)
	c, err := s.Save(Clip{Name: "gone", Path: wav})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(wav); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still exists after delete: %v", err)
	}
}

func TestDeleteMissingFileStillRemovesRecord(t *testing.T) {
	s := tempStore(t)
	c, err := s.Save(Clip{Name: "orphan", Path: filepath.Join(t.TempDir(), "never-written.wav")})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(c.ID); err != nil {
		t.Fatalf("Delete with missing file: %v", err)
	}
	if s.Count() != 0 {
		t.Error("record survived delete")
	}
}

func TestDeleteUnknown(t *testing.T) {
	s := tempStore(t)
	if err := s.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete unknown = %v, want ErrNotFound", err)
	}
}

func TestSetHotkeyLastWriterWins(t *testing.T) {
	s := tempStore(t)
	a, _ := s.Save(Clip{Name: "a"})
	b, _ := s.Save(Clip{Name: "b"})

	if _, err := s.SetHotkey(a.ID, "ctrl+f1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetHotkey(b.ID, "ctrl+f1"); err != nil {
		t.Fatal(err)
	}

	gotA, _ := s.Get(a.ID)
	gotB, _ := s.Get(b.ID)
	if gotA.Hotkey != "" {
		t.Errorf("first clip kept hotkey %q", gotA.Hotkey)
	}
	if gotB.Hotkey != "ctrl+f1" {
		t.Errorf("second clip hotkey = %q", gotB.Hotkey)
	}
}

func TestNextName(t *testing.T) {
	s := tempStore(t)
	if got := s.NextName("Clip"); got != "Clip_01" {
		t.Errorf("NextName on empty store = %q", got)
	}
	s.Save(Clip{Name: "Clip_01"})
	if got := s.NextName("Clip"); got != "Clip_02" {
		t.Errorf("NextName after one clip = %q", got)
	}
	s.Save(Clip{Name: "whatever"})
	if got := s.NextName("System_Audio"); got != "System_Audio_03" {
		t.Errorf("NextName = %q", got)
	}
}

func TestOpenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clips.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open accepted corrupt store")
	}
}
