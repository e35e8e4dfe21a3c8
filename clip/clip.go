// Package clip persists soundboard clip metadata and owns the naming of
// new recordings. The backing WAV files live in the clips directory; the
// records live in clips.json next to it.
package clip

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("clip not found")

type Clip struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"filePath"`
	Hotkey    string    `json:"hotkey,omitempty"`
	Duration  float64   `json:"durationSeconds"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	path string

	mu    sync.Mutex
	clips map[string]Clip
}

// Open loads the store from path, creating an empty one if the file does
// not exist. A corrupt file is an error; the caller decides whether to
// start over.
func Open(path string) (*Store, error) {
	s := &Store{path: path, clips: make(map[string]Clip)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading clip store: %w", err)
	}

	var clips []Clip
	if err := json.Unmarshal(data, &clips); err != nil {
		return nil, fmt.Errorf("parsing clip store: %w", err)
	}
	for _, c := range clips {
		s.clips[c.ID] = c
	}
	return s, nil
}

// persist writes the store under the lock.
func (s *Store) persist() error {
	clips := s.sorted()
	data, err := json.MarshalIndent(clips, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing clip store: %w", err)
	}
	return nil
}

func (s *Store) sorted() []Clip {
	clips := make([]Clip, 0, len(s.clips))
	for _, c := range s.clips {
		clips = append(clips, c)
	}
	sort.Slice(clips, func(i, j int) bool {
		if clips[i].CreatedAt.Equal(clips[j].CreatedAt) {
			return clips[i].ID < clips[j].ID
		}
		return clips[i].CreatedAt.Before(clips[j].CreatedAt)
	})
	return clips
}

// All returns the clips ordered by creation time.
func (s *Store) All() []Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

func (s *Store) Get(id string) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[id]
	if !ok {
		return Clip{}, ErrNotFound
	}
	return c, nil
}

// Save inserts or updates a clip. A missing ID gets a fresh one, a zero
// CreatedAt gets the current time.
func (s *Store) Save(c Clip) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.clips[c.ID] = c
	if err := s.persist(); err != nil {
		return Clip{}, err
	}
	return c, nil
}

// Delete removes the record and the backing file. The record goes even
// when the file is already gone.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[id]
	if !ok {
		return ErrNotFound
	}
	if c.Path != "" {
		if err := os.Remove(c.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing clip file: %w", err)
		}
	}
	delete(s.clips, id)
	return s.persist()
}

func (s *Store) Rename(id, name string) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[id]
	if !ok {
		return Clip{}, ErrNotFound
	}
	c.Name = name
	s.clips[id] = c
	if err := s.persist(); err != nil {
		return Clip{}, err
	}
	return c, nil
}

// SetHotkey records the combo bound to a clip; empty clears it. Any other
// clip holding the same combo loses it, keeping one binding per combo.
func (s *Store) SetHotkey(id, combo string) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[id]
	if !ok {
		return Clip{}, ErrNotFound
	}
	if combo != "" {
		for otherID, other := range s.clips {
			if otherID != id && other.Hotkey == combo {
				other.Hotkey = ""
				s.clips[otherID] = other
			}
		}
	}
	c.Hotkey = combo
	s.clips[id] = c
	if err := s.persist(); err != nil {
		return Clip{}, err
	}
	return c, nil
}

// NextName produces the auto-generated name for a new recording,
// prefix_NN with NN counting from the current clip total plus one.
func (s *Store) NextName(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%s_%02d", prefix, len(s.clips)+1)
}
