//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	xhotkey "golang.design/x/hotkey"
)

var keyByName = map[string]xhotkey.Key{
	"space": xhotkey.KeySpace, "enter": xhotkey.KeyReturn,
	"escape": xhotkey.KeyEscape, "esc": xhotkey.KeyEscape,
	"tab": xhotkey.KeyTab, "delete": xhotkey.KeyDelete,
	"up": xhotkey.KeyUp, "down": xhotkey.KeyDown,
	"left": xhotkey.KeyLeft, "right": xhotkey.KeyRight,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2,
	"3": xhotkey.Key3, "4": xhotkey.Key4, "5": xhotkey.Key5,
	"6": xhotkey.Key6, "7": xhotkey.Key7, "8": xhotkey.Key8,
	"9": xhotkey.Key9,
	"a": xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC,
	"d": xhotkey.KeyD, "e": xhotkey.KeyE, "f": xhotkey.KeyF,
	"g": xhotkey.KeyG, "h": xhotkey.KeyH, "i": xhotkey.KeyI,
	"j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO,
	"p": xhotkey.KeyP, "q": xhotkey.KeyQ, "r": xhotkey.KeyR,
	"s": xhotkey.KeyS, "t": xhotkey.KeyT, "u": xhotkey.KeyU,
	"v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
	"f1": xhotkey.KeyF1, "f2": xhotkey.KeyF2, "f3": xhotkey.KeyF3,
	"f4": xhotkey.KeyF4, "f5": xhotkey.KeyF5, "f6": xhotkey.KeyF6,
	"f7": xhotkey.KeyF7, "f8": xhotkey.KeyF8, "f9": xhotkey.KeyF9,
	"f10": xhotkey.KeyF10, "f11": xhotkey.KeyF11, "f12": xhotkey.KeyF12,
}

type xBackend struct {
	mu       sync.Mutex
	bindings map[string]*xBinding
	closed   bool
}

// NewBackend registers through golang.design/x/hotkey (Cocoa/Win32).
func NewBackend() Backend {
	return &xBackend{bindings: make(map[string]*xBinding)}
}

type xBinding struct {
	owner *xBackend
	combo string
	hk    *xhotkey.Hotkey
	stop  chan struct{}
	once  sync.Once
}

func (b *xBackend) Register(combo string, fn func()) (Binding, error) {
	normalized, err := Normalize(combo)
	if err != nil {
		return nil, err
	}
	modNames, keyName := Split(normalized)

	key, ok := keyByName[keyName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKey, keyName)
	}
	var mods []xhotkey.Modifier
	for _, m := range modNames {
		mod, ok := modByName[m]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedKey, m)
		}
		mods = append(mods, mod)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("hotkey backend closed")
	}

	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("registering %s: %w", normalized, err)
	}

	binding := &xBinding{owner: b, combo: normalized, hk: hk, stop: make(chan struct{})}
	b.bindings[normalized] = binding

	go func() {
		for {
			select {
			case <-binding.stop:
				return
			case <-hk.Keydown():
				go fn()
			}
		}
	}()

	return binding, nil
}

func (binding *xBinding) Unregister() {
	binding.once.Do(func() {
		close(binding.stop)
		binding.hk.Unregister()
		b := binding.owner
		b.mu.Lock()
		if current, ok := b.bindings[binding.combo]; ok && current == binding {
			delete(b.bindings, binding.combo)
		}
		b.mu.Unlock()
	})
}

func (b *xBackend) Close() {
	b.mu.Lock()
	bindings := make([]*xBinding, 0, len(b.bindings))
	for _, binding := range b.bindings {
		bindings = append(bindings, binding)
	}
	b.closed = true
	b.mu.Unlock()

	for _, binding := range bindings {
		binding.Unregister()
	}
}

// Diagnose reports hotkey availability.
func Diagnose() (string, error) {
	return "global hotkey support available", nil
}
