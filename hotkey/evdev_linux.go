//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

type modMask uint8

const (
	modCtrl modMask = 1 << iota
	modShift
	modAlt
	modSuper
)

// modifier keycodes from linux/input-event-codes.h
var modCodes = map[uint16]modMask{
	29:  modCtrl, // KEY_LEFTCTRL
	97:  modCtrl, // KEY_RIGHTCTRL
	42:  modShift,
	54:  modShift,
	56:  modAlt,
	100: modAlt,
	125: modSuper,
	126: modSuper,
}

var keyCodes = map[string]uint16{
	"esc": 1, "escape": 1,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6,
	"6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"minus": 12, "equal": 13, "backspace": 14, "tab": 15,
	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20,
	"y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"a": 30, "s": 31, "d": 32, "f": 33, "g": 34,
	"h": 35, "j": 36, "k": 37, "l": 38,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48,
	"n": 49, "m": 50,
	"comma": 51, "period": 52, "slash": 53,
	"space": 57, "enter": 28,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63,
	"f6": 64, "f7": 65, "f8": 66, "f9": 67, "f10": 68,
	"f11": 87, "f12": 88,
	"home": 102, "up": 103, "pageup": 104,
	"left": 105, "right": 106, "end": 107,
	"down": 108, "pagedown": 109,
	"insert": 110, "delete": 111,
}

var modMasks = map[string]modMask{
	"ctrl": modCtrl, "shift": modShift, "alt": modAlt, "super": modSuper,
}

type evdevBackend struct {
	mu       sync.Mutex
	bindings map[string]*evdevBinding
	files    []*os.File
	stop     chan struct{}
	started  bool
	closed   bool
}

// NewBackend reads /dev/input directly. Requires the user to be in the
// 'input' group.
func NewBackend() Backend {
	return &evdevBackend{bindings: make(map[string]*evdevBinding)}
}

type evdevBinding struct {
	owner *evdevBackend
	combo string
	mods  modMask
	code  uint16
	fn    func()
}

func parseCombo(combo string) (modMask, uint16, error) {
	normalized, err := Normalize(combo)
	if err != nil {
		return 0, 0, err
	}
	mods, key := Split(normalized)
	code, ok := keyCodes[key]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedKey, key)
	}
	var mask modMask
	for _, m := range mods {
		mask |= modMasks[m]
	}
	return mask, code, nil
}

func (b *evdevBackend) Register(combo string, fn func()) (Binding, error) {
	mask, code, err := parseCombo(combo)
	if err != nil {
		return nil, err
	}
	normalized, _ := Normalize(combo)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("hotkey backend closed")
	}
	if !b.started {
		if err := b.startLocked(); err != nil {
			return nil, err
		}
	}

	binding := &evdevBinding{owner: b, combo: normalized, mods: mask, code: code, fn: fn}
	b.bindings[normalized] = binding
	return binding, nil
}

func (b *evdevBackend) startLocked() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return ErrNoKeyboards
	}

	b.stop = make(chan struct{})
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		b.files = append(b.files, f)
		go b.readEvents(f)
	}
	if len(b.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	b.started = true
	return nil
}

func (b *evdevBackend) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var held modMask

	for {
		select {
		case <-b.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}

			if mask, ok := modCodes[evCode]; ok {
				switch evValue {
				case keyPress:
					held |= mask
				case keyRelease:
					held &^= mask
				}
				continue
			}

			if evValue != keyPress {
				continue
			}
			b.dispatch(evCode, held)
		}
	}
}

func (b *evdevBackend) dispatch(code uint16, held modMask) {
	b.mu.Lock()
	var fns []func()
	for _, binding := range b.bindings {
		if binding.code == code && held&binding.mods == binding.mods {
			fns = append(fns, binding.fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range fns {
		go fn()
	}
}

func (binding *evdevBinding) Unregister() {
	b := binding.owner
	b.mu.Lock()
	defer b.mu.Unlock()
	if current, ok := b.bindings[binding.combo]; ok && current == binding {
		delete(b.bindings, binding.combo)
	}
}

func (b *evdevBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.bindings = make(map[string]*evdevBinding)
	if b.stop != nil {
		close(b.stop)
	}
	for _, f := range b.files {
		f.Close()
	}
	b.files = nil
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	// Real keyboards have long key capability bitmaps
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

// Diagnose checks evdev access and returns a status message.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", ErrNoKeyboards
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
