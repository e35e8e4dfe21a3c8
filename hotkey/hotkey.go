// Package hotkey registers global key combinations and routes their
// presses to clip actions. On Linux it reads evdev devices directly; other
// platforms go through golang.design/x/hotkey.
package hotkey

import "errors"

var (
	ErrUnsupportedKey = errors.New("unsupported key in combination")
	ErrNoKeyboards    = errors.New("no keyboard devices found (is user in 'input' group?)")
)

// Backend registers combos with the OS. Register must not fire fn for a
// combo after its binding is unregistered.
type Backend interface {
	Register(combo string, fn func()) (Binding, error)
	Close()
}

type Binding interface {
	Unregister()
}
