package hotkey

import (
	"errors"
	"strings"
)

var ErrBadCombo = errors.New("unparseable key combination")

// modOrder fixes the canonical modifier order in stored combos.
var modOrder = []string{"ctrl", "shift", "alt", "super"}

var modAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"super":   "super",
	"meta":    "super",
	"cmd":     "super",
	"command": "super",
	"win":     "super",
}

// Join builds a combo string from modifier names and a key, "ctrl+shift+f1".
func Join(mods []string, key string) string {
	parts := append(append([]string{}, mods...), key)
	return strings.Join(parts, "+")
}

// Split breaks a combo into its modifiers and the final key token.
func Split(combo string) (mods []string, key string) {
	parts := strings.Split(combo, "+")
	if len(parts) == 0 {
		return nil, ""
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// Normalize lowercases a combo, resolves modifier aliases and fixes the
// modifier order, so "Shift+Control+A" and "ctrl+shift+a" collide.
func Normalize(combo string) (string, error) {
	mods, key := Split(strings.ToLower(strings.TrimSpace(combo)))
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrBadCombo
	}

	seen := make(map[string]bool, len(mods))
	for _, m := range mods {
		canonical, ok := modAliases[strings.TrimSpace(m)]
		if !ok {
			return "", ErrBadCombo
		}
		seen[canonical] = true
	}

	var ordered []string
	for _, m := range modOrder {
		if seen[m] {
			ordered = append(ordered, m)
		}
	}
	return Join(ordered, key), nil
}
