package hotkey

import (
	"errors"
	"testing"
)

func TestJoinSplit(t *testing.T) {
	combo := Join([]string{"ctrl", "shift"}, "f1")
	if combo != "ctrl+shift+f1" {
		t.Fatalf("Join = %q", combo)
	}
	mods, key := Split(combo)
	if len(mods) != 2 || mods[0] != "ctrl" || mods[1] != "shift" {
		t.Errorf("mods = %v", mods)
	}
	if key != "f1" {
		t.Errorf("key = %q", key)
	}
}

func TestSplitBareKey(t *testing.T) {
	mods, key := Split("f5")
	if len(mods) != 0 {
		t.Errorf("mods = %v, want none", mods)
	}
	if key != "f5" {
		t.Errorf("key = %q", key)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ctrl+shift+f1", "ctrl+shift+f1"},
		{"Shift+Control+A", "ctrl+shift+a"},
		{"CMD+B", "super+b"},
		{"alt+Option+x", "alt+x"},
		{"f9", "f9"},
		{" ctrl+p ", "ctrl+p"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if err != nil {
			t.Errorf("Normalize(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "+", "ctrl+", "bogus+a"} {
		if _, err := Normalize(in); !errors.Is(err, ErrBadCombo) {
			t.Errorf("Normalize(%q) = %v, want ErrBadCombo", in, err)
		}
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	for _, combo := range []string{"ctrl+shift+f1", "alt+space", "super+z", "f12"} {
		once, err := Normalize(combo)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatal(err)
		}
		if once != twice {
			t.Errorf("Normalize not idempotent: %q vs %q", once, twice)
		}
	}
}
