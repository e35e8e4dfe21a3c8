package audio

import "testing"

func TestParseRef(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want DeviceRef
	}{
		{"empty", "", DeviceRef{Kind: RefDefault}},
		{"default", "default", DeviceRef{Kind: RefDefault}},
		{"pulse", "pulse-3", DeviceRef{Kind: RefPulse, Index: 3}},
		{"pulse zero", "pulse-0", DeviceRef{Kind: RefPulse, Index: 0}},
		{"alsa", "alsa-1", DeviceRef{Kind: RefAlsa, Index: 1}},
		{"named", "soundboard-output", DeviceRef{Kind: RefNamed, Name: "soundboard-output"}},
		{"pulse malformed", "pulse-abc", DeviceRef{Kind: RefNamed, Name: "pulse-abc"}},
		{"alsa malformed", "alsa-", DeviceRef{Kind: RefNamed, Name: "alsa-"}},
		{"pulse negative", "pulse--1", DeviceRef{Kind: RefNamed, Name: "pulse--1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRef(tt.id)
			if got != tt.want {
				t.Errorf("ParseRef(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
		})
	}
}

func TestRefString(t *testing.T) {
	ids := []string{"default", "pulse-0", "pulse-17", "alsa-2", "soundboard-output", "vb-cable"}
	for _, id := range ids {
		if got := ParseRef(id).String(); got != id {
			t.Errorf("ParseRef(%q).String() = %q", id, got)
		}
	}
	if got := ParseRef("").String(); got != "default" {
		t.Errorf("ParseRef(\"\").String() = %q, want default", got)
	}
}

func TestRefIsDefault(t *testing.T) {
	if !ParseRef("").IsDefault() {
		t.Error("empty id should be default")
	}
	if !ParseRef("default").IsDefault() {
		t.Error("default id should be default")
	}
	if ParseRef("pulse-1").IsDefault() {
		t.Error("pulse-1 should not be default")
	}
}
