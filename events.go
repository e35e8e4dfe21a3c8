package main

import (
	"time"

	"github.com/gen2brain/beeep"

	"soundboard/clip"
)

// RecordingState is the boundary snapshot of the recording slot.
type RecordingState struct {
	IsRecording     bool
	Mode            string
	DurationSeconds float64
	StartedAt       *time.Time
}

// PlaybackState is the boundary snapshot of the playback slot.
type PlaybackState struct {
	IsPlaying     bool
	CurrentClipID string
	StartedAt     *time.Time
}

// EventSink abstracts the display layer so a GUI, the stdin test driver,
// and the notification popups all receive the same events.
type EventSink interface {
	RecordingStateChanged(s RecordingState)
	AudioLevel(level float64)
	PlaybackStateChanged(s PlaybackState)
	PlaybackError(message, details string)
	RecordingError(message, details string)
	ClipSaved(c clip.Clip)
	HotkeyPressed(clipID string)
}

type NopSink struct{}

func (NopSink) RecordingStateChanged(RecordingState) {}
func (NopSink) AudioLevel(float64)                   {}
func (NopSink) PlaybackStateChanged(PlaybackState)   {}
func (NopSink) PlaybackError(string, string)         {}
func (NopSink) RecordingError(string, string)        {}
func (NopSink) ClipSaved(clip.Clip)                  {}
func (NopSink) HotkeyPressed(string)                 {}

// multiSink fans every event out to all members, in order.
type multiSink []EventSink

func (m multiSink) RecordingStateChanged(s RecordingState) {
	for _, sink := range m {
		sink.RecordingStateChanged(s)
	}
}

func (m multiSink) AudioLevel(level float64) {
	for _, sink := range m {
		sink.AudioLevel(level)
	}
}

func (m multiSink) PlaybackStateChanged(s PlaybackState) {
	for _, sink := range m {
		sink.PlaybackStateChanged(s)
	}
}

func (m multiSink) PlaybackError(message, details string) {
	for _, sink := range m {
		sink.PlaybackError(message, details)
	}
}

func (m multiSink) RecordingError(message, details string) {
	for _, sink := range m {
		sink.RecordingError(message, details)
	}
}

func (m multiSink) ClipSaved(c clip.Clip) {
	for _, sink := range m {
		sink.ClipSaved(c)
	}
}

func (m multiSink) HotkeyPressed(clipID string) {
	for _, sink := range m {
		sink.HotkeyPressed(clipID)
	}
}

// notifySink raises desktop notifications for the events a user sitting
// away from the terminal still wants to see. Fire-and-forget; a missing
// notification daemon must never stall a controller.
type notifySink struct{}

func (notifySink) RecordingStateChanged(RecordingState) {}
func (notifySink) AudioLevel(float64)                   {}
func (notifySink) PlaybackStateChanged(PlaybackState)   {}
func (notifySink) HotkeyPressed(string)                 {}

func (notifySink) PlaybackError(message, details string) {
	go beeep.Alert("Soundboard", message, "")
}

func (notifySink) RecordingError(message, details string) {
	go beeep.Alert("Soundboard", message, "")
}

func (notifySink) ClipSaved(c clip.Clip) {
	go beeep.Notify("Soundboard", "Saved "+c.Name, "")
}
