package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"soundboard/audio"
	"soundboard/clip"
	"soundboard/config"
	"soundboard/encoder"
	"soundboard/hotkey"
	"soundboard/log"
	"soundboard/playback"
)

var testOut sync.Mutex

func emit(format string, args ...any) {
	testOut.Lock()
	fmt.Printf(format+"\n", args...)
	testOut.Unlock()
}

// printSink mirrors every boundary event onto stdout, one line each, so
// the integration tests can assert on them.
type printSink struct{}

func (printSink) RecordingStateChanged(s RecordingState) {
	if s.IsRecording {
		emit("RECORDING true %s", s.Mode)
	} else {
		emit("RECORDING false")
	}
}

func (printSink) AudioLevel(level float64) {
	emit("LEVEL %.2f", level)
}

func (printSink) PlaybackStateChanged(s PlaybackState) {
	if s.IsPlaying {
		emit("PLAYBACK true %s", s.CurrentClipID)
	} else {
		emit("PLAYBACK false")
	}
}

func (printSink) PlaybackError(message, details string) {
	emit("PLAYBACK_ERROR %s | %s", message, details)
}

func (printSink) RecordingError(message, details string) {
	emit("RECORDING_ERROR %s | %s", message, details)
}

func (printSink) ClipSaved(c clip.Clip) {
	emit("CLIP_SAVED %s %.1f", c.Name, c.Duration)
}

func (printSink) HotkeyPressed(clipID string) {
	emit("HOTKEY %s", clipID)
}

// runTestMode drives the full App through fake audio, playback, and
// hotkey backends, reading one command per stdin line. Real files are
// still written under the configured data dir.
func runTestMode(cfg *config.Config) {
	ctx := audio.NewFakeContext()
	backend := hotkey.NewFake()
	engine := playback.NewFakeEngine()
	runner := playback.NewFakeRunner()

	app, err := NewApp(cfg, ctx, backend, engine, runner.Run, printSink{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	app.Start()

	quit := func() {
		app.Shutdown()
		log.Close()
		os.Exit(0)
	}

	clipID := func(name string) string {
		for _, c := range app.GetClips() {
			if c.Name == name || c.ID == name {
				return c.ID
			}
		}
		return name
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "DEVICES":
			for _, d := range app.GetAudioDevices() {
				emit("DEVICE %s %s %s", d.ID, d.Kind, d.Name)
			}

		case "CLIPS":
			for _, c := range app.GetClips() {
				emit("CLIP %s %s %.1f", c.ID, c.Name, c.Duration)
			}

		case "RECORD":
			app.StartRecording()

		case "RECORD_SYS":
			app.StartSystemCapture()

		case "FEED":
			seconds := 1.0
			if len(args) > 0 {
				if v, err := strconv.ParseFloat(args[0], 64); err == nil {
					seconds = v
				}
			}
			feedSine(ctx, seconds)

		case "STOPREC":
			app.StopRecording()

		case "PLAY":
			if len(args) > 0 {
				if err := app.PlayClip(clipID(args[0])); err != nil {
					emit("ERR %v", err)
				}
			}

		case "STOP":
			app.StopPlayback()

		case "FINISH":
			if s := engine.Last(); s != nil {
				s.SimFinish(nil)
			}
			if c := runner.Last(); c != nil {
				c.Handle.SimExit(nil)
			}

		case "BIND":
			if len(args) >= 2 {
				mods, key := hotkey.Split(args[1])
				emit("BOUND %v", app.RegisterHotkey(clipID(args[0]), key, mods))
			}

		case "UNBIND":
			if len(args) >= 1 {
				emit("UNBOUND %v", app.UnregisterHotkey(clipID(args[0])))
			}

		case "PRESS":
			if len(args) >= 1 {
				backend.SimPress(args[0])
			}

		case "SETTING":
			if len(args) >= 2 {
				var value any = strings.Join(args[1:], " ")
				if b, err := strconv.ParseBool(args[1]); err == nil && len(args) == 2 {
					value = b
				}
				if _, err := app.UpdateSettings(map[string]any{args[0]: value}); err != nil {
					emit("ERR %v", err)
				}
			}

		case "STATE":
			emit("STATE playing=%v recording=%v",
				app.PlaybackSnapshot().IsPlaying, app.RecordingSnapshot().IsRecording)

		case "SLEEP":
			if len(args) > 0 {
				if ms, err := strconv.Atoi(args[0]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}

		case "QUIT":
			quit()
		}
	}
	quit()
}

// feedSine pushes a 440 Hz tone into the live fake capture, in the same
// block size the real backend delivers.
func feedSine(ctx *audio.FakeContext, seconds float64) {
	cap := ctx.LastCapture()
	if cap == nil {
		return
	}
	total := int(seconds * float64(encoder.SampleRate))
	block := make([]int16, 4096)
	for off := 0; off < total; off += len(block) {
		n := len(block)
		if total-off < n {
			n = total - off
		}
		for i := 0; i < n; i++ {
			t := float64(off+i) / float64(encoder.SampleRate)
			block[i] = int16(12000 * math.Sin(2*math.Pi*440*t))
		}
		cap.SimFeedSamples(block[:n])
	}
}
