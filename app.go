package main

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"soundboard/audio"
	"soundboard/clip"
	"soundboard/config"
	"soundboard/hotkey"
	"soundboard/log"
	"soundboard/playback"
	"soundboard/record"
	"soundboard/settings"
)

// App wires the stores and controllers together and is the boundary the
// UI layer (or the stdin test driver) talks to. State-changing calls come
// in as methods; everything the user should see goes out through the
// EventSink.
type App struct {
	cfg      *config.Config
	ctx      audio.Context
	clips    *clip.Store
	settings *settings.Store
	playback *playback.Controller
	recorder *record.Controller
	router   *hotkey.Router
	virtual  *audio.VirtualRouting
	sink     EventSink

	played   atomic.Int64
	recorded atomic.Int64

	shutdownOnce sync.Once
}

func NewApp(cfg *config.Config, ctx audio.Context, backend hotkey.Backend, engine playback.Engine, run playback.Runner, sink EventSink) (*App, error) {
	clips, err := clip.Open(cfg.ClipsFile())
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, ctx: ctx, clips: clips, sink: sink}
	a.settings = settings.Open(cfg.SettingsFile(), func(id string) bool {
		return audio.HasDevice(ctx.Devices(), id)
	})
	a.virtual = audio.NewVirtualRouting(cfg.Pactl)

	chain := playback.DefaultChain(cfg.Paplay, cfg.Aplay, engine, run)
	a.playback = playback.NewController(clips, ctx, a.settings.Get, chain, a)
	a.recorder = record.NewController(ctx, clips, a.settings.Get, cfg.ClipsDir(),
		record.Tools{Parecord: cfg.Parecord, Ffmpeg: cfg.Ffmpeg}, a)
	a.router = hotkey.NewRouter(backend, a.persistHotkey, a.onHotkey)
	a.router.SetEnabled(a.settings.Get().HotkeysEnabled)
	return a, nil
}

// Start brings up the pieces that act on the outside world: the virtual
// sink when enabled, and the stored hotkey bindings. Replay failures keep
// the stored combo for the next run.
func (a *App) Start() {
	s := a.settings.Get()
	if s.VirtualAudioEnabled {
		if err := a.virtual.Apply(true, s.PlaybackLoopback, s.MicLoopback); err != nil {
			log.Errorf("virtual routing: %v", err)
		}
	}

	bindings := make(map[string]string)
	for _, c := range a.clips.All() {
		if c.Hotkey != "" {
			bindings[c.ID] = c.Hotkey
		}
	}
	for _, err := range a.router.Replay(bindings) {
		log.Warnf("hotkey replay: %v", err)
	}

	a.logInventory()
	log.SessionStart(a.clips.Count())
}

func (a *App) logInventory() {
	var outputs, inputs, monitors, virtuals int
	for _, d := range a.ctx.Devices() {
		switch d.Kind {
		case audio.KindOutput:
			outputs++
		case audio.KindInput:
			inputs++
		case audio.KindMonitor:
			monitors++
		case audio.KindVirtual:
			virtuals++
		}
	}
	log.Devices(outputs, inputs, monitors, virtuals)
}

// Clips

func (a *App) GetClips() []clip.Clip {
	return a.clips.All()
}

func (a *App) SaveClip(c clip.Clip) (clip.Clip, error) {
	saved, err := a.clips.Save(c)
	if err != nil {
		return clip.Clip{}, err
	}
	a.sink.ClipSaved(saved)
	return saved, nil
}

// DeleteClip removes the record, the WAV file, and any hotkey bound to
// the clip. Unknown ids report false.
func (a *App) DeleteClip(id string) bool {
	if err := a.router.Unbind(id); err != nil {
		log.Warnf("releasing hotkey of %s: %v", id, err)
	}
	if err := a.clips.Delete(id); err != nil {
		if !errors.Is(err, clip.ErrNotFound) {
			log.Errorf("deleting clip %s: %v", id, err)
		}
		return false
	}
	log.History("deleted clip " + id)
	return true
}

func (a *App) RenameClip(id, name string) *clip.Clip {
	renamed, err := a.clips.Rename(id, name)
	if err != nil {
		return nil
	}
	return &renamed
}

// Playback

func (a *App) PlayClip(id string) error {
	err := a.playback.Play(id)
	switch {
	case err == nil:
	case errors.Is(err, clip.ErrNotFound):
	case errors.Is(err, playback.ErrFileMissing):
		a.sink.PlaybackError("Clip file is missing", err.Error())
	case errors.Is(err, playback.ErrExhausted):
		a.sink.PlaybackError("Could not play the clip on any output", err.Error())
	default:
		a.sink.PlaybackError("Playback failed", err.Error())
	}
	return err
}

func (a *App) StopPlayback() {
	a.playback.Stop()
}

func (a *App) PlaybackSnapshot() PlaybackState {
	s := a.playback.State()
	if !s.Playing {
		return PlaybackState{}
	}
	started := s.StartedAt
	return PlaybackState{IsPlaying: true, CurrentClipID: s.ClipID, StartedAt: &started}
}

// Recording

func (a *App) StartRecording() error {
	err := a.recorder.StartMic()
	if errors.Is(err, record.ErrBusy) {
		return nil
	}
	if err != nil {
		a.sink.RecordingError("Could not start recording", err.Error())
	}
	return err
}

func (a *App) StartSystemCapture() error {
	err := a.recorder.StartSystem()
	switch {
	case err == nil:
	case errors.Is(err, record.ErrBusy):
		return nil
	case errors.Is(err, record.ErrToolMissing):
		a.sink.RecordingError("System audio capture needs parecord or ffmpeg",
			"install pulseaudio-utils or ffmpeg and try again")
	case errors.Is(err, record.ErrNoMonitorDevice):
		a.sink.RecordingError("No monitor device available",
			"select a monitor device in the audio settings")
	default:
		a.sink.RecordingError("Could not start system capture", err.Error())
	}
	return err
}

// StopRecording finalizes whichever mode is active and returns the saved
// clip. Idle stop and finalize failure both return nil; failures were
// already surfaced as events.
func (a *App) StopRecording() *clip.Clip {
	saved, err := a.recorder.Stop()
	if err != nil || saved.ID == "" {
		return nil
	}
	return &saved
}

func (a *App) RecordingSnapshot() RecordingState {
	s := a.recorder.State()
	if !s.Recording {
		return RecordingState{}
	}
	started := s.StartedAt
	return RecordingState{
		IsRecording:     true,
		Mode:            string(s.Mode),
		DurationSeconds: time.Since(started).Seconds(),
		StartedAt:       &started,
	}
}

// Settings and devices

func (a *App) GetSettings() settings.Settings {
	return a.settings.Get()
}

func (a *App) UpdateSettings(changes map[string]any) (settings.Settings, error) {
	prev := a.settings.Get()
	next, err := a.settings.Update(changes)
	if err != nil {
		return next, err
	}
	a.applySettings(prev, next)
	return next, nil
}

func (a *App) applySettings(prev, next settings.Settings) {
	if prev.HotkeysEnabled != next.HotkeysEnabled {
		a.router.SetEnabled(next.HotkeysEnabled)
		log.Info("hotkeys " + onOff(next.HotkeysEnabled))
	}
	if prev.VirtualAudioEnabled != next.VirtualAudioEnabled ||
		prev.PlaybackLoopback != next.PlaybackLoopback ||
		prev.MicLoopback != next.MicLoopback {
		if err := a.virtual.Apply(next.VirtualAudioEnabled, next.PlaybackLoopback, next.MicLoopback); err != nil {
			log.Errorf("virtual routing: %v", err)
			a.sink.PlaybackError("Virtual audio routing failed", err.Error())
		}
	}
}

func onOff(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}

func (a *App) GetAudioDevices() []audio.Device {
	return a.ctx.Devices()
}

// Hotkeys

func (a *App) RegisterHotkey(clipID, key string, mods []string) bool {
	if _, err := a.clips.Get(clipID); err != nil {
		return false
	}
	combo := hotkey.Join(mods, key)
	if err := a.router.Bind(clipID, combo); err != nil {
		log.Warnf("binding %q: %v", combo, err)
		return false
	}
	return true
}

func (a *App) UnregisterHotkey(clipID string) bool {
	if _, err := a.clips.Get(clipID); err != nil {
		return false
	}
	if err := a.router.Unbind(clipID); err != nil {
		log.Warnf("releasing hotkey of %s: %v", clipID, err)
	}
	return true
}

// persistHotkey is the router's store hook: it runs only after the OS
// registration succeeded, so a refused combo never reaches disk.
func (a *App) persistHotkey(clipID, combo string) error {
	c, err := a.clips.SetHotkey(clipID, combo)
	if err != nil {
		return err
	}
	if combo == "" {
		log.HotkeyUnbound(combo, c.Name)
	} else {
		log.HotkeyBound(combo, c.Name)
	}
	return nil
}

func (a *App) onHotkey(clipID string) {
	a.sink.HotkeyPressed(clipID)
	if err := a.PlayClip(clipID); err != nil {
		log.Errorf("hotkey play: %v", err)
	}
}

// Lifecycle

// Shutdown stops whatever is running, in dependency order: the recording
// (finalized, not abandoned), the playback process, the OS hotkey grabs,
// the loopback modules, and finally the backend connection.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		if a.recorder.State().Recording {
			if _, err := a.recorder.Stop(); err != nil {
				log.Errorf("stopping recording at shutdown: %v", err)
			}
		}
		a.playback.Stop()
		a.router.Close()
		a.virtual.Teardown()
		a.ctx.Close()
		log.SessionEnd(int(a.played.Load()), int(a.recorded.Load()))
	})
}

// playback.Listener

func (a *App) PlaybackStarted(c clip.Clip, strategy string) {
	a.played.Add(1)
	log.History("played " + c.Name + " via " + strategy)
	now := time.Now()
	a.sink.PlaybackStateChanged(PlaybackState{IsPlaying: true, CurrentClipID: c.ID, StartedAt: &now})
}

func (a *App) PlaybackStopped(c clip.Clip, reason string) {
	if reason == playback.ReasonFailed {
		a.sink.PlaybackError("Playback of "+c.Name+" stopped unexpectedly", reason)
	}
	a.sink.PlaybackStateChanged(PlaybackState{})
}

// record.Listener

func (a *App) RecordingStarted(mode record.Mode, device string) {
	now := time.Now()
	a.sink.RecordingStateChanged(RecordingState{IsRecording: true, Mode: string(mode), StartedAt: &now})
}

func (a *App) RecordingSaved(c clip.Clip) {
	a.recorded.Add(1)
	log.History("saved " + c.Name)
	a.sink.RecordingStateChanged(RecordingState{})
	a.sink.ClipSaved(c)
}

func (a *App) RecordingFailed(err error) {
	a.sink.RecordingStateChanged(RecordingState{})
	a.sink.RecordingError("Recording failed", err.Error())
}

func (a *App) RecordingLevel(rms float64) {
	a.sink.AudioLevel(rms)
}
