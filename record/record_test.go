package record

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"soundboard/audio"
	"soundboard/clip"
	"soundboard/encoder"
	"soundboard/settings"
)

type fakeProc struct {
	done       chan error
	once       sync.Once
	terminated atomic.Bool
}

func newFakeProc() *fakeProc {
	return &fakeProc{done: make(chan error, 1)}
}

func (p *fakeProc) Wait() error { return <-p.done }

func (p *fakeProc) Terminate() {
	p.terminated.Store(true)
	p.exit(nil)
}

func (p *fakeProc) exit(err error) {
	p.once.Do(func() { p.done <- err })
}

type fakeStarter struct {
	mu       sync.Mutex
	cmds     [][]string
	procs    []*fakeProc
	writeWAV bool
}

func (f *fakeStarter) start(name string, args ...string) (systemProc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, append([]string{name}, args...))
	if f.writeWAV {
		path := args[len(args)-1]
		e, err := encoder.NewWav(path)
		if err != nil {
			return nil, err
		}
		e.EncodeBlock(make([]int16, encoder.SampleRate))
		if err := e.Close(); err != nil {
			return nil, err
		}
	}
	p := newFakeProc()
	f.procs = append(f.procs, p)
	return p, nil
}

type recEvents struct {
	mu      sync.Mutex
	started int
	saved   []clip.Clip
	failed  []error
	levels  []float64
}

func (e *recEvents) RecordingStarted(Mode, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started++
}

func (e *recEvents) RecordingSaved(c clip.Clip) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saved = append(e.saved, c)
}

func (e *recEvents) RecordingFailed(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, err)
}

func (e *recEvents) RecordingLevel(rms float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.levels = append(e.levels, rms)
}

func (e *recEvents) savedClips() []clip.Clip {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]clip.Clip(nil), e.saved...)
}

func (e *recEvents) levelEvents() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), e.levels...)
}

type recHarness struct {
	ctrl     *Controller
	ctx      *audio.FakeContext
	store    *clip.Store
	events   *recEvents
	starter  *fakeStarter
	settings *settings.Settings
	probeOK  map[string]bool
}

func newRecHarness(t *testing.T, devices ...audio.Device) *recHarness {
	t.Helper()
	dir := t.TempDir()
	store, err := clip.Open(filepath.Join(dir, "clips.json"))
	if err != nil {
		t.Fatal(err)
	}

	h := &recHarness{
		ctx:     audio.NewFakeContext(devices...),
		store:   store,
		events:  &recEvents{},
		starter: &fakeStarter{},
		probeOK: map[string]bool{"parecord": true, "ffmpeg": true},
	}
	st := settings.Defaults()
	h.settings = &st

	h.ctrl = NewController(h.ctx, store, func() settings.Settings { return *h.settings }, dir,
		Tools{Parecord: "parecord", Ffmpeg: "ffmpeg"}, h.events)
	h.ctrl.start = h.starter.start
	h.ctrl.probe = func(bin, _ string) bool { return h.probeOK[bin] }
	h.ctrl.finalizeWait = 50 * time.Millisecond
	return h
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestMicRecordingProducesClip(t *testing.T) {
	h := newRecHarness(t)

	if err := h.ctrl.StartMic(); err != nil {
		t.Fatal(err)
	}
	st := h.ctrl.State()
	if !st.Recording || st.Mode != ModeMic {
		t.Fatalf("state = %+v", st)
	}

	cap := h.ctx.LastCapture()
	for i := 0; i < 4; i++ {
		cap.SimFeedSamples(make([]int16, encoder.SampleRate/2))
	}

	saved, err := h.ctrl.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if saved.Name != "Clip_01" {
		t.Errorf("name = %q", saved.Name)
	}
	if math.Abs(saved.Duration-2.0) > 0.2 {
		t.Errorf("duration = %v, want 2.0 within 0.2", saved.Duration)
	}
	if saved.ID == "" {
		t.Error("clip not assigned an id")
	}
	if _, err := os.Stat(saved.Path); err != nil {
		t.Errorf("wav file: %v", err)
	}
	if h.store.Count() != 1 {
		t.Errorf("store count = %d", h.store.Count())
	}
	if h.ctrl.State().Recording {
		t.Error("still recording after stop")
	}
}

func TestMicUsesConfiguredInput(t *testing.T) {
	h := newRecHarness(t)
	h.settings.InputDeviceID = "pulse-3"

	if err := h.ctrl.StartMic(); err != nil {
		t.Fatal(err)
	}
	defer h.ctrl.Stop()

	if dev := h.ctrl.State().Device; dev != "Built-in" {
		t.Errorf("capture device = %q", dev)
	}
}

func TestMicLevels(t *testing.T) {
	h := newRecHarness(t)
	if err := h.ctrl.StartMic(); err != nil {
		t.Fatal(err)
	}

	loud := make([]int16, 4096)
	for i := range loud {
		loud[i] = 12000
	}
	h.ctx.LastCapture().SimFeedSamples(loud)

	levels := h.events.levelEvents()
	if len(levels) == 0 {
		t.Fatal("no level events")
	}
	if levels[0] <= 0.1 {
		t.Errorf("level = %v, want clearly above silence", levels[0])
	}
	h.ctrl.Stop()
}

func TestRecordingExclusive(t *testing.T) {
	h := newRecHarness(t)

	if err := h.ctrl.StartMic(); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.StartMic(); !errors.Is(err, ErrBusy) {
		t.Errorf("second StartMic = %v, want ErrBusy", err)
	}
	if err := h.ctrl.StartSystem(); !errors.Is(err, ErrBusy) {
		t.Errorf("StartSystem while mic = %v, want ErrBusy", err)
	}
	h.ctrl.Stop()
}

func TestStopWhileIdle(t *testing.T) {
	h := newRecHarness(t)
	saved, err := h.ctrl.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != "" {
		t.Errorf("idle stop returned clip %+v", saved)
	}
	if len(h.events.savedClips()) != 0 {
		t.Error("idle stop emitted saved event")
	}
}

func TestSystemRecording(t *testing.T) {
	h := newRecHarness(t)
	h.starter.writeWAV = true

	if err := h.ctrl.StartSystem(); err != nil {
		t.Fatal(err)
	}
	st := h.ctrl.State()
	if st.Mode != ModeSystem {
		t.Fatalf("state = %+v", st)
	}

	cmd := h.starter.cmds[0]
	if cmd[0] != "parecord" {
		t.Errorf("tool = %q", cmd[0])
	}
	if !strings.HasPrefix(cmd[1], "--device=") || !strings.HasSuffix(cmd[1], ".monitor") {
		t.Errorf("device arg = %q, want a monitor source target", cmd[1])
	}

	saved, err := h.ctrl.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if saved.Name != "System_Audio_01" {
		t.Errorf("name = %q", saved.Name)
	}
	if math.Abs(saved.Duration-1.0) > 0.2 {
		t.Errorf("duration = %v, want about 1s", saved.Duration)
	}
	if !h.starter.procs[0].terminated.Load() {
		t.Error("capture process not terminated")
	}
	if h.store.Count() != 1 {
		t.Errorf("store count = %d", h.store.Count())
	}
}

func TestSystemSpontaneousExitFinalizesOnce(t *testing.T) {
	h := newRecHarness(t)
	h.starter.writeWAV = true

	if err := h.ctrl.StartSystem(); err != nil {
		t.Fatal(err)
	}
	h.starter.procs[0].exit(nil)

	waitUntil(t, "recording state cleared", func() bool { return !h.ctrl.State().Recording })
	waitUntil(t, "clip saved", func() bool { return h.store.Count() == 1 })

	saved, err := h.ctrl.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != "" {
		t.Error("stop after spontaneous exit returned a second clip")
	}
	if h.store.Count() != 1 {
		t.Errorf("store count = %d, want single finalize", h.store.Count())
	}
	if got := h.events.savedClips(); len(got) != 1 {
		t.Errorf("saved events = %d", len(got))
	}
}

func TestSystemToolMissing(t *testing.T) {
	h := newRecHarness(t)
	h.probeOK["parecord"] = false
	h.probeOK["ffmpeg"] = false

	if err := h.ctrl.StartSystem(); !errors.Is(err, ErrToolMissing) {
		t.Errorf("err = %v, want ErrToolMissing", err)
	}
	if h.ctrl.State().Recording {
		t.Error("recording after failed start")
	}
}

func TestSystemFallsBackToFfmpeg(t *testing.T) {
	h := newRecHarness(t)
	h.starter.writeWAV = true
	h.probeOK["parecord"] = false

	if err := h.ctrl.StartSystem(); err != nil {
		t.Fatal(err)
	}
	defer h.ctrl.Stop()

	cmd := h.starter.cmds[0]
	if cmd[0] != "ffmpeg" {
		t.Errorf("tool = %q", cmd[0])
	}
	if cmd[1] != "-f" || cmd[2] != "pulse" {
		t.Errorf("args = %v", cmd)
	}
}

func TestSystemNoMonitorDevice(t *testing.T) {
	h := newRecHarness(t,
		audio.Device{ID: "pulse-0", Name: "Speakers", Kind: audio.KindOutput, Default: true},
		audio.Device{ID: "pulse-1", Name: "Mic", Kind: audio.KindInput},
	)

	if err := h.ctrl.StartSystem(); !errors.Is(err, ErrNoMonitorDevice) {
		t.Errorf("err = %v, want ErrNoMonitorDevice", err)
	}
}

func TestSystemEmptyFileIsError(t *testing.T) {
	h := newRecHarness(t)
	h.starter.writeWAV = false

	if err := h.ctrl.StartSystem(); err != nil {
		t.Fatal(err)
	}
	if _, err := h.ctrl.Stop(); err == nil {
		t.Error("empty capture file accepted")
	}
	if h.store.Count() != 0 {
		t.Errorf("store count = %d, want 0", h.store.Count())
	}
	h.events.mu.Lock()
	failures := len(h.events.failed)
	h.events.mu.Unlock()
	if failures != 1 {
		t.Errorf("failure events = %d, want 1", failures)
	}
}
