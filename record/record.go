// Package record captures audio into WAV clips. Microphone capture runs
// through the native audio library; system capture shells out to parecord
// or ffmpeg against a monitor source. One recording at a time, across
// both modes.
package record

import (
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/wav"

	"soundboard/audio"
	"soundboard/clip"
	"soundboard/encoder"
	"soundboard/log"
	"soundboard/settings"
)

var (
	ErrBusy            = errors.New("recording already in progress")
	ErrToolMissing     = errors.New("no system capture tool available")
	ErrNoMonitorDevice = errors.New("no monitor device for system capture")
)

type Mode string

const (
	ModeMic    Mode = "mic"
	ModeSystem Mode = "system"
)

// levelInterval throttles level meter events.
const levelInterval = 100 * time.Millisecond

// finalizeWait is how long Stop gives the capture process to exit before
// the recording is finalized regardless.
const finalizeWait = 300 * time.Millisecond

type State struct {
	Recording bool
	Mode      Mode
	Device    string
	StartedAt time.Time
}

type ClipSink interface {
	NextName(prefix string) string
	Save(c clip.Clip) (clip.Clip, error)
}

// Listener receives recording transitions and mic level ticks.
// Implementations must not block.
type Listener interface {
	RecordingStarted(mode Mode, device string)
	RecordingSaved(c clip.Clip)
	RecordingFailed(err error)
	RecordingLevel(rms float64)
}

type NopListener struct{}

func (NopListener) RecordingStarted(Mode, string) {}
func (NopListener) RecordingSaved(clip.Clip)      {}
func (NopListener) RecordingFailed(error)         {}
func (NopListener) RecordingLevel(float64)        {}

type Tools struct {
	Parecord string
	Ffmpeg   string
}

type systemProc interface {
	Wait() error
	Terminate()
}

type procStarter func(name string, args ...string) (systemProc, error)

type Controller struct {
	ctx      audio.Context
	clips    ClipSink
	settings func() settings.Settings
	clipsDir string
	tools    Tools
	listener Listener

	// test seams
	start        procStarter
	probe        func(bin, versionFlag string) bool
	finalizeWait time.Duration

	mu        sync.Mutex
	recording bool
	mode      Mode
	device    string
	startedAt time.Time
	mic       *micSession
	system    *systemSession
}

func NewController(ctx audio.Context, clips ClipSink, getSettings func() settings.Settings, clipsDir string, tools Tools, listener Listener) *Controller {
	if listener == nil {
		listener = NopListener{}
	}
	return &Controller{
		ctx:          ctx,
		clips:        clips,
		settings:     getSettings,
		clipsDir:     clipsDir,
		tools:        tools,
		listener:     listener,
		start:        startCommand,
		probe:        probeCommand,
		finalizeWait: finalizeWait,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Recording: c.recording, Mode: c.mode, Device: c.device, StartedAt: c.startedAt}
}

// StartMic begins microphone capture on the configured input device, or
// the default when none is configured or the configured one is gone.
func (c *Controller) StartMic() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording {
		return ErrBusy
	}

	source := ""
	if id := c.settings().InputDeviceID; id != "" {
		name, err := c.ctx.ResolveSourceName(audio.ParseRef(id))
		if err != nil {
			log.Warnf("configured input %q not present, using default", id)
		} else {
			source = name
		}
	}

	capture, err := c.ctx.NewCapture(source, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return fmt.Errorf("opening capture device: %w", err)
	}

	name := c.clips.NextName("Clip")
	path := filepath.Join(c.clipsDir, name+".wav")
	enc, err := encoder.NewWav(path)
	if err != nil {
		capture.Close()
		return err
	}

	session := &micSession{
		capture:  capture,
		enc:      enc,
		name:     name,
		path:     path,
		listener: c.listener,
	}
	capture.SetCallback(session.onData)
	if err := capture.Start(); err != nil {
		capture.Close()
		enc.Close()
		os.Remove(path)
		return fmt.Errorf("starting capture: %w", err)
	}

	c.recording = true
	c.mode = ModeMic
	c.device = capture.DeviceName()
	c.startedAt = time.Now()
	c.mic = session

	log.RecordingStarted(string(ModeMic), c.device)
	c.listener.RecordingStarted(ModeMic, c.device)
	return nil
}

type micSession struct {
	capture  audio.CaptureDevice
	enc      *encoder.WavEncoder
	name     string
	path     string
	listener Listener

	mu        sync.Mutex
	done      bool
	pending   []int16
	lastLevel time.Time
}

// onData runs on the capture thread. Blocks go straight to the encoder,
// the way short recordings tolerate fine.
func (s *micSession) onData(data []byte, frames uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}

	for i := 0; i+1 < len(data); i += 2 {
		s.pending = append(s.pending, int16(uint16(data[i])|uint16(data[i+1])<<8))
	}

	for len(s.pending) >= encoder.BlockSize {
		if err := s.enc.EncodeBlock(s.pending[:encoder.BlockSize]); err != nil {
			log.Errorf("encoding block: %v", err)
		}
		s.pending = s.pending[encoder.BlockSize:]
	}

	if now := time.Now(); now.Sub(s.lastLevel) >= levelInterval {
		s.lastLevel = now
		s.listener.RecordingLevel(levelOf(data))
	}
}

// levelOf computes the RMS of a 16-bit LE PCM chunk, normalized to 0..1.
func levelOf(data []byte) float64 {
	n := len(data) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(data); i += 2 {
		v := float64(int16(uint16(data[i]) | uint16(data[i+1])<<8))
		sum += v * v
	}
	return math.Sqrt(sum/float64(n)) / 32768
}

// StartSystem begins capturing what the speakers play, through an
// external tool pointed at a monitor source.
func (c *Controller) StartSystem() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording {
		return ErrBusy
	}

	tool, bin, err := c.pickTool()
	if err != nil {
		return err
	}
	monitor, err := c.monitorSource()
	if err != nil {
		return err
	}

	name := c.clips.NextName("System_Audio")
	path := filepath.Join(c.clipsDir, name+".wav")

	var args []string
	switch tool {
	case "parecord":
		args = []string{
			"--device=" + monitor,
			"--file-format=wav",
			"--rate=44100",
			"--channels=2",
			"--format=s16le",
			path,
		}
	case "ffmpeg":
		args = []string{"-f", "pulse", "-i", monitor, "-ac", "2", "-ar", "44100", "-y", path}
	}

	proc, err := c.start(bin, args...)
	if err != nil {
		return fmt.Errorf("starting %s: %w", tool, err)
	}

	session := &systemSession{
		proc:    proc,
		name:    name,
		path:    path,
		tool:    tool,
		monitor: monitor,
		exited:  make(chan struct{}),
	}

	c.recording = true
	c.mode = ModeSystem
	c.device = monitor
	c.startedAt = time.Now()
	c.system = session

	go c.watchSystem(session)

	log.RecordingStarted(string(ModeSystem), monitor)
	c.listener.RecordingStarted(ModeSystem, monitor)
	return nil
}

// pickTool probes parecord first, then ffmpeg.
func (c *Controller) pickTool() (tool, bin string, err error) {
	if c.tools.Parecord != "" && c.probe(c.tools.Parecord, "--version") {
		return "parecord", c.tools.Parecord, nil
	}
	if c.tools.Ffmpeg != "" && c.probe(c.tools.Ffmpeg, "-version") {
		return "ffmpeg", c.tools.Ffmpeg, nil
	}
	return "", "", ErrToolMissing
}

// monitorSource resolves the configured monitor device, or auto-picks the
// first monitor in the inventory.
func (c *Controller) monitorSource() (string, error) {
	if id := c.settings().MonitorDeviceID; id != "" {
		name, err := c.ctx.ResolveSourceName(audio.ParseRef(id))
		if err == nil {
			return name, nil
		}
		log.Warnf("configured monitor %q not present, auto-detecting", id)
	}
	for _, d := range c.ctx.Devices() {
		if d.Kind == audio.KindMonitor {
			return d.Description, nil
		}
	}
	return "", ErrNoMonitorDevice
}

type systemSession struct {
	proc    systemProc
	name    string
	path    string
	tool    string
	monitor string
	exited  chan struct{}

	finalize  sync.Once
	result    clip.Clip
	resultErr error
}

// watchSystem reaps the process. A spontaneous exit (tool died, stream
// ended) finalizes the recording just like Stop would.
func (c *Controller) watchSystem(s *systemSession) {
	err := s.proc.Wait()
	close(s.exited)
	if err != nil {
		log.Warnf("%s exited: %v", s.tool, err)
	}

	c.mu.Lock()
	if c.system == s {
		c.recording = false
		c.mode = ""
		c.device = ""
		c.system = nil
	}
	c.mu.Unlock()

	c.finalizeSystem(s)
}

// finalizeSystem turns the written file into a clip record. Runs at most
// once per session no matter how many paths race into it.
func (c *Controller) finalizeSystem(s *systemSession) (clip.Clip, error) {
	s.finalize.Do(func() {
		info, err := os.Stat(s.path)
		if err != nil || info.Size() <= 44 {
			os.Remove(s.path)
			s.resultErr = fmt.Errorf("%s produced no audio", s.tool)
			log.Error("system recording produced no audio")
			c.listener.RecordingFailed(s.resultErr)
			return
		}

		cl := clip.Clip{
			Name:      s.name,
			Path:      s.path,
			Duration:  wavDuration(s.path, info.Size()),
			SizeBytes: info.Size(),
		}
		saved, err := c.clips.Save(cl)
		if err != nil {
			s.resultErr = err
			c.listener.RecordingFailed(err)
			return
		}
		s.result = saved
		log.RecordingSaved(saved.Name, saved.Duration, saved.SizeBytes)
		c.listener.RecordingSaved(saved)
	})
	return s.result, s.resultErr
}

// wavDuration reads the duration from the header, estimating from the
// byte count when the header is unreadable.
func wavDuration(path string, size int64) float64 {
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if d, err := wav.NewDecoder(f).Duration(); err == nil {
			return d.Seconds()
		}
	}
	return float64(size-44) / (44100 * 2 * 2)
}

// Stop ends the current recording and returns the saved clip. Stopping
// while idle is a no-op.
func (c *Controller) Stop() (clip.Clip, error) {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return clip.Clip{}, nil
	}
	mode := c.mode
	mic := c.mic
	system := c.system
	c.recording = false
	c.mode = ""
	c.device = ""
	c.mic = nil
	c.system = nil
	c.mu.Unlock()

	switch mode {
	case ModeMic:
		return c.finalizeMic(mic)
	case ModeSystem:
		system.proc.Terminate()
		select {
		case <-system.exited:
		case <-time.After(c.finalizeWait):
		}
		return c.finalizeSystem(system)
	}
	return clip.Clip{}, nil
}

func (c *Controller) finalizeMic(s *micSession) (clip.Clip, error) {
	s.capture.Stop()
	s.capture.ClearCallback()
	s.capture.Close()

	s.mu.Lock()
	s.done = true
	if len(s.pending) > 0 {
		if err := s.enc.EncodeBlock(s.pending); err != nil {
			log.Errorf("encoding final block: %v", err)
		}
		s.pending = nil
	}
	s.mu.Unlock()

	duration := s.enc.Duration()
	if err := s.enc.Close(); err != nil {
		c.listener.RecordingFailed(err)
		return clip.Clip{}, err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		err = fmt.Errorf("recorded file: %w", err)
		c.listener.RecordingFailed(err)
		return clip.Clip{}, err
	}

	saved, err := c.clips.Save(clip.Clip{
		Name:      s.name,
		Path:      s.path,
		Duration:  duration,
		SizeBytes: info.Size(),
	})
	if err != nil {
		c.listener.RecordingFailed(err)
		return clip.Clip{}, err
	}

	log.RecordingSaved(saved.Name, saved.Duration, saved.SizeBytes)
	c.listener.RecordingSaved(saved)
	return saved, nil
}

type execProc struct {
	cmd  *exec.Cmd
	done chan error
	once sync.Once
}

func startCommand(name string, args ...string) (systemProc, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProc{cmd: cmd, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()
	return p, nil
}

func (p *execProc) Wait() error { return <-p.done }

// Terminate asks for a graceful stop so the tool finalizes its WAV
// header; ffmpeg and parecord both treat SIGINT as "finish the file".
func (p *execProc) Terminate() {
	p.once.Do(func() {
		if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
			_ = p.cmd.Process.Kill()
		}
	})
}

func probeCommand(bin, versionFlag string) bool {
	return exec.Command(bin, versionFlag).Run() == nil
}
