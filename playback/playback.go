// Package playback drives clip playback through a ladder of strategies,
// from device-targeted player commands down to bare defaults. Exactly one
// clip plays at a time; process exit is the only source of completion.
package playback

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"soundboard/audio"
	"soundboard/clip"
	"soundboard/log"
	"soundboard/settings"
)

// ErrFileMissing reports a clip whose backing file is gone from disk.
var ErrFileMissing = errors.New("clip file missing")

const (
	ReasonFinished   = "finished"
	ReasonFailed     = "failed"
	ReasonStopped    = "stopped"
	ReasonSuperseded = "superseded"
)

// settleDelay absorbs the gap between player exit and the sink actually
// going quiet before the state flips back to stopped.
const settleDelay = 150 * time.Millisecond

type ClipSource interface {
	Get(id string) (clip.Clip, error)
}

// Listener receives playback transitions. Implementations must not block.
type Listener interface {
	PlaybackStarted(c clip.Clip, strategy string)
	PlaybackStopped(c clip.Clip, reason string)
}

type NopListener struct{}

func (NopListener) PlaybackStarted(clip.Clip, string) {}
func (NopListener) PlaybackStopped(clip.Clip, string) {}

type State struct {
	Playing   bool
	ClipID    string
	ClipName  string
	Strategy  string
	StartedAt time.Time
}

type Controller struct {
	clips    ClipSource
	ctx      audio.Context
	settings func() settings.Settings
	chain    []Strategy
	listener Listener

	// Settle is the post-exit delay before the stopped transition.
	Settle time.Duration

	mu      sync.Mutex
	gen     uint64
	current *session
}

type session struct {
	gen      uint64
	clip     clip.Clip
	strategy string
	handle   Handle
	started  time.Time
}

func NewController(clips ClipSource, ctx audio.Context, getSettings func() settings.Settings, chain []Strategy, listener Listener) *Controller {
	if listener == nil {
		listener = NopListener{}
	}
	return &Controller{
		clips:    clips,
		ctx:      ctx,
		settings: getSettings,
		chain:    chain,
		listener: listener,
		Settle:   settleDelay,
	}
}

// pickRoute selects the playback target: the virtual sink when virtual
// audio is on and the sink actually resolves, otherwise the configured
// output, otherwise the default. A configured device that no longer
// resolves degrades to default rather than failing the whole play.
func (c *Controller) pickRoute() (audio.DeviceRef, string) {
	s := c.settings()

	if s.VirtualAudioEnabled {
		id := s.VirtualAudioDeviceID
		if id == "" {
			id = audio.VirtualSinkName
		}
		ref := audio.ParseRef(id)
		if sink, err := c.ctx.ResolveSinkName(ref); err == nil {
			return ref, sink
		}
		log.Warnf("virtual output %q not present, falling back", id)
	}

	if s.OutputDeviceID != "" {
		ref := audio.ParseRef(s.OutputDeviceID)
		if ref.Kind == audio.RefAlsa {
			return ref, ""
		}
		if sink, err := c.ctx.ResolveSinkName(ref); err == nil {
			return ref, sink
		}
		log.Warnf("configured output %q not present, using default", s.OutputDeviceID)
	}

	return audio.DeviceRef{Kind: audio.RefDefault}, ""
}

// Play starts the clip, stopping whatever was playing first. It walks the
// strategy chain until one start succeeds and returns ErrExhausted when
// none does.
func (c *Controller) Play(id string) error {
	cl, err := c.clips.Get(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cl.Path); err != nil {
		return fmt.Errorf("%w: %s", ErrFileMissing, cl.Path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked(ReasonSuperseded)

	ref, sink := c.pickRoute()
	req := Request{Path: cl.Path, Ref: ref, Sink: sink}

	c.gen++
	gen := c.gen

	var lastErr error
	attempts := 0
	for i, s := range c.chain {
		h, err := s.Start(req)
		if errors.Is(err, errNotApplicable) {
			continue
		}
		attempts++
		if err != nil {
			log.PlaybackFallback(cl.Name, s.Name, nextName(c.chain, i), err.Error())
			lastErr = err
			continue
		}

		c.current = &session{gen: gen, clip: cl, strategy: s.Name, handle: h, started: time.Now()}
		go c.watch(gen, h, cl)
		log.PlaybackStarted(cl.Name, s.Name)
		c.listener.PlaybackStarted(cl, s.Name)
		return nil
	}

	log.PlaybackExhausted(cl.Name, attempts)
	if lastErr != nil {
		return fmt.Errorf("%w: last attempt: %v", ErrExhausted, lastErr)
	}
	return ErrExhausted
}

func nextName(chain []Strategy, i int) string {
	if i+1 < len(chain) {
		return chain[i+1].Name
	}
	return "none"
}

// watch waits for the handle to finish. A clean exit settles briefly, then
// the stopped transition commits only if no newer play or stop took over
// in the meantime.
func (c *Controller) watch(gen uint64, h Handle, cl clip.Clip) {
	err := h.Wait()
	if err == nil {
		time.Sleep(c.Settle)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()

	reason := ReasonFinished
	if err != nil {
		reason = ReasonFailed
		log.Errorf("playback of %s ended: %v", cl.Name, err)
	}
	log.PlaybackDone(cl.Name, cl.Duration)
	c.listener.PlaybackStopped(cl, reason)
}

// Stop halts the current playback, if any. Safe to call repeatedly.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked(ReasonStopped)
}

func (c *Controller) stopLocked(reason string) {
	if c.current == nil {
		return
	}
	s := c.current
	c.current = nil
	c.gen++
	s.handle.Terminate()
	log.Info("stopped playback: " + s.clip.Name)
	c.listener.PlaybackStopped(s.clip, reason)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return State{}
	}
	return State{
		Playing:   true,
		ClipID:    c.current.clip.ID,
		ClipName:  c.current.clip.Name,
		Strategy:  c.current.strategy,
		StartedAt: c.current.started,
	}
}
