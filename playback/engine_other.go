//go:build !linux

package playback

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoEngine struct{}

// NewEngine plays through miniaudio.
func NewEngine() Engine {
	return malgoEngine{}
}

func (malgoEngine) Play(path, device string) (Session, error) {
	data, err := loadWAV(path)
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(data.channels)
	config.SampleRate = uint32(data.sampleRate)

	if device != "" {
		infos, err := ctx.Devices(malgo.Playback)
		if err == nil {
			for i, info := range infos {
				if strings.HasPrefix(fmt.Sprintf("%x", info.ID), device) {
					config.Playback.DeviceID = infos[i].ID.Pointer()
					break
				}
			}
		}
	}

	s := &malgoSession{
		ctx:  ctx,
		done: make(chan error, 1),
	}

	var pos atomic.Uint32
	finished := func() {
		s.finishOnce.Do(func() {
			// Uninit deadlocks when called from the device callback, so
			// tear down from a fresh goroutine.
			go s.teardown(nil)
		})
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			p := int(pos.Load())
			needed := int(frameCount) * data.channels * 2
			remaining := len(data.samples)*2 - p
			if remaining <= 0 {
				finished()
				return
			}

			n := needed
			if n > remaining {
				n = remaining
			}
			for i := 0; i < n/2; i++ {
				sample := data.samples[p/2+i]
				output[i*2] = byte(sample)
				output[i*2+1] = byte(sample >> 8)
			}
			pos.Store(uint32(p + n))
			if p+n >= len(data.samples)*2 {
				finished()
			}
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("malgo playback device: %w", err)
	}
	s.device = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("malgo start: %w", err)
	}

	return s, nil
}

type malgoSession struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	done   chan error

	finishOnce sync.Once
	closeOnce  sync.Once
}

func (s *malgoSession) teardown(err error) {
	s.closeOnce.Do(func() {
		s.device.Uninit()
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.done <- err
	})
}

func (s *malgoSession) Done() <-chan error { return s.done }

func (s *malgoSession) Stop() {
	s.finishOnce.Do(func() {
		go s.teardown(nil)
	})
}
