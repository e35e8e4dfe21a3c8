//go:build linux

package playback

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulseEngine struct{}

// NewEngine plays through the native PulseAudio client.
func NewEngine() Engine {
	return pulseEngine{}
}

func (pulseEngine) Play(path, device string) (Session, error) {
	data, err := loadWAV(path)
	if err != nil {
		return nil, err
	}

	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(data.sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			vols := make(proto.ChannelVolumes, data.channels)
			for i := range vols {
				vols[i] = uint32(proto.VolumeNorm)
			}
			p.ChannelVolumes = vols
		}),
	}
	if data.channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}
	if device != "" {
		sink, err := c.SinkByID(device)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("pulse sink %q: %w", device, err)
		}
		opts = append(opts, pulse.PlaybackSink(sink))
	}

	s := &pulseSession{done: make(chan error, 1), stop: make(chan struct{})}

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		select {
		case <-s.stop:
			return 0, pulse.EndOfData
		default:
		}
		if pos >= len(data.samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, data.samples[pos:])
		pos += n
		return n, nil
	})

	stream, err := c.NewPlayback(reader, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("pulse playback: %w", err)
	}

	go func() {
		stream.Start()
		stream.Drain()
		err := stream.Error()
		stream.Stop()
		stream.Close()
		c.Close()
		s.done <- err
	}()

	return s, nil
}

type pulseSession struct {
	done chan error
	stop chan struct{}
	once sync.Once
}

func (s *pulseSession) Done() <-chan error { return s.done }

func (s *pulseSession) Stop() {
	s.once.Do(func() { close(s.stop) })
}
