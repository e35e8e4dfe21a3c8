package encoder

import (
	"fmt"
	"os"
	"sync"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavEncoder streams 16-bit mono PCM into a WAV file. Close finalizes the
// header; a file that never sees Close is not a valid WAV.
type WavEncoder struct {
	path string
	f    *os.File
	enc  *wav.Encoder

	mu          sync.Mutex
	buf         *gaudio.IntBuffer
	totalFrames uint64
	closed      bool
}

func NewWav(path string) (*WavEncoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &WavEncoder{
		path: path,
		f:    f,
		enc:  wav.NewEncoder(f, SampleRate, BitsPerSample, Channels, 1),
		buf: &gaudio.IntBuffer{
			Format:         &gaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
			SourceBitDepth: BitsPerSample,
		},
	}, nil
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("encoder closed")
	}

	if cap(e.buf.Data) < len(block) {
		e.buf.Data = make([]int, len(block))
	}
	e.buf.Data = e.buf.Data[:len(block)]
	for i, s := range block {
		e.buf.Data[i] = int(s)
	}

	if err := e.enc.Write(e.buf); err != nil {
		return fmt.Errorf("writing wav block: %w", err)
	}
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WavEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.enc.Close(); err != nil {
		e.f.Close()
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return e.f.Close()
}

func (e *WavEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func (e *WavEncoder) Path() string { return e.path }

// Duration is the recorded length in seconds so far.
func (e *WavEncoder) Duration() float64 {
	return float64(e.TotalFrames()) / float64(SampleRate)
}
