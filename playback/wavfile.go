package playback

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

type wavData struct {
	samples    []int16
	channels   int
	sampleRate int
}

// loadWAV decodes the whole file into interleaved 16-bit samples. Clips
// are short; holding them in memory keeps the engine trivial.
func loadWAV(path string) (*wavData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("decoding %s: no pcm data", path)
	}

	samples := make([]int16, len(buf.Data))
	switch buf.SourceBitDepth {
	case 8:
		for i, v := range buf.Data {
			samples[i] = int16((v - 128) << 8)
		}
	case 24:
		for i, v := range buf.Data {
			samples[i] = int16(v >> 8)
		}
	case 32:
		for i, v := range buf.Data {
			samples[i] = int16(v >> 16)
		}
	default: // 16
		for i, v := range buf.Data {
			samples[i] = int16(v)
		}
	}

	return &wavData{
		samples:    samples,
		channels:   buf.Format.NumChannels,
		sampleRate: buf.Format.SampleRate,
	}, nil
}
