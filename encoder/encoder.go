// Package encoder writes captured PCM blocks to WAV files.
package encoder

const (
	SampleRate    = 44100
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	TotalFrames() uint64
}
