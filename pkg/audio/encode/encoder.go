// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders and codec dispatch
package encode

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

var (
	ErrUnsupportedCodec    = errors.New("unsupported codec")
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrFrameMismatch       = errors.New("frame does not match encoder")
)

// Encoder encodes raw frames to bytes
type Encoder interface {
	// Encode converts one frame to encoded audio data
	Encode(frame *audio.Frame) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// New creates an encoder for codec ("pcm" or "opus") matching track
func New(codec string, track audio.Track, bitDepth int) (Encoder, error) {
	var (
		enc Encoder
		err error
	)
	switch codec {
	case "pcm":
		enc, err = NewPCM(bitDepth)
	case "opus":
		enc, err = NewOpus(track)
	default:
		err = fmt.Errorf("%w: %s (supported: pcm, opus)", ErrUnsupportedCodec, codec)
	}
	if err != nil {
		return nil, err
	}
	return enc, nil
}
