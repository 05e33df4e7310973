// ABOUTME: PCM audio encoder
// ABOUTME: Encodes frames to interleaved 16-bit or 24-bit PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder
func NewPCM(bitDepth int) (*PCMEncoder, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("%w: %d (supported: 16, 24)", ErrUnsupportedBitDepth, bitDepth)
	}

	return &PCMEncoder{
		bitDepth: bitDepth,
	}, nil
}

// BitDepth returns the encoded sample width in bits
func (e *PCMEncoder) BitDepth() int {
	return e.bitDepth
}

// Encode converts a frame to little-endian interleaved PCM bytes
func (e *PCMEncoder) Encode(frame *audio.Frame) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	samples := frame.Interleaved24()
	if e.bitDepth == 24 {
		output := make([]byte, len(samples)*3)
		for i, sample := range samples {
			audio.Put24(output[i*3:], sample)
		}
		return output, nil
	}

	// 16-bit PCM: 2 bytes per sample
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	return output, nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
