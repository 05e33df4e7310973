// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 16-bit interleaved frames to Opus packets
package encode

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// maxPacketSize is the recommended upper bound for one Opus packet
const maxPacketSize = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder    *opus.Encoder
	sampleRate int
	channels   int
}

// NewOpus creates a new Opus encoder for the track's rate and channel count
func NewOpus(track audio.Track) (*OpusEncoder, error) {
	switch track.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, fmt.Errorf("%w: opus does not support %dHz", ErrUnsupportedCodec, track.SampleRate)
	}

	channels := track.Channels()
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: opus supports mono or stereo, got %d channels", ErrUnsupportedCodec, channels)
	}

	encoder, err := opus.NewEncoder(track.SampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if err := encoder.SetBitrate(64000 * channels); err != nil {
		return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
	}

	return &OpusEncoder{
		encoder:    encoder,
		sampleRate: track.SampleRate,
		channels:   channels,
	}, nil
}

// Encode converts a frame to one Opus packet. The frame must hold 2.5, 5,
// 10, 20, 40 or 60ms of audio.
func (e *OpusEncoder) Encode(frame *audio.Frame) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if frame.SampleRate != e.sampleRate || frame.Channels() != e.channels {
		return nil, fmt.Errorf("%w: got %dHz/%dch, want %dHz/%dch",
			ErrFrameMismatch, frame.SampleRate, frame.Channels(), e.sampleRate, e.channels)
	}
	if !validOpusFrame(frame.Samples, e.sampleRate) {
		return nil, fmt.Errorf("%w: %d samples is not an opus frame size at %dHz",
			ErrFrameMismatch, frame.Samples, e.sampleRate)
	}

	samples := frame.Interleaved24()
	pcm := make([]int16, len(samples))
	for i, sample := range samples {
		pcm[i] = audio.SampleToInt16(sample)
	}

	data := make([]byte, maxPacketSize)
	n, err := e.encoder.Encode(pcm, data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	return data[:n], nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}

func validOpusFrame(samples, sampleRate int) bool {
	// durations in tenths of a millisecond
	for _, d := range []int{25, 50, 100, 200, 400, 600} {
		if samples*10000 == d*sampleRate {
			return true
		}
	}
	return false
}
