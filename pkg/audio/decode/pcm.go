// ABOUTME: Raw PCM source
// ABOUTME: Reads headerless little-endian 16-bit or 24-bit interleaved PCM
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// PCMSource reads frames from raw interleaved PCM
type PCMSource struct {
	r        io.Reader
	bitDepth int
	framer
}

// NewPCM creates a raw PCM source. 16-bit input maps to s16, 24-bit input
// to s32.
func NewPCM(r io.Reader, sampleRate, channels, bitDepth, samplesPerFrame int) (*PCMSource, error) {
	var format audio.SampleFormat
	switch bitDepth {
	case 16:
		format = audio.SampleFormatS16
	case 24:
		format = audio.SampleFormatS32
	default:
		return nil, fmt.Errorf("%w: %d (supported: 16, 24)", ErrUnsupportedBitDepth, bitDepth)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", audio.ErrInvalidTrack, sampleRate)
	}

	track, err := newTrack(sampleRate, format, channels, samplesPerFrame)
	if err != nil {
		return nil, err
	}

	return &PCMSource{r: r, bitDepth: bitDepth, framer: framer{track: track}}, nil
}

func (s *PCMSource) Track() audio.Track { return s.track }

func (s *PCMSource) ReadFrame() (*audio.Frame, error) {
	channels := s.track.Channels()
	width := s.bitDepth / 8 * channels
	buf := make([]byte, s.track.SamplesPerFrame*width)

	n, err := io.ReadFull(s.r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("pcm read error: %w", err)
	}

	samples := n / width
	if samples == 0 {
		return nil, io.EOF
	}

	frame := s.next(samples)
	if s.bitDepth == 16 {
		copy(frame.Data[0], buf[:samples*width])
		return frame, nil
	}

	for i := 0; i < samples*channels; i++ {
		frame.SetSample(i%channels, i/channels, audio.Int24ToFloat(audio.Get24(buf[i*3:])))
	}
	return frame, nil
}

func (s *PCMSource) Close() error { return nil }
