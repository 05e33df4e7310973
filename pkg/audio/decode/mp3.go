// ABOUTME: MP3 source
// ABOUTME: Decodes MP3 to 16-bit stereo frames with go-mp3
package decode

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// MP3Source reads frames from an MP3 stream
type MP3Source struct {
	decoder *mp3.Decoder
	framer
}

// NewMP3 creates an MP3 source. go-mp3 always decodes to 16-bit stereo.
func NewMP3(r io.Reader, samplesPerFrame int) (*MP3Source, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	track, err := newTrack(decoder.SampleRate(), audio.SampleFormatS16, 2, samplesPerFrame)
	if err != nil {
		return nil, err
	}

	return &MP3Source{decoder: decoder, framer: framer{track: track}}, nil
}

func (s *MP3Source) Track() audio.Track { return s.track }

func (s *MP3Source) ReadFrame() (*audio.Frame, error) {
	const bytesPerSample = 4 // s16 stereo
	buf := make([]byte, s.track.SamplesPerFrame*bytesPerSample)

	n, err := io.ReadFull(s.decoder, buf)
	samples := n / bytesPerSample
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, err
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	frame := s.next(samples)
	copy(frame.Data[0], buf[:samples*bytesPerSample])
	return frame, nil
}

func (s *MP3Source) Close() error { return nil }
