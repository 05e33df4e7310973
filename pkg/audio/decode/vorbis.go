// ABOUTME: Ogg Vorbis source
// ABOUTME: Decodes Ogg Vorbis to float frames with jfreymuth/oggvorbis
package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// VorbisSource reads frames from an Ogg Vorbis stream
type VorbisSource struct {
	reader *oggvorbis.Reader
	buf    []float32
	framer
}

// NewVorbis creates an Ogg Vorbis source producing packed float frames
func NewVorbis(r io.Reader, samplesPerFrame int) (*VorbisSource, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}

	track, err := newTrack(reader.SampleRate(), audio.SampleFormatFLT, reader.Channels(), samplesPerFrame)
	if err != nil {
		return nil, err
	}

	return &VorbisSource{
		reader: reader,
		buf:    make([]float32, track.SamplesPerFrame*track.Channels()),
		framer: framer{track: track},
	}, nil
}

func (s *VorbisSource) Track() audio.Track { return s.track }

func (s *VorbisSource) ReadFrame() (*audio.Frame, error) {
	channels := s.track.Channels()

	// Read may return fewer values than asked for; fill the whole frame
	filled := 0
	for filled < len(s.buf) {
		n, err := s.reader.Read(s.buf[filled:])
		filled += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("vorbis decode error: %w", err)
		}
		if n == 0 {
			break
		}
	}

	samples := filled / channels
	if samples == 0 {
		return nil, io.EOF
	}

	frame := s.next(samples)
	for i := 0; i < samples; i++ {
		for ch := 0; ch < channels; ch++ {
			frame.SetSample(ch, i, float64(s.buf[i*channels+ch]))
		}
	}
	return frame, nil
}

func (s *VorbisSource) Close() error { return nil }
