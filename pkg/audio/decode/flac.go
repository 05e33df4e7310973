// ABOUTME: FLAC source
// ABOUTME: Decodes FLAC to planar integer frames with mewkiz/flac
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// FLACSource reads frames from a FLAC stream
type FLACSource struct {
	stream   *flac.Stream
	bitDepth int
	pending  [][]int32
	eof      bool
	framer
}

// NewFLAC creates a FLAC source. 8 and 16-bit streams map to s16p, deeper
// streams to s32p.
func NewFLAC(r io.Reader, samplesPerFrame int) (*FLACSource, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	bitDepth := int(info.BitsPerSample)
	format := audio.SampleFormatS32P
	switch {
	case bitDepth <= 0 || bitDepth > 32:
		stream.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	case bitDepth <= 16:
		format = audio.SampleFormatS16P
	}

	track, err := newTrack(int(info.SampleRate), format, int(info.NChannels), samplesPerFrame)
	if err != nil {
		stream.Close()
		return nil, err
	}

	return &FLACSource{
		stream:   stream,
		bitDepth: bitDepth,
		pending:  make([][]int32, info.NChannels),
		framer:   framer{track: track},
	}, nil
}

func (s *FLACSource) Track() audio.Track { return s.track }

func (s *FLACSource) ReadFrame() (*audio.Frame, error) {
	want := s.track.SamplesPerFrame
	for !s.eof && len(s.pending[0]) < want {
		block, err := s.stream.ParseNext()
		if err == io.EOF {
			s.eof = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac decode error: %w", err)
		}
		for ch := range s.pending {
			s.pending[ch] = append(s.pending[ch], block.Subframes[ch].Samples...)
		}
	}

	samples := min(want, len(s.pending[0]))
	if samples == 0 {
		return nil, io.EOF
	}

	frame := s.next(samples)
	scale := float64(int64(1) << (s.bitDepth - 1))
	for ch := range s.pending {
		for i, v := range s.pending[ch][:samples] {
			frame.SetSample(ch, i, float64(v)/scale)
		}
		s.pending[ch] = s.pending[ch][samples:]
	}
	return frame, nil
}

func (s *FLACSource) Close() error {
	return s.stream.Close()
}
