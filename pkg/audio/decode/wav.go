// ABOUTME: WAV source
// ABOUTME: Decodes integer PCM WAV files with go-audio/wav
package decode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// WAVSource reads frames from a WAV file
type WAVSource struct {
	decoder  *wav.Decoder
	bitDepth int
	buf      *goaudio.IntBuffer
	framer
}

// NewWAV creates a WAV source. 8-bit files map to u8, 16-bit to s16 and
// deeper files to s32.
func NewWAV(r io.ReadSeeker, samplesPerFrame int) (*WAVSource, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	var format audio.SampleFormat
	switch bitDepth {
	case 8:
		format = audio.SampleFormatU8
	case 16:
		format = audio.SampleFormatS16
	case 24, 32:
		format = audio.SampleFormatS32
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	channels := int(decoder.NumChans)
	track, err := newTrack(int(decoder.SampleRate), format, channels, samplesPerFrame)
	if err != nil {
		return nil, err
	}

	return &WAVSource{
		decoder:  decoder,
		bitDepth: bitDepth,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: channels, SampleRate: track.SampleRate},
			Data:   make([]int, track.SamplesPerFrame*channels),
		},
		framer: framer{track: track},
	}, nil
}

func (s *WAVSource) Track() audio.Track { return s.track }

func (s *WAVSource) ReadFrame() (*audio.Frame, error) {
	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("wav decode error: %w", err)
	}

	channels := s.track.Channels()
	samples := n / channels
	if samples == 0 {
		return nil, io.EOF
	}

	frame := s.next(samples)
	scale := float64(int64(1) << (s.bitDepth - 1))
	for i := 0; i < samples; i++ {
		for ch := 0; ch < channels; ch++ {
			v := s.buf.Data[i*channels+ch]
			if s.bitDepth == 8 {
				// go-audio returns unsigned 8-bit values
				v -= 128
			}
			frame.SetSample(ch, i, float64(v)/scale)
		}
	}
	return frame, nil
}

func (s *WAVSource) Close() error { return nil }
