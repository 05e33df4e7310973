// ABOUTME: Sine tone source for tests and demos
// ABOUTME: Generates a fixed-frequency tone in any track format
package decode

import (
	"io"
	"math"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// ToneSource generates a sine tone on every channel
type ToneSource struct {
	frequency float64
	amplitude float64
	remaining int64 // samples left, negative for endless
	framer
}

// NewTone creates a tone source. duration is in samples; 0 means endless.
func NewTone(track audio.Track, frequency, amplitude float64, duration int64) (*ToneSource, error) {
	if track.SamplesPerFrame <= 0 {
		track.SamplesPerFrame = DefaultSamplesPerFrame
	}
	if err := track.Validate(); err != nil {
		return nil, err
	}

	remaining := duration
	if duration <= 0 {
		remaining = -1
	}

	return &ToneSource{
		frequency: frequency,
		amplitude: amplitude,
		remaining: remaining,
		framer:    framer{track: track},
	}, nil
}

// NewTestTone returns an endless 440Hz tone at 48kHz stereo s16, half volume
func NewTestTone(samplesPerFrame int) *ToneSource {
	track, _ := newTrack(48000, audio.SampleFormatS16, 2, samplesPerFrame)
	s, _ := NewTone(track, 440, 0.5, 0)
	return s
}

func (s *ToneSource) Track() audio.Track { return s.track }

func (s *ToneSource) ReadFrame() (*audio.Frame, error) {
	samples := int64(s.track.SamplesPerFrame)
	if s.remaining >= 0 {
		samples = min(samples, s.remaining)
		s.remaining -= samples
	}
	if samples == 0 {
		return nil, io.EOF
	}

	start := s.pts
	frame := s.next(int(samples))
	for i := 0; i < frame.Samples; i++ {
		t := float64(start+int64(i)) / float64(s.track.SampleRate)
		v := s.amplitude * math.Sin(2*math.Pi*s.frequency*t)
		for ch := 0; ch < frame.Channels(); ch++ {
			frame.SetSample(ch, i, v)
		}
	}
	return frame, nil
}

func (s *ToneSource) Close() error { return nil }
