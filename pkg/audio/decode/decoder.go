// ABOUTME: Source interface definition and file dispatch
// ABOUTME: Common interface for all frame-producing decoders
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// DefaultSamplesPerFrame is used when a caller passes a non-positive frame size
const DefaultSamplesPerFrame = 1024

var (
	ErrUnsupportedFormat   = errors.New("unsupported audio format")
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
)

// Source produces raw audio frames of a single track
type Source interface {
	// Track describes the frames returned by ReadFrame
	Track() audio.Track

	// ReadFrame returns the next frame, or io.EOF when the stream is done
	ReadFrame() (*audio.Frame, error)

	// Close releases decoder resources
	Close() error
}

// Open creates a source for a local file based on its extension
func Open(path string, samplesPerFrame int) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	var src Source
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		src, err = NewMP3(f, samplesPerFrame)
	case ".flac":
		src, err = NewFLAC(f, samplesPerFrame)
	case ".wav":
		src, err = NewWAV(f, samplesPerFrame)
	case ".ogg", ".oga":
		src, err = NewVorbis(f, samplesPerFrame)
	default:
		err = fmt.Errorf("%w: %s (supported: .mp3, .flac, .wav, .ogg)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	return &fileSource{Source: src, file: f}, nil
}

// fileSource closes the underlying file together with the decoder
type fileSource struct {
	Source
	file *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	// some decoders close the file themselves
	if cerr := s.file.Close(); err == nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}

// newTrack builds a track with a 1/rate timebase
func newTrack(rate int, format audio.SampleFormat, channels, samplesPerFrame int) (audio.Track, error) {
	layout := audio.DefaultLayout(channels)
	if !layout.Valid() {
		return audio.Track{}, fmt.Errorf("%w: %d channels", audio.ErrUnknownChannelLayout, channels)
	}
	if samplesPerFrame <= 0 {
		samplesPerFrame = DefaultSamplesPerFrame
	}

	t := audio.Track{
		SampleRate:      rate,
		SampleFormat:    format,
		Layout:          layout,
		Timebase:        audio.TimebaseForRate(rate),
		SamplesPerFrame: samplesPerFrame,
	}
	return t, t.Validate()
}

// framer allocates consecutive frames with running timestamps
type framer struct {
	track audio.Track
	pts   int64
}

func (f *framer) next(samples int) *audio.Frame {
	frame := audio.NewFrame(f.track.SampleFormat, f.track.Layout, f.track.SampleRate, samples)
	frame.PTS = f.pts
	f.pts += int64(samples)
	return frame
}
