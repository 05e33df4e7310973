// ABOUTME: WAV file writer
// ABOUTME: Writes frames to an integer PCM WAV file with go-audio/wav
package encode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// wavFormatPCM is the WAVE_FORMAT_PCM format tag
const wavFormatPCM = 1

// WAVWriter appends frames to a WAV file. The header is finalized on Close.
type WAVWriter struct {
	encoder  *wav.Encoder
	format   *goaudio.Format
	bitDepth int
	channels int
	written  int64
}

// NewWAVWriter creates a WAV writer for frames of track
func NewWAVWriter(w io.WriteSeeker, track audio.Track, bitDepth int) (*WAVWriter, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("%w: %d (supported: 16, 24)", ErrUnsupportedBitDepth, bitDepth)
	}
	if err := track.Validate(); err != nil {
		return nil, err
	}

	channels := track.Channels()
	return &WAVWriter{
		encoder:  wav.NewEncoder(w, track.SampleRate, bitDepth, channels, wavFormatPCM),
		format:   &goaudio.Format{NumChannels: channels, SampleRate: track.SampleRate},
		bitDepth: bitDepth,
		channels: channels,
	}, nil
}

// Write appends one frame
func (w *WAVWriter) Write(frame *audio.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if frame.Channels() != w.channels || frame.SampleRate != w.format.SampleRate {
		return fmt.Errorf("%w: got %dHz/%dch, want %dHz/%dch",
			ErrFrameMismatch, frame.SampleRate, frame.Channels(), w.format.SampleRate, w.channels)
	}

	samples := frame.Interleaved24()
	data := make([]int, len(samples))
	for i, s := range samples {
		if w.bitDepth == 16 {
			data[i] = int(audio.SampleToInt16(s))
		} else {
			data[i] = int(s)
		}
	}

	buf := &goaudio.IntBuffer{Format: w.format, Data: data, SourceBitDepth: w.bitDepth}
	if err := w.encoder.Write(buf); err != nil {
		return fmt.Errorf("wav write error: %w", err)
	}
	w.written += int64(frame.Samples)
	return nil
}

// Written returns the number of samples per channel written so far
func (w *WAVWriter) Written() int64 {
	return w.written
}

// Close finalizes the WAV header. It does not close the underlying writer.
func (w *WAVWriter) Close() error {
	if err := w.encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return nil
}
