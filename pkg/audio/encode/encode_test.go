// ABOUTME: Unit tests for audio encoders
// ABOUTME: Tests PCM byte layout, Opus packets and WAV file output
package encode

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

func stereoTrack(rate int) audio.Track {
	return audio.Track{
		SampleRate:      rate,
		SampleFormat:    audio.SampleFormatFLT,
		Layout:          audio.LayoutStereo,
		Timebase:        audio.TimebaseForRate(rate),
		SamplesPerFrame: rate / 50,
	}
}

// rampFrame fills a stereo frame with a ramp on the left channel and its
// negation on the right
func rampFrame(format audio.SampleFormat, rate, samples int) *audio.Frame {
	f := audio.NewFrame(format, audio.LayoutStereo, rate, samples)
	for i := 0; i < samples; i++ {
		v := float64(i%100)/100 - 0.5
		f.SetSample(0, i, v)
		f.SetSample(1, i, -v)
	}
	return f
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		codec    string
		track    audio.Track
		bitDepth int
		wantErr  error
	}{
		{"pcm 16", "pcm", stereoTrack(44100), 16, nil},
		{"pcm 24", "pcm", stereoTrack(44100), 24, nil},
		{"pcm 32", "pcm", stereoTrack(44100), 32, ErrUnsupportedBitDepth},
		{"opus 48k", "opus", stereoTrack(48000), 16, nil},
		{"opus 44.1k", "opus", stereoTrack(44100), 16, ErrUnsupportedCodec},
		{"flac", "flac", stereoTrack(48000), 16, ErrUnsupportedCodec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := New(tt.codec, tt.track, tt.bitDepth)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				if enc != nil {
					t.Errorf("New() returned encoder %T with error", enc)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error = %v", err)
			}
			defer enc.Close()
		})
	}
}

func TestPCMEncoder_Encode16Bit(t *testing.T) {
	encoder, err := NewPCM(16)
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}

	f := audio.NewFrame(audio.SampleFormatFLTP, audio.LayoutStereo, 48000, 2)
	f.SetSample(0, 0, 0.5)
	f.SetSample(1, 0, -0.5)
	f.SetSample(0, 1, 1)
	f.SetSample(1, 1, -1)

	output, err := encoder.Encode(f)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	want := []int16{16384, -16384, 32767, -32768}
	if len(output) != len(want)*2 {
		t.Fatalf("expected %d bytes, got %d", len(want)*2, len(output))
	}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(output[i*2:])); got != w {
			t.Errorf("sample %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestPCMEncoder_Encode24Bit(t *testing.T) {
	encoder, err := NewPCM(24)
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}

	f := audio.NewFrame(audio.SampleFormatS32, audio.LayoutMono, 96000, 3)
	f.SetSample(0, 0, 0.5)
	f.SetSample(0, 1, -0.25)
	f.SetSample(0, 2, 1.0/8388608)

	output, err := encoder.Encode(f)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	want := []int32{4194304, -2097152, 1}
	if len(output) != len(want)*3 {
		t.Fatalf("expected %d bytes, got %d", len(want)*3, len(output))
	}
	for i, w := range want {
		got := audio.SampleFrom24Bit([3]byte{output[i*3], output[i*3+1], output[i*3+2]})
		if got != w {
			t.Errorf("sample %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestPCMEncoder_InvalidFrame(t *testing.T) {
	encoder, _ := NewPCM(16)
	f := rampFrame(audio.SampleFormatS16, 48000, 10)
	f.Unref()

	if _, err := encoder.Encode(f); !errors.Is(err, audio.ErrInvalidFrame) {
		t.Errorf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestOpusEncoder_Encode(t *testing.T) {
	tests := []struct {
		name    string
		samples int
		silence bool
		wantErr bool
	}{
		{"20ms ramp", 960, false, false},
		{"20ms silence", 960, true, false},
		{"10ms ramp", 480, false, false},
		{"odd frame size", 1000, false, true},
	}

	encoder, err := NewOpus(stereoTrack(48000))
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rampFrame(audio.SampleFormatFLT, 48000, tt.samples)
			if tt.silence {
				f = audio.NewFrame(audio.SampleFormatFLT, audio.LayoutStereo, 48000, tt.samples)
			}

			output, err := encoder.Encode(f)
			if tt.wantErr {
				if !errors.Is(err, ErrFrameMismatch) {
					t.Errorf("expected ErrFrameMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}

			// Opus packets should be non-empty and within max size
			if len(output) == 0 {
				t.Errorf("Encode() returned empty output")
			}
			if len(output) > maxPacketSize {
				t.Errorf("Encode() output size %d exceeds max Opus packet size %d", len(output), maxPacketSize)
			}
		})
	}
}

func TestOpusEncoder_RejectsMismatchedFrame(t *testing.T) {
	encoder, err := NewOpus(stereoTrack(48000))
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}

	f := audio.NewFrame(audio.SampleFormatFLT, audio.LayoutMono, 48000, 960)
	if _, err := encoder.Encode(f); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("expected ErrFrameMismatch, got %v", err)
	}
}

func TestNewOpusChannels(t *testing.T) {
	track := stereoTrack(48000)
	track.Layout = audio.Layout5Point1

	_, err := NewOpus(track)
	if err == nil || !strings.Contains(err.Error(), "mono or stereo") {
		t.Errorf("expected channel count error, got %v", err)
	}
}

func TestWAVWriter(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
	}{
		{"16-bit", 16},
		{"24-bit", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.wav")
			f, err := os.Create(path)
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}

			track := stereoTrack(48000)
			w, err := NewWAVWriter(f, track, tt.bitDepth)
			if err != nil {
				t.Fatalf("NewWAVWriter() failed: %v", err)
			}
			for i := 0; i < 3; i++ {
				if err := w.Write(rampFrame(audio.SampleFormatFLT, 48000, 960)); err != nil {
					t.Fatalf("Write() failed: %v", err)
				}
			}
			if w.Written() != 2880 {
				t.Errorf("expected 2880 samples written, got %d", w.Written())
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() failed: %v", err)
			}
			f.Close()

			r, err := os.Open(path)
			if err != nil {
				t.Fatalf("open failed: %v", err)
			}
			defer r.Close()

			dec := wav.NewDecoder(r)
			if !dec.IsValidFile() {
				t.Fatal("written file is not a valid WAV file")
			}
			if int(dec.BitDepth) != tt.bitDepth || dec.NumChans != 2 || dec.SampleRate != 48000 {
				t.Errorf("unexpected header: %d-bit %dch %dHz", dec.BitDepth, dec.NumChans, dec.SampleRate)
			}

			buf, err := dec.FullPCMBuffer()
			if err != nil {
				t.Fatalf("FullPCMBuffer() failed: %v", err)
			}
			if len(buf.Data) != 2880*2 {
				t.Fatalf("expected %d values, got %d", 2880*2, len(buf.Data))
			}
			// left and right are negations of each other
			for i := 0; i < len(buf.Data); i += 2 {
				if buf.Data[i]+buf.Data[i+1] > 1 || buf.Data[i]+buf.Data[i+1] < -1 {
					t.Fatalf("sample %d: channels are not mirrored: %d %d", i/2, buf.Data[i], buf.Data[i+1])
				}
			}
		})
	}
}

func TestWAVWriter_RejectsMismatchedFrame(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.wav"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer f.Close()

	w, err := NewWAVWriter(f, stereoTrack(48000), 16)
	if err != nil {
		t.Fatalf("NewWAVWriter() failed: %v", err)
	}
	if err := w.Write(rampFrame(audio.SampleFormatFLT, 44100, 10)); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("expected ErrFrameMismatch, got %v", err)
	}

	if _, err := NewWAVWriter(f, stereoTrack(48000), 8); !errors.Is(err, ErrUnsupportedBitDepth) {
		t.Errorf("expected ErrUnsupportedBitDepth, got %v", err)
	}
}
