// ABOUTME: Unit tests for frame sources
// ABOUTME: Tests tone, raw PCM, WAV round trip and invalid input handling
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

func TestToneSource(t *testing.T) {
	track, err := newTrack(48000, audio.SampleFormatFLT, 2, 480)
	if err != nil {
		t.Fatalf("newTrack() failed: %v", err)
	}

	src, err := NewTone(track, 1000, 0.5, 1000)
	if err != nil {
		t.Fatalf("NewTone() failed: %v", err)
	}
	defer src.Close()

	var sizes []int
	var pts []int64
	peak := 0.0
	for {
		frame, err := src.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame() failed: %v", err)
		}
		sizes = append(sizes, frame.Samples)
		pts = append(pts, frame.PTS)
		for i := 0; i < frame.Samples; i++ {
			if frame.Sample(0, i) != frame.Sample(1, i) {
				t.Fatalf("channels differ at sample %d", i)
			}
			peak = math.Max(peak, math.Abs(frame.Sample(0, i)))
		}
	}

	wantSizes := []int{480, 480, 40}
	wantPTS := []int64{0, 480, 960}
	if len(sizes) != len(wantSizes) {
		t.Fatalf("expected %d frames, got %d", len(wantSizes), len(sizes))
	}
	for i := range wantSizes {
		if sizes[i] != wantSizes[i] || pts[i] != wantPTS[i] {
			t.Errorf("frame %d: expected %d samples at %d, got %d at %d",
				i, wantSizes[i], wantPTS[i], sizes[i], pts[i])
		}
	}
	if peak < 0.49 || peak > 0.5 {
		t.Errorf("expected peak near 0.5, got %v", peak)
	}
}

func TestNewTestTone(t *testing.T) {
	src := NewTestTone(0)
	track := src.Track()

	if track.SampleRate != 48000 || track.Channels() != 2 || track.SampleFormat != audio.SampleFormatS16 {
		t.Errorf("unexpected test tone track %s", track)
	}
	if track.SamplesPerFrame != DefaultSamplesPerFrame {
		t.Errorf("expected default frame size %d, got %d", DefaultSamplesPerFrame, track.SamplesPerFrame)
	}

	// endless
	for i := 0; i < 10; i++ {
		if _, err := src.ReadFrame(); err != nil {
			t.Fatalf("ReadFrame() %d failed: %v", i, err)
		}
	}
}

func TestPCMSource(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		raw      []byte
		format   audio.SampleFormat
		want     []float64 // interleaved
	}{
		{
			name:     "16-bit",
			bitDepth: 16,
			raw:      le16(16384, -16384, 0, 32767, -32768, 8192),
			format:   audio.SampleFormatS16,
			want:     []float64{0.5, -0.5, 0, 32767.0 / 32768, -1, 0.25},
		},
		{
			name:     "24-bit",
			bitDepth: 24,
			raw:      le24(4194304, -4194304, 0, 2097152, -8388608, 1),
			format:   audio.SampleFormatS32,
			want:     []float64{0.5, -0.5, 0, 0.25, -1, 1.0 / 8388608},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewPCM(bytes.NewReader(tt.raw), 44100, 2, tt.bitDepth, 2)
			if err != nil {
				t.Fatalf("NewPCM() failed: %v", err)
			}
			if src.Track().SampleFormat != tt.format {
				t.Errorf("expected format %s, got %s", tt.format, src.Track().SampleFormat)
			}

			var got []float64
			var frames int
			for {
				frame, err := src.ReadFrame()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("ReadFrame() failed: %v", err)
				}
				frames++
				for i := 0; i < frame.Samples; i++ {
					got = append(got, frame.Sample(0, i), frame.Sample(1, i))
				}
			}

			// three samples per channel at two per frame
			if frames != 2 {
				t.Errorf("expected 2 frames, got %d", frames)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d values, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-6 {
					t.Errorf("value %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestNewPCMErrors(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		channels   int
		bitDepth   int
		want       error
	}{
		{"32-bit", 48000, 2, 32, ErrUnsupportedBitDepth},
		{"8-bit", 48000, 2, 8, ErrUnsupportedBitDepth},
		{"zero rate", 0, 2, 16, audio.ErrInvalidTrack},
		{"nine channels", 48000, 9, 16, audio.ErrUnknownChannelLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPCM(bytes.NewReader(nil), tt.sampleRate, tt.channels, tt.bitDepth, 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.wav")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	enc := wav.NewEncoder(f, 22050, 16, 1, 1)
	data := make([]int, 300)
	for i := range data {
		data[i] = (i - 150) * 100
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 22050},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encoder close failed: %v", err)
	}
	f.Close()

	src, err := Open(path, 128)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer src.Close()

	track := src.Track()
	if track.SampleRate != 22050 || track.Layout != audio.LayoutMono || track.SampleFormat != audio.SampleFormatS16 {
		t.Fatalf("unexpected track %s", track)
	}

	var got []int
	for {
		frame, err := src.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame() failed: %v", err)
		}
		if frame.PTS != int64(len(got)) {
			t.Errorf("expected pts %d, got %d", len(got), frame.PTS)
		}
		for i := 0; i < frame.Samples; i++ {
			got = append(got, int(math.Round(frame.Sample(0, i)*32768)))
		}
	}

	if len(got) != len(data) {
		t.Fatalf("expected %d samples, got %d", len(data), len(got))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, data[i], got[i])
		}
	}
}

func TestInvalidInput(t *testing.T) {
	garbage := bytes.Repeat([]byte("not audio "), 8)

	tests := []struct {
		name string
		open func() error
	}{
		{"mp3", func() error { _, err := NewMP3(bytes.NewReader(nil), 0); return err }},
		{"flac", func() error { _, err := NewFLAC(bytes.NewReader(garbage), 0); return err }},
		{"wav", func() error { _, err := NewWAV(bytes.NewReader(garbage), 0); return err }},
		{"vorbis", func() error { _, err := NewVorbis(bytes.NewReader(garbage), 0); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.open(); err == nil {
				t.Error("expected error for invalid input, got nil")
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	aac := filepath.Join(dir, "track.aac")
	if err := os.WriteFile(aac, []byte("data"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := Open(aac, 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Open(filepath.Join(dir, "missing.wav"), 0); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func le16(values ...int16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func le24(values ...int32) []byte {
	out := make([]byte, 0, len(values)*3)
	for _, v := range values {
		b := audio.SampleTo24Bit(v)
		out = append(out, b[:]...)
	}
	return out
}
