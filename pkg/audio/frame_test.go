// ABOUTME: Tests for Frame geometry and sample access
// ABOUTME: Covers packed/planar layouts, clamping and validation
package audio

import (
	"errors"
	"math"
	"testing"
)

func TestNewFrameGeometry(t *testing.T) {
	tests := []struct {
		name      string
		format    SampleFormat
		layout    ChannelLayout
		samples   int
		planes    int
		planeSize int
	}{
		{"s16 stereo packed", SampleFormatS16, LayoutStereo, 1024, 1, 1024 * 2 * 2},
		{"flt stereo packed", SampleFormatFLT, LayoutStereo, 960, 1, 960 * 4 * 2},
		{"fltp stereo planar", SampleFormatFLTP, LayoutStereo, 960, 2, 960 * 4},
		{"s32p 5.1 planar", SampleFormatS32P, Layout5Point1, 10, 6, 40},
		{"u8 mono", SampleFormatU8, LayoutMono, 7, 1, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(tt.format, tt.layout, 48000, tt.samples)
			if len(f.Data) != tt.planes {
				t.Fatalf("expected %d planes, got %d", tt.planes, len(f.Data))
			}
			if f.LineSize() != tt.planeSize {
				t.Errorf("expected line size %d, got %d", tt.planeSize, f.LineSize())
			}
			if f.PTS != NoPTS {
				t.Errorf("expected NoPTS, got %d", f.PTS)
			}
			if err := f.Validate(); err != nil {
				t.Errorf("fresh frame should validate: %v", err)
			}
		})
	}
}

func TestFrameSampleRoundTrip(t *testing.T) {
	formats := []SampleFormat{
		SampleFormatS16, SampleFormatS16P,
		SampleFormatS32, SampleFormatS32P,
		SampleFormatFLT, SampleFormatFLTP,
		SampleFormatDBL, SampleFormatDBLP,
		SampleFormatU8, SampleFormatU8P,
	}
	values := []float64{0, 0.5, -0.5, 0.25, -1}

	for _, format := range formats {
		t.Run(format.Name(), func(t *testing.T) {
			f := NewFrame(format, LayoutStereo, 48000, len(values))
			for i, v := range values {
				f.SetSample(0, i, v)
				f.SetSample(1, i, -v)
			}
			for i, v := range values {
				if got := f.Sample(0, i); math.Abs(got-v) > 1.0/128 {
					t.Errorf("ch0[%d]: expected %v, got %v", i, v, got)
				}
				if got := f.Sample(1, i); math.Abs(got+v) > 1.0/128 {
					t.Errorf("ch1[%d]: expected %v, got %v", i, -v, got)
				}
			}
		})
	}
}

func TestFrameS16Exact(t *testing.T) {
	f := NewFrame(SampleFormatS16, LayoutMono, 44100, 4)
	raw := []int16{32767, -32768, 1, -1}
	for i, s := range raw {
		f.Data[0][i*2] = byte(uint16(s))
		f.Data[0][i*2+1] = byte(uint16(s) >> 8)
	}

	out := NewFrame(SampleFormatS16, LayoutMono, 44100, 4)
	for i := range raw {
		out.SetSample(0, i, f.Sample(0, i))
	}

	for i := range f.Data[0] {
		if f.Data[0][i] != out.Data[0][i] {
			t.Fatalf("byte %d differs after s16 round trip: %d vs %d", i, f.Data[0][i], out.Data[0][i])
		}
	}
}

func TestFrameSetSampleClamps(t *testing.T) {
	f := NewFrame(SampleFormatS16, LayoutMono, 8000, 2)
	f.SetSample(0, 0, 4.0)
	f.SetSample(0, 1, -4.0)

	if got := f.Sample(0, 0); got != 32767.0/32768 {
		t.Errorf("expected positive clamp, got %v", got)
	}
	if got := f.Sample(0, 1); got != -1 {
		t.Errorf("expected negative clamp, got %v", got)
	}
}

func TestFrameSetSampleNaN(t *testing.T) {
	for _, format := range []SampleFormat{SampleFormatU8, SampleFormatS16, SampleFormatS32, SampleFormatS16P} {
		t.Run(format.String(), func(t *testing.T) {
			f := NewFrame(format, LayoutStereo, 8000, 2)
			f.SetSample(0, 0, 0.5)
			f.SetSample(0, 0, math.NaN())
			f.SetSample(1, 1, math.NaN())

			if got := f.Sample(0, 0); got != 0 {
				t.Errorf("expected NaN to store silence, got %v", got)
			}
			if got := f.Sample(1, 1); got != 0 {
				t.Errorf("expected NaN to store silence, got %v", got)
			}
		})
	}

	// the packed 24-bit path shares the same quantizer
	f := NewFrame(SampleFormatS32, LayoutMono, 8000, 1)
	f.SetSample(0, 0, math.NaN())
	if got := f.Interleaved24(); got[0] != 0 {
		t.Errorf("expected 0 in 24-bit output, got %d", got[0])
	}
}

func TestFrameValidate(t *testing.T) {
	short := NewFrame(SampleFormatS16, LayoutStereo, 44100, 16)
	short.Data[0] = short.Data[0][:10]

	missingPlane := NewFrame(SampleFormatFLTP, LayoutStereo, 48000, 16)
	missingPlane.Data = missingPlane.Data[:1]

	empty := NewFrame(SampleFormatS16, LayoutStereo, 44100, 16)
	empty.Unref()

	badFormat := NewFrame(SampleFormatS16, LayoutStereo, 44100, 16)
	badFormat.Format = SampleFormatNone

	tests := []struct {
		name  string
		frame *Frame
	}{
		{"short plane", short},
		{"missing plane", missingPlane},
		{"unreferenced", empty},
		{"unknown format", badFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("expected ErrInvalidFrame, got %v", err)
			}
		})
	}
}

func TestFrameClone(t *testing.T) {
	f := NewFrame(SampleFormatFLT, LayoutStereo, 48000, 4)
	f.PTS = 1234
	f.SetSample(1, 3, 0.75)

	c := f.Clone()
	c.SetSample(1, 3, -0.25)

	if f.Sample(1, 3) != 0.75 {
		t.Error("clone shares buffers with the original")
	}
	if c.PTS != 1234 || c.Samples != 4 {
		t.Errorf("clone lost metadata: pts=%d samples=%d", c.PTS, c.Samples)
	}
}

func TestFrameInterleaved24(t *testing.T) {
	f := NewFrame(SampleFormatS16P, LayoutStereo, 48000, 2)
	f.SetSample(0, 0, 100.0/32768)
	f.SetSample(1, 0, -100.0/32768)
	f.SetSample(0, 1, 1)

	got := f.Interleaved24()
	want := []int32{100 << 8, -100 << 8, 32767 << 8, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestFrameDuration(t *testing.T) {
	f := NewFrame(SampleFormatS16, LayoutStereo, 44100, 1024)
	if got := f.Duration(TimebaseForRate(44100)); got != 1024 {
		t.Errorf("expected 1024, got %d", got)
	}
	if got := f.Duration(NewTimebase(1, 1000)); got != 23 {
		t.Errorf("expected 23ms, got %d", got)
	}
}
