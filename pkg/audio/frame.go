// ABOUTME: Raw audio frame carried between pipeline stages
// ABOUTME: Holds PCM planes, sample count and presentation timestamp
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame is a buffer of raw PCM audio. PTS is expressed in the timebase of
// the track the frame belongs to. Packed formats use a single plane with
// interleaved channels; planar formats use one plane per channel.
type Frame struct {
	PTS        int64
	Samples    int // samples per channel
	SampleRate int
	Format     SampleFormat
	Layout     ChannelLayout
	Data       [][]byte
}

// NewFrame allocates a zeroed frame able to hold samples per channel
func NewFrame(format SampleFormat, layout ChannelLayout, sampleRate, samples int) *Frame {
	f := &Frame{
		PTS:        NoPTS,
		Samples:    samples,
		SampleRate: sampleRate,
		Format:     format,
		Layout:     layout,
	}

	channels := layout.Channels()
	bps := format.BytesPerSample()
	if format.IsPlanar() {
		f.Data = make([][]byte, channels)
		for ch := range f.Data {
			f.Data[ch] = make([]byte, samples*bps)
		}
	} else {
		f.Data = [][]byte{make([]byte, samples*bps*channels)}
	}

	return f
}

// Channels returns the channel count of the frame layout
func (f *Frame) Channels() int {
	return f.Layout.Channels()
}

// LineSize returns the byte length of the first plane
func (f *Frame) LineSize() int {
	if len(f.Data) == 0 {
		return 0
	}
	return len(f.Data[0])
}

// Validate checks that the buffers are large enough for the declared geometry
func (f *Frame) Validate() error {
	if !f.Format.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidFrame, ErrUnknownSampleFormat)
	}
	if !f.Layout.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidFrame, ErrUnknownChannelLayout)
	}
	if f.Samples <= 0 {
		return fmt.Errorf("%w: no samples", ErrInvalidFrame)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFrame, f.SampleRate)
	}

	planes, planeSize := 1, f.Samples*f.Format.BytesPerSample()*f.Channels()
	if f.Format.IsPlanar() {
		planes, planeSize = f.Channels(), f.Samples*f.Format.BytesPerSample()
	}

	if len(f.Data) < planes {
		return fmt.Errorf("%w: %d planes, need %d", ErrInvalidFrame, len(f.Data), planes)
	}
	for i := 0; i < planes; i++ {
		if len(f.Data[i]) < planeSize {
			return fmt.Errorf("%w: plane %d holds %d bytes, need %d", ErrInvalidFrame, i, len(f.Data[i]), planeSize)
		}
	}

	return nil
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	c := *f
	c.Data = make([][]byte, len(f.Data))
	for i, plane := range f.Data {
		c.Data[i] = append([]byte(nil), plane...)
	}
	return &c
}

// Unref drops the frame's buffers. The frame must not be read afterwards.
func (f *Frame) Unref() {
	f.Data = nil
	f.Samples = 0
}

// Duration returns the frame length expressed in tb units
func (f *Frame) Duration(tb Timebase) int64 {
	return TimebaseForRate(f.SampleRate).Rescale(int64(f.Samples), tb)
}

func (f *Frame) locate(ch, i int) ([]byte, int) {
	bps := f.Format.BytesPerSample()
	if f.Format.IsPlanar() {
		return f.Data[ch], i * bps
	}
	return f.Data[0], (i*f.Channels() + ch) * bps
}

// Sample returns sample i of channel ch normalized to [-1, 1)
func (f *Frame) Sample(ch, i int) float64 {
	plane, off := f.locate(ch, i)

	switch f.Format.Packed() {
	case SampleFormatU8:
		return (float64(plane[off]) - 128) / 128
	case SampleFormatS16:
		return float64(int16(binary.LittleEndian.Uint16(plane[off:]))) / 32768
	case SampleFormatS32:
		return float64(int32(binary.LittleEndian.Uint32(plane[off:]))) / 2147483648
	case SampleFormatFLT:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(plane[off:])))
	case SampleFormatDBL:
		return math.Float64frombits(binary.LittleEndian.Uint64(plane[off:]))
	}
	return 0
}

// SetSample stores v, clamping integer formats to their range
func (f *Frame) SetSample(ch, i int, v float64) {
	plane, off := f.locate(ch, i)

	switch f.Format.Packed() {
	case SampleFormatU8:
		plane[off] = byte(quantize(v, 128) + 128)
	case SampleFormatS16:
		binary.LittleEndian.PutUint16(plane[off:], uint16(int16(quantize(v, 32768))))
	case SampleFormatS32:
		binary.LittleEndian.PutUint32(plane[off:], uint32(int32(quantize(v, 2147483648))))
	case SampleFormatFLT:
		binary.LittleEndian.PutUint32(plane[off:], math.Float32bits(float32(v)))
	case SampleFormatDBL:
		binary.LittleEndian.PutUint64(plane[off:], math.Float64bits(v))
	}
}

// Interleaved24 returns the frame as interleaved int32 samples in 24-bit range
func (f *Frame) Interleaved24() []int32 {
	channels := f.Channels()
	out := make([]int32, f.Samples*channels)
	for i := 0; i < f.Samples; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = int32(quantize(f.Sample(ch, i), 8388608))
		}
	}
	return out
}

// quantize scales v by full and clamps to [-full, full-1]. NaN becomes
// silence.
func quantize(v, full float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	s := math.Round(v * full)
	if s > full-1 {
		s = full - 1
	} else if s < -full {
		s = -full
	}
	return int64(s)
}
