// ABOUTME: PCM sample format enumeration
// ABOUTME: Names, sizes and packed/planar relations of raw sample formats
package audio

import "fmt"

// SampleFormat identifies how PCM samples are stored in a frame buffer
type SampleFormat int

const (
	SampleFormatNone SampleFormat = iota
	SampleFormatU8                // unsigned 8-bit, packed
	SampleFormatS16               // signed 16-bit, packed
	SampleFormatS32               // signed 32-bit, packed
	SampleFormatFLT               // 32-bit float, packed
	SampleFormatDBL               // 64-bit float, packed
	SampleFormatU8P               // unsigned 8-bit, planar
	SampleFormatS16P              // signed 16-bit, planar
	SampleFormatS32P              // signed 32-bit, planar
	SampleFormatFLTP              // 32-bit float, planar
	SampleFormatDBLP              // 64-bit float, planar
)

var sampleFormatNames = map[SampleFormat]string{
	SampleFormatU8:   "u8",
	SampleFormatS16:  "s16",
	SampleFormatS32:  "s32",
	SampleFormatFLT:  "flt",
	SampleFormatDBL:  "dbl",
	SampleFormatU8P:  "u8p",
	SampleFormatS16P: "s16p",
	SampleFormatS32P: "s32p",
	SampleFormatFLTP: "fltp",
	SampleFormatDBLP: "dblp",
}

// ParseSampleFormat looks a sample format up by its short name (e.g. "s16", "fltp")
func ParseSampleFormat(name string) (SampleFormat, error) {
	for f, n := range sampleFormatNames {
		if n == name {
			return f, nil
		}
	}
	return SampleFormatNone, fmt.Errorf("%w: %q", ErrUnknownSampleFormat, name)
}

// Name returns the short name of the format, or "none" when unknown
func (f SampleFormat) Name() string {
	if n, ok := sampleFormatNames[f]; ok {
		return n
	}
	return "none"
}

func (f SampleFormat) String() string { return f.Name() }

// Valid reports whether f is a known format
func (f SampleFormat) Valid() bool {
	_, ok := sampleFormatNames[f]
	return ok
}

// BytesPerSample returns the size of a single sample of one channel
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatU8, SampleFormatU8P:
		return 1
	case SampleFormatS16, SampleFormatS16P:
		return 2
	case SampleFormatS32, SampleFormatS32P, SampleFormatFLT, SampleFormatFLTP:
		return 4
	case SampleFormatDBL, SampleFormatDBLP:
		return 8
	default:
		return 0
	}
}

// IsPlanar reports whether every channel is stored in its own plane
func (f SampleFormat) IsPlanar() bool {
	return f >= SampleFormatU8P && f <= SampleFormatDBLP
}

// Packed returns the interleaved variant of f
func (f SampleFormat) Packed() SampleFormat {
	if f.IsPlanar() {
		return f - (SampleFormatU8P - SampleFormatU8)
	}
	return f
}

// Planar returns the planar variant of f
func (f SampleFormat) Planar() SampleFormat {
	if f.Valid() && !f.IsPlanar() {
		return f + (SampleFormatU8P - SampleFormatU8)
	}
	return f
}

// IsFloat reports whether samples are stored as IEEE floats
func (f SampleFormat) IsFloat() bool {
	switch f.Packed() {
	case SampleFormatFLT, SampleFormatDBL:
		return true
	}
	return false
}
