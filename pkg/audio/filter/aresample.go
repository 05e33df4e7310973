// ABOUTME: aresample filter: timestamp smoothing and sample rate conversion
// ABOUTME: async fills, trims or stretches audio to keep pts continuous
package filter

import (
	"fmt"
	"math"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
	resampler "github.com/tphakala/go-audio-resampler"
)

const (
	defaultMinHardComp = 0.1   // seconds of drift before filling or trimming
	defaultMinComp     = 0.001 // seconds of drift before stretching
	maxGapSeconds      = 5     // larger jumps restart the timeline instead of filling
)

type aresample struct {
	outRate     int
	async       float64
	minHardComp float64
	minComp     float64

	sync *compensator
	conv *rateConverter
}

func newAResample(args string) (filter, error) {
	opts, err := parseOptions(args, "osr", "out_sample_rate", "async", "min_hard_comp", "min_comp")
	if err != nil {
		return nil, err
	}
	opts.aliases("osr", "out_sample_rate")

	f := &aresample{}
	if f.outRate, err = opts.int("osr", 0); err != nil {
		return nil, err
	}
	if f.async, err = opts.float("async", 0); err != nil {
		return nil, err
	}
	if f.minHardComp, err = opts.float("min_hard_comp", defaultMinHardComp); err != nil {
		return nil, err
	}
	if f.minComp, err = opts.float("min_comp", defaultMinComp); err != nil {
		return nil, err
	}

	if f.outRate < 0 || f.async < 0 || f.minHardComp < 0 || f.minComp < 0 {
		return nil, fmt.Errorf("%w: negative value in %q", ErrInvalidArgument, args)
	}
	return f, nil
}

func (f *aresample) name() string { return "aresample" }

func (f *aresample) configure(in streamParams) (streamParams, error) {
	out := in
	if f.outRate > 0 {
		out.rate = f.outRate
	}

	if f.async > 0 {
		f.sync = &compensator{
			rate:      in.rate,
			tb:        in.tb,
			maxSoft:   f.async,
			hardDrift: int64(f.minHardComp * float64(in.rate)),
			minDrift:  int64(f.minComp * float64(in.rate)),
			maxGap:    int64(maxGapSeconds * in.rate),
		}
		if f.async <= 1 {
			f.sync.maxSoft = 0
		}
	}
	if out.rate != in.rate {
		conv, err := newRateConverter(in.rate, out.rate, in.layout.Channels(), in.tb)
		if err != nil {
			return out, fmt.Errorf("%w: %d to %d Hz: %v", ErrInvalidArgument, in.rate, out.rate, err)
		}
		f.conv = conv
	}

	return out, nil
}

func (f *aresample) process(c *chunk) ([]*chunk, error) {
	if f.sync != nil {
		c = f.sync.process(c)
		if c == nil {
			return nil, nil
		}
	}
	if f.conv != nil {
		return f.conv.process(c)
	}
	return []*chunk{c}, nil
}

func (f *aresample) flush() ([]*chunk, error) {
	if f.conv != nil {
		return f.conv.flush()
	}
	return nil, nil
}

// compensator keeps output timestamps continuous. It compares the pts of
// each input chunk with the position of the output stream and corrects the
// difference by inserting silence, dropping samples or stretching. A jump
// beyond maxGap in either direction is treated as a discontinuity: the
// output position is moved to the new pts and nothing is inserted.
type compensator struct {
	rate      int
	tb        audio.Timebase
	maxSoft   float64 // samples per second of stretch, 0 disables
	hardDrift int64   // drift in samples that triggers fill or trim
	minDrift  int64   // drift in samples below which nothing is done
	maxGap    int64   // drift in samples beyond which the timeline restarts

	started bool
	outPos  int64 // next output position in samples
}

func (s *compensator) process(c *chunk) *chunk {
	sampleTB := audio.TimebaseForRate(s.rate)

	if !s.started {
		s.started = true
		if c.pts != audio.NoPTS {
			s.outPos = s.tb.Rescale(c.pts, sampleTB)
		}
	}

	var delta int64
	if c.pts != audio.NoPTS {
		delta = s.tb.Rescale(c.pts, sampleTB) - s.outPos
	}

	n := int64(c.samples())
	switch {
	case abs(delta) > s.maxGap:
		s.outPos += delta
	case abs(delta) <= s.minDrift:
	case abs(delta) > s.hardDrift && delta > 0:
		c = pad(c, int(delta))
	case abs(delta) > s.hardDrift:
		drop := min(-delta, n)
		if drop == n {
			return nil
		}
		c = trim(c, int(drop))
	case s.maxSoft > 0:
		limit := int64(math.Ceil(s.maxSoft * float64(n) / float64(s.rate)))
		comp := max(-limit, min(limit, delta))
		if n+comp > 0 && comp != 0 {
			c = stretch(c, int(n+comp))
		}
	}

	c.pts = sampleTB.Rescale(s.outPos, s.tb)
	s.outPos += int64(c.samples())
	return c
}

func pad(c *chunk, silence int) *chunk {
	out := newChunk(c.channels(), silence+c.samples(), c.pts)
	for ch := range out.data {
		copy(out.data[ch][silence:], c.data[ch])
	}
	return out
}

func trim(c *chunk, drop int) *chunk {
	for ch := range c.data {
		c.data[ch] = c.data[ch][drop:]
	}
	return c
}

// stretch linearly resamples c to exactly n samples
func stretch(c *chunk, n int) *chunk {
	src := c.samples()
	out := newChunk(c.channels(), n, c.pts)
	if src == 1 || n == 1 {
		for ch := range out.data {
			for i := range out.data[ch] {
				out.data[ch][i] = c.data[ch][0]
			}
		}
		return out
	}

	step := float64(src-1) / float64(n-1)
	for ch, plane := range c.data {
		dst := out.data[ch]
		for i := range dst {
			pos := float64(i) * step
			j := int(pos)
			if j >= src-1 {
				dst[i] = plane[src-1]
				continue
			}
			frac := pos - float64(j)
			dst[i] = plane[j] + (plane[j+1]-plane[j])*frac
		}
	}
	return out
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// rateConverter runs one streaming polyphase engine per channel. Output
// timestamps are derived from the number of samples produced so far.
type rateConverter struct {
	engines []rateEngine
	outRate int
	tb      audio.Timebase

	produced int64
	startPTS int64
	started  bool
}

type rateEngine interface {
	Process(in []float64) ([]float64, error)
	Flush() ([]float64, error)
}

func newRateConverter(inRate, outRate, channels int, tb audio.Timebase) (*rateConverter, error) {
	c := &rateConverter{outRate: outRate, tb: tb}
	for range channels {
		e, err := resampler.NewEngine(float64(inRate), float64(outRate), resampler.QualityHigh)
		if err != nil {
			return nil, err
		}
		c.engines = append(c.engines, e)
	}
	return c, nil
}

func (c *rateConverter) process(in *chunk) ([]*chunk, error) {
	if !c.started {
		c.started = true
		c.startPTS = in.pts
	}

	planes := make([][]float64, len(c.engines))
	for ch, e := range c.engines {
		out, err := e.Process(in.data[ch])
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		planes[ch] = out
	}
	return c.emit(planes), nil
}

func (c *rateConverter) flush() ([]*chunk, error) {
	if !c.started {
		return nil, nil
	}

	planes := make([][]float64, len(c.engines))
	for ch, e := range c.engines {
		out, err := e.Flush()
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		planes[ch] = out
	}
	return c.emit(planes), nil
}

// emit packs per-channel output into one chunk. Engines fed identical
// lengths produce identical lengths; the shortest plane wins otherwise.
func (c *rateConverter) emit(planes [][]float64) []*chunk {
	n := len(planes[0])
	for _, p := range planes[1:] {
		n = min(n, len(p))
	}
	if n == 0 {
		return nil
	}

	pts := audio.NoPTS
	if c.startPTS != audio.NoPTS {
		pts = c.startPTS + audio.TimebaseForRate(c.outRate).Rescale(c.produced, c.tb)
	}
	out := newChunk(len(planes), n, pts)
	for ch, p := range planes {
		copy(out.data[ch], p[:n])
	}
	c.produced += int64(n)

	return []*chunk{out}
}
