// ABOUTME: asetnsamples filter: re-chunks audio into fixed-size frames
// ABOUTME: Pads the final partial frame with silence unless p=0
package filter

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

type asetnsamples struct {
	n   int
	pad bool

	rate int
	tb   audio.Timebase

	buf     [][]float64
	basePTS int64 // pts where offset counting started
	offset  int64
}

func newASetNSamples(args string) (filter, error) {
	opts, err := parseOptions(args, "n", "p", "nb_out_samples", "pad")
	if err != nil {
		return nil, err
	}
	opts.aliases("n", "nb_out_samples")
	opts.aliases("p", "pad")

	n, err := opts.int("n", 1024)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: n=%d", ErrInvalidArgument, n)
	}
	p, err := opts.int("p", 1)
	if err != nil {
		return nil, err
	}

	return &asetnsamples{n: n, pad: p != 0}, nil
}

func (f *asetnsamples) name() string { return "asetnsamples" }

func (f *asetnsamples) configure(in streamParams) (streamParams, error) {
	f.rate = in.rate
	f.tb = in.tb
	f.buf = make([][]float64, in.layout.Channels())
	return in, nil
}

func (f *asetnsamples) process(c *chunk) ([]*chunk, error) {
	if len(f.buf[0]) == 0 {
		f.basePTS, f.offset = c.pts, 0
	}
	for ch := range f.buf {
		f.buf[ch] = append(f.buf[ch], c.data[ch]...)
	}

	var out []*chunk
	for len(f.buf[0]) >= f.n {
		out = append(out, f.take(f.n))
	}
	return out, nil
}

func (f *asetnsamples) flush() ([]*chunk, error) {
	left := len(f.buf[0])
	if left == 0 {
		return nil, nil
	}

	c := f.take(left)
	if f.pad && left < f.n {
		for ch := range c.data {
			c.data[ch] = append(c.data[ch], make([]float64, f.n-left)...)
		}
	}
	return []*chunk{c}, nil
}

func (f *asetnsamples) take(n int) *chunk {
	pts := audio.NoPTS
	if f.basePTS != audio.NoPTS {
		pts = f.basePTS + audio.TimebaseForRate(f.rate).Rescale(f.offset, f.tb)
	}

	c := newChunk(len(f.buf), n, pts)
	for ch := range f.buf {
		copy(c.data[ch], f.buf[ch][:n])
		f.buf[ch] = append(f.buf[ch][:0], f.buf[ch][n:]...)
	}
	f.offset += int64(n)
	return c
}
