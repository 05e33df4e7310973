// ABOUTME: Planar float64 sample chunks passed between filters
// ABOUTME: Conversion to and from audio.Frame happens at the graph edges
package filter

import "github.com/Resonate-Protocol/resonate-resampler/pkg/audio"

type chunk struct {
	pts  int64
	data [][]float64
}

func newChunk(channels, samples int, pts int64) *chunk {
	c := &chunk{pts: pts, data: make([][]float64, channels)}
	for ch := range c.data {
		c.data[ch] = make([]float64, samples)
	}
	return c
}

func (c *chunk) samples() int {
	if len(c.data) == 0 {
		return 0
	}
	return len(c.data[0])
}

func (c *chunk) channels() int {
	return len(c.data)
}

// chunkFromFrame decodes a frame into normalized planar samples
func chunkFromFrame(f *audio.Frame) *chunk {
	c := newChunk(f.Channels(), f.Samples, f.PTS)
	for ch := range c.data {
		plane := c.data[ch]
		for i := range plane {
			plane[i] = f.Sample(ch, i)
		}
	}
	return c
}

// frame encodes the chunk into a newly allocated frame of the given format
func (c *chunk) frame(p streamParams) *audio.Frame {
	f := audio.NewFrame(p.format, p.layout, p.rate, c.samples())
	f.PTS = c.pts
	for ch, plane := range c.data {
		for i, v := range plane {
			f.SetSample(ch, i, v)
		}
	}
	return f
}
