// ABOUTME: aformat filter: selects output sample format and channel layout
// ABOUTME: Remixes channels with a normalized matrix when layouts differ
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

type aformat struct {
	formats []audio.SampleFormat
	layouts []audio.ChannelLayout
	rates   []int

	matrix [][]float64 // [out][in], nil when layouts match
}

func newAFormat(args string) (filter, error) {
	opts, err := parseOptions(args, "sample_fmts", "channel_layouts", "sample_rates", "f", "cl", "r")
	if err != nil {
		return nil, err
	}
	opts.aliases("sample_fmts", "f")
	opts.aliases("channel_layouts", "cl")
	opts.aliases("sample_rates", "r")

	f := &aformat{}
	for _, name := range splitList(opts.get("sample_fmts", "")) {
		sf, err := audio.ParseSampleFormat(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		f.formats = append(f.formats, sf)
	}
	for _, name := range splitList(opts.get("channel_layouts", "")) {
		l, err := audio.ParseChannelLayout(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		f.layouts = append(f.layouts, l)
	}
	for _, v := range splitList(opts.get("sample_rates", "")) {
		r, err := strconv.Atoi(v)
		if err != nil || r <= 0 {
			return nil, fmt.Errorf("%w: sample rate %q", ErrInvalidArgument, v)
		}
		f.rates = append(f.rates, r)
	}

	return f, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, "|")
}

func (f *aformat) name() string { return "aformat" }

func (f *aformat) configure(in streamParams) (streamParams, error) {
	if len(f.rates) > 0 && !containsInt(f.rates, in.rate) {
		return in, fmt.Errorf("%w: sample rate %d not in %v", ErrInvalidArgument, in.rate, f.rates)
	}

	out := in
	if len(f.formats) > 0 && !containsFormat(f.formats, in.format) {
		out.format = f.formats[0]
	}
	if len(f.layouts) > 0 && !containsLayout(f.layouts, in.layout) {
		out.layout = f.layouts[0]
		f.matrix = remixMatrix(in.layout, out.layout)
	}

	return out, nil
}

func (f *aformat) process(c *chunk) ([]*chunk, error) {
	if f.matrix == nil {
		return []*chunk{c}, nil
	}

	out := newChunk(len(f.matrix), c.samples(), c.pts)
	for o, row := range f.matrix {
		dst := out.data[o]
		for i, gain := range row {
			if gain == 0 {
				continue
			}
			for n, v := range c.data[i] {
				dst[n] += gain * v
			}
		}
	}
	return []*chunk{out}, nil
}

func (f *aformat) flush() ([]*chunk, error) { return nil, nil }

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsFormat(list []audio.SampleFormat, v audio.SampleFormat) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsLayout(list []audio.ChannelLayout, v audio.ChannelLayout) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

type speaker int

const (
	frontLeft speaker = iota
	frontRight
	frontCenter
	lowFrequency
	backLeft
	backRight
	sideLeft
	sideRight
)

var speakers = map[audio.ChannelLayout][]speaker{
	audio.LayoutMono:     {frontCenter},
	audio.LayoutStereo:   {frontLeft, frontRight},
	audio.Layout2Point1:  {frontLeft, frontRight, lowFrequency},
	audio.LayoutSurround: {frontLeft, frontRight, frontCenter},
	audio.LayoutQuad:     {frontLeft, frontRight, backLeft, backRight},
	audio.Layout5Point0:  {frontLeft, frontRight, frontCenter, backLeft, backRight},
	audio.Layout5Point1:  {frontLeft, frontRight, frontCenter, lowFrequency, backLeft, backRight},
	audio.Layout7Point1:  {frontLeft, frontRight, frontCenter, lowFrequency, backLeft, backRight, sideLeft, sideRight},
}

// remixMatrix builds the gain matrix mapping in channels onto out channels.
// Rows are scaled down together when any output would sum above unity.
func remixMatrix(in, out audio.ChannelLayout) [][]float64 {
	src, dst := speakers[in], speakers[out]
	index := make(map[speaker]int, len(dst))
	for i, s := range dst {
		index[s] = i
	}
	has := func(s speaker) bool { _, ok := index[s]; return ok }
	hasInput := func(s speaker) bool {
		for _, x := range src {
			if x == s {
				return true
			}
		}
		return false
	}

	m := make([][]float64, len(dst))
	for i := range m {
		m[i] = make([]float64, len(src))
	}
	add := func(to speaker, from int, gain float64) {
		m[index[to]][from] += gain
	}

	for i, s := range src {
		if has(s) {
			add(s, i, 1)
			continue
		}

		switch s {
		case frontCenter:
			if has(frontLeft) && has(frontRight) {
				gain := math.Sqrt2 / 2
				if !hasInput(frontLeft) {
					gain = 1
				}
				add(frontLeft, i, gain)
				add(frontRight, i, gain)
			}
		case frontLeft, frontRight:
			if has(frontCenter) {
				add(frontCenter, i, math.Sqrt2/2)
			}
		case backLeft, sideLeft, backRight, sideRight:
			left := s == backLeft || s == sideLeft
			twin, front := sideLeft, frontLeft
			if s == sideLeft {
				twin = backLeft
			}
			if !left {
				twin, front = sideRight, frontRight
				if s == sideRight {
					twin = backRight
				}
			}
			switch {
			case has(twin):
				add(twin, i, 1)
			case has(front):
				add(front, i, math.Sqrt2/2)
			case has(frontCenter):
				add(frontCenter, i, 0.5)
			}
		case lowFrequency:
			// dropped when the output has no LFE channel
		}
	}

	peak := 0.0
	for _, row := range m {
		sum := 0.0
		for _, g := range row {
			sum += g
		}
		peak = max(peak, sum)
	}
	if peak > 1 {
		for _, row := range m {
			for i := range row {
				row[i] /= peak
			}
		}
	}

	return m
}
