// ABOUTME: asettb filter: moves timestamps into a new timebase
// ABOUTME: Accepts a rational ("1/48000") or "sr" for 1/sample_rate
package filter

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

type setTB struct {
	expr string
	in   audio.Timebase
	out  audio.Timebase
}

func newSetTB(args string) (filter, error) {
	opts, err := parseOptions(args, "tb", "expr")
	if err != nil {
		return nil, err
	}
	opts.aliases("tb", "expr")

	expr := opts.get("tb", "")
	if expr == "" {
		return nil, fmt.Errorf("%w: missing tb", ErrInvalidArgument)
	}
	return &setTB{expr: expr}, nil
}

func (f *setTB) name() string { return "asettb" }

func (f *setTB) configure(in streamParams) (streamParams, error) {
	tb := audio.TimebaseForRate(in.rate)
	switch f.expr {
	case "sr":
	case "intb":
		tb = in.tb
	default:
		parsed, err := audio.ParseTimebase(f.expr)
		if err != nil {
			return in, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		tb = parsed
	}
	if !tb.Valid() {
		return in, fmt.Errorf("%w: timebase %s", ErrInvalidArgument, tb)
	}

	f.in, f.out = in.tb, tb
	out := in
	out.tb = tb
	return out, nil
}

func (f *setTB) process(c *chunk) ([]*chunk, error) {
	c.pts = f.in.Rescale(c.pts, f.out)
	return []*chunk{c}, nil
}

func (f *setTB) flush() ([]*chunk, error) { return nil, nil }
