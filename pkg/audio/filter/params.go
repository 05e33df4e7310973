// ABOUTME: Source parameters and option-string parsing for filters
// ABOUTME: Options are "key=value" or positional values separated by ':'
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// SourceParams describes the frames that will be pushed into a graph
type SourceParams struct {
	Timebase   audio.Timebase
	SampleRate int
	Format     audio.SampleFormat
	Layout     audio.ChannelLayout
}

// String renders the parameters as abuffer arguments
func (p SourceParams) String() string {
	return fmt.Sprintf("time_base=%s:sample_rate=%d:sample_fmt=%s:channel_layout=%s",
		p.Timebase, p.SampleRate, p.Format, p.Layout)
}

// ParseSourceParams parses the abuffer argument string produced by String
func ParseSourceParams(args string) (SourceParams, error) {
	opts, err := parseOptions(args, "time_base", "sample_rate", "sample_fmt", "channel_layout")
	if err != nil {
		return SourceParams{}, err
	}

	var p SourceParams
	if p.Timebase, err = audio.ParseTimebase(opts.get("time_base", "")); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if p.SampleRate, err = opts.int("sample_rate", 0); err != nil {
		return p, err
	}
	if p.Format, err = audio.ParseSampleFormat(opts.get("sample_fmt", "")); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if p.Layout, err = audio.ParseChannelLayout(opts.get("channel_layout", "")); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return p, p.validate()
}

func (p SourceParams) validate() error {
	switch {
	case !p.Timebase.Valid():
		return fmt.Errorf("%w: time_base %s", ErrInvalidArgument, p.Timebase)
	case p.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate %d", ErrInvalidArgument, p.SampleRate)
	case !p.Format.Valid():
		return fmt.Errorf("%w: %w", ErrInvalidArgument, audio.ErrUnknownSampleFormat)
	case !p.Layout.Valid():
		return fmt.Errorf("%w: %w", ErrInvalidArgument, audio.ErrUnknownChannelLayout)
	}
	return nil
}

// streamParams describe the samples flowing over one link of the graph
type streamParams struct {
	rate   int
	format audio.SampleFormat
	layout audio.ChannelLayout
	tb     audio.Timebase
}

func (p streamParams) String() string {
	return fmt.Sprintf("%dHz %s %s tb=%s", p.rate, p.format, p.layout, p.tb)
}

type options map[string]string

// parseOptions splits args on ':' and assigns bare values to keys in order
func parseOptions(args string, keys ...string) (options, error) {
	opts := options{}
	if args == "" {
		return opts, nil
	}

	for i, part := range strings.Split(args, ":") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			if i >= len(keys) {
				return nil, fmt.Errorf("%w: unexpected value %q", ErrInvalidArgument, part)
			}
			key, value = keys[i], part
		}
		if !contains(keys, key) {
			return nil, fmt.Errorf("%w: unknown option %q", ErrInvalidArgument, key)
		}
		opts[key] = value
	}

	return opts, nil
}

func (o options) get(key, def string) string {
	if v, ok := o[key]; ok {
		return v
	}
	return def
}

func (o options) int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidArgument, key, v)
	}
	return n, nil
}

func (o options) float(key string, def float64) (float64, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidArgument, key, v)
	}
	return f, nil
}

// aliases copies values given under alternative names onto their canonical key
func (o options) aliases(canonical string, names ...string) {
	for _, n := range names {
		if v, ok := o[n]; ok {
			o[canonical] = v
			delete(o, n)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
