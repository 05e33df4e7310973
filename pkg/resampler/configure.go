// ABOUTME: Builds the conversion graph from input and output track descriptors
// ABOUTME: retime -> async smoothing -> rate -> format/layout -> fixed frames
package resampler

import (
	"fmt"
	"math"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio/filter"
)

// asyncSamples bounds timestamp smoothing to this many samples per second
const asyncSamples = 1000

// Configure binds the input and output descriptors and builds the
// conversion graph. It may be called once, before Start. On failure
// nothing is retained and the stage cannot be started.
func (r *Resampler) Configure(in, out *audio.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUnconfigured {
		return fmt.Errorf("%w: configure from %s", ErrInvalidState, r.state)
	}
	if in == nil || out == nil {
		return ErrNilTrack
	}

	scale := in.Timebase.Scale(out.Timebase)
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		r.logger.Error("invalid timebase", "input", in.Timebase.String(), "output", out.Timebase.String())
		return fmt.Errorf("%w: input %s, output %s", ErrInvalidTimebase, in.Timebase, out.Timebase)
	}

	src := sourceParams(in)
	chain := filterChain(out)

	pipeline, err := r.newPipeline(in, out)
	if err != nil {
		r.logger.Error("could not configure filter graph", "input", src.String(), "output", chain, "error", err)
		return fmt.Errorf("%w: %w", ErrGraphConfig, err)
	}

	r.in, r.out = *in, *out
	r.scale = scale
	r.pipeline = pipeline
	r.state = StateConfigured

	r.logger.Info("Resampler is enabled", "track", in.ID, "input", src.String(), "output", chain)
	return nil
}

func sourceParams(in *audio.Track) filter.SourceParams {
	return filter.SourceParams{
		Timebase:   in.Timebase,
		SampleRate: in.SampleRate,
		Format:     in.SampleFormat,
		Layout:     in.Layout,
	}
}

func filterChain(out *audio.Track) string {
	return fmt.Sprintf("asettb=%s,aresample=async=%d,aresample=%d,aformat=sample_fmts=%s:channel_layouts=%s,asetnsamples=n=%d",
		out.Timebase, asyncSamples, out.SampleRate, out.SampleFormat, out.Layout, out.SamplesPerFrame)
}

// buildGraph returns a configured graph or closes whatever was built
func buildGraph(src filter.SourceParams, chain string) (*filter.Graph, error) {
	g, err := filter.NewGraph(src)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}

	if err := g.Parse(chain); err != nil {
		g.Close()
		return nil, fmt.Errorf("output: %w", err)
	}
	if err := g.Config(); err != nil {
		g.Close()
		return nil, fmt.Errorf("config: %w", err)
	}
	return g, nil
}
