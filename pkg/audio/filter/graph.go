// ABOUTME: Filter graph: source, ordered filter chain and sink
// ABOUTME: Push feeds frames through the chain, Pull drains converted frames
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// PushFlag modifies how Push treats the caller's frame
type PushFlag int

const (
	// FlagKeepRef leaves the pushed frame untouched. Without it the graph
	// takes ownership and unrefs the frame once its samples are consumed.
	FlagKeepRef PushFlag = 1 << iota
)

// filter is one processing node. process and flush may return any number
// of chunks, including none. An error leaves the filter usable for the
// next chunk.
type filter interface {
	name() string
	configure(in streamParams) (streamParams, error)
	process(c *chunk) ([]*chunk, error)
	flush() ([]*chunk, error)
}

type factory func(args string) (filter, error)

var registry = map[string]factory{
	"asettb":       newSetTB,
	"aresample":    newAResample,
	"aformat":      newAFormat,
	"asetnsamples": newASetNSamples,
}

// Graph converts frames described by SourceParams through a filter chain
type Graph struct {
	src     SourceParams
	chain   []filter
	out     streamParams
	pending []*chunk

	configured bool
	flushed    bool
	closed     bool
}

// NewGraph creates an unconfigured graph fed with frames matching src
func NewGraph(src SourceParams) (*Graph, error) {
	if err := src.validate(); err != nil {
		return nil, fmt.Errorf("abuffer: %w", err)
	}
	return &Graph{src: src}, nil
}

// Parse appends the filters of a comma separated chain ("name=args,name")
func (g *Graph) Parse(chain string) error {
	if g.closed {
		return ErrClosed
	}
	if g.configured {
		return ErrConfigured
	}

	for _, spec := range strings.Split(chain, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		name, args, _ := strings.Cut(spec, "=")
		create, ok := registry[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFilter, name)
		}

		f, err := create(args)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		g.chain = append(g.chain, f)
	}

	return nil
}

// Config negotiates the parameters of every link. It must succeed before
// frames can be pushed.
func (g *Graph) Config() error {
	if g.closed {
		return ErrClosed
	}
	if g.configured {
		return ErrConfigured
	}

	p := streamParams{
		rate:   g.src.SampleRate,
		format: g.src.Format,
		layout: g.src.Layout,
		tb:     g.src.Timebase,
	}
	for _, f := range g.chain {
		next, err := f.configure(p)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name(), err)
		}
		p = next
	}

	g.out = p
	g.configured = true
	return nil
}

// Output returns the sample rate, format, layout and timebase of pulled frames
func (g *Graph) Output() (rate int, format audio.SampleFormat, layout audio.ChannelLayout, tb audio.Timebase) {
	return g.out.rate, g.out.format, g.out.layout, g.out.tb
}

// Push feeds one frame into the graph. A nil frame flushes buffered
// samples and marks the end of the stream. A filter error drops the
// samples that reached it; the graph keeps accepting frames.
func (g *Graph) Push(f *audio.Frame, flags PushFlag) error {
	switch {
	case g.closed:
		return ErrClosed
	case !g.configured:
		return ErrNotConfigured
	case g.flushed:
		return ErrEOF
	}

	if f == nil {
		return g.flush()
	}

	if err := g.accept(f); err != nil {
		return err
	}

	c := chunkFromFrame(f)
	if flags&FlagKeepRef == 0 {
		f.Unref()
	}

	return g.run(0, []*chunk{c})
}

// Pull returns the next converted frame, ErrAgain when more input is
// needed, or ErrEOF once a flushed graph is empty.
func (g *Graph) Pull() (*audio.Frame, error) {
	switch {
	case g.closed:
		return nil, ErrClosed
	case !g.configured:
		return nil, ErrNotConfigured
	}

	if len(g.pending) == 0 {
		if g.flushed {
			return nil, ErrEOF
		}
		return nil, ErrAgain
	}

	c := g.pending[0]
	g.pending[0] = nil
	g.pending = g.pending[1:]

	return c.frame(g.out), nil
}

// Buffered returns the number of output frames waiting to be pulled
func (g *Graph) Buffered() int {
	return len(g.pending)
}

// Close releases the graph. It is safe to call more than once.
func (g *Graph) Close() error {
	g.closed = true
	g.chain = nil
	g.pending = nil
	return nil
}

// accept checks a frame against the source parameters
func (g *Graph) accept(f *audio.Frame) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	if f.Format != g.src.Format || f.Layout != g.src.Layout || f.SampleRate != g.src.SampleRate {
		return fmt.Errorf("%w: got %dHz %s %s, source expects %dHz %s %s", ErrInvalidFrame,
			f.SampleRate, f.Format, f.Layout, g.src.SampleRate, g.src.Format, g.src.Layout)
	}
	return nil
}

// run pushes chunks through the chain starting at filter index from
func (g *Graph) run(from int, chunks []*chunk) error {
	for i := from; i < len(g.chain) && len(chunks) > 0; i++ {
		var next []*chunk
		for _, c := range chunks {
			out, err := g.chain[i].process(c)
			if err != nil {
				return fmt.Errorf("%s: %w", g.chain[i].name(), err)
			}
			next = append(next, out...)
		}
		chunks = next
	}
	g.pending = append(g.pending, chunks...)
	return nil
}

// flush drains every filter in order. The graph is flushed even when a
// filter fails, so the tail of the stream is lost rather than retried.
func (g *Graph) flush() error {
	g.flushed = true

	var errs []error
	for i, f := range g.chain {
		out, err := f.flush()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name(), err))
			continue
		}
		if err := g.run(i+1, out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
