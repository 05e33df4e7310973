// ABOUTME: Pipeline is the conversion engine driven by the worker
// ABOUTME: The default pipeline is a configured filter graph
package resampler

import (
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio/filter"
)

// Pipeline converts input frames into output frames. It follows the
// filter.Graph contract: Push with a nil frame flushes, Pull returns
// filter.ErrAgain when more input is needed and filter.ErrEOF once a
// flushed pipeline is empty. Any other Pull error ends the current drain.
// A Pipeline is used from the worker goroutine only.
type Pipeline interface {
	Push(frame *audio.Frame, flags filter.PushFlag) error
	Pull() (*audio.Frame, error)
	Close() error
}

// PipelineFactory builds a Pipeline converting in to out. It is called
// once, from Configure.
type PipelineFactory func(in, out *audio.Track) (Pipeline, error)

// NewGraphPipeline builds the filter graph that retimes, smooths, converts
// and re-chunks in to match out
func NewGraphPipeline(in, out *audio.Track) (Pipeline, error) {
	g, err := buildGraph(sourceParams(in), filterChain(out))
	if err != nil {
		return nil, err
	}
	return g, nil
}
