// ABOUTME: Worker loop: dequeues frames, feeds the pipeline, drains output
// ABOUTME: Output is drained to exhaustion before the next input is taken
package resampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio/filter"
)

func (r *Resampler) run(ctx context.Context) {
	r.mu.Lock()
	pipeline := r.pipeline
	r.mu.Unlock()

	r.logger.Debug("resampler filter thread started")

	for {
		req, ok := r.queue.Dequeue()
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		r.metrics.QueueDepth(r.queue.Size())

		if req.eos {
			// a failed flush still ends the stream; a repeated one does not
			if err := pipeline.Push(nil, 0); err != nil {
				r.stats.feedErrors.Add(1)
				r.metrics.FeedError()
				r.logger.Error("could not flush the audio filtergraph", "error", err)
				if errors.Is(err, filter.ErrEOF) {
					continue
				}
			}
			r.drain(pipeline)
			continue
		}

		frame := req.frame
		if err := toNative(frame); err != nil {
			r.logger.Error("could not convert frame for the audio filtergraph", "error", err,
				"pts", frame.PTS, "format", frame.Format.String(), "layout", frame.Layout.String())
			r.drop(DropFatal)
			r.fail()
			return
		}

		if err := pipeline.Push(frame, filter.FlagKeepRef); err != nil {
			r.stats.feedErrors.Add(1)
			r.metrics.FeedError()
			r.logger.Error("an error occurred while feeding the audio filtergraph",
				"error", err,
				"pts", frame.PTS,
				"samples", frame.Samples,
				"linesize", frame.LineSize(),
				"srate", frame.SampleRate,
				"layout", frame.Layout.String(),
				"channels", frame.Channels(),
				"format", frame.Format.String(),
				"rq", r.queue.Size())
			frame.Unref()
			continue
		}
		frame.Unref()
		r.stats.fed.Add(1)
		r.metrics.FrameFed()

		r.drain(pipeline)
	}
}

// drain pulls converted frames until the pipeline needs more input
func (r *Resampler) drain(pipeline Pipeline) {
	for {
		out, err := pipeline.Pull()
		switch {
		case errors.Is(err, filter.ErrAgain):
			return
		case errors.Is(err, filter.ErrEOF):
			r.logger.Info("audio filtergraph reached end of stream")
			if fn := r.eosHandler(); fn != nil {
				fn()
			}
			return
		case err != nil:
			r.stats.drainErrors.Add(1)
			r.metrics.DrainError(DrainEngine)
			r.logger.Error("an error occurred while draining the audio filtergraph", "error", err)
			return
		}

		if err := out.Validate(); err != nil {
			r.stats.drainErrors.Add(1)
			r.metrics.DrainError(DrainConvert)
			r.logger.Error("could not convert filtered frame", "error", err, "pts", out.PTS)
			continue
		}

		r.emit(out)
	}
}

func (r *Resampler) emit(frame *audio.Frame) {
	r.stats.emitted.Add(1)
	r.metrics.FrameEmitted()

	fn := r.frameHandler()
	if fn == nil {
		return
	}

	start := time.Now()
	fn(frame)
	r.metrics.HandlerDuration(time.Since(start))
}

// fail stops accepting input after a fatal worker error
func (r *Resampler) fail() {
	r.failed.Store(true)
	r.queue.Stop()
	r.discard(DropFatal)
}

func (r *Resampler) frameHandler() func(*audio.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onFrame
}

func (r *Resampler) eosHandler() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onEOS
}

// toNative checks that a frame describes a representation the graph can
// read. Anything else means the producer broke its contract.
func toNative(frame *audio.Frame) error {
	if !frame.Format.Valid() {
		return fmt.Errorf("%w: %d", audio.ErrUnknownSampleFormat, frame.Format)
	}
	if !frame.Layout.Valid() {
		return fmt.Errorf("%w: %d", audio.ErrUnknownChannelLayout, frame.Layout)
	}
	return nil
}
