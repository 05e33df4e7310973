// ABOUTME: Functional options for constructing a Resampler
package resampler

import "log/slog"

// Option configures a Resampler at construction
type Option func(*Resampler)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resampler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithName labels log records and the worker goroutine
func WithName(name string) Option {
	return func(r *Resampler) {
		r.name = name
	}
}

// WithQueueThreshold sets the soft input queue depth that triggers a
// warning. Non-positive values keep the default.
func WithQueueThreshold(n int) Option {
	return func(r *Resampler) {
		if n > 0 {
			r.threshold = n
		}
	}
}

// WithThresholdHandler registers fn to be told when the input queue rises
// above its threshold, so a producer can slow down. fn runs on the
// goroutine calling SendBuffer.
func WithThresholdHandler(fn func(depth int)) Option {
	return func(r *Resampler) {
		r.onThreshold = fn
	}
}

// WithPipeline replaces the filter graph built by Configure. A nil
// factory keeps NewGraphPipeline.
func WithPipeline(factory PipelineFactory) Option {
	return func(r *Resampler) {
		if factory != nil {
			r.newPipeline = factory
		}
	}
}

// WithMetrics sets the metrics observer
func WithMetrics(m Metrics) Option {
	return func(r *Resampler) {
		if m != nil {
			r.metrics = m
		}
	}
}
