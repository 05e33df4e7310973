// ABOUTME: Prometheus metrics for the resampler stage
// ABOUTME: Implements the stage's metrics observer on a private registry
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage holds all Prometheus metrics for one resampler stage
type Stage struct {
	registry *prometheus.Registry

	FramesQueued      prometheus.Counter
	FramesDropped     *prometheus.CounterVec
	FramesFed         prometheus.Counter
	FeedErrors        prometheus.Counter
	FramesEmitted     prometheus.Counter
	DrainErrors       *prometheus.CounterVec
	ThresholdExceeded prometheus.Counter
	QueueSize         prometheus.Gauge
	HandlerTime       prometheus.Histogram
}

// New creates stage metrics registered on a fresh registry
func New() *Stage {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Stage{
		registry: reg,

		FramesQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "resampler_frames_queued_total",
			Help: "Total number of frames accepted into the input queue",
		}),
		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resampler_frames_dropped_total",
			Help: "Total number of frames dropped before conversion",
		}, []string{"reason"}),
		FramesFed: factory.NewCounter(prometheus.CounterOpts{
			Name: "resampler_frames_fed_total",
			Help: "Total number of frames fed to the filter graph",
		}),
		FeedErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "resampler_feed_errors_total",
			Help: "Total number of frames the filter graph rejected",
		}),
		FramesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "resampler_frames_emitted_total",
			Help: "Total number of converted frames delivered to the handler",
		}),
		DrainErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resampler_drain_errors_total",
			Help: "Total number of errors while draining the filter graph",
		}, []string{"kind"}),
		ThresholdExceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "resampler_queue_threshold_exceeded_total",
			Help: "Total number of times the input queue crossed its threshold",
		}),
		QueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "resampler_queue_depth",
			Help: "Current number of frames in the input queue",
		}),
		HandlerTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "resampler_handler_duration_seconds",
			Help:    "Time spent in the completion handler per frame",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}),
	}
}

// Registry returns the registry holding the stage metrics
func (s *Stage) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Stage) FrameQueued() { s.FramesQueued.Inc() }

func (s *Stage) FrameDropped(reason string) { s.FramesDropped.WithLabelValues(reason).Inc() }

func (s *Stage) FrameFed() { s.FramesFed.Inc() }

func (s *Stage) FeedError() { s.FeedErrors.Inc() }

func (s *Stage) FrameEmitted() { s.FramesEmitted.Inc() }

func (s *Stage) DrainError(kind string) { s.DrainErrors.WithLabelValues(kind).Inc() }

func (s *Stage) QueueThresholdExceeded() { s.ThresholdExceeded.Inc() }

func (s *Stage) QueueDepth(n int) { s.QueueSize.Set(float64(n)) }

func (s *Stage) HandlerDuration(d time.Duration) { s.HandlerTime.Observe(d.Seconds()) }
