// ABOUTME: Observer interface receiving stage counters
// ABOUTME: internal/metrics provides the Prometheus implementation
package resampler

import "time"

// Metrics receives per-frame events from a Resampler. Methods are called
// from both the producer and the worker goroutine.
type Metrics interface {
	FrameQueued()
	FrameDropped(reason string)
	FrameFed()
	FeedError()
	FrameEmitted()
	DrainError(kind string)
	QueueThresholdExceeded()
	QueueDepth(n int)
	HandlerDuration(d time.Duration)
}

// Drop reasons and drain error kinds reported to Metrics
const (
	DropNil      = "nil"
	DropStopped  = "stopped"
	DropShutdown = "shutdown"
	DropFatal    = "fatal"

	DrainEngine  = "engine"
	DrainConvert = "convert"
)

type nopMetrics struct{}

func (nopMetrics) FrameQueued()                  {}
func (nopMetrics) FrameDropped(string)           {}
func (nopMetrics) FrameFed()                     {}
func (nopMetrics) FeedError()                    {}
func (nopMetrics) FrameEmitted()                 {}
func (nopMetrics) DrainError(string)             {}
func (nopMetrics) QueueThresholdExceeded()       {}
func (nopMetrics) QueueDepth(int)                {}
func (nopMetrics) HandlerDuration(time.Duration) {}
