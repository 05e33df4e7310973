// ABOUTME: Resampler stage lifecycle: start, stop, close and frame admission
// ABOUTME: One producer feeds the queue, one worker goroutine owns the graph
package resampler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/pprof"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-resampler/internal/queue"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

// request is one unit of work for the worker: a frame, or a flush marker
type request struct {
	frame *audio.Frame
	eos   bool
}

// Resampler converts the frames of one track and hands them to a handler
type Resampler struct {
	name        string
	threshold   int
	onThreshold func(depth int)
	logger      *slog.Logger
	metrics     Metrics

	mu     sync.Mutex
	state  State
	in     audio.Track
	out    audio.Track
	scale  float64
	cancel context.CancelFunc

	newPipeline PipelineFactory
	pipeline    Pipeline

	onFrame func(*audio.Frame)
	onEOS   func()

	queue     *queue.Queue[request]
	wg        sync.WaitGroup
	stopOnce  sync.Once
	closeOnce sync.Once

	stats  counters
	failed atomic.Bool
}

type counters struct {
	queued      atomic.Uint64
	dropped     atomic.Uint64
	fed         atomic.Uint64
	feedErrors  atomic.Uint64
	emitted     atomic.Uint64
	drainErrors atomic.Uint64
}

// Stats is a snapshot of the stage counters
type Stats struct {
	State             State
	Queued            uint64
	Dropped           uint64
	Fed               uint64
	FeedErrors        uint64
	Emitted           uint64
	DrainErrors       uint64
	QueueDepth        int
	ThresholdExceeded uint64
	Failed            bool
}

// New creates an unconfigured Resampler
func New(opts ...Option) *Resampler {
	r := &Resampler{
		name:      "resampler",
		threshold: queue.DefaultThreshold,
		logger:    slog.Default(),
		metrics:   nopMetrics{},

		newPipeline: NewGraphPipeline,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.logger = r.logger.With("component", "resampler", "name", r.name)
	r.queue = queue.New[request](r.logger)
	r.queue.SetAlias(queue.DefaultAlias)
	r.queue.SetThreshold(r.threshold)
	r.queue.OnThreshold(func(depth int) {
		r.metrics.QueueThresholdExceeded()
		if r.onThreshold != nil {
			r.onThreshold(depth)
		}
	})

	return r
}

// SetCompleteHandler registers the consumer of converted frames. It must
// be called before Start. fn runs on the worker goroutine and must not
// call Stop or Close directly, since both wait for the worker to exit;
// use go r.Stop() instead.
func (r *Resampler) SetCompleteHandler(fn func(*audio.Frame)) {
	r.mu.Lock()
	r.onFrame = fn
	r.mu.Unlock()
}

// SetEndOfStreamHandler registers fn to be called on the worker once a
// flush requested by SendEndOfStream has been fully drained. The same
// restriction on Stop and Close as SetCompleteHandler applies.
func (r *Resampler) SetEndOfStreamHandler(fn func()) {
	r.mu.Lock()
	r.onEOS = fn
	r.mu.Unlock()
}

// State returns the current lifecycle state
func (r *Resampler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Input returns the bound input track descriptor
func (r *Resampler) Input() audio.Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.in
}

// Output returns the bound output track descriptor
func (r *Resampler) Output() audio.Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out
}

// Start spawns the worker. It is valid only after a successful Configure.
func (r *Resampler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateConfigured {
		return fmt.Errorf("%w: start from %s", ErrInvalidState, r.state)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.state = StateRunning

	labels := pprof.Labels("worker", "Resampler", "name", r.name, "track", fmt.Sprint(r.in.ID))
	r.wg.Add(1)
	go pprof.Do(ctx, labels, func(ctx context.Context) {
		defer r.wg.Done()
		r.run(ctx)
	})

	r.logger.Info("resampler started", "track", r.in.ID, "queue_threshold", r.threshold)
	return nil
}

// Stop terminates the worker and waits for it to exit. Frames still
// queued are discarded. It is safe to call from any state, more than once.
// No handler is called after Stop returns. Calling Stop from a handler
// deadlocks.
func (r *Resampler) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		cancel := r.cancel
		r.state = StateStopped
		r.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		r.queue.Stop()
		r.wg.Wait()

		r.discard(DropShutdown)
		r.logger.Debug("resampler filter thread has ended")
	})
}

// Close stops the stage and releases the pipeline. Like Stop, it must
// not be called from a handler.
func (r *Resampler) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.Stop()

		r.mu.Lock()
		pipeline := r.pipeline
		r.pipeline = nil
		r.mu.Unlock()

		if pipeline != nil {
			err = pipeline.Close()
		}
		r.discard(DropShutdown)
	})
	return err
}

// SendBuffer hands frame to the stage and always returns 0. Ownership of
// the frame passes to the stage. Frames that cannot be admitted are
// logged and counted as dropped.
func (r *Resampler) SendBuffer(frame *audio.Frame) int {
	if frame == nil {
		r.drop(DropNil)
		r.logger.Error("dropping nil frame")
		return 0
	}

	if !r.queue.Enqueue(request{frame: frame}) {
		r.drop(DropStopped)
		r.logger.Error("dropping frame, resampler is stopped", "pts", frame.PTS, "samples", frame.Samples)
		return 0
	}

	r.stats.queued.Add(1)
	r.metrics.FrameQueued()
	r.metrics.QueueDepth(r.queue.Size())
	return 0
}

// SendEndOfStream asks the worker to flush the pipeline after every frame
// queued so far. Buffered samples are emitted, padded to a full frame, and
// then the end-of-stream handler is called. Frames sent afterwards are
// rejected by the pipeline and logged.
func (r *Resampler) SendEndOfStream() {
	if !r.queue.Enqueue(request{eos: true}) {
		r.logger.Error("dropping end of stream, resampler is stopped")
	}
}

// Stats returns a snapshot of the stage counters
func (r *Resampler) Stats() Stats {
	return Stats{
		State:             r.State(),
		Queued:            r.stats.queued.Load(),
		Dropped:           r.stats.dropped.Load(),
		Fed:               r.stats.fed.Load(),
		FeedErrors:        r.stats.feedErrors.Load(),
		Emitted:           r.stats.emitted.Load(),
		DrainErrors:       r.stats.drainErrors.Load(),
		QueueDepth:        r.queue.Size(),
		ThresholdExceeded: r.queue.Exceeded(),
		Failed:            r.failed.Load(),
	}
}

func (r *Resampler) drop(reason string) {
	r.stats.dropped.Add(1)
	r.metrics.FrameDropped(reason)
}

// discard drops everything left in the queue with an accounting log line
func (r *Resampler) discard(reason string) {
	frames := 0
	for _, req := range r.queue.Drain() {
		if req.frame != nil {
			frames++
			r.drop(reason)
		}
	}
	r.metrics.QueueDepth(0)

	if frames > 0 {
		r.logger.Error("discarded queued frames", "count", frames, "reason", reason)
	}
}
