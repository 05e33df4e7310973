// ABOUTME: Audio engine feeding the resampler stage and broadcasting its output
// ABOUTME: Paces decoded frames in real time and streams encoded chunks to clients
package server

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-resampler/internal/protocol"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/resampler"
)

const testToneTitle = "Test Tone (440Hz)"

// microseconds is the timebase of chunk timestamps
var microseconds = audio.NewTimebase(1, 1_000_000)

// Engine runs one source at a time through a resampler stage
type Engine struct {
	server  *Server
	logger  *slog.Logger
	encoder encode.Encoder

	// Active clients
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// Current stage and source, replaced on every loop
	stageMu sync.Mutex
	stage   *resampler.Resampler
	source  string

	chunks atomic.Uint64

	stopChan chan struct{}
	stopOnce sync.Once
}

// EngineStats is a snapshot of the engine state
type EngineStats struct {
	Source string
	Chunks uint64
	Stage  resampler.Stats
}

// NewEngine creates an audio engine for the server's output format and codec
func NewEngine(s *Server) (*Engine, error) {
	encoder, err := encode.New(s.config.Codec, s.config.Output, s.config.BitDepth)
	if err != nil {
		return nil, err
	}

	return &Engine{
		server:   s,
		logger:   s.config.Logger.With("component", "engine"),
		encoder:  encoder,
		clients:  make(map[string]*Client),
		stopChan: make(chan struct{}),
	}, nil
}

// Start streams the configured source until it ends (without Loop) or Stop
func (e *Engine) Start() {
	e.logger.Info("Audio engine starting")
	defer e.encoder.Close()

	for {
		src, name, err := e.openSource()
		if err != nil {
			e.logger.Error("Failed to open audio source", "error", err)
			return
		}

		err = e.stream(src, name)
		src.Close()
		if err != nil {
			e.logger.Error("Streaming failed", "source", name, "error", err)
			return
		}

		if !e.server.config.Loop || e.stopped() {
			e.logger.Info("Audio engine stopping")
			return
		}
	}
}

// Stop stops the engine
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
}

func (e *Engine) stopped() bool {
	select {
	case <-e.stopChan:
		return true
	default:
		return false
	}
}

func (e *Engine) openSource() (decode.Source, string, error) {
	path := e.server.config.AudioFile
	if path == "" {
		return decode.NewTestTone(0), testToneTitle, nil
	}

	src, err := decode.Open(path, 0)
	if err != nil {
		return nil, "", err
	}
	return src, filepath.Base(path), nil
}

// stream pushes every frame of src through a fresh stage and waits for the
// stage to drain
func (e *Engine) stream(src decode.Source, name string) error {
	in := src.Track()
	out := e.server.config.Output

	stage := resampler.New(
		resampler.WithLogger(e.server.config.Logger),
		resampler.WithName(name),
		resampler.WithQueueThreshold(e.server.config.QueueThreshold),
		resampler.WithMetrics(e.server.metrics),
	)
	if err := stage.Configure(&in, &out); err != nil {
		return fmt.Errorf("failed to configure resampler: %w", err)
	}
	defer stage.Close()

	base := e.server.clockMicros() + e.server.config.BufferAhead.Microseconds()
	stage.SetCompleteHandler(func(frame *audio.Frame) {
		e.broadcastFrame(frame, out.Timebase, base)
	})

	eos := make(chan struct{})
	stage.SetEndOfStreamHandler(func() { close(eos) })

	if err := stage.Start(); err != nil {
		return fmt.Errorf("failed to start resampler: %w", err)
	}

	e.stageMu.Lock()
	e.stage = stage
	e.source = name
	e.stageMu.Unlock()
	e.server.updateTUI()

	e.logger.Info("Streaming source", "source", name, "input", in.String(), "output", out.String())

	start := time.Now()
	var frames uint64
	for {
		frame, err := src.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("source read failed: %w", err)
		}

		if e.server.config.Realtime {
			due := time.Duration(in.Timebase.Rescale(frame.PTS, microseconds)) * time.Microsecond
			if wait := due - time.Since(start); wait > 0 {
				select {
				case <-time.After(wait):
				case <-e.stopChan:
					return nil
				}
			}
		}
		if e.stopped() {
			return nil
		}

		stage.SendBuffer(frame)
		frames++
	}

	stage.SendEndOfStream()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for done := false; !done; {
		select {
		case <-eos:
			done = true
		case <-ticker.C:
			if stage.Stats().Failed {
				return fmt.Errorf("resampler failed while streaming %s", name)
			}
		case <-e.stopChan:
			return nil
		}
	}

	e.logger.Info("Source finished", "source", name, "frames", frames)
	e.broadcast(protocol.TypeStreamEnd, protocol.StreamEnd{Frames: frames})
	return nil
}

// broadcastFrame encodes one converted frame and queues it for every client.
// It runs on the stage worker.
func (e *Engine) broadcastFrame(frame *audio.Frame, tb audio.Timebase, base int64) {
	data, err := e.encoder.Encode(frame)
	if err != nil {
		e.logger.Error("Failed to encode frame", "pts", frame.PTS, "error", err)
		return
	}

	chunk := protocol.EncodeChunk(base+tb.Rescale(frame.PTS, microseconds), data)
	e.chunks.Add(1)

	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()

	for _, client := range e.clients {
		if err := e.server.sendBinary(client, chunk); err != nil {
			e.logger.Debug("Dropping chunk", "client", client.Name, "error", err)
		}
	}
}

// broadcast queues a JSON message for every client
func (e *Engine) broadcast(msgType string, payload interface{}) {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()

	for _, client := range e.clients {
		if err := e.server.sendMessage(client, msgType, payload); err != nil {
			e.logger.Warn("Could not send message", "type", msgType, "client", client.Name, "error", err)
		}
	}
}

// StreamStart describes the stream every client receives
func (e *Engine) StreamStart() protocol.StreamStart {
	out := e.server.config.Output
	bitDepth := e.server.config.BitDepth
	if e.server.config.Codec == "opus" {
		bitDepth = 16
	}

	return protocol.StreamStart{
		Codec:           e.server.config.Codec,
		SampleRate:      out.SampleRate,
		Channels:        out.Channels(),
		BitDepth:        bitDepth,
		SamplesPerFrame: out.SamplesPerFrame,
	}
}

// AddClient sends stream/start and adds a client to the broadcast set
func (e *Engine) AddClient(client *Client) {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	if err := e.server.sendMessage(client, protocol.TypeStreamStart, e.StreamStart()); err != nil {
		e.logger.Warn("Could not send stream/start", "client", client.Name, "error", err)
	}
	e.clients[client.ID] = client

	e.logger.Info("Added client", "client", client.Name)
}

// RemoveClient removes a client from audio streaming
func (e *Engine) RemoveClient(client *Client) {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	if _, ok := e.clients[client.ID]; !ok {
		return
	}
	delete(e.clients, client.ID)
	e.logger.Info("Removed client", "client", client.Name)
}

// Clients returns the number of clients receiving audio
func (e *Engine) Clients() int {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()
	return len(e.clients)
}

// Stats returns a snapshot of the current stage and source
func (e *Engine) Stats() EngineStats {
	e.stageMu.Lock()
	stage, source := e.stage, e.source
	e.stageMu.Unlock()

	stats := EngineStats{Source: source, Chunks: e.chunks.Load()}
	if stage != nil {
		stats.Stage = stage.Stats()
	}
	return stats
}
