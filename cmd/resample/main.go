// ABOUTME: Entry point for the file conversion tool
// ABOUTME: Decodes a file, runs it through the resampler stage and writes WAV or plays it
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-resampler/internal/config"
	"github.com/Resonate-Protocol/resonate-resampler/internal/logging"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/resampler"
)

var (
	inFile     = flag.String("in", "", "Input file (MP3, FLAC, WAV, Ogg, or raw .pcm/.raw)")
	outFile    = flag.String("out", "", "Output WAV file")
	configFile = flag.String("config", "", "YAML configuration file")
	rate       = flag.Int("rate", 0, "Output sample rate")
	format     = flag.String("format", "", "Output sample format (u8, s16, s32, flt, dbl and planar variants)")
	layout     = flag.String("layout", "", "Output channel layout (mono, stereo, 2.1, 3.0, quad, 5.0, 5.1, 7.1)")
	frameSize  = flag.Int("frame", 0, "Output samples per frame")
	bits       = flag.Int("bits", 16, "WAV output bit depth (16 or 24)")
	rawBits    = flag.Int("raw-bits", 16, "Bit depth of raw PCM input (16 or 24)")
	play       = flag.Bool("play", false, "Play the converted audio")
	volume     = flag.Int("volume", 100, "Playback volume (0-100)")
	logFile    = flag.String("log-file", "", "Also write logs to this file")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		slog.Error("Conversion failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if *inFile == "" || (*outFile == "" && !*play) {
		flag.Usage()
		return errors.New("-in and one of -out or -play are required")
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var w io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		defer f.Close()
		w = io.MultiWriter(os.Stdout, f)
	}
	logger := logging.New(cfg.Logging, w)
	slog.SetDefault(logger)

	src, err := openInput(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	in := src.Track()
	out, err := cfg.Output.Track()
	if err != nil {
		return err
	}

	stage := resampler.New(
		resampler.WithLogger(logger),
		resampler.WithName(filepath.Base(*inFile)),
		resampler.WithQueueThreshold(cfg.Queue.Threshold),
	)
	if err := stage.Configure(&in, &out); err != nil {
		return err
	}
	defer stage.Close()

	sink, err := newSink(out, logger)
	if err != nil {
		return err
	}
	defer sink.close()

	eos := make(chan struct{})
	stage.SetCompleteHandler(sink.write)
	stage.SetEndOfStreamHandler(func() { close(eos) })

	if err := stage.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	start := time.Now()
	for {
		frame, err := src.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("decode failed: %w", err)
		}

		// Keep the queue near its threshold while playback paces the worker
		for stage.Stats().QueueDepth >= cfg.Queue.Threshold {
			select {
			case sig := <-sigChan:
				return fmt.Errorf("interrupted by %s", sig)
			case <-time.After(5 * time.Millisecond):
			}
		}
		stage.SendBuffer(frame)
	}
	stage.SendEndOfStream()

	// A fatal worker error stops the queue before the end-of-stream marker
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-eos:
			break wait
		case <-ticker.C:
			if stage.Stats().Failed {
				break wait
			}
		case sig := <-sigChan:
			return fmt.Errorf("interrupted by %s", sig)
		}
	}

	stats := stage.Stats()
	logger.Info("Conversion finished",
		"input", in.String(),
		"output", out.String(),
		"frames_in", stats.Fed,
		"frames_out", stats.Emitted,
		"feed_errors", stats.FeedErrors,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if stats.Failed {
		return errors.New("resampler stopped after a fatal conversion error")
	}
	return sink.err
}

// openInput opens a decoded file or a raw PCM stream described by the input config
func openInput(cfg *config.Config) (decode.Source, error) {
	ext := strings.ToLower(filepath.Ext(*inFile))
	if ext != ".pcm" && ext != ".raw" {
		return decode.Open(*inFile, cfg.Input.SamplesPerFrame)
	}

	track, err := cfg.Input.Track()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(*inFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw input: %w", err)
	}
	src, err := decode.NewPCM(f, track.SampleRate, track.Channels(), *rawBits, track.SamplesPerFrame)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &rawSource{PCMSource: src, file: f}, nil
}

type rawSource struct {
	*decode.PCMSource
	file *os.File
}

func (s *rawSource) Close() error {
	return s.file.Close()
}

// sink receives converted frames on the stage worker
type sink struct {
	file   *os.File
	wav    *encode.WAVWriter
	player *output.Oto
	logger *slog.Logger
	err    error
}

func newSink(track audio.Track, logger *slog.Logger) (*sink, error) {
	s := &sink{logger: logger}

	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create output: %w", err)
		}
		w, err := encode.NewWAVWriter(f, track, *bits)
		if err != nil {
			f.Close()
			return nil, err
		}
		s.file, s.wav = f, w
	}

	if *play {
		player := output.NewOto(logger)
		if err := player.Open(track); err != nil {
			s.close()
			return nil, err
		}
		player.SetVolume(*volume)
		s.player = player
	}

	return s, nil
}

func (s *sink) write(frame *audio.Frame) {
	if s.err != nil {
		return
	}
	if s.wav != nil {
		if err := s.wav.Write(frame); err != nil {
			s.logger.Error("Failed to write frame", "pts", frame.PTS, "error", err)
			s.err = err
			return
		}
	}
	if s.player != nil {
		if err := s.player.Write(frame); err != nil {
			s.logger.Error("Playback failed", "pts", frame.PTS, "error", err)
			s.err = err
		}
	}
}

func (s *sink) close() {
	if s.wav != nil {
		if err := s.wav.Close(); err != nil {
			s.logger.Error("Failed to finalize output", "error", err)
		}
		s.file.Close()
		s.logger.Info("Wrote output", "file", *outFile, "samples", s.wav.Written())
	}
	if s.player != nil {
		s.player.Close()
	}
}

// applyFlags overrides configuration values with explicitly set flags
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rate":
			cfg.Output.SampleRate = *rate
			cfg.Output.Timebase = ""
		case "format":
			cfg.Output.SampleFormat = *format
		case "layout":
			cfg.Output.ChannelLayout = *layout
		case "frame":
			cfg.Output.SamplesPerFrame = *frameSize
		case "log-file":
			cfg.Logging.File = *logFile
		case "debug":
			if *debug {
				cfg.Logging.Level = "debug"
			}
		}
	})
}
