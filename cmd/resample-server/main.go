// ABOUTME: Entry point for the resampling stream server
// ABOUTME: Parses CLI flags and configuration, then starts the server
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/resonate-resampler/internal/config"
	"github.com/Resonate-Protocol/resonate-resampler/internal/logging"
	"github.com/Resonate-Protocol/resonate-resampler/internal/server"
)

var (
	configFile = flag.String("config", "", "YAML configuration file")
	port       = flag.Int("port", 0, "WebSocket server port (default from config: 8927)")
	name       = flag.String("name", "", "Server friendly name (default: hostname-resampler)")
	logFile    = flag.String("log-file", "resample-server.log", "Log file path")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	useTUI     = flag.Bool("tui", false, "Show the terminal UI (logs go to the log file only)")
	audioFile  = flag.String("audio", "", "Audio file to stream (MP3, FLAC, WAV, Ogg). If not specified, plays test tone")
	codec      = flag.String("codec", "", "Stream codec: pcm or opus")
	rate       = flag.Int("rate", 0, "Output sample rate")
	loop       = flag.Bool("loop", false, "Restart the audio file when it ends")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	f, err := os.OpenFile(cfg.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// The TUI owns the terminal, so logs go to the file only
	var w io.Writer = f
	if !cfg.Server.TUI {
		w = io.MultiWriter(os.Stdout, f)
	}
	logger := logging.New(cfg.Logging, w)
	slog.SetDefault(logger)

	output, err := cfg.Output.Track()
	if err != nil {
		logger.Error("Invalid output track", "error", err)
		os.Exit(1)
	}

	serverName := cfg.Server.Name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-resampler", hostname)
	}

	logger.Info("Starting resampler server", "name", serverName, "port", cfg.Server.Port, "log_file", cfg.Logging.File)

	srv, err := server.New(server.Config{
		Port:           cfg.Server.Port,
		Name:           serverName,
		EnableMDNS:     cfg.Server.MDNS,
		UseTUI:         cfg.Server.TUI,
		AudioFile:      cfg.Server.Audio,
		Loop:           cfg.Server.Loop,
		Output:         output,
		Codec:          cfg.Server.Codec,
		BitDepth:       cfg.Server.BitDepth,
		QueueThreshold: cfg.Queue.Threshold,
		Realtime:       true,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received signal, shutting down gracefully", "signal", sig.String())
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

// applyFlags overrides configuration values with explicitly set flags
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "name":
			cfg.Server.Name = *name
		case "log-file":
			cfg.Logging.File = *logFile
		case "debug":
			if *debug {
				cfg.Logging.Level = "debug"
			}
		case "no-mdns":
			cfg.Server.MDNS = !*noMDNS
		case "tui":
			cfg.Server.TUI = *useTUI
		case "audio":
			cfg.Server.Audio = *audioFile
		case "codec":
			cfg.Server.Codec = *codec
		case "rate":
			cfg.Output.SampleRate = *rate
			cfg.Output.Timebase = ""
		case "loop":
			cfg.Server.Loop = *loop
		}
	})

	if cfg.Logging.File == "" {
		cfg.Logging.File = *logFile
	}
}
