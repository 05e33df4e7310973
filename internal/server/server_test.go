// ABOUTME: Tests for the streaming server
// ABOUTME: Covers handshake, rejections, engine streaming and HTTP endpoints
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-resampler/internal/protocol"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio/decode"
)

func outputTrack(format audio.SampleFormat) audio.Track {
	return audio.Track{
		SampleRate:      48000,
		SampleFormat:    format,
		Layout:          audio.LayoutStereo,
		Timebase:        audio.TimebaseForRate(48000),
		SamplesPerFrame: 960,
	}
}

func testConfig() Config {
	return Config{
		Port:     8927,
		Name:     "test-server",
		Output:   outputTrack(audio.SampleFormatS16),
		Codec:    "pcm",
		BitDepth: 16,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, hello protocol.ClientHello) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteJSON(protocol.Message{Type: protocol.TypeClientHello, Payload: hello}); err != nil {
		t.Fatalf("write hello failed: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown codec", func(c *Config) { c.Codec = "aac" }},
		{"bad pcm depth", func(c *Config) { c.BitDepth = 12 }},
		{"opus at 44.1kHz", func(c *Config) {
			c.Codec = "opus"
			c.Output.SampleRate = 44100
		}},
		{"invalid output", func(c *Config) { c.Output.Layout = audio.LayoutNone }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestHandshake(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, protocol.ClientHello{ClientID: "c1", Name: "desk", Version: 1, Codecs: []string{"pcm"}})

	msg := readMessage(t, conn)
	if msg.Type != protocol.TypeServerHello {
		t.Fatalf("expected %s, got %s", protocol.TypeServerHello, msg.Type)
	}
	var hello protocol.ServerHello
	if err := protocol.DecodePayload(msg.Payload, &hello); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if hello.Name != "test-server" || hello.Version != protocol.Version || hello.ServerID == "" {
		t.Errorf("unexpected server hello %+v", hello)
	}

	msg = readMessage(t, conn)
	if msg.Type != protocol.TypeStreamStart {
		t.Fatalf("expected %s, got %s", protocol.TypeStreamStart, msg.Type)
	}
	var start protocol.StreamStart
	if err := protocol.DecodePayload(msg.Payload, &start); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := protocol.StreamStart{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16, SamplesPerFrame: 960}
	if start != want {
		t.Errorf("expected %+v, got %+v", want, start)
	}
}

func TestHandshakeRejections(t *testing.T) {
	tests := []struct {
		name  string
		first *protocol.ClientHello
		hello protocol.ClientHello
		code  string
	}{
		{
			name:  "duplicate client id",
			first: &protocol.ClientHello{ClientID: "same", Name: "one"},
			hello: protocol.ClientHello{ClientID: "same", Name: "two"},
			code:  "duplicate_client_id",
		},
		{
			name:  "no common codec",
			hello: protocol.ClientHello{ClientID: "c2", Name: "opus-only", Codecs: []string{"opus"}},
			code:  "unsupported_codec",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := newTestServer(t)

			if tt.first != nil {
				first := dial(t, ts, *tt.first)
				if msg := readMessage(t, first); msg.Type != protocol.TypeServerHello {
					t.Fatalf("first client: expected server/hello, got %s", msg.Type)
				}
			}

			conn := dial(t, ts, tt.hello)
			msg := readMessage(t, conn)
			if msg.Type != protocol.TypeServerError {
				t.Fatalf("expected %s, got %s", protocol.TypeServerError, msg.Type)
			}
			var serr protocol.ServerError
			if err := protocol.DecodePayload(msg.Payload, &serr); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if serr.Error != tt.code {
				t.Errorf("expected %s, got %s", tt.code, serr.Error)
			}
		})
	}
}

func TestEngineStreamsSource(t *testing.T) {
	s, ts := newTestServer(t)

	client := &Client{ID: "fake", Name: "fake", sendChan: make(chan interface{}, 100)}
	s.engine.AddClient(client)

	in := outputTrack(audio.SampleFormatS16)
	in.SamplesPerFrame = 1000
	src, err := decode.NewTone(in, 440, 0.5, 4800)
	if err != nil {
		t.Fatalf("NewTone() failed: %v", err)
	}

	if err := s.engine.stream(src, "tone"); err != nil {
		t.Fatalf("stream() failed: %v", err)
	}

	if msg, ok := (<-client.sendChan).(protocol.Message); !ok || msg.Type != protocol.TypeStreamStart {
		t.Fatalf("expected stream/start first, got %v", msg)
	}

	var timestamps []int64
	for len(client.sendChan) > 0 {
		switch v := (<-client.sendChan).(type) {
		case []byte:
			ts, payload, err := protocol.DecodeChunk(v)
			if err != nil {
				t.Fatalf("DecodeChunk() failed: %v", err)
			}
			if len(payload) != 960*2*2 {
				t.Errorf("expected %d payload bytes, got %d", 960*2*2, len(payload))
			}
			timestamps = append(timestamps, ts)
		case protocol.Message:
			if v.Type != protocol.TypeStreamEnd {
				t.Errorf("unexpected message %s", v.Type)
			}
			if len(client.sendChan) != 0 {
				t.Error("stream/end should be the last message")
			}
		}
	}

	if len(timestamps) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(timestamps))
	}
	for i := 1; i < len(timestamps); i++ {
		if d := timestamps[i] - timestamps[i-1]; d != 20000 {
			t.Errorf("chunk %d: expected 20ms spacing, got %dus", i, d)
		}
	}

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status failed: %v", err)
	}
	if status.Source != "tone" || status.Chunks != 5 || status.Stage.Emitted != 5 || status.Stage.Fed != 5 {
		t.Errorf("unexpected status %+v", status)
	}
	if status.Stage.State != "stopped" {
		t.Errorf("expected stopped stage after stream, got %s", status.Stage.State)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, ts := newTestServer(t)

	in := outputTrack(audio.SampleFormatS16)
	src, err := decode.NewTone(in, 440, 0.5, 960*3)
	if err != nil {
		t.Fatalf("NewTone() failed: %v", err)
	}
	if err := s.engine.stream(src, "tone"); err != nil {
		t.Fatalf("stream() failed: %v", err)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	for _, want := range []string{"resampler_frames_fed_total 3", "resampler_frames_emitted_total 3"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
