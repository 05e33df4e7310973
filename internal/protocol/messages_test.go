// ABOUTME: Tests for protocol messages and chunk framing
// ABOUTME: Covers hello validation, payload decoding and binary chunks
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestClientHelloValidate(t *testing.T) {
	tests := []struct {
		name    string
		hello   ClientHello
		wantErr bool
	}{
		{"valid", ClientHello{ClientID: "abc", Name: "kitchen"}, false},
		{"missing id", ClientHello{Name: "kitchen"}, true},
		{"missing name", ClientHello{ClientID: "abc"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hello.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidHello) {
				t.Errorf("expected ErrInvalidHello, got %v", err)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	raw := []byte(`{"type":"client/hello","payload":{"client_id":"c1","name":"desk","version":1,"codecs":["opus","pcm"]}}`)

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if msg.Type != TypeClientHello {
		t.Fatalf("expected %s, got %s", TypeClientHello, msg.Type)
	}

	var hello ClientHello
	if err := DecodePayload(msg.Payload, &hello); err != nil {
		t.Fatalf("DecodePayload() failed: %v", err)
	}
	if hello.ClientID != "c1" || hello.Name != "desk" || len(hello.Codecs) != 2 || hello.Codecs[0] != "opus" {
		t.Errorf("unexpected hello %+v", hello)
	}
}

func TestStreamStartJSON(t *testing.T) {
	data, err := json.Marshal(Message{
		Type:    TypeStreamStart,
		Payload: StreamStart{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16, SamplesPerFrame: 960},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"type":"stream/start","payload":{"codec":"pcm","sample_rate":48000,"channels":2,"bit_depth":16,"samples_per_frame":960}}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}

func TestChunkFraming(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	chunk := EncodeChunk(1_500_000, payload)

	if len(chunk) != ChunkHeaderSize+len(payload) {
		t.Fatalf("expected %d bytes, got %d", ChunkHeaderSize+len(payload), len(chunk))
	}
	if chunk[0] != AudioChunkType {
		t.Errorf("expected type %d, got %d", AudioChunkType, chunk[0])
	}
	// big-endian timestamp
	if !bytes.Equal(chunk[1:9], []byte{0, 0, 0, 0, 0, 0x16, 0xe3, 0x60}) {
		t.Errorf("unexpected timestamp bytes % x", chunk[1:9])
	}

	ts, got, err := DecodeChunk(chunk)
	if err != nil {
		t.Fatalf("DecodeChunk() failed: %v", err)
	}
	if ts != 1_500_000 || !bytes.Equal(got, payload) {
		t.Errorf("expected 1500000/%v, got %d/%v", payload, ts, got)
	}
}

func TestDecodeChunkErrors(t *testing.T) {
	tests := []struct {
		name  string
		chunk []byte
		want  error
	}{
		{"short", []byte{1, 0, 0}, ErrShortChunk},
		{"wrong type", append([]byte{2}, make([]byte, 8)...), ErrChunkType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeChunk(tt.chunk); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
