// ABOUTME: Streaming protocol message type definitions
// ABOUTME: JSON control messages and the binary audio chunk framing
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// Version is the protocol version spoken by the server
	Version = 1

	// AudioChunkType tags binary audio chunk messages
	AudioChunkType = 1

	// ChunkHeaderSize is the type byte plus the 8-byte timestamp
	ChunkHeaderSize = 9
)

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeServerError = "server/error"
	TypeStreamStart = "stream/start"
	TypeStreamEnd   = "stream/end"
)

var (
	ErrShortChunk   = errors.New("audio chunk shorter than header")
	ErrChunkType    = errors.New("unexpected chunk type")
	ErrInvalidHello = errors.New("invalid client hello")
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID string   `json:"client_id"`
	Name     string   `json:"name"`
	Version  int      `json:"version"`
	Codecs   []string `json:"codecs,omitempty"` // preferred first
}

// Validate checks the fields the server relies on
func (h *ClientHello) Validate() error {
	if h.ClientID == "" {
		return fmt.Errorf("%w: missing client_id", ErrInvalidHello)
	}
	if h.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidHello)
	}
	return nil
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
	Product  string `json:"product"`
}

// ServerError reports a rejected request
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StreamStart notifies the client of the stream format
type StreamStart struct {
	Codec           string `json:"codec"`
	SampleRate      int    `json:"sample_rate"`
	Channels        int    `json:"channels"`
	BitDepth        int    `json:"bit_depth"`
	SamplesPerFrame int    `json:"samples_per_frame"`
}

// StreamEnd is sent after the last chunk of a source
type StreamEnd struct {
	Frames uint64 `json:"frames"`
}

// DecodePayload re-decodes a generic payload into v
func DecodePayload(payload interface{}, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// EncodeChunk builds a binary audio chunk:
// [type:1][timestamp µs:8 big-endian][payload:N]
func EncodeChunk(timestamp int64, payload []byte) []byte {
	chunk := make([]byte, ChunkHeaderSize+len(payload))
	chunk[0] = AudioChunkType
	binary.BigEndian.PutUint64(chunk[1:ChunkHeaderSize], uint64(timestamp))
	copy(chunk[ChunkHeaderSize:], payload)
	return chunk
}

// DecodeChunk splits a binary audio chunk into timestamp and payload
func DecodeChunk(chunk []byte) (int64, []byte, error) {
	if len(chunk) < ChunkHeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrShortChunk, len(chunk))
	}
	if chunk[0] != AudioChunkType {
		return 0, nil, fmt.Errorf("%w: %d", ErrChunkType, chunk[0])
	}
	return int64(binary.BigEndian.Uint64(chunk[1:ChunkHeaderSize])), chunk[ChunkHeaderSize:], nil
}
