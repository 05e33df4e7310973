// ABOUTME: Audio encoder package for encoding frames to various formats
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus and WAV files
// Package encode turns raw audio frames into wire or file formats.
//
// Supports: PCM (16-bit and 24-bit little-endian), Opus, WAV files
//
// Encoders accept any frame the audio package can describe; samples are
// read through Frame.Sample so planar and packed layouts both work.
//
// Example:
//
//	encoder, err := encode.New("pcm", track, 16)
//	data, err := encoder.Encode(frame)
package encode
