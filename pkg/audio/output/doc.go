// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface and oto implementation
// Package output provides audio playback for raw frames.
//
// Playback uses oto, which renders 16-bit interleaved PCM; frames in any
// sample format are converted on Write.
//
// Example:
//
//	out := output.NewOto(logger)
//	err := out.Open(track)
//	err = out.Write(frame)
package output
