// ABOUTME: Sentinel errors for audio descriptors and frames
// ABOUTME: Callers match these with errors.Is
package audio

import "errors"

var (
	ErrUnknownSampleFormat  = errors.New("unknown sample format")
	ErrUnknownChannelLayout = errors.New("unknown channel layout")
	ErrInvalidTimebase      = errors.New("invalid timebase")
	ErrInvalidTrack         = errors.New("invalid track descriptor")
	ErrInvalidFrame         = errors.New("invalid frame")
)
