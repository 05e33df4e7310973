// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends
package output

import (
	"errors"

	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

var ErrNotOpen = errors.New("output not initialized")

// Output represents an audio output device
type Output interface {
	// Open initializes the output device for frames of track
	Open(track audio.Track) error

	// Write outputs one frame (blocks until written)
	Write(frame *audio.Frame) error

	// Close releases output resources
	Close() error
}
