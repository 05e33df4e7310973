// ABOUTME: Sentinel errors returned by the filter graph
// ABOUTME: ErrAgain and ErrEOF are control-flow signals, not failures
package filter

import "errors"

var (
	// ErrAgain means no output is ready; push more input first
	ErrAgain = errors.New("filter: resource temporarily unavailable")

	// ErrEOF means the graph has been flushed and fully drained
	ErrEOF = errors.New("filter: end of stream")

	ErrInvalidFrame    = errors.New("filter: invalid frame")
	ErrUnknownFilter   = errors.New("filter: unknown filter")
	ErrInvalidArgument = errors.New("filter: invalid argument")
	ErrNotConfigured   = errors.New("filter: graph not configured")
	ErrConfigured      = errors.New("filter: graph already configured")
	ErrClosed          = errors.New("filter: graph closed")
)
