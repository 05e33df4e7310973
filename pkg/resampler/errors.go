// ABOUTME: Sentinel errors for the resampling stage
package resampler

import "errors"

var (
	ErrNilTrack        = errors.New("resampler: nil track descriptor")
	ErrInvalidTimebase = errors.New("resampler: invalid timebase")
	ErrInvalidState    = errors.New("resampler: invalid state")
	ErrGraphConfig     = errors.New("resampler: could not configure filter graph")
)
