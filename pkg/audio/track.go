// ABOUTME: Track descriptor for one audio stream
// ABOUTME: Rate, sample format, layout, timebase and frame size of a track
package audio

import "fmt"

// Track describes the parameters of an audio stream. A Track is treated
// as immutable once it has been handed to a processing stage.
type Track struct {
	ID              uint32
	SampleRate      int
	SampleFormat    SampleFormat
	Layout          ChannelLayout
	Timebase        Timebase
	SamplesPerFrame int
}

// Channels returns the channel count of the track layout
func (t Track) Channels() int {
	return t.Layout.Channels()
}

// Validate checks that every parameter is usable
func (t Track) Validate() error {
	if t.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidTrack, t.SampleRate)
	}
	if !t.SampleFormat.Valid() {
		return fmt.Errorf("%w: sample format %d", ErrInvalidTrack, t.SampleFormat)
	}
	if !t.Layout.Valid() {
		return fmt.Errorf("%w: channel layout %d", ErrInvalidTrack, t.Layout)
	}
	if !t.Timebase.Valid() {
		return fmt.Errorf("%w: timebase %s", ErrInvalidTrack, t.Timebase)
	}
	if t.SamplesPerFrame < 0 {
		return fmt.Errorf("%w: samples per frame %d", ErrInvalidTrack, t.SamplesPerFrame)
	}
	return nil
}

func (t Track) String() string {
	return fmt.Sprintf("#%d %dHz %s %s tb=%s n=%d",
		t.ID, t.SampleRate, t.SampleFormat, t.Layout, t.Timebase, t.SamplesPerFrame)
}
