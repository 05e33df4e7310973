// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Track, Frame, sample formats, layouts and timebases
// Package audio provides the data model shared by every stage of the
// resampling pipeline.
//
// A Track describes a stream (rate, sample format, channel layout,
// timebase and frame size). A Frame carries raw PCM for one track together
// with its presentation timestamp:
//
//	track := audio.Track{
//	    SampleRate:      48000,
//	    SampleFormat:    audio.SampleFormatFLT,
//	    Layout:          audio.LayoutStereo,
//	    Timebase:        audio.TimebaseForRate(48000),
//	    SamplesPerFrame: 960,
//	}
//
//	frame := audio.NewFrame(track.SampleFormat, track.Layout, track.SampleRate, 960)
//	frame.SetSample(0, 0, 0.5)
//
// Timestamps are rescaled between timebases with Timebase.Rescale, which
// rounds to the nearest unit.
package audio
