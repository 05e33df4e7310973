// ABOUTME: Audio decoder package producing raw frames for processing stages
// ABOUTME: Provides Source interface with MP3, FLAC, WAV, Ogg Vorbis, PCM and tone sources
// Package decode turns encoded audio into fixed-size raw audio frames.
//
// Supports: MP3, FLAC, WAV, Ogg Vorbis, raw PCM (16-bit and 24-bit) and a
// generated sine tone.
//
// Every source reports the Track it produces and returns frames of
// Track().SamplesPerFrame samples (the last frame may be shorter) with PTS
// counted in samples, so the track timebase is 1/SampleRate.
//
// Example:
//
//	src, err := decode.Open("song.flac", 1024)
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	for {
//		frame, err := src.ReadFrame()
//		if err == io.EOF {
//			break
//		}
//		...
//	}
package decode
