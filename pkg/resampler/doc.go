// ABOUTME: Package resampler is an asynchronous audio resampling stage
// ABOUTME: Frames go in with SendBuffer and come out through a handler
/*
Package resampler converts a single audio track from one sample rate,
format, channel layout and timebase to another on a dedicated worker
goroutine.

	r := resampler.New(resampler.WithLogger(logger))
	if err := r.Configure(&in, &out); err != nil {
		return err
	}
	r.SetCompleteHandler(func(f *audio.Frame) {
		// f is owned by the handler
	})
	if err := r.Start(); err != nil {
		return err
	}
	defer r.Close()

	for frame := range frames {
		r.SendBuffer(frame)
	}

SendBuffer never blocks and always returns 0; frames that cannot be
processed are logged and counted in Stats. The handler is called
synchronously on the worker goroutine, so a slow handler delays every
frame behind it.

Output frames carry out.SamplesPerFrame samples each, in the output
timebase, in the same order as the input frames they were made from.
*/
package resampler
