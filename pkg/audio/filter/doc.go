// ABOUTME: Package filter implements a single-threaded audio filter graph
// ABOUTME: Source -> chain of filters -> sink, driven with Push/Pull
/*
Package filter provides a small audio filter-graph engine.

A graph is built from source parameters and a textual filter chain, then
configured once:

	g, err := filter.NewGraph(filter.SourceParams{
		Timebase:   audio.TimebaseForRate(44100),
		SampleRate: 44100,
		Format:     audio.SampleFormatS16,
		Layout:     audio.LayoutStereo,
	})
	if err != nil {
		return err
	}
	defer g.Close()

	err = g.Parse("asettb=1/48000,aresample=async=1000,aresample=48000," +
		"aformat=sample_fmts=flt:channel_layouts=stereo,asetnsamples=n=960")
	if err == nil {
		err = g.Config()
	}

Frames are fed with Push and converted output is read with Pull until it
reports ErrAgain. Pushing a nil frame flushes buffered samples; once the
flushed tail has been pulled, Pull and Push report ErrEOF.

Supported filters:

	asettb        tb=<num/den>|sr                         retime pts
	aresample     osr=<rate>, async=<n>, min_hard_comp=<s> timestamp smoothing and rate conversion
	aformat       sample_fmts=<a|b>, channel_layouts=<a|b>, sample_rates=<a|b>
	asetnsamples  n=<samples>, p=<0|1>                    fixed-size output frames

A Graph is not safe for concurrent use.
*/
package filter
