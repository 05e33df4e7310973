// ABOUTME: Channel layout enumeration
// ABOUTME: Maps named speaker layouts to channel counts
package audio

import "fmt"

// ChannelLayout identifies the speaker arrangement of a stream
type ChannelLayout int

const (
	LayoutNone ChannelLayout = iota
	LayoutMono
	LayoutStereo
	Layout2Point1
	LayoutSurround // 3.0: FL FR FC
	LayoutQuad
	Layout5Point0
	Layout5Point1
	Layout7Point1
)

type layoutInfo struct {
	name     string
	channels int
}

var layouts = map[ChannelLayout]layoutInfo{
	LayoutMono:     {"mono", 1},
	LayoutStereo:   {"stereo", 2},
	Layout2Point1:  {"2.1", 3},
	LayoutSurround: {"3.0", 3},
	LayoutQuad:     {"quad", 4},
	Layout5Point0:  {"5.0", 5},
	Layout5Point1:  {"5.1", 6},
	Layout7Point1:  {"7.1", 8},
}

// ParseChannelLayout looks a layout up by name (e.g. "stereo", "5.1")
func ParseChannelLayout(name string) (ChannelLayout, error) {
	for l, info := range layouts {
		if info.name == name {
			return l, nil
		}
	}
	return LayoutNone, fmt.Errorf("%w: %q", ErrUnknownChannelLayout, name)
}

// DefaultLayout returns the usual layout for a channel count
func DefaultLayout(channels int) ChannelLayout {
	switch channels {
	case 1:
		return LayoutMono
	case 2:
		return LayoutStereo
	case 3:
		return LayoutSurround
	case 4:
		return LayoutQuad
	case 5:
		return Layout5Point0
	case 6:
		return Layout5Point1
	case 8:
		return Layout7Point1
	default:
		return LayoutNone
	}
}

// Name returns the layout name, or "none" when unknown
func (l ChannelLayout) Name() string {
	if info, ok := layouts[l]; ok {
		return info.name
	}
	return "none"
}

func (l ChannelLayout) String() string { return l.Name() }

// Channels returns the number of channels in the layout
func (l ChannelLayout) Channels() int {
	return layouts[l].channels
}

// Valid reports whether l is a known layout
func (l ChannelLayout) Valid() bool {
	_, ok := layouts[l]
	return ok
}
