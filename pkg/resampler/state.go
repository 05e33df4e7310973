// ABOUTME: Lifecycle states of the resampling stage
// ABOUTME: Unconfigured -> Configured -> Running -> Stopped
package resampler

// State is the lifecycle position of a Resampler. Stopped is terminal.
type State int

const (
	StateUnconfigured State = iota
	StateConfigured
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
