package plugin

/*
	PiError

	This plugin measures estimate quality against a reference value.

	Returns the absolute deviation of a series point from the target,
	by default the true value of pi

	This expects the /current/ used by Transform to be a pi estimate
*/

import (
	"fmt"
	"math"
)

type PiErrorPlugin struct {
	Target float64
}

// NewPiErrorTransformer returns a struct with the reference target,
// a zero target means the true value of pi
func NewPiErrorTransformer(target float64) *PiErrorPlugin {
	if target == 0 {
		target = math.Pi
	}
	return &PiErrorPlugin{Target: target}
}

// Transform measures how far the estimate sits from the target.
// A guard-suppressed estimate arrives as zero and is rejected,
// deviation from a withheld value is not a meaningful error.
func (pe *PiErrorPlugin) Transform(series string, current float64, window []float64, tick int64) (float64, error) {
	if current == 0 {
		return 0, fmt.Errorf("no estimate for series %s at tick %d", series, tick)
	}
	return math.Abs(current - pe.Target), nil
}

func (pe *PiErrorPlugin) WindowReq() int { return -1 } // Not applicable
func (pe *PiErrorPlugin) Type() string   { return "pi_error" }
