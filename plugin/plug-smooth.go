package plugin

/*
	MovingAvg

	Returns the windowed mean of a convergence series point

	~~~ Plugin Reference Implementation ~~~
*/

// DefaultSmoothWindow is the points per mean when none is configured
const DefaultSmoothWindow = 5

type MovingAvgPlugin struct {
	Window int
}

// Transform is the main wrapper for the interface.
// Other calculation functions should be called from here.
func (p *MovingAvgPlugin) Transform(series string, current float64, window []float64, tick int64) (float64, error) {
	size := p.size()
	need := size - 1

	// Not enough history yet, the point passes through untouched
	if len(window) < need {
		return current, nil
	}

	points := make([]float64, 0, size)
	points = append(points, window[len(window)-need:]...)
	points = append(points, current)
	return MeanOf(points), nil
}

// MeanOf is a generic mean calculator that
// receives a run of sequential series points
// and returns a single float as their average
func MeanOf(points []float64) float64 {
	if len(points) == 0 {
		return 0
	}

	var sum float64
	for _, pt := range points {
		sum += pt
	}
	return sum / float64(len(points))
}

func (p *MovingAvgPlugin) size() int {
	if p.Window > 0 {
		return p.Window
	}
	return DefaultSmoothWindow
}

func (p *MovingAvgPlugin) WindowReq() int { return p.size() - 1 }
func (p *MovingAvgPlugin) Type() string   { return "moving_avg" }
