package buffon

/*

	Crossing detection against the ruled lines.

	The lines live at every integer multiple of the spacing,
	y = k·D for all integers k. A needle crosses iff some
	multiple lands inside its vertical span, endpoints included.
	One ceiling call answers that, no trigonometry involved.

*/

import (
	"math"
	"sync"

	Bt "github.com/maroda/buffon/types"
)

// LineField is the ruled plane a batch is tested against
type LineField struct {
	Spacing float64
	Workers int
}

func NewLineField(p *ParameterSet) *LineField {
	return &LineField{
		Spacing: p.LineSpacing,
		Workers: p.Workers,
	}
}

// Crosses reports whether the needle touches any ruled line.
// k indexes the first line at or above the lower endpoint,
// the needle crosses iff that line is not above the upper one.
// Both comparisons are closed, touching a line counts.
func (lf *LineField) Crosses(nd Bt.Needle) bool {
	yMin, yMax := nd.Y1, nd.Y2
	if yMin > yMax {
		yMin, yMax = yMax, yMin
	}

	k := math.Ceil(yMin / lf.Spacing)
	return k*lf.Spacing <= yMax
}

// Classify tests one batch, verdicts aligned with it by index.
// Pure over its input, safe to fan out.
func (lf *LineField) Classify(batch []Bt.Needle) []bool {
	verdicts := make([]bool, len(batch))

	if len(batch) < parallelFloor || lf.Workers <= 1 {
		for i, nd := range batch {
			verdicts[i] = lf.Crosses(nd)
		}
		return verdicts
	}

	var wg sync.WaitGroup
	chunk := (len(batch) + lf.Workers - 1) / lf.Workers
	for lo := 0; lo < len(batch); lo += chunk {
		hi := lo + chunk
		if hi > len(batch) {
			hi = len(batch)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				verdicts[i] = lf.Crosses(batch[i])
			}
		}(lo, hi)
	}
	wg.Wait()

	return verdicts
}
