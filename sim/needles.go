package buffon

/*

	The needle drop.

	Uniform centers over the domain, uniform angles, endpoints
	half a needle length out on either side. Batches fan out
	across a small worker pool with every slot written by index,
	so the drop order is stable and the pool leaves no trace
	in the results.

*/

import (
	"fmt"
	"math"
	"sync"

	Bt "github.com/maroda/buffon/types"
)

// Batches under this size are generated inline,
// goroutine overhead outweighs the trigonometry
const parallelFloor = 64

// NeedleGen drops needles with reproducible randomness.
// The global index advances once per needle across the whole run,
// so a needle's coordinates depend only on the seed and its
// position in the drop order, never on batch boundaries.
type NeedleGen struct {
	Length  float64
	Field   Domain
	Stream  uint64 // PCG stream seed for this run
	Next    int64  // global index of the next needle
	Workers int
}

// NewNeedleGen builds the generator for one run
func NewNeedleGen(p *ParameterSet) *NeedleGen {
	return &NeedleGen{
		Length:  p.NeedleLength,
		Field:   p.Field,
		Stream:  DeterministicSeedValue(p.Seed, "needles"),
		Workers: p.Workers,
	}
}

// Generate drops /n/ needles and advances the global index.
// The batch split never changes the needles themselves:
// two calls of 10 produce exactly the needles of one call of 20.
func (g *NeedleGen) Generate(n int) ([]Bt.Needle, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: batch size %d is negative", ErrInvalidParameter, n)
	}

	needles := make([]Bt.Needle, n)
	base := g.Next
	g.Next += int64(n)

	if n < parallelFloor || g.Workers <= 1 {
		for i := range needles {
			needles[i] = g.drop(base + int64(i))
		}
		return needles, nil
	}

	// Fan out in contiguous chunks, one per worker
	var wg sync.WaitGroup
	chunk := (n + g.Workers - 1) / g.Workers
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				needles[i] = g.drop(base + int64(i))
			}
		}(lo, hi)
	}
	wg.Wait()

	return needles, nil
}

// drop materializes the needle at one global index.
// Three draws from its private stream, in a fixed order:
// center x, center y, angle.
func (g *NeedleGen) drop(index int64) Bt.Needle {
	rng := NewNeedleRand(g.Stream, index)

	cx := RandomDistance(rng, g.Field.MinX, g.Field.MaxX)
	cy := RandomDistance(rng, g.Field.MinY, g.Field.MaxY)
	theta := RandomAngle(rng)

	dx := (g.Length / 2) * math.Cos(theta)
	dy := (g.Length / 2) * math.Sin(theta)

	return Bt.Needle{
		X1: cx - dx,
		Y1: cy - dy,
		X2: cx + dx,
		Y2: cy + dy,
	}
}
