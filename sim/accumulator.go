package buffon

/*

	The running tally.

	Fold consumes one classified batch at a time and extends the
	convergence history by exactly one entry. Totals only grow,
	history is never rewritten, and both inverse-problem
	sentinels live here: no ratio before the first needle,
	no π while the crossing ratio sits under the stability floor.

*/

import (
	Bt "github.com/maroda/buffon/types"
)

type Accumulator struct {
	Length   float64
	Spacing  float64
	MinRatio float64
	Total    int64
	Hits     int64
	Ticks    int64
	History  []Bt.HistoryEntry
}

func NewAccumulator(p *ParameterSet) *Accumulator {
	return &Accumulator{
		Length:   p.NeedleLength,
		Spacing:  p.LineSpacing,
		MinRatio: p.MinRatio,
	}
}

// Fold tallies one batch of verdicts and appends one history entry.
// The driver calls this exactly once per tick, in tick order,
// never concurrently.
func (ac *Accumulator) Fold(verdicts []bool) Bt.HistoryEntry {
	for _, crossed := range verdicts {
		if crossed {
			ac.Hits++
		}
	}
	ac.Total += int64(len(verdicts))
	ac.Ticks++

	ratio, _ := ac.Ratio()
	pi, piOK := ac.PiEstimate()

	entry := Bt.HistoryEntry{
		Tick:           ac.Ticks,
		TotalNeedles:   ac.Total,
		TotalCrossings: ac.Hits,
		Ratio:          ratio,
		PiEstimate:     pi,
		PiOK:           piOK,
	}
	ac.History = append(ac.History, entry)

	return entry
}

// Ratio is crossings over drops. Before the first needle there
// is nothing to divide, the bool reports whether the value holds.
func (ac *Accumulator) Ratio() (float64, bool) {
	if ac.Total == 0 {
		return 0, false
	}
	return float64(ac.Hits) / float64(ac.Total), true
}

// PiEstimate inverts the crossing ratio into π = 2L / (ratio·D).
// Under the stability floor the inversion amplifies noise into
// nonsense, so the estimate is withheld instead of published.
func (ac *Accumulator) PiEstimate() (float64, bool) {
	ratio, ok := ac.Ratio()
	if !ok || ratio < ac.MinRatio {
		return 0, false
	}
	return (2 * ac.Length) / (ratio * ac.Spacing), true
}

// Stats assembles the cumulative numbers for a snapshot.
// Completed is the driver's call, it stays false here.
func (ac *Accumulator) Stats() Bt.RunningStats {
	ratio, ratioOK := ac.Ratio()
	pi, piOK := ac.PiEstimate()
	return Bt.RunningStats{
		TotalNeedles:   ac.Total,
		TotalCrossings: ac.Hits,
		Ratio:          ratio,
		RatioOK:        ratioOK,
		PiEstimate:     pi,
		PiOK:           piOK,
	}
}

// HistoryCopy hands out an isolated copy for snapshots,
// no display can reach back into the append-only record.
func (ac *Accumulator) HistoryCopy() []Bt.HistoryEntry {
	out := make([]Bt.HistoryEntry, len(ac.History))
	copy(out, ac.History)
	return out
}
