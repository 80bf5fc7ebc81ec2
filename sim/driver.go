package buffon

/*

	The driver for one simulation run.

	Purely reactive: nothing happens until the driving clock asks
	for a tick. Each tick drops one batch, classifies it, folds it
	into the tally, and publishes a fresh Snapshot. Once the needle
	budget is spent the driver goes quiet and keeps re-serving the
	final snapshot alongside ErrExhausted.

*/

import (
	"errors"
	"log/slog"
	"sync"

	Bt "github.com/maroda/buffon/types"
)

// DriverState is the lifecycle position of a run
type DriverState int

const (
	StateIdle      DriverState = iota // constructed, nothing dropped yet
	StateRunning                      // at least one batch folded
	StateCompleted                    // budget spent, ticks are no-ops
)

func (s DriverState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Driver owns one run end to end: the generator, the line grid,
// and the single mutable tally. Only the driving clock calls Tick,
// so folds never race; the lock exists so that displays can read
// a coherent snapshot while a tick is in flight.
type Driver struct {
	MU     sync.RWMutex
	Params *ParameterSet
	Gen    *NeedleGen
	Lines  *LineField
	Acc    *Accumulator
	state  DriverState
	last   Bt.Snapshot
}

// NewDriver wires a run from an already-validated ParameterSet
func NewDriver(p *ParameterSet) (*Driver, error) {
	if p == nil {
		slog.Error("Could not get parameters for the driver")
		return nil, errors.New("parameter set not found")
	}

	acc := NewAccumulator(p)
	d := &Driver{
		Params: p,
		Gen:    NewNeedleGen(p),
		Lines:  NewLineField(p),
		Acc:    acc,
		state:  StateIdle,
	}

	// Pre-tick snapshot: zero totals, both sentinels in force
	d.last = Bt.Snapshot{Stats: acc.Stats()}

	slog.Info("Simulation driver ready",
		slog.Float64("needleLength", p.NeedleLength),
		slog.Float64("lineSpacing", p.LineSpacing),
		slog.Int("needlesPerTick", p.NeedlesPerTick),
		slog.Int64("maxNeedles", p.MaxNeedles),
		slog.String("seed", p.Seed))

	return d, nil
}

// Tick advances the run by exactly one batch.
// The final batch is truncated so the total lands exactly on
// MaxNeedles. After that, Tick returns the held final snapshot
// with ErrExhausted: a soft condition, not a failure, checked
// by callers with errors.Is.
func (d *Driver) Tick() (Bt.Snapshot, error) {
	d.MU.Lock()
	defer d.MU.Unlock()

	if d.state == StateCompleted {
		return d.last, ErrExhausted
	}

	size := int64(d.Params.NeedlesPerTick)
	if remaining := d.Params.MaxNeedles - d.Acc.Total; size > remaining {
		size = remaining
	}

	batch, err := d.Gen.Generate(int(size))
	if err != nil {
		// Unreachable with validated parameters, surfaced anyway
		slog.Error("Failed to generate batch", slog.Any("Error", err))
		return d.last, err
	}

	verdicts := d.Lines.Classify(batch)
	d.Acc.Fold(verdicts)

	classified := make([]Bt.ClassifiedNeedle, len(batch))
	for i, nd := range batch {
		classified[i] = Bt.ClassifiedNeedle{Needle: nd, Crosses: verdicts[i]}
	}

	d.state = StateRunning
	stats := d.Acc.Stats()
	if d.Acc.Total >= d.Params.MaxNeedles {
		d.state = StateCompleted
		stats.Completed = true
		slog.Info("Needle budget exhausted",
			slog.Int64("totalNeedles", d.Acc.Total),
			slog.Int64("totalCrossings", d.Acc.Hits))
	}

	d.last = Bt.Snapshot{
		Tick:    d.Acc.Ticks,
		Needles: classified,
		Stats:   stats,
		History: d.Acc.HistoryCopy(),
	}

	return d.last, nil
}

// Snapshot returns the most recent published snapshot,
// the pre-tick zero state if the run has not started
func (d *Driver) Snapshot() Bt.Snapshot {
	d.MU.RLock()
	defer d.MU.RUnlock()
	return d.last
}

// State reports where the run is in its lifecycle
func (d *Driver) State() DriverState {
	d.MU.RLock()
	defer d.MU.RUnlock()
	return d.state
}

// Stats returns the cumulative totals without the batch payload
func (d *Driver) Stats() Bt.RunningStats {
	d.MU.RLock()
	defer d.MU.RUnlock()
	return d.last.Stats
}

// History returns an isolated copy of the convergence record
func (d *Driver) History() []Bt.HistoryEntry {
	d.MU.RLock()
	defer d.MU.RUnlock()
	return d.Acc.HistoryCopy()
}
