package buffon

import (
	"sync"
	"time"
)

// DefaultTickInterval is the cadence of the driving clock
const DefaultTickInterval = time.Second

type TickSupervisor struct {
	View     *View
	Interval time.Duration
	Ticker   *time.Ticker
	StopChan chan struct{}
	WG       sync.WaitGroup
}

// NewTickSupervisor is a wrapper around the View that manages the run clock.
// They are strongly coupled, one knows about the other.
// An interval of zero selects the default cadence.
func (v *View) NewTickSupervisor(interval time.Duration) *TickSupervisor {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ts := &TickSupervisor{
		View:     v,
		Interval: interval,
	}
	v.Supervisor = ts
	return ts
}

// Start the TickSupervisor.
// The loop winds itself down once the needle budget is spent,
// a later Stop on the wound-down clock is a no-op.
func (t *TickSupervisor) Start() {
	t.StopChan = make(chan struct{})
	t.Ticker = time.NewTicker(t.Interval)

	t.WG.Add(1)
	go func() {
		defer t.WG.Done()
		defer t.Ticker.Stop()

		for {
			select {
			case <-t.Ticker.C:
				if done := t.View.AdvanceRun(); done {
					return
				}
			case <-t.StopChan:
				return
			}
		}
	}()
}

// Stop the TickSupervisor
func (t *TickSupervisor) Stop() {
	if t.StopChan != nil {
		close(t.StopChan)
		t.WG.Wait()
		t.StopChan = nil
	}
}

// Restart the TickSupervisor
func (t *TickSupervisor) Restart() {
	t.Stop()
	t.Start()
}
