package buffon_test

import (
	"errors"
	"math"
	"testing"

	Bs "github.com/maroda/buffon/sim"
)

func TestDriverState_String(t *testing.T) {
	tests := []struct {
		state Bs.DriverState
		want  string
	}{
		{Bs.StateIdle, "Idle"},
		{Bs.StateRunning, "Running"},
		{Bs.StateCompleted, "Completed"},
		{Bs.DriverState(9), "Unknown"},
	}
	for _, tt := range tests {
		assertString(t, tt.state.String(), tt.want)
	}
}

func TestNewDriver(t *testing.T) {
	t.Run("Refuses to run without parameters", func(t *testing.T) {
		_, err := Bs.NewDriver(nil)
		assertGotError(t, err)
	})

	t.Run("Starts idle with the zero snapshot", func(t *testing.T) {
		driver := makeDriver(t, 50)

		if got := driver.State(); got != Bs.StateIdle {
			t.Errorf("fresh driver state = %v, want %v", got, Bs.StateIdle)
		}

		snap := driver.Snapshot()
		assertInt64(t, snap.Tick, 0)
		assertInt(t, len(snap.Needles), 0)
		assertInt64(t, snap.Stats.TotalNeedles, 0)
		if snap.Stats.RatioOK || snap.Stats.PiOK {
			t.Error("sentinels leaked values before the first tick")
		}
		assertInt(t, len(driver.History()), 0)
	})
}

func TestDriver_Tick(t *testing.T) {
	t.Run("First tick publishes the opening batch", func(t *testing.T) {
		driver := makeDriver(t, 50)

		snap, err := driver.Tick()
		assertError(t, err, nil)

		assertInt64(t, snap.Tick, 1)
		assertInt(t, len(snap.Needles), 10)
		assertInt64(t, snap.Stats.TotalNeedles, 10)
		assertInt64(t, snap.Stats.TotalCrossings, 2)
		assertFloat64(t, snap.Stats.Ratio, 0.2, 1e-9)
		if !snap.Stats.PiOK {
			t.Fatal("estimate withheld above the stability floor")
		}
		assertFloat64(t, snap.Stats.PiEstimate, 5.0, 1e-9)

		if got := driver.State(); got != Bs.StateRunning {
			t.Errorf("driver state = %v, want %v", got, Bs.StateRunning)
		}
	})

	t.Run("Verdicts ride along with their needles", func(t *testing.T) {
		driver := makeDriver(t, 50)

		snap, err := driver.Tick()
		assertError(t, err, nil)

		crossings := int64(0)
		for i, cn := range snap.Needles {
			if cn.Crosses != driver.Lines.Crosses(cn.Needle) {
				t.Errorf("needle %d carries the wrong verdict", i)
			}
			if cn.Crosses {
				crossings++
			}
		}
		assertInt64(t, crossings, snap.Stats.TotalCrossings)
	})

	t.Run("Totals accumulate across ticks", func(t *testing.T) {
		driver := makeDriver(t, 50)

		_, err := driver.Tick()
		assertError(t, err, nil)
		snap, err := driver.Tick()
		assertError(t, err, nil)

		assertInt64(t, snap.Tick, 2)
		assertInt64(t, snap.Stats.TotalNeedles, 20)
		assertInt64(t, snap.Stats.TotalCrossings, 8)
		assertFloat64(t, snap.Stats.Ratio, 0.4, 1e-9)
		assertFloat64(t, snap.Stats.PiEstimate, 2.5, 1e-9)
	})

	t.Run("History grows one entry per tick", func(t *testing.T) {
		driver := makeDriver(t, 50)

		snap := driver.Snapshot()
		for i := 0; i < 3; i++ {
			var err error
			snap, err = driver.Tick()
			assertError(t, err, nil)
		}

		assertInt(t, len(snap.History), 3)
		for i, entry := range snap.History {
			assertInt64(t, entry.Tick, int64(i+1))
		}
		assertInt64(t, snap.History[2].TotalNeedles, 30)
		assertInt64(t, snap.History[2].TotalCrossings, 12)
	})

	t.Run("History copies never reach the record", func(t *testing.T) {
		driver := makeDriver(t, 50)
		_, err := driver.Tick()
		assertError(t, err, nil)

		history := driver.History()
		history[0].TotalCrossings = 999

		fresh := driver.History()
		assertInt64(t, fresh[0].TotalCrossings, 2)
	})

	t.Run("Same parameters replay the same run", func(t *testing.T) {
		first := makeDriver(t, 50)
		second := makeDriver(t, 50)

		for i := 0; i < 3; i++ {
			a, err := first.Tick()
			assertError(t, err, nil)
			b, err := second.Tick()
			assertError(t, err, nil)

			if a.Stats != b.Stats {
				t.Fatalf("tick %d diverged: %+v vs %+v", i+1, a.Stats, b.Stats)
			}
		}
	})
}

func TestDriver_Exhaustion(t *testing.T) {
	driver := makeDriver(t, 25)

	t.Run("Final batch truncates onto the budget", func(t *testing.T) {
		for _, wantSize := range []int{10, 10, 5} {
			snap, err := driver.Tick()
			assertError(t, err, nil)
			assertInt(t, len(snap.Needles), wantSize)
		}

		snap := driver.Snapshot()
		assertInt64(t, snap.Stats.TotalNeedles, 25)
		assertInt64(t, snap.Stats.TotalCrossings, 10)
		if !snap.Stats.Completed {
			t.Error("final snapshot not marked complete")
		}
		if got := driver.State(); got != Bs.StateCompleted {
			t.Errorf("driver state = %v, want %v", got, Bs.StateCompleted)
		}
	})

	t.Run("Exhausted driver re-serves the final snapshot", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			snap, err := driver.Tick()
			if !errors.Is(err, Bs.ErrExhausted) {
				t.Fatalf("got error %v, want %v", err, Bs.ErrExhausted)
			}
			assertInt64(t, snap.Tick, 3)
			assertInt64(t, snap.Stats.TotalNeedles, 25)
			assertInt(t, len(snap.Needles), 5)
		}
	})
}

func TestDriver_Convergence(t *testing.T) {
	runOut := func(t *testing.T, driver *Bs.Driver) {
		t.Helper()
		for i := 0; i < 300; i++ {
			snap, err := driver.Tick()
			assertError(t, err, nil)
			if snap.Stats.Completed {
				return
			}
		}
		t.Fatal("run never completed")
	}

	t.Run("Ten thousand needles settle near the theory", func(t *testing.T) {
		params := makeParams(t, Bs.ConfigFile{
			NeedleLength:   1.0,
			LineSpacing:    2.0,
			NeedlesPerTick: 2000,
			MaxNeedles:     10000,
			Seed:           "craquemattic",
		})
		driver, err := Bs.NewDriver(params)
		assertError(t, err, nil)
		runOut(t, driver)

		stats := driver.Stats()
		assertInt64(t, stats.TotalNeedles, 10000)
		assertInt64(t, stats.TotalCrossings, 3175)
		assertFloat64(t, stats.Ratio, 0.3175, 1e-9)

		theory := (2 * params.NeedleLength) / (math.Pi * params.LineSpacing)
		if math.Abs(stats.Ratio-theory) > 0.02 {
			t.Errorf("ratio %v strayed from theory %v", stats.Ratio, theory)
		}

		if !stats.PiOK {
			t.Fatal("estimate withheld at the end of a healthy run")
		}
		assertFloat64(t, stats.PiEstimate, 3.149606, 1e-6)
		if math.Abs(stats.PiEstimate-math.Pi) > 0.1 {
			t.Errorf("estimate %v strayed from π", stats.PiEstimate)
		}
	})

	t.Run("A different seed lands its own estimate", func(t *testing.T) {
		params := makeParams(t, Bs.ConfigFile{
			NeedleLength:   1.0,
			LineSpacing:    2.0,
			NeedlesPerTick: 2000,
			MaxNeedles:     10000,
			Seed:           "aiguille",
		})
		driver, err := Bs.NewDriver(params)
		assertError(t, err, nil)
		runOut(t, driver)

		stats := driver.Stats()
		assertInt64(t, stats.TotalCrossings, 3186)
		assertFloat64(t, stats.PiEstimate, 3.138732, 1e-6)
	})

	t.Run("The default tabletop run completes", func(t *testing.T) {
		driver, err := Bs.NewDriver(makeParams(t, Bs.ConfigFile{}))
		assertError(t, err, nil)
		runOut(t, driver)

		stats := driver.Stats()
		assertInt64(t, stats.TotalNeedles, 2000)
		assertInt64(t, stats.TotalCrossings, 1254)
		assertFloat64(t, stats.Ratio, 0.627, 1e-9)
		assertFloat64(t, stats.PiEstimate, 3.189793, 1e-6)
	})

	t.Run("The batch split leaves no trace in the totals", func(t *testing.T) {
		// The default run again, spent in one batch instead of 200
		small, err := Bs.NewDriver(makeParams(t, Bs.ConfigFile{}))
		assertError(t, err, nil)
		big, err := Bs.NewDriver(makeParams(t, Bs.ConfigFile{NeedlesPerTick: 2000}))
		assertError(t, err, nil)

		runOut(t, small)
		runOut(t, big)

		if small.Stats() != big.Stats() {
			t.Errorf("split changed the run: %+v vs %+v", small.Stats(), big.Stats())
		}
	})
}

// Helpers //

// makeParams validates a test config, failing fast on a bad one
func makeParams(t testing.TB, cf Bs.ConfigFile) *Bs.ParameterSet {
	t.Helper()
	params, err := Bs.NewParameterSet(cf)
	if err != nil {
		t.Fatalf("could not build parameters: %v", err)
	}
	return params
}

// makeDriver wires the small deterministic run used across the
// driver tests: ten needles per tick on double-spaced lines
func makeDriver(t testing.TB, maxNeedles int64) *Bs.Driver {
	t.Helper()
	params := makeParams(t, Bs.ConfigFile{
		NeedleLength:   1.0,
		LineSpacing:    2.0,
		NeedlesPerTick: 10,
		MaxNeedles:     maxNeedles,
		Seed:           "craquemattic",
	})
	driver, err := Bs.NewDriver(params)
	if err != nil {
		t.Fatalf("could not build driver: %v", err)
	}
	return driver
}

func assertError(t testing.TB, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Errorf("got error %q want %q", got, want)
	}
}

func assertGotError(t testing.TB, got error) {
	t.Helper()
	if got == nil {
		t.Errorf("Expected an error but got %q", got)
	}
}

func assertInt(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %d, want %d", got, want)
	}
}

func assertInt64(t *testing.T, got, want int64) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %d, want %d", got, want)
	}
}

func assertFloat64(t *testing.T, got, want, tolerance float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("did not get correct value, got %f, want %f", got, want)
	}
}

func assertString(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
