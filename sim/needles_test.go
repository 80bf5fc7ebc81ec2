package buffon_test

import (
	"math"
	"testing"

	Bs "github.com/maroda/buffon/sim"
)

func TestNewNeedleGen(t *testing.T) {
	params := makeParams(t, Bs.ConfigFile{Seed: "craquemattic"})
	gen := Bs.NewNeedleGen(params)

	if gen.Stream == 0 {
		t.Error("got a zero stream seed, want a derived value")
	}
	assertInt64(t, gen.Next, 0)
	assertFloat64(t, gen.Length, params.NeedleLength, 1e-9)
}

func TestNeedleGen_Generate(t *testing.T) {
	cf := Bs.ConfigFile{
		NeedleLength: 1.0,
		LineSpacing:  2.0,
		Seed:         "craquemattic",
	}

	t.Run("Every needle holds the configured length", func(t *testing.T) {
		gen := Bs.NewNeedleGen(makeParams(t, cf))
		needles, err := gen.Generate(200)
		assertError(t, err, nil)
		assertInt(t, len(needles), 200)

		for i, n := range needles {
			span := math.Hypot(n.X2-n.X1, n.Y2-n.Y1)
			if math.Abs(span-1.0) > 1e-9 {
				t.Errorf("needle %d spans %v, want 1.0", i, span)
			}
		}
	})

	t.Run("Centers stay inside the domain", func(t *testing.T) {
		params := makeParams(t, cf)
		gen := Bs.NewNeedleGen(params)
		needles, err := gen.Generate(500)
		assertError(t, err, nil)

		fd := params.Field
		for i, n := range needles {
			mx := (n.X1 + n.X2) / 2
			my := (n.Y1 + n.Y2) / 2
			if mx < fd.MinX-1e-9 || mx > fd.MaxX+1e-9 {
				t.Errorf("needle %d center x %v escapes [%v,%v]", i, mx, fd.MinX, fd.MaxX)
			}
			if my < fd.MinY-1e-9 || my > fd.MaxY+1e-9 {
				t.Errorf("needle %d center y %v escapes [%v,%v]", i, my, fd.MinY, fd.MaxY)
			}
		}
	})

	t.Run("Same seed replays the same drops", func(t *testing.T) {
		genA := Bs.NewNeedleGen(makeParams(t, cf))
		genB := Bs.NewNeedleGen(makeParams(t, cf))

		first, err := genA.Generate(100)
		assertError(t, err, nil)
		second, err := genB.Generate(100)
		assertError(t, err, nil)

		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("needle %d differs across replays: %+v vs %+v", i, first[i], second[i])
			}
		}
	})

	t.Run("Batch split does not change the drops", func(t *testing.T) {
		whole := Bs.NewNeedleGen(makeParams(t, cf))
		split := Bs.NewNeedleGen(makeParams(t, cf))

		all, err := whole.Generate(20)
		assertError(t, err, nil)

		head, err := split.Generate(10)
		assertError(t, err, nil)
		tail, err := split.Generate(10)
		assertError(t, err, nil)

		joined := append(head, tail...)
		assertInt(t, len(joined), len(all))
		for i := range all {
			if all[i] != joined[i] {
				t.Fatalf("needle %d depends on the batch split: %+v vs %+v", i, all[i], joined[i])
			}
		}
	})

	t.Run("Worker pool leaves no trace in the drops", func(t *testing.T) {
		pooled := cf
		pooled.Workers = 4
		inline := cf
		inline.Workers = 1

		fanned, err := Bs.NewNeedleGen(makeParams(t, pooled)).Generate(200)
		assertError(t, err, nil)
		serial, err := Bs.NewNeedleGen(makeParams(t, inline)).Generate(200)
		assertError(t, err, nil)

		for i := range serial {
			if fanned[i] != serial[i] {
				t.Fatalf("needle %d depends on the worker pool: %+v vs %+v", i, fanned[i], serial[i])
			}
		}
	})

	t.Run("Empty batch leaves the index alone", func(t *testing.T) {
		gen := Bs.NewNeedleGen(makeParams(t, cf))
		needles, err := gen.Generate(0)
		assertError(t, err, nil)
		assertInt(t, len(needles), 0)
		assertInt64(t, gen.Next, 0)
	})

	t.Run("Rejects a negative batch", func(t *testing.T) {
		gen := Bs.NewNeedleGen(makeParams(t, cf))
		_, err := gen.Generate(-1)
		assertError(t, err, Bs.ErrInvalidParameter)
	})

	t.Run("Index advances by the batch size", func(t *testing.T) {
		gen := Bs.NewNeedleGen(makeParams(t, cf))
		_, err := gen.Generate(10)
		assertError(t, err, nil)
		assertInt64(t, gen.Next, 10)
		_, err = gen.Generate(5)
		assertError(t, err, nil)
		assertInt64(t, gen.Next, 15)
	})
}
