package plugin_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	Bp "github.com/maroda/buffon/plugin"
	Bt "github.com/maroda/buffon/types"
)

func TestNewBadgerOutput(t *testing.T) {
	adapter, closedb := makeTestBadgerOutput(t)
	compare := struct {
		db        *badger.DB
		batchSize int
		buffer    []*Bt.TickRecord
	}{
		db:        adapter.DB,
		batchSize: 10,
		buffer:    make([]*Bt.TickRecord, 0, 10),
	}
	defer closedb()

	t.Run("Creates new struct for in-memory output", func(t *testing.T) {
		got, err := Bp.NewBadgerOutput("", 10)
		assertError(t, err, nil)
		assertInt(t, got.BatchSize, compare.batchSize)
		defer got.Close()
	})

	t.Run("Returns Type", func(t *testing.T) {
		want := "BadgerDB"
		got := adapter.Type()
		assertStringContains(t, got, want)
	})
}

func TestBadgerOutput_WriteTick(t *testing.T) {
	adapter, closedb := makeTestBadgerOutput(t)
	defer closedb()

	rec := &Bt.TickRecord{
		Tick:         1,
		BatchSize:    10,
		TotalNeedles: 10,
		Ratio:        0.6,
		Timestamp:    time.Now().UnixNano(),
	}

	t.Run("Writes tick record without error", func(t *testing.T) {
		err := adapter.WriteTick(rec)
		assertError(t, err, nil)
	})

	t.Run("Flushes tick records for writing", func(t *testing.T) {
		flusher, closeflush := makeTestBadgerOutput(t)
		defer closeflush()

		// the test adapter buffer size is 5,
		// the fifth write triggers the flush
		recs := []*Bt.TickRecord{
			{Tick: 2, BatchSize: 10, TotalNeedles: 20},
			{Tick: 3, BatchSize: 10, TotalNeedles: 30},
			{Tick: 4, BatchSize: 10, TotalNeedles: 40},
			{Tick: 5, BatchSize: 10, TotalNeedles: 50},
			{Tick: 6, BatchSize: 10, TotalNeedles: 60},
		}

		// Send all records
		for _, r := range recs {
			err := flusher.WriteTick(r)
			assertError(t, err, nil)
		}

		// Verify database entries
		var readRecs []*Bt.TickRecord
		readRecs, err := flusher.QueryRange(2, 6)
		assertError(t, err, nil)

		// Verify Count
		if len(readRecs) != len(recs) {
			t.Errorf("Expected %d records, got %d", len(recs), len(readRecs))
		}

		// Verify data match
		if len(readRecs) > 0 {
			if readRecs[0].Tick != recs[0].Tick {
				t.Errorf("Tick mismatch: got %d, want %d", readRecs[0].Tick, recs[0].Tick)
			}
			if readRecs[0].TotalNeedles != recs[0].TotalNeedles {
				t.Errorf("TotalNeedles mismatch: got %d, want %d", readRecs[0].TotalNeedles, recs[0].TotalNeedles)
			}
		}
	})
}

func TestBadgerOutput_TickKeyValue(t *testing.T) {
	rec := &Bt.TickRecord{
		Tick:         42,
		BatchSize:    10,
		TotalNeedles: 420,
	}

	t.Run("Makes a chronological Tick Key", func(t *testing.T) {
		// BigEndian 42 in the last byte of eight
		want := []byte{0, 0, 0, 0, 0, 0, 0, 42}
		got := Bp.TickKey(rec)
		t.Logf("got: %v", got)

		if !bytes.Equal(want, got) {
			t.Errorf("TickKey = %v, want %v", got, want)
		}
	})

	t.Run("Round-trips a record through gob", func(t *testing.T) {
		data := Bp.TickEncode(rec)
		back, err := Bp.TickDecode(data)
		assertError(t, err, nil)
		assertInt64(t, back.Tick, rec.Tick)
		assertInt64(t, back.TotalNeedles, rec.TotalNeedles)
	})
}

func TestBadgerOutput_WriteBatch(t *testing.T) {
	tests := []struct {
		name    string
		recs    []*Bt.TickRecord
		wantErr bool
	}{
		{
			name:    "empty batch",
			recs:    []*Bt.TickRecord{},
			wantErr: false,
		},
		{
			name: "single record",
			recs: []*Bt.TickRecord{
				{Tick: 1, BatchSize: 10},
			},
			wantErr: false,
		},
		{
			name: "multiple records",
			recs: []*Bt.TickRecord{
				{Tick: 1, BatchSize: 10},
				{Tick: 2, BatchSize: 10},
				{Tick: 3, BatchSize: 10},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, closedb := makeTestBadgerOutput(t)
			defer closedb()

			err := adapter.WriteBatch(tt.recs)
			if (err != nil) != tt.wantErr {
				t.Errorf("WriteBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBadgerOutput_QueryRange(t *testing.T) {
	adapter, closedb := makeTestBadgerOutput(t)
	defer closedb()

	t.Run("QueryRange filters by tick interval", func(t *testing.T) {
		recs := []*Bt.TickRecord{
			{Tick: 1, TotalNeedles: 10},
			{Tick: 2, TotalNeedles: 20},
			{Tick: 3, TotalNeedles: 30},
			{Tick: 4, TotalNeedles: 40},
			{Tick: 5, TotalNeedles: 50},
		}

		// Send all records
		for _, r := range recs {
			err := adapter.WriteTick(r)
			assertError(t, err, nil)
		}

		var queryResults []*Bt.TickRecord
		queryResults, err := adapter.QueryRange(2, 4)
		assertError(t, err, nil)

		for _, qr := range queryResults {
			t.Logf("QueryResult Tick: %v", qr.Tick)
		}

		// Closed interval: ticks 2, 3, 4
		assertInt(t, len(queryResults), 3)
	})
}

// Helpers //

func makeTestBadgerOutput(t *testing.T) (*Bp.BadgerOutput, func()) {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	assertError(t, err, nil)

	adapter := &Bp.BadgerOutput{
		DB:        db,
		BatchSize: 5,
		Buffer:    make([]*Bt.TickRecord, 0, 5),
	}

	cleanup := func() {
		adapter.Close()
	}

	return adapter, cleanup
}
