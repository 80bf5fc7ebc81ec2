package plugin

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	Bt "github.com/maroda/buffon/types"
)

// DefaultRecordBatch is the write buffer size when none is configured
const DefaultRecordBatch = 8

type BadgerOutput struct {
	MU        sync.Mutex
	DB        *badger.DB
	BatchSize int
	Buffer    []*Bt.TickRecord
}

// NewBadgerOutput opens the tick store.
// An empty path keeps the whole store in memory,
// nothing outlives the run. A real path gets the
// compressed on-disk configuration.
func NewBadgerOutput(path string, batchSize int) (*BadgerOutput, error) {
	if batchSize <= 0 {
		batchSize = DefaultRecordBatch
	}

	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	} else {
		opts = badger.DefaultOptions(path).
			WithCompression(options.ZSTD).
			WithNumVersionsToKeep(1)
	}

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerOutput failed to open database", slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}

	slog.Info("BadgerOutput opened",
		slog.String("path", path),
		slog.Bool("inMemory", path == ""),
		slog.Int("batchSize", batchSize))

	return &BadgerOutput{
		DB:        db,
		BatchSize: batchSize,
		Buffer:    make([]*Bt.TickRecord, 0, batchSize),
	}, nil
}

// WriteTick queues up a batch of tick records,
// when batchsize is reached, it calls Flush()
// which calls WriteBatch() with the new batch
func (bo *BadgerOutput) WriteTick(rec *Bt.TickRecord) error {
	bo.MU.Lock()
	defer bo.MU.Unlock()

	bo.Buffer = append(bo.Buffer, rec)
	if len(bo.Buffer) >= bo.BatchSize {
		return bo.flushLocked() // private Flush that does not lock
	}
	return nil
}

// WriteBatch performs the key/value creation to be stored
// and actually calls BadgerDB to write the data
func (bo *BadgerOutput) WriteBatch(recs []*Bt.TickRecord) error {
	wb := bo.DB.NewWriteBatch()
	defer wb.Cancel()

	for _, rec := range recs {
		k := TickKey(rec)
		v := TickEncode(rec)
		if err := wb.Set(k, v); err != nil {
			slog.Error("BadgerOutput failed to set key in batch",
				slog.Any("error", err),
				slog.Int64("tick", rec.Tick))
			return fmt.Errorf("write batch error: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		slog.Error("BadgerOutput failed to flush batch", slog.Any("error", err))
		return fmt.Errorf("batch flush error: %w", err)
	}

	return nil
}

// Flush is the public method that blocks,
// it sends data to WriteBatch and then clears the buffer
func (bo *BadgerOutput) Flush() error {
	bo.MU.Lock()
	defer bo.MU.Unlock()

	if len(bo.Buffer) == 0 {
		return nil
	}

	err := bo.WriteBatch(bo.Buffer) // Delegate to WriteBatch
	bo.Buffer = bo.Buffer[:0]       // Clear but keep capacity
	return err
}

// flushLocked mimics Flush without locking, called by WriteTick
func (bo *BadgerOutput) flushLocked() error {
	err := bo.WriteBatch(bo.Buffer) // Delegate to WriteBatch
	bo.Buffer = bo.Buffer[:0]       // Clear but keep capacity
	return err
}

// Close returns a Flush error but still attempts to close
func (bo *BadgerOutput) Close() error {
	slog.Info("BadgerOutput closing, flushing buffer",
		slog.Int("bufferSize", len(bo.Buffer)))
	flushErr := bo.Flush()
	closeErr := bo.DB.Close()

	if flushErr != nil {
		slog.Error("BadgerOutput failed to flush on close", slog.Any("error", flushErr))
		return fmt.Errorf("flush failed, close may have failed: %v", flushErr)
	}

	if closeErr != nil {
		slog.Error("BadgerOutput failed to close database", slog.Any("error", closeErr))
		return fmt.Errorf("close failed: %v", closeErr)
	}

	slog.Info("BadgerOutput closed successfully")
	return nil
}

func (bo *BadgerOutput) Type() string { return "BadgerDB" }

// TickKey converts the tick number into a positive BigEndian key
// so records are sorted chronologically by BadgerDB
func TickKey(rec *Bt.TickRecord) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(rec.Tick))
	return key
}

// TickEncode serializes the tick record struct for data storage
func TickEncode(rec *Bt.TickRecord) []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	enc.Encode(rec)
	return buf.Bytes()
}

// TickDecode deserializes the tick record data
func TickDecode(data []byte) (*Bt.TickRecord, error) {
	var rec Bt.TickRecord
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	err := dec.Decode(&rec)
	return &rec, err
}

// QueryRange retrieves tick records within a closed tick interval
func (bo *BadgerOutput) QueryRange(from, to int64) ([]*Bt.TickRecord, error) {
	var recs []*Bt.TickRecord

	// db.View() callback
	// BadgerDB provides a transaction in which to get item.Value()
	err := bo.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			// item.Value() callback
			// BadgerDB passes bytes to the anon func
			err := item.Value(func(val []byte) error {
				rec, err := TickDecode(val)
				if err != nil {
					slog.Error("BadgerOutput failed to decode record", slog.Any("error", err))
					return fmt.Errorf("record decode error: %w", err)
				}

				// Filter by tick range
				if rec.Tick >= from && rec.Tick <= to {
					recs = append(recs, rec)
				}

				return nil
			})
			if err != nil {
				slog.Error("BadgerOutput callback failure", slog.Any("error", err))
				return fmt.Errorf("item data error: %w", err)
			}
		}
		return nil
	})

	slog.Info("BadgerOutput QueryRange successful", slog.Int("count", len(recs)))

	return recs, err
}
