package plugin

/*

	The Adapter sits aside /buffon/
	Contains core interfaces for Plugin

*/

import (
	Bt "github.com/maroda/buffon/types"
)

// SeriesTransformer reshapes one point of a convergence series,
// given a window of the values that came before it.
// An ID or Type for the transformer that is descriptive of what it does
// The amount of history needed for the calculation,
// for instance a moving average of five needs 4,
// a simple per-point rescale needs 0,
// and -1 means the window is not used at all.
type SeriesTransformer interface {
	Transform(series string, current float64, window []float64, tick int64) (float64, error)
	WindowReq() int // Required points in the past needed for calculation
	Type() string   // Unique ID for the transformer
}

// TickRecorder can be used to define a place for tick records to go,
// tick-by-tick or in batches if supported by the output type.
type TickRecorder interface {
	WriteTick(rec *Bt.TickRecord) error                  // Write singleton tick record
	WriteBatch(recs []*Bt.TickRecord) error              // Write batches of tick records
	QueryRange(from, to int64) ([]*Bt.TickRecord, error) // Tick range query tool
	Flush() error                                        // Flush any buffered data
	Close() error                                        // Close the adapter and release resources
	Type() string                                        // ID for output
}
